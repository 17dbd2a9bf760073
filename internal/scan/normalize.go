package scan

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeMerchant produces the canonical matching key for a merchant name.
// Pipeline: lowercase, drop every rune outside [a-z0-9 ], collapse runs of
// whitespace, trim. The function is total and idempotent; punctuation,
// diacritic characters and store-number separators are discarded so that
// "COSTCO WHOLESALE #123" and "Costco Wholesale 123" produce the same key
// modulo the "#".
func NormalizeMerchant(raw string) string {
	lower := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// NormalizeItemName canonicalizes an item name for mapping lookups.
// Item-level mappings share the merchant key pipeline.
func NormalizeItemName(raw string) string {
	return NormalizeMerchant(raw)
}

var titleCaser = cases.Title(language.English)

// FormatMerchantName cleans a raw merchant string for display: normalized
// key, title-cased per word, short words upper-cased, capped at 50 runes.
func FormatMerchantName(raw string) string {
	words := strings.Fields(NormalizeMerchant(raw))
	for i, w := range words {
		if len(w) > 2 {
			words[i] = titleCaser.String(w)
		} else {
			words[i] = strings.ToUpper(w)
		}
	}
	out := strings.Join(words, " ")
	if len(out) > 50 {
		out = out[:50]
	}
	return out
}
