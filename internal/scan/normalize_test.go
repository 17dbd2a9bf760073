package scan

import "testing"

func TestNormalizeMerchant(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"UBER EATS", "uber eats"},
		{"  uber  ", "uber"},
		{"uber   eats", "uber eats"},
		{"Café 50%", "caf 50"},
		{"McDonald's", "mcdonalds"},
		{"WALMART #1234", "walmart 1234"},
		{"", ""},
		{"!@#$%", ""},
		{"COSTCO WHOLESALE #123", "costco wholesale 123"},
		{"Trader\tJoe's\n#55", "trader joes 55"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizeMerchant(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeMerchant(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeMerchantIdempotent(t *testing.T) {
	inputs := []string{
		"UBER EATS", "  uber  ", "Café 50%", "McDonald's", "WALMART #1234",
		"", "!@#$%", "a  b   c", "ümlaut störe",
	}
	for _, in := range inputs {
		once := NormalizeMerchant(in)
		twice := NormalizeMerchant(once)
		if once != twice {
			t.Errorf("NormalizeMerchant not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestFormatMerchantName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"walmart #1234", "Walmart 1234"},
		{"UBER EATS", "Uber Eats"},
		{"bp", "BP"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := FormatMerchantName(tt.input); got != tt.want {
			t.Errorf("FormatMerchantName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
