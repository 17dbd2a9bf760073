package scan

import (
	"github.com/agext/levenshtein"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// MerchantConfidenceThreshold is the minimum similarity at which a merchant
// mapping is applied. Below it the scanned merchant is kept verbatim.
const MerchantConfidenceThreshold = 0.7

// ScoreFunc scores the similarity of two normalized merchant keys in [0,1].
// It must be monotone: closer strings score higher, and equal strings 1.0.
type ScoreFunc func(a, b string) float64

// LevenshteinScore is the default similarity scorer, a normalized
// Levenshtein edit-distance ratio.
func LevenshteinScore(a, b string) float64 {
	return levenshtein.Match(a, b, nil)
}

// MerchantMatch is the best mapping found for a normalized merchant key.
type MerchantMatch struct {
	Mapping    domain.MerchantMapping
	Confidence float64
}

// FindMerchantMatch scans the user's merchant mappings for the best match
// against the given normalized key. An exact key match scores 1.0 and wins
// immediately. Returns nil when there are no mappings or the key is empty.
func FindMerchantMatch(normalizedMerchant string, mappings []domain.MerchantMapping, score ScoreFunc) *MerchantMatch {
	if normalizedMerchant == "" || len(mappings) == 0 {
		return nil
	}
	if score == nil {
		score = LevenshteinScore
	}

	var best *MerchantMatch
	for _, m := range mappings {
		if m.NormalizedMerchant == normalizedMerchant {
			return &MerchantMatch{Mapping: m, Confidence: 1.0}
		}
		c := score(normalizedMerchant, m.NormalizedMerchant)
		if best == nil || c > best.Confidence {
			best = &MerchantMatch{Mapping: m, Confidence: c}
		}
	}
	return best
}

// ApplyMerchantMapping overwrites the transaction's alias with the learned
// target, marks the merchant source as learned and, when the mapping carries
// a store category, overwrites the transaction category too.
func ApplyMerchantMapping(tx domain.Transaction, m domain.MerchantMapping) domain.Transaction {
	tx.Alias = m.TargetMerchant
	tx.MerchantSource = domain.MerchantSourceLearned
	if m.StoreCategory != "" {
		tx.Category = m.StoreCategory
	}
	return tx
}

// ApplyCategoryMappings overwrites each matched item's category from the
// user's learned category mappings. Item mappings apply unconditionally on a
// normalized-name hit; there is no confidence gate. Returns the updated
// transaction and the ids of every mapping that was applied, one entry per
// matched item.
func ApplyCategoryMappings(tx domain.Transaction, mappings []domain.CategoryMapping) (domain.Transaction, []string) {
	if len(mappings) == 0 || len(tx.Items) == 0 {
		return tx, nil
	}
	byKey := make(map[string]domain.CategoryMapping, len(mappings))
	for _, m := range mappings {
		byKey[m.NormalizedItemName] = m
	}

	var applied []string
	items := make([]domain.TransactionItem, len(tx.Items))
	copy(items, tx.Items)
	for i, it := range items {
		if m, ok := byKey[NormalizeItemName(it.Name)]; ok {
			items[i].Category = m.TargetCategory
			applied = append(applied, m.ID)
		}
	}
	tx.Items = items
	return tx, applied
}

// ApplySubcategoryMappings is the subcategory analog of
// ApplyCategoryMappings.
func ApplySubcategoryMappings(tx domain.Transaction, mappings []domain.SubcategoryMapping) (domain.Transaction, []string) {
	if len(mappings) == 0 || len(tx.Items) == 0 {
		return tx, nil
	}
	byKey := make(map[string]domain.SubcategoryMapping, len(mappings))
	for _, m := range mappings {
		byKey[m.NormalizedItemName] = m
	}

	var applied []string
	items := make([]domain.TransactionItem, len(tx.Items))
	copy(items, tx.Items)
	for i, it := range items {
		if m, ok := byKey[NormalizeItemName(it.Name)]; ok {
			items[i].Subcategory = m.TargetSubcategory
			applied = append(applied, m.ID)
		}
	}
	tx.Items = items
	return tx, applied
}

// ApplyItemNameMappings rewrites matched item names to their learned display
// names. The lookup key is computed before any rewrite, so applying one
// mapping cannot cascade into another.
func ApplyItemNameMappings(tx domain.Transaction, mappings []domain.ItemNameMapping) (domain.Transaction, []string) {
	if len(mappings) == 0 || len(tx.Items) == 0 {
		return tx, nil
	}
	byKey := make(map[string]domain.ItemNameMapping, len(mappings))
	for _, m := range mappings {
		byKey[m.NormalizedItemName] = m
	}

	var applied []string
	items := make([]domain.TransactionItem, len(tx.Items))
	copy(items, tx.Items)
	for i, it := range items {
		if m, ok := byKey[NormalizeItemName(it.Name)]; ok {
			items[i].Name = m.TargetName
			applied = append(applied, m.ID)
		}
	}
	tx.Items = items
	return tx, applied
}
