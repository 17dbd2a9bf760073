package scan

import (
	"reflect"
	"testing"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

func TestFindMerchantMatch(t *testing.T) {
	mappings := []domain.MerchantMapping{
		{ID: "m1", NormalizedMerchant: "uber eats", TargetMerchant: "Uber Eats"},
		{ID: "m2", NormalizedMerchant: "walmart 1234", TargetMerchant: "Walmart"},
	}

	t.Run("exact key match scores 1.0", func(t *testing.T) {
		got := FindMerchantMatch("uber eats", mappings, nil)
		if got == nil {
			t.Fatal("expected a match")
		}
		if got.Mapping.ID != "m1" || got.Confidence != 1.0 {
			t.Errorf("got %+v, want m1 at confidence 1.0", got)
		}
	})

	t.Run("near miss scores below 1.0", func(t *testing.T) {
		got := FindMerchantMatch("uber eat", mappings, nil)
		if got == nil {
			t.Fatal("expected a match")
		}
		if got.Mapping.ID != "m1" {
			t.Errorf("best match = %s, want m1", got.Mapping.ID)
		}
		if got.Confidence >= 1.0 || got.Confidence < MerchantConfidenceThreshold {
			t.Errorf("confidence = %v, want in [%v, 1.0)", got.Confidence, MerchantConfidenceThreshold)
		}
	})

	t.Run("empty key matches nothing", func(t *testing.T) {
		if got := FindMerchantMatch("", mappings, nil); got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("no mappings matches nothing", func(t *testing.T) {
		if got := FindMerchantMatch("uber eats", nil, nil); got != nil {
			t.Errorf("expected nil, got %+v", got)
		}
	})

	t.Run("custom scorer wins", func(t *testing.T) {
		fixed := func(a, b string) float64 {
			if b == "walmart 1234" {
				return 0.9
			}
			return 0.1
		}
		got := FindMerchantMatch("something else", mappings, fixed)
		if got == nil || got.Mapping.ID != "m2" || got.Confidence != 0.9 {
			t.Errorf("got %+v, want m2 at 0.9", got)
		}
	})
}

func TestApplyMerchantMapping(t *testing.T) {
	tx := domain.Transaction{Merchant: "REWE 5012", Alias: "REWE 5012", Category: "Other"}

	got := ApplyMerchantMapping(tx, domain.MerchantMapping{
		TargetMerchant: "REWE", StoreCategory: "Groceries",
	})
	if got.Alias != "REWE" {
		t.Errorf("alias = %q, want REWE", got.Alias)
	}
	if got.MerchantSource != domain.MerchantSourceLearned {
		t.Errorf("merchantSource = %q, want learned", got.MerchantSource)
	}
	if got.Category != "Groceries" {
		t.Errorf("category = %q, want Groceries", got.Category)
	}
	if got.Merchant != "REWE 5012" {
		t.Errorf("merchant should stay verbatim, got %q", got.Merchant)
	}

	noCat := ApplyMerchantMapping(tx, domain.MerchantMapping{TargetMerchant: "REWE"})
	if noCat.Category != "Other" {
		t.Errorf("category should be untouched without storeCategory, got %q", noCat.Category)
	}
}

func TestApplyCategoryMappings(t *testing.T) {
	tx := domain.Transaction{Items: []domain.TransactionItem{
		{Name: "Oat Milk 1L", Category: "Other"},
		{Name: "Batteries", Category: "Other"},
	}}
	mappings := []domain.CategoryMapping{
		{ID: "c1", NormalizedItemName: "oat milk 1l", TargetCategory: "Groceries"},
		{ID: "c2", NormalizedItemName: "shampoo", TargetCategory: "Household"},
	}

	got, applied := ApplyCategoryMappings(tx, mappings)
	if got.Items[0].Category != "Groceries" {
		t.Errorf("item 0 category = %q, want Groceries", got.Items[0].Category)
	}
	if got.Items[1].Category != "Other" {
		t.Errorf("item 1 category = %q, want untouched", got.Items[1].Category)
	}
	if !reflect.DeepEqual(applied, []string{"c1"}) {
		t.Errorf("applied = %v, want [c1]", applied)
	}
	// input must stay untouched
	if tx.Items[0].Category != "Other" {
		t.Errorf("input transaction mutated: %+v", tx.Items[0])
	}
}

func TestApplySubcategoryMappings(t *testing.T) {
	tx := domain.Transaction{Items: []domain.TransactionItem{{Name: "Oat Milk"}}}
	got, applied := ApplySubcategoryMappings(tx, []domain.SubcategoryMapping{
		{ID: "s1", NormalizedItemName: "oat milk", TargetSubcategory: "Dairy Alternatives"},
	})
	if got.Items[0].Subcategory != "Dairy Alternatives" {
		t.Errorf("subcategory = %q", got.Items[0].Subcategory)
	}
	if !reflect.DeepEqual(applied, []string{"s1"}) {
		t.Errorf("applied = %v, want [s1]", applied)
	}
}

func TestApplyItemNameMappings(t *testing.T) {
	tx := domain.Transaction{Items: []domain.TransactionItem{
		{Name: "OATMLK 1L BARISTA"},
		{Name: "Coffee"},
	}}
	mappings := []domain.ItemNameMapping{
		{ID: "n1", NormalizedItemName: "oatmlk 1l barista", TargetName: "Oat Milk (Barista)"},
		// A rewrite result must not re-trigger another rule.
		{ID: "n2", NormalizedItemName: "oat milk barista", TargetName: "LOOP"},
	}

	got, applied := ApplyItemNameMappings(tx, mappings)
	if got.Items[0].Name != "Oat Milk (Barista)" {
		t.Errorf("item 0 name = %q, want rewritten once", got.Items[0].Name)
	}
	if got.Items[1].Name != "Coffee" {
		t.Errorf("item 1 name = %q, want untouched", got.Items[1].Name)
	}
	if !reflect.DeepEqual(applied, []string{"n1"}) {
		t.Errorf("applied = %v, want [n1]", applied)
	}
}
