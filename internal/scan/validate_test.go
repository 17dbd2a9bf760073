package scan

import (
	"math"
	"testing"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

func TestIsValidItem(t *testing.T) {
	tests := []struct {
		name string
		item domain.TransactionItem
		want bool
	}{
		{"valid", domain.TransactionItem{Name: "Milk", Price: 1.5, Qty: 1}, true},
		{"zero price allowed", domain.TransactionItem{Name: "Coupon", Price: 0, Qty: 1}, true},
		{"blank name", domain.TransactionItem{Name: "   ", Price: 1, Qty: 1}, false},
		{"negative price", domain.TransactionItem{Name: "X", Price: -1, Qty: 1}, false},
		{"NaN price", domain.TransactionItem{Name: "X", Price: math.NaN(), Qty: 1}, false},
		{"zero qty", domain.TransactionItem{Name: "X", Price: 1, Qty: 0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidItem(tt.item); got != tt.want {
				t.Errorf("IsValidItem(%+v) = %v, want %v", tt.item, got, tt.want)
			}
		})
	}
}

func TestIsValidTransaction(t *testing.T) {
	valid := &domain.Transaction{
		Merchant: "REWE", Date: "2024-05-01", Total: 3,
		Items: []domain.TransactionItem{{Name: "Milk", Price: 1.5, Qty: 2}},
	}
	if !IsValidTransaction(valid) {
		t.Error("expected valid transaction")
	}

	tests := []struct {
		name   string
		mutate func(tx *domain.Transaction)
	}{
		{"missing merchant", func(tx *domain.Transaction) { tx.Merchant = "" }},
		{"missing date", func(tx *domain.Transaction) { tx.Date = "" }},
		{"negative total", func(tx *domain.Transaction) { tx.Total = -1 }},
		{"invalid item", func(tx *domain.Transaction) { tx.Items[0].Name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := *valid
			tx.Items = []domain.TransactionItem{valid.Items[0]}
			tt.mutate(&tx)
			if IsValidTransaction(&tx) {
				t.Errorf("expected invalid transaction after %s", tt.name)
			}
		})
	}

	if IsValidTransaction(nil) {
		t.Error("nil transaction must be invalid")
	}
}
