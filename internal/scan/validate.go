package scan

import (
	"math"
	"strings"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// IsValidItem reports whether a normalized item has the required shape:
// a non-blank name, a finite non-negative price and a quantity of at least 1.
func IsValidItem(item domain.TransactionItem) bool {
	if strings.TrimSpace(item.Name) == "" {
		return false
	}
	if math.IsNaN(item.Price) || math.IsInf(item.Price, 0) || item.Price < 0 {
		return false
	}
	return item.Qty >= 1
}

// IsValidTransaction reports whether a built transaction satisfies the
// shape required for persistence: merchant and date present, a finite
// non-negative total and every item valid.
func IsValidTransaction(tx *domain.Transaction) bool {
	if tx == nil {
		return false
	}
	if strings.TrimSpace(tx.Merchant) == "" || strings.TrimSpace(tx.Date) == "" {
		return false
	}
	if math.IsNaN(tx.Total) || math.IsInf(tx.Total, 0) || tx.Total < 0 {
		return false
	}
	for _, it := range tx.Items {
		if !IsValidItem(it) {
			return false
		}
	}
	return true
}
