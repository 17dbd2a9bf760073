package scan

import (
	"github.com/dvloznov/receipt-ledger/internal/domain"
)

const (
	// UnknownMerchant is the merchant used when the scanner read none.
	UnknownMerchant = "Unknown"
	// DefaultCategory is the category used when the scanner read none.
	DefaultCategory = "Other"
)

// BuildConfig carries the view-mode context for transaction assembly.
type BuildConfig struct {
	ViewMode      string // domain.ViewModePersonal or domain.ViewModeGroup
	ActiveGroupID string
}

// NormalizeItems maps raw scanned items into normalized transaction items.
// Quantity takes precedence over its Qty alias when both are present and
// defaults to 1 when absent; category and subcategory pass through as read.
func NormalizeItems(raw []domain.RawItem) []domain.TransactionItem {
	items := make([]domain.TransactionItem, 0, len(raw))
	for _, r := range raw {
		qty := 1
		switch {
		case r.Quantity != nil:
			qty = *r.Quantity
		case r.Qty != nil:
			qty = *r.Qty
		}
		if qty < 1 {
			qty = 1
		}

		var price float64
		if r.Price != nil {
			price = *r.Price
		}

		items = append(items, domain.TransactionItem{
			Name:        r.Name,
			Price:       price,
			Qty:         qty,
			Category:    r.Category,
			Subcategory: r.Subcategory,
		})
	}
	return items
}

// BuildInitialTransaction assembles the canonical transaction record from
// raw scan output plus the location, total and date the processor resolved
// beforehand. Caller-provided total and date override anything present in
// the scan result. SharedGroupIDs is set only in group view mode with an
// active group id; otherwise the field stays absent.
func BuildInitialTransaction(sr *domain.ScanResult, items []domain.TransactionItem, loc Location, total float64, date string, cfg BuildConfig) *domain.Transaction {
	merchant := sr.Merchant
	if merchant == "" {
		merchant = UnknownMerchant
	}
	category := sr.Category
	if category == "" {
		category = DefaultCategory
	}

	tx := &domain.Transaction{
		Merchant:       merchant,
		Alias:          merchant,
		Date:           date,
		Total:          total,
		Category:       category,
		Items:          items,
		Country:        loc.Country,
		City:           loc.City,
		Currency:       sr.Currency,
		ReceiptType:    sr.ReceiptType,
		PromptVersion:  sr.PromptVersion,
		MerchantSource: domain.MerchantSourceScan,
	}

	if cfg.ViewMode == domain.ViewModeGroup && cfg.ActiveGroupID != "" {
		tx.SharedGroupIDs = []string{cfg.ActiveGroupID}
	}
	return tx
}
