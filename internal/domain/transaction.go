package domain

// MerchantSource records where a transaction's merchant alias came from.
const (
	// MerchantSourceScan means the alias is exactly what the scanner read.
	MerchantSourceScan = "scan"
	// MerchantSourceLearned means a stored merchant mapping was applied.
	MerchantSourceLearned = "learned"
)

// View mode for a scan session.
const (
	ViewModePersonal = "personal"
	ViewModeGroup    = "group"
)

// TransactionItem is one normalized line item on a receipt.
// Qty is always >= 1 (defaulted during normalization) and Price is a finite
// number; the validity predicates in the scan package enforce non-negative
// prices and non-blank names.
type TransactionItem struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Qty         int     `json:"qty"`
	Category    string  `json:"category,omitempty"`
	Subcategory string  `json:"subcategory,omitempty"`
}

// Transaction is the canonical in-memory transaction assembled from one scan.
// It is built fresh per scan, mutated by mapping application (alias,
// category, item fields) and then handed to the caller for edit or save.
type Transaction struct {
	Merchant string `json:"merchant"` // "Unknown" when the scanner found none
	Alias    string `json:"alias"`    // starts equal to Merchant, may be learned
	Date     string `json:"date"`     // ISO YYYY-MM-DD, never a future year
	Total    float64 `json:"total"`
	Category string `json:"category"` // "Other" when the scanner found none

	Items []TransactionItem `json:"items"`

	Country  string `json:"country"`
	City     string `json:"city"`
	Currency string `json:"currency"`

	ReceiptType    string `json:"receiptType,omitempty"`
	PromptVersion  string `json:"promptVersion,omitempty"`
	MerchantSource string `json:"merchantSource,omitempty"` // "scan" or "learned"

	// SharedGroupIDs is set only when the scan ran in group view mode with an
	// active group; otherwise the field is absent, never an empty slice.
	SharedGroupIDs []string `json:"sharedGroupIds,omitempty"`
}

// ItemSum returns the sum of price*qty over all items.
func (t *Transaction) ItemSum() float64 {
	var sum float64
	for _, it := range t.Items {
		sum += it.Price * float64(it.Qty)
	}
	return sum
}
