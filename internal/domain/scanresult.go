package domain

// ScanResult is the raw, untrusted output of the receipt analysis service.
// Every field is optional: OCR output is unreliable, so absence is the norm
// and the reconciliation pipeline must cope with any combination of missing
// values. Pointer fields distinguish "absent" from a legitimate zero.
type ScanResult struct {
	Merchant string   `json:"merchant,omitempty"`
	Date     string   `json:"date,omitempty"`
	Total    *float64 `json:"total,omitempty"`
	Category string   `json:"category,omitempty"`

	Items []RawItem `json:"items,omitempty"`

	Currency string `json:"currency,omitempty"`
	Country  string `json:"country,omitempty"`
	City     string `json:"city,omitempty"`

	ImageURLs    []string `json:"imageUrls,omitempty"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	Time         string   `json:"time,omitempty"`

	ReceiptType    string `json:"receiptType,omitempty"`
	PromptVersion  string `json:"promptVersion,omitempty"`
	MerchantSource string `json:"merchantSource,omitempty"`
}

// RawItem is a single scanned line item before normalization.
// Quantity and Qty are aliases; Quantity takes precedence when both are
// present, and a missing quantity defaults to 1 during normalization.
type RawItem struct {
	Name        string   `json:"name,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Quantity    *int     `json:"quantity,omitempty"`
	Qty         *int     `json:"qty,omitempty"`
	Category    string   `json:"category,omitempty"`
	Subcategory string   `json:"subcategory,omitempty"`
}
