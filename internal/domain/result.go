package domain

// Route identifies which success path a processed scan took.
type Route string

const (
	// RouteEditView hands the transaction to the edit view for user review.
	RouteEditView Route = "edit-view"
	// RouteTrustedAutosave means the merchant was trusted and the transaction
	// was persisted without review.
	RouteTrustedAutosave Route = "trusted-autosave"
	// RouteQuicksave falls back to a lightweight save dialog.
	RouteQuicksave Route = "quicksave"
)

// ProcessScanResult is the sole contract returned by the scan processor.
// It is a discriminated outcome, not an exception: the processor never lets
// an error escape its top-level call, and every failure path has already
// performed its refund/toast/overlay side effects before returning.
type ProcessScanResult struct {
	Success        bool         `json:"success"`
	Route          Route        `json:"route,omitempty"`
	Transaction    *Transaction `json:"transaction,omitempty"`
	Confidence     float64      `json:"confidence,omitempty"`
	HasDiscrepancy bool         `json:"hasDiscrepancy,omitempty"`
	IsTrusted      bool         `json:"isTrusted,omitempty"`
	Error          string       `json:"error,omitempty"`
}
