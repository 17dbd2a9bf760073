package scan

import (
	"time"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// StoreTypeAuto tells the scanner to detect the receipt type itself; the
// processor forwards no hint in that case.
const StoreTypeAuto = "auto"

// DefaultProcessingTimeout bounds the external scan call when the caller
// does not choose a timeout. Tests use much shorter values.
const DefaultProcessingTimeout = 60 * time.Second

// Params bundles everything one scan invocation needs. Each invocation is
// self-contained; concurrent scans share nothing but the injected
// collaborators.
type Params struct {
	Images    []string
	Currency  string
	StoreType string
	Defaults  LocationDefaults

	UserID           string
	CreditsRemaining int

	ViewMode      string
	ActiveGroupID string

	MerchantMappings    []domain.MerchantMapping
	CategoryMappings    []domain.CategoryMapping
	SubcategoryMappings []domain.SubcategoryMapping
	ItemNameMappings    []domain.ItemNameMapping

	// BatchEditingIndex is set when this scan replaces one receipt of an
	// existing batch-review session; HasBatchReceipts guards against a stale
	// index after the batch was discarded.
	BatchEditingIndex *int
	HasBatchReceipts  bool

	Language      string
	ReducedMotion bool

	ProcessingTimeout time.Duration
}
