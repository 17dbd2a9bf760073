package scan

import (
	"context"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// ScanService is the external OCR/extraction service. It may fail or hang;
// the processor wraps every call in a timeout.
type ScanService interface {
	AnalyzeReceipt(ctx context.Context, images []string, currency string, storeTypeHint string) (*domain.ScanResult, error)
}

// CreditLedger debits and refunds scan credits. DeductCredits returns false
// when the balance is insufficient or the debit did not go through.
type CreditLedger interface {
	DeductCredits(ctx context.Context, n int) (bool, error)
	AddCredits(ctx context.Context, n int) error
}

// CityDirectory answers which cities are valid for a country.
type CityDirectory interface {
	CitiesForCountry(country string) []string
}

// UsageRecorder bumps the usage counter of a learned mapping. Increments are
// best-effort: the processor fires them in the background and a failure
// never aborts a scan.
type UsageRecorder interface {
	IncrementMerchantMappingUsage(ctx context.Context, id string) error
	IncrementCategoryMappingUsage(ctx context.Context, id string) error
	IncrementSubcategoryMappingUsage(ctx context.Context, id string) error
	IncrementItemNameMappingUsage(ctx context.Context, id string) error
}

// TrustedSaver is the optional auto-save collaborator. When absent the
// processor routes every successful scan to the edit view.
type TrustedSaver interface {
	CheckTrusted(ctx context.Context, merchant string) (bool, error)
	SaveTransaction(ctx context.Context, tx *domain.Transaction) (string, error)
	GenerateInsight(ctx context.Context, tx *domain.Transaction) (string, error)
	AddToBatch(tx *domain.Transaction)
	RecordMerchantScan(ctx context.Context, merchant string) error
}

// UISink receives the processor's UI-facing side effects. The processor
// defines no return contract on these; they are void sinks.
type UISink interface {
	SetScanError(msg string)
	SetCurrentTransaction(tx *domain.Transaction)
	SetView(view string)
	ShowScanDialog(tx *domain.Transaction, trusted bool)
	SetToastMessage(key string)
	SetAnimateItems(on bool)
	MarkSessionCreditUsed()
	ClearScanImages()
	DiscardBatchReceipt(index int)
	DispatchProcessStart(mode string, count int)
	DispatchProcessSuccess()
	DispatchProcessError()
	TriggerHaptic()
}

// OverlayController drives the scan progress overlay.
type OverlayController interface {
	StartUpload()
	SetProgress(percent int)
	StartProcessing()
	SetReady()
	SetError(kind string)
}

// Translator localizes toast text. Control flow never depends on it.
type Translator func(key string) string

// Views the processor navigates to on success.
const (
	ViewDashboard   = "dashboard"
	ViewBatchReview = "batch-review"
)

// Overlay error kinds.
const (
	OverlayErrorTimeout = "timeout"
	OverlayErrorAPI     = "api"
)

// Toast message keys handed to the Translator.
const (
	ToastNoCredits            = "noCredits"
	ToastScanFailedRefunded   = "scanFailedCreditRefunded"
	ToastDiscrepancyWarning   = "discrepancyWarning"
)
