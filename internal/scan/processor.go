package scan

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// Deps are the processor's collaborators. Trusted may be nil, in which case
// every successful scan routes to the edit view. T and Score default to the
// identity translator and the Levenshtein scorer.
type Deps struct {
	Scanner ScanService
	Credits CreditLedger
	Cities  CityDirectory
	Usage   UsageRecorder
	UI      UISink
	Overlay OverlayController
	Trusted TrustedSaver
	T       Translator
	Score   ScoreFunc
	Log     zerolog.Logger
}

// Processor runs the scan-result reconciliation pipeline: guard input, debit
// a credit, call the scanner under a timeout with refund compensation, build
// the transaction, apply learned mappings and route the result.
type Processor struct {
	deps Deps
}

// NewProcessor wires a processor from its collaborators.
func NewProcessor(deps Deps) *Processor {
	if deps.T == nil {
		deps.T = func(key string) string { return key }
	}
	if deps.Score == nil {
		deps.Score = LevenshteinScore
	}
	return &Processor{deps: deps}
}

type scanOutcome struct {
	sr  *domain.ScanResult
	err error
}

// Process runs one scan end to end and always returns a structured result;
// no error or panic escapes the call. The ledger invariant holds on every
// path: at most one debit, and for every debit zero or one matching refund.
func (p *Processor) Process(ctx context.Context, params Params) (res domain.ProcessScanResult) {
	log := p.deps.Log.With().Str("user_id", params.UserID).Logger()

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("scan processing panicked")
			res = failResult("internal error")
		}
	}()

	// Input guard: nothing to scan means no side effects beyond the error.
	if len(params.Images) == 0 {
		p.deps.UI.SetScanError("No images to scan")
		return failResult("No images to scan")
	}

	// Credit check happens before any debit attempt.
	if params.CreditsRemaining <= 0 {
		p.deps.UI.SetToastMessage(p.deps.T(ToastNoCredits))
		return failResult("No credits")
	}

	ok, err := p.deps.Credits.DeductCredits(ctx, 1)
	if err != nil {
		log.Error().Err(err).Msg("credit deduction failed")
	}
	if err != nil || !ok {
		// Nothing was debited, so no refund is owed.
		p.deps.UI.SetScanError("Credit deduction failed")
		return failResult("Credit deduction failed")
	}

	p.deps.UI.MarkSessionCreditUsed()
	p.deps.UI.DispatchProcessStart("normal", 1)
	p.deps.Overlay.StartUpload()
	p.deps.Overlay.SetProgress(100)
	p.deps.Overlay.StartProcessing()

	sr, failed := p.analyzeWithTimeout(ctx, params, log)
	if failed != nil {
		return *failed
	}

	date := ValidateScanDate(sr.Date)
	items := NormalizeItems(sr.Items)

	var itemSum float64
	for _, it := range items {
		itemSum += it.Price * float64(it.Qty)
	}
	total := itemSum
	if sr.Total != nil {
		total = *sr.Total
	}
	hasDiscrepancy := math.Abs(total-itemSum) > 0
	if hasDiscrepancy {
		p.deps.UI.SetToastMessage(p.deps.T(ToastDiscrepancyWarning))
	}

	loc := ResolveLocation(sr.Country, sr.City, params.Defaults, p.deps.Cities.CitiesForCountry)
	if sr.Currency == "" {
		sr.Currency = params.Currency
	}

	built := BuildInitialTransaction(sr, items, loc, total, date, BuildConfig{
		ViewMode:      params.ViewMode,
		ActiveGroupID: params.ActiveGroupID,
	})

	// Mapping application in fixed order: item categories first, then the
	// merchant alias (confidence-gated), then item-name rewrites.
	tx := *built
	tx, catIDs := ApplyCategoryMappings(tx, params.CategoryMappings)
	p.recordUsage(log, usageCategory, catIDs)
	tx, subIDs := ApplySubcategoryMappings(tx, params.SubcategoryMappings)
	p.recordUsage(log, usageSubcategory, subIDs)

	var confidence float64
	if match := FindMerchantMatch(NormalizeMerchant(tx.Merchant), params.MerchantMappings, p.deps.Score); match != nil {
		confidence = match.Confidence
		if match.Confidence >= MerchantConfidenceThreshold {
			tx = ApplyMerchantMapping(tx, match.Mapping)
			p.recordUsage(log, usageMerchant, []string{match.Mapping.ID})
		}
	}

	tx, nameIDs := ApplyItemNameMappings(tx, params.ItemNameMappings)
	p.recordUsage(log, usageItemName, nameIDs)

	return p.route(ctx, params, &tx, confidence, hasDiscrepancy, log)
}

// analyzeWithTimeout races the external scan call against the processing
// timeout. Either loss refunds the debited credit exactly once: the outcome
// channel is buffered, so a call that settles after the timeout fired is
// dropped rather than triggering a second compensation.
func (p *Processor) analyzeWithTimeout(ctx context.Context, params Params, log zerolog.Logger) (*domain.ScanResult, *domain.ProcessScanResult) {
	timeout := params.ProcessingTimeout
	if timeout <= 0 {
		timeout = DefaultProcessingTimeout
	}

	hint := params.StoreType
	if hint == StoreTypeAuto {
		hint = ""
	}

	done := make(chan scanOutcome, 1)
	go func() {
		sr, err := p.deps.Scanner.AnalyzeReceipt(ctx, params.Images, params.Currency, hint)
		done <- scanOutcome{sr: sr, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err == nil && out.sr != nil {
			return out.sr, nil
		}
		p.refund(ctx, log)
		p.deps.UI.SetToastMessage(p.deps.T(ToastScanFailedRefunded))
		p.deps.UI.DispatchProcessError()
		p.deps.Overlay.SetError(OverlayErrorAPI)
		msg := "Unknown error"
		if out.err != nil && strings.TrimSpace(out.err.Error()) != "" {
			msg = out.err.Error()
		}
		log.Error().Str("error", msg).Msg("receipt analysis failed, credit refunded")
		f := failResult("Scan failed: " + msg)
		return nil, &f
	case <-timer.C:
		p.refund(ctx, log)
		p.deps.Overlay.SetError(OverlayErrorTimeout)
		log.Error().Dur("timeout", timeout).Msg("receipt analysis timed out, credit refunded")
		f := failResult("Scan timed out, credit refunded")
		return nil, &f
	}
}

// route picks one of the three mutually exclusive success paths.
func (p *Processor) route(ctx context.Context, params Params, tx *domain.Transaction, confidence float64, hasDiscrepancy bool, log zerolog.Logger) domain.ProcessScanResult {
	result := domain.ProcessScanResult{
		Success:        true,
		Transaction:    tx,
		Confidence:     confidence,
		HasDiscrepancy: hasDiscrepancy,
	}

	if p.deps.Trusted == nil {
		p.deps.UI.SetCurrentTransaction(tx)
		p.deps.UI.SetAnimateItems(true)
		p.finish(params)
		p.finishBatchReentry(params)
		result.Route = domain.RouteEditView
		return result
	}

	trusted, err := p.deps.Trusted.CheckTrusted(ctx, tx.Merchant)
	if err != nil {
		log.Warn().Err(err).Str("merchant", tx.Merchant).Msg("trusted merchant check failed")
		trusted = false
	}

	if trusted {
		if _, err := p.deps.Trusted.SaveTransaction(ctx, tx); err != nil {
			// The scan itself succeeded; only the auto-persist failed.
			log.Error().Err(err).Msg("trusted auto-save failed, falling back to quicksave")
			return p.quicksave(params, result, tx, true)
		}

		saved := *tx
		go func() {
			bg, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if _, err := p.deps.Trusted.GenerateInsight(bg, &saved); err != nil {
				log.Warn().Err(err).Msg("insight generation failed")
			}
		}()
		p.deps.Trusted.AddToBatch(tx)
		if err := p.deps.Trusted.RecordMerchantScan(ctx, tx.Merchant); err != nil {
			log.Warn().Err(err).Str("merchant", tx.Merchant).Msg("recording merchant scan failed")
		}

		if params.batchReentry() {
			p.finishBatchReentry(params)
		} else {
			p.deps.UI.ClearScanImages()
			p.deps.UI.SetView(ViewDashboard)
		}
		p.finish(params)
		result.Route = domain.RouteTrustedAutosave
		result.IsTrusted = true
		return result
	}

	return p.quicksave(params, result, tx, false)
}

// quicksave degrades to the lightweight save dialog.
func (p *Processor) quicksave(params Params, result domain.ProcessScanResult, tx *domain.Transaction, trusted bool) domain.ProcessScanResult {
	p.deps.UI.ShowScanDialog(tx, trusted)
	p.finish(params)
	p.finishBatchReentry(params)
	result.Route = domain.RouteQuicksave
	result.IsTrusted = trusted
	return result
}

// finish emits the shared success signals.
func (p *Processor) finish(params Params) {
	p.deps.UI.DispatchProcessSuccess()
	p.deps.Overlay.SetReady()
	if !params.ReducedMotion {
		p.deps.UI.TriggerHaptic()
	}
}

// finishBatchReentry discards the re-scanned receipt from the batch and
// returns to batch review. Scan images are not cleared on this path because
// the remaining receipts still need them.
func (p *Processor) finishBatchReentry(params Params) {
	if !params.batchReentry() {
		return
	}
	p.deps.UI.DiscardBatchReceipt(*params.BatchEditingIndex)
	p.deps.UI.SetView(ViewBatchReview)
}

func (params Params) batchReentry() bool {
	return params.BatchEditingIndex != nil && params.HasBatchReceipts
}

func (p *Processor) refund(ctx context.Context, log zerolog.Logger) {
	if err := p.deps.Credits.AddCredits(ctx, 1); err != nil {
		log.Error().Err(err).Msg("credit refund failed")
	}
}

type usageKind int

const (
	usageMerchant usageKind = iota
	usageCategory
	usageSubcategory
	usageItemName
)

// recordUsage bumps mapping usage counters in the background. Failures are
// logged, never surfaced; the scan is already decided by the time these run.
func (p *Processor) recordUsage(log zerolog.Logger, kind usageKind, ids []string) {
	if p.deps.Usage == nil || len(ids) == 0 {
		return
	}
	go func() {
		bg, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, id := range ids {
			var err error
			switch kind {
			case usageMerchant:
				err = p.deps.Usage.IncrementMerchantMappingUsage(bg, id)
			case usageCategory:
				err = p.deps.Usage.IncrementCategoryMappingUsage(bg, id)
			case usageSubcategory:
				err = p.deps.Usage.IncrementSubcategoryMappingUsage(bg, id)
			case usageItemName:
				err = p.deps.Usage.IncrementItemNameMappingUsage(bg, id)
			}
			if err != nil {
				log.Warn().Err(err).Str("mapping_id", id).Msg("usage increment failed")
			}
		}
	}()
}

func failResult(msg string) domain.ProcessScanResult {
	return domain.ProcessScanResult{Success: false, Error: msg}
}
