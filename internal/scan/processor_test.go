package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

type mockScanner struct {
	mu      sync.Mutex
	calls   int
	analyze func(ctx context.Context, images []string, currency, hint string) (*domain.ScanResult, error)
}

func (m *mockScanner) AnalyzeReceipt(ctx context.Context, images []string, currency, hint string) (*domain.ScanResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.analyze(ctx, images, currency, hint)
}

func (m *mockScanner) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockLedger struct {
	mu        sync.Mutex
	deductOK  bool
	deductErr error
	deducts   int
	adds      int
}

func (m *mockLedger) DeductCredits(ctx context.Context, n int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deducts++
	return m.deductOK, m.deductErr
}

func (m *mockLedger) AddCredits(ctx context.Context, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adds += n
	return nil
}

func (m *mockLedger) counts() (deducts, adds int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deducts, m.adds
}

type mockUsage struct {
	mu  sync.Mutex
	ids []string
}

func (m *mockUsage) bump(kind, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, kind+":"+id)
	return nil
}

func (m *mockUsage) IncrementMerchantMappingUsage(ctx context.Context, id string) error {
	return m.bump("merchant", id)
}
func (m *mockUsage) IncrementCategoryMappingUsage(ctx context.Context, id string) error {
	return m.bump("category", id)
}
func (m *mockUsage) IncrementSubcategoryMappingUsage(ctx context.Context, id string) error {
	return m.bump("subcategory", id)
}
func (m *mockUsage) IncrementItemNameMappingUsage(ctx context.Context, id string) error {
	return m.bump("itemname", id)
}

func (m *mockUsage) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

type mockTrusted struct {
	checkTrusted func(ctx context.Context, merchant string) (bool, error)
	save         func(ctx context.Context, tx *domain.Transaction) (string, error)

	mu           sync.Mutex
	insights     int
	batched      int
	merchantScan int
}

func (m *mockTrusted) CheckTrusted(ctx context.Context, merchant string) (bool, error) {
	return m.checkTrusted(ctx, merchant)
}

func (m *mockTrusted) SaveTransaction(ctx context.Context, tx *domain.Transaction) (string, error) {
	if m.save != nil {
		return m.save(ctx, tx)
	}
	return "tx-1", nil
}

func (m *mockTrusted) GenerateInsight(ctx context.Context, tx *domain.Transaction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insights++
	return "insight", nil
}

func (m *mockTrusted) AddToBatch(tx *domain.Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batched++
}

func (m *mockTrusted) RecordMerchantScan(ctx context.Context, merchant string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.merchantScan++
	return nil
}

type testRig struct {
	scanner *mockScanner
	ledger  *mockLedger
	usage   *mockUsage
	sink    *RecordingSink
	deps    Deps
}

func newRig(sr *domain.ScanResult) *testRig {
	rig := &testRig{
		scanner: &mockScanner{analyze: func(ctx context.Context, images []string, currency, hint string) (*domain.ScanResult, error) {
			return sr, nil
		}},
		ledger: &mockLedger{deductOK: true},
		usage:  &mockUsage{},
		sink:   NewRecordingSink(),
	}
	rig.deps = Deps{
		Scanner: rig.scanner,
		Credits: rig.ledger,
		Cities:  cityDirFunc(func(string) []string { return nil }),
		Usage:   rig.usage,
		UI:      rig.sink,
		Overlay: rig.sink,
		Log:     zerolog.Nop(),
	}
	return rig
}

type cityDirFunc func(country string) []string

func (f cityDirFunc) CitiesForCountry(country string) []string { return f(country) }

func baseParams() Params {
	return Params{
		Images:            []string{"gs://bucket/receipt.jpg"},
		Currency:          "EUR",
		StoreType:         StoreTypeAuto,
		UserID:            "u1",
		CreditsRemaining:  5,
		ViewMode:          domain.ViewModePersonal,
		ProcessingTimeout: time.Second,
	}
}

func TestProcessNoImagesGuard(t *testing.T) {
	rig := newRig(&domain.ScanResult{})
	params := baseParams()
	params.Images = nil

	res := NewProcessor(rig.deps).Process(context.Background(), params)

	if res.Success || res.Error != "No images to scan" {
		t.Errorf("result = %+v, want failure %q", res, "No images to scan")
	}
	if rig.scanner.callCount() != 0 {
		t.Error("analyzeReceipt must never be called without images")
	}
	deducts, _ := rig.ledger.counts()
	if deducts != 0 {
		t.Error("no debit expected on the input guard")
	}
	if !rig.sink.Has("scanError") {
		t.Error("setScanError not called")
	}
}

func TestProcessNoCreditsGuard(t *testing.T) {
	rig := newRig(&domain.ScanResult{})
	params := baseParams()
	params.CreditsRemaining = 0

	res := NewProcessor(rig.deps).Process(context.Background(), params)

	if res.Success || res.Error != "No credits" {
		t.Errorf("result = %+v, want failure %q", res, "No credits")
	}
	deducts, _ := rig.ledger.counts()
	if deducts != 0 {
		t.Error("deductUserCredits must never be called without credits")
	}
	if toasts := rig.sink.Find("toast"); len(toasts) != 1 || toasts[0] != ToastNoCredits {
		t.Errorf("toasts = %v, want [%s]", toasts, ToastNoCredits)
	}
}

func TestProcessDebitFailure(t *testing.T) {
	rig := newRig(&domain.ScanResult{})
	rig.ledger.deductOK = false

	res := NewProcessor(rig.deps).Process(context.Background(), baseParams())

	if res.Success || res.Error != "Credit deduction failed" {
		t.Errorf("result = %+v, want debit failure", res)
	}
	deducts, adds := rig.ledger.counts()
	if deducts != 1 || adds != 0 {
		t.Errorf("deducts/adds = %d/%d, want 1/0 (no refund without a debit)", deducts, adds)
	}
	if rig.scanner.callCount() != 0 {
		t.Error("scanner must not run after a failed debit")
	}
}

func TestProcessTimeoutRefund(t *testing.T) {
	rig := newRig(nil)
	rig.scanner.analyze = func(ctx context.Context, images []string, currency, hint string) (*domain.ScanResult, error) {
		time.Sleep(300 * time.Millisecond)
		return &domain.ScanResult{}, nil
	}
	params := baseParams()
	params.ProcessingTimeout = 20 * time.Millisecond

	res := NewProcessor(rig.deps).Process(context.Background(), params)

	if res.Success {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !strings.Contains(res.Error, "timed out") {
		t.Errorf("error = %q, want it to mention a timeout", res.Error)
	}
	if _, adds := rig.ledger.counts(); adds != 1 {
		t.Errorf("adds = %d, want exactly one refund", adds)
	}
	if kinds := rig.sink.Find("overlayError"); len(kinds) != 1 || kinds[0] != OverlayErrorTimeout {
		t.Errorf("overlay errors = %v, want [timeout]", kinds)
	}

	// A late settlement of the external call must not trigger a second
	// refund.
	time.Sleep(350 * time.Millisecond)
	if _, adds := rig.ledger.counts(); adds != 1 {
		t.Errorf("adds = %d after late settlement, want still 1", adds)
	}
}

func TestProcessAPIFailureRefund(t *testing.T) {
	rig := newRig(nil)
	rig.scanner.analyze = func(ctx context.Context, images []string, currency, hint string) (*domain.ScanResult, error) {
		return nil, errors.New("Network error")
	}

	res := NewProcessor(rig.deps).Process(context.Background(), baseParams())

	if res.Success {
		t.Fatalf("expected failure, got %+v", res)
	}
	if !strings.Contains(res.Error, "Network error") {
		t.Errorf("error = %q, want it to contain the scanner's message", res.Error)
	}
	if _, adds := rig.ledger.counts(); adds != 1 {
		t.Errorf("adds = %d, want exactly one refund", adds)
	}
	found := false
	for _, v := range rig.sink.Find("toast") {
		if v == ToastScanFailedRefunded {
			found = true
		}
	}
	if !found {
		t.Error("scanFailedCreditRefunded toast not shown")
	}
	if kinds := rig.sink.Find("overlayError"); len(kinds) != 1 || kinds[0] != OverlayErrorAPI {
		t.Errorf("overlay errors = %v, want [api]", kinds)
	}
}

func TestProcessNilResultNormalized(t *testing.T) {
	rig := newRig(nil)
	rig.scanner.analyze = func(ctx context.Context, images []string, currency, hint string) (*domain.ScanResult, error) {
		return nil, nil
	}

	res := NewProcessor(rig.deps).Process(context.Background(), baseParams())

	if res.Success || !strings.Contains(res.Error, "Unknown error") {
		t.Errorf("result = %+v, want normalized unknown error", res)
	}
	if _, adds := rig.ledger.counts(); adds != 1 {
		t.Error("refund expected for a nil scan result")
	}
}

func TestProcessConfidenceGate(t *testing.T) {
	sr := &domain.ScanResult{
		Merchant: "REWE CITY 5012",
		Total:    floatPtr(10),
		Items:    []domain.RawItem{{Name: "Milk", Price: floatPtr(10)}},
	}
	mappings := []domain.MerchantMapping{
		{ID: "m1", NormalizedMerchant: "rewe city", TargetMerchant: "REWE", StoreCategory: "Groceries"},
	}

	t.Run("above threshold applies the mapping", func(t *testing.T) {
		rig := newRig(sr)
		rig.deps.Score = func(a, b string) float64 { return 0.9 }
		params := baseParams()
		params.MerchantMappings = mappings

		res := NewProcessor(rig.deps).Process(context.Background(), params)

		if !res.Success {
			t.Fatalf("unexpected failure: %+v", res)
		}
		if res.Transaction.Alias != "REWE" {
			t.Errorf("alias = %q, want learned REWE", res.Transaction.Alias)
		}
		if res.Transaction.MerchantSource != domain.MerchantSourceLearned {
			t.Errorf("merchantSource = %q, want learned", res.Transaction.MerchantSource)
		}
		if res.Transaction.Category != "Groceries" {
			t.Errorf("category = %q, want storeCategory applied", res.Transaction.Category)
		}
		if res.Confidence != 0.9 {
			t.Errorf("confidence = %v, want 0.9", res.Confidence)
		}
	})

	t.Run("below threshold keeps the scanned merchant", func(t *testing.T) {
		rig := newRig(sr)
		rig.deps.Score = func(a, b string) float64 { return 0.5 }
		params := baseParams()
		params.MerchantMappings = mappings

		res := NewProcessor(rig.deps).Process(context.Background(), params)

		if !res.Success {
			t.Fatalf("unexpected failure: %+v", res)
		}
		if res.Transaction.Alias != "REWE CITY 5012" {
			t.Errorf("alias = %q, want scanned value kept", res.Transaction.Alias)
		}
		if res.Transaction.MerchantSource == domain.MerchantSourceLearned {
			t.Error("merchantSource must not be learned below threshold")
		}
		if res.Confidence != 0.5 {
			t.Errorf("confidence = %v, want 0.5", res.Confidence)
		}
	})
}

func TestProcessDiscrepancy(t *testing.T) {
	t.Run("items not adding up to total", func(t *testing.T) {
		sr := &domain.ScanResult{
			Merchant: "Store",
			Total:    floatPtr(150),
			Items:    []domain.RawItem{{Name: "A", Price: floatPtr(100)}},
		}
		rig := newRig(sr)

		res := NewProcessor(rig.deps).Process(context.Background(), baseParams())

		if !res.HasDiscrepancy {
			t.Error("hasDiscrepancy = false, want true")
		}
		found := false
		for _, v := range rig.sink.Find("toast") {
			if v == ToastDiscrepancyWarning {
				found = true
			}
		}
		if !found {
			t.Error("discrepancyWarning toast not shown")
		}
		if !res.Success {
			t.Error("a discrepancy must not block success")
		}
	})

	t.Run("items summing exactly to total", func(t *testing.T) {
		sr := &domain.ScanResult{
			Merchant: "Store",
			Total:    floatPtr(100),
			Items:    []domain.RawItem{{Name: "A", Price: floatPtr(50), Quantity: intPtr(2)}},
		}
		rig := newRig(sr)

		res := NewProcessor(rig.deps).Process(context.Background(), baseParams())

		if res.HasDiscrepancy {
			t.Error("hasDiscrepancy = true, want false")
		}
		for _, v := range rig.sink.Find("toast") {
			if v == ToastDiscrepancyWarning {
				t.Error("unexpected discrepancy toast")
			}
		}
	})
}

func TestProcessRoutingMatrix(t *testing.T) {
	sr := &domain.ScanResult{
		Merchant: "REWE",
		Total:    floatPtr(10),
		Items:    []domain.RawItem{{Name: "Milk", Price: floatPtr(10)}},
	}

	t.Run("no trusted collaborator routes to edit view", func(t *testing.T) {
		rig := newRig(sr)

		res := NewProcessor(rig.deps).Process(context.Background(), baseParams())

		if res.Route != domain.RouteEditView || res.IsTrusted {
			t.Errorf("route/isTrusted = %v/%v, want edit-view/false", res.Route, res.IsTrusted)
		}
		if !rig.sink.Has("currentTransaction") {
			t.Error("setCurrentTransaction not called")
		}
		if !rig.sink.Has("animateItems") {
			t.Error("animate-items flag not set")
		}
		if !rig.sink.Has("overlayReady") {
			t.Error("overlay not marked ready")
		}
	})

	t.Run("trusted merchant with working save auto-saves", func(t *testing.T) {
		rig := newRig(sr)
		trusted := &mockTrusted{
			checkTrusted: func(ctx context.Context, merchant string) (bool, error) { return true, nil },
		}
		rig.deps.Trusted = trusted

		res := NewProcessor(rig.deps).Process(context.Background(), baseParams())

		if res.Route != domain.RouteTrustedAutosave || !res.IsTrusted {
			t.Errorf("route/isTrusted = %v/%v, want trusted-autosave/true", res.Route, res.IsTrusted)
		}
		if views := rig.sink.Find("view"); len(views) != 1 || views[0] != ViewDashboard {
			t.Errorf("views = %v, want [dashboard]", views)
		}
		if !rig.sink.Has("clearScanImages") {
			t.Error("scan images not cleared after auto-save")
		}
		trusted.mu.Lock()
		batched, scans := trusted.batched, trusted.merchantScan
		trusted.mu.Unlock()
		if batched != 1 || scans != 1 {
			t.Errorf("batched/merchantScan = %d/%d, want 1/1", batched, scans)
		}
	})

	t.Run("trusted merchant with failing save falls back to quicksave", func(t *testing.T) {
		rig := newRig(sr)
		rig.deps.Trusted = &mockTrusted{
			checkTrusted: func(ctx context.Context, merchant string) (bool, error) { return true, nil },
			save: func(ctx context.Context, tx *domain.Transaction) (string, error) {
				return "", errors.New("store unavailable")
			},
		}

		res := NewProcessor(rig.deps).Process(context.Background(), baseParams())

		if !res.Success {
			t.Fatal("a failed auto-save must still be a successful scan")
		}
		if res.Route != domain.RouteQuicksave || !res.IsTrusted {
			t.Errorf("route/isTrusted = %v/%v, want quicksave/true", res.Route, res.IsTrusted)
		}
		if !rig.sink.Has("scanDialog") {
			t.Error("quicksave dialog not shown")
		}
	})

	t.Run("untrusted merchant routes to quicksave", func(t *testing.T) {
		rig := newRig(sr)
		rig.deps.Trusted = &mockTrusted{
			checkTrusted: func(ctx context.Context, merchant string) (bool, error) { return false, nil },
		}

		res := NewProcessor(rig.deps).Process(context.Background(), baseParams())

		if res.Route != domain.RouteQuicksave || res.IsTrusted {
			t.Errorf("route/isTrusted = %v/%v, want quicksave/false", res.Route, res.IsTrusted)
		}
		if !rig.sink.Has("scanDialog") {
			t.Error("quicksave dialog not shown")
		}
	})
}

func TestProcessFutureYearDate(t *testing.T) {
	nextYear := time.Now().UTC().Year() + 1
	sr := &domain.ScanResult{
		Merchant: "Store",
		Date:     fmt.Sprintf("%d-01-15", nextYear),
		Total:    floatPtr(5),
		Items:    []domain.RawItem{{Name: "A", Price: floatPtr(5)}},
	}
	rig := newRig(sr)

	res := NewProcessor(rig.deps).Process(context.Background(), baseParams())

	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	want := time.Now().UTC().Format("2006-01-02")
	if res.Transaction.Date != want {
		t.Errorf("date = %q, want clamped to today %q", res.Transaction.Date, want)
	}
}

func TestProcessBatchReentry(t *testing.T) {
	sr := &domain.ScanResult{
		Merchant: "Store",
		Total:    floatPtr(5),
		Items:    []domain.RawItem{{Name: "A", Price: floatPtr(5)}},
	}
	rig := newRig(sr)
	rig.deps.Trusted = &mockTrusted{
		checkTrusted: func(ctx context.Context, merchant string) (bool, error) { return true, nil },
	}
	params := baseParams()
	params.BatchEditingIndex = intPtr(2)
	params.HasBatchReceipts = true

	res := NewProcessor(rig.deps).Process(context.Background(), params)

	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if got := rig.sink.Find("discardBatchReceipt"); len(got) != 1 || got[0] != 2 {
		t.Errorf("discarded receipts = %v, want [2]", got)
	}
	if views := rig.sink.Find("view"); len(views) != 1 || views[0] != ViewBatchReview {
		t.Errorf("views = %v, want [batch-review]", views)
	}
	if rig.sink.Has("clearScanImages") {
		t.Error("scan images must not be cleared during batch re-entry")
	}
}

func TestProcessMappingUsageRecorded(t *testing.T) {
	sr := &domain.ScanResult{
		Merchant: "REWE",
		Total:    floatPtr(3),
		Items:    []domain.RawItem{{Name: "Oat Milk", Price: floatPtr(3)}},
	}
	rig := newRig(sr)
	params := baseParams()
	params.MerchantMappings = []domain.MerchantMapping{
		{ID: "m1", NormalizedMerchant: "rewe", TargetMerchant: "REWE Markt"},
	}
	params.CategoryMappings = []domain.CategoryMapping{
		{ID: "c1", NormalizedItemName: "oat milk", TargetCategory: "Groceries"},
	}
	params.ItemNameMappings = []domain.ItemNameMapping{
		{ID: "n1", NormalizedItemName: "oat milk", TargetName: "Oat Milk 1L"},
	}

	res := NewProcessor(rig.deps).Process(context.Background(), params)
	if !res.Success {
		t.Fatalf("unexpected failure: %+v", res)
	}
	if res.Transaction.Items[0].Category != "Groceries" {
		t.Errorf("category mapping not applied: %+v", res.Transaction.Items[0])
	}
	if res.Transaction.Items[0].Name != "Oat Milk 1L" {
		t.Errorf("item-name mapping not applied: %+v", res.Transaction.Items[0])
	}
	if res.Transaction.Alias != "REWE Markt" {
		t.Errorf("merchant mapping not applied: %+v", res.Transaction)
	}

	// Usage increments are fired in the background; give them a moment.
	deadline := time.Now().Add(2 * time.Second)
	want := map[string]bool{"merchant:m1": false, "category:c1": false, "itemname:n1": false}
	for time.Now().Before(deadline) {
		got := rig.usage.recorded()
		for _, id := range got {
			if _, ok := want[id]; ok {
				want[id] = true
			}
		}
		all := true
		for _, seen := range want {
			all = all && seen
		}
		if all {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("usage increments incomplete: %v", rig.usage.recorded())
}
