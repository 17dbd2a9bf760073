package scan

import (
	"sync"

	"github.com/dvloznov/receipt-ledger/internal/domain"
)

// UIEvent is one recorded UI side effect, in emission order.
type UIEvent struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value,omitempty"`
}

// RecordingSink collects the processor's UI and overlay signals instead of
// driving a real interface. The API handlers return the recorded events to
// the client so the app can replay them; tests assert on them directly.
type RecordingSink struct {
	mu     sync.Mutex
	events []UIEvent
}

// NewRecordingSink returns an empty sink.
func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) record(name string, value interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, UIEvent{Name: name, Value: value})
}

// Events returns a copy of everything recorded so far.
func (s *RecordingSink) Events() []UIEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UIEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Find returns the recorded values for a given event name.
func (s *RecordingSink) Find(name string) []interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []interface{}
	for _, e := range s.events {
		if e.Name == name {
			out = append(out, e.Value)
		}
	}
	return out
}

// Has reports whether an event with the given name was recorded.
func (s *RecordingSink) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Name == name {
			return true
		}
	}
	return false
}

// UISink implementation.

func (s *RecordingSink) SetScanError(msg string) { s.record("scanError", msg) }

func (s *RecordingSink) SetCurrentTransaction(tx *domain.Transaction) {
	s.record("currentTransaction", tx)
}

func (s *RecordingSink) SetView(view string) { s.record("view", view) }

func (s *RecordingSink) ShowScanDialog(tx *domain.Transaction, trusted bool) {
	s.record("scanDialog", map[string]interface{}{"transaction": tx, "trusted": trusted})
}

func (s *RecordingSink) SetToastMessage(key string) { s.record("toast", key) }

func (s *RecordingSink) SetAnimateItems(on bool) { s.record("animateItems", on) }

func (s *RecordingSink) MarkSessionCreditUsed() { s.record("creditUsed", true) }

func (s *RecordingSink) ClearScanImages() { s.record("clearScanImages", nil) }

func (s *RecordingSink) DiscardBatchReceipt(index int) { s.record("discardBatchReceipt", index) }

func (s *RecordingSink) DispatchProcessStart(mode string, count int) {
	s.record("processStart", map[string]interface{}{"mode": mode, "count": count})
}

func (s *RecordingSink) DispatchProcessSuccess() { s.record("processSuccess", nil) }

func (s *RecordingSink) DispatchProcessError() { s.record("processError", nil) }

func (s *RecordingSink) TriggerHaptic() { s.record("haptic", nil) }

// OverlayController implementation.

func (s *RecordingSink) StartUpload() { s.record("overlayUpload", nil) }

func (s *RecordingSink) SetProgress(percent int) { s.record("overlayProgress", percent) }

func (s *RecordingSink) StartProcessing() { s.record("overlayProcessing", nil) }

func (s *RecordingSink) SetReady() { s.record("overlayReady", nil) }

func (s *RecordingSink) SetError(kind string) { s.record("overlayError", kind) }
