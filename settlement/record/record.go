package record

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetgrid/lib-settlement/settlement/allocation"
)

// SettlementRecord is one immutable settlement fact, keyed by
// (AgreementID, Method, TransactionRef).
type SettlementRecord struct {
	AgreementID    string            `json:"agreementId"`
	CustomerID     string            `json:"customerId"`
	Method         allocation.Method `json:"method"`
	Amount         decimal.Decimal   `json:"amount"`
	TransactionRef string            `json:"transactionRef"`
	Status         string            `json:"status"`
	RecordedAt     time.Time         `json:"recordedAt"`
	Metadata       map[string]any    `json:"metadata,omitempty"`
}

// FromItem builds the record for one executed item.
func FromItem(customerID, agreementID string, item *allocation.SplitPaymentItem) SettlementRecord {
	return SettlementRecord{
		AgreementID:    agreementID,
		CustomerID:     customerID,
		Method:         item.Method,
		Amount:         item.Amount,
		TransactionRef: item.TransactionRef,
		Status:         string(item.Status),
		RecordedAt:     time.Now().UTC(),
		Metadata:       item.Metadata,
	}
}

// Sink persists all records of one settlement as a single logical unit.
// A sink error after instruments have committed is an unrecoverable
// inconsistency the orchestrator surfaces rather than reverses.
type Sink interface {
	Persist(ctx context.Context, records []SettlementRecord) error
}

// MemorySink collects records in memory. Useful for tests and embedded use.
type MemorySink struct {
	mu      sync.Mutex
	records []SettlementRecord
}

var _ Sink = (*MemorySink)(nil)

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Persist implements Sink.
func (s *MemorySink) Persist(_ context.Context, records []SettlementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, records...)

	return nil
}

// Records returns a copy of everything persisted so far.
func (s *MemorySink) Records() []SettlementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SettlementRecord, len(s.records))
	copy(out, s.records)

	return out
}
