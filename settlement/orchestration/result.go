package orchestration

import (
	"github.com/fleetgrid/lib-settlement/settlement/allocation"
	"github.com/fleetgrid/lib-settlement/settlement/saga"
)

// SettlementResult is the outcome of one Execute call.
type SettlementResult struct {
	// Success is true only when every instrument settled and the records
	// were persisted.
	Success bool `json:"success"`
	// CompletedItems holds the executed items with their final statuses,
	// references, and metadata. Populated on success and on the
	// persistence-failure partial-success case.
	CompletedItems []*allocation.SplitPaymentItem `json:"completedItems,omitempty"`
	// FailedItems holds the original proposed items, unchanged, so the
	// caller can re-offer the identical allocation for retry. Populated on
	// execution failure.
	FailedItems []*allocation.SplitPaymentItem `json:"failedItems,omitempty"`
	// Err is the failure that stopped the settlement, nil on success.
	Err error `json:"-"`
	// Validation carries the re-validation outcome when execution was
	// blocked before any side effect.
	Validation *allocation.ValidationResult `json:"validation,omitempty"`
	// RolledBack is true when a failed settlement unwound every completed
	// instrument. False if any compensation failed: in that case the listed
	// CompensationFailures require manual reconciliation.
	RolledBack bool `json:"rolledBack"`
	// CompensationFailures lists instruments whose rollback could not
	// complete, in the order compensation was attempted.
	CompensationFailures []saga.CompensationFailure `json:"compensationFailures,omitempty"`
	// RecordsPersisted reports whether the settlement records reached the
	// sink. False with completed items means manual reconciliation against
	// the instrument-level statuses.
	RecordsPersisted bool `json:"recordsPersisted"`
}
