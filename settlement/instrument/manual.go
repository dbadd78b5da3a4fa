package instrument

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetgrid/lib-settlement/settlement/allocation"
)

// ManualExecutor records cash and bank transfer settlements. These are
// manual rails: no external call happens, the operator confirms receipt
// out-of-band.
type ManualExecutor struct {
	method allocation.Method
}

var _ Executor = (*ManualExecutor)(nil)

// NewManualExecutor creates an executor for a manual instrument kind.
func NewManualExecutor(method allocation.Method) *ManualExecutor {
	return &ManualExecutor{method: method}
}

// Method implements Executor.
func (e *ManualExecutor) Method() allocation.Method {
	return e.method
}

// Timeout implements Executor.
func (e *ManualExecutor) Timeout() time.Duration {
	return LedgerTimeout
}

// Execute records the item as completed with a generated reference.
func (e *ManualExecutor) Execute(_ context.Context, item *allocation.SplitPaymentItem, _ CustomerContext) error {
	item.Status = allocation.StatusCompleted
	item.TransactionRef = uuid.NewString()
	item.SetMeta(allocation.MetaManualRail, string(e.method))

	return nil
}

// Compensate is a no-op marker: reversing a cash or bank transfer receipt is
// an operational process outside the engine.
func (e *ManualExecutor) Compensate(_ context.Context, item *allocation.SplitPaymentItem, _ CustomerContext) error {
	item.Status = allocation.StatusPending
	item.SetMeta(allocation.MetaRolledBack, true)

	return nil
}
