package instrument

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetgrid/lib-settlement/settlement/allocation"
	"github.com/fleetgrid/lib-settlement/settlement/funding"
)

// CreditExecutor settles against the customer's store credit line.
type CreditExecutor struct {
	ledger funding.Ledger
}

var _ Executor = (*CreditExecutor)(nil)

// NewCreditExecutor creates the credit executor.
func NewCreditExecutor(ledger funding.Ledger) *CreditExecutor {
	return &CreditExecutor{ledger: ledger}
}

// Method implements Executor.
func (e *CreditExecutor) Method() allocation.Method {
	return allocation.MethodCredit
}

// Timeout implements Executor.
func (e *CreditExecutor) Timeout() time.Duration {
	return LedgerTimeout
}

// Execute reserves the amount against the credit line. Available credit is
// recomputed fresh by the ledger at reservation time.
func (e *CreditExecutor) Execute(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error {
	if err := e.ledger.ReserveCredit(ctx, cc.CustomerID, item.Amount); err != nil {
		return err
	}

	item.Status = allocation.StatusCompleted
	item.TransactionRef = uuid.NewString()

	return nil
}

// Compensate releases the reserved credit through the ledger's dedicated
// release primitive.
func (e *CreditExecutor) Compensate(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error {
	if err := e.ledger.ReleaseCredit(ctx, cc.CustomerID, item.Amount); err != nil {
		item.SetMeta(allocation.MetaRollbackError, err.Error())
		return err
	}

	item.Status = allocation.StatusPending
	item.SetMeta(allocation.MetaRolledBack, true)

	return nil
}
