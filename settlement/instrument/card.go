package instrument

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetgrid/lib-settlement/settlement"
	"github.com/fleetgrid/lib-settlement/settlement/allocation"
)

// CardExecutor delegates settlement to an external card rail. One instance
// serves one card kind (credit_card or debit_card).
type CardExecutor struct {
	method allocation.Method
	rail   CardRail
}

var _ Executor = (*CardExecutor)(nil)

// NewCardExecutor creates a card executor for the given card method.
func NewCardExecutor(method allocation.Method, rail CardRail) *CardExecutor {
	return &CardExecutor{method: method, rail: rail}
}

// Method implements Executor.
func (e *CardExecutor) Method() allocation.Method {
	return e.method
}

// Timeout implements Executor.
func (e *CardExecutor) Timeout() time.Duration {
	return RailTimeout
}

// Execute charges the card through the rail. A decline or timeout is the
// canonical trigger for rollback of prior instruments.
func (e *CardExecutor) Execute(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error {
	result, err := e.rail.Charge(ctx, ChargeRequest{
		CustomerID:  cc.CustomerID,
		AgreementID: cc.AgreementID,
		Method:      e.method,
		Amount:      item.Amount,
	})
	if err != nil {
		return settlement.NewDomainError(
			settlement.ErrorRailDeclined,
			string(e.method),
			fmt.Sprintf("card rail charge failed: %v", err),
		)
	}

	item.Status = allocation.StatusCompleted
	item.TransactionRef = result.TransactionRef
	item.SetMeta(allocation.MetaCardLast4, result.CardLast4)

	return nil
}

// Compensate refunds the charge through the same rail. Best-effort: a failed
// refund is recorded on the item and surfaced for manual reconciliation.
func (e *CardExecutor) Compensate(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error {
	if err := e.rail.Refund(ctx, item.TransactionRef, item.Amount); err != nil {
		item.SetMeta(allocation.MetaRollbackError, err.Error())
		return err
	}

	item.Status = allocation.StatusPending
	item.SetMeta(allocation.MetaRolledBack, true)

	return nil
}
