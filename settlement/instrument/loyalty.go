package instrument

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetgrid/lib-settlement/settlement/allocation"
	"github.com/fleetgrid/lib-settlement/settlement/funding"
)

// LoyaltyExecutor settles by redeeming loyalty points against the ledger.
type LoyaltyExecutor struct {
	ledger funding.Ledger
}

var _ Executor = (*LoyaltyExecutor)(nil)

// NewLoyaltyExecutor creates the loyalty_points executor.
func NewLoyaltyExecutor(ledger funding.Ledger) *LoyaltyExecutor {
	return &LoyaltyExecutor{ledger: ledger}
}

// Method implements Executor.
func (e *LoyaltyExecutor) Method() allocation.Method {
	return allocation.MethodLoyaltyPoints
}

// Timeout implements Executor.
func (e *LoyaltyExecutor) Timeout() time.Duration {
	return LedgerTimeout
}

// Execute redeems the item's points. The live balance is re-checked by the
// ledger at the moment of mutation, not trusted from the profile snapshot.
func (e *LoyaltyExecutor) Execute(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error {
	if err := e.ledger.RedeemPoints(ctx, cc.CustomerID, item.LoyaltyPointsUsed); err != nil {
		return err
	}

	item.Status = allocation.StatusCompleted
	item.TransactionRef = uuid.NewString()

	return nil
}

// Compensate re-credits the redeemed points with a rollback reason tag.
func (e *LoyaltyExecutor) Compensate(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error {
	if err := e.ledger.CreditPoints(ctx, cc.CustomerID, item.LoyaltyPointsUsed, funding.ReasonRollback); err != nil {
		item.SetMeta(allocation.MetaRollbackError, err.Error())
		return err
	}

	item.Status = allocation.StatusPending
	item.SetMeta(allocation.MetaRolledBack, true)

	return nil
}
