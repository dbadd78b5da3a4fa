package instrument

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fleetgrid/lib-settlement/settlement/allocation"
	"github.com/fleetgrid/lib-settlement/settlement/funding"
)

// WalletExecutor settles from the customer's wallet balance.
type WalletExecutor struct {
	ledger funding.Ledger
}

var _ Executor = (*WalletExecutor)(nil)

// NewWalletExecutor creates the customer_wallet executor.
func NewWalletExecutor(ledger funding.Ledger) *WalletExecutor {
	return &WalletExecutor{ledger: ledger}
}

// Method implements Executor.
func (e *WalletExecutor) Method() allocation.Method {
	return allocation.MethodCustomerWallet
}

// Timeout implements Executor.
func (e *WalletExecutor) Timeout() time.Duration {
	return LedgerTimeout
}

// Execute deducts the amount from the wallet and records the balance before
// and after in the item metadata.
func (e *WalletExecutor) Execute(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error {
	movement, err := e.ledger.DebitWallet(ctx, cc.CustomerID, item.Amount)
	if err != nil {
		return err
	}

	item.Status = allocation.StatusCompleted
	item.TransactionRef = uuid.NewString()
	item.SetMeta(allocation.MetaBalanceBefore, movement.Before.String())
	item.SetMeta(allocation.MetaBalanceAfter, movement.After.String())

	return nil
}

// Compensate re-credits the deducted amount.
func (e *WalletExecutor) Compensate(ctx context.Context, item *allocation.SplitPaymentItem, cc CustomerContext) error {
	if err := e.ledger.CreditWallet(ctx, cc.CustomerID, item.Amount, funding.ReasonRollback); err != nil {
		item.SetMeta(allocation.MetaRollbackError, err.Error())
		return err
	}

	item.Status = allocation.StatusPending
	item.SetMeta(allocation.MetaRolledBack, true)

	return nil
}
