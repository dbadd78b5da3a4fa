package funding

import (
	"context"

	"github.com/shopspring/decimal"
)

// CreditReason tags a compensating credit so reconciliation can distinguish
// a customer-initiated refund from an engine rollback.
type CreditReason string

const (
	// ReasonRefund marks a customer-initiated refund credit.
	ReasonRefund CreditReason = "refund"
	// ReasonRollback marks an engine compensation credit.
	ReasonRollback CreditReason = "rollback"
)

// WalletMovement reports the wallet balance around a deduction so the
// executor can record before/after in item metadata.
type WalletMovement struct {
	Before decimal.Decimal
	After  decimal.Decimal
}

// Ledger is the mutation contract for the customer's shared funding
// resources. Each method re-checks the live balance before mutating, so
// at-least-once retry on ambiguous failure is acceptable. Implementations
// must return a settlement.DomainError with ErrorInsufficientFunds when the
// live balance cannot cover the request.
type Ledger interface {
	// DebitWallet deducts amount from the customer's wallet, failing if the
	// live balance is lower than amount.
	DebitWallet(ctx context.Context, customerID string, amount decimal.Decimal) (WalletMovement, error)
	// CreditWallet re-credits amount to the customer's wallet.
	CreditWallet(ctx context.Context, customerID string, amount decimal.Decimal, reason CreditReason) error
	// RedeemPoints deducts points from the customer's loyalty balance,
	// failing if the live balance is lower than points.
	RedeemPoints(ctx context.Context, customerID string, points int64) error
	// CreditPoints re-credits points to the customer's loyalty balance.
	CreditPoints(ctx context.Context, customerID string, points int64, reason CreditReason) error
	// ReserveCredit increases credit-used by amount, failing if the live
	// available credit is lower than amount.
	ReserveCredit(ctx context.Context, customerID string, amount decimal.Decimal) error
	// ReleaseCredit decreases credit-used by amount, reversing a reservation.
	ReleaseCredit(ctx context.Context, customerID string, amount decimal.Decimal) error
}
