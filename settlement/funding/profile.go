package funding

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerFundingProfile is a point-in-time snapshot of a customer's funding
// capacity. It exists for early, user-facing validation only; executors are
// authoritative and re-check the live ledger at mutation time.
type CustomerFundingProfile struct {
	CustomerID    string          `json:"customerId"`
	WalletBalance decimal.Decimal `json:"walletBalance"`
	LoyaltyPoints int64           `json:"loyaltyPoints"`
	LoyaltyTier   string          `json:"loyaltyTier,omitempty"`
	CreditLimit   decimal.Decimal `json:"creditLimit"`
	CreditUsed    decimal.Decimal `json:"creditUsed"`
	FetchedAt     time.Time       `json:"fetchedAt"`
}

// CreditAvailable returns CreditLimit minus CreditUsed. It is always derived
// from its components, never stored, to avoid drift.
func (p *CustomerFundingProfile) CreditAvailable() decimal.Decimal {
	return p.CreditLimit.Sub(p.CreditUsed)
}

// ProfileProvider exposes a customer's current funding capacity. It must be
// safe to call repeatedly; no caching contract is assumed.
type ProfileProvider interface {
	GetFundingProfile(ctx context.Context, customerID string) (CustomerFundingProfile, error)
}
