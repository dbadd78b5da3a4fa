package funding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fleetgrid/lib-settlement/settlement"
)

// Account seeds one customer's balances in a MemoryLedger.
type Account struct {
	WalletBalance decimal.Decimal
	LoyaltyPoints int64
	LoyaltyTier   string
	CreditLimit   decimal.Decimal
	CreditUsed    decimal.Decimal
}

// MemoryLedger is an in-memory Ledger and ProfileProvider. It is safe for
// concurrent use and is the substitution point for tests that assert exact
// before/after balances.
type MemoryLedger struct {
	mu       sync.Mutex
	accounts map[string]*Account
}

var (
	_ Ledger          = (*MemoryLedger)(nil)
	_ ProfileProvider = (*MemoryLedger)(nil)
)

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{accounts: make(map[string]*Account)}
}

// Seed registers or replaces a customer account.
func (l *MemoryLedger) Seed(customerID string, account Account) {
	l.mu.Lock()
	defer l.mu.Unlock()

	copied := account
	l.accounts[customerID] = &copied
}

// Snapshot returns a copy of the customer's current account state.
func (l *MemoryLedger) Snapshot(customerID string) (Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, ok := l.accounts[customerID]
	if !ok {
		return Account{}, false
	}

	return *account, true
}

func (l *MemoryLedger) account(customerID string) (*Account, error) {
	account, ok := l.accounts[customerID]
	if !ok {
		return nil, fmt.Errorf("funding: unknown customer %q", customerID)
	}

	return account, nil
}

// GetFundingProfile implements ProfileProvider.
func (l *MemoryLedger) GetFundingProfile(_ context.Context, customerID string) (CustomerFundingProfile, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.account(customerID)
	if err != nil {
		return CustomerFundingProfile{}, err
	}

	return CustomerFundingProfile{
		CustomerID:    customerID,
		WalletBalance: account.WalletBalance,
		LoyaltyPoints: account.LoyaltyPoints,
		LoyaltyTier:   account.LoyaltyTier,
		CreditLimit:   account.CreditLimit,
		CreditUsed:    account.CreditUsed,
		FetchedAt:     time.Now().UTC(),
	}, nil
}

// DebitWallet implements Ledger.
func (l *MemoryLedger) DebitWallet(_ context.Context, customerID string, amount decimal.Decimal) (WalletMovement, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.account(customerID)
	if err != nil {
		return WalletMovement{}, err
	}

	if amount.GreaterThan(account.WalletBalance) {
		return WalletMovement{}, settlement.NewDomainError(
			settlement.ErrorInsufficientFunds,
			"wallet",
			fmt.Sprintf("wallet balance %s cannot cover %s", account.WalletBalance, amount),
		)
	}

	before := account.WalletBalance
	account.WalletBalance = account.WalletBalance.Sub(amount)

	return WalletMovement{Before: before, After: account.WalletBalance}, nil
}

// CreditWallet implements Ledger.
func (l *MemoryLedger) CreditWallet(_ context.Context, customerID string, amount decimal.Decimal, _ CreditReason) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.account(customerID)
	if err != nil {
		return err
	}

	account.WalletBalance = account.WalletBalance.Add(amount)

	return nil
}

// RedeemPoints implements Ledger.
func (l *MemoryLedger) RedeemPoints(_ context.Context, customerID string, points int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.account(customerID)
	if err != nil {
		return err
	}

	if points > account.LoyaltyPoints {
		return settlement.NewDomainError(
			settlement.ErrorInsufficientFunds,
			"loyaltyPoints",
			fmt.Sprintf("points balance %d cannot cover %d", account.LoyaltyPoints, points),
		)
	}

	account.LoyaltyPoints -= points

	return nil
}

// CreditPoints implements Ledger.
func (l *MemoryLedger) CreditPoints(_ context.Context, customerID string, points int64, _ CreditReason) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.account(customerID)
	if err != nil {
		return err
	}

	account.LoyaltyPoints += points

	return nil
}

// ReserveCredit implements Ledger.
func (l *MemoryLedger) ReserveCredit(_ context.Context, customerID string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.account(customerID)
	if err != nil {
		return err
	}

	available := account.CreditLimit.Sub(account.CreditUsed)
	if amount.GreaterThan(available) {
		return settlement.NewDomainError(
			settlement.ErrorInsufficientFunds,
			"credit",
			fmt.Sprintf("available credit %s cannot cover %s", available, amount),
		)
	}

	account.CreditUsed = account.CreditUsed.Add(amount)

	return nil
}

// ReleaseCredit implements Ledger. Releasing below zero usage clamps to zero
// rather than failing: a release always follows a reservation made by this
// engine, so a drift here indicates outside interference worth absorbing.
func (l *MemoryLedger) ReleaseCredit(_ context.Context, customerID string, amount decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	account, err := l.account(customerID)
	if err != nil {
		return err
	}

	account.CreditUsed = account.CreditUsed.Sub(amount)
	if account.CreditUsed.IsNegative() {
		account.CreditUsed = decimal.Zero
	}

	return nil
}
