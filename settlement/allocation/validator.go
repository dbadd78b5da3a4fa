package allocation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/fleetgrid/lib-settlement/settlement/funding"
)

// Default validator thresholds.
var (
	// DefaultTolerance is 1/100 of the minor currency unit.
	DefaultTolerance = decimal.RequireFromString("0.0001")
	// DefaultPointsPerUnit is the loyalty points-per-currency-unit conversion rate.
	DefaultPointsPerUnit = decimal.NewFromInt(100)
	// DefaultLargeAmountCeiling is the per-item amount above which a warning is raised.
	DefaultLargeAmountCeiling = decimal.NewFromInt(100000)
	// DefaultMinimalCharge is the total below which a warning is raised.
	DefaultMinimalCharge = decimal.NewFromInt(1)
)

const (
	// DefaultMinPointsRedemption is the minimum loyalty points redemption floor.
	DefaultMinPointsRedemption int64 = 1000
	// DefaultMaxInstruments is the instrument count above which a warning is raised.
	DefaultMaxInstruments = 5
)

// creditUsageWarnRatio and pointsDrainWarnRatio bound the "consuming the
// entirety of a finite resource" heuristics.
var (
	creditUsageWarnRatio = decimal.RequireFromString("0.8")
	pointsDrainWarnRatio = decimal.RequireFromString("0.9")
)

// Config holds the allocation validator thresholds. The zero value is
// normalized to the package defaults.
type Config struct {
	// Tolerance is the absolute amount tolerance applied to the
	// allocated-vs-total comparison and the points conversion check.
	Tolerance decimal.Decimal
	// PointsPerUnit is the loyalty points per currency unit conversion rate.
	PointsPerUnit decimal.Decimal
	// MinPointsRedemption is the minimum loyalty points redemption floor.
	MinPointsRedemption int64
	// LargeAmountCeiling triggers a per-item warning when exceeded.
	LargeAmountCeiling decimal.Decimal
	// MinimalCharge triggers a warning when the total due falls below it.
	MinimalCharge decimal.Decimal
	// MaxInstruments triggers a warning when an allocation carries more items.
	MaxInstruments int
}

func (c Config) withDefaults() Config {
	if c.Tolerance.IsZero() {
		c.Tolerance = DefaultTolerance
	}

	if c.PointsPerUnit.IsZero() {
		c.PointsPerUnit = DefaultPointsPerUnit
	}

	if c.MinPointsRedemption == 0 {
		c.MinPointsRedemption = DefaultMinPointsRedemption
	}

	if c.LargeAmountCeiling.IsZero() {
		c.LargeAmountCeiling = DefaultLargeAmountCeiling
	}

	if c.MinimalCharge.IsZero() {
		c.MinimalCharge = DefaultMinimalCharge
	}

	if c.MaxInstruments == 0 {
		c.MaxInstruments = DefaultMaxInstruments
	}

	return c
}

// Validator checks proposed allocations for internal consistency,
// per-instrument business rules, and sufficiency against a funding profile
// snapshot. It is pure: no I/O, no mutation of the allocation.
type Validator struct {
	cfg Config
}

// NewValidator creates a validator with the given thresholds. Zero-valued
// fields fall back to the package defaults.
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg.withDefaults()}
}

// Config returns the normalized thresholds the validator applies.
func (v *Validator) Config() Config {
	return v.cfg
}

// Validate checks the allocation and, when profile is non-nil, its
// sufficiency against the snapshot. All checks run independently; every
// violation is collected rather than short-circuited. Errors block execution,
// warnings never do.
func (v *Validator) Validate(alloc *PaymentAllocation, profile *funding.CustomerFundingProfile) ValidationResult {
	result := ValidationResult{Valid: true}

	if alloc == nil {
		result.addError("allocation is required")
		return result
	}

	v.checkConsistency(alloc, &result)
	v.checkItems(alloc, &result)

	if profile != nil {
		v.checkSufficiency(alloc, profile, &result)
	}

	v.checkHeuristics(alloc, profile, &result)

	return result
}

// checkConsistency enforces the conservation invariant: allocated == total
// within tolerance. Over-allocation is always an error, never truncated.
func (v *Validator) checkConsistency(alloc *PaymentAllocation, result *ValidationResult) {
	if alloc.TotalAmount.IsNegative() {
		result.addError(fmt.Sprintf("total amount must not be negative: %s", alloc.TotalAmount))
	}

	allocated := alloc.AllocatedAmount()
	remaining := alloc.TotalAmount.Sub(allocated)

	switch {
	case remaining.Neg().GreaterThan(v.cfg.Tolerance):
		result.addError(fmt.Sprintf(
			"over-allocated: allocated %s exceeds total %s", allocated, alloc.TotalAmount))
	case remaining.GreaterThan(v.cfg.Tolerance):
		result.addError(fmt.Sprintf(
			"under-allocated: allocated %s of total %s leaves %s unallocated",
			allocated, alloc.TotalAmount, remaining))
	}
}

func (v *Validator) checkItems(alloc *PaymentAllocation, result *ValidationResult) {
	for idx, item := range alloc.Payments {
		field := fmt.Sprintf("payments[%d]", idx)

		if !item.Method.Valid() {
			result.addError(fmt.Sprintf("%s: unknown payment method %q", field, item.Method))
		}

		if !item.Amount.IsPositive() {
			result.addError(fmt.Sprintf("%s: amount must be greater than zero, got %s", field, item.Amount))
		}

		if item.Amount.GreaterThan(v.cfg.LargeAmountCeiling) {
			result.addWarning(fmt.Sprintf(
				"%s: unusually large amount %s exceeds %s", field, item.Amount, v.cfg.LargeAmountCeiling))
		}

		if !item.Status.Valid() {
			result.addError(fmt.Sprintf("%s: invalid status %q", field, item.Status))
		}

		if item.Method == MethodLoyaltyPoints {
			v.checkLoyaltyItem(field, item, result)
		}
	}
}

// checkLoyaltyItem enforces the points floor and the fixed conversion rate.
// A conversion mismatch indicates a client-side computation bug and is
// rejected rather than silently recomputed.
func (v *Validator) checkLoyaltyItem(field string, item *SplitPaymentItem, result *ValidationResult) {
	if item.LoyaltyPointsUsed <= 0 {
		result.addError(fmt.Sprintf("%s: loyaltyPointsUsed is required for loyalty_points", field))
		return
	}

	if item.LoyaltyPointsUsed < v.cfg.MinPointsRedemption {
		result.addError(fmt.Sprintf(
			"%s: %d points is below the minimum redemption of %d points",
			field, item.LoyaltyPointsUsed, v.cfg.MinPointsRedemption))
	}

	expected := item.Amount.Mul(v.cfg.PointsPerUnit)
	used := decimal.NewFromInt(item.LoyaltyPointsUsed)
	conversionTolerance := v.cfg.Tolerance.Mul(v.cfg.PointsPerUnit)

	if used.Sub(expected).Abs().GreaterThan(conversionTolerance) {
		result.addError(fmt.Sprintf(
			"%s: points conversion mismatch: %d points for amount %s, expected %s at %s points per unit",
			field, item.LoyaltyPointsUsed, item.Amount, expected, v.cfg.PointsPerUnit))
	}
}

// checkSufficiency compares per-method totals against the profile snapshot.
// The snapshot may be stale; executors re-check at mutation time.
func (v *Validator) checkSufficiency(alloc *PaymentAllocation, profile *funding.CustomerFundingProfile, result *ValidationResult) {
	walletTotal := decimal.Zero
	creditTotal := decimal.Zero

	var pointsTotal int64

	for _, item := range alloc.Payments {
		switch item.Method {
		case MethodCustomerWallet:
			walletTotal = walletTotal.Add(item.Amount)
		case MethodCredit:
			creditTotal = creditTotal.Add(item.Amount)
		case MethodLoyaltyPoints:
			pointsTotal += item.LoyaltyPointsUsed
		}
	}

	if walletTotal.GreaterThan(profile.WalletBalance) {
		result.addError(fmt.Sprintf(
			"insufficient wallet balance: requested %s, available %s", walletTotal, profile.WalletBalance))
	}

	if pointsTotal > profile.LoyaltyPoints {
		result.addError(fmt.Sprintf(
			"insufficient loyalty points: requested %d, available %d", pointsTotal, profile.LoyaltyPoints))
	}

	creditAvailable := profile.CreditAvailable()
	if creditTotal.GreaterThan(creditAvailable) {
		result.addError(fmt.Sprintf(
			"insufficient credit: requested %s, available %s", creditTotal, creditAvailable))
	}

	if creditTotal.IsPositive() && profile.CreditLimit.IsPositive() {
		projected := profile.CreditUsed.Add(creditTotal)
		if projected.GreaterThan(profile.CreditLimit.Mul(creditUsageWarnRatio)) {
			result.addWarning(fmt.Sprintf(
				"credit usage would reach %s of limit %s", projected, profile.CreditLimit))
		}
	}
}

// checkHeuristics raises informational warnings for allocations that are
// legal but unusual enough to surface to the operator.
func (v *Validator) checkHeuristics(alloc *PaymentAllocation, profile *funding.CustomerFundingProfile, result *ValidationResult) {
	if len(alloc.Payments) == 0 {
		return
	}

	allDeferred := true

	for _, item := range alloc.Payments {
		if !item.Method.Deferred() {
			allDeferred = false
			break
		}
	}

	if allDeferred {
		result.addWarning("all instruments are deferred: no immediate settlement will occur")
	}

	if alloc.TotalAmount.IsPositive() && alloc.TotalAmount.LessThan(v.cfg.MinimalCharge) {
		result.addWarning(fmt.Sprintf(
			"total %s is below the minimal charge of %s", alloc.TotalAmount, v.cfg.MinimalCharge))
	}

	if len(alloc.Payments) > v.cfg.MaxInstruments {
		result.addWarning(fmt.Sprintf(
			"%d instruments in one allocation exceeds the usual maximum of %d",
			len(alloc.Payments), v.cfg.MaxInstruments))
	}

	if profile == nil {
		return
	}

	for idx, item := range alloc.Payments {
		field := fmt.Sprintf("payments[%d]", idx)

		if item.Method == MethodCustomerWallet && profile.WalletBalance.IsPositive() &&
			item.Amount.Equal(profile.WalletBalance) {
			result.addWarning(fmt.Sprintf("%s: consumes the entire wallet balance", field))
		}

		if item.Method == MethodLoyaltyPoints && profile.LoyaltyPoints > 0 {
			used := decimal.NewFromInt(item.LoyaltyPointsUsed)
			balance := decimal.NewFromInt(profile.LoyaltyPoints)

			if used.GreaterThan(balance.Mul(pointsDrainWarnRatio)) {
				result.addWarning(fmt.Sprintf("%s: consumes over 90%% of the loyalty points balance", field))
			}
		}
	}
}
