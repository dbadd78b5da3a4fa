package allocation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetgrid/lib-settlement/settlement/funding"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}

	return d
}

func item(method Method, amount string) *SplitPaymentItem {
	return &SplitPaymentItem{
		Method: method,
		Amount: dec(amount),
		Status: StatusPending,
	}
}

func loyaltyItem(amount string, points int64) *SplitPaymentItem {
	it := item(MethodLoyaltyPoints, amount)
	it.LoyaltyPointsUsed = points

	return it
}

func alloc(total string, items ...*SplitPaymentItem) *PaymentAllocation {
	return &PaymentAllocation{
		AgreementID: "agr-1",
		TotalAmount: dec(total),
		Payments:    items,
	}
}

func profile(wallet string, points int64, creditLimit, creditUsed string) *funding.CustomerFundingProfile {
	return &funding.CustomerFundingProfile{
		CustomerID:    "cus-1",
		WalletBalance: dec(wallet),
		LoyaltyPoints: points,
		CreditLimit:   dec(creditLimit),
		CreditUsed:    dec(creditUsed),
	}
}

// hasMessage reports whether any collected message contains the substring.
func hasMessage(messages []string, substring string) bool {
	for _, msg := range messages {
		if strings.Contains(msg, substring) {
			return true
		}
	}

	return false
}

func assertError(t *testing.T, result ValidationResult, substring string) {
	t.Helper()

	assert.False(t, result.Valid)
	assert.True(t, hasMessage(result.Errors, substring),
		"expected an error containing %q, got %v", substring, result.Errors)
}

func assertWarning(t *testing.T, result ValidationResult, substring string) {
	t.Helper()

	assert.True(t, hasMessage(result.Warnings, substring),
		"expected a warning containing %q, got %v", substring, result.Warnings)
}

// ---------------------------------------------------------------------------
// Conservation
// ---------------------------------------------------------------------------

func TestValidate_Conservation(t *testing.T) {
	t.Parallel()

	v := NewValidator(Config{})

	t.Run("exact allocation is valid", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("1500",
			loyaltyItem("250", 25000),
			item(MethodCreditCard, "1250"),
		), nil)

		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("over-allocation is always an error", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("1000", item(MethodCreditCard, "1100")), nil)
		assertError(t, result, "over-allocated")
	})

	t.Run("under-allocation is an error", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("1000", item(MethodCreditCard, "900")), nil)
		assertError(t, result, "under-allocated")
	})

	t.Run("mismatch within tolerance is accepted", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("1000", item(MethodCreditCard, "999.99995")), nil)
		assert.True(t, result.Valid, "errors: %v", result.Errors)
	})

	t.Run("mismatch just past tolerance is rejected", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("1000", item(MethodCreditCard, "999.9995")), nil)
		assert.False(t, result.Valid)
	})

	t.Run("negative total is an error", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("-5", item(MethodCash, "-5")), nil)
		assertError(t, result, "total amount must not be negative")
	})
}

// ---------------------------------------------------------------------------
// Per-item rules
// ---------------------------------------------------------------------------

func TestValidate_ItemRules(t *testing.T) {
	t.Parallel()

	v := NewValidator(Config{})

	t.Run("zero amount is an error", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("100",
			item(MethodCash, "0"),
			item(MethodCreditCard, "100"),
		), nil)

		assertError(t, result, "amount must be greater than zero")
	})

	t.Run("negative amount is an error", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("50",
			item(MethodCash, "-50"),
			item(MethodCreditCard, "100"),
		), nil)

		assertError(t, result, "amount must be greater than zero")
	})

	t.Run("unknown method is an error", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("100", item(Method("crypto"), "100")), nil)
		assertError(t, result, "unknown payment method")
	})

	t.Run("invalid status is an error", func(t *testing.T) {
		t.Parallel()

		it := item(MethodCash, "100")
		it.Status = ItemStatus("settled")

		result := v.Validate(alloc("100", it), nil)
		assertError(t, result, "invalid status")
	})

	t.Run("unusually large amount is a warning not an error", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("200000", item(MethodBankTransfer, "200000")), nil)

		assert.True(t, result.Valid)
		assertWarning(t, result, "unusually large amount")
	})

	t.Run("all violations are collected, not short-circuited", func(t *testing.T) {
		t.Parallel()

		bad := item(Method("crypto"), "0")
		bad.Status = ItemStatus("nope")

		result := v.Validate(alloc("1000", bad), nil)
		require.False(t, result.Valid)
		assert.GreaterOrEqual(t, len(result.Errors), 4, "errors: %v", result.Errors)
	})
}

// ---------------------------------------------------------------------------
// Loyalty points conversion and floor
// ---------------------------------------------------------------------------

func TestValidate_LoyaltyPoints(t *testing.T) {
	t.Parallel()

	v := NewValidator(Config{})

	tests := []struct {
		name    string
		amount  string
		points  int64
		wantErr string
	}{
		{name: "rate 100 points per unit accepted", amount: "250", points: 25000},
		{name: "conversion mismatch rejected", amount: "250", points: 20000, wantErr: "points conversion mismatch"},
		{name: "below minimum floor rejected", amount: "5", points: 500, wantErr: "below the minimum redemption"},
		{name: "floor boundary accepted", amount: "10", points: 1000},
		{name: "missing points rejected", amount: "250", points: 0, wantErr: "loyaltyPointsUsed is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := v.Validate(alloc(tt.amount, loyaltyItem(tt.amount, tt.points)), nil)

			if tt.wantErr == "" {
				assert.True(t, result.Valid, "errors: %v", result.Errors)
				return
			}

			assertError(t, result, tt.wantErr)
		})
	}

	t.Run("mismatch is an error even when floor is met", func(t *testing.T) {
		t.Parallel()

		// 250 * 100 = 25000, not 24000: a client-side computation bug that
		// must not be silently absorbed.
		result := v.Validate(alloc("250", loyaltyItem("250", 24000)), nil)
		assertError(t, result, "points conversion mismatch")
	})
}

// ---------------------------------------------------------------------------
// Profile sufficiency
// ---------------------------------------------------------------------------

func TestValidate_ProfileSufficiency(t *testing.T) {
	t.Parallel()

	v := NewValidator(Config{})

	t.Run("wallet amount beyond balance rejected", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(
			alloc("3000", item(MethodCustomerWallet, "3000")),
			profile("2000", 0, "0", "0"),
		)

		assertError(t, result, "insufficient wallet balance")
	})

	t.Run("points beyond balance rejected", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(
			alloc("600", loyaltyItem("600", 60000)),
			profile("0", 50000, "0", "0"),
		)

		assertError(t, result, "insufficient loyalty points")
	})

	t.Run("credit beyond available rejected", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(
			alloc("900", item(MethodCredit, "900")),
			profile("0", 0, "1000", "500"),
		)

		assertError(t, result, "insufficient credit")
	})

	t.Run("credit past 80 percent of limit warns", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(
			alloc("850", item(MethodCredit, "850")),
			profile("0", 0, "1000", "0"),
		)

		assert.True(t, result.Valid)
		assertWarning(t, result, "credit usage")
	})

	t.Run("sufficiency sums across items of the same method", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(
			alloc("3000",
				item(MethodCustomerWallet, "1500"),
				item(MethodCustomerWallet, "1500"),
			),
			profile("2000", 0, "0", "0"),
		)

		assertError(t, result, "insufficient wallet balance")
	})

	t.Run("no profile means no sufficiency checks", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("3000", item(MethodCustomerWallet, "3000")), nil)
		assert.True(t, result.Valid)
	})
}

// ---------------------------------------------------------------------------
// Heuristic warnings
// ---------------------------------------------------------------------------

func TestValidate_Heuristics(t *testing.T) {
	t.Parallel()

	v := NewValidator(Config{})

	t.Run("all deferred instruments warn", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("100", item(MethodPaymentLink, "100")), nil)

		assert.True(t, result.Valid)
		assertWarning(t, result, "no immediate settlement")
	})

	t.Run("total below minimal charge warns", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("0.50", item(MethodCash, "0.50")), nil)
		assertWarning(t, result, "below the minimal charge")
	})

	t.Run("more than five instruments warns", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("600",
			item(MethodCash, "100"),
			item(MethodBankTransfer, "100"),
			item(MethodCreditCard, "100"),
			item(MethodDebitCard, "100"),
			item(MethodPaymentLink, "100"),
			item(MethodCustomerWallet, "100"),
		), nil)

		assertWarning(t, result, "exceeds the usual maximum")
	})

	t.Run("full wallet drain warns", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(
			alloc("2000", item(MethodCustomerWallet, "2000")),
			profile("2000", 0, "0", "0"),
		)

		assert.True(t, result.Valid)
		assertWarning(t, result, "entire wallet balance")
	})

	t.Run("over 90 percent of points warns", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(
			alloc("95", loyaltyItem("95", 9500)),
			profile("0", 10000, "0", "0"),
		)

		assert.True(t, result.Valid)
		assertWarning(t, result, "90% of the loyalty points")
	})
}

// ---------------------------------------------------------------------------
// Scenarios and purity
// ---------------------------------------------------------------------------

func TestValidate_Scenarios(t *testing.T) {
	t.Parallel()

	v := NewValidator(Config{})

	t.Run("scenario A: points plus card against healthy profile", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(
			alloc("1500", loyaltyItem("250", 25000), item(MethodCreditCard, "1250")),
			profile("2000", 50000, "0", "0"),
		)

		assert.True(t, result.Valid, "errors: %v", result.Errors)
		assert.Empty(t, result.Errors)
	})

	t.Run("scenario B: wallet item beyond balance", func(t *testing.T) {
		t.Parallel()

		// Over-allocation is also flagged: 3000 allocated against 1000 due.
		result := v.Validate(
			alloc("1000", item(MethodCustomerWallet, "3000")),
			profile("2000", 0, "0", "0"),
		)

		assertError(t, result, "insufficient wallet balance")
	})

	t.Run("scenario C: card item over-allocates the total", func(t *testing.T) {
		t.Parallel()

		result := v.Validate(alloc("1000", item(MethodCreditCard, "1100")), nil)
		assertError(t, result, "over-allocated")
	})
}

func TestValidate_IsPure(t *testing.T) {
	t.Parallel()

	v := NewValidator(Config{})
	a := alloc("1500", loyaltyItem("250", 25000), item(MethodCreditCard, "1250"))
	p := profile("2000", 50000, "1000", "0")

	first := v.Validate(a, p)
	second := v.Validate(a, p)

	assert.Equal(t, first, second)

	// The allocation itself is untouched.
	require.Len(t, a.Payments, 2)
	assert.Equal(t, StatusPending, a.Payments[0].Status)
	assert.Empty(t, a.Payments[0].TransactionRef)
	assert.True(t, a.TotalAmount.Equal(dec("1500")))
}

func TestValidate_NilAllocation(t *testing.T) {
	t.Parallel()

	result := NewValidator(Config{}).Validate(nil, nil)

	assert.False(t, result.Valid)
	assertError(t, result, "allocation is required")
}
