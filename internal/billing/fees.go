package billing

import (
	"github.com/shopspring/decimal"

	"carebook/internal/models"
)

// BookingFeePercentage is the platform commission taken on the payout.
var BookingFeePercentage = decimal.NewFromFloat(models.DefaultBookingFeePercent)

// ConfigureBookingFee overrides the platform commission, called once at
// startup with the validated config value. Out-of-range values are
// ignored and the compiled-in default stays.
func ConfigureBookingFee(pct float64) {
	if pct < 0 || pct >= 1 {
		return
	}
	BookingFeePercentage = decimal.NewFromFloat(pct)
}

var (
	cardFeeRate = decimal.NewFromFloat(0.029)
	cardFeeFlat = decimal.RequireFromString("0.30")
	bankFeeRate = decimal.NewFromFloat(0.008)
	bankFeeCap  = decimal.RequireFromString("5.00")
)

// ProcessingFee computes the payment-processor charge on the total amount
// moved (payout plus booking fee). Card: 2.9% + $0.30. Bank debit: 0.8%
// capped at $5.00. Unknown methods are charged as card.
func ProcessingFee(payout, bookingFee decimal.Decimal, paymentMethod string) decimal.Decimal {
	base := payout.Add(bookingFee)

	if paymentMethod == models.PaymentMethodBank {
		fee := base.Mul(bankFeeRate).Round(2)
		if fee.GreaterThan(bankFeeCap) {
			return bankFeeCap
		}
		return fee
	}

	return base.Mul(cardFeeRate).Add(cardFeeFlat).Round(2)
}
