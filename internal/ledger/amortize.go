package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Schedule is the exact split of a total amount over equal installments.
//
// The engine stores a single fixed InstallmentAmount and never reconciles
// rounding on the final payment; Residual makes the uncollected remainder
// visible to callers that want to surface or absorb it.
type Schedule struct {
	// PerInstallment is the fixed payment, the total divided by the count
	// and rounded to cents.
	PerInstallment decimal.Decimal

	// Residual is totalAmount - PerInstallment*count. Non-zero whenever the
	// division does not land on a whole cent.
	Residual decimal.Decimal

	// FinalPayment is PerInstallment + Residual, the last payment that
	// would settle the total exactly.
	FinalPayment decimal.Decimal
}

// Amortize splits totalAmount into installments equal payments, rounded to
// cents, and reports the rounding residual left on the final payment.
func Amortize(totalAmount float64, installments int) (Schedule, error) {
	if installments <= 0 {
		return Schedule{}, fmt.Errorf("Amortize: installments must be positive, got %d", installments)
	}

	total := decimal.NewFromFloat(totalAmount)
	count := decimal.NewFromInt(int64(installments))

	per := total.Div(count).Round(2)
	residual := total.Sub(per.Mul(count))

	return Schedule{
		PerInstallment: per,
		Residual:       residual,
		FinalPayment:   per.Add(residual),
	}, nil
}

// PerInstallmentFloat returns the fixed payment as a float64, the
// representation stored on InstallmentPurchase.InstallmentAmount.
func (s Schedule) PerInstallmentFloat() float64 {
	f, _ := s.PerInstallment.Float64()
	return f
}
