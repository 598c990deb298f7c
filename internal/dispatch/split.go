package dispatch

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rapidusexpress/rapidus-backend/pkg/errors"
)

// Split is the financial breakdown snapshotted onto a delivery at assignment
// time. Payout is always derived as total minus profit so the two sides can
// never drift apart.
type Split struct {
	TotalCents          int
	CourierPayoutCents  int
	OperatorProfitCents int
	CommissionPercent   int
	FixedFeeCents       int
	OperatorFulfilled   bool
}

var oneHundred = decimal.NewFromInt(100)

// ComputeSplit resolves the operator's cut for a courier run: a percentage of
// the total, rounded half-up to whole cents, plus a fixed fee.
func ComputeSplit(totalCents, commissionPercent, fixedFeeCents int) (Split, error) {
	if totalCents < 0 {
		return Split{}, errors.New(errors.CodeValidation, "delivery total cannot be negative")
	}
	if commissionPercent < 0 || commissionPercent > 100 {
		return Split{}, errors.New(errors.CodeValidation, fmt.Sprintf("commission percent %d out of range", commissionPercent))
	}
	if fixedFeeCents < 0 {
		return Split{}, errors.New(errors.CodeValidation, "fixed fee cannot be negative")
	}

	commission := decimal.NewFromInt(int64(totalCents)).
		Mul(decimal.NewFromInt(int64(commissionPercent))).
		Div(oneHundred).
		Round(0)
	profit := int(commission.IntPart()) + fixedFeeCents
	if profit > totalCents {
		return Split{}, errors.New(errors.CodeConsistency, "operator cut exceeds delivery total")
	}

	split := Split{
		TotalCents:          totalCents,
		CourierPayoutCents:  totalCents - profit,
		OperatorProfitCents: profit,
		CommissionPercent:   commissionPercent,
		FixedFeeCents:       fixedFeeCents,
	}
	if split.CourierPayoutCents+split.OperatorProfitCents != split.TotalCents {
		return Split{}, errors.New(errors.CodeConsistency, "split does not cover delivery total")
	}
	return split, nil
}

// OperatorSplit covers the self-fulfillment case: the dispatcher runs the
// delivery personally, so there is no courier side and the operator keeps
// the full amount.
func OperatorSplit(totalCents int) (Split, error) {
	if totalCents < 0 {
		return Split{}, errors.New(errors.CodeValidation, "delivery total cannot be negative")
	}
	return Split{
		TotalCents:          totalCents,
		CourierPayoutCents:  0,
		OperatorProfitCents: totalCents,
		OperatorFulfilled:   true,
	}, nil
}
