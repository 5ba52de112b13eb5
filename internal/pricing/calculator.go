// Package pricing computes sale totals from cart lines. It is pure: no I/O,
// no clock, no database.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Custom discount kinds.
const (
	CustomFixed      = "fixed"
	CustomPercentage = "percentage"
)

var ErrUnknownCustomDiscountType = errors.New("unknown custom discount type")

// Line is one priced cart line. Voucher purchase lines are priced the same way.
type Line struct {
	Quantity        int
	SellingPrice    decimal.Decimal
	CostPrice       decimal.Decimal
	ApplyDiscount   bool
	Discount        decimal.Decimal
	DiscountedPrice decimal.Decimal
}

// CustomDiscount is the cashier-entered discount. A zero Value means none.
type CustomDiscount struct {
	Value decimal.Decimal
	Type  string
}

type Input struct {
	Lines          []Line
	CouponDiscount decimal.Decimal
	Custom         CustomDiscount
}

// Options tunes the calculation.
type Options struct {
	// IncludeCustomDiscount folds the custom discount amount into TotalDiscount.
	IncludeCustomDiscount bool
}

type Totals struct {
	TotalAmount          decimal.Decimal
	TotalCost            decimal.Decimal
	TotalDiscount        decimal.Decimal
	CustomDiscountAmount decimal.Decimal
}

// Calculate prices the given input. Voucher redemption is a payment, not a
// price reduction, so it never enters here.
func Calculate(in Input, opts Options) (Totals, error) {
	var t Totals
	lineDiscount := decimal.Zero

	for _, l := range in.Lines {
		q := decimal.NewFromInt(int64(l.Quantity))
		t.TotalAmount = t.TotalAmount.Add(l.SellingPrice.Mul(q))
		t.TotalCost = t.TotalCost.Add(l.CostPrice.Mul(q))

		if l.ApplyDiscount && l.Discount.IsPositive() {
			lineDiscount = lineDiscount.Add(l.SellingPrice.Sub(l.DiscountedPrice).Mul(q))
		}
	}

	custom, err := customAmount(in.Custom, t.TotalAmount)
	if err != nil {
		return Totals{}, err
	}
	t.CustomDiscountAmount = custom

	t.TotalDiscount = lineDiscount.Add(in.CouponDiscount)
	if opts.IncludeCustomDiscount {
		t.TotalDiscount = t.TotalDiscount.Add(custom)
	}
	return t, nil
}

func customAmount(c CustomDiscount, totalAmount decimal.Decimal) (decimal.Decimal, error) {
	if c.Value.IsZero() {
		return decimal.Zero, nil
	}
	switch c.Type {
	case CustomFixed, "":
		return c.Value, nil
	case CustomPercentage:
		return totalAmount.Mul(c.Value).Div(hundred).Round(2), nil
	default:
		return decimal.Zero, ErrUnknownCustomDiscountType
	}
}
