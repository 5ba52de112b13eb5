// Package cart turns the loosely shaped POS cart payload into typed lines.
// Everything past this package handles either a ProductLine or a VoucherLine,
// never the raw request.
package cart

import (
	"fmt"

	"hbpos/internal/dto"
	"hbpos/internal/pricing"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the scale of every stored money column.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Price holds the client-side pricing of a line.
type Price struct {
	SellingPrice    decimal.Decimal
	CostPrice       decimal.Decimal
	ApplyDiscount   bool
	Discount        decimal.Decimal
	DiscountedPrice decimal.Decimal
}

// Line is either a ProductLine or a VoucherLine.
type Line interface {
	PricingLine() pricing.Line
	isLine()
}

// ProductLine sells Quantity units of a catalog product.
type ProductLine struct {
	ProductID int64
	Quantity  int
	Price
}

// VoucherLine sells Quantity vouchers of one category.
type VoucherLine struct {
	CategoryID int64
	Quantity   int
	Price
}

func (l ProductLine) PricingLine() pricing.Line { return l.Price.line(l.Quantity) }
func (l VoucherLine) PricingLine() pricing.Line { return l.Price.line(l.Quantity) }

func (ProductLine) isLine() {}
func (VoucherLine) isLine() {}

func (p Price) line(q int) pricing.Line {
	return pricing.Line{
		Quantity:        q,
		SellingPrice:    p.SellingPrice,
		CostPrice:       p.CostPrice,
		ApplyDiscount:   p.ApplyDiscount,
		Discount:        p.Discount,
		DiscountedPrice: p.DiscountedPrice,
	}
}

// ValidationError points at the offending cart line. Index is -1 for
// sale-level fields such as custom_discount.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Path() + ": " + e.Reason
}

// Path locates the field in the request body, e.g. products[2].quantity.
func (e *ValidationError) Path() string {
	if e.Index < 0 {
		return e.Field
	}
	return fmt.Sprintf("products[%d].%s", e.Index, e.Field)
}

// Normalize validates every request line and converts it into a Line.
// The first invalid line aborts with a *ValidationError.
func Normalize(reqs []dto.SaleLineRequest) ([]Line, error) {
	lines := make([]Line, 0, len(reqs))
	for i, r := range reqs {
		if r.Quantity <= 0 {
			return nil, &ValidationError{Index: i, Field: "quantity", Reason: "must be greater than zero"}
		}
		price, err := normalizePrice(i, r)
		if err != nil {
			return nil, err
		}

		if r.IsVoucher.Bool() {
			if r.VoucherCategoryID == nil || *r.VoucherCategoryID <= 0 {
				return nil, &ValidationError{Index: i, Field: "voucher_category_id", Reason: "required for voucher lines"}
			}
			lines = append(lines, VoucherLine{CategoryID: *r.VoucherCategoryID, Quantity: r.Quantity, Price: price})
			continue
		}

		if r.ID == nil || *r.ID <= 0 {
			return nil, &ValidationError{Index: i, Field: "id", Reason: "required for product lines"}
		}
		lines = append(lines, ProductLine{ProductID: *r.ID, Quantity: r.Quantity, Price: price})
	}
	return lines, nil
}

func normalizePrice(i int, r dto.SaleLineRequest) (Price, error) {
	p := Price{
		SellingPrice:  r.SellingPrice,
		CostPrice:     r.CostPrice,
		ApplyDiscount: r.ApplyDiscount.Bool(),
	}
	if r.Discount != nil {
		p.Discount = *r.Discount
	}
	for _, m := range []struct {
		field string
		value decimal.Decimal
	}{
		{"selling_price", p.SellingPrice},
		{"cost_price", p.CostPrice},
		{"discount", p.Discount},
	} {
		if err := checkMoney(i, m.field, m.value); err != nil {
			return p, err
		}
	}

	switch {
	case r.DiscountedPrice != nil:
		p.DiscountedPrice = *r.DiscountedPrice
		if err := checkMoney(i, "discounted_price", p.DiscountedPrice); err != nil {
			return p, err
		}
	case p.ApplyDiscount && p.Discount.IsPositive():
		p.DiscountedPrice = p.SellingPrice.Sub(p.Discount)
	default:
		p.DiscountedPrice = p.SellingPrice
	}
	if p.DiscountedPrice.IsNegative() || p.DiscountedPrice.GreaterThan(p.SellingPrice) {
		return p, &ValidationError{Index: i, Field: "discounted_price", Reason: "must be between 0 and selling_price"}
	}
	return p, nil
}

// Adjustments validates the sale-level coupon and custom discount.
func Adjustments(coupon decimal.Decimal, custom pricing.CustomDiscount) error {
	if err := checkMoney(-1, "appliedCoupon.discount", coupon); err != nil {
		return err
	}
	if err := checkMoney(-1, "custom_discount", custom.Value); err != nil {
		return err
	}
	if custom.Type == pricing.CustomPercentage && custom.Value.GreaterThan(hundred) {
		return &ValidationError{Index: -1, Field: "custom_discount", Reason: "percentage must not exceed 100"}
	}
	return nil
}

// checkMoney rejects negative amounts and amounts finer than a cent, which
// the DECIMAL(12,2) columns would round one by one.
func checkMoney(i int, field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return &ValidationError{Index: i, Field: field, Reason: "must not be negative"}
	}
	if !d.Equal(d.Truncate(MoneyPlaces)) {
		return &ValidationError{Index: i, Field: field, Reason: "must have at most 2 decimal places"}
	}
	return nil
}

// PricingLines projects lines onto the calculator input, preserving order.
func PricingLines(lines []Line) []pricing.Line {
	out := make([]pricing.Line, len(lines))
	for i, l := range lines {
		out[i] = l.PricingLine()
	}
	return out
}

// ProductIDs returns the distinct product ids referenced by lines.
func ProductIDs(lines []Line) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, l := range lines {
		pl, ok := l.(ProductLine)
		if !ok {
			continue
		}
		if _, dup := seen[pl.ProductID]; dup {
			continue
		}
		seen[pl.ProductID] = struct{}{}
		ids = append(ids, pl.ProductID)
	}
	return ids
}

// HasVouchers reports whether any line sells vouchers.
func HasVouchers(lines []Line) bool {
	for _, l := range lines {
		if _, ok := l.(VoucherLine); ok {
			return true
		}
	}
	return false
}
