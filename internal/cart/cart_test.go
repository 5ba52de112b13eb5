package cart

import (
	"encoding/json"
	"testing"

	"hbpos/internal/dto"
	"hbpos/internal/pricing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseLines(t *testing.T, raw string) []dto.SaleLineRequest {
	t.Helper()
	var reqs []dto.SaleLineRequest
	require.NoError(t, json.Unmarshal([]byte(raw), &reqs))
	return reqs
}

func TestNormalize_SplitsProductAndVoucherLines(t *testing.T) {
	reqs := parseLines(t, `[
		{"id": 4, "quantity": 2, "selling_price": "100", "cost_price": "60"},
		{"is_voucher": true, "voucher_category_id": 9, "quantity": 1, "selling_price": 1000, "cost_price": 1000},
		{"id": 5, "quantity": 1, "selling_price": 50, "cost_price": 20, "is_voucher": "0"}
	]`)

	lines, err := Normalize(reqs)
	require.NoError(t, err)
	require.Len(t, lines, 3)

	p, ok := lines[0].(ProductLine)
	require.True(t, ok)
	assert.Equal(t, int64(4), p.ProductID)
	assert.Equal(t, 2, p.Quantity)

	v, ok := lines[1].(VoucherLine)
	require.True(t, ok)
	assert.Equal(t, int64(9), v.CategoryID)

	_, ok = lines[2].(ProductLine)
	assert.True(t, ok)

	assert.True(t, HasVouchers(lines))
	assert.Equal(t, []int64{4, 5}, ProductIDs(lines))
}

func TestNormalize_DerivesDiscountedPrice(t *testing.T) {
	reqs := parseLines(t, `[{"id": 1, "quantity": 1, "selling_price": 80, "cost_price": 10, "apply_discount": 1, "discount": 15}]`)

	lines, err := Normalize(reqs)
	require.NoError(t, err)
	pl := lines[0].PricingLine()
	assert.True(t, pl.ApplyDiscount)
	assert.True(t, decimal.NewFromInt(65).Equal(pl.DiscountedPrice))
}

func TestNormalize_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		field string
	}{
		{"zero quantity", `[{"id": 1, "quantity": 0, "selling_price": 1, "cost_price": 1}]`, "quantity"},
		{"product without id", `[{"quantity": 1, "selling_price": 1, "cost_price": 1}]`, "id"},
		{"voucher without category", `[{"is_voucher": "true", "quantity": 1, "selling_price": 1, "cost_price": 1}]`, "voucher_category_id"},
		{"negative price", `[{"id": 1, "quantity": 1, "selling_price": -1, "cost_price": 1}]`, "selling_price"},
		{"discounted above selling", `[{"id": 1, "quantity": 1, "selling_price": 10, "cost_price": 1, "discounted_price": 11}]`, "discounted_price"},
		{"discounted below zero", `[{"id": 1, "quantity": 1, "selling_price": 10, "cost_price": 1, "apply_discount": true, "discount": 20}]`, "discounted_price"},
		{"sub-cent selling price", `[{"id": 1, "quantity": 1, "selling_price": "33.335", "cost_price": 1}]`, "selling_price"},
		{"sub-cent cost price", `[{"id": 1, "quantity": 1, "selling_price": 10, "cost_price": 1.001}]`, "cost_price"},
		{"sub-cent discount", `[{"id": 1, "quantity": 1, "selling_price": 10, "cost_price": 1, "apply_discount": true, "discount": 0.005}]`, "discount"},
		{"sub-cent discounted price", `[{"id": 1, "quantity": 1, "selling_price": 10, "cost_price": 1, "discounted_price": "9.999"}]`, "discounted_price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(parseLines(t, tc.raw))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			assert.Equal(t, 0, ve.Index)
		})
	}
}

func TestNormalize_AcceptsTrailingZeros(t *testing.T) {
	lines, err := Normalize(parseLines(t, `[{"id": 1, "quantity": 1, "selling_price": "33.330", "cost_price": "10.5000"}]`))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("33.33").Equal(lines[0].PricingLine().SellingPrice))
}

func TestAdjustments(t *testing.T) {
	d := decimal.RequireFromString

	assert.NoError(t, Adjustments(d("25.50"), pricing.CustomDiscount{Value: d("100"), Type: pricing.CustomPercentage}))
	assert.NoError(t, Adjustments(decimal.Zero, pricing.CustomDiscount{Value: d("150"), Type: pricing.CustomFixed}))

	cases := []struct {
		name   string
		coupon decimal.Decimal
		custom pricing.CustomDiscount
		field  string
	}{
		{"negative coupon", d("-1"), pricing.CustomDiscount{}, "appliedCoupon.discount"},
		{"sub-cent coupon", d("0.015"), pricing.CustomDiscount{}, "appliedCoupon.discount"},
		{"negative fixed", decimal.Zero, pricing.CustomDiscount{Value: d("-5"), Type: pricing.CustomFixed}, "custom_discount"},
		{"sub-cent fixed", decimal.Zero, pricing.CustomDiscount{Value: d("1.234"), Type: pricing.CustomFixed}, "custom_discount"},
		{"percentage above 100", decimal.Zero, pricing.CustomDiscount{Value: d("150"), Type: pricing.CustomPercentage}, "custom_discount"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Adjustments(tc.coupon, tc.custom)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Path())
		})
	}
}

func TestPricingLines_PreservesOrder(t *testing.T) {
	lines := []Line{
		ProductLine{ProductID: 1, Quantity: 3, Price: Price{SellingPrice: decimal.NewFromInt(5)}},
		VoucherLine{CategoryID: 2, Quantity: 1, Price: Price{SellingPrice: decimal.NewFromInt(1000)}},
	}
	out := PricingLines(lines)
	require.Len(t, out, 2)
	assert.Equal(t, 3, out[0].Quantity)
	assert.True(t, decimal.NewFromInt(1000).Equal(out[1].SellingPrice))
}
