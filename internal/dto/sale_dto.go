package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

// SaleLineRequest is one cart line as sent by the POS. Voucher purchase lines
// set is_voucher and voucher_category_id; product lines set id.
type SaleLineRequest struct {
	ID                *int64           `json:"id"                  validate:"omitempty,min=1"`
	Quantity          int              `json:"quantity"            validate:"required,min=1"`
	SellingPrice      decimal.Decimal  `json:"selling_price"       validate:"min=0"`
	CostPrice         decimal.Decimal  `json:"cost_price"          validate:"min=0"`
	Discount          *decimal.Decimal `json:"discount"`
	ApplyDiscount     Flag             `json:"apply_discount"`
	DiscountedPrice   *decimal.Decimal `json:"discounted_price"`
	IsVoucher         Flag             `json:"is_voucher"`
	VoucherCategoryID *int64           `json:"voucher_category_id" validate:"omitempty,min=1"`
}

type CustomerRequest struct {
	Name          string `json:"name"          validate:"max=120"`
	Email         string `json:"email"         validate:"omitempty,email,max=160"`
	ContactNumber string `json:"contactNumber" validate:"max=30"`
	CountryCode   string `json:"countryCode"   validate:"max=8"`
	Address       string `json:"address"       validate:"max=255"`
}

// CouponRequest carries a coupon already resolved by the client.
type CouponRequest struct {
	Discount decimal.Decimal `json:"discount" validate:"min=0"`
}

type SubmitSaleRequest struct {
	Products      []SaleLineRequest `json:"products"      validate:"required,min=1,dive"`
	Customer      *CustomerRequest  `json:"customer"`
	EmployeeID    int64             `json:"employee_id"   validate:"required,min=1"`
	UserID        int64             `json:"userId"        validate:"required,min=1"`
	PaymentMethod string            `json:"paymentMethod" validate:"required,max=30"`
	Cash          *decimal.Decimal  `json:"cash"`
	// OrderID is accepted for compatibility; the order code is always derived server side.
	OrderID            *string          `json:"orderid"`
	CustomDiscount     *decimal.Decimal `json:"custom_discount"      validate:"omitempty,min=0"`
	CustomDiscountType string           `json:"custom_discount_type" validate:"omitempty,oneof=fixed percentage"`
	AppliedCoupon      *CouponRequest   `json:"appliedCoupon"`
	VoucherID          *int64           `json:"voucher_id"           validate:"omitempty,min=1"`
	// VoucherAmount is informational; the redeemed amount comes from the voucher category.
	VoucherAmount *decimal.Decimal `json:"voucher_amount"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type SaleItemResponse struct {
	ID         int64           `json:"id"`
	ProductID  *int64          `json:"product_id"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type VoucherCategorySummaryResponse struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int             `json:"quantity"`
}

type SaleResponse struct {
	ID                   int64                            `json:"id"`
	OrderCode            string                           `json:"order_code"`
	CustomerID           *int64                           `json:"customer_id"`
	EmployeeID           int64                            `json:"employee_id"`
	UserID               int64                            `json:"user_id"`
	TotalAmount          decimal.Decimal                  `json:"total_amount"`
	TotalCost            decimal.Decimal                  `json:"total_cost"`
	Discount             decimal.Decimal                  `json:"discount"`
	PaymentMethod        string                           `json:"payment_method"`
	Cash                 *decimal.Decimal                 `json:"cash"`
	CustomDiscount       *decimal.Decimal                 `json:"custom_discount"`
	CustomDiscountType   string                           `json:"custom_discount_type"`
	SaleDate             string                           `json:"sale_date"`
	HasVouchers          bool                             `json:"has_vouchers"`
	PaidWithVoucher      bool                             `json:"paid_with_voucher"`
	RedeemedVoucherID    *int64                           `json:"redeemed_voucher_id"`
	VoucherPaymentAmount decimal.Decimal                  `json:"voucher_payment_amount"`
	VoucherCategories    []VoucherCategorySummaryResponse `json:"voucher_categories"`
	Items                []SaleItemResponse               `json:"items"`
	CreatedAt            string                           `json:"created_at"`
}

type SubmitSaleResponse struct {
	Message string       `json:"message"`
	Sale    SaleResponse `json:"sale"`
}
