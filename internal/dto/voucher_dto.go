package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CreateVouchersRequest struct {
	VoucherCategoryID int64 `json:"voucher_category_id" validate:"required,min=1"`
	Quantity          int   `json:"quantity"            validate:"required,min=1,max=1000"`
}

type CreateVoucherCategoryRequest struct {
	Name        string          `json:"name"        validate:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"      validate:"min=0"`
	Description *string         `json:"description"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VoucherLookupItem struct {
	ID           int64           `json:"id"`
	Code         string          `json:"code"`
	Amount       decimal.Decimal `json:"amount"`
	CategoryName string          `json:"category_name"`
}

type VoucherLookupResponse struct {
	Voucher VoucherLookupItem `json:"voucher"`
}

type VoucherResponse struct {
	ID                int64   `json:"id"`
	Code              string  `json:"code"`
	VoucherCategoryID int64   `json:"voucher_category_id"`
	SaleID            *int64  `json:"sale_id"`
	IssuedAt          *string `json:"issued_at"`
	IsUsed            bool    `json:"is_used"`
	CreatedAt         string  `json:"created_at"`
}

type CreateVouchersResponse struct {
	Vouchers []VoucherResponse `json:"vouchers"`
}

type VoucherCategoryResponse struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Amount            decimal.Decimal `json:"amount"`
	Description       *string         `json:"description"`
	IsActive          bool            `json:"is_active"`
	TotalVouchers     int64           `json:"total_vouchers"`
	AvailableVouchers int64           `json:"available_vouchers"`
}
