package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultVoucherCodePrefix prefixes every generated voucher code (VC-XXXXX).
const DefaultVoucherCodePrefix = "VC-"

// VoucherCategory is a denomination tier. IsActive flips to true the first
// time one of its vouchers is sold and is never reset automatically.
type VoucherCategory struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	Name        string          `gorm:"not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Description *string
	IsActive    bool `gorm:"not null;default:false"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Voucher is one prepaid voucher instance.
//
// Lifecycle:
//   - created:  SaleID nil, IssuedAt nil, IsUsed false
//   - issued:   SaleID = issuing sale, IssuedAt stamped, IsUsed false
//   - redeemed: IsUsed true, UsedAt stamped, RedeemedSaleID = redeeming sale
//
// SaleID and RedeemedSaleID are different roles and are never conflated.
type Voucher struct {
	ID                int64  `gorm:"primaryKey;autoIncrement"`
	VoucherCategoryID int64  `gorm:"not null;index"`
	VoucherCode       string `gorm:"type:varchar(16);uniqueIndex;not null"`
	Quantity          int    `gorm:"not null;default:1"`
	SaleID            *int64 `gorm:"index"`
	IssuedAt          *time.Time
	IsUsed            bool `gorm:"not null;default:false;index"`
	UsedAt            *time.Time
	RedeemedSaleID    *int64 `gorm:"index"`
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Category *VoucherCategory `gorm:"foreignKey:VoucherCategoryID"`
}

// IsIssued reports whether the voucher was sold through a sale.
func (v *Voucher) IsIssued() bool { return v.SaleID != nil }
