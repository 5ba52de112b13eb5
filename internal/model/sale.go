package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DefaultOrderCodePrefix is the fixed prefix of every order code (HB/YY/NNN).
const DefaultOrderCodePrefix = "HB"

// Custom discount types accepted on a sale.
const (
	CustomDiscountFixed      = "fixed"
	CustomDiscountPercentage = "percentage"
)

// Sale is one completed POS transaction.
// OrderCode is nil between the insert and the order-code write that follows it
// inside the same transaction; once set it never changes.
type Sale struct {
	ID                   int64            `gorm:"primaryKey;autoIncrement"`
	CustomerID           *int64           `gorm:"index"`
	EmployeeID           int64            `gorm:"not null"`
	UserID               int64            `gorm:"not null"`
	OrderCode            *string          `gorm:"type:varchar(32);uniqueIndex"`
	TotalAmount          decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	TotalCost            decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Discount             decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`
	PaymentMethod        string           `gorm:"type:varchar(30);not null"`
	Cash                 *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CustomDiscount       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	CustomDiscountType   string           `gorm:"type:varchar(20);not null;default:'fixed'"`
	SaleDate             time.Time        `gorm:"type:date;not null"`
	HasVouchers          bool             `gorm:"not null;default:false"`
	PaidWithVoucher      bool             `gorm:"not null;default:false"`
	RedeemedVoucherID    *int64           `gorm:"index"`
	VoucherPaymentAmount decimal.Decimal  `gorm:"type:decimal(12,2);not null;default:0"`

	// VoucherCategories snapshots the voucher tiers sold in this sale.
	VoucherCategories datatypes.JSONSlice[VoucherCategorySummary]
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Items    []SaleItem `gorm:"foreignKey:SaleID"`
	Customer *Customer  `gorm:"foreignKey:CustomerID"`
}

// VoucherCategorySummary is one entry of Sale.VoucherCategories.
type VoucherCategorySummary struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int             `json:"quantity"`
}

// SaleItem is one cart line of a sale. A nil ProductID marks a voucher purchase.
type SaleItem struct {
	ID         int64           `gorm:"primaryKey;autoIncrement"`
	SaleID     int64           `gorm:"not null;index"`
	ProductID  *int64          `gorm:"index"`
	Quantity   int             `gorm:"not null"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt  time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

// FormatOrderCode builds the human readable order code from the sale identity:
// prefix + "/" + 2-digit year + "/" + id padded to 3 digits.
func FormatOrderCode(prefix string, id int64, at time.Time) string {
	return fmt.Sprintf("%s/%02d/%03d", prefix, at.Year()%100, id)
}
