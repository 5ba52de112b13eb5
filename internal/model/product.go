package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one sellable catalog entry. Color variants of the same article
// share Barcode/Code and differ by ColorID.
// StockQuantity is only ever decremented by the inventory ledger during a sale.
type Product struct {
	ID            int64           `gorm:"primaryKey;autoIncrement"`
	Name          string          `gorm:"not null"`
	Barcode       string          `gorm:"index"`
	Code          string          `gorm:"index"`
	ColorID       *int64          `gorm:"index"`
	SizeID        *int64
	CategoryID    *int64
	SupplierID    *int64
	CostPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	StockQuantity int             `gorm:"not null;default:0"`
	ExpireDate    *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Color *Color `gorm:"foreignKey:ColorID"`
}

// IsExpired reports whether the product expired strictly before now.
func (p *Product) IsExpired(now time.Time) bool {
	return p.ExpireDate != nil && now.After(*p.ExpireDate)
}

// Color is a catalog color used to tell barcode-sharing variants apart.
type Color struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
