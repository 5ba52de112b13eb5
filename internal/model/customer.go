package model

import (
	"time"
)

// Customer is looked up (or created) by contact details when a sale carries
// customer data. Email and Phone are unique when present.
type Customer struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	Name          string    `gorm:"not null;default:''"`
	Email         *string   `gorm:"uniqueIndex"`
	Phone         *string   `gorm:"uniqueIndex"`
	Address       string    `gorm:"not null;default:''"`
	MemberSince   time.Time `gorm:"type:date"`
	LoyaltyPoints int       `gorm:"not null;default:0"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AllModels lists every persisted model, in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&Color{},
		&Product{},
		&StockTransaction{},
		&Customer{},
		&VoucherCategory{},
		&Voucher{},
		&Sale{},
		&SaleItem{},
	}
}
