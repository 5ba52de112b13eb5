package model

import (
	"time"
)

// StockTransactionSold is the movement type written by a sale.
const StockTransactionSold = "Sold"

// StockTransaction registers one inventory movement.
// Rows are append-only: never updated, never deleted.
type StockTransaction struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	ProductID       int64     `gorm:"not null;index"`
	TransactionType string    `gorm:"type:varchar(20);not null"`
	Quantity        int       `gorm:"not null"`
	TransactionDate time.Time `gorm:"not null"`
	SupplierID      *int64
	CreatedAt       time.Time
}
