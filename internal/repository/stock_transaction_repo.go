package repository

import (
	"context"

	"hbpos/internal/model"

	"gorm.io/gorm"
)

type StockTransactionRepository interface {
	CreateTx(tx *gorm.DB, t *model.StockTransaction) error
	ListByProduct(ctx context.Context, productID int64) ([]model.StockTransaction, error)
}

type stockTransactionRepo struct{ db *gorm.DB }

func NewStockTransactionRepository(db *gorm.DB) StockTransactionRepository {
	return &stockTransactionRepo{db: db}
}

func (r *stockTransactionRepo) CreateTx(tx *gorm.DB, t *model.StockTransaction) error {
	return tx.Create(t).Error
}

func (r *stockTransactionRepo) ListByProduct(ctx context.Context, productID int64) ([]model.StockTransaction, error) {
	var list []model.StockTransaction
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Find(&list).Error
	return list, err
}
