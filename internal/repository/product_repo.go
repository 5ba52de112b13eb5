package repository

import (
	"context"

	"hbpos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository defines the data access contract for products.
// Services depend on this interface, not on the concrete GORM implementation.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id int64) (*model.Product, error)

	// FindByBarcodeOrCode returns every product whose barcode or code equals
	// the given value, color preloaded, ordered by id.
	FindByBarcodeOrCode(ctx context.Context, value string) ([]model.Product, error)

	// Used inside transactions: callers must pass the tx instance

	// LockByIDsTx locks the rows with SELECT ... FOR UPDATE in ascending id order.
	// Missing ids are simply absent from the result.
	LockByIDsTx(tx *gorm.DB, ids []int64) ([]model.Product, error)

	// DecrementStockTx subtracts qty only when enough stock remains and
	// reports whether the row was updated.
	DecrementStockTx(tx *gorm.DB, id int64, qty int) (bool, error)

	// DB exposes the underlying *gorm.DB so services can open transactions.
	DB() *gorm.DB
}

type productRepo struct{ db *gorm.DB }

func NewProductRepository(db *gorm.DB) ProductRepository { return &productRepo{db: db} }

func (r *productRepo) DB() *gorm.DB { return r.db }

func (r *productRepo) Create(ctx context.Context, p *model.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	var p model.Product
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *productRepo) FindByBarcodeOrCode(ctx context.Context, value string) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).Preload("Color").
		Where("barcode = ? OR code = ?", value, value).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) LockByIDsTx(tx *gorm.DB, ids []int64) ([]model.Product, error) {
	var products []model.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

func (r *productRepo) DecrementStockTx(tx *gorm.DB, id int64, qty int) (bool, error) {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND stock_quantity >= ?", id, qty).
		Update("stock_quantity", gorm.Expr("stock_quantity - ?", qty))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
