package repository

import (
	"context"

	"hbpos/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleRepository interface {
	CreateTx(tx *gorm.DB, s *model.Sale) error

	// AssignOrderCodeTx writes the order code once; a sale that already has
	// one is left untouched and false is returned.
	AssignOrderCodeTx(tx *gorm.DB, id int64, code string) (bool, error)

	CreateItemTx(tx *gorm.DB, item *model.SaleItem) error
	SaveVoucherCategoriesTx(tx *gorm.DB, id int64, summary []model.VoucherCategorySummary) error
	FindByID(ctx context.Context, id int64) (*model.Sale, error)
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type saleRepo struct{ db *gorm.DB }

func NewSaleRepository(db *gorm.DB) SaleRepository { return &saleRepo{db: db} }

func (r *saleRepo) DB() *gorm.DB { return r.db }

func (r *saleRepo) CreateTx(tx *gorm.DB, s *model.Sale) error {
	// Omit associations: items are written one by one by the engine.
	return tx.Omit(clause.Associations).Create(s).Error
}

func (r *saleRepo) AssignOrderCodeTx(tx *gorm.DB, id int64, code string) (bool, error) {
	res := tx.Model(&model.Sale{}).
		Where("id = ? AND order_code IS NULL", id).
		UpdateColumn("order_code", code)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *saleRepo) CreateItemTx(tx *gorm.DB, item *model.SaleItem) error {
	return tx.Omit("Product").Create(item).Error
}

func (r *saleRepo) SaveVoucherCategoriesTx(tx *gorm.DB, id int64, summary []model.VoucherCategorySummary) error {
	return tx.Model(&model.Sale{}).
		Where("id = ?", id).
		UpdateColumn("voucher_categories", datatypes.NewJSONSlice(summary)).Error
}

func (r *saleRepo) FindByID(ctx context.Context, id int64) (*model.Sale, error) {
	var s model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Customer").
		First(&s, id).Error
	return &s, err
}
