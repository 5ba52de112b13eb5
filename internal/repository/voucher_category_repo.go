package repository

import (
	"context"

	"hbpos/internal/model"

	"gorm.io/gorm"
)

// VoucherCategoryRepository defines data access for voucher denomination tiers.
type VoucherCategoryRepository interface {
	Create(ctx context.Context, c *model.VoucherCategory) error
	FindByID(ctx context.Context, id int64) (*model.VoucherCategory, error)
	FindByName(ctx context.Context, name string) (*model.VoucherCategory, error)
	List(ctx context.Context) ([]model.VoucherCategory, error)

	FindByIDTx(tx *gorm.DB, id int64) (*model.VoucherCategory, error)

	// ActivateTx flips is_active to true; an active category is not touched.
	ActivateTx(tx *gorm.DB, id int64) (int64, error)
}

type voucherCategoryRepo struct{ db *gorm.DB }

func NewVoucherCategoryRepository(db *gorm.DB) VoucherCategoryRepository {
	return &voucherCategoryRepo{db: db}
}

func (r *voucherCategoryRepo) Create(ctx context.Context, c *model.VoucherCategory) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *voucherCategoryRepo) FindByID(ctx context.Context, id int64) (*model.VoucherCategory, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *voucherCategoryRepo) FindByIDTx(tx *gorm.DB, id int64) (*model.VoucherCategory, error) {
	var c model.VoucherCategory
	err := tx.First(&c, id).Error
	return &c, err
}

func (r *voucherCategoryRepo) FindByName(ctx context.Context, name string) (*model.VoucherCategory, error) {
	var c model.VoucherCategory
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&c).Error
	return &c, err
}

func (r *voucherCategoryRepo) List(ctx context.Context) ([]model.VoucherCategory, error) {
	var list []model.VoucherCategory
	err := r.db.WithContext(ctx).Order("amount ASC").Order("id ASC").Find(&list).Error
	return list, err
}

func (r *voucherCategoryRepo) ActivateTx(tx *gorm.DB, id int64) (int64, error) {
	res := tx.Model(&model.VoucherCategory{}).
		Where("id = ? AND is_active = ?", id, false).
		Update("is_active", true)
	return res.RowsAffected, res.Error
}
