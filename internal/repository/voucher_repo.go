package repository

import (
	"context"
	"errors"
	"time"

	"hbpos/internal/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VoucherCounts aggregates the vouchers of one category.
type VoucherCounts struct {
	CategoryID int64
	Total      int64
	Available  int64
}

type VoucherRepository interface {
	Create(ctx context.Context, v *model.Voucher) error
	FindByID(ctx context.Context, id int64) (*model.Voucher, error)
	FindByCode(ctx context.Context, code string) (*model.Voucher, error)
	DeleteUnissued(ctx context.Context, id int64) (int64, error)
	CountByCategory(ctx context.Context) (map[int64]VoucherCounts, error)

	// Used inside transactions: callers must pass the tx instance
	CreateTx(tx *gorm.DB, v *model.Voucher) error
	FindByIDTx(tx *gorm.DB, id int64) (*model.Voucher, error)
	CodeExistsTx(tx *gorm.DB, code string) (bool, error)

	// FindAvailableTx locks up to limit unissued, unused vouchers of the
	// category, oldest first, skipping rows locked by concurrent sales.
	FindAvailableTx(tx *gorm.DB, categoryID int64, limit int) ([]model.Voucher, error)

	// IssueTx stamps sale_id and issued_at on the vouchers that are still
	// unissued and returns how many rows changed.
	IssueTx(tx *gorm.DB, ids []int64, saleID int64, at time.Time) (int64, error)

	// RedeemTx marks the voucher used only if it is not used yet.
	RedeemTx(tx *gorm.DB, id, saleID int64, at time.Time) (int64, error)

	DB() *gorm.DB
}

type voucherRepo struct{ db *gorm.DB }

func NewVoucherRepository(db *gorm.DB) VoucherRepository { return &voucherRepo{db: db} }

func (r *voucherRepo) DB() *gorm.DB { return r.db }

func (r *voucherRepo) Create(ctx context.Context, v *model.Voucher) error {
	return r.CreateTx(r.db.WithContext(ctx), v)
}

func (r *voucherRepo) CreateTx(tx *gorm.DB, v *model.Voucher) error {
	return tx.Omit("Category").Create(v).Error
}

func (r *voucherRepo) FindByID(ctx context.Context, id int64) (*model.Voucher, error) {
	return r.FindByIDTx(r.db.WithContext(ctx), id)
}

func (r *voucherRepo) FindByIDTx(tx *gorm.DB, id int64) (*model.Voucher, error) {
	var v model.Voucher
	err := tx.Preload("Category").First(&v, id).Error
	return &v, err
}

func (r *voucherRepo) FindByCode(ctx context.Context, code string) (*model.Voucher, error) {
	var v model.Voucher
	err := r.db.WithContext(ctx).Preload("Category").
		Where("voucher_code = ?", code).
		First(&v).Error
	return &v, err
}

func (r *voucherRepo) CodeExistsTx(tx *gorm.DB, code string) (bool, error) {
	var n int64
	err := tx.Model(&model.Voucher{}).Where("voucher_code = ?", code).Count(&n).Error
	return n > 0, err
}

func (r *voucherRepo) FindAvailableTx(tx *gorm.DB, categoryID int64, limit int) ([]model.Voucher, error) {
	var list []model.Voucher
	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("voucher_category_id = ? AND is_used = ? AND sale_id IS NULL", categoryID, false).
		Order("id ASC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *voucherRepo) IssueTx(tx *gorm.DB, ids []int64, saleID int64, at time.Time) (int64, error) {
	res := tx.Model(&model.Voucher{}).
		Where("id IN ? AND sale_id IS NULL", ids).
		Updates(map[string]interface{}{
			"sale_id":   saleID,
			"issued_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *voucherRepo) RedeemTx(tx *gorm.DB, id, saleID int64, at time.Time) (int64, error) {
	res := tx.Model(&model.Voucher{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{
			"is_used":          true,
			"used_at":          at,
			"redeemed_sale_id": saleID,
		})
	return res.RowsAffected, res.Error
}

func (r *voucherRepo) DeleteUnissued(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND sale_id IS NULL AND is_used = ?", id, false).
		Delete(&model.Voucher{})
	return res.RowsAffected, res.Error
}

func (r *voucherRepo) CountByCategory(ctx context.Context) (map[int64]VoucherCounts, error) {
	var rows []VoucherCounts
	err := r.db.WithContext(ctx).Model(&model.Voucher{}).
		Select("voucher_category_id AS category_id, COUNT(*) AS total, " +
			"CAST(SUM(CASE WHEN is_used = false AND sale_id IS NULL THEN 1 ELSE 0 END) AS BIGINT) AS available").
		Group("voucher_category_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int64]VoucherCounts, len(rows))
	for _, row := range rows {
		out[row.CategoryID] = row
	}
	return out, nil
}

// IsUniqueViolation reports whether err comes from a unique constraint.
func IsUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
