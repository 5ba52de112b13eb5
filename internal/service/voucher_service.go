package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
	"time"

	"hbpos/internal/dto"
	"hbpos/internal/infra"
	"hbpos/internal/model"
	"hbpos/internal/repository"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	voucherCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	voucherCodeLength   = 5
	maxCodeAttempts     = 20
	maxInsertAttempts   = 3
	voucherLookupTTL    = time.Minute
)

// CodeSource returns n random characters for a voucher code suffix.
type CodeSource func(n int) (string, error)

// RandomCode draws from A-Z0-9 using crypto/rand.
func RandomCode(n int) (string, error) {
	limit := big.NewInt(int64(len(voucherCodeAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = voucherCodeAlphabet[idx.Int64()]
	}
	return string(b), nil
}

// VoucherService is the voucher store. The Tx-style operations take the
// enclosing sale transaction; the rest are used by the lookup and admin
// endpoints.
type VoucherService interface {
	ReserveVouchers(ctx context.Context, tx *gorm.DB, categoryID int64, qty int) ([]model.Voucher, error)
	IssueVouchers(ctx context.Context, tx *gorm.DB, vouchers []model.Voucher, saleID int64) error
	ActivateCategory(ctx context.Context, tx *gorm.DB, categoryID int64) error
	FindCategory(ctx context.Context, tx *gorm.DB, categoryID int64) (*model.VoucherCategory, error)

	// FindForRedemption loads an unused voucher with its category, without locking.
	FindForRedemption(ctx context.Context, tx *gorm.DB, voucherID int64) (*model.Voucher, error)
	Redeem(ctx context.Context, tx *gorm.DB, voucherID, saleID int64) error

	// GenerateCode returns a code not present in db. db may be a transaction;
	// nil means the repository connection.
	GenerateCode(ctx context.Context, db *gorm.DB) (string, error)

	LookupByCode(ctx context.Context, code string) (*dto.VoucherLookupItem, error)
	InvalidateLookup(ctx context.Context, codes ...string)

	ListCategories(ctx context.Context) ([]dto.VoucherCategoryResponse, error)
	CreateCategory(ctx context.Context, req dto.CreateVoucherCategoryRequest) (*dto.VoucherCategoryResponse, error)
	CreateVouchers(ctx context.Context, req dto.CreateVouchersRequest) (*dto.CreateVouchersResponse, error)
	DeleteVoucher(ctx context.Context, id int64) error
}

// VoucherOptions configures code generation. Zero values pick the defaults.
type VoucherOptions struct {
	CodePrefix string
	Codes      CodeSource
	Clock      Clock
}

type voucherService struct {
	vouchers   repository.VoucherRepository
	categories repository.VoucherCategoryRepository
	cache      *infra.JSONCache
	prefix     string
	codes      CodeSource
	clock      Clock
}

func NewVoucherService(
	vouchers repository.VoucherRepository,
	categories repository.VoucherCategoryRepository,
	cache *infra.JSONCache,
	opts VoucherOptions,
) VoucherService {
	s := &voucherService{
		vouchers:   vouchers,
		categories: categories,
		cache:      cache,
		prefix:     opts.CodePrefix,
		codes:      opts.Codes,
		clock:      opts.Clock,
	}
	if s.prefix == "" {
		s.prefix = model.DefaultVoucherCodePrefix
	}
	if s.codes == nil {
		s.codes = RandomCode
	}
	if s.clock == nil {
		s.clock = SystemClock
	}
	return s
}

func voucherLookupKey(code string) string { return "voucher:code:" + code }

// voucherLookupEntry is what the lookup cache holds. A nil Item is a
// tombstone left by InvalidateLookup: readers go to the database and a
// lookup that started before the invalidation cannot overwrite it.
type voucherLookupEntry struct {
	Item *dto.VoucherLookupItem `json:"item,omitempty"`
}

// ── Sale transaction operations ──────────────────────────────────────────────

func (s *voucherService) ReserveVouchers(ctx context.Context, tx *gorm.DB, categoryID int64, qty int) ([]model.Voucher, error) {
	list, err := s.vouchers.FindAvailableTx(tx, categoryID, qty)
	if err != nil {
		return nil, err
	}
	if len(list) < qty {
		return nil, &InsufficientVouchersError{CategoryID: categoryID, Requested: qty, Available: len(list)}
	}
	return list, nil
}

func (s *voucherService) IssueVouchers(ctx context.Context, tx *gorm.DB, vouchers []model.Voucher, saleID int64) error {
	if len(vouchers) == 0 {
		return nil
	}
	ids := make([]int64, len(vouchers))
	var categoryIDs []int64
	seen := make(map[int64]bool)
	for i, v := range vouchers {
		ids[i] = v.ID
		if !seen[v.VoucherCategoryID] {
			seen[v.VoucherCategoryID] = true
			categoryIDs = append(categoryIDs, v.VoucherCategoryID)
		}
	}

	n, err := s.vouchers.IssueTx(tx, ids, saleID, s.clock())
	if err != nil {
		return err
	}
	if int(n) != len(vouchers) {
		// Someone issued part of the set between reserve and issue.
		return &InsufficientVouchersError{
			CategoryID: vouchers[0].VoucherCategoryID,
			Requested:  len(vouchers),
			Available:  int(n),
		}
	}

	for _, id := range categoryIDs {
		if err := s.ActivateCategory(ctx, tx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *voucherService) ActivateCategory(ctx context.Context, tx *gorm.DB, categoryID int64) error {
	_, err := s.categories.ActivateTx(tx, categoryID)
	return err
}

func (s *voucherService) FindCategory(ctx context.Context, tx *gorm.DB, categoryID int64) (*model.VoucherCategory, error) {
	c, err := s.categories.FindByIDTx(tx, categoryID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVoucherCategoryNotFound
	}
	return c, err
}

func (s *voucherService) FindForRedemption(ctx context.Context, tx *gorm.DB, voucherID int64) (*model.Voucher, error) {
	v, err := s.vouchers.FindByIDTx(tx, voucherID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}
	if v.IsUsed {
		return nil, ErrVoucherAlreadyUsed
	}
	if v.Category == nil {
		return nil, ErrVoucherCategoryNotFound
	}
	return v, nil
}

func (s *voucherService) Redeem(ctx context.Context, tx *gorm.DB, voucherID, saleID int64) error {
	n, err := s.vouchers.RedeemTx(tx, voucherID, saleID, s.clock())
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := s.vouchers.FindByIDTx(tx, voucherID); errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrVoucherNotFound
	} else if err != nil {
		return err
	}
	return ErrVoucherAlreadyUsed
}

// ── Codes ────────────────────────────────────────────────────────────────────

func (s *voucherService) GenerateCode(ctx context.Context, db *gorm.DB) (string, error) {
	if db == nil {
		db = s.vouchers.DB().WithContext(ctx)
	}
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		suffix, err := s.codes(voucherCodeLength)
		if err != nil {
			return "", err
		}
		code := s.prefix + suffix
		exists, err := s.vouchers.CodeExistsTx(db, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrCodeGenerationExhausted
}

// ── Lookup ───────────────────────────────────────────────────────────────────

func (s *voucherService) LookupByCode(ctx context.Context, code string) (*dto.VoucherLookupItem, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrVoucherNotFound
	}

	var cached voucherLookupEntry
	if s.cache.Get(ctx, voucherLookupKey(code), &cached) && cached.Item != nil {
		return cached.Item, nil
	}

	v, err := s.vouchers.FindByCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrVoucherNotFound
	}
	if err != nil {
		return nil, err
	}
	if v.IsUsed {
		return nil, ErrVoucherAlreadyUsed
	}
	if v.Category == nil {
		return nil, ErrVoucherCategoryNotFound
	}

	item := &dto.VoucherLookupItem{
		ID:           v.ID,
		Code:         v.VoucherCode,
		Amount:       v.Category.Amount,
		CategoryName: v.Category.Name,
	}
	s.cache.SetNX(ctx, voucherLookupKey(code), voucherLookupEntry{Item: item}, voucherLookupTTL)
	return item, nil
}

// InvalidateLookup replaces cached answers for codes with tombstones.
func (s *voucherService) InvalidateLookup(ctx context.Context, codes ...string) {
	for _, c := range codes {
		s.cache.Set(ctx, voucherLookupKey(c), voucherLookupEntry{}, voucherLookupTTL)
	}
}

// ── Administration ───────────────────────────────────────────────────────────

func (s *voucherService) ListCategories(ctx context.Context) ([]dto.VoucherCategoryResponse, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.vouchers.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.VoucherCategoryResponse, 0, len(categories))
	for i := range categories {
		out = append(out, categoryToResponse(&categories[i], counts[categories[i].ID]))
	}
	return out, nil
}

func (s *voucherService) CreateCategory(ctx context.Context, req dto.CreateVoucherCategoryRequest) (*dto.VoucherCategoryResponse, error) {
	c := &model.VoucherCategory{
		Name:        strings.TrimSpace(req.Name),
		Amount:      req.Amount,
		Description: req.Description,
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, err
	}
	resp := categoryToResponse(c, repository.VoucherCounts{})
	return &resp, nil
}

// CreateVouchers inserts a batch of unissued vouchers in one transaction.
// Each insert runs in a savepoint so a lost race on a code only retries
// that voucher.
func (s *voucherService) CreateVouchers(ctx context.Context, req dto.CreateVouchersRequest) (*dto.CreateVouchersResponse, error) {
	if _, err := s.categories.FindByID(ctx, req.VoucherCategoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVoucherCategoryNotFound
		}
		return nil, err
	}

	created := make([]model.Voucher, 0, req.Quantity)
	err := runTx(ctx, s.vouchers.DB(), func(tx *gorm.DB) error {
		for i := 0; i < req.Quantity; i++ {
			v, err := s.insertWithFreshCode(ctx, tx, req.VoucherCategoryID)
			if err != nil {
				return err
			}
			created = append(created, *v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("voucher_category_id", req.VoucherCategoryID).
		Int("quantity", len(created)).
		Msg("vouchers created")

	resp := &dto.CreateVouchersResponse{Vouchers: make([]dto.VoucherResponse, len(created))}
	for i := range created {
		resp.Vouchers[i] = voucherToResponse(&created[i])
	}
	return resp, nil
}

func (s *voucherService) insertWithFreshCode(ctx context.Context, tx *gorm.DB, categoryID int64) (*model.Voucher, error) {
	for attempt := 0; ; attempt++ {
		code, err := s.GenerateCode(ctx, tx)
		if err != nil {
			return nil, err
		}
		v := &model.Voucher{VoucherCategoryID: categoryID, VoucherCode: code, Quantity: 1}
		err = tx.Transaction(func(sp *gorm.DB) error { return s.vouchers.CreateTx(sp, v) })
		if err == nil {
			return v, nil
		}
		if !repository.IsUniqueViolation(err) || attempt+1 >= maxInsertAttempts {
			return nil, err
		}
		log.Warn().Str("code", code).Msg("voucher code taken concurrently, retrying")
	}
}

func (s *voucherService) DeleteVoucher(ctx context.Context, id int64) error {
	v, err := s.vouchers.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrVoucherNotFound
	}
	if err != nil {
		return err
	}
	if v.IsUsed || v.IsIssued() {
		return ErrVoucherNotDeletable
	}

	n, err := s.vouchers.DeleteUnissued(ctx, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrVoucherNotDeletable
	}
	s.InvalidateLookup(ctx, v.VoucherCode)
	return nil
}

// ── Mappers ──────────────────────────────────────────────────────────────────

func voucherToResponse(v *model.Voucher) dto.VoucherResponse {
	r := dto.VoucherResponse{
		ID:                v.ID,
		Code:              v.VoucherCode,
		VoucherCategoryID: v.VoucherCategoryID,
		SaleID:            v.SaleID,
		IsUsed:            v.IsUsed,
		CreatedAt:         v.CreatedAt.Format(time.RFC3339),
	}
	if v.IssuedAt != nil {
		s := v.IssuedAt.Format(time.RFC3339)
		r.IssuedAt = &s
	}
	return r
}

func categoryToResponse(c *model.VoucherCategory, counts repository.VoucherCounts) dto.VoucherCategoryResponse {
	return dto.VoucherCategoryResponse{
		ID:                c.ID,
		Name:              c.Name,
		Amount:            c.Amount,
		Description:       c.Description,
		IsActive:          c.IsActive,
		TotalVouchers:     counts.Total,
		AvailableVouchers: counts.Available,
	}
}
