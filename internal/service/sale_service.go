package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hbpos/internal/cart"
	"hbpos/internal/dto"
	"hbpos/internal/metrics"
	"hbpos/internal/model"
	"hbpos/internal/pricing"
	"hbpos/internal/repository"
	"hbpos/internal/worker"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SaleService interface {
	Submit(ctx context.Context, req dto.SubmitSaleRequest) (*dto.SaleResponse, error)
	GetSale(ctx context.Context, id int64) (*dto.SaleResponse, error)
}

// SaleOptions are the engine switches, all off by default.
type SaleOptions struct {
	// StrictProductLookup fails the sale on an unknown product id instead of
	// skipping the line.
	StrictProductLookup bool
	// StrictVoucherRedemption fails the sale on a missing or used redemption
	// voucher instead of redeeming nothing.
	StrictVoucherRedemption bool
	// IncludeCustomDiscount adds the custom discount to Sale.Discount.
	IncludeCustomDiscount bool
	OrderCodePrefix       string
}

// SaleNotifier receives the post-commit confirmation job. *worker.Dispatcher
// implements it.
type SaleNotifier interface {
	EnqueueSaleConfirmation(ctx context.Context, payload worker.SaleConfirmationPayload) error
}

type saleService struct {
	repo      repository.SaleRepository
	inventory InventoryService
	vouchers  VoucherService
	customers CustomerService
	products  ProductService
	notifier  SaleNotifier
	opts      SaleOptions
	clock     Clock
}

func NewSaleService(
	repo repository.SaleRepository,
	inventory InventoryService,
	vouchers VoucherService,
	customers CustomerService,
	products ProductService,
	notifier SaleNotifier,
	opts SaleOptions,
	clock Clock,
) SaleService {
	if opts.OrderCodePrefix == "" {
		opts.OrderCodePrefix = model.DefaultOrderCodePrefix
	}
	if clock == nil {
		clock = SystemClock
	}
	return &saleService{
		repo:      repo,
		inventory: inventory,
		vouchers:  vouchers,
		customers: customers,
		products:  products,
		notifier:  notifier,
		opts:      opts,
		clock:     clock,
	}
}

// runTx executes fn inside a GORM transaction. GORM rolls back when fn
// returns an error or panics, and commits otherwise.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn)
}

// committedSale is what the transaction hands to the post-commit steps.
type committedSale struct {
	sale         model.Sale
	customer     *model.Customer
	touched      []*model.Product
	redeemed     *model.Voucher
	issued       int
	descriptions []string
}

// ── Submit ────────────────────────────────────────────────────────────────────
// Boundary validation, then one transaction:
//   1. upsert customer
//   2. lock referenced products in id order, drop or reject unknown ids
//   3. resolve the redemption voucher (no lock; Redeem is compare-and-set)
//   4. price the surviving lines
//   5. insert the sale, then write its order code
//   6. redeem the voucher
//   7. per line: issue vouchers or decrement stock, one sale item each
//   8. store the voucher category snapshot
// Post-commit steps never fail the sale.

func (s *saleService) Submit(ctx context.Context, req dto.SubmitSaleRequest) (*dto.SaleResponse, error) {
	lines, err := cart.Normalize(req.Products)
	if err != nil {
		metrics.SalesTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	coupon := decimal.Zero
	if req.AppliedCoupon != nil {
		coupon = req.AppliedCoupon.Discount
	}
	customType := req.CustomDiscountType
	if customType == "" {
		customType = model.CustomDiscountFixed
	}
	custom := pricing.CustomDiscount{Type: customType}
	if req.CustomDiscount != nil {
		custom.Value = *req.CustomDiscount
	}
	if err := cart.Adjustments(coupon, custom); err != nil {
		metrics.SalesTotal.WithLabelValues(metrics.OutcomeInvalid).Inc()
		return nil, err
	}

	now := s.clock()
	var out committedSale

	err = runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		customer, err := s.customers.Upsert(ctx, tx, req.Customer)
		if err != nil {
			return err
		}
		out.customer = customer

		locked, err := s.inventory.LockProducts(ctx, tx, cart.ProductIDs(lines))
		if err != nil {
			return err
		}
		kept, err := s.dropUnknownProducts(lines, locked)
		if err != nil {
			return err
		}

		voucherPayment := decimal.Zero
		if req.VoucherID != nil {
			v, err := s.resolveRedemption(ctx, tx, *req.VoucherID)
			if err != nil {
				return err
			}
			if v != nil {
				out.redeemed = v
				voucherPayment = v.Category.Amount
			}
		}

		totals, err := pricing.Calculate(pricing.Input{
			Lines:          cart.PricingLines(kept),
			CouponDiscount: coupon,
			Custom:         custom,
		}, pricing.Options{IncludeCustomDiscount: s.opts.IncludeCustomDiscount})
		if err != nil {
			return err
		}
		if totals.TotalDiscount.IsNegative() || totals.TotalDiscount.GreaterThan(totals.TotalAmount) {
			return ErrDiscountExceedsTotal
		}

		sale := model.Sale{
			EmployeeID:           req.EmployeeID,
			UserID:               req.UserID,
			TotalAmount:          totals.TotalAmount,
			TotalCost:            totals.TotalCost,
			Discount:             totals.TotalDiscount,
			PaymentMethod:        req.PaymentMethod,
			Cash:                 req.Cash,
			CustomDiscount:       req.CustomDiscount,
			CustomDiscountType:   customType,
			SaleDate:             dateOnly(now),
			HasVouchers:          cart.HasVouchers(kept),
			PaidWithVoucher:      out.redeemed != nil,
			VoucherPaymentAmount: voucherPayment,
			VoucherCategories:    datatypes.NewJSONSlice([]model.VoucherCategorySummary{}),
		}
		if customer != nil {
			sale.CustomerID = &customer.ID
		}
		if out.redeemed != nil {
			sale.RedeemedVoucherID = &out.redeemed.ID
		}
		if err := s.repo.CreateTx(tx, &sale); err != nil {
			return err
		}

		code := model.FormatOrderCode(s.opts.OrderCodePrefix, sale.ID, now)
		assigned, err := s.repo.AssignOrderCodeTx(tx, sale.ID, code)
		if err != nil {
			return err
		}
		if !assigned {
			return fmt.Errorf("sale %d already has an order code", sale.ID)
		}
		sale.OrderCode = &code

		if out.redeemed != nil {
			if err := s.vouchers.Redeem(ctx, tx, out.redeemed.ID, sale.ID); err != nil {
				return err
			}
		}

		var summary []model.VoucherCategorySummary
		for _, l := range kept {
			var item model.SaleItem
			switch line := l.(type) {
			case cart.VoucherLine:
				category, err := s.vouchers.FindCategory(ctx, tx, line.CategoryID)
				if err != nil {
					return err
				}
				reserved, err := s.vouchers.ReserveVouchers(ctx, tx, line.CategoryID, line.Quantity)
				if err != nil {
					return err
				}
				if err := s.vouchers.IssueVouchers(ctx, tx, reserved, sale.ID); err != nil {
					return err
				}
				summary = addToSummary(summary, category, line.Quantity)
				out.issued += len(reserved)
				out.descriptions = append(out.descriptions, "Gift voucher "+category.Name)
				item = saleItem(sale.ID, nil, line.Quantity, line.SellingPrice)

			case cart.ProductLine:
				if err := s.inventory.ReserveAndDecrement(ctx, tx, line.ProductID, line.Quantity); err != nil {
					return err
				}
				p := locked[line.ProductID]
				out.touched = append(out.touched, p)
				out.descriptions = append(out.descriptions, p.Name)
				id := line.ProductID
				item = saleItem(sale.ID, &id, line.Quantity, line.SellingPrice)
			}

			if err := s.repo.CreateItemTx(tx, &item); err != nil {
				return err
			}
			sale.Items = append(sale.Items, item)
		}

		if len(summary) > 0 {
			if err := s.repo.SaveVoucherCategoriesTx(tx, sale.ID, summary); err != nil {
				return err
			}
			sale.VoucherCategories = datatypes.NewJSONSlice(summary)
		}

		out.sale = sale
		return nil
	})
	if err != nil {
		return nil, s.fail(req, err)
	}

	s.afterCommit(ctx, &out)
	return saleToResponse(&out.sale), nil
}

// dropUnknownProducts removes product lines whose product does not exist,
// or rejects the sale in strict mode.
func (s *saleService) dropUnknownProducts(lines []cart.Line, found map[int64]*model.Product) ([]cart.Line, error) {
	kept := make([]cart.Line, 0, len(lines))
	for _, l := range lines {
		if pl, ok := l.(cart.ProductLine); ok {
			if _, exists := found[pl.ProductID]; !exists {
				if s.opts.StrictProductLookup {
					return nil, ErrProductNotFound
				}
				log.Warn().Int64("product_id", pl.ProductID).Msg("sale: unknown product, line skipped")
				continue
			}
		}
		kept = append(kept, l)
	}
	return kept, nil
}

// resolveRedemption returns nil, nil when the voucher cannot be redeemed in
// lenient mode.
func (s *saleService) resolveRedemption(ctx context.Context, tx *gorm.DB, voucherID int64) (*model.Voucher, error) {
	v, err := s.vouchers.FindForRedemption(ctx, tx, voucherID)
	if err == nil {
		return v, nil
	}
	lenient := errors.Is(err, ErrVoucherNotFound) ||
		errors.Is(err, ErrVoucherAlreadyUsed) ||
		errors.Is(err, ErrVoucherCategoryNotFound)
	if !lenient || s.opts.StrictVoucherRedemption {
		return nil, err
	}
	log.Warn().Err(err).Int64("voucher_id", voucherID).Msg("sale: redemption voucher ignored")
	return nil, nil
}

// fail classifies err, logs it and counts it. Errors the caller can act on
// are returned as is; anything else becomes a *TransactionFailedError.
func (s *saleService) fail(req dto.SubmitSaleRequest, err error) error {
	var (
		customerErr *CustomerError
		invalid     *cart.ValidationError
	)
	abort := func(outcome, class string) {
		metrics.SalesTotal.WithLabelValues(outcome).Inc()
		ev := log.Warn()
		if outcome == metrics.OutcomeFailed {
			ev = log.Error()
		}
		ev.Err(err).
			Int64("employee_id", req.EmployeeID).
			Int64("user_id", req.UserID).
			Str("class", class).
			Msg("sale aborted")
	}

	switch {
	case IsConflict(err):
		abort(metrics.OutcomeConflict, "conflict")
		return err
	case errors.Is(err, ErrVoucherNotFound),
		errors.Is(err, ErrVoucherCategoryNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrDiscountExceedsTotal),
		errors.Is(err, pricing.ErrUnknownCustomDiscountType),
		errors.As(err, &invalid):
		abort(metrics.OutcomeInvalid, "invalid")
		return err
	case errors.As(err, &customerErr):
		abort(metrics.OutcomeFailed, "customer")
		return err
	default:
		abort(metrics.OutcomeFailed, "infrastructure")
		return &TransactionFailedError{Cause: err}
	}
}

func (s *saleService) afterCommit(ctx context.Context, out *committedSale) {
	sale := &out.sale
	metrics.SalesTotal.WithLabelValues(metrics.OutcomeCommitted).Inc()
	amount, _ := sale.TotalAmount.Float64()
	metrics.SaleAmount.Observe(amount)
	metrics.VouchersIssued.Add(float64(out.issued))

	if s.products != nil && len(out.touched) > 0 {
		s.products.InvalidateLookup(ctx, out.touched...)
	}
	if out.redeemed != nil {
		metrics.VouchersRedeemed.Inc()
		s.vouchers.InvalidateLookup(ctx, out.redeemed.VoucherCode)
	}

	log.Info().
		Int64("sale_id", sale.ID).
		Str("order_code", derefString(sale.OrderCode)).
		Str("total_amount", sale.TotalAmount.StringFixed(2)).
		Int("items", len(sale.Items)).
		Int("vouchers_issued", out.issued).
		Bool("paid_with_voucher", sale.PaidWithVoucher).
		Msg("sale committed")

	if s.notifier == nil || out.customer == nil || out.customer.Email == nil {
		return
	}
	if err := s.notifier.EnqueueSaleConfirmation(ctx, confirmationPayload(out)); err != nil {
		log.Warn().Err(err).Int64("sale_id", sale.ID).Msg("sale: confirmation email not queued")
	}
}

// ── GetSale ───────────────────────────────────────────────────────────────────

func (s *saleService) GetSale(ctx context.Context, id int64) (*dto.SaleResponse, error) {
	sale, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func saleItem(saleID int64, productID *int64, qty int, unitPrice decimal.Decimal) model.SaleItem {
	return model.SaleItem{
		SaleID:     saleID,
		ProductID:  productID,
		Quantity:   qty,
		UnitPrice:  unitPrice,
		TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(qty))),
	}
}

// addToSummary keeps one entry per category, summing quantities.
func addToSummary(summary []model.VoucherCategorySummary, c *model.VoucherCategory, qty int) []model.VoucherCategorySummary {
	for i := range summary {
		if summary[i].ID == c.ID {
			summary[i].Quantity += qty
			return summary
		}
	}
	return append(summary, model.VoucherCategorySummary{ID: c.ID, Name: c.Name, Amount: c.Amount, Quantity: qty})
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func confirmationPayload(out *committedSale) worker.SaleConfirmationPayload {
	sale := &out.sale
	p := worker.SaleConfirmationPayload{
		SaleID:         sale.ID,
		OrderCode:      derefString(sale.OrderCode),
		ToEmail:        *out.customer.Email,
		CustomerName:   out.customer.Name,
		SaleDate:       sale.SaleDate.Format("2006-01-02"),
		PaymentMethod:  sale.PaymentMethod,
		TotalAmount:    sale.TotalAmount,
		Discount:       sale.Discount,
		VoucherPayment: sale.VoucherPaymentAmount,
	}
	for i, item := range sale.Items {
		p.Lines = append(p.Lines, worker.ConfirmationLine{
			Description: out.descriptions[i],
			Quantity:    item.Quantity,
			TotalPrice:  item.TotalPrice,
		})
	}
	return p
}

func saleToResponse(s *model.Sale) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:                   s.ID,
		OrderCode:            derefString(s.OrderCode),
		CustomerID:           s.CustomerID,
		EmployeeID:           s.EmployeeID,
		UserID:               s.UserID,
		TotalAmount:          s.TotalAmount,
		TotalCost:            s.TotalCost,
		Discount:             s.Discount,
		PaymentMethod:        s.PaymentMethod,
		Cash:                 s.Cash,
		CustomDiscount:       s.CustomDiscount,
		CustomDiscountType:   s.CustomDiscountType,
		SaleDate:             s.SaleDate.Format("2006-01-02"),
		HasVouchers:          s.HasVouchers,
		PaidWithVoucher:      s.PaidWithVoucher,
		RedeemedVoucherID:    s.RedeemedVoucherID,
		VoucherPaymentAmount: s.VoucherPaymentAmount,
		VoucherCategories:    []dto.VoucherCategorySummaryResponse{},
		Items:                make([]dto.SaleItemResponse, 0, len(s.Items)),
		CreatedAt:            s.CreatedAt.Format(time.RFC3339),
	}
	for _, c := range s.VoucherCategories {
		resp.VoucherCategories = append(resp.VoucherCategories, dto.VoucherCategorySummaryResponse{
			ID:       c.ID,
			Name:     c.Name,
			Amount:   c.Amount,
			Quantity: c.Quantity,
		})
	}
	for _, it := range s.Items {
		resp.Items = append(resp.Items, dto.SaleItemResponse{
			ID:         it.ID,
			ProductID:  it.ProductID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		})
	}
	return resp
}
