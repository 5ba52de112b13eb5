package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"hbpos/internal/dto"
	"hbpos/internal/model"
	"hbpos/internal/repository"
	"hbpos/internal/service"
	"hbpos/internal/worker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

// newTestDB opens a private in-memory sqlite database. One connection keeps
// every statement on the same database and serialises transactions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,

		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(model.AllModels()...))
	return db
}

// ── Fixture ───────────────────────────────────────────────────────────────────

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []worker.SaleConfirmationPayload
}

func (n *recordingNotifier) EnqueueSaleConfirmation(_ context.Context, p worker.SaleConfirmationPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.jobs = append(n.jobs, p)
	return nil
}

func (n *recordingNotifier) sent() []worker.SaleConfirmationPayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]worker.SaleConfirmationPayload(nil), n.jobs...)
}

type fixture struct {
	db         *gorm.DB
	products   repository.ProductRepository
	ledger     repository.StockTransactionRepository
	sales      repository.SaleRepository
	vouchers   repository.VoucherRepository
	categories repository.VoucherCategoryRepository

	inventory  service.InventoryService
	voucherSvc service.VoucherService
	customers  service.CustomerService
	productSvc service.ProductService
	notifier   *recordingNotifier
	engine     service.SaleService
}

func newFixture(t *testing.T, opts service.SaleOptions) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:         db,
		products:   repository.NewProductRepository(db),
		ledger:     repository.NewStockTransactionRepository(db),
		sales:      repository.NewSaleRepository(db),
		vouchers:   repository.NewVoucherRepository(db),
		categories: repository.NewVoucherCategoryRepository(db),
		notifier:   &recordingNotifier{},
	}
	f.inventory = service.NewInventoryService(f.products, f.ledger, fixedClock)
	f.voucherSvc = service.NewVoucherService(f.vouchers, f.categories, nil, service.VoucherOptions{Clock: fixedClock})
	f.customers = service.NewCustomerService(repository.NewCustomerRepository(db), fixedClock)
	f.productSvc = service.NewProductService(f.products, nil)
	f.engine = f.newEngine(opts, f.inventory)
	return f
}

// newEngine builds a sale engine over the fixture, optionally with a
// different inventory implementation.
func (f *fixture) newEngine(opts service.SaleOptions, inventory service.InventoryService) service.SaleService {
	return service.NewSaleService(f.sales, inventory, f.voucherSvc, f.customers, f.productSvc, f.notifier, opts, fixedClock)
}

func (f *fixture) product(t *testing.T, name string, stock int, selling, cost string) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:          name,
		Barcode:       "BC-" + name,
		Code:          "C-" + name,
		SellingPrice:  decimal.RequireFromString(selling),
		CostPrice:     decimal.RequireFromString(cost),
		StockQuantity: stock,
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) category(t *testing.T, name, amount string) *model.VoucherCategory {
	t.Helper()
	c := &model.VoucherCategory{Name: name, Amount: decimal.RequireFromString(amount)}
	require.NoError(t, f.categories.Create(context.Background(), c))
	return c
}

func (f *fixture) stockOf(t *testing.T, id int64) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func (f *fixture) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Count(&n).Error)
	return n
}

// issueVoucher creates one voucher of c, sells it through the engine and
// returns the voucher that sale issued.
func (f *fixture) issueVoucher(t *testing.T, c *model.VoucherCategory) *model.Voucher {
	t.Helper()
	ctx := context.Background()
	_, err := f.voucherSvc.CreateVouchers(ctx, dto.CreateVouchersRequest{VoucherCategoryID: c.ID, Quantity: 1})
	require.NoError(t, err)
	sale, err := f.engine.Submit(ctx, saleRequest(voucherLine(c.ID, 1, c.Amount.String())))
	require.NoError(t, err)

	var v model.Voucher
	require.NoError(t, f.db.Where("sale_id = ?", sale.ID).First(&v).Error)
	return &v
}

// ── Request builders ──────────────────────────────────────────────────────────

func productLine(id int64, qty int, selling, cost string) dto.SaleLineRequest {
	return dto.SaleLineRequest{
		ID:           &id,
		Quantity:     qty,
		SellingPrice: decimal.RequireFromString(selling),
		CostPrice:    decimal.RequireFromString(cost),
	}
}

func voucherLine(categoryID int64, qty int, price string) dto.SaleLineRequest {
	return dto.SaleLineRequest{
		Quantity:          qty,
		SellingPrice:      decimal.RequireFromString(price),
		CostPrice:         decimal.RequireFromString(price),
		IsVoucher:         true,
		VoucherCategoryID: &categoryID,
	}
}

func saleRequest(lines ...dto.SaleLineRequest) dto.SubmitSaleRequest {
	return dto.SubmitSaleRequest{
		Products:      lines,
		EmployeeID:    3,
		UserID:        9,
		PaymentMethod: "Cash",
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
