//go:build integration

package router

// Runs the full HTTP stack against real Postgres + Redis.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"hbpos/internal/config"
	"hbpos/internal/dto"
	"hbpos/internal/infra"
	"hbpos/internal/middleware"
	"hbpos/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"gorm.io/gorm"
)

const testSecret = "test-secret-key"

type testEnv struct {
	server  *httptest.Server
	db      *gorm.DB
	admin   string
	cashier string
}

func token(t *testing.T, role string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.JWTClaims{
		UserID:   9,
		Username: role,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("hbpos_test"),
		tcPostgres.WithUsername("hbpos"),
		tcPostgres.WithPassword("hbpos"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:               "test",
		JWTSecret:         testSecret,
		AllowedOrigins:    "*",
		RateLimit:         "10000-M",
		DatabaseURL:       pgURL,
		RedisURL:          rdURL,
		OrderCodePrefix:   "HB",
		VoucherCodePrefix: "VC-",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	// Migrations are idempotent.
	require.NoError(t, infra.RunMigrations(db))

	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	engine, err := New(cfg, db, rdb)
	require.NoError(t, err)
	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)

	return &testEnv{server: srv, db: db, admin: token(t, middleware.RoleAdmin), cashier: token(t, middleware.RoleCashier)}
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body interface{}, dest interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp.StatusCode
}

func (e *testEnv) product(t *testing.T, name string, stock int) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:          name,
		Barcode:       "479" + name,
		SellingPrice:  decimal.NewFromInt(1500),
		CostPrice:     decimal.NewFromInt(900),
		StockQuantity: stock,
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func productLine(p *model.Product, qty int) map[string]interface{} {
	return map[string]interface{}{
		"id": p.ID, "quantity": qty, "selling_price": "1500", "cost_price": "900",
	}
}

func sale(lines ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"products":      lines,
		"employee_id":   1,
		"userId":        9,
		"paymentMethod": "Cash",
	}
}

func TestIntegration_VoucherLifecycle(t *testing.T) {
	env := setupTestEnv(t)

	var category dto.VoucherCategoryResponse
	status := env.do(t, http.MethodPost, "/v1/voucher-categories", env.admin,
		map[string]interface{}{"name": "Rs. 1000", "amount": "1000"}, &category)
	require.Equal(t, http.StatusCreated, status)

	assert.Equal(t, http.StatusForbidden, env.do(t, http.MethodPost, "/v1/vouchers", env.cashier,
		map[string]interface{}{"voucher_category_id": category.ID, "quantity": 3}, nil))

	var created dto.CreateVouchersResponse
	status = env.do(t, http.MethodPost, "/v1/vouchers", env.admin,
		map[string]interface{}{"voucher_category_id": category.ID, "quantity": 3}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.Len(t, created.Vouchers, 3)

	// Sell one voucher.
	var sold dto.SubmitSaleResponse
	status = env.do(t, http.MethodPost, "/v1/sales", env.cashier, sale(map[string]interface{}{
		"quantity": 1, "selling_price": "1000", "cost_price": "1000",
		"is_voucher": "1", "voucher_category_id": category.ID,
	}), &sold)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, sold.Sale.HasVouchers)
	assert.Equal(t, fmt.Sprintf("HB/%02d/%03d", time.Now().Year()%100, sold.Sale.ID), sold.Sale.OrderCode)

	var issued model.Voucher
	require.NoError(t, env.db.Where("sale_id = ?", sold.Sale.ID).First(&issued).Error)

	// Redeem it against a product sale.
	var lookup dto.VoucherLookupResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/v1/vouchers/lookup?code="+issued.VoucherCode, env.cashier, nil, &lookup))
	assert.Equal(t, issued.ID, lookup.Voucher.ID)

	p := env.product(t, "shirt", 4)
	req := sale(productLine(p, 1))
	req["voucher_id"] = issued.ID
	var paid dto.SubmitSaleResponse
	require.Equal(t, http.StatusCreated, env.do(t, http.MethodPost, "/v1/sales", env.cashier, req, &paid))
	assert.True(t, paid.Sale.PaidWithVoucher)
	assert.Equal(t, "1000.00", paid.Sale.VoucherPaymentAmount.StringFixed(2))

	// The cached lookup was invalidated on commit.
	assert.Equal(t, http.StatusConflict, env.do(t, http.MethodGet, "/v1/vouchers/lookup?code="+issued.VoucherCode, env.cashier, nil, nil))

	var categories []dto.VoucherCategoryResponse
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/v1/voucher-categories", env.cashier, nil, &categories))
	require.Len(t, categories, 1)
	assert.True(t, categories[0].IsActive)
	assert.Equal(t, int64(3), categories[0].TotalVouchers)
	assert.Equal(t, int64(2), categories[0].AvailableVouchers)
}

func TestIntegration_ConcurrentSalesNeverOversell(t *testing.T) {
	env := setupTestEnv(t)
	p := env.product(t, "lamp", 5)

	const buyers = 10
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = map[int]int{}
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status := env.do(t, http.MethodPost, "/v1/sales", env.cashier, sale(productLine(p, 1)), nil)
			mu.Lock()
			codes[status]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, codes[http.StatusCreated])
	assert.Equal(t, 5, codes[http.StatusLocked])

	var after model.Product
	require.NoError(t, env.db.First(&after, p.ID).Error)
	assert.Equal(t, 0, after.StockQuantity)

	var sold int64
	require.NoError(t, env.db.Model(&model.StockTransaction{}).Where("product_id = ?", p.ID).Count(&sold).Error)
	assert.Equal(t, int64(5), sold)
}

func TestIntegration_ConcurrentRedemptionSucceedsOnce(t *testing.T) {
	env := setupTestEnv(t)

	category := &model.VoucherCategory{Name: "Rs. 5000", Amount: decimal.NewFromInt(5000)}
	require.NoError(t, env.db.Create(category).Error)
	v := &model.Voucher{VoucherCategoryID: category.ID, VoucherCode: "VC-RACE1", Quantity: 1}
	require.NoError(t, env.db.Create(v).Error)
	p := env.product(t, "coat", 10)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		redeemed int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := sale(productLine(p, 1))
			req["voucher_id"] = v.ID
			var resp dto.SubmitSaleResponse
			status := env.do(t, http.MethodPost, "/v1/sales", env.cashier, req, &resp)
			mu.Lock()
			defer mu.Unlock()
			if status == http.StatusCreated && resp.Sale.PaidWithVoucher {
				redeemed++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, redeemed)
	var after model.Voucher
	require.NoError(t, env.db.First(&after, v.ID).Error)
	assert.True(t, after.IsUsed)
	require.NotNil(t, after.RedeemedSaleID)
}

func TestIntegration_PublicEndpoints(t *testing.T) {
	env := setupTestEnv(t)

	var health map[string]interface{}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", "", nil, &health))
	assert.Equal(t, "connected", health["redis"])

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/metrics", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/v1/sales", "", sale(), nil))
}
