package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hbpos/internal/cart"
	"hbpos/internal/dto"
	"hbpos/internal/middleware"
	"hbpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() { gin.SetMode(gin.TestMode) }

// ── Stubs ─────────────────────────────────────────────────────────────────────

type stubSales struct {
	submitErr error
	got       *dto.SubmitSaleRequest
}

func (s *stubSales) Submit(_ context.Context, req dto.SubmitSaleRequest) (*dto.SaleResponse, error) {
	s.got = &req
	if s.submitErr != nil {
		return nil, s.submitErr
	}
	return &dto.SaleResponse{ID: 7, OrderCode: "HB/26/007", TotalAmount: decimal.RequireFromString("2500")}, nil
}

func (s *stubSales) GetSale(_ context.Context, id int64) (*dto.SaleResponse, error) {
	if id != 7 {
		return nil, service.ErrSaleNotFound
	}
	return &dto.SaleResponse{ID: 7, OrderCode: "HB/26/007"}, nil
}

// stubVouchers implements the lookup and admin calls; the transaction
// methods are never reached from handlers.
type stubVouchers struct {
	service.VoucherService
	err error
}

func (s *stubVouchers) LookupByCode(_ context.Context, code string) (*dto.VoucherLookupItem, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &dto.VoucherLookupItem{ID: 3, Code: code, Amount: decimal.RequireFromString("1000"), CategoryName: "Rs. 1000"}, nil
}

func (s *stubVouchers) ListCategories(context.Context) ([]dto.VoucherCategoryResponse, error) {
	return []dto.VoucherCategoryResponse{{ID: 1, Name: "Rs. 1000", TotalVouchers: 4, AvailableVouchers: 3}}, s.err
}

func (s *stubVouchers) CreateVouchers(_ context.Context, req dto.CreateVouchersRequest) (*dto.CreateVouchersResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := &dto.CreateVouchersResponse{}
	for i := 0; i < req.Quantity; i++ {
		out.Vouchers = append(out.Vouchers, dto.VoucherResponse{ID: int64(i + 1), Code: "VC-AAAA" + string(rune('A'+i))})
	}
	return out, nil
}

func (s *stubVouchers) DeleteVoucher(context.Context, int64) error { return s.err }

type stubProducts struct {
	service.ProductService
	resp *dto.ProductLookupResponse
}

func (s *stubProducts) LookupByBarcode(context.Context, string) (*dto.ProductLookupResponse, error) {
	if s.resp == nil {
		return nil, service.ErrProductNotFound
	}
	return s.resp, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func newEngine(sales service.SaleService, vouchers service.VoucherService, products service.ProductService, dev bool) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(), middleware.ErrorHandler())
	sh := NewSalesHandler(sales, dev)
	vh := NewVouchersHandler(vouchers)
	ph := NewProductsHandler(products)
	r.POST("/v1/sales", sh.Submit)
	r.GET("/v1/sales/:id", sh.Get)
	r.GET("/v1/vouchers/lookup", vh.Lookup)
	r.GET("/v1/voucher-categories", vh.ListCategories)
	r.POST("/v1/vouchers", vh.Create)
	r.DELETE("/v1/vouchers/:id", vh.Delete)
	r.GET("/v1/products/lookup", ph.Lookup)
	return r
}

func send(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const validSale = `{
	"products": [{"id": 1, "quantity": 2, "selling_price": 1250, "cost_price": 700, "apply_discount": "0", "is_voucher": 0}],
	"customer": {"name": "Nimali", "email": "nimali@example.com", "contactNumber": "771234567", "countryCode": "+94"},
	"employee_id": 3,
	"userId": 9,
	"paymentMethod": "Cash",
	"cash": 3000,
	"orderid": "ignored"
}`

func decodeDetail(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// ── Sales ─────────────────────────────────────────────────────────────────────

func TestSubmitSale_Created(t *testing.T) {
	sales := &stubSales{}
	w := send(newEngine(sales, &stubVouchers{}, &stubProducts{}, false), http.MethodPost, "/v1/sales", validSale)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp dto.SubmitSaleResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Sale completed successfully.", resp.Message)
	assert.Equal(t, "HB/26/007", resp.Sale.OrderCode)

	require.NotNil(t, sales.got)
	require.Len(t, sales.got.Products, 1)
	assert.False(t, sales.got.Products[0].IsVoucher.Bool())
	assert.Equal(t, "Cash", sales.got.PaymentMethod)
}

func TestSubmitSale_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		detail string
	}{
		{"stock", &service.InsufficientStockError{Name: "shirt", Available: 1}, http.StatusLocked, "Insufficient stock for product: shirt (1 available)"},
		{"vouchers", &service.InsufficientVouchersError{Available: 2}, http.StatusLocked, "Insufficient vouchers available. Only 2 available."},
		{"used voucher", service.ErrVoucherAlreadyUsed, http.StatusLocked, "This voucher has already been used."},
		{"discount", service.ErrDiscountExceedsTotal, http.StatusUnprocessableEntity, service.ErrDiscountExceedsTotal.Error()},
		{"unknown product", service.ErrProductNotFound, http.StatusUnprocessableEntity, "Product not found"},
		{"cart", &cart.ValidationError{Index: 0, Field: "quantity", Reason: "must be greater than zero"}, http.StatusUnprocessableEntity, "Validation failed"},
		{"infra", &service.TransactionFailedError{Cause: errors.New("deadlock detected")}, http.StatusInternalServerError, "An error occurred while processing the sale."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newEngine(&stubSales{submitErr: tc.err}, &stubVouchers{}, &stubProducts{}, false)
			w := send(r, http.MethodPost, "/v1/sales", validSale)
			assert.Equal(t, tc.status, w.Code)
			body := decodeDetail(t, w)
			assert.Equal(t, tc.detail, body["detail"])
			assert.NotContains(t, body, "error")
		})
	}
}

func TestSubmitSale_ExposesCauseInDevelopment(t *testing.T) {
	err := &service.TransactionFailedError{Cause: errors.New("deadlock detected")}
	w := send(newEngine(&stubSales{submitErr: err}, &stubVouchers{}, &stubProducts{}, true), http.MethodPost, "/v1/sales", validSale)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "deadlock detected", decodeDetail(t, w)["error"])
}

func TestSubmitSale_RequestValidation(t *testing.T) {
	sales := &stubSales{}
	r := newEngine(sales, &stubVouchers{}, &stubProducts{}, false)

	w := send(r, http.MethodPost, "/v1/sales", `{"products": [`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = send(r, http.MethodPost, "/v1/sales", `{"products": [], "employee_id": 3, "userId": 9, "paymentMethod": "Cash"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = send(r, http.MethodPost, "/v1/sales", `{"products": [{"id": 1, "quantity": 1, "selling_price": -5}], "employee_id": 3, "userId": 9, "paymentMethod": "Cash"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = send(r, http.MethodPost, "/v1/sales", `{"products": [{"id": 1, "quantity": 1}], "employee_id": 3, "userId": 9, "paymentMethod": "Cash", "custom_discount_type": "bogus"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = send(r, http.MethodPost, "/v1/sales", `{"products": [{"id": 1, "quantity": 1}], "employee_id": 3, "userId": 9, "paymentMethod": "Cash", "custom_discount": -10}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	assert.Nil(t, sales.got, "service must not be called")
}

func TestGetSale(t *testing.T) {
	r := newEngine(&stubSales{}, &stubVouchers{}, &stubProducts{}, false)

	assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/v1/sales/7", nil).Code)
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodGet, "/v1/sales/8", nil).Code)
	assert.Equal(t, http.StatusBadRequest, send(r, http.MethodGet, "/v1/sales/abc", nil).Code)
}

// ── Vouchers ──────────────────────────────────────────────────────────────────

func TestVoucherLookup(t *testing.T) {
	ok := send(newEngine(&stubSales{}, &stubVouchers{}, &stubProducts{}, false), http.MethodGet, "/v1/vouchers/lookup?code=VC-8K2QZ", nil)
	require.Equal(t, http.StatusOK, ok.Code)
	assert.JSONEq(t, `{"voucher":{"id":3,"code":"VC-8K2QZ","amount":"1000","category_name":"Rs. 1000"}}`, ok.Body.String())

	missing := send(newEngine(&stubSales{}, &stubVouchers{err: service.ErrVoucherNotFound}, &stubProducts{}, false), http.MethodGet, "/v1/vouchers/lookup?code=VC-00000", nil)
	assert.Equal(t, http.StatusNotFound, missing.Code)
	assert.Equal(t, "Invalid voucher code.", decodeDetail(t, missing)["detail"])

	used := send(newEngine(&stubSales{}, &stubVouchers{err: service.ErrVoucherAlreadyUsed}, &stubProducts{}, false), http.MethodGet, "/v1/vouchers/lookup?code=VC-00000", nil)
	assert.Equal(t, http.StatusConflict, used.Code)

	empty := send(newEngine(&stubSales{}, &stubVouchers{}, &stubProducts{}, false), http.MethodGet, "/v1/vouchers/lookup", nil)
	assert.Equal(t, http.StatusBadRequest, empty.Code)
}

func TestVoucherAdmin(t *testing.T) {
	r := newEngine(&stubSales{}, &stubVouchers{}, &stubProducts{}, false)

	w := send(r, http.MethodPost, "/v1/vouchers", map[string]int{"voucher_category_id": 1, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code)
	var created dto.CreateVouchersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Len(t, created.Vouchers, 2)

	w = send(r, http.MethodPost, "/v1/vouchers", map[string]int{"voucher_category_id": 1, "quantity": 5000})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	assert.Equal(t, http.StatusNoContent, send(r, http.MethodDelete, "/v1/vouchers/1", nil).Code)

	locked := newEngine(&stubSales{}, &stubVouchers{err: service.ErrVoucherNotDeletable}, &stubProducts{}, false)
	assert.Equal(t, http.StatusConflict, send(locked, http.MethodDelete, "/v1/vouchers/1", nil).Code)

	broken := newEngine(&stubSales{}, &stubVouchers{err: errors.New("db down")}, &stubProducts{}, false)
	w = send(broken, http.MethodGet, "/v1/voucher-categories", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Internal server error", decodeDetail(t, w)["detail"])
}

// ── Products ──────────────────────────────────────────────────────────────────

func TestProductLookup(t *testing.T) {
	found := &stubProducts{resp: &dto.ProductLookupResponse{
		Product:      &dto.ProductLookupItem{ID: 1, Name: "pen"},
		Products:     []dto.ProductLookupItem{},
		ColorOptions: []dto.ColorOption{},
	}}
	w := send(newEngine(&stubSales{}, &stubVouchers{}, found, false), http.MethodGet, "/v1/products/lookup?barcode=479", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pen", decodeDetail(t, w)["product"].(map[string]interface{})["name"])

	w = send(newEngine(&stubSales{}, &stubVouchers{}, &stubProducts{}, false), http.MethodGet, "/v1/products/lookup?barcode=479", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ── Health ────────────────────────────────────────────────────────────────────

func TestHealth_WithoutRedis(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	r := gin.New()
	r.GET("/health", Health(db, nil))
	w := send(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"db":"connected","redis":"disabled"}`, w.Body.String())
}
