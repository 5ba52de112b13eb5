package handler

import (
	"errors"
	"net/http"

	"hbpos/internal/apierror"
	"hbpos/internal/cart"
	"hbpos/internal/dto"
	"hbpos/internal/pricing"
	"hbpos/internal/service"

	"github.com/gin-gonic/gin"
)

const saleCompletedMessage = "Sale completed successfully."

type SalesHandler struct {
	svc service.SaleService
	// exposeErrors adds the underlying cause to 500 responses (development only).
	exposeErrors bool
}

func NewSalesHandler(svc service.SaleService, exposeErrors bool) *SalesHandler {
	return &SalesHandler{svc: svc, exposeErrors: exposeErrors}
}

// Submit godoc
// @Summary      Submit a sale
// @Description  Records a sale atomically: decrements stock, issues purchased vouchers, redeems a payment voucher and writes the order code.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.SubmitSaleRequest true "Cart and payment"
// @Success      201  {object} dto.SubmitSaleResponse
// @Failure      400  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Failure      423  {object} apierror.APIError "Insufficient stock or vouchers, expired product, used voucher"
// @Failure      500  {object} apierror.APIError
// @Router       /v1/sales [post]
func (h *SalesHandler) Submit(c *gin.Context) {
	var req dto.SubmitSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}

	sale, err := h.svc.Submit(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.SubmitSaleResponse{Message: saleCompletedMessage, Sale: *sale})
}

// Get godoc
// @Summary      Get a sale
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        id  path     int true "Sale ID"
// @Success      200 {object} dto.SaleResponse
// @Failure      404 {object} apierror.APIError
// @Router       /v1/sales/{id} [get]
func (h *SalesHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	sale, err := h.svc.GetSale(c.Request.Context(), id)
	if errors.Is(err, service.ErrSaleNotFound) {
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *SalesHandler) writeError(c *gin.Context, err error) {
	var (
		invalid  *cart.ValidationError
		customer *service.CustomerError
		failed   *service.TransactionFailedError
	)
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(map[string]string{
			invalid.Path(): invalid.Reason,
		}))
	case service.IsConflict(err):
		c.JSON(http.StatusLocked, apierror.New(err.Error()))
	case errors.Is(err, service.ErrDiscountExceedsTotal),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrVoucherNotFound),
		errors.Is(err, service.ErrVoucherCategoryNotFound),
		errors.Is(err, pricing.ErrUnknownCustomDiscountType):
		c.JSON(http.StatusUnprocessableEntity, apierror.New(err.Error()))
	case errors.As(err, &customer):
		c.JSON(http.StatusInternalServerError, apierror.NewServer("Failed to save customer details.", customer.Cause, h.exposeErrors))
	case errors.As(err, &failed):
		c.JSON(http.StatusInternalServerError, apierror.NewServer(failed.Error(), failed.Cause, h.exposeErrors))
	default:
		c.JSON(http.StatusInternalServerError, apierror.NewServer("An error occurred while processing the sale.", err, h.exposeErrors))
	}
}
