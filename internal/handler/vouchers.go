package handler

import (
	"errors"
	"net/http"

	"hbpos/internal/apierror"
	"hbpos/internal/dto"
	"hbpos/internal/service"

	"github.com/gin-gonic/gin"
)

type VouchersHandler struct{ svc service.VoucherService }

func NewVouchersHandler(svc service.VoucherService) *VouchersHandler {
	return &VouchersHandler{svc: svc}
}

// Lookup godoc
// @Summary      Look up a voucher for redemption
// @Description  Resolves a voucher code scanned at the till. Used vouchers are rejected.
// @Tags         vouchers
// @Produce      json
// @Security     BearerAuth
// @Param        code query    string true "Voucher code, e.g. VC-8K2QZ"
// @Success      200  {object} dto.VoucherLookupResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError
// @Router       /v1/vouchers/lookup [get]
func (h *VouchersHandler) Lookup(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, apierror.New("Voucher code is required."))
		return
	}
	item, err := h.svc.LookupByCode(c.Request.Context(), code)
	switch {
	case errors.Is(err, service.ErrVoucherNotFound), errors.Is(err, service.ErrVoucherCategoryNotFound):
		c.JSON(http.StatusNotFound, apierror.New(service.ErrVoucherNotFound.Error()))
	case errors.Is(err, service.ErrVoucherAlreadyUsed):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case err != nil:
		_ = c.Error(err)
	default:
		c.JSON(http.StatusOK, dto.VoucherLookupResponse{Voucher: *item})
	}
}

// ListCategories godoc
// @Summary      List voucher categories
// @Description  Categories ordered by amount, with total and available voucher counts.
// @Tags         vouchers
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} dto.VoucherCategoryResponse
// @Router       /v1/voucher-categories [get]
func (h *VouchersHandler) ListCategories(c *gin.Context) {
	list, err := h.svc.ListCategories(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// CreateCategory godoc
// @Summary      Create a voucher category
// @Tags         vouchers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CreateVoucherCategoryRequest true "Category"
// @Success      201  {object} dto.VoucherCategoryResponse
// @Failure      422  {object} apierror.ValidationError
// @Router       /v1/voucher-categories [post]
func (h *VouchersHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateVoucherCategoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateCategory(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Create godoc
// @Summary      Create vouchers
// @Description  Generates a batch of unissued vouchers with unique VC-XXXXX codes.
// @Tags         vouchers
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body     dto.CreateVouchersRequest true "Category and quantity"
// @Success      201  {object} dto.CreateVouchersResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.ValidationError
// @Failure      503  {object} apierror.APIError
// @Router       /v1/vouchers [post]
func (h *VouchersHandler) Create(c *gin.Context) {
	var req dto.CreateVouchersRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateVouchers(c.Request.Context(), req)
	switch {
	case errors.Is(err, service.ErrVoucherCategoryNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrCodeGenerationExhausted):
		c.JSON(http.StatusServiceUnavailable, apierror.New("Could not generate unique voucher codes. Try again."))
	case err != nil:
		_ = c.Error(err)
	default:
		c.JSON(http.StatusCreated, resp)
	}
}

// Delete godoc
// @Summary      Delete an unissued voucher
// @Tags         vouchers
// @Security     BearerAuth
// @Param        id path int true "Voucher ID"
// @Success      204
// @Failure      404 {object} apierror.APIError
// @Failure      409 {object} apierror.APIError
// @Router       /v1/vouchers/{id} [delete]
func (h *VouchersHandler) Delete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	err := h.svc.DeleteVoucher(c.Request.Context(), id)
	switch {
	case errors.Is(err, service.ErrVoucherNotFound):
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
	case errors.Is(err, service.ErrVoucherNotDeletable):
		c.JSON(http.StatusConflict, apierror.New(err.Error()))
	case err != nil:
		_ = c.Error(err)
	default:
		c.Status(http.StatusNoContent)
	}
}
