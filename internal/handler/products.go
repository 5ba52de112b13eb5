package handler

import (
	"errors"
	"net/http"

	"hbpos/internal/apierror"
	"hbpos/internal/service"

	"github.com/gin-gonic/gin"
)

type ProductsHandler struct{ svc service.ProductService }

func NewProductsHandler(svc service.ProductService) *ProductsHandler {
	return &ProductsHandler{svc: svc}
}

// Lookup godoc
// @Summary      Look up a product by barcode
// @Description  Matches barcode or product code. Color variants sharing a barcode come back as products plus color_options.
// @Tags         products
// @Produce      json
// @Security     BearerAuth
// @Param        barcode query    string true "Barcode or product code"
// @Success      200     {object} dto.ProductLookupResponse
// @Failure      404     {object} apierror.APIError
// @Router       /v1/products/lookup [get]
func (h *ProductsHandler) Lookup(c *gin.Context) {
	barcode := c.Query("barcode")
	if barcode == "" {
		c.JSON(http.StatusBadRequest, apierror.New("Barcode is required."))
		return
	}
	resp, err := h.svc.LookupByBarcode(c.Request.Context(), barcode)
	if errors.Is(err, service.ErrProductNotFound) {
		c.JSON(http.StatusNotFound, apierror.New(err.Error()))
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
