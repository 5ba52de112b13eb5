package dto

import "github.com/shopspring/decimal"

type ProductLookupItem struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Barcode       string          `json:"barcode"`
	Code          string          `json:"code"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	StockQuantity int             `json:"stock_quantity"`
	ExpireDate    *string         `json:"expire_date"`
	ColorID       *int64          `json:"color_id"`
	ColorName     *string         `json:"color_name"`
}

// ColorOption maps one color to the product variant that carries it.
type ColorOption struct {
	ProductID int64   `json:"product_id"`
	ColorID   int64   `json:"color_id"`
	ColorName *string `json:"color_name"`
}

// ProductLookupResponse holds either one Product or several color variants
// under Products. ColorOptions is always present, possibly empty.
type ProductLookupResponse struct {
	Product      *ProductLookupItem  `json:"product"`
	Products     []ProductLookupItem `json:"products"`
	ColorOptions []ColorOption       `json:"color_options"`
}
