package service

import (
	"context"
	"strings"
	"time"

	"hbpos/internal/dto"
	"hbpos/internal/infra"
	"hbpos/internal/model"
	"hbpos/internal/repository"
)

const productLookupTTL = 4 * time.Hour

// ProductService serves the POS barcode scan.
type ProductService interface {
	// LookupByBarcode matches barcode or code. One match fills Product;
	// several (color variants sharing a barcode) fill Products.
	LookupByBarcode(ctx context.Context, barcode string) (*dto.ProductLookupResponse, error)

	// InvalidateLookup drops cached lookups for the given products.
	InvalidateLookup(ctx context.Context, products ...*model.Product)
}

type productService struct {
	repo  repository.ProductRepository
	cache *infra.JSONCache
}

func NewProductService(repo repository.ProductRepository, cache *infra.JSONCache) ProductService {
	return &productService{repo: repo, cache: cache}
}

func productLookupKey(value string) string { return "product:lookup:" + value }

func (s *productService) LookupByBarcode(ctx context.Context, barcode string) (*dto.ProductLookupResponse, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, ErrProductNotFound
	}

	var cached dto.ProductLookupResponse
	if s.cache.Get(ctx, productLookupKey(barcode), &cached) {
		return &cached, nil
	}

	products, err := s.repo.FindByBarcodeOrCode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, ErrProductNotFound
	}

	resp := &dto.ProductLookupResponse{
		Products:     []dto.ProductLookupItem{},
		ColorOptions: colorOptions(products),
	}
	if len(products) == 1 {
		item := productToLookupItem(&products[0])
		resp.Product = &item
	} else {
		for i := range products {
			resp.Products = append(resp.Products, productToLookupItem(&products[i]))
		}
	}

	s.cache.Set(ctx, productLookupKey(barcode), resp, productLookupTTL)
	return resp, nil
}

func (s *productService) InvalidateLookup(ctx context.Context, products ...*model.Product) {
	var keys []string
	for _, p := range products {
		if p.Barcode != "" {
			keys = append(keys, productLookupKey(p.Barcode))
		}
		if p.Code != "" && p.Code != p.Barcode {
			keys = append(keys, productLookupKey(p.Code))
		}
	}
	s.cache.Delete(ctx, keys...)
}

// colorOptions lists one entry per distinct color, first product wins.
func colorOptions(products []model.Product) []dto.ColorOption {
	out := []dto.ColorOption{}
	seen := make(map[int64]bool)
	for _, p := range products {
		if p.ColorID == nil || seen[*p.ColorID] {
			continue
		}
		seen[*p.ColorID] = true
		opt := dto.ColorOption{ProductID: p.ID, ColorID: *p.ColorID}
		if p.Color != nil {
			name := p.Color.Name
			opt.ColorName = &name
		}
		out = append(out, opt)
	}
	return out
}

func productToLookupItem(p *model.Product) dto.ProductLookupItem {
	item := dto.ProductLookupItem{
		ID:            p.ID,
		Name:          p.Name,
		Barcode:       p.Barcode,
		Code:          p.Code,
		SellingPrice:  p.SellingPrice,
		CostPrice:     p.CostPrice,
		StockQuantity: p.StockQuantity,
		ColorID:       p.ColorID,
	}
	if p.ExpireDate != nil {
		d := p.ExpireDate.Format("2006-01-02")
		item.ExpireDate = &d
	}
	if p.Color != nil {
		name := p.Color.Name
		item.ColorName = &name
	}
	return item
}
