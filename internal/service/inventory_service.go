package service

import (
	"context"

	"hbpos/internal/model"
	"hbpos/internal/repository"

	"gorm.io/gorm"
)

// InventoryService is the stock ledger. Both operations run inside the
// caller's sale transaction.
type InventoryService interface {
	// LockProducts locks every referenced product FOR UPDATE in ascending id
	// order and returns the ones that exist, keyed by id.
	LockProducts(ctx context.Context, tx *gorm.DB, ids []int64) (map[int64]*model.Product, error)

	// ReserveAndDecrement checks stock and expiry, decrements stock and
	// appends one Sold stock transaction.
	ReserveAndDecrement(ctx context.Context, tx *gorm.DB, productID int64, qty int) error
}

type inventoryService struct {
	products repository.ProductRepository
	ledger   repository.StockTransactionRepository
	clock    Clock
}

func NewInventoryService(
	products repository.ProductRepository,
	ledger repository.StockTransactionRepository,
	clock Clock,
) InventoryService {
	if clock == nil {
		clock = SystemClock
	}
	return &inventoryService{products: products, ledger: ledger, clock: clock}
}

func (s *inventoryService) LockProducts(ctx context.Context, tx *gorm.DB, ids []int64) (map[int64]*model.Product, error) {
	list, err := s.products.LockByIDsTx(tx, sortedIDs(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[int64]*model.Product, len(list))
	for i := range list {
		out[list[i].ID] = &list[i]
	}
	return out, nil
}

func (s *inventoryService) ReserveAndDecrement(ctx context.Context, tx *gorm.DB, productID int64, qty int) error {
	// Re-reads the row already locked by LockProducts so repeated lines of
	// the same product see the stock left by the previous one.
	rows, err := s.products.LockByIDsTx(tx, []int64{productID})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return ErrProductNotFound
	}
	p := rows[0]
	now := s.clock()

	if p.StockQuantity-qty < 0 {
		return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Available: p.StockQuantity, Requested: qty}
	}
	if p.IsExpired(now) {
		return &ProductExpiredError{ProductID: p.ID, Name: p.Name, ExpireDate: *p.ExpireDate}
	}

	ok, err := s.products.DecrementStockTx(tx, p.ID, qty)
	if err != nil {
		return err
	}
	if !ok {
		return &InsufficientStockError{ProductID: p.ID, Name: p.Name, Available: p.StockQuantity, Requested: qty}
	}

	return s.ledger.CreateTx(tx, &model.StockTransaction{
		ProductID:       p.ID,
		TransactionType: model.StockTransactionSold,
		Quantity:        qty,
		TransactionDate: now,
		SupplierID:      p.SupplierID,
	})
}
