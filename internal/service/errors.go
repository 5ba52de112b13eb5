package service

import (
	"errors"
	"fmt"
	"time"
)

// ── Conflict errors ──────────────────────────────────────────────────────────
// Returned from inside the sale transaction; each one rolls the whole sale back.

type InsufficientStockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for product: %s (%d available)", e.Name, e.Available)
}

type ProductExpiredError struct {
	ProductID  int64
	Name       string
	ExpireDate time.Time
}

func (e *ProductExpiredError) Error() string {
	return fmt.Sprintf("The product '%s' has expired (Expiration Date: %s).", e.Name, e.ExpireDate.Format("2006-01-02"))
}

type InsufficientVouchersError struct {
	CategoryID int64
	Requested  int
	Available  int
}

func (e *InsufficientVouchersError) Error() string {
	return fmt.Sprintf("Insufficient vouchers available. Only %d available.", e.Available)
}

var (
	ErrVoucherNotFound         = errors.New("Invalid voucher code.")
	ErrVoucherAlreadyUsed      = errors.New("This voucher has already been used.")
	ErrVoucherNotDeletable     = errors.New("Only unissued, unused vouchers can be deleted.")
	ErrVoucherCategoryNotFound = errors.New("Voucher category not found.")
	ErrCodeGenerationExhausted = errors.New("could not generate a unique voucher code")
	ErrProductNotFound         = errors.New("Product not found")
	ErrSaleNotFound            = errors.New("Sale not found")
	ErrDiscountExceedsTotal    = errors.New("Discount cannot exceed the total amount.")
)

// ── Infrastructure errors ────────────────────────────────────────────────────

// CustomerError wraps a failure of the customer upsert. Nothing was written.
type CustomerError struct{ Cause error }

func (e *CustomerError) Error() string { return "customer upsert failed: " + e.Cause.Error() }
func (e *CustomerError) Unwrap() error { return e.Cause }

// TransactionFailedError wraps anything unexpected that aborted a sale.
type TransactionFailedError struct{ Cause error }

func (e *TransactionFailedError) Error() string {
	return "An error occurred while processing the sale."
}

func (e *TransactionFailedError) Unwrap() error { return e.Cause }

// IsConflict reports whether err is a business conflict the cashier can act on.
func IsConflict(err error) bool {
	var (
		stock    *InsufficientStockError
		expired  *ProductExpiredError
		vouchers *InsufficientVouchersError
	)
	return errors.As(err, &stock) ||
		errors.As(err, &expired) ||
		errors.As(err, &vouchers) ||
		errors.Is(err, ErrVoucherAlreadyUsed)
}
