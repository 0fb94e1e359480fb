package orders

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound means the cancellation or lookup target does
	// not exist (or belongs to another user).
	ErrOrderNotFound = errors.New("order not found")

	// ErrTransactionConflict surfaces after the bounded retry loop
	// exhausts its attempts under contention. Transient; the caller
	// may offer a manual retry.
	ErrTransactionConflict = errors.New("order transaction conflict, please try again")

	// ErrTimeout surfaces when an operation exceeds its deadline.
	ErrTimeout = errors.New("order operation timed out, please try again")

	// ErrEmptyOrder rejects drafts with no line items.
	ErrEmptyOrder = errors.New("order has no items")
)

// ProductNotFoundError reports a line item referencing a product that
// does not exist at transaction time.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InsufficientStockError reports the exact shortfall so the UI can
// prompt a quantity reduction.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available, %d requested",
		e.ProductID, e.Available, e.Requested)
}

// InvalidStateError reports a cancellation attempt on an order whose
// status is terminal for cancellation (shipped, delivered, or already
// cancelled).
type InvalidStateError struct {
	Status string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("order cannot be cancelled from status %q", e.Status)
}

// InvalidQuantityError rejects non-positive line quantities before
// the transaction starts.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %d for product %s", e.Quantity, e.ProductID)
}
