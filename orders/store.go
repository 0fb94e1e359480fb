package orders

import (
	"context"
	"time"

	"toolhaus/models"
)

// Store is the transactional document boundary the order service
// runs against. The mongo implementation is the production store;
// tests use an in-memory serializable store.
type Store interface {
	// InTransaction runs fn atomically: either every document write
	// issued through fn commits, or none do. fn must pass the context
	// it receives to every store call so the operations join the
	// transaction. fn may be re-invoked on conflict, so it must be
	// safe to re-run from scratch.
	InTransaction(ctx context.Context, fn func(txCtx context.Context) error) error

	// FindProduct returns (nil, nil) when the product does not exist.
	FindProduct(ctx context.Context, productID string) (*models.Product, error)

	// AdjustStock applies a relative stockCount change. Negative
	// deltas are conditional on sufficient stock and fail rather than
	// drive the count below zero.
	AdjustStock(ctx context.Context, productID string, delta int) error

	InsertOrder(ctx context.Context, order *models.Order) error

	// FindOrder returns (nil, nil) when no such order exists.
	FindOrder(ctx context.Context, orderID string) (*models.Order, error)

	FindOrdersByUser(ctx context.Context, userID string) ([]models.Order, error)

	MarkOrderCancelled(ctx context.Context, orderID string, at time.Time) error
}
