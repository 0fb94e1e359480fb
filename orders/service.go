package orders

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"toolhaus/models"
	"toolhaus/utils"
)

const defaultTimeout = 5 * time.Second

// Event describes a committed order transaction. StockAfter carries
// the post-commit stockCount per touched product, for the display
// caches and live feeds.
type Event struct {
	Kind       string // "order-placed" or "order-cancelled"
	Order      *models.Order
	StockAfter map[string]int
}

const (
	EventOrderPlaced    = "order-placed"
	EventOrderCancelled = "order-cancelled"
)

// PostCommitHook runs after a transaction commits. Hooks are
// best-effort: they run detached from the request and their failures
// never roll back or fail the order.
type PostCommitHook func(event Event)

// CancelResult is returned to the order-history UI on cancellation.
type CancelResult struct {
	Message   string `json:"message"`
	Restocked bool   `json:"restocked"`
}

// Service owns the invariant that reserved stock never exceeds
// available stock across concurrent placements and cancellations.
// All stockCount mutations go through Store transactions.
type Service struct {
	store   Store
	timeout time.Duration
	hooks   []PostCommitHook
}

func NewService(store Store) *Service {
	return &Service{store: store, timeout: defaultTimeout}
}

// AddPostCommitHook registers a hook. Not safe to call once the
// service is serving requests.
func (s *Service) AddPostCommitHook(hook PostCommitHook) {
	s.hooks = append(s.hooks, hook)
}

// NewOrderID builds the externally visible, time-derived order id.
// It is human-legible rather than collision-proof; the document _id
// is a UUID and carries the uniqueness guarantee.
func NewOrderID(t time.Time) string {
	return "ORD-" + t.Format("20060102-150405") + "-" + utils.GenerateRandomDigitString(4)
}

// PlaceOrder validates and prices every line item inside a single
// transaction that decrements stock and creates the order document.
// Any per-item failure aborts the whole transaction; no partial
// decrements are ever visible.
func (s *Service) PlaceOrder(ctx context.Context, draft *models.OrderDraft) (string, error) {
	if len(draft.Items) == 0 {
		return "", ErrEmptyOrder
	}
	for _, line := range draft.Items {
		if line.Quantity < 1 {
			return "", &InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}
	}

	now := time.Now()
	order := &models.Order{
		ID:          utils.GetUUID(),
		OrderID:     NewOrderID(now),
		UserID:      draft.UserID,
		Address:     draft.Address,
		Subtotal:    draft.Subtotal,
		Shipping:    draft.Shipping,
		Tax:         draft.Tax,
		Discount:    draft.Discount,
		TotalAmount: draft.Total,
		Status:      models.OrderStatusPending,
		CreatedAt:   now,
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stockAfter := make(map[string]int)
	err := s.store.InTransaction(ctx, func(txCtx context.Context) error {
		// The transaction body may be re-run on conflict; rebuild the
		// derived state from the fresh snapshot each attempt.
		order.Items = order.Items[:0]
		clear(stockAfter)

		for _, line := range draft.Items {
			product, err := s.store.FindProduct(txCtx, line.ProductID)
			if err != nil {
				return fmt.Errorf("read product %s: %w", line.ProductID, err)
			}
			if product == nil {
				return &ProductNotFoundError{ProductID: line.ProductID}
			}
			if product.StockCount < line.Quantity {
				return &InsufficientStockError{
					ProductID: line.ProductID,
					Available: product.StockCount,
					Requested: line.Quantity,
				}
			}
			if err := s.store.AdjustStock(txCtx, line.ProductID, -line.Quantity); err != nil {
				return fmt.Errorf("decrement stock for %s: %w", line.ProductID, err)
			}
			order.Items = append(order.Items, models.OrderItem{
				ProductID: line.ProductID,
				Name:      product.Name,
				Image:     product.Image,
				UnitPrice: product.Price,
				Quantity:  line.Quantity,
			})
			stockAfter[line.ProductID] = product.StockCount - line.Quantity
		}

		return s.store.InsertOrder(txCtx, order)
	})
	if err != nil {
		return "", timeoutOr(ctx, err)
	}

	s.firePostCommit(Event{Kind: EventOrderPlaced, Order: order, StockAfter: stockAfter})
	return order.OrderID, nil
}

// CancelOrder moves a pending or processing order to cancelled and
// restores its recorded item quantities, all in one transaction.
// Restoration is additive relative to the stock read inside the same
// transaction attempt, so it composes with concurrent mutations on
// the same products. An empty userID skips the ownership check
// (admin path).
func (s *Service) CancelOrder(ctx context.Context, orderID, userID string) (*CancelResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var cancelled *models.Order
	stockAfter := make(map[string]int)
	err := s.store.InTransaction(ctx, func(txCtx context.Context) error {
		clear(stockAfter)

		order, err := s.store.FindOrder(txCtx, orderID)
		if err != nil {
			return fmt.Errorf("read order %s: %w", orderID, err)
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if userID != "" && order.UserID != userID {
			return ErrOrderNotFound
		}
		if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusProcessing {
			return &InvalidStateError{Status: order.Status}
		}

		now := time.Now()
		if err := s.store.MarkOrderCancelled(txCtx, orderID, now); err != nil {
			return fmt.Errorf("mark order cancelled: %w", err)
		}

		for _, item := range order.Items {
			product, err := s.store.FindProduct(txCtx, item.ProductID)
			if err != nil {
				return fmt.Errorf("read product %s: %w", item.ProductID, err)
			}
			if product == nil {
				// Product removed from the catalog since purchase;
				// nothing to restore into.
				continue
			}
			if err := s.store.AdjustStock(txCtx, item.ProductID, item.Quantity); err != nil {
				return fmt.Errorf("restore stock for %s: %w", item.ProductID, err)
			}
			stockAfter[item.ProductID] = product.StockCount + item.Quantity
		}

		order.Status = models.OrderStatusCancelled
		order.CancelledAt = &now
		cancelled = order
		return nil
	})
	if err != nil {
		return nil, timeoutOr(ctx, err)
	}

	s.firePostCommit(Event{Kind: EventOrderCancelled, Order: cancelled, StockAfter: stockAfter})

	// stockAfter is empty when every product on the order has since
	// been removed from the catalog.
	if len(stockAfter) == 0 {
		return &CancelResult{Message: "Order cancelled", Restocked: false}, nil
	}
	return &CancelResult{Message: "Order cancelled and stock restored", Restocked: true}, nil
}

// GetOrders returns the user's order history, newest first. Not
// stock-transactional; may lag an in-flight transaction.
func (s *Service) GetOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.store.FindOrdersByUser(ctx, userID)
}

// GetOrder returns one order, scoped to its owner unless userID is
// empty (admin path).
func (s *Service) GetOrder(ctx context.Context, orderID, userID string) (*models.Order, error) {
	order, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil || (userID != "" && order.UserID != userID) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *Service) firePostCommit(event Event) {
	for _, hook := range s.hooks {
		go func(h PostCommitHook) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("orders: post-commit hook panic for %s %s: %v",
						event.Kind, event.Order.OrderID, r)
				}
			}()
			h(event)
		}(hook)
	}
}

func timeoutOr(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}
