package orders

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"toolhaus/models"
)

// memStore is a serializable in-memory Store: one mutex guards every
// transaction, and a snapshot taken at transaction start is restored
// on abort, so committed state is always all-or-nothing.
type memStore struct {
	mu       sync.Mutex
	products map[string]*models.Product
	orders   map[string]*models.Order
}

type memTxnKey struct{}

func newMemStore(products ...*models.Product) *memStore {
	m := &memStore{
		products: make(map[string]*models.Product),
		orders:   make(map[string]*models.Order),
	}
	for _, p := range products {
		cp := *p
		m.products[p.ProductID] = &cp
	}
	return m
}

func (m *memStore) InTransaction(ctx context.Context, fn func(context.Context) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prodSnap := make(map[string]*models.Product, len(m.products))
	for id, p := range m.products {
		cp := *p
		prodSnap[id] = &cp
	}
	orderSnap := make(map[string]*models.Order, len(m.orders))
	for id, o := range m.orders {
		cp := *o
		orderSnap[id] = &cp
	}

	if err := fn(context.WithValue(ctx, memTxnKey{}, true)); err != nil {
		m.products = prodSnap
		m.orders = orderSnap
		return err
	}
	return nil
}

// lock takes the store mutex unless the context already runs inside a
// transaction (which holds it).
func (m *memStore) lock(ctx context.Context) func() {
	if ctx.Value(memTxnKey{}) != nil {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memStore) FindProduct(ctx context.Context, productID string) (*models.Product, error) {
	defer m.lock(ctx)()
	p, ok := m.products[productID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) AdjustStock(ctx context.Context, productID string, delta int) error {
	defer m.lock(ctx)()
	p, ok := m.products[productID]
	if !ok {
		return errors.New("no such product")
	}
	if p.StockCount+delta < 0 {
		return errors.New("stock would go negative")
	}
	p.StockCount += delta
	return nil
}

func (m *memStore) InsertOrder(ctx context.Context, order *models.Order) error {
	defer m.lock(ctx)()
	cp := *order
	cp.Items = append([]models.OrderItem(nil), order.Items...)
	m.orders[order.OrderID] = &cp
	return nil
}

func (m *memStore) FindOrder(ctx context.Context, orderID string) (*models.Order, error) {
	defer m.lock(ctx)()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	cp := *o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return &cp, nil
}

func (m *memStore) FindOrdersByUser(ctx context.Context, userID string) ([]models.Order, error) {
	defer m.lock(ctx)()
	var list []models.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			list = append(list, *o)
		}
	}
	if list == nil {
		list = []models.Order{}
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

func (m *memStore) MarkOrderCancelled(ctx context.Context, orderID string, at time.Time) error {
	defer m.lock(ctx)()
	o, ok := m.orders[orderID]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = models.OrderStatusCancelled
	o.CancelledAt = &at
	return nil
}

func (m *memStore) stockOf(t *testing.T, productID string) int {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		t.Fatalf("product %s missing from store", productID)
	}
	return p.StockCount
}

func (m *memStore) setPrice(productID string, price float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[productID].Price = price
}

func drill(stock int) *models.Product {
	return &models.Product{
		ProductID:  "drill-01",
		Name:       "Cordless Drill",
		Price:      89.90,
		StockCount: stock,
	}
}

func draftFor(userID string, lines ...models.DraftItem) *models.OrderDraft {
	return &models.OrderDraft{
		UserID:   userID,
		Items:    lines,
		Subtotal: 100, Shipping: 5, Tax: 10, Total: 115,
		Address: models.Address{FullName: "A Buyer", Line1: "1 Main St", City: "Berlin", Postcode: "10115", Country: "DE"},
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	store := newMemStore(drill(10))
	svc := NewService(store)

	orderID, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "drill-01", Quantity: 3}))
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if !strings.HasPrefix(orderID, "ORD-") {
		t.Errorf("unexpected order id %q", orderID)
	}
	if got := store.stockOf(t, "drill-01"); got != 7 {
		t.Errorf("expected stock 7, got %d", got)
	}

	order, err := svc.GetOrder(context.Background(), orderID, "u1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.Status != models.OrderStatusPending {
		t.Errorf("expected status pending, got %s", order.Status)
	}
	if len(order.Items) != 1 || order.Items[0].UnitPrice != 89.90 || order.Items[0].Name != "Cordless Drill" {
		t.Errorf("order items did not echo product data: %+v", order.Items)
	}
	if order.TotalAmount != 115 {
		t.Errorf("expected total 115, got %v", order.TotalAmount)
	}
}

func TestPlaceOrder_ConcurrentNoOversell(t *testing.T) {
	store := newMemStore(drill(3))
	svc := NewService(store)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = svc.PlaceOrder(context.Background(), draftFor("u1",
				models.DraftItem{ProductID: "drill-01", Quantity: 2}))
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var shortfall *InsufficientStockError
		if !errors.As(err, &shortfall) {
			t.Fatalf("unexpected error: %v", err)
		}
		if shortfall.Requested != 2 {
			t.Errorf("shortfall requested = %d, want 2", shortfall.Requested)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly 1 success, got %d", successes)
	}
	if got := store.stockOf(t, "drill-01"); got != 1 {
		t.Errorf("expected final stock 1, got %d", got)
	}
}

func TestPlaceOrder_ConcurrentManyBuyers(t *testing.T) {
	const initial = 10
	store := newMemStore(drill(initial))
	svc := NewService(store)

	const buyers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), draftFor("u1",
				models.DraftItem{ProductID: "drill-01", Quantity: qty}))
			if err == nil {
				mu.Lock()
				sold += qty
				mu.Unlock()
			}
		}(1 + i%3)
	}
	wg.Wait()

	if sold > initial {
		t.Errorf("oversold: %d units against initial stock %d", sold, initial)
	}
	final := store.stockOf(t, "drill-01")
	if final < 0 {
		t.Errorf("negative stock %d", final)
	}
	if final != initial-sold {
		t.Errorf("stock accounting broken: final %d, initial %d, sold %d", final, initial, sold)
	}
}

func TestPlaceOrder_PartialFailureLeavesNoDecrements(t *testing.T) {
	store := newMemStore(
		&models.Product{ProductID: "p1", Name: "Hammer", Price: 10, StockCount: 5},
		&models.Product{ProductID: "p2", Name: "Saw", Price: 20, StockCount: 1},
		&models.Product{ProductID: "p3", Name: "Wrench", Price: 15, StockCount: 5},
	)
	svc := NewService(store)

	_, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "p1", Quantity: 2},
		models.DraftItem{ProductID: "p2", Quantity: 3},
		models.DraftItem{ProductID: "p3", Quantity: 1},
	))

	var shortfall *InsufficientStockError
	if !errors.As(err, &shortfall) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if shortfall.ProductID != "p2" || shortfall.Available != 1 || shortfall.Requested != 3 {
		t.Errorf("wrong shortfall details: %+v", shortfall)
	}
	for id, want := range map[string]int{"p1": 5, "p2": 1, "p3": 5} {
		if got := store.stockOf(t, id); got != want {
			t.Errorf("product %s: stock %d, want %d (no partial decrement)", id, got, want)
		}
	}
	if list, _ := svc.GetOrders(context.Background(), "u1"); len(list) != 0 {
		t.Errorf("expected no orders after aborted placement, got %d", len(list))
	}
}

func TestPlaceOrder_ProductNotFoundAbortsAll(t *testing.T) {
	store := newMemStore(drill(5))
	svc := NewService(store)

	_, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "drill-01", Quantity: 1},
		models.DraftItem{ProductID: "gone-99", Quantity: 1},
	))

	var notFound *ProductNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ProductNotFoundError, got %v", err)
	}
	if notFound.ProductID != "gone-99" {
		t.Errorf("wrong product id: %s", notFound.ProductID)
	}
	if got := store.stockOf(t, "drill-01"); got != 5 {
		t.Errorf("expected stock 5 unchanged, got %d", got)
	}
}

func TestPlaceOrder_ValidationErrors(t *testing.T) {
	svc := NewService(newMemStore(drill(5)))

	if _, err := svc.PlaceOrder(context.Background(), draftFor("u1")); !errors.Is(err, ErrEmptyOrder) {
		t.Errorf("empty draft: expected ErrEmptyOrder, got %v", err)
	}

	_, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "drill-01", Quantity: 0}))
	var badQty *InvalidQuantityError
	if !errors.As(err, &badQty) {
		t.Errorf("zero quantity: expected InvalidQuantityError, got %v", err)
	}
}

func TestCancelOrder_RestoresStock(t *testing.T) {
	store := newMemStore(drill(10))
	svc := NewService(store)

	orderID, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "drill-01", Quantity: 5}))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if got := store.stockOf(t, "drill-01"); got != 5 {
		t.Fatalf("expected stock 5 after placement, got %d", got)
	}

	result, err := svc.CancelOrder(context.Background(), orderID, "u1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !result.Restocked {
		t.Error("expected restocked result")
	}
	if got := store.stockOf(t, "drill-01"); got != 10 {
		t.Errorf("expected stock restored to 10, got %d", got)
	}

	order, err := svc.GetOrder(context.Background(), orderID, "u1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.Status != models.OrderStatusCancelled {
		t.Errorf("expected status cancelled, got %s", order.Status)
	}
	if order.CancelledAt == nil {
		t.Error("expected cancellation timestamp")
	}
}

func TestCancelOrder_TerminalStatesRefuseAndWriteNothing(t *testing.T) {
	for _, status := range []string{
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
	} {
		t.Run(status, func(t *testing.T) {
			store := newMemStore(drill(10))
			svc := NewService(store)

			orderID, err := svc.PlaceOrder(context.Background(), draftFor("u1",
				models.DraftItem{ProductID: "drill-01", Quantity: 2}))
			if err != nil {
				t.Fatalf("place: %v", err)
			}
			store.mu.Lock()
			store.orders[orderID].Status = status
			store.mu.Unlock()

			_, err = svc.CancelOrder(context.Background(), orderID, "u1")
			var badState *InvalidStateError
			if !errors.As(err, &badState) {
				t.Fatalf("expected InvalidStateError, got %v", err)
			}
			if badState.Status != status {
				t.Errorf("error carries status %q, want %q", badState.Status, status)
			}
			if got := store.stockOf(t, "drill-01"); got != 8 {
				t.Errorf("stock changed on refused cancellation: %d", got)
			}
			order, _ := svc.GetOrder(context.Background(), orderID, "u1")
			if order.Status != status {
				t.Errorf("order status changed on refused cancellation: %s", order.Status)
			}
		})
	}
}

func TestCancelOrder_ProcessingIsCancellable(t *testing.T) {
	store := newMemStore(drill(10))
	svc := NewService(store)

	orderID, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "drill-01", Quantity: 4}))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	store.mu.Lock()
	store.orders[orderID].Status = models.OrderStatusProcessing
	store.mu.Unlock()

	if _, err := svc.CancelOrder(context.Background(), orderID, "u1"); err != nil {
		t.Fatalf("expected processing order to cancel, got %v", err)
	}
	if got := store.stockOf(t, "drill-01"); got != 10 {
		t.Errorf("expected stock restored to 10, got %d", got)
	}
}

func TestCancelOrder_NotFoundAndOwnership(t *testing.T) {
	store := newMemStore(drill(10))
	svc := NewService(store)

	if _, err := svc.CancelOrder(context.Background(), "ORD-nope", "u1"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("missing order: expected ErrOrderNotFound, got %v", err)
	}

	orderID, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "drill-01", Quantity: 1}))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if _, err := svc.CancelOrder(context.Background(), orderID, "someone-else"); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("foreign order: expected ErrOrderNotFound, got %v", err)
	}
	if got := store.stockOf(t, "drill-01"); got != 9 {
		t.Errorf("stock changed on refused cancellation: %d", got)
	}
}

func TestCancelOrder_SkipsDeletedProducts(t *testing.T) {
	store := newMemStore(drill(10))
	svc := NewService(store)

	orderID, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "drill-01", Quantity: 2}))
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	store.mu.Lock()
	delete(store.products, "drill-01")
	store.mu.Unlock()

	result, err := svc.CancelOrder(context.Background(), orderID, "u1")
	if err != nil {
		t.Fatalf("expected cancellation to succeed with vanished product, got %v", err)
	}
	if result.Restocked {
		t.Error("nothing was restocked; result should say so")
	}
	order, _ := svc.GetOrder(context.Background(), orderID, "u1")
	if order.Status != models.OrderStatusCancelled {
		t.Errorf("expected cancelled, got %s", order.Status)
	}
}

func TestGetOrders_NewestFirst(t *testing.T) {
	store := newMemStore(drill(10))
	svc := NewService(store)

	var ids []string
	for i := 0; i < 3; i++ {
		id, err := svc.PlaceOrder(context.Background(), draftFor("u1",
			models.DraftItem{ProductID: "drill-01", Quantity: 1}))
		if err != nil {
			t.Fatalf("place %d: %v", i, err)
		}
		ids = append(ids, id)
	}

	// Spread the timestamps so the sort has something to bite on.
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store.mu.Lock()
	for i, id := range ids {
		store.orders[id].CreatedAt = base.Add(time.Duration(i) * time.Minute)
	}
	store.mu.Unlock()

	list, err := svc.GetOrders(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get orders: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len = %d, want 3", len(list))
	}
	for i := 0; i < len(list)-1; i++ {
		if list[i].CreatedAt.Before(list[i+1].CreatedAt) {
			t.Errorf("orders out of order at %d: %v before %v", i, list[i].CreatedAt, list[i+1].CreatedAt)
		}
	}
	if list[0].OrderID != ids[2] {
		t.Errorf("first order = %s, want most recent %s", list[0].OrderID, ids[2])
	}
}

func TestPriceImmutabilityAfterPlacement(t *testing.T) {
	store := newMemStore(drill(10))
	svc := NewService(store)

	orderID, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "drill-01", Quantity: 1}))
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	store.setPrice("drill-01", 199.99)

	order, err := svc.GetOrder(context.Background(), orderID, "u1")
	if err != nil {
		t.Fatalf("GetOrder: %v", err)
	}
	if order.Items[0].UnitPrice != 89.90 {
		t.Errorf("unit price changed with product price: %v", order.Items[0].UnitPrice)
	}
	if order.TotalAmount != 115 {
		t.Errorf("total changed with product price: %v", order.TotalAmount)
	}
}

func TestPostCommitHooksFireAfterPlacement(t *testing.T) {
	store := newMemStore(drill(10))
	svc := NewService(store)

	events := make(chan Event, 1)
	svc.AddPostCommitHook(func(e Event) { events <- e })
	// A panicking hook must not affect the order or other hooks.
	svc.AddPostCommitHook(func(e Event) { panic("boom") })

	orderID, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "drill-01", Quantity: 4}))
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	select {
	case e := <-events:
		if e.Kind != EventOrderPlaced {
			t.Errorf("event kind = %s", e.Kind)
		}
		if e.Order.OrderID != orderID {
			t.Errorf("event order = %s, want %s", e.Order.OrderID, orderID)
		}
		if e.StockAfter["drill-01"] != 6 {
			t.Errorf("event stockAfter = %d, want 6", e.StockAfter["drill-01"])
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for post-commit hook")
	}
}

// slowStore delays product reads past the service deadline.
type slowStore struct {
	*memStore
	delay time.Duration
}

func (s *slowStore) FindProduct(ctx context.Context, productID string) (*models.Product, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.memStore.FindProduct(ctx, productID)
}

func TestPlaceOrder_Timeout(t *testing.T) {
	store := &slowStore{memStore: newMemStore(drill(10)), delay: 200 * time.Millisecond}
	svc := NewService(store)
	svc.timeout = 20 * time.Millisecond

	_, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "drill-01", Quantity: 1}))
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("expected ErrTimeout, got %v", err)
	}
}

func TestNewOrderID(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	id := NewOrderID(ts)
	if !strings.HasPrefix(id, "ORD-20260314-092653-") {
		t.Errorf("unexpected order id %q", id)
	}
	if len(id) != len("ORD-20260314-092653-")+4 {
		t.Errorf("unexpected order id length: %q", id)
	}
}
