package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"toolhaus/globals"
	"toolhaus/models"

	"github.com/julienschmidt/httprouter"
)

func authedRequest(method, target, body, userID string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if userID != "" {
		ctx := context.WithValue(req.Context(), globals.UserIDKey, userID)
		req = req.WithContext(ctx)
	}
	return req
}

func TestPlaceOrderHandler_Success(t *testing.T) {
	store := newMemStore(drill(10))
	h := NewHandler(NewService(store))

	cleared := ""
	h.ClearCart = func(ctx context.Context, userID string) error {
		cleared = userID
		return nil
	}

	body := `{"items":[{"productId":"drill-01","quantity":2}],"subtotal":179.8,"shipping":5,"tax":18,"totalAmount":202.8,"address":{"fullName":"A Buyer","line1":"1 Main St","city":"Berlin","postcode":"10115","country":"DE"}}`
	rec := httptest.NewRecorder()
	h.PlaceOrder(rec, authedRequest(http.MethodPost, "/api/orders", body, "u1"), nil)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OrderID string `json:"orderId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp.OrderID, "ORD-") {
		t.Errorf("unexpected order id %q", resp.OrderID)
	}
	if cleared != "u1" {
		t.Errorf("cart not cleared for buyer, got %q", cleared)
	}
	if got := store.stockOf(t, "drill-01"); got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}
}

func TestPlaceOrderHandler_InsufficientStock(t *testing.T) {
	h := NewHandler(NewService(newMemStore(drill(1))))

	body := `{"items":[{"productId":"drill-01","quantity":5}]}`
	rec := httptest.NewRecorder()
	h.PlaceOrder(rec, authedRequest(http.MethodPost, "/api/orders", body, "u1"), nil)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	var resp struct {
		Error     string `json:"error"`
		ProductID string `json:"productId"`
		Available int    `json:"available"`
		Requested int    `json:"requested"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Error != "insufficient stock" || resp.Available != 1 || resp.Requested != 5 {
		t.Errorf("unexpected body: %+v", resp)
	}
}

func TestPlaceOrderHandler_UnknownProduct(t *testing.T) {
	h := NewHandler(NewService(newMemStore(drill(5))))

	body := `{"items":[{"productId":"gone-99","quantity":1}]}`
	rec := httptest.NewRecorder()
	h.PlaceOrder(rec, authedRequest(http.MethodPost, "/api/orders", body, "u1"), nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// conflictStore simulates a store whose transactions keep colliding
// until the retry budget is spent.
type conflictStore struct {
	*memStore
}

func (s *conflictStore) InTransaction(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fmt.Errorf("%w (after 5 attempts): write conflict", ErrTransactionConflict)
}

func TestPlaceOrderHandler_ConflictExhaustionMapsTo503(t *testing.T) {
	h := NewHandler(NewService(&conflictStore{memStore: newMemStore(drill(10))}))

	body := `{"items":[{"productId":"drill-01","quantity":1}]}`
	rec := httptest.NewRecorder()
	h.PlaceOrder(rec, authedRequest(http.MethodPost, "/api/orders", body, "u1"), nil)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestPlaceOrderHandler_Unauthorized(t *testing.T) {
	h := NewHandler(NewService(newMemStore(drill(5))))

	rec := httptest.NewRecorder()
	h.PlaceOrder(rec, authedRequest(http.MethodPost, "/api/orders", `{}`, ""), nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCancelOrderHandler_Statuses(t *testing.T) {
	store := newMemStore(drill(10))
	svc := NewService(store)
	h := NewHandler(svc)

	orderID, err := svc.PlaceOrder(context.Background(), draftFor("u1",
		models.DraftItem{ProductID: "drill-01", Quantity: 2}))
	if err != nil {
		t.Fatalf("place: %v", err)
	}

	ps := httprouter.Params{{Key: "orderid", Value: orderID}}

	rec := httptest.NewRecorder()
	h.CancelOrder(rec, authedRequest(http.MethodPost, "/api/orders/"+orderID+"/cancel", "", "u1"), ps)
	if rec.Code != http.StatusOK {
		t.Fatalf("cancel status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Second cancellation hits the terminal state.
	rec = httptest.NewRecorder()
	h.CancelOrder(rec, authedRequest(http.MethodPost, "/api/orders/"+orderID+"/cancel", "", "u1"), ps)
	if rec.Code != http.StatusConflict {
		t.Errorf("repeat cancel status = %d, want 409", rec.Code)
	}

	rec = httptest.NewRecorder()
	missing := httprouter.Params{{Key: "orderid", Value: "ORD-nope"}}
	h.CancelOrder(rec, authedRequest(http.MethodPost, "/api/orders/ORD-nope/cancel", "", "u1"), missing)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing cancel status = %d, want 404", rec.Code)
	}
}
