package orders

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"toolhaus/models"
	"toolhaus/utils"

	"github.com/julienschmidt/httprouter"
)

// Handler exposes the order service over HTTP. ClearCart, when set,
// empties the buyer's cart after a successful placement; a failure
// there is logged and never fails the order.
type Handler struct {
	Svc       *Service
	ClearCart func(ctx context.Context, userID string) error
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// POST /api/orders
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var draft models.OrderDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		log.Println("PlaceOrder decode error:", err)
		http.Error(w, "Invalid order payload", http.StatusBadRequest)
		return
	}
	draft.UserID = userID

	orderID, err := h.Svc.PlaceOrder(r.Context(), &draft)
	if err != nil {
		writeOrderError(w, err)
		return
	}

	if h.ClearCart != nil {
		if err := h.ClearCart(r.Context(), userID); err != nil {
			log.Println("PlaceOrder cart cleanup error:", err)
		}
	}

	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"orderId": orderID})
}

// POST /api/orders/:orderid/cancel
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.Svc.CancelOrder(r.Context(), ps.ByName("orderid"), userID)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, result)
}

// GET /api/orders
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.Svc.GetOrders(r.Context(), userID)
	if err != nil {
		log.Println("GetOrders error:", err)
		http.Error(w, "Could not retrieve orders", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, list)
}

// GET /api/orders/:orderid
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	order, err := h.Svc.GetOrder(r.Context(), ps.ByName("orderid"), userID)
	if err != nil {
		writeOrderError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, order)
}

// writeOrderError maps the order error taxonomy onto HTTP statuses.
func writeOrderError(w http.ResponseWriter, err error) {
	var notFound *ProductNotFoundError
	var shortfall *InsufficientStockError
	var badState *InvalidStateError
	var badQty *InvalidQuantityError

	switch {
	case errors.As(err, &notFound):
		utils.RespondWithJSON(w, http.StatusNotFound, utils.M{
			"error":     "item unavailable",
			"productId": notFound.ProductID,
		})
	case errors.As(err, &shortfall):
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{
			"error":     "insufficient stock",
			"productId": shortfall.ProductID,
			"available": shortfall.Available,
			"requested": shortfall.Requested,
		})
	case errors.As(err, &badState):
		utils.RespondWithJSON(w, http.StatusConflict, utils.M{
			"error":  err.Error(),
			"status": badState.Status,
		})
	case errors.As(err, &badQty), errors.Is(err, ErrEmptyOrder):
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrOrderNotFound):
		utils.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrTransactionConflict), errors.Is(err, ErrTimeout):
		utils.RespondWithError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Println("order error:", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "order operation failed")
	}
}
