package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"toolhaus/db"
	"toolhaus/models"
	"toolhaus/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nextStatus defines the one-way fulfilment progression. Cancellation
// is not a progression; it goes through the order service so stock is
// restored.
var nextStatus = map[string]string{
	models.OrderStatusPending:    models.OrderStatusProcessing,
	models.OrderStatusProcessing: models.OrderStatusShipped,
	models.OrderStatusShipped:    models.OrderStatusDelivered,
}

// ListOrders returns all orders, newest first, optionally filtered by
// status.
func ListOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	opts := utils.ParseQueryOptions(r)

	filter := bson.M{}
	if status := r.URL.Query().Get("status"); status != "" {
		filter["status"] = status
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((opts.Page - 1) * opts.Limit)).
		SetLimit(int64(opts.Limit))

	cursor, err := db.OrdersCollection.Find(r.Context(), filter, findOpts)
	if err != nil {
		http.Error(w, "Failed to fetch orders", http.StatusInternalServerError)
		return
	}
	defer cursor.Close(r.Context())

	var orders []models.Order
	if err := cursor.All(r.Context(), &orders); err != nil {
		http.Error(w, "Failed to decode orders", http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	total, err := db.OrdersCollection.CountDocuments(r.Context(), filter)
	if err != nil {
		http.Error(w, "Failed to count orders", http.StatusInternalServerError)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"ok":    true,
		"data":  orders,
		"page":  opts.Page,
		"limit": opts.Limit,
		"total": total,
	})
}

// AdvanceOrderStatus moves an order one step along the fulfilment
// chain. The current status is part of the update filter, so two
// concurrent advances cannot both succeed.
func AdvanceOrderStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	orderID := ps.ByName("orderid")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status == "" {
		http.Error(w, "Status is required", http.StatusBadRequest)
		return
	}

	var order models.Order
	err := db.OrdersCollection.FindOne(r.Context(), bson.M{"orderid": orderID}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch order", http.StatusInternalServerError)
		return
	}

	if nextStatus[order.Status] != body.Status {
		http.Error(w, fmt.Sprintf("Cannot move order from %s to %s", order.Status, body.Status), http.StatusConflict)
		return
	}

	result, err := db.OrdersCollection.UpdateOne(
		r.Context(),
		bson.M{"orderid": orderID, "status": order.Status},
		bson.M{"$set": bson.M{"status": body.Status, "updatedAt": time.Now()}},
	)
	if err != nil {
		http.Error(w, "Failed to update order", http.StatusInternalServerError)
		return
	}
	if result.MatchedCount == 0 {
		http.Error(w, "Order status changed concurrently", http.StatusConflict)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": fmt.Sprintf("Order moved to %s", body.Status),
		"status":  body.Status,
	})
}
