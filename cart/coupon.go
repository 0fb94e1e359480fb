package cart

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"toolhaus/db"
	"toolhaus/models"
	"toolhaus/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ApplyCoupon validates a coupon code against the current cart and
// returns the computed discount. The discount is advisory until order
// placement echoes it back in the draft.
func ApplyCoupon(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	var body struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Code == "" {
		http.Error(w, "Coupon code is required", http.StatusBadRequest)
		return
	}

	var coupon models.Coupon
	err := db.CouponsCollection.FindOne(r.Context(), bson.M{"code": strings.ToUpper(body.Code)}).Decode(&coupon)
	if err == mongo.ErrNoDocuments {
		http.Error(w, "Unknown coupon code", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch coupon", http.StatusInternalServerError)
		return
	}

	if !coupon.Active || time.Now().After(coupon.ValidUntil) {
		http.Error(w, "Coupon is no longer valid", http.StatusConflict)
		return
	}

	cart, err := loadCart(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch cart", http.StatusInternalServerError)
		return
	}

	subtotal := 0.0
	for _, item := range cart.Items {
		subtotal += item.Price * float64(item.Quantity)
	}
	if subtotal < coupon.MinAmount {
		http.Error(w, fmt.Sprintf("Cart total must be at least %.2f for this coupon", coupon.MinAmount), http.StatusConflict)
		return
	}

	discount := coupon.Flat
	if coupon.Percent > 0 {
		discount += subtotal * coupon.Percent / 100
	}
	if discount > subtotal {
		discount = subtotal
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"code":     coupon.Code,
		"discount": discount,
		"subtotal": subtotal,
	})
}
