package cart

import (
	"context"
	"encoding/json"
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

const (
	MinQuantity = 1
	MaxQuantity = 99
)

// ClampQuantity folds any requested quantity into [1,99]. The cart
// never consults stock; availability is decided at checkout.
func ClampQuantity(q int) int {
	if q < MinQuantity {
		return MinQuantity
	}
	if q > MaxQuantity {
		return MaxQuantity
	}
	return q
}

func loadCart(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := db.CartsCollection.FindOne(ctx, bson.M{"userId": userID}).Decode(&cart)
	if err == mongo.ErrNoDocuments {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func saveCart(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()
	_, err := db.CartsCollection.ReplaceOne(
		ctx,
		bson.M{"userId": cart.UserID},
		cart,
		options.Replace().SetUpsert(true),
	)
	return err
}

// UpsertItem adds the item to the user's cart, merging quantities when
// the product is already present. Used by the add handler and by the
// wishlist move-to-cart flow.
func UpsertItem(ctx context.Context, userID string, item models.CartItem) error {
	cart, err := loadCart(ctx, userID)
	if err != nil {
		return err
	}

	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == item.ProductID {
			cart.Items[i].Quantity = ClampQuantity(cart.Items[i].Quantity + item.Quantity)
			merged = true
			break
		}
	}
	if !merged {
		item.Quantity = ClampQuantity(item.Quantity)
		item.AddedAt = time.Now()
		cart.Items = append(cart.Items, item)
	}

	return saveCart(ctx, cart)
}

// ClearForUser empties the cart after a successful order.
func ClearForUser(ctx context.Context, userID string) error {
	_, err := db.CartsCollection.UpdateOne(
		ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updatedAt": time.Now()}},
	)
	return err
}

func GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	cart, err := loadCart(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch cart", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

func AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	var body struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProductID == "" {
		http.Error(w, "Invalid input data", http.StatusBadRequest)
		return
	}

	// Snapshot name/price/image for display. Prices shown in the cart
	// are informational; the order records the price at checkout time.
	var product models.Product
	err := db.ProductsCollection.FindOne(r.Context(), bson.M{"productid": body.ProductID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Failed to fetch product", http.StatusInternalServerError)
		return
	}

	item := models.CartItem{
		ProductID: product.ProductID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		Quantity:  body.Quantity,
	}
	if err := UpsertItem(r.Context(), userID, item); err != nil {
		http.Error(w, "Failed to update cart", http.StatusInternalServerError)
		return
	}

	cart, err := loadCart(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch cart", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Item added to cart",
		"data":    cart,
	})
}

func SetQuantity(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}
	productID := ps.ByName("productid")

	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid input data", http.StatusBadRequest)
		return
	}

	cart, err := loadCart(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch cart", http.StatusInternalServerError)
		return
	}

	found := false
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			cart.Items[i].Quantity = ClampQuantity(body.Quantity)
			found = true
			break
		}
	}
	if !found {
		http.Error(w, "Item not in cart", http.StatusNotFound)
		return
	}

	if err := saveCart(r.Context(), cart); err != nil {
		http.Error(w, "Failed to update cart", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

func RemoveItem(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}
	productID := ps.ByName("productid")

	cart, err := loadCart(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch cart", http.StatusInternalServerError)
		return
	}

	kept := cart.Items[:0]
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Items = kept

	if err := saveCart(r.Context(), cart); err != nil {
		http.Error(w, "Failed to update cart", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, cart)
}

func ClearCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	if err := ClearForUser(r.Context(), userID); err != nil {
		http.Error(w, "Failed to clear cart", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Cart cleared",
	})
}
