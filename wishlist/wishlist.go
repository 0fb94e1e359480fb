package wishlist

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"toolhaus/cart"
	"toolhaus/db"
	"toolhaus/models"
	"toolhaus/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func loadWishlist(ctx context.Context, userID string) (*models.Wishlist, error) {
	var wl models.Wishlist
	err := db.WishlistsCollection.FindOne(ctx, bson.M{"userId": userID}).Decode(&wl)
	if err == mongo.ErrNoDocuments {
		return &models.Wishlist{UserID: userID, Items: []models.WishlistItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &wl, nil
}

func saveWishlist(ctx context.Context, wl *models.Wishlist) error {
	wl.UpdatedAt = time.Now()
	_, err := db.WishlistsCollection.ReplaceOne(
		ctx,
		bson.M{"userId": wl.UserID},
		wl,
		options.Replace().SetUpsert(true),
	)
	return err
}

func GetWishlist(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	wl, err := loadWishlist(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch wishlist", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, wl)
}

func AddToWishlist(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}

	var body struct {
		ProductID string `json:"productId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProductID == "" {
		http.Error(w, "Invalid input data", http.StatusBadRequest)
		return
	}

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

	wl, err := loadWishlist(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch wishlist", http.StatusInternalServerError)
		return
	}

	for _, item := range wl.Items {
		if item.ProductID == product.ProductID {
			// Already saved, nothing to do.
			utils.RespondWithJSON(w, http.StatusOK, wl)
			return
		}
	}
	wl.Items = append(wl.Items, models.WishlistItem{
		ProductID: product.ProductID,
		Name:      product.Name,
		Price:     product.Price,
		Image:     product.Image,
		AddedAt:   time.Now(),
	})

	if err := saveWishlist(r.Context(), wl); err != nil {
		http.Error(w, "Failed to update wishlist", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, wl)
}

func RemoveFromWishlist(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}
	productID := ps.ByName("productid")

	wl, err := loadWishlist(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch wishlist", http.StatusInternalServerError)
		return
	}

	kept := wl.Items[:0]
	for _, item := range wl.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	wl.Items = kept

	if err := saveWishlist(r.Context(), wl); err != nil {
		http.Error(w, "Failed to update wishlist", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, wl)
}

// MoveToCart transfers a saved product into the cart (quantity 1) and
// removes it from the wishlist.
func MoveToCart(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Invalid user", http.StatusUnauthorized)
		return
	}
	productID := ps.ByName("productid")

	wl, err := loadWishlist(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to fetch wishlist", http.StatusInternalServerError)
		return
	}

	var saved models.WishlistItem
	found := false
	kept := make([]models.WishlistItem, 0, len(wl.Items))
	for _, item := range wl.Items {
		if item.ProductID == productID {
			saved = item
			found = true
			continue
		}
		kept = append(kept, item)
	}
	if !found {
		http.Error(w, "Item not in wishlist", http.StatusNotFound)
		return
	}

	if err := cart.UpsertItem(r.Context(), userID, models.CartItem{
		ProductID: saved.ProductID,
		Name:      saved.Name,
		Price:     saved.Price,
		Image:     saved.Image,
		Quantity:  1,
	}); err != nil {
		http.Error(w, "Failed to update cart", http.StatusInternalServerError)
		return
	}

	wl.Items = kept
	if err := saveWishlist(r.Context(), wl); err != nil {
		http.Error(w, "Failed to update wishlist", http.StatusInternalServerError)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Item moved to cart",
		"data":    wl,
	})
}
