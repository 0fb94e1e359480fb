package models

import "time"

// CartItem represents a single item in the user's cart. The cart is
// deliberately lenient: quantities are clamped to [1,99] but never
// checked against stock. Stock is enforced only at order placement.
type CartItem struct {
	ProductID string    `json:"productId" bson:"productid"`
	Name      string    `json:"name" bson:"name"`
	Price     float64   `json:"price" bson:"price"`
	Image     string    `json:"image,omitempty" bson:"image,omitempty"`
	Quantity  int       `json:"quantity" bson:"quantity"`
	AddedAt   time.Time `json:"addedAt" bson:"addedAt"`
}

// Cart is the per-user cart document.
type Cart struct {
	UserID    string     `json:"userId" bson:"userId"`
	Items     []CartItem `json:"items" bson:"items"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// WishlistItem is a saved product reference.
type WishlistItem struct {
	ProductID string    `json:"productId" bson:"productid"`
	Name      string    `json:"name" bson:"name"`
	Price     float64   `json:"price" bson:"price"`
	Image     string    `json:"image,omitempty" bson:"image,omitempty"`
	AddedAt   time.Time `json:"addedAt" bson:"addedAt"`
}

// Wishlist is the per-user wishlist document.
type Wishlist struct {
	UserID    string         `json:"userId" bson:"userId"`
	Items     []WishlistItem `json:"items" bson:"items"`
	UpdatedAt time.Time      `json:"updatedAt" bson:"updatedAt"`
}
