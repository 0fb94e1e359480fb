package models

import "time"

// Product is the canonical product document. StockCount is the
// authoritative available quantity; it is mutated only by the order
// service (place/cancel) and the admin replenish endpoint, always via
// conditional updates, never a plain read-then-write.
type Product struct {
	ProductID   string    `json:"productId" bson:"productid"`
	Name        string    `json:"name" bson:"name"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	Category    string    `json:"category,omitempty" bson:"category,omitempty"`
	Brand       string    `json:"brand,omitempty" bson:"brand,omitempty"`
	Price       float64   `json:"price" bson:"price"`
	StockCount  int       `json:"stockCount" bson:"stockCount"`
	Image       string    `json:"image,omitempty" bson:"image,omitempty"`
	Featured    bool      `json:"featured,omitempty" bson:"featured,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Coupon is a flat or percentage discount code applied at checkout.
type Coupon struct {
	Code       string    `json:"code" bson:"code"`
	Percent    float64   `json:"percent,omitempty" bson:"percent,omitempty"`
	Flat       float64   `json:"flat,omitempty" bson:"flat,omitempty"`
	MinAmount  float64   `json:"minAmount,omitempty" bson:"minAmount,omitempty"`
	Active     bool      `json:"active" bson:"active"`
	ValidUntil time.Time `json:"validUntil" bson:"validUntil"`
}
