package models

import "time"

// Order status progression is one-way except for the explicit
// cancellation transition out of pending/processing.
const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// OrderItem echoes the product name, image and unit price at order
// time. UnitPrice is immutable afterward; later product price changes
// never touch existing orders.
type OrderItem struct {
	ProductID string  `json:"productId" bson:"productid"`
	Name      string  `json:"name" bson:"name"`
	Image     string  `json:"image,omitempty" bson:"image,omitempty"`
	UnitPrice float64 `json:"unitPriceAtOrderTime" bson:"unitPrice"`
	Quantity  int     `json:"quantity" bson:"quantity"`
}

// Address is the delivery address captured with the order.
type Address struct {
	FullName string `json:"fullName" bson:"fullName"`
	Line1    string `json:"line1" bson:"line1"`
	Line2    string `json:"line2,omitempty" bson:"line2,omitempty"`
	City     string `json:"city" bson:"city"`
	Postcode string `json:"postcode" bson:"postcode"`
	Country  string `json:"country" bson:"country"`
	Phone    string `json:"phone,omitempty" bson:"phone,omitempty"`
}

// Order is the persisted order document. The externally visible
// OrderID is time-derived and human-readable; the mongo _id is a UUID
// unique per placement attempt. Totals are computed once at creation
// and never recomputed. Orders are never deleted.
type Order struct {
	ID          string      `json:"-" bson:"_id"`
	OrderID     string      `json:"orderId" bson:"orderid"`
	UserID      string      `json:"userId" bson:"userId"`
	Items       []OrderItem `json:"items" bson:"items"`
	Address     Address     `json:"address" bson:"address"`
	Subtotal    float64     `json:"subtotal" bson:"subtotal"`
	Shipping    float64     `json:"shipping" bson:"shipping"`
	Tax         float64     `json:"tax" bson:"tax"`
	Discount    float64     `json:"discount" bson:"discount"`
	TotalAmount float64     `json:"totalAmount" bson:"totalAmount"`
	Status      string      `json:"status" bson:"status"`
	CreatedAt   time.Time   `json:"createdAt" bson:"createdAt"`
	CancelledAt *time.Time  `json:"cancelledAt,omitempty" bson:"cancelledAt,omitempty"`
}

// OrderDraft is what the checkout UI submits: productId/quantity pairs
// plus the totals it computed from the cart.
type OrderDraft struct {
	UserID   string      `json:"userId"`
	Address  Address     `json:"address"`
	Items    []DraftItem `json:"items"`
	Subtotal float64     `json:"subtotal"`
	Shipping float64     `json:"shipping"`
	Tax      float64     `json:"tax"`
	Discount float64     `json:"discount"`
	Total    float64     `json:"totalAmount"`
}

type DraftItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}
