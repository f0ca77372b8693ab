package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the four recognized statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// PaymentMethod identifies how an order is paid.
type PaymentMethod string

const (
	PaymentPayOnTakeaway PaymentMethod = "PayOnTakeaway"
	PaymentOnline        PaymentMethod = "Online"
)

// Valid reports whether m is a recognized payment method.
func (m PaymentMethod) Valid() bool {
	return m == PaymentPayOnTakeaway || m == PaymentOnline
}

// CancelWindow is how long after creation a user may cancel their own
// pending order.
const CancelWindow = 5 * time.Hour

// OrderItem is a cart line frozen at checkout. Name and price are copied
// from the catalog so later product edits never alter historical orders.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// Order represents a placed order. Everything except Status and
// IsPaymentVerified is immutable after checkout; TotalAmount is computed
// once from catalog prices at checkout time and never recomputed.
type Order struct {
	ID                primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	UserID            primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items             []OrderItem        `bson:"items" json:"items"`
	TotalAmount       float64            `bson:"total_amount" json:"total_amount"`
	Customization     string             `bson:"customization,omitempty" json:"customization,omitempty"`
	PaymentMethod     PaymentMethod      `bson:"payment_method" json:"payment_method"`
	TransactionID     string             `bson:"transaction_id,omitempty" json:"transaction_id,omitempty"`
	Status            OrderStatus        `bson:"status" json:"status"`
	IsPaymentVerified bool               `bson:"is_payment_verified" json:"is_payment_verified"`
	Version           int64              `bson:"version" json:"-"`
	CreatedAt         time.Time          `bson:"created_at" json:"created_at"`
}

// CancellableAt reports whether the cancellation window is still open at
// the given instant.
func (o *Order) CancellableAt(now time.Time) bool {
	return now.Sub(o.CreatedAt) <= CancelWindow
}
