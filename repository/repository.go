package repository

import (
	"context"

	"bakery-orders/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartRepository persists per-user carts. Get returns (nil, nil) when the
// user has no cart document.
type CartRepository interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Upsert(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

// OrderRepository persists orders. FindByID returns (nil, nil) when the
// order does not exist. The boolean results report whether a document
// matched the update filter.
type OrderRepository interface {
	Insert(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (bool, error)
	UpdateStatusIf(ctx context.Context, id primitive.ObjectID, expect models.OrderStatus, expectVersion int64, status models.OrderStatus) (bool, error)
	SetPaymentVerified(ctx context.Context, id primitive.ObjectID, verified bool) (bool, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
}

// ProductRepository reads the catalog collection. FindByID returns
// (nil, nil) when the product does not exist.
type ProductRepository interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
}
