package mongodb

import (
	"context"
	"errors"

	"bakery-orders/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// OrderRepository stores order documents. Status updates bump a version
// counter so conditional writes can detect lost races.
type OrderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{collection: db.Collection("orders")}
}

func (r *OrderRepository) Insert(ctx context.Context, order *models.Order) error {
	return withRetry(ctx, func() error {
		result, err := r.collection.InsertOne(ctx, order)
		if err != nil {
			return err
		}
		if id, ok := result.InsertedID.(primitive.ObjectID); ok {
			order.ID = id
		}
		return nil
	})
}

func (r *OrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	found := false
	err := withRetry(ctx, func() error {
		err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &order, nil
}

// UpdateStatus sets the status unconditionally given the order exists.
// Used by the admin override path.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (bool, error) {
	return r.update(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"status": status},
		"$inc": bson.M{"version": 1},
	})
}

// UpdateStatusIf sets the status only when the stored status and version
// still match what the caller read. A non-match means either the order is
// gone or another writer got there first.
func (r *OrderRepository) UpdateStatusIf(ctx context.Context, id primitive.ObjectID, expect models.OrderStatus, expectVersion int64, status models.OrderStatus) (bool, error) {
	filter := bson.M{"_id": id, "status": expect, "version": expectVersion}
	return r.update(ctx, filter, bson.M{
		"$set": bson.M{"status": status},
		"$inc": bson.M{"version": 1},
	})
}

func (r *OrderRepository) SetPaymentVerified(ctx context.Context, id primitive.ObjectID, verified bool) (bool, error) {
	return r.update(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"is_payment_verified": verified},
	})
}

func (r *OrderRepository) update(ctx context.Context, filter, update bson.M) (bool, error) {
	matched := false
	err := withRetry(ctx, func() error {
		result, err := r.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return err
		}
		matched = result.MatchedCount > 0
		return nil
	})
	return matched, err
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

func (r *OrderRepository) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, bson.M{})
}

func (r *OrderRepository) list(ctx context.Context, filter bson.M) ([]models.Order, error) {
	var orders []models.Order
	err := withRetry(ctx, func() error {
		cursor, err := r.collection.Find(ctx, filter)
		if err != nil {
			return err
		}
		defer cursor.Close(ctx)

		orders = orders[:0]
		for cursor.Next(ctx) {
			var order models.Order
			if err := cursor.Decode(&order); err != nil {
				return err
			}
			orders = append(orders, order)
		}
		return cursor.Err()
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}
