package mongodb

import (
	"context"
	"errors"

	"bakery-orders/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CartRepository stores one cart document per user, keyed by user_id.
type CartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) *CartRepository {
	return &CartRepository{collection: db.Collection("carts")}
}

func (r *CartRepository) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	found := false
	err := withRetry(ctx, func() error {
		err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
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
	return &cart, nil
}

func (r *CartRepository) Upsert(ctx context.Context, cart *models.Cart) error {
	update := bson.M{"$set": bson.M{
		"user_id":    cart.UserID,
		"items":      cart.Items,
		"updated_at": cart.UpdatedAt,
	}}
	return withRetry(ctx, func() error {
		_, err := r.collection.UpdateOne(ctx, bson.M{"user_id": cart.UserID}, update,
			options.Update().SetUpsert(true))
		return err
	})
}

func (r *CartRepository) Delete(ctx context.Context, userID primitive.ObjectID) error {
	return withRetry(ctx, func() error {
		_, err := r.collection.DeleteOne(ctx, bson.M{"user_id": userID})
		return err
	})
}
