package services

import (
	"context"
	"sync"
	"time"

	"bakery-orders/errs"
	"bakery-orders/models"
	"bakery-orders/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// CartService owns cart mutation. Mutations on the same user are
// serialized through a per-user mutex so concurrent increase/decrease
// calls cannot lose updates; different users never contend. Every
// mutation is persisted before it returns.
type CartService struct {
	carts   repository.CartRepository
	catalog Catalog
	logger  *zap.Logger
	locks   sync.Map // user id hex -> *sync.Mutex
}

func NewCartService(carts repository.CartRepository, catalog Catalog, logger *zap.Logger) *CartService {
	return &CartService{
		carts:   carts,
		catalog: catalog,
		logger:  logger,
	}
}

func (s *CartService) lockUser(userID primitive.ObjectID) func() {
	v, _ := s.locks.LoadOrStore(userID.Hex(), &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// AddOrIncrease adds quantity units of the product to the user's cart,
// creating the cart lazily. The product must exist in the catalog.
func (s *CartService) AddOrIncrease(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, errs.New(errs.KindInvalidInput, "quantity must be at least 1")
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	unlock := s.lockUser(userID)
	defer unlock()

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		cart = &models.Cart{UserID: userID, Items: []models.CartItem{}}
	}

	if i := cart.ItemIndex(productID); i >= 0 {
		cart.Items[i].Quantity += quantity
	} else {
		cart.Items = append(cart.Items, models.CartItem{ProductID: productID, Quantity: quantity})
	}
	cart.UpdatedAt = time.Now().UTC()

	if err := s.carts.Upsert(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Decrease subtracts quantity units from the product's line. A line whose
// quantity would drop to zero or below is removed, never stored at zero.
func (s *CartService) Decrease(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, errs.New(errs.KindInvalidInput, "quantity must be at least 1")
	}

	unlock := s.lockUser(userID)
	defer unlock()

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, errs.New(errs.KindNotFound, "cart not found")
	}

	i := cart.ItemIndex(productID)
	if i < 0 {
		return nil, errs.New(errs.KindNotFound, "product not in cart")
	}

	cart.Items[i].Quantity -= quantity
	if cart.Items[i].Quantity <= 0 {
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	}
	cart.UpdatedAt = time.Now().UTC()

	if err := s.carts.Upsert(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Remove drops the product's line if present. Removing an absent line is
// a no-op, not an error.
func (s *CartService) Remove(ctx context.Context, userID, productID primitive.ObjectID) (*models.Cart, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}

	i := cart.ItemIndex(productID)
	if i < 0 {
		return cart, nil
	}

	cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	cart.UpdatedAt = time.Now().UTC()

	if err := s.carts.Upsert(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Clear empties the user's cart. Clearing an absent cart is a no-op.
func (s *CartService) Clear(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	unlock := s.lockUser(userID)
	defer unlock()

	if err := s.carts.Delete(ctx, userID); err != nil {
		return nil, err
	}
	return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
}

// Get returns the user's cart, or an empty cart when none exists.
func (s *CartService) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	return cart, nil
}
