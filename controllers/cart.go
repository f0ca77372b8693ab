package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"bakery-orders/errs"
	"bakery-orders/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const requestTimeout = 10 * time.Second

// CartService is the cart surface the controller needs.
type CartService interface {
	AddOrIncrease(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error)
	Decrease(ctx context.Context, userID, productID primitive.ObjectID, quantity int) (*models.Cart, error)
	Remove(ctx context.Context, userID, productID primitive.ObjectID) (*models.Cart, error)
	Clear(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
}

// CartController handles cart-related requests
type CartController struct {
	carts CartService
}

// NewCartController creates a new CartController
func NewCartController(carts CartService) *CartController {
	return &CartController{carts: carts}
}

// cartUpdateRequest is the closed union of cart mutations: the action tag
// selects increase or decrease, nothing else is accepted.
type cartUpdateRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Action    string `json:"action"`
}

// GetCart retrieves the user's cart. An absent cart is an empty cart, not
// an error.
func (cc *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := requestActor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cart, err := cc.carts.Get(ctx, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// UpdateCart applies a quantity delta to one cart line.
func (cc *CartController) UpdateCart(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := requestActor(w, r)
	if !ok {
		return
	}

	var req cartUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.New(errs.KindInvalidInput, "invalid request body"))
		return
	}
	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		respondError(w, errs.New(errs.KindInvalidInput, "invalid product id"))
		return
	}
	if req.Quantity < 1 {
		respondError(w, errs.New(errs.KindInvalidInput, "quantity must be at least 1"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var cart *models.Cart
	switch req.Action {
	case "increase":
		cart, err = cc.carts.AddOrIncrease(ctx, userID, productID, req.Quantity)
	case "decrease":
		cart, err = cc.carts.Decrease(ctx, userID, productID, req.Quantity)
	default:
		respondError(w, errs.Newf(errs.KindInvalidInput, "unknown action %q", req.Action))
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}

// RemoveFromCart removes one line when product_id is given, otherwise
// clears the whole cart. Both are idempotent.
func (cc *CartController) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := requestActor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	productIDHex := r.URL.Query().Get("product_id")
	if productIDHex == "" {
		cart, err := cc.carts.Clear(ctx, userID)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, cart)
		return
	}

	productID, err := primitive.ObjectIDFromHex(productIDHex)
	if err != nil {
		respondError(w, errs.New(errs.KindInvalidInput, "invalid product id"))
		return
	}

	cart, err := cc.carts.Remove(ctx, userID, productID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cart)
}
