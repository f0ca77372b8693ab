package controllers

import (
	"context"
	"encoding/json"
	"net/http"

	"bakery-orders/errs"
	"bakery-orders/models"
	"bakery-orders/services"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderService is the order surface the controller needs.
type OrderService interface {
	Checkout(ctx context.Context, userID primitive.ObjectID, customization string, method models.PaymentMethod, transactionID string) (*models.Order, error)
	SetStatus(ctx context.Context, orderID primitive.ObjectID, status models.OrderStatus, actor services.Actor, callerID primitive.ObjectID) (*models.Order, error)
	SetPaymentVerified(ctx context.Context, orderID primitive.ObjectID, verified bool, actor services.Actor) (*models.Order, error)
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
}

// OrderController handles order-related requests
type OrderController struct {
	orders OrderService
}

// NewOrderController creates a new OrderController
func NewOrderController(orders OrderService) *OrderController {
	return &OrderController{orders: orders}
}

type checkoutRequest struct {
	Customization string `json:"customization"`
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
}

type statusUpdateRequest struct {
	Status string `json:"status"`
}

type verifyPaymentRequest struct {
	IsPaymentVerified bool `json:"is_payment_verified"`
}

// CreateOrder checks out the user's cart into a new order.
func (oc *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := requestActor(w, r)
	if !ok {
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.New(errs.KindInvalidInput, "invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	order, err := oc.orders.Checkout(ctx, userID, req.Customization,
		models.PaymentMethod(req.PaymentMethod), req.TransactionID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, order)
}

// GetOrders retrieves the authenticated user's orders, pending first.
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	_, userID, ok := requestActor(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	orders, err := oc.orders.ListForUser(ctx, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// GetAllOrders retrieves every order for the back office.
func (oc *OrderController) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	orders, err := oc.orders.ListAll(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// CancelOrder lets the acting user cancel their pending order within the
// cancellation window. Admin tokens take the override path.
func (oc *OrderController) CancelOrder(w http.ResponseWriter, r *http.Request) {
	claims, userID, ok := requestActor(w, r)
	if !ok {
		return
	}

	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, errs.New(errs.KindInvalidInput, "invalid order id"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	order, err := oc.orders.SetStatus(ctx, orderID, models.StatusCancelled, actorFromRole(claims.Role), userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// UpdateOrderStatus lets an admin set any recognized status.
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, errs.New(errs.KindInvalidInput, "invalid order id"))
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.New(errs.KindInvalidInput, "invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	order, err := oc.orders.SetStatus(ctx, orderID, models.OrderStatus(req.Status), services.ActorAdmin, primitive.NilObjectID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// VerifyPayment lets an admin flip the payment-verified flag.
func (oc *OrderController) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	orderID, err := primitive.ObjectIDFromHex(r.URL.Query().Get("orderId"))
	if err != nil {
		respondError(w, errs.New(errs.KindInvalidInput, "invalid order id"))
		return
	}

	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.New(errs.KindInvalidInput, "invalid request body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	order, err := oc.orders.SetPaymentVerified(ctx, orderID, req.IsPaymentVerified, services.ActorAdmin)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

func actorFromRole(role string) services.Actor {
	if role == "admin" {
		return services.ActorAdmin
	}
	return services.ActorUser
}
