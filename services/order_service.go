package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"bakery-orders/errs"
	"bakery-orders/events"
	"bakery-orders/models"
	"bakery-orders/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Actor identifies who is performing an order operation.
type Actor string

const (
	ActorUser  Actor = "user"
	ActorAdmin Actor = "admin"
)

// CartStore is the cart surface checkout needs. Clearing goes through
// the cart service so it shares the per-user serialization with every
// other cart mutation.
type CartStore interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
	Clear(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)
}

// OrderService converts carts into orders at checkout and governs the
// order status state machine afterwards. Orders are immutable snapshots
// except for status and the payment-verified flag.
type OrderService struct {
	orders    repository.OrderRepository
	carts     CartStore
	catalog   Catalog
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewOrderService(orders repository.OrderRepository, carts CartStore, catalog Catalog, publisher events.Publisher, logger *zap.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		carts:     carts,
		catalog:   catalog,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Checkout turns the user's cart into a pending order. The total and the
// per-line name/price are frozen from current catalog prices; this is the
// only point where a live price lookup happens. The order is durably
// written before the cart is cleared, and the cart-clear failure mode is
// an order that stands with a stale cart, never a lost order.
func (s *OrderService) Checkout(ctx context.Context, userID primitive.ObjectID, customization string, method models.PaymentMethod, transactionID string) (*models.Order, error) {
	if !method.Valid() {
		return nil, errs.Newf(errs.KindInvalidInput, "unknown payment method %q", method)
	}
	if method == models.PaymentOnline && strings.TrimSpace(transactionID) == "" {
		return nil, errs.New(errs.KindInvalidInput, "transaction id is required for online payment")
	}

	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, errs.New(errs.KindEmptyCart, "cart is empty")
	}

	items := make([]models.OrderItem, 0, len(cart.Items))
	total := 0.0
	for _, line := range cart.Items {
		product, err := s.catalog.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
		})
		total += product.Price * float64(line.Quantity)
	}

	order := &models.Order{
		UserID:        userID,
		Items:         items,
		TotalAmount:   total,
		Customization: customization,
		PaymentMethod: method,
		TransactionID: transactionID,
		Status:        models.StatusPending,
		Version:       1,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.orders.Insert(ctx, order); err != nil {
		return nil, err
	}

	if _, err := s.carts.Clear(ctx, userID); err != nil {
		s.logger.Warn("failed to clear cart after checkout",
			zap.String("user_id", userID.Hex()),
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err))
	}

	s.emit(ctx, events.TypeOrderPlaced, order)
	return order, nil
}

// SetStatus transitions an order. Admins may set any recognized status,
// including moving an order out of a terminal state; that is a deliberate
// override, checked only against existence and the status enum, and
// callerID is ignored. Users may only cancel their own pending order
// within the cancellation window, and the cancel is a conditional write
// so a stale read never clobbers a newer status.
func (s *OrderService) SetStatus(ctx context.Context, orderID primitive.ObjectID, status models.OrderStatus, actor Actor, callerID primitive.ObjectID) (*models.Order, error) {
	if !status.Valid() {
		return nil, errs.Newf(errs.KindInvalidInput, "unknown order status %q", status)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.New(errs.KindNotFound, "order not found")
	}

	switch actor {
	case ActorAdmin:
		matched, err := s.orders.UpdateStatus(ctx, orderID, status)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, errs.New(errs.KindNotFound, "order not found")
		}
		order.Status = status
		order.Version++
		if status == models.StatusCancelled {
			s.emit(ctx, events.TypeOrderCancelled, order)
		}
		return order, nil

	case ActorUser:
		if status != models.StatusCancelled {
			return nil, errs.New(errs.KindForbidden, "users may only cancel orders")
		}
		if order.UserID != callerID {
			return nil, errs.New(errs.KindForbidden, "users may only cancel their own orders")
		}
		if order.Status != models.StatusPending {
			return nil, errs.New(errs.KindForbidden, "only pending orders can be cancelled")
		}
		if !order.CancellableAt(s.now()) {
			return nil, errs.New(errs.KindWindowExpired, "cancellation window has expired")
		}

		matched, err := s.orders.UpdateStatusIf(ctx, orderID, models.StatusPending, order.Version, models.StatusCancelled)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, errs.New(errs.KindConflict, "order was updated concurrently")
		}
		order.Status = models.StatusCancelled
		order.Version++
		s.emit(ctx, events.TypeOrderCancelled, order)
		return order, nil

	default:
		return nil, errs.Newf(errs.KindForbidden, "unknown actor %q", actor)
	}
}

// SetPaymentVerified flips the payment-verified flag. Admin only; the flag
// is tracked independently of status and this never touches status.
func (s *OrderService) SetPaymentVerified(ctx context.Context, orderID primitive.ObjectID, verified bool, actor Actor) (*models.Order, error) {
	if actor != ActorAdmin {
		return nil, errs.New(errs.KindForbidden, "only admins may verify payments")
	}

	matched, err := s.orders.SetPaymentVerified(ctx, orderID, verified)
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, errs.New(errs.KindNotFound, "order not found")
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.New(errs.KindNotFound, "order not found")
	}
	return order, nil
}

// ListForUser returns the user's orders, pending first, newest first
// within each group.
func (s *OrderService) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortOrders(orders)
	return orders, nil
}

// ListAll returns every order for the back office, same ordering contract
// as ListForUser.
func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	sortOrders(orders)
	return orders, nil
}

// sortOrders surfaces the most actionable orders first: pending before
// everything else, newest first within each group. Stable so equal
// timestamps keep their store order.
func sortOrders(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		pi := orders[i].Status == models.StatusPending
		pj := orders[j].Status == models.StatusPending
		if pi != pj {
			return pi
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

// emit publishes a lifecycle event after the state-changing write has
// committed. Failures are logged and swallowed: the mutation has already
// succeeded and notification delivery is best-effort.
func (s *OrderService) emit(ctx context.Context, eventType string, order *models.Order) {
	event := events.NewOrderEvent(eventType, order)
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish order event",
			zap.String("event_type", eventType),
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err))
	}
}
