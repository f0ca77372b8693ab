package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bakery-orders/errs"
	"bakery-orders/events"
	"bakery-orders/mocks"
	"bakery-orders/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type orderServiceFixture struct {
	service     *OrderService
	cartService *CartService
	orders      *fakeOrderRepo
	carts       *fakeCartRepo
	catalog     *stubCatalog
	publisher   *recordPublisher
}

func newOrderServiceFixture(t *testing.T) *orderServiceFixture {
	t.Helper()
	f := &orderServiceFixture{
		orders:    newFakeOrderRepo(),
		carts:     newFakeCartRepo(),
		catalog:   newStubCatalog(),
		publisher: &recordPublisher{},
	}
	f.cartService = NewCartService(f.carts, f.catalog, zap.NewNop())
	f.service = NewOrderService(f.orders, f.cartService, f.catalog, f.publisher, zap.NewNop())
	return f
}

func (f *orderServiceFixture) seedCart(t *testing.T, userID primitive.ObjectID, items ...models.CartItem) {
	t.Helper()
	err := f.carts.Upsert(context.Background(), &models.Cart{UserID: userID, Items: items})
	require.NoError(t, err)
}

func TestOrderService_Checkout(t *testing.T) {
	f := newOrderServiceFixture(t)
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	f.catalog.add(models.Product{ID: productID, Name: "Chocolate Cake", Price: 5.00})
	f.seedCart(t, userID, models.CartItem{ProductID: productID, Quantity: 2})

	order, err := f.service.Checkout(context.Background(), userID, "less sugar", models.PaymentOnline, "TXN1")
	require.NoError(t, err)

	assert.Equal(t, 10.00, order.TotalAmount)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.False(t, order.IsPaymentVerified)
	assert.Equal(t, "TXN1", order.TransactionID)
	assert.Equal(t, "less sugar", order.Customization)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "Chocolate Cake", order.Items[0].Name)
	assert.Equal(t, 5.00, order.Items[0].Price)
	assert.Equal(t, 2, order.Items[0].Quantity)

	// Checkout clears the source cart.
	cart, err := f.carts.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Nil(t, cart)

	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeOrderPlaced, published[0].Type)
	assert.Equal(t, order.ID.Hex(), published[0].OrderID)
}

func TestOrderService_Checkout_EmptyCart(t *testing.T) {
	f := newOrderServiceFixture(t)

	_, err := f.service.Checkout(context.Background(), primitive.NewObjectID(), "", models.PaymentPayOnTakeaway, "")
	require.Error(t, err)
	assert.Equal(t, errs.KindEmptyCart, errs.KindOf(err))
}

func TestOrderService_Checkout_OnlineRequiresTransactionID(t *testing.T) {
	f := newOrderServiceFixture(t)
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	f.catalog.add(models.Product{ID: productID, Price: 5.00})
	f.seedCart(t, userID, models.CartItem{ProductID: productID, Quantity: 1})

	for _, transactionID := range []string{"", "   "} {
		_, err := f.service.Checkout(context.Background(), userID, "", models.PaymentOnline, transactionID)
		require.Error(t, err)
		assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))
	}

	// PayOnTakeaway needs no transaction id.
	_, err := f.service.Checkout(context.Background(), userID, "", models.PaymentPayOnTakeaway, "")
	assert.NoError(t, err)
}

func TestOrderService_Checkout_UnknownPaymentMethod(t *testing.T) {
	f := newOrderServiceFixture(t)

	_, err := f.service.Checkout(context.Background(), primitive.NewObjectID(), "", models.PaymentMethod("Cheque"), "")
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))
}

func TestOrderService_Checkout_TotalImmuneToLaterPriceChange(t *testing.T) {
	f := newOrderServiceFixture(t)
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	f.catalog.add(models.Product{ID: productID, Name: "Brownie", Price: 3.00})
	f.seedCart(t, userID, models.CartItem{ProductID: productID, Quantity: 3})

	order, err := f.service.Checkout(context.Background(), userID, "", models.PaymentPayOnTakeaway, "")
	require.NoError(t, err)
	assert.Equal(t, 9.00, order.TotalAmount)

	f.catalog.setPrice(productID, 99.00)

	stored, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 9.00, stored.TotalAmount)
	assert.Equal(t, 3.00, stored.Items[0].Price)
}

func TestOrderService_Checkout_ProductGoneFromCatalog(t *testing.T) {
	f := newOrderServiceFixture(t)
	userID := primitive.NewObjectID()
	f.seedCart(t, userID, models.CartItem{ProductID: primitive.NewObjectID(), Quantity: 1})

	_, err := f.service.Checkout(context.Background(), userID, "", models.PaymentPayOnTakeaway, "")
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestOrderService_Checkout_PublishFailureDoesNotFailCheckout(t *testing.T) {
	f := newOrderServiceFixture(t)
	f.publisher.err = errors.New("broker down")
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	f.catalog.add(models.Product{ID: productID, Price: 5.00})
	f.seedCart(t, userID, models.CartItem{ProductID: productID, Quantity: 1})

	order, err := f.service.Checkout(context.Background(), userID, "", models.PaymentPayOnTakeaway, "")
	require.NoError(t, err)

	stored, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestOrderService_Checkout_CartClearFailureKeepsOrder(t *testing.T) {
	f := newOrderServiceFixture(t)
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	f.catalog.add(models.Product{ID: productID, Price: 5.00})
	f.seedCart(t, userID, models.CartItem{ProductID: productID, Quantity: 1})
	f.carts.deleteErr = errors.New("write concern failed")

	order, err := f.service.Checkout(context.Background(), userID, "", models.PaymentPayOnTakeaway, "")
	require.NoError(t, err, "the order stands even when clearing the cart fails")

	stored, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestOrderService_Checkout_ClearSharesCartSerialization(t *testing.T) {
	f := newOrderServiceFixture(t)
	userID := primitive.NewObjectID()
	productID := primitive.NewObjectID()
	f.catalog.add(models.Product{ID: productID, Price: 2.00})

	// Cart mutations and checkout clears race on the same user; both go
	// through the cart service, so persisted lines stay well-formed.
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.cartService.AddOrIncrease(context.Background(), userID, productID, 1)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.service.Checkout(context.Background(), userID, "", models.PaymentPayOnTakeaway, "")
			if err != nil {
				assert.Equal(t, errs.KindEmptyCart, errs.KindOf(err))
			}
		}()
	}
	wg.Wait()

	cart, err := f.carts.Get(context.Background(), userID)
	require.NoError(t, err)
	if cart != nil {
		for _, item := range cart.Items {
			assert.GreaterOrEqual(t, item.Quantity, 1)
		}
	}
}

func seedOrder(t *testing.T, f *orderServiceFixture, status models.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:        primitive.NewObjectID(),
		Items:         []models.OrderItem{{ProductID: primitive.NewObjectID(), Name: "Muffin", Price: 2.50, Quantity: 1}},
		TotalAmount:   2.50,
		PaymentMethod: models.PaymentPayOnTakeaway,
		Status:        status,
		Version:       1,
		CreatedAt:     createdAt,
	}
	require.NoError(t, f.orders.Insert(context.Background(), order))
	return order
}

func TestOrderService_UserCancel_WithinWindow(t *testing.T) {
	f := newOrderServiceFixture(t)
	createdAt := time.Now().UTC()
	order := seedOrder(t, f, models.StatusPending, createdAt)
	f.service.now = func() time.Time { return createdAt.Add(4*time.Hour + 59*time.Minute) }

	updated, err := f.service.SetStatus(context.Background(), order.ID, models.StatusCancelled, ActorUser, order.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, updated.Status)

	published := f.publisher.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeOrderCancelled, published[0].Type)
}

func TestOrderService_UserCancel_OtherUsersOrderForbidden(t *testing.T) {
	f := newOrderServiceFixture(t)
	order := seedOrder(t, f, models.StatusPending, time.Now().UTC())

	_, err := f.service.SetStatus(context.Background(), order.ID, models.StatusCancelled, ActorUser, primitive.NewObjectID())
	require.Error(t, err)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	stored, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status, "another user's cancel must not change status")
	assert.Empty(t, f.publisher.published())
}

func TestOrderService_UserCancel_WindowExpired(t *testing.T) {
	f := newOrderServiceFixture(t)
	createdAt := time.Now().UTC()
	order := seedOrder(t, f, models.StatusPending, createdAt)
	f.service.now = func() time.Time { return createdAt.Add(5*time.Hour + 1*time.Minute) }

	_, err := f.service.SetStatus(context.Background(), order.ID, models.StatusCancelled, ActorUser, order.UserID)
	require.Error(t, err)
	assert.Equal(t, errs.KindWindowExpired, errs.KindOf(err))

	stored, err := f.orders.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status, "a rejected cancellation must not change status")
	assert.Empty(t, f.publisher.published())
}

func TestOrderService_UserCancel_NonPendingForbidden(t *testing.T) {
	f := newOrderServiceFixture(t)
	order := seedOrder(t, f, models.StatusShipped, time.Now().UTC())

	_, err := f.service.SetStatus(context.Background(), order.ID, models.StatusCancelled, ActorUser, order.UserID)
	require.Error(t, err)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))
}

func TestOrderService_UserCannotShip(t *testing.T) {
	f := newOrderServiceFixture(t)
	order := seedOrder(t, f, models.StatusPending, time.Now().UTC())

	_, err := f.service.SetStatus(context.Background(), order.ID, models.StatusShipped, ActorUser, order.UserID)
	require.Error(t, err)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	// The same transition succeeds for an admin.
	updated, err := f.service.SetStatus(context.Background(), order.ID, models.StatusShipped, ActorAdmin, primitive.NilObjectID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, updated.Status)
}

func TestOrderService_AdminOverride_ReopensTerminalState(t *testing.T) {
	f := newOrderServiceFixture(t)
	order := seedOrder(t, f, models.StatusCancelled, time.Now().UTC())

	updated, err := f.service.SetStatus(context.Background(), order.ID, models.StatusShipped, ActorAdmin, primitive.NilObjectID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusShipped, updated.Status)
}

func TestOrderService_SetStatus_InvalidStatus(t *testing.T) {
	f := newOrderServiceFixture(t)
	order := seedOrder(t, f, models.StatusPending, time.Now().UTC())

	_, err := f.service.SetStatus(context.Background(), order.ID, models.OrderStatus("archived"), ActorAdmin, primitive.NilObjectID)
	require.Error(t, err)
	assert.Equal(t, errs.KindInvalidInput, errs.KindOf(err))
}

func TestOrderService_SetStatus_NotFound(t *testing.T) {
	f := newOrderServiceFixture(t)

	_, err := f.service.SetStatus(context.Background(), primitive.NewObjectID(), models.StatusShipped, ActorAdmin, primitive.NilObjectID)
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestOrderService_UserCancel_LostRaceIsConflict(t *testing.T) {
	orderID := primitive.NewObjectID()
	stale := &models.Order{
		ID:        orderID,
		UserID:    primitive.NewObjectID(),
		Status:    models.StatusPending,
		Version:   1,
		CreatedAt: time.Now().UTC(),
	}

	// The repo hands out a pending order, but by the time the conditional
	// write lands another writer has already moved the order on.
	repo := new(mocks.MockOrderRepository)
	repo.On("FindByID", mock.Anything, orderID).Return(stale, nil)
	repo.On("UpdateStatusIf", mock.Anything, orderID, models.StatusPending, int64(1), models.StatusCancelled).
		Return(false, nil)

	publisher := &recordPublisher{}
	carts := NewCartService(newFakeCartRepo(), newStubCatalog(), zap.NewNop())
	service := NewOrderService(repo, carts, newStubCatalog(), publisher, zap.NewNop())

	_, err := service.SetStatus(context.Background(), orderID, models.StatusCancelled, ActorUser, stale.UserID)
	require.Error(t, err)
	assert.Equal(t, errs.KindConflict, errs.KindOf(err))
	assert.Empty(t, publisher.published(), "no event for a cancel that lost the race")
	repo.AssertExpectations(t)
}

func TestOrderService_SetPaymentVerified(t *testing.T) {
	f := newOrderServiceFixture(t)
	order := seedOrder(t, f, models.StatusDelivered, time.Now().UTC())

	updated, err := f.service.SetPaymentVerified(context.Background(), order.ID, true, ActorAdmin)
	require.NoError(t, err)
	assert.True(t, updated.IsPaymentVerified)
	assert.Equal(t, models.StatusDelivered, updated.Status, "verification must not touch status")

	updated, err = f.service.SetPaymentVerified(context.Background(), order.ID, false, ActorAdmin)
	require.NoError(t, err)
	assert.False(t, updated.IsPaymentVerified)
}

func TestOrderService_SetPaymentVerified_Errors(t *testing.T) {
	f := newOrderServiceFixture(t)
	order := seedOrder(t, f, models.StatusPending, time.Now().UTC())

	_, err := f.service.SetPaymentVerified(context.Background(), order.ID, true, ActorUser)
	require.Error(t, err)
	assert.Equal(t, errs.KindForbidden, errs.KindOf(err))

	_, err = f.service.SetPaymentVerified(context.Background(), primitive.NewObjectID(), true, ActorAdmin)
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestOrderService_ListForUser_PendingFirstNewestFirst(t *testing.T) {
	f := newOrderServiceFixture(t)
	userID := primitive.NewObjectID()
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	insert := func(status models.OrderStatus, createdAt time.Time) primitive.ObjectID {
		order := &models.Order{
			UserID:    userID,
			Status:    status,
			Version:   1,
			CreatedAt: createdAt,
		}
		require.NoError(t, f.orders.Insert(context.Background(), order))
		return order.ID
	}

	delivered := insert(models.StatusDelivered, base.Add(1*time.Hour))
	pendingOld := insert(models.StatusPending, base.Add(2*time.Hour))
	pendingNew := insert(models.StatusPending, base.Add(3*time.Hour))
	cancelled := insert(models.StatusCancelled, base.Add(4*time.Hour))

	orders, err := f.service.ListForUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, orders, 4)

	got := []primitive.ObjectID{orders[0].ID, orders[1].ID, orders[2].ID, orders[3].ID}
	want := []primitive.ObjectID{pendingNew, pendingOld, cancelled, delivered}
	assert.Equal(t, want, got)
}

func TestOrderService_ListForUser_ScopedToUser(t *testing.T) {
	f := newOrderServiceFixture(t)
	mine := seedOrder(t, f, models.StatusPending, time.Now().UTC())
	seedOrder(t, f, models.StatusPending, time.Now().UTC())

	orders, err := f.service.ListForUser(context.Background(), mine.UserID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, mine.ID, orders[0].ID)

	all, err := f.service.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
