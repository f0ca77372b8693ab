package services

import (
	"context"
	"sync"

	"bakery-orders/errs"
	"bakery-orders/events"
	"bakery-orders/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory doubles used across the service tests. They copy documents on
// the way in and out so tests observe the same round-trip semantics as
// the real store: mutating a returned cart does nothing until Upsert.

type fakeCartRepo struct {
	mu        sync.Mutex
	carts     map[string]*models.Cart
	deleteErr error
	upsertErr error
	deleteCnt int
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: map[string]*models.Cart{}}
}

func copyCart(c *models.Cart) *models.Cart {
	out := *c
	out.Items = append([]models.CartItem(nil), c.Items...)
	return &out
}

func (r *fakeCartRepo) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cart, ok := r.carts[userID.Hex()]
	if !ok {
		return nil, nil
	}
	return copyCart(cart), nil
}

func (r *fakeCartRepo) Upsert(ctx context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.carts[cart.UserID.Hex()] = copyCart(cart)
	return nil
}

func (r *fakeCartRepo) Delete(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteErr != nil {
		return r.deleteErr
	}
	r.deleteCnt++
	delete(r.carts, userID.Hex())
	return nil
}

type fakeOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*models.Order{}}
}

func copyOrder(o *models.Order) *models.Order {
	out := *o
	out.Items = append([]models.OrderItem(nil), o.Items...)
	return &out
}

func (r *fakeOrderRepo) Insert(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	r.orders[order.ID.Hex()] = copyOrder(order)
	return nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id.Hex()]
	if !ok {
		return nil, nil
	}
	return copyOrder(order), nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id.Hex()]
	if !ok {
		return false, nil
	}
	order.Status = status
	order.Version++
	return true, nil
}

func (r *fakeOrderRepo) UpdateStatusIf(ctx context.Context, id primitive.ObjectID, expect models.OrderStatus, expectVersion int64, status models.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id.Hex()]
	if !ok || order.Status != expect || order.Version != expectVersion {
		return false, nil
	}
	order.Status = status
	order.Version++
	return true, nil
}

func (r *fakeOrderRepo) SetPaymentVerified(ctx context.Context, id primitive.ObjectID, verified bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id.Hex()]
	if !ok {
		return false, nil
	}
	order.IsPaymentVerified = verified
	return true, nil
}

func (r *fakeOrderRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			out = append(out, *copyOrder(order))
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) ListAll(ctx context.Context) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, order := range r.orders {
		out = append(out, *copyOrder(order))
	}
	return out, nil
}

type stubCatalog struct {
	mu       sync.Mutex
	products map[string]models.Product
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{products: map[string]models.Product{}}
}

func (c *stubCatalog) add(product models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[product.ID.Hex()] = product
}

func (c *stubCatalog) setPrice(id primitive.ObjectID, price float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	product := c.products[id.Hex()]
	product.Price = price
	c.products[id.Hex()] = product
}

func (c *stubCatalog) GetProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	product, ok := c.products[id.Hex()]
	if !ok {
		return nil, errs.Newf(errs.KindNotFound, "product %s not found", id.Hex())
	}
	return &product, nil
}

type recordPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordPublisher) Publish(ctx context.Context, event events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordPublisher) Close() error { return nil }

func (p *recordPublisher) published() []events.OrderEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.OrderEvent(nil), p.events...)
}
