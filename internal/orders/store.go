package orders

import "context"

// Inventory is the product side of the store as seen by checkout.
type Inventory interface {
	// FindProduct returns ErrProductNotFound for unknown or malformed ids.
	FindProduct(ctx context.Context, id string) (Product, error)
	// DecrementSizeStock subtracts qty from one size only if the current
	// stock covers it. applied is false when nothing matched.
	DecrementSizeStock(ctx context.Context, id string, size, qty int) (applied bool, err error)
	SetInStock(ctx context.Context, id string, inStock bool) error
}

// OrderStore is append-only.
type OrderStore interface {
	InsertOrder(ctx context.Context, o Order) (string, error)
	ListOrders(ctx context.Context) ([]Order, error)
}

// ProductStore backs the catalog read path and seeding.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]Product, error)
	CountProducts(ctx context.Context) (int64, error)
	InsertProduct(ctx context.Context, p Product) (string, error)
}

// Publisher receives checkout events. Implementations must not block.
type Publisher interface {
	OrderCreated(ctx context.Context, o Order)
	StockShortfall(ctx context.Context, orderID string, items []Shortfall)
}

type nopPublisher struct{}

func (nopPublisher) OrderCreated(context.Context, Order)                  {}
func (nopPublisher) StockShortfall(context.Context, string, []Shortfall) {}
