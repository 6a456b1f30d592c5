// Package store opens the backing store named by DATABASE_URL.
package store

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ariefcatur/sepatuku/internal/memstore"
	"github.com/ariefcatur/sepatuku/internal/mongodb"
	"github.com/ariefcatur/sepatuku/internal/orders"
	"github.com/ariefcatur/sepatuku/internal/postgres"
)

type Store interface {
	orders.Inventory
	orders.OrderStore
	orders.ProductStore
	Close()
}

var (
	_ Store = (*postgres.Repo)(nil)
	_ Store = (*mongodb.Store)(nil)
	_ Store = (*memstore.Store)(nil)
	_ Store = Unavailable{}
)

type Options struct {
	// Migrate applies the embedded schema before connecting (Postgres only).
	Migrate  bool
	MaxConns int32
}

// Open picks the backend from the URL scheme: postgres, mongodb or memory.
func Open(ctx context.Context, rawURL string, opts Options) (Store, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	switch u.Scheme {
	case "postgres", "postgresql":
		if opts.Migrate {
			if err := postgres.Migrate(rawURL); err != nil {
				return nil, err
			}
		}
		pool, err := postgres.Connect(ctx, rawURL, opts.MaxConns)
		if err != nil {
			return nil, err
		}
		return &postgres.Repo{DB: pool}, nil
	case "mongodb", "mongodb+srv":
		return mongodb.Connect(ctx, rawURL)
	case "memory":
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unsupported database url scheme %q", u.Scheme)
	}
}

// Unavailable stands in when the store could not be reached at startup.
// Every call fails with orders.ErrStoreUnavailable; the HTTP layer turns
// failed list reads into empty lists.
type Unavailable struct{}

func (Unavailable) FindProduct(context.Context, string) (orders.Product, error) {
	return orders.Product{}, orders.ErrStoreUnavailable
}

func (Unavailable) DecrementSizeStock(context.Context, string, int, int) (bool, error) {
	return false, orders.ErrStoreUnavailable
}

func (Unavailable) SetInStock(context.Context, string, bool) error {
	return orders.ErrStoreUnavailable
}

func (Unavailable) InsertOrder(context.Context, orders.Order) (string, error) {
	return "", orders.ErrStoreUnavailable
}

func (Unavailable) ListOrders(context.Context) ([]orders.Order, error) {
	return nil, orders.ErrStoreUnavailable
}

func (Unavailable) ListProducts(context.Context) ([]orders.Product, error) {
	return nil, orders.ErrStoreUnavailable
}

func (Unavailable) CountProducts(context.Context) (int64, error) {
	return 0, orders.ErrStoreUnavailable
}

func (Unavailable) InsertProduct(context.Context, orders.Product) (string, error) {
	return "", orders.ErrStoreUnavailable
}

func (Unavailable) Close() {}
