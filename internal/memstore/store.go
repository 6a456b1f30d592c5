// Package memstore keeps products and orders in process memory. It backs
// memory:// URLs for local runs and is the store used by tests.
package memstore

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ariefcatur/sepatuku/internal/orders"
)

type Store struct {
	mu       sync.RWMutex
	products map[string]*orders.Product
	order    []string // product insertion order
	orders   []orders.Order
}

func New() *Store {
	return &Store{products: map[string]*orders.Product{}}
}

func (s *Store) FindProduct(_ context.Context, id string) (orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return orders.Product{}, orders.ErrProductNotFound
	}
	return clone(*p), nil
}

func (s *Store) DecrementSizeStock(_ context.Context, id string, size, qty int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return false, nil
	}
	for i := range p.Sizes {
		if p.Sizes[i].Size == size && p.Sizes[i].Stock >= qty {
			p.Sizes[i].Stock -= qty
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) SetInStock(_ context.Context, id string, inStock bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.products[id]; ok {
		p.InStock = inStock
	}
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, clone(*s.products[id]))
	}
	return out, nil
}

func (s *Store) CountProducts(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.products)), nil
}

// InsertProduct keeps p.ID when set so tests can use fixed ids.
func (s *Store) InsertProduct(_ context.Context, p orders.Product) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := s.products[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	cp := clone(p)
	s.products[p.ID] = &cp
	return p.ID, nil
}

func (s *Store) InsertOrder(_ context.Context, o orders.Order) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = uuid.NewString()
	o.Items = append([]orders.OrderItem(nil), o.Items...)
	s.orders = append(s.orders, o)
	return o.ID, nil
}

func (s *Store) ListOrders(_ context.Context) ([]orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Order, 0, len(s.orders))
	for _, o := range s.orders {
		o.Items = append([]orders.OrderItem(nil), o.Items...)
		out = append(out, o)
	}
	return out, nil
}

func (s *Store) Close() {}

func clone(p orders.Product) orders.Product {
	p.Sizes = append([]orders.SizeStock(nil), p.Sizes...)
	return p
}
