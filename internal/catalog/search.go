package catalog

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/sepatuku/internal/orders"
)

// Query filters the catalog. Empty fields match everything.
type Query struct {
	Text     string
	Category string
}

func (q Query) normalized() Query {
	return Query{
		Text:     strings.ToLower(strings.TrimSpace(q.Text)),
		Category: strings.ToLower(strings.TrimSpace(q.Category)),
	}
}

func (q Query) cacheKey() string {
	n := q.normalized()
	return "products:" + n.Text + "|" + n.Category
}

// Match applies the catalog filter: a case-insensitive substring of title,
// description, brand or category for Text, and case-insensitive equality
// for Category. Both must hold when both are set.
func Match(p orders.Product, q Query) bool {
	q = q.normalized()
	if q.Category != "" && strings.ToLower(p.Category) != q.Category {
		return false
	}
	if q.Text == "" {
		return true
	}
	for _, field := range []string{p.Title, p.Description, p.Brand, p.Category} {
		if strings.Contains(strings.ToLower(field), q.Text) {
			return true
		}
	}
	return false
}

// Cache is a read-through cache for search results. Bump drops every cached
// result at once.
type Cache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Bump(ctx context.Context) error
}

type Service struct {
	Products orders.ProductStore
	Cache    Cache // optional
	Log      *log.Entry
}

func NewService(products orders.ProductStore, cache Cache) *Service {
	return &Service{
		Products: products,
		Cache:    cache,
		Log:      log.WithField("component", "catalog"),
	}
}

func (s *Service) Search(ctx context.Context, q Query) ([]orders.Product, error) {
	key := q.cacheKey()
	if s.Cache != nil {
		var cached []orders.Product
		hit, err := s.Cache.Get(ctx, key, &cached)
		if err != nil {
			s.Log.WithError(err).Warn("catalog cache get")
		}
		if hit {
			return cached, nil
		}
	}

	all, err := s.Products.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]orders.Product, 0, len(all))
	for _, p := range all {
		if Match(p, q) {
			out = append(out, p)
		}
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, key, out); err != nil {
			s.Log.WithError(err).Warn("catalog cache set")
		}
	}
	return out, nil
}

// Invalidate is called after stock changes so in_stock and sizes are not
// served stale for a full TTL.
func (s *Service) Invalidate(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Bump(ctx); err != nil {
		s.Log.WithError(err).Warn("catalog cache invalidate")
	}
}
