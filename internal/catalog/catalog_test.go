package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/sepatuku/internal/memstore"
	"github.com/ariefcatur/sepatuku/internal/orders"
	"github.com/ariefcatur/sepatuku/internal/store"
)

func TestMatch(t *testing.T) {
	p := orders.Product{
		Title:       "Sepatuku Runner Pro",
		Description: "Sepatu lari ringan",
		Brand:       "Sepatuku",
		Category:    "Running",
	}
	tests := []struct {
		name string
		q    Query
		want bool
	}{
		{"empty query", Query{}, true},
		{"title substring any case", Query{Text: "runner"}, true},
		{"description substring", Query{Text: "LARI"}, true},
		{"brand substring", Query{Text: "patuk"}, true},
		{"category via text", Query{Text: "runn"}, true},
		{"no text match", Query{Text: "sandal"}, false},
		{"category exact any case", Query{Category: "running"}, true},
		{"category is not substring", Query{Category: "Run"}, false},
		{"both match", Query{Text: "pro", Category: "RUNNING"}, true},
		{"text matches category does not", Query{Text: "pro", Category: "Casual"}, false},
		{"category matches text does not", Query{Text: "sandal", Category: "Running"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(p, tt.q))
		})
	}
}

func seeded(t *testing.T) *memstore.Store {
	t.Helper()
	store := memstore.New()
	require.Equal(t, 3, Seed(context.Background(), store))
	return store
}

func TestSearchByCategory(t *testing.T) {
	svc := NewService(seeded(t), nil)

	got, err := svc.Search(context.Background(), Query{Category: "running"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Running", got[0].Category)
	assert.NotEmpty(t, got[0].ID)

	all, err := svc.Search(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := svc.Search(context.Background(), Query{Text: "boots"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

type mapCache struct {
	data  map[string][]byte
	bumps int
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *mapCache) Bump(context.Context) error {
	c.bumps++
	c.data = map[string][]byte{}
	return nil
}

type countingStore struct {
	orders.ProductStore
	lists int
}

func (s *countingStore) ListProducts(ctx context.Context) ([]orders.Product, error) {
	s.lists++
	return s.ProductStore.ListProducts(ctx)
}

func TestSearchUsesCache(t *testing.T) {
	store := &countingStore{ProductStore: seeded(t)}
	cache := &mapCache{data: map[string][]byte{}}
	svc := NewService(store, cache)

	first, err := svc.Search(context.Background(), Query{Text: "Court"})
	require.NoError(t, err)
	second, err := svc.Search(context.Background(), Query{Text: " court "})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.lists)

	svc.Invalidate(context.Background())
	_, err = svc.Search(context.Background(), Query{Text: "court"})
	require.NoError(t, err)
	assert.Equal(t, 2, store.lists)
	assert.Equal(t, 1, cache.bumps)
}

func TestSeedSkipsNonEmptyStore(t *testing.T) {
	store := seeded(t)
	assert.Equal(t, 0, Seed(context.Background(), store))

	n, err := store.CountProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

type brokenStore struct{ orders.ProductStore }

func (brokenStore) CountProducts(context.Context) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestSeedSwallowsErrors(t *testing.T) {
	assert.NotPanics(t, func() {
		assert.Equal(t, 0, Seed(context.Background(), brokenStore{}))
	})
}

func TestDemoProductsAreValid(t *testing.T) {
	for _, p := range DemoProducts() {
		require.NoError(t, p.Validate(), p.Title)
		assert.Equal(t, p.HasStock(), p.InStock, p.Title)
	}
}

func TestSearchDoesNotCacheStoreFailure(t *testing.T) {
	cache := &mapCache{data: map[string][]byte{}}
	svc := NewService(store.Unavailable{}, cache)

	_, err := svc.Search(context.Background(), Query{})
	require.ErrorIs(t, err, orders.ErrStoreUnavailable)
	assert.Empty(t, cache.data)
}
