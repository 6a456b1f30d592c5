package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/sepatuku/internal/catalog"
	"github.com/ariefcatur/sepatuku/internal/memstore"
	"github.com/ariefcatur/sepatuku/internal/metrics"
	"github.com/ariefcatur/sepatuku/internal/orders"
	"github.com/ariefcatur/sepatuku/internal/store"
)

type memIdem struct {
	mu     sync.Mutex
	m      map[string][]byte
	claims map[string]bool

	// gate holds the first lookups until all of them have arrived.
	gate    *sync.WaitGroup
	gated   int
	lookups int
}

func newMemIdem() *memIdem {
	return &memIdem{m: map[string][]byte{}, claims: map[string]bool{}}
}

func (i *memIdem) Lookup(_ context.Context, key string, dest any) (bool, error) {
	i.mu.Lock()
	i.lookups++
	wait := i.gate != nil && i.lookups <= i.gated
	i.mu.Unlock()
	if wait {
		i.gate.Done()
		i.gate.Wait()
	}

	i.mu.Lock()
	b, ok := i.m[key]
	i.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (i *memIdem) Store(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.m[key] = b
	return nil
}

func (i *memIdem) Claim(_ context.Context, key string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.claims[key] {
		return false, nil
	}
	i.claims[key] = true
	return true, nil
}

func (i *memIdem) Release(_ context.Context, key string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.claims, key)
	return nil
}

type fixture struct {
	router  *chi.Mux
	store   *memstore.Store
	metrics *metrics.ServerMetrics
}

func newFixture(t *testing.T, s store.Store, idem Idempotency) fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewServerMetrics(reg, "api")

	h := &Handler{
		Catalog:  catalog.NewService(s, nil),
		Checkout: orders.NewEngine(s, s),
		Orders:   s,
		Idem:     idem,
		Metrics:  m,
	}
	r := NewRouter(m, metrics.HandlerFor(reg))
	h.Register(r)

	mem, _ := s.(*memstore.Store)
	return fixture{router: r, store: mem, metrics: m}
}

func seeded(t *testing.T) *memstore.Store {
	t.Helper()
	s := memstore.New()
	for _, p := range []orders.Product{
		{ID: "runner", Title: "Sepatuku Runner Pro", Price: 499000, Brand: "Sepatuku", Category: "Running", InStock: true,
			Sizes: []orders.SizeStock{{Size: 42, Stock: 10}}},
		{ID: "street", Title: "Sepatuku Street Classic", Price: 399000, Brand: "Sepatuku", Category: "Casual", InStock: true,
			Sizes: []orders.SizeStock{{Size: 40, Stock: 1}}},
	} {
		_, err := s.InsertProduct(context.Background(), p)
		require.NoError(t, err)
	}
	return s
}

func do(r http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

const codBody = `{
	"items": [{"product_id": "runner", "quantity": 3, "size": 42}],
	"customer": {"name": "Budi", "email": "budi@example.com", "phone": "0812", "address": "Jl. Merdeka 1"},
	"payment_method": "cod"
}`

func TestRoot(t *testing.T) {
	f := newFixture(t, memstore.New(), nil)
	rec := do(f.router, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Sepatuku API Running"}`, rec.Body.String())
}

func TestHealthzAndMetrics(t *testing.T) {
	f := newFixture(t, memstore.New(), nil)
	rec := do(f.router, http.MethodGet, "/healthz", "")
	assert.Equal(t, "ok", rec.Body.String())

	do(f.router, http.MethodGet, "/", "")
	rec = do(f.router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sepatuku_api_http_requests_total")
}

func TestListProductsFilters(t *testing.T) {
	f := newFixture(t, seeded(t), nil)

	var all []orders.Product
	rec := do(f.router, http.MethodGet, "/products", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	var casual []orders.Product
	rec = do(f.router, http.MethodGet, "/products?category=casual", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &casual))
	require.Len(t, casual, 1)
	assert.Equal(t, "street", casual[0].ID)

	rec = do(f.router, http.MethodGet, "/products?q=boots", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCheckoutCOD(t *testing.T) {
	f := newFixture(t, seeded(t), nil)

	rec := do(f.router, http.MethodPost, "/checkout", codBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res["order_id"])
	assert.Equal(t, float64(1497000), res["total"])
	assert.Equal(t, "COD", res["payment_method"])
	assert.Equal(t, "cod-confirmed", res["status"])
	assert.Equal(t, orders.InstructionsCOD, res["instructions"])
	assert.NotContains(t, res, "qris_qr_url")

	p, err := f.store.FindProduct(context.Background(), "runner")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Sizes[0].Stock)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues(metrics.CheckoutOK)))

	var list []orders.Order
	rec = do(f.router, http.MethodGet, "/orders", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, res["order_id"], list[0].ID)
}

func TestCheckoutRejections(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		detail string
	}{
		{
			name:   "non numeric size",
			body:   `{"items":[{"product_id":"runner","quantity":1,"size":"besar"}],"customer":{},"payment_method":"COD"}`,
			detail: orders.ErrInvalidSize.Error(),
		},
		{
			name:   "malformed json",
			body:   `{"items":`,
			detail: "invalid json",
		},
		{
			name:   "unknown product",
			body:   `{"items":[{"product_id":"nope","quantity":1,"size":42}],"customer":{"name":"a","email":"b","phone":"c","address":"d"},"payment_method":"COD"}`,
			detail: "produk tidak ditemukan",
		},
		{
			name:   "not enough stock",
			body:   `{"items":[{"product_id":"street","quantity":2,"size":40}],"customer":{"name":"a","email":"b","phone":"c","address":"d"},"payment_method":"COD"}`,
			detail: "ukuran tidak tersedia",
		},
		{
			name:   "unsupported payment",
			body:   `{"items":[{"product_id":"runner","quantity":1,"size":42}],"customer":{"name":"a","email":"b","phone":"c","address":"d"},"payment_method":"TRANSFER"}`,
			detail: "metode pembayaran tidak didukung",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, seeded(t), nil)
			rec := do(f.router, http.MethodPost, "/checkout", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var e errorResp
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
			assert.Contains(t, e.Detail, tc.detail)

			list, err := f.store.ListOrders(context.Background())
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestCheckoutStoreUnavailable(t *testing.T) {
	f := newFixture(t, store.Unavailable{}, nil)

	rec := do(f.router, http.MethodPost, "/checkout", codBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues(metrics.CheckoutUnavailable)))

	rec = do(f.router, http.MethodGet, "/orders", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = do(f.router, http.MethodGet, "/products", "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCheckoutIdempotencyReplay(t *testing.T) {
	idem := newMemIdem()
	f := newFixture(t, seeded(t), idem)

	first := do(f.router, http.MethodPost, "/checkout", codBody, "Idempotency-Key", "cart-1")
	require.Equal(t, http.StatusOK, first.Code)
	second := do(f.router, http.MethodPost, "/checkout", codBody, "Idempotency-Key", "cart-1")
	require.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	list, err := f.store.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	p, err := f.store.FindProduct(context.Background(), "runner")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Sizes[0].Stock)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues(metrics.CheckoutReplayed)))
}

func TestCheckoutIdempotencyKeyInProgress(t *testing.T) {
	idem := newMemIdem()
	f := newFixture(t, seeded(t), idem)

	won, err := idem.Claim(context.Background(), "cart-1")
	require.NoError(t, err)
	require.True(t, won)

	rec := do(f.router, http.MethodPost, "/checkout", codBody, "Idempotency-Key", "cart-1")
	assert.Equal(t, http.StatusConflict, rec.Code)

	list, err := f.store.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Checkouts.WithLabelValues(metrics.CheckoutConflict)))
}

func TestCheckoutIdempotencyConcurrentRequests(t *testing.T) {
	idem := newMemIdem()
	idem.gate = &sync.WaitGroup{}
	idem.gate.Add(2)
	idem.gated = 2
	f := newFixture(t, seeded(t), idem)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for n := range codes {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			codes[n] = do(f.router, http.MethodPost, "/checkout", codBody, "Idempotency-Key", "cart-1").Code
		}(n)
	}
	wg.Wait()

	assert.Contains(t, codes, http.StatusOK)
	for _, c := range codes {
		assert.Contains(t, []int{http.StatusOK, http.StatusConflict}, c)
	}

	list, err := f.store.ListOrders(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	p, err := f.store.FindProduct(context.Background(), "runner")
	require.NoError(t, err)
	assert.Equal(t, 7, p.Sizes[0].Stock)
}

func TestCheckoutFailureReleasesIdempotencyKey(t *testing.T) {
	idem := newMemIdem()
	f := newFixture(t, seeded(t), idem)

	bad := strings.Replace(codBody, `"quantity": 3`, `"quantity": 30`, 1)
	rec := do(f.router, http.MethodPost, "/checkout", bad, "Idempotency-Key", "cart-1")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(f.router, http.MethodPost, "/checkout", codBody, "Idempotency-Key", "cart-1")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t, memstore.New(), nil)
	rec := do(f.router, http.MethodOptions, "/checkout", "",
		"Origin", "https://shop.example",
		"Access-Control-Request-Method", "POST",
	)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
