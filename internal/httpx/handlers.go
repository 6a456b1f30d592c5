package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/sepatuku/internal/catalog"
	"github.com/ariefcatur/sepatuku/internal/metrics"
	"github.com/ariefcatur/sepatuku/internal/orders"
	"github.com/ariefcatur/sepatuku/internal/redisx"
)

// Idempotency stores checkout responses by client key. Claim must be
// atomic: while a key is claimed, other Claim calls for it return false.
type Idempotency interface {
	Lookup(ctx context.Context, key string, dest any) (bool, error)
	Store(ctx context.Context, key string, v any) error
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

const detailCheckoutInProgress = "checkout dengan Idempotency-Key ini sedang diproses"

type Handler struct {
	Catalog  *catalog.Service
	Checkout *orders.Engine
	Orders   orders.OrderStore
	Idem     Idempotency           // optional
	Metrics  *metrics.ServerMetrics // optional
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/", h.root)
	r.Get("/products", h.listProducts)
	r.Post("/checkout", h.checkout)
	r.Get("/orders", h.listOrders)
}

type errorResp struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResp{Detail: err.Error()})
}

// statusFor: validasi → 400, store mati → 503, sisanya 500.
func statusFor(err error) int {
	switch {
	case orders.IsClientError(err):
		return http.StatusBadRequest
	case errors.Is(err, orders.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sepatuku API Running"})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	q := catalog.Query{Text: r.URL.Query().Get("q"), Category: r.URL.Query().Get("category")}
	ps, err := h.Catalog.Search(ctx, q)
	if err != nil {
		// Katalog kosong lebih baik daripada halaman error.
		log.WithError(err).Warn("list products")
		ps = []orders.Product{}
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.ListOrders(ctx)
	if err != nil {
		log.WithError(err).Warn("list orders")
		list = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req orders.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.observe(metrics.CheckoutRejected)
		if errors.Is(err, orders.ErrInvalidSize) {
			writeJSON(w, http.StatusBadRequest, errorResp{Detail: orders.ErrInvalidSize.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp{Detail: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	key := redisx.IdempotencyKey(r)
	if key != "" && h.Idem != nil {
		claimed, done := h.claimIdempotency(ctx, w, key)
		if done {
			return
		}
		if claimed {
			defer h.releaseIdempotency(ctx, key)
		}
	}

	res, err := h.Checkout.Checkout(ctx, req)
	if err != nil {
		switch statusFor(err) {
		case http.StatusBadRequest:
			h.observe(metrics.CheckoutRejected)
		case http.StatusServiceUnavailable:
			h.observe(metrics.CheckoutUnavailable)
		default:
			h.observe(metrics.CheckoutError)
			log.WithError(err).Error("checkout")
		}
		writeError(w, err)
		return
	}
	h.observe(metrics.CheckoutOK)
	if h.Metrics != nil && len(res.Shortfalls) > 0 {
		h.Metrics.Shortfalls.Add(float64(len(res.Shortfalls)))
	}

	// Stok berubah, hasil pencarian lama tidak berlaku lagi.
	h.Catalog.Invalidate(ctx)

	if key != "" && h.Idem != nil {
		if err := h.Idem.Store(context.WithoutCancel(ctx), key, res); err != nil {
			log.WithError(err).Warn("idempotency store")
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// claimIdempotency replays a stored response or claims key for this
// request. done is true when the response has already been written.
func (h *Handler) claimIdempotency(ctx context.Context, w http.ResponseWriter, key string) (claimed, done bool) {
	if h.replay(ctx, w, key) {
		return false, true
	}
	won, err := h.Idem.Claim(ctx, key)
	if err != nil {
		// Redis bermasalah: checkout tetap jalan tanpa perlindungan.
		log.WithError(err).Warn("idempotency claim")
		return false, false
	}
	if won {
		// Pemenang sebelumnya bisa saja sudah menyimpan lalu melepas klaim.
		if h.replay(ctx, w, key) {
			h.releaseIdempotency(ctx, key)
			return false, true
		}
		return true, false
	}
	// Kalah klaim: mungkin pemenang sudah selesai dan menyimpan hasilnya.
	if h.replay(ctx, w, key) {
		return false, true
	}
	h.observe(metrics.CheckoutConflict)
	writeJSON(w, http.StatusConflict, errorResp{Detail: detailCheckoutInProgress})
	return false, true
}

func (h *Handler) replay(ctx context.Context, w http.ResponseWriter, key string) bool {
	var prev orders.CheckoutResult
	found, err := h.Idem.Lookup(ctx, key, &prev)
	if err != nil {
		log.WithError(err).Warn("idempotency lookup")
		return false
	}
	if !found {
		return false
	}
	h.observe(metrics.CheckoutReplayed)
	writeJSON(w, http.StatusOK, prev)
	return true
}

func (h *Handler) releaseIdempotency(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := h.Idem.Release(ctx, key); err != nil {
		log.WithError(err).Warn("idempotency release")
	}
}

func (h *Handler) observe(result string) {
	if h.Metrics != nil {
		h.Metrics.Checkout(result)
	}
}
