package catalog

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/sepatuku/internal/orders"
)

func sizes(from, to, stock int) []orders.SizeStock {
	out := make([]orders.SizeStock, 0, to-from+1)
	for s := from; s <= to; s++ {
		out = append(out, orders.SizeStock{Size: s, Stock: stock})
	}
	return out
}

// DemoProducts is the catalog inserted into an empty store.
func DemoProducts() []orders.Product {
	return []orders.Product{
		{
			Title:       "Sepatuku Runner Pro",
			Description: "Sepatu lari ringan dengan bantalan empuk.",
			Price:       499000,
			Image:       "https://images.unsplash.com/photo-1542291026-7eec264c27ff?w=800&q=80&auto=format&fit=crop",
			Brand:       "Sepatuku",
			Category:    "Running",
			InStock:     true,
			Sizes:       sizes(39, 44, 10),
		},
		{
			Title:       "Sepatuku Street Classic",
			Description: "Gaya kasual untuk sehari-hari.",
			Price:       399000,
			Image:       "https://images.unsplash.com/photo-1519741497674-611481863552?w=800&q=80&auto=format&fit=crop",
			Brand:       "Sepatuku",
			Category:    "Casual",
			InStock:     true,
			Sizes:       sizes(38, 43, 8),
		},
		{
			Title:       "Sepatuku Court Ace",
			Description: "Sneakers putih bersih serbaguna.",
			Price:       459000,
			Image:       "https://images.unsplash.com/photo-1543508282-6319a3e2621f?w=800&q=80&auto=format&fit=crop",
			Brand:       "Sepatuku",
			Category:    "Sneakers",
			InStock:     true,
			Sizes:       sizes(39, 45, 6),
		},
	}
}

// Seed fills an empty catalog with DemoProducts. It never fails startup:
// errors are logged and the service keeps running. Returns the number of
// products inserted.
func Seed(ctx context.Context, store orders.ProductStore) int {
	logger := log.WithField("component", "seed")
	n, err := store.CountProducts(ctx)
	if err != nil {
		logger.WithError(err).Warn("seed skipped: count products")
		return 0
	}
	if n > 0 {
		return 0
	}
	inserted := 0
	for _, p := range DemoProducts() {
		if _, err := store.InsertProduct(ctx, p); err != nil {
			logger.WithError(err).WithField("title", p.Title).Warn("seed product")
			continue
		}
		inserted++
	}
	logger.WithField("inserted", inserted).Info("demo catalog seeded")
	return inserted
}
