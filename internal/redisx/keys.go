package redisx

import "time"

const (
	// Idempotency checkout: idem:checkout:{Idempotency-Key} -> response JSON
	KeyIdemCheckout = "idem:checkout:%s"

	// Penanda checkout sedang diproses untuk Idempotency-Key yang sama.
	KeyIdemCheckoutLock = "idem:checkout:%s:lock"

	// Generasi cache katalog; dinaikkan setiap stok berubah.
	KeyCatalogGen = "catalog:gen"

	// Cache hasil pencarian: catalog:{gen}:{query}
	KeyCatalogEntry = "catalog:%d:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemLock    = 30 * time.Second
	TTLCatalog     = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
