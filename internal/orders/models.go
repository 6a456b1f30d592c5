package orders

import (
	"fmt"
	"strings"
	"time"
)

// SizeStock adalah stok untuk satu ukuran sepatu.
type SizeStock struct {
	Size  int `json:"size"`
	Stock int `json:"stock"`
}

type Product struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       int64       `json:"price"` // rupiah
	Image       string      `json:"image"`
	Brand       string      `json:"brand"`
	Category    string      `json:"category"`
	InStock     bool        `json:"in_stock"`
	Sizes       []SizeStock `json:"sizes"`
}

// HasStock reports whether at least one size still has stock. in_stock must
// always equal this value after a stock mutation.
func (p Product) HasStock() bool {
	for _, s := range p.Sizes {
		if s.Stock > 0 {
			return true
		}
	}
	return false
}

// SizeEntry returns the stock entry for size, if the product carries it.
func (p Product) SizeEntry(size int) (SizeStock, bool) {
	for _, s := range p.Sizes {
		if s.Size == size {
			return s, true
		}
	}
	return SizeStock{}, false
}

// Validate checks the field constraints a store enforces before writing.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidProduct)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrInvalidProduct)
	}
	seen := make(map[int]bool, len(p.Sizes))
	for _, s := range p.Sizes {
		if s.Stock < 0 {
			return fmt.Errorf("%w: negative stock for size %d", ErrInvalidProduct, s.Size)
		}
		if seen[s.Size] {
			return fmt.Errorf("%w: duplicate size %d", ErrInvalidProduct, s.Size)
		}
		seen[s.Size] = true
	}
	return nil
}

// CartItem is request scoped and never persisted.
type CartItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      Size   `json:"size"`
}

// OrderItem snapshots the product at order time so catalog edits never
// change historical orders.
type OrderItem struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Image     string `json:"image,omitempty"`
	Size      int    `json:"size"`
}

type Customer struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

func (c Customer) Validate() error {
	required := []struct{ field, value string }{
		{"name", c.Name},
		{"email", c.Email},
		{"phone", c.Phone},
		{"address", c.Address},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s wajib diisi", ErrInvalidCustomer, r.field)
		}
	}
	return nil
}

type Order struct {
	ID            string        `json:"id"`
	Items         []OrderItem   `json:"items"`
	Total         int64         `json:"total"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        Status        `json:"status"`
	Customer      Customer      `json:"customer"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Validate is run by every order store before insert.
func (o Order) Validate() error {
	if len(o.Items) == 0 {
		return fmt.Errorf("%w: no items", ErrInvalidOrder)
	}
	var sum int64
	for _, it := range o.Items {
		if it.Quantity < 1 {
			return fmt.Errorf("%w: quantity must be >= 1 for %s", ErrInvalidOrder, it.ProductID)
		}
		if it.Price < 0 {
			return fmt.Errorf("%w: negative price for %s", ErrInvalidOrder, it.ProductID)
		}
		sum += it.Price * int64(it.Quantity)
	}
	if o.Total < 0 || o.Total != sum {
		return fmt.Errorf("%w: total %d does not match items (%d)", ErrInvalidOrder, o.Total, sum)
	}
	if !o.PaymentMethod.Valid() {
		return fmt.Errorf("%w: payment method %q", ErrInvalidOrder, o.PaymentMethod)
	}
	if !o.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidOrder, o.Status)
	}
	return o.Customer.Validate()
}
