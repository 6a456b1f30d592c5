package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventStockShortfall = "StockShortfall"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g., "sepatuku-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type ItemLine struct {
	ProductID string `json:"product_id"`
	Size      int    `json:"size"`
	Qty       int    `json:"qty"`
	Price     int64  `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID       string        `json:"order_id"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        Status        `json:"status"`
	Total         int64         `json:"total"`
	Items         []ItemLine    `json:"items"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	CustomerPhone string        `json:"customer_phone"`
}

// Shortfall is a stock decrement that did not apply because a concurrent
// checkout consumed the stock between validation and write.
type Shortfall struct {
	ProductID string `json:"product_id"`
	Size      int    `json:"size"`
	Required  int    `json:"required"`
}

type StockShortfallPayload struct {
	OrderID string      `json:"order_id"`
	Items   []Shortfall `json:"items"`
}

func NewOrderCreatedPayload(o Order) OrderCreatedPayload {
	items := make([]ItemLine, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemLine{ProductID: it.ProductID, Size: it.Size, Qty: it.Quantity, Price: it.Price})
	}
	return OrderCreatedPayload{
		OrderID:       o.ID,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		Total:         o.Total,
		Items:         items,
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		CustomerPhone: o.Customer.Phone,
	}
}
