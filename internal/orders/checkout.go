package orders

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

type CheckoutRequest struct {
	Items         []CartItem `json:"items"`
	Customer      Customer   `json:"customer"`
	PaymentMethod string     `json:"payment_method"`
}

type CheckoutResult struct {
	OrderID       string        `json:"order_id"`
	Total         int64         `json:"total"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        Status        `json:"status"`
	Instructions  string        `json:"instructions"`
	QRISQRURL     string        `json:"qris_qr_url,omitempty"`

	Shortfalls []Shortfall `json:"-"`
}

// Engine turns a cart into an order.
type Engine struct {
	Inventory  Inventory
	Orders     OrderStore
	Publisher  Publisher
	QRRenderer string
	Log        *log.Entry
	Now        func() time.Time
}

func NewEngine(inv Inventory, store OrderStore) *Engine {
	return &Engine{
		Inventory:  inv,
		Orders:     store,
		Publisher:  nopPublisher{},
		QRRenderer: DefaultQRRendererURL,
		Log:        log.WithField("component", "checkout"),
		Now:        time.Now,
	}
}

// Checkout validates every cart line against current inventory before
// touching anything. The first invalid line aborts the whole checkout and
// nothing is written.
func (e *Engine) Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error) {
	if len(req.Items) == 0 {
		return CheckoutResult{}, ErrEmptyCart
	}
	if err := req.Customer.Validate(); err != nil {
		return CheckoutResult{}, err
	}

	var total int64
	items := make([]OrderItem, 0, len(req.Items))
	// qty yang sudah diminta baris sebelumnya untuk produk+ukuran yang sama
	requested := make(map[sizeKey]int, len(req.Items))
	for _, it := range req.Items {
		key := sizeKey{productID: it.ProductID, size: int(it.Size)}
		line, err := e.validateLine(ctx, it, requested[key])
		if err != nil {
			return CheckoutResult{}, err
		}
		requested[key] += line.Quantity
		// harga selalu dari produk di DB, bukan dari client
		total += line.Price * int64(line.Quantity)
		items = append(items, line)
	}

	pm, err := ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("%w: %s", err, req.PaymentMethod)
	}

	order := Order{
		Items:         items,
		Total:         total,
		PaymentMethod: pm,
		Status:        pm.InitialStatus(),
		Customer:      req.Customer,
		CreatedAt:     e.now().UTC(),
	}
	orderID, err := e.Orders.InsertOrder(ctx, order)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("insert order: %w", err)
	}
	order.ID = orderID
	logger := e.logger().WithField("order_id", orderID)

	// Order sudah tersimpan: client yang putus tidak boleh membatalkan
	// pemotongan stok.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postInsertTimeout)
	defer cancel()

	// Order sudah tersimpan; dari sini kegagalan stok hanya dicatat.
	shortfalls := e.decrementStock(ctx, logger, order)
	e.refreshInStock(ctx, logger, order)

	pub := e.publisher()
	pub.OrderCreated(ctx, order)
	if len(shortfalls) > 0 {
		pub.StockShortfall(ctx, orderID, shortfalls)
	}

	wf := SelectWorkflow(orderID, total, pm, e.QRRenderer)
	logger.WithFields(log.Fields{
		"total":          total,
		"payment_method": pm,
		"items":          len(items),
	}).Info("order created")

	return CheckoutResult{
		OrderID:       orderID,
		Total:         total,
		PaymentMethod: pm,
		Status:        order.Status,
		Instructions:  wf.Instructions,
		QRISQRURL:     wf.QRURL,
		Shortfalls:    shortfalls,
	}, nil
}

type sizeKey struct {
	productID string
	size      int
}

// postInsertTimeout bounds stock updates and publishing once the order exists.
const postInsertTimeout = 10 * time.Second

// validateLine checks one cart line. already is the quantity earlier lines
// of the same cart took from this product and size.
func (e *Engine) validateLine(ctx context.Context, it CartItem, already int) (OrderItem, error) {
	if it.Quantity < 1 {
		return OrderItem{}, fmt.Errorf("%w: %s", ErrInvalidQuantity, it.ProductID)
	}
	p, err := e.Inventory.FindProduct(ctx, it.ProductID)
	if err != nil {
		return OrderItem{}, fmt.Errorf("%w: %s", err, it.ProductID)
	}
	if !p.InStock {
		return OrderItem{}, fmt.Errorf("%w: %s", ErrProductUnavailable, p.Title)
	}
	size := int(it.Size)
	entry, ok := p.SizeEntry(size)
	if !ok || entry.Stock < already+it.Quantity {
		return OrderItem{}, fmt.Errorf("%w: %s ukuran %d", ErrSizeUnavailable, p.Title, size)
	}
	return OrderItem{
		ProductID: p.ID,
		Title:     p.Title,
		Price:     p.Price,
		Quantity:  it.Quantity,
		Image:     p.Image,
		Size:      size,
	}, nil
}

func (e *Engine) decrementStock(ctx context.Context, logger *log.Entry, o Order) []Shortfall {
	var shortfalls []Shortfall
	for _, it := range o.Items {
		applied, err := e.Inventory.DecrementSizeStock(ctx, it.ProductID, it.Size, it.Quantity)
		fields := log.Fields{"product_id": it.ProductID, "size": it.Size, "qty": it.Quantity}
		switch {
		case err != nil:
			logger.WithError(err).WithFields(fields).Error("decrement stock")
		case !applied:
			logger.WithFields(fields).Warn("stock shortfall: decrement not applied")
		default:
			continue
		}
		shortfalls = append(shortfalls, Shortfall{ProductID: it.ProductID, Size: it.Size, Required: it.Quantity})
	}
	return shortfalls
}

// refreshInStock re-reads each touched product once and persists in_stock
// when it no longer matches the per-size counters.
func (e *Engine) refreshInStock(ctx context.Context, logger *log.Entry, o Order) {
	seen := make(map[string]bool, len(o.Items))
	for _, it := range o.Items {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true

		p, err := e.Inventory.FindProduct(ctx, it.ProductID)
		if err != nil {
			logger.WithError(err).WithField("product_id", it.ProductID).Error("reload product")
			continue
		}
		if has := p.HasStock(); has != p.InStock {
			if err := e.Inventory.SetInStock(ctx, p.ID, has); err != nil {
				logger.WithError(err).WithField("product_id", p.ID).Error("set in_stock")
			}
		}
	}
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) logger() *log.Entry {
	if e.Log == nil {
		return log.NewEntry(log.StandardLogger())
	}
	return e.Log
}

func (e *Engine) publisher() Publisher {
	if e.Publisher == nil {
		return nopPublisher{}
	}
	return e.Publisher
}
