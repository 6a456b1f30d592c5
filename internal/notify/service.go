// Package notify turns checkout events into customer and ops notifications.
package notify

import (
	"context"
	"fmt"
	"strings"

	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	kafkax "github.com/ariefcatur/sepatuku/internal/kafka"
	"github.com/ariefcatur/sepatuku/internal/orders"
)

// Deduper reports whether an event id is being processed for the first time.
type Deduper interface {
	First(ctx context.Context, eventID string) (bool, error)
}

// Message is one outgoing customer notification.
type Message struct {
	OrderID string
	To      string
	Phone   string
	Subject string
	Body    string
}

// Sender delivers a Message. LogSender is the only channel today.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

type LogSender struct{}

func (LogSender) Send(_ context.Context, m Message) error {
	log.WithFields(log.Fields{
		"order_id": m.OrderID,
		"to":       m.To,
		"phone":    m.Phone,
		"subject":  m.Subject,
	}).Info(m.Body)
	return nil
}

type Service struct {
	Dedup      Deduper // nil = tanpa dedup
	Sender     Sender
	QRRenderer string
}

// HandleOrderCreated: dipasang sebagai handler consumer order.created.
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		return err
	}
	if env.EventType != orders.EventOrderCreated {
		return nil
	}
	if first, err := s.first(ctx, env.EventID); err != nil || !first {
		return err
	}

	p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}
	msg, err := Compose(p, s.QRRenderer)
	if err != nil {
		log.WithError(err).WithField("order_id", p.OrderID).Warn("skip notification")
		return nil
	}
	return s.Sender.Send(ctx, msg)
}

// HandleStockShortfall mencatat order yang stoknya tidak berhasil dipotong.
func (s *Service) HandleStockShortfall(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.UnmarshalEnvelope(m.Value)
	if err != nil {
		return err
	}
	if env.EventType != orders.EventStockShortfall {
		return nil
	}
	if first, err := s.first(ctx, env.EventID); err != nil || !first {
		return err
	}

	p, err := kafkax.UnwrapPayload[orders.StockShortfallPayload](env.Payload)
	if err != nil {
		return err
	}
	for _, it := range p.Items {
		log.WithFields(log.Fields{
			"order_id":   p.OrderID,
			"product_id": it.ProductID,
			"size":       it.Size,
			"required":   it.Required,
			"trace_id":   env.TraceID,
		}).Warn("stock shortfall needs manual follow-up")
	}
	return nil
}

func (s *Service) first(ctx context.Context, eventID string) (bool, error) {
	if s.Dedup == nil {
		return true, nil
	}
	first, err := s.Dedup.First(ctx, eventID)
	if err != nil {
		// Redis mati: lebih baik kirim dobel daripada tidak sama sekali.
		log.WithError(err).WithField("event_id", eventID).Warn("dedup unavailable")
		return true, nil
	}
	return first, nil
}

// Compose builds the customer message for a freshly created order.
func Compose(p orders.OrderCreatedPayload, qrRenderer string) (Message, error) {
	if !p.PaymentMethod.Valid() {
		return Message{}, fmt.Errorf("%w: %q", orders.ErrUnsupportedPaymentMethod, p.PaymentMethod)
	}
	wf := orders.SelectWorkflow(p.OrderID, p.Total, p.PaymentMethod, qrRenderer)

	var b strings.Builder
	fmt.Fprintf(&b, "Halo %s, pesanan %s sudah kami terima. Total: %s.\n", p.CustomerName, p.OrderID, Rupiah(p.Total))
	for _, it := range p.Items {
		fmt.Fprintf(&b, "- %s ukuran %d x%d\n", it.ProductID, it.Size, it.Qty)
	}
	b.WriteString(wf.Instructions)
	if wf.QRURL != "" {
		fmt.Fprintf(&b, "\nQR: %s", wf.QRURL)
	}

	return Message{
		OrderID: p.OrderID,
		To:      p.CustomerEmail,
		Phone:   p.CustomerPhone,
		Subject: fmt.Sprintf("Pesanan %s (%s)", p.OrderID, p.PaymentMethod),
		Body:    b.String(),
	}, nil
}

// Rupiah formats an amount as "Rp 1.497.000".
func Rupiah(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := fmt.Sprintf("%d", v)
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-Rp " + b.String()
	}
	return "Rp " + b.String()
}
