package orders

import "strings"

type Status string

const (
	StatusPending      Status = "pending"
	StatusPaid         Status = "paid"
	StatusCODConfirmed Status = "cod-confirmed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCODConfirmed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentCOD  PaymentMethod = "COD"
	PaymentQRIS PaymentMethod = "QRIS"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentQRIS
}

// InitialStatus: COD langsung dikonfirmasi, QRIS menunggu pembayaran.
// Transisi ke "paid" terjadi di luar checkout (webhook pembayaran).
func (m PaymentMethod) InitialStatus() Status {
	if m == PaymentQRIS {
		return StatusPending
	}
	return StatusCODConfirmed
}

// ParsePaymentMethod normalizes raw input (case-insensitive, trimmed).
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(raw)))
	if !m.Valid() {
		return "", ErrUnsupportedPaymentMethod
	}
	return m, nil
}
