package orders

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	InstructionsQRIS = "Scan QRIS untuk menyelesaikan pembayaran."
	InstructionsCOD  = "Pesanan COD dikonfirmasi. Siapkan pembayaran tunai saat kurir datang."

	DefaultQRRendererURL = "https://api.qrserver.com/v1/create-qr-code/"
)

// Workflow is the payment specific part of a checkout response.
type Workflow struct {
	Instructions string
	QRPayload    string // QRIS only
	QRURL        string // QRIS only
}

// SelectWorkflow builds the payment instructions for a freshly created
// order. QRIS gets a placeholder reference for a QR image renderer; there is
// no settlement behind it. Passing anything but COD or QRIS is a bug.
func SelectWorkflow(orderID string, total int64, pm PaymentMethod, qrRenderer string) Workflow {
	switch pm {
	case PaymentQRIS:
		payload := QRPayload(orderID, total)
		return Workflow{
			Instructions: InstructionsQRIS,
			QRPayload:    payload,
			QRURL:        qrURL(qrRenderer, payload),
		}
	case PaymentCOD:
		return Workflow{Instructions: InstructionsCOD}
	default:
		panic(fmt.Sprintf("orders: no workflow for payment method %q", pm))
	}
}

// QRPayload encodes the order reference a QRIS renderer turns into an image.
func QRPayload(orderID string, total int64) string {
	return fmt.Sprintf("SEPATUKU|ORDER:%s|TOTAL:%d", orderID, total)
}

func qrURL(renderer, payload string) string {
	if renderer == "" {
		renderer = DefaultQRRendererURL
	}
	sep := "?"
	if strings.Contains(renderer, "?") {
		sep = "&"
	}
	// urutan size lalu data; spasi jadi %20, bukan +
	data := strings.ReplaceAll(url.QueryEscape(payload), "+", "%20")
	return renderer + sep + "size=220x220&data=" + data
}
