package orders

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectWorkflowQRIS(t *testing.T) {
	wf := SelectWorkflow("abc123", 1497000, PaymentQRIS, "")

	assert.Equal(t, InstructionsQRIS, wf.Instructions)
	assert.Equal(t, "SEPATUKU|ORDER:abc123|TOTAL:1497000", wf.QRPayload)

	u, err := url.Parse(wf.QRURL)
	require.NoError(t, err)
	assert.Equal(t, "api.qrserver.com", u.Host)
	assert.Equal(t, "220x220", u.Query().Get("size"))
	assert.Equal(t, wf.QRPayload, u.Query().Get("data"))
}

func TestSelectWorkflowQRISCustomRenderer(t *testing.T) {
	wf := SelectWorkflow("o1", 10, PaymentQRIS, "https://qr.internal/render?fmt=png")

	u, err := url.Parse(wf.QRURL)
	require.NoError(t, err)
	assert.Equal(t, "png", u.Query().Get("fmt"))
	assert.Equal(t, "SEPATUKU|ORDER:o1|TOTAL:10", u.Query().Get("data"))
}

func TestSelectWorkflowCOD(t *testing.T) {
	wf := SelectWorkflow("abc123", 100, PaymentCOD, "")
	assert.Equal(t, Workflow{Instructions: InstructionsCOD}, wf)
}

func TestSelectWorkflowPanicsOnUnknownMethod(t *testing.T) {
	assert.Panics(t, func() { SelectWorkflow("x", 1, PaymentMethod("BANK_TRANSFER"), "") })
}

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    PaymentMethod
		wantErr bool
	}{
		{"COD", PaymentCOD, false},
		{"cod", PaymentCOD, false},
		{"Qris", PaymentQRIS, false},
		{"  qris\n", PaymentQRIS, false},
		{"BANK_TRANSFER", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParsePaymentMethod(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedPaymentMethod, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, StatusCODConfirmed, PaymentCOD.InitialStatus())
	assert.Equal(t, StatusPending, PaymentQRIS.InitialStatus())
}

func TestQRURLKeepsSizeBeforeData(t *testing.T) {
	wf := SelectWorkflow("abc123", 1497000, PaymentQRIS, "")
	assert.Equal(t,
		"https://api.qrserver.com/v1/create-qr-code/?size=220x220&data=SEPATUKU%7CORDER%3Aabc123%7CTOTAL%3A1497000",
		wf.QRURL)

	assert.Equal(t, "https://qr.example/r?size=220x220&data=a%20b", qrURL("https://qr.example/r", "a b"))
}
