package orders

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeUnmarshal(t *testing.T) {
	tests := []struct {
		in      string
		want    Size
		wantErr bool
	}{
		{`40`, 40, false},
		{`"40"`, 40, false},
		{`" 41 "`, 41, false},
		{`42.0`, 42, false},
		{`42.5`, 0, true},
		{`"empat puluh"`, 0, true},
		{`""`, 0, true},
		{`null`, 0, true},
		{`true`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var s Size
			err := json.Unmarshal([]byte(tt.in), &s)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSize)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s)
		})
	}
}

func TestCartItemDecodesStringAndNumberSize(t *testing.T) {
	var items []CartItem
	err := json.Unmarshal([]byte(`[{"product_id":"a","quantity":1,"size":"40"},{"product_id":"b","quantity":2,"size":40}]`), &items)
	require.NoError(t, err)
	assert.Equal(t, items[0].Size, items[1].Size)
}

func TestProductHasStock(t *testing.T) {
	p := Product{Sizes: []SizeStock{{Size: 40, Stock: 0}, {Size: 41, Stock: 0}}}
	assert.False(t, p.HasStock())

	p.Sizes[1].Stock = 1
	assert.True(t, p.HasStock())

	assert.False(t, Product{}.HasStock())
}

func TestProductValidate(t *testing.T) {
	ok := Product{Title: "Runner", Price: 1, Sizes: []SizeStock{{Size: 40, Stock: 1}, {Size: 41, Stock: 0}}}
	require.NoError(t, ok.Validate())

	bad := []Product{
		{Title: "", Price: 1},
		{Title: "Runner", Price: -1},
		{Title: "Runner", Sizes: []SizeStock{{Size: 40, Stock: -1}}},
		{Title: "Runner", Sizes: []SizeStock{{Size: 40, Stock: 1}, {Size: 40, Stock: 2}}},
	}
	for _, p := range bad {
		assert.ErrorIs(t, p.Validate(), ErrInvalidProduct)
	}
}

func TestOrderValidate(t *testing.T) {
	valid := Order{
		Items:         []OrderItem{{ProductID: "p", Title: "Runner", Price: 100, Quantity: 2, Size: 40}},
		Total:         200,
		PaymentMethod: PaymentCOD,
		Status:        StatusCODConfirmed,
		Customer:      Customer{Name: "a", Email: "b", Phone: "c", Address: "d"},
	}
	require.NoError(t, valid.Validate())

	wrongTotal := valid
	wrongTotal.Total = 150
	assert.ErrorIs(t, wrongTotal.Validate(), ErrInvalidOrder)

	noItems := valid
	noItems.Items = nil
	assert.ErrorIs(t, noItems.Validate(), ErrInvalidOrder)

	badMethod := valid
	badMethod.PaymentMethod = "CARD"
	assert.ErrorIs(t, badMethod.Validate(), ErrInvalidOrder)

	badStatus := valid
	badStatus.Status = "shipped"
	assert.ErrorIs(t, badStatus.Validate(), ErrInvalidOrder)

	noCustomer := valid
	noCustomer.Customer = Customer{}
	assert.ErrorIs(t, noCustomer.Validate(), ErrInvalidCustomer)
}
