package orders

import "errors"

// Client input errors. The HTTP layer surfaces these as 400 with the error
// text as detail.
var (
	ErrProductNotFound          = errors.New("produk tidak ditemukan")
	ErrProductUnavailable       = errors.New("produk sedang habis")
	ErrSizeUnavailable          = errors.New("ukuran tidak tersedia")
	ErrUnsupportedPaymentMethod = errors.New("metode pembayaran tidak didukung")
	ErrEmptyCart                = errors.New("keranjang kosong")
	ErrInvalidQuantity          = errors.New("jumlah harus minimal 1")
	ErrInvalidSize              = errors.New("ukuran harus berupa angka")
	ErrInvalidCustomer          = errors.New("data pelanggan tidak lengkap")
)

var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrInvalidOrder   = errors.New("invalid order")

	// ErrStoreUnavailable means the backing store cannot be reached.
	ErrStoreUnavailable = errors.New("store unavailable")
)

var clientErrors = []error{
	ErrProductNotFound,
	ErrProductUnavailable,
	ErrSizeUnavailable,
	ErrUnsupportedPaymentMethod,
	ErrEmptyCart,
	ErrInvalidQuantity,
	ErrInvalidSize,
	ErrInvalidCustomer,
}

// IsClientError reports whether err was caused by invalid checkout input.
func IsClientError(err error) bool {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
