package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Size is a shoe size from a cart. Clients send it either as a JSON number
// (40) or a string ("40"); both decode to the same integer and anything
// non-numeric is rejected with ErrInvalidSize.
type Size int

func ParseSize(raw string) (Size, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, raw)
	}
	return Size(n), nil
}

func (s *Size) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("%w: kosong", ErrInvalidSize)
	}
	if b[0] == '"' {
		var raw string
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		v, err := ParseSize(raw)
		if err != nil {
			return err
		}
		*s = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSize, b)
	}
	// 40.0 boleh, 40.5 tidak
	if f != float64(int(f)) {
		return fmt.Errorf("%w: %s", ErrInvalidSize, b)
	}
	*s = Size(int(f))
	return nil
}

func (s Size) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Itoa(int(s))), nil
}
