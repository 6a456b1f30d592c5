package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// IdempotencyHeader lets clients retry POST /checkout without creating a
// second order.
const IdempotencyHeader = "Idempotency-Key"

func IdempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(IdempotencyHeader))
}

type Idempotency struct {
	rdb *redis.Client
}

func NewIdempotency(rdb *redis.Client) *Idempotency {
	return &Idempotency{rdb: rdb}
}

// Lookup loads a stored response into dest. found is false on a miss.
func (i *Idempotency) Lookup(ctx context.Context, key string, dest any) (bool, error) {
	b, err := i.rdb.Get(ctx, fmt.Sprintf(KeyIdemCheckout, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "idempotency lookup")
	}
	return true, json.Unmarshal(b, dest)
}

func (i *Idempotency) Store(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "idempotency encode")
	}
	return i.rdb.Set(ctx, fmt.Sprintf(KeyIdemCheckout, key), b, TTLIdempotency).Err()
}

// Claim marks key as in progress. Only one caller wins until Release or
// until the marker expires.
func (i *Idempotency) Claim(ctx context.Context, key string) (bool, error) {
	won, err := Claim(ctx, i.rdb, fmt.Sprintf(KeyIdemCheckoutLock, key), TTLIdemLock)
	if err != nil {
		return false, errors.Wrap(err, "idempotency claim")
	}
	return won, nil
}

func (i *Idempotency) Release(ctx context.Context, key string) error {
	return i.rdb.Del(ctx, fmt.Sprintf(KeyIdemCheckoutLock, key)).Err()
}
