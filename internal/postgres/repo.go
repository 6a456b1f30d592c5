package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ariefcatur/sepatuku/internal/orders"
)

// Repo implements the inventory, order and product stores on Postgres.
// Per-size stock lives in its own table so a decrement is a single
// conditional UPDATE on one row.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Close() { r.DB.Close() }

// wrap tags connectivity failures with orders.ErrStoreUnavailable so the
// HTTP layer can answer 503 instead of 500.
func wrap(err error, msg string) error {
	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", msg, orders.ErrStoreUnavailable, err)
	}
	return errors.Wrap(err, msg)
}

const productColumns = `id, title, description, price, image, brand, category, in_stock`

func scanProduct(row pgx.Row) (orders.Product, error) {
	var p orders.Product
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Image, &p.Brand, &p.Category, &p.InStock)
	return p, err
}

func (r *Repo) FindProduct(ctx context.Context, id string) (orders.Product, error) {
	// id bukan uuid -> pasti tidak ada
	if _, err := uuid.Parse(id); err != nil {
		return orders.Product{}, orders.ErrProductNotFound
	}
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Product{}, orders.ErrProductNotFound
	}
	if err != nil {
		return orders.Product{}, wrap(err, "find product")
	}

	rows, err := r.DB.Query(ctx, `SELECT size, stock FROM product_sizes WHERE product_id=$1 ORDER BY position`, id)
	if err != nil {
		return orders.Product{}, wrap(err, "find product sizes")
	}
	p.Sizes, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (orders.SizeStock, error) {
		var s orders.SizeStock
		err := row.Scan(&s.Size, &s.Stock)
		return s, err
	})
	if err != nil {
		return orders.Product{}, wrap(err, "scan product sizes")
	}
	return p, nil
}

// DecrementSizeStock re-checks stock inside the UPDATE itself, so two
// concurrent checkouts can never drive a size below zero.
func (r *Repo) DecrementSizeStock(ctx context.Context, id string, size, qty int) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE product_sizes SET stock = stock - $3
		WHERE product_id=$1 AND size=$2 AND stock >= $3`, id, size, qty)
	if err != nil {
		return false, wrap(err, "decrement size stock")
	}
	if ct.RowsAffected() != 1 {
		return false, nil
	}
	if _, err := r.DB.Exec(ctx, `UPDATE products SET updated_at=now() WHERE id=$1`, id); err != nil {
		log.WithError(err).WithField("product_id", id).Warn("touch product updated_at")
	}
	return true, nil
}

func (r *Repo) SetInStock(ctx context.Context, id string, inStock bool) error {
	_, err := r.DB.Exec(ctx, `UPDATE products SET in_stock=$2, updated_at=now() WHERE id=$1`, id, inStock)
	if err != nil {
		return wrap(err, "set in_stock")
	}
	return nil
}

func (r *Repo) ListProducts(ctx context.Context) ([]orders.Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
	if err != nil {
		return nil, wrap(err, "list products")
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (orders.Product, error) {
		return scanProduct(row)
	})
	if err != nil {
		return nil, wrap(err, "scan products")
	}

	rows, err = r.DB.Query(ctx, `SELECT product_id, size, stock FROM product_sizes ORDER BY product_id, position`)
	if err != nil {
		return nil, wrap(err, "list product sizes")
	}
	defer rows.Close()
	sizes := map[string][]orders.SizeStock{}
	for rows.Next() {
		var pid string
		var s orders.SizeStock
		if err := rows.Scan(&pid, &s.Size, &s.Stock); err != nil {
			return nil, wrap(err, "scan product size")
		}
		sizes[pid] = append(sizes[pid], s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "list product sizes")
	}
	for i := range out {
		if ss, ok := sizes[out[i].ID]; ok {
			out[i].Sizes = ss
		} else {
			out[i].Sizes = []orders.SizeStock{}
		}
	}
	return out, nil
}

func (r *Repo) CountProducts(ctx context.Context) (int64, error) {
	var n int64
	if err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM products`).Scan(&n); err != nil {
		return 0, wrap(err, "count products")
	}
	return n, nil
}

func (r *Repo) InsertProduct(ctx context.Context, p orders.Product) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	if _, err := uuid.Parse(p.ID); err != nil {
		p.ID = uuid.NewString()
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", wrap(err, "begin insert product")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO products(id, title, description, price, image, brand, category, in_stock)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		p.ID, p.Title, p.Description, p.Price, p.Image, p.Brand, p.Category, p.InStock,
	); err != nil {
		return "", wrap(err, "insert product")
	}
	for i, s := range p.Sizes {
		if _, err := tx.Exec(ctx, `
			INSERT INTO product_sizes(product_id, position, size, stock)
			VALUES ($1,$2,$3,$4)`, p.ID, i, s.Size, s.Stock,
		); err != nil {
			return "", wrap(err, "insert product size")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return "", wrap(err, "commit insert product")
	}
	return p.ID, nil
}

// InsertOrder writes the whole order as one row; items and customer are
// snapshots stored as JSONB.
func (r *Repo) InsertOrder(ctx context.Context, o orders.Order) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return "", errors.Wrap(err, "encode order items")
	}
	customer, err := json.Marshal(o.Customer)
	if err != nil {
		return "", errors.Wrap(err, "encode customer")
	}

	orderID := uuid.NewString()
	_, err = r.DB.Exec(ctx, `
		INSERT INTO orders(id, items, total, payment_method, status, customer, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		orderID, items, o.Total, string(o.PaymentMethod), string(o.Status), customer, o.CreatedAt,
	)
	if err != nil {
		return "", wrap(err, "insert order")
	}
	return orderID, nil
}

func (r *Repo) ListOrders(ctx context.Context) ([]orders.Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, items, total, payment_method, status, customer, created_at
		FROM orders ORDER BY created_at, id`)
	if err != nil {
		return nil, wrap(err, "list orders")
	}
	defer rows.Close()

	out := make([]orders.Order, 0)
	for rows.Next() {
		var (
			o              orders.Order
			items, cust    []byte
			method, status string
		)
		if err := rows.Scan(&o.ID, &items, &o.Total, &method, &status, &cust, &o.CreatedAt); err != nil {
			return nil, wrap(err, "scan order")
		}
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return nil, errors.Wrapf(err, "decode items of order %s", o.ID)
		}
		if err := json.Unmarshal(cust, &o.Customer); err != nil {
			return nil, errors.Wrapf(err, "decode customer of order %s", o.ID)
		}
		o.PaymentMethod = orders.PaymentMethod(method)
		o.Status = orders.Status(status)
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap(err, "list orders")
	}
	return out, nil
}
