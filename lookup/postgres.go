package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLookup reads orders and products from PostgreSQL.
// It implements both OrderLookup and ProductLookup.
type PostgresLookup struct {
	pool *pgxpool.Pool
}

func NewPostgresLookup(ctx context.Context, databaseURL string) (*PostgresLookup, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := initLookupSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresLookup{pool: pool}, nil
}

func initLookupSchema(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			department TEXT NOT NULL DEFAULT '',
			sku TEXT NOT NULL DEFAULT '',
			retail_price DOUBLE PRECISION NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id BIGINT PRIMARY KEY,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at TIMESTAMPTZ,
			shipped_at TIMESTAMPTZ,
			delivered_at TIMESTAMPTZ,
			returned_at TIMESTAMPTZ,
			num_of_item INT NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id BIGINT PRIMARY KEY,
			order_id BIGINT NOT NULL REFERENCES orders(order_id),
			product_id BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			sale_price DOUBLE PRECISION NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init lookup schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

func (p *PostgresLookup) ByID(ctx context.Context, orderID int64) (*OrderStatus, error) {
	var o OrderStatus
	err := p.pool.QueryRow(ctx,
		`SELECT order_id, status, created_at, shipped_at, delivered_at, returned_at, num_of_item
		 FROM orders WHERE order_id=$1`,
		orderID,
	).Scan(&o.OrderID, &o.Status, &o.CreatedAt, &o.ShippedAt, &o.DeliveredAt, &o.ReturnedAt, &o.NumItems)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order %d: %w", orderID, err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, product_id, status, sale_price FROM order_items WHERE order_id=$1 ORDER BY id`,
		orderID,
	)
	if err != nil {
		return nil, fmt.Errorf("query order items %d: %w", orderID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.ProductID, &item.Status, &item.SalePrice); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}

	return &o, nil
}

func (p *PostgresLookup) ByIDs(ctx context.Context, ids []int64) ([]ProductInfo, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, name, brand, category, department, sku, retail_price
		 FROM products WHERE id = ANY($1) ORDER BY id`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	out := make([]ProductInfo, 0, len(ids))
	for rows.Next() {
		var prod ProductInfo
		if err := rows.Scan(&prod.ID, &prod.Name, &prod.Brand, &prod.Category, &prod.Department, &prod.SKU, &prod.RetailPrice); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, prod)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return out, nil
}

func (p *PostgresLookup) Close() error {
	p.pool.Close()
	return nil
}
