package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/marketplace-system/internal/model"
)

const orderColumns = `id, customer_seq, business_seq, title, revisions, delivery_days, price_cents, features, tier, status, created_at, updated_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.CustomerSeq, &o.BusinessSeq, &o.Title, &o.Revisions, &o.DeliveryDays,
		&o.PriceCents, &o.Features, &o.Tier, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	return &o, nil
}

// CreateOrder сохраняет заказ — снимок полей выбранного тарифа.
func (r *PostgresRepository) CreateOrder(ctx context.Context, order *model.Order) (*model.Order, error) {
	if order.Features == nil {
		order.Features = []string{}
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO orders (customer_seq, business_seq, title, revisions, delivery_days, price_cents, features, tier, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+orderColumns,
		order.CustomerSeq, order.BusinessSeq, order.Title, order.Revisions, order.DeliveryDays,
		order.PriceCents, order.Features, string(order.Tier), string(order.Status),
	)

	created, err := scanOrder(row)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	return created, nil
}

// GetOrder возвращает заказ по идентификатору.
func (r *PostgresRepository) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *PostgresRepository) listOrders(ctx context.Context, query string, seq int64) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx, query, seq)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// ListOrdersByCustomer возвращает заказы, где указанный номер заказчика является стороной.
func (r *PostgresRepository) ListOrdersByCustomer(ctx context.Context, customerSeq int64) ([]model.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE customer_seq = $1 ORDER BY created_at DESC`,
		customerSeq)
}

// ListOrdersByBusiness возвращает заказы, где указанный номер бизнеса является стороной.
func (r *PostgresRepository) ListOrdersByBusiness(ctx context.Context, businessSeq int64) ([]model.Order, error) {
	return r.listOrders(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE business_seq = $1 ORDER BY created_at DESC`,
		businessSeq)
}

// UpdateOrderStatus меняет статус заказа; остальные поля после создания неизменяемы.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, status model.OrderStatus) (*model.Order, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE orders SET status = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+orderColumns,
		id, string(status),
	)
	return scanOrder(row)
}

// DeleteOrder удаляет заказ.
func (r *PostgresRepository) DeleteOrder(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// CountOrdersByStatus возвращает число заказов бизнеса в указанном статусе.
func (r *PostgresRepository) CountOrdersByStatus(ctx context.Context, businessSeq int64, status model.OrderStatus) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE business_seq = $1 AND status = $2`,
		businessSeq, string(status),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
