package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/doce-emergencia/storefront/internal/domain/checkout"
	"github.com/doce-emergencia/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, user_id, client_name, delivery_address, payment_method, total, items, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	listOrdersSQL = `SELECT id, user_id, client_name, delivery_address, payment_method,
		total, items, status, created_at
		FROM orders ORDER BY created_at DESC LIMIT $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order items are serialized to JSON for
// storage in the JSONB column; guest orders store a NULL user.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	id, err := uuid.Parse(o.ID)
	if err != nil {
		return fmt.Errorf("parsing order id %q: %w", o.ID, err)
	}
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		id, nullableUUID(o.UserID), o.ClientName, o.DeliveryAddress,
		string(o.PaymentMethod), o.Total, itemsJSON, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// List returns the most recent orders first.
func (r *OrderRepository) List(ctx context.Context, limit int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		id        uuid.UUID
		userID    *uuid.UUID
		payment   string
		status    string
		total     decimal.Decimal
		itemsJSON []byte
		createdAt time.Time
	)
	if err := row.Scan(&id, &userID, &o.ClientName, &o.DeliveryAddress, &payment,
		&total, &itemsJSON, &status, &createdAt); err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling items of order %s: %w", id, err)
	}
	o.ID = id.String()
	if userID != nil {
		o.UserID = *userID
	}
	o.PaymentMethod = checkout.Payment(payment)
	o.Status = order.Status(status)
	o.Total = total
	o.CreatedAt = createdAt
	return o, nil
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
