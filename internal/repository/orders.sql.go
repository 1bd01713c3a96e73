package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `-- name: CreateOrder :one
INSERT INTO orders (user_id, store_id, total, status, payment_method, metadata)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, user_id, store_id, total, status, payment_method, metadata, created_at, updated_at
`

type CreateOrderParams struct {
	UserID        pgtype.UUID    `json:"user_id"`
	StoreID       pgtype.UUID    `json:"store_id"`
	Total         pgtype.Numeric `json:"total"`
	Status        string         `json:"status"`
	PaymentMethod pgtype.Text    `json:"payment_method"`
	Metadata      []byte         `json:"metadata"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.UserID,
		arg.StoreID,
		arg.Total,
		arg.Status,
		arg.PaymentMethod,
		arg.Metadata,
	)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.StoreID,
		&i.Total,
		&i.Status,
		&i.PaymentMethod,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createOrderItem = `-- name: CreateOrderItem :one
INSERT INTO order_items (order_id, product_id, quantity, unit_price)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, product_id, quantity, unit_price, created_at
`

type CreateOrderItemParams struct {
	OrderID   pgtype.UUID    `json:"order_id"`
	ProductID pgtype.UUID    `json:"product_id"`
	Quantity  int32          `json:"quantity"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ProductID,
		arg.Quantity,
		arg.UnitPrice,
	)
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ProductID,
		&i.Quantity,
		&i.UnitPrice,
		&i.CreatedAt,
	)
	return i, err
}

const getOrder = `-- name: GetOrder :one
SELECT id, user_id, store_id, total, status, payment_method, metadata, created_at, updated_at
FROM orders
WHERE store_id = $1 AND id = $2
`

type GetOrderParams struct {
	StoreID pgtype.UUID `json:"store_id"`
	ID      pgtype.UUID `json:"id"`
}

func (q *Queries) GetOrder(ctx context.Context, arg GetOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrder, arg.StoreID, arg.ID)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.StoreID,
		&i.Total,
		&i.Status,
		&i.PaymentMethod,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getOrderForUpdate = `-- name: GetOrderForUpdate :one
SELECT id, user_id, store_id, total, status, payment_method, metadata, created_at, updated_at
FROM orders
WHERE store_id = $1 AND id = $2
FOR UPDATE
`

type GetOrderForUpdateParams struct {
	StoreID pgtype.UUID `json:"store_id"`
	ID      pgtype.UUID `json:"id"`
}

func (q *Queries) GetOrderForUpdate(ctx context.Context, arg GetOrderForUpdateParams) (Order, error) {
	row := q.db.QueryRow(ctx, getOrderForUpdate, arg.StoreID, arg.ID)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.StoreID,
		&i.Total,
		&i.Status,
		&i.PaymentMethod,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getOrderItems = `-- name: GetOrderItems :many
SELECT id, order_id, product_id, quantity, unit_price, created_at
FROM order_items
WHERE order_id = $1
ORDER BY created_at, id
`

func (q *Queries) GetOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, getOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var i OrderItem
		if err := rows.Scan(
			&i.ID,
			&i.OrderID,
			&i.ProductID,
			&i.Quantity,
			&i.UnitPrice,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const mergeOrderMetadata = `-- name: MergeOrderMetadata :exec
UPDATE orders
SET metadata = COALESCE(metadata, '{}'::jsonb) || $2::jsonb, updated_at = now()
WHERE id = $1
`

type MergeOrderMetadataParams struct {
	ID       pgtype.UUID `json:"id"`
	Metadata []byte      `json:"metadata"`
}

func (q *Queries) MergeOrderMetadata(ctx context.Context, arg MergeOrderMetadataParams) error {
	_, err := q.db.Exec(ctx, mergeOrderMetadata, arg.ID, arg.Metadata)
	return err
}

const updateOrderStatus = `-- name: UpdateOrderStatus :one
UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1
RETURNING id, user_id, store_id, total, status, payment_method, metadata, created_at, updated_at
`

type UpdateOrderStatusParams struct {
	ID     pgtype.UUID `json:"id"`
	Status string      `json:"status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status)
	var i Order
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.StoreID,
		&i.Total,
		&i.Status,
		&i.PaymentMethod,
		&i.Metadata,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
