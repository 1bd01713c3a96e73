package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const decrementProductStock = `-- name: DecrementProductStock :execrows
UPDATE products
SET stock = stock - $2, updated_at = now()
WHERE id = $1 AND stock >= $2
`

type DecrementProductStockParams struct {
	ID       pgtype.UUID `json:"id"`
	Quantity int32       `json:"quantity"`
}

func (q *Queries) DecrementProductStock(ctx context.Context, arg DecrementProductStockParams) (int64, error) {
	result, err := q.db.Exec(ctx, decrementProductStock, arg.ID, arg.Quantity)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getProductStock = `-- name: GetProductStock :one
SELECT stock FROM products WHERE id = $1
`

func (q *Queries) GetProductStock(ctx context.Context, id pgtype.UUID) (int32, error) {
	row := q.db.QueryRow(ctx, getProductStock, id)
	var stock int32
	err := row.Scan(&stock)
	return stock, err
}

const getProductsByIDs = `-- name: GetProductsByIDs :many
SELECT id, store_id, name, price, stock, created_at, updated_at
FROM products
WHERE store_id = $1 AND id = ANY($2::uuid[])
`

type GetProductsByIDsParams struct {
	StoreID pgtype.UUID   `json:"store_id"`
	IDs     []pgtype.UUID `json:"ids"`
}

func (q *Queries) GetProductsByIDs(ctx context.Context, arg GetProductsByIDsParams) ([]Product, error) {
	rows, err := q.db.Query(ctx, getProductsByIDs, arg.StoreID, arg.IDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Product
	for rows.Next() {
		var i Product
		if err := rows.Scan(
			&i.ID,
			&i.StoreID,
			&i.Name,
			&i.Price,
			&i.Stock,
			&i.CreatedAt,
			&i.UpdatedAt,
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
