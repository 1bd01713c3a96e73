package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getDiscountCode = `-- name: GetDiscountCode :one
SELECT id, store_id, code, type, value, max_uses, used_count, starts_at, expires_at,
       is_active, archived_at, created_at, updated_at
FROM discount_codes
WHERE store_id = $1 AND code = $2
`

type GetDiscountCodeParams struct {
	StoreID pgtype.UUID `json:"store_id"`
	Code    string      `json:"code"`
}

func (q *Queries) GetDiscountCode(ctx context.Context, arg GetDiscountCodeParams) (DiscountCode, error) {
	row := q.db.QueryRow(ctx, getDiscountCode, arg.StoreID, arg.Code)
	var i DiscountCode
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.Code,
		&i.Type,
		&i.Value,
		&i.MaxUses,
		&i.UsedCount,
		&i.StartsAt,
		&i.ExpiresAt,
		&i.IsActive,
		&i.ArchivedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const redeemDiscountCode = `-- name: RedeemDiscountCode :one
UPDATE discount_codes
SET used_count = used_count + 1,
    is_active = CASE
        WHEN max_uses IS NOT NULL AND used_count + 1 >= max_uses THEN false
        ELSE is_active
    END,
    updated_at = now()
WHERE store_id = $1
  AND code = $2
  AND (max_uses IS NULL OR used_count < max_uses)
RETURNING id, store_id, code, type, value, max_uses, used_count, starts_at, expires_at,
          is_active, archived_at, created_at, updated_at
`

type RedeemDiscountCodeParams struct {
	StoreID pgtype.UUID `json:"store_id"`
	Code    string      `json:"code"`
}

func (q *Queries) RedeemDiscountCode(ctx context.Context, arg RedeemDiscountCodeParams) (DiscountCode, error) {
	row := q.db.QueryRow(ctx, redeemDiscountCode, arg.StoreID, arg.Code)
	var i DiscountCode
	err := row.Scan(
		&i.ID,
		&i.StoreID,
		&i.Code,
		&i.Type,
		&i.Value,
		&i.MaxUses,
		&i.UsedCount,
		&i.StartsAt,
		&i.ExpiresAt,
		&i.IsActive,
		&i.ArchivedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}
