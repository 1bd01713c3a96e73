package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getStoreByID = `-- name: GetStoreByID :one
SELECT id, slug, name, owner_id, created_at FROM stores WHERE id = $1
`

func (q *Queries) GetStoreByID(ctx context.Context, id pgtype.UUID) (Store, error) {
	row := q.db.QueryRow(ctx, getStoreByID, id)
	var i Store
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.OwnerID,
		&i.CreatedAt,
	)
	return i, err
}

const getStoreBySlug = `-- name: GetStoreBySlug :one
SELECT id, slug, name, owner_id, created_at FROM stores WHERE slug = $1
`

func (q *Queries) GetStoreBySlug(ctx context.Context, slug string) (Store, error) {
	row := q.db.QueryRow(ctx, getStoreBySlug, slug)
	var i Store
	err := row.Scan(
		&i.ID,
		&i.Slug,
		&i.Name,
		&i.OwnerID,
		&i.CreatedAt,
	)
	return i, err
}
