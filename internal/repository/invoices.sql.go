package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const cancelInvoiceByOrderID = `-- name: CancelInvoiceByOrderID :execrows
UPDATE invoices SET cancelled_at = now()
WHERE order_id = $1 AND cancelled_at IS NULL
`

func (q *Queries) CancelInvoiceByOrderID(ctx context.Context, orderID pgtype.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, cancelInvoiceByOrderID, orderID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const createInvoice = `-- name: CreateInvoice :one
INSERT INTO invoices (
    order_id, store_id, invoice_number, share_token,
    customer_snapshot, store_snapshot, subtotal, total
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, order_id, store_id, invoice_number, share_token, customer_snapshot,
          store_snapshot, subtotal, total, issued_at, cancelled_at
`

type CreateInvoiceParams struct {
	OrderID          pgtype.UUID    `json:"order_id"`
	StoreID          pgtype.UUID    `json:"store_id"`
	InvoiceNumber    string         `json:"invoice_number"`
	ShareToken       string         `json:"share_token"`
	CustomerSnapshot []byte         `json:"customer_snapshot"`
	StoreSnapshot    []byte         `json:"store_snapshot"`
	Subtotal         pgtype.Numeric `json:"subtotal"`
	Total            pgtype.Numeric `json:"total"`
}

func (q *Queries) CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error) {
	row := q.db.QueryRow(ctx, createInvoice,
		arg.OrderID,
		arg.StoreID,
		arg.InvoiceNumber,
		arg.ShareToken,
		arg.CustomerSnapshot,
		arg.StoreSnapshot,
		arg.Subtotal,
		arg.Total,
	)
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.StoreID,
		&i.InvoiceNumber,
		&i.ShareToken,
		&i.CustomerSnapshot,
		&i.StoreSnapshot,
		&i.Subtotal,
		&i.Total,
		&i.IssuedAt,
		&i.CancelledAt,
	)
	return i, err
}

const getInvoiceByOrderID = `-- name: GetInvoiceByOrderID :one
SELECT id, order_id, store_id, invoice_number, share_token, customer_snapshot,
       store_snapshot, subtotal, total, issued_at, cancelled_at
FROM invoices
WHERE order_id = $1
`

func (q *Queries) GetInvoiceByOrderID(ctx context.Context, orderID pgtype.UUID) (Invoice, error) {
	row := q.db.QueryRow(ctx, getInvoiceByOrderID, orderID)
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.StoreID,
		&i.InvoiceNumber,
		&i.ShareToken,
		&i.CustomerSnapshot,
		&i.StoreSnapshot,
		&i.Subtotal,
		&i.Total,
		&i.IssuedAt,
		&i.CancelledAt,
	)
	return i, err
}

const getInvoiceByShareToken = `-- name: GetInvoiceByShareToken :one
SELECT id, order_id, store_id, invoice_number, share_token, customer_snapshot,
       store_snapshot, subtotal, total, issued_at, cancelled_at
FROM invoices
WHERE share_token = $1
`

func (q *Queries) GetInvoiceByShareToken(ctx context.Context, shareToken string) (Invoice, error) {
	row := q.db.QueryRow(ctx, getInvoiceByShareToken, shareToken)
	var i Invoice
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.StoreID,
		&i.InvoiceNumber,
		&i.ShareToken,
		&i.CustomerSnapshot,
		&i.StoreSnapshot,
		&i.Subtotal,
		&i.Total,
		&i.IssuedAt,
		&i.CancelledAt,
	)
	return i, err
}

const invoiceNumberExists = `-- name: InvoiceNumberExists :one
SELECT EXISTS (SELECT 1 FROM invoices WHERE invoice_number = $1)
`

func (q *Queries) InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error) {
	row := q.db.QueryRow(ctx, invoiceNumberExists, invoiceNumber)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const shareTokenExists = `-- name: ShareTokenExists :one
SELECT EXISTS (SELECT 1 FROM invoices WHERE share_token = $1)
`

func (q *Queries) ShareTokenExists(ctx context.Context, shareToken string) (bool, error) {
	row := q.db.QueryRow(ctx, shareTokenExists, shareToken)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}
