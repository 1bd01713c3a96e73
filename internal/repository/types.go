package repository

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Constraint names from migrations/00001_init.sql.
const (
	ConstraintInvoiceOrderID    = "invoices_order_id_key"
	ConstraintInvoiceNumber     = "invoices_invoice_number_key"
	ConstraintInvoiceShareToken = "invoices_share_token_key"
	ConstraintUserEmail         = "users_email_key"
)

const (
	uniqueViolation      = "23505"
	deadlockDetected     = "40P01"
	lockNotAvailable     = "55P03"
	serializationFailure = "40001"
)

// IsNotFound reports whether err is pgx's no-rows error.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsUniqueViolation reports whether err is a unique violation. When
// constraint is non-empty it must match the violated constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsLockConflict reports whether err is a deadlock, lock timeout or
// serialization failure. The statement is safe to retry in a new transaction.
func IsLockConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case deadlockDetected, lockNotAvailable, serializationFailure:
		return true
	}
	return false
}

// ParseUUID converts a textual id. An empty or malformed string is an error.
func ParseUUID(s string) (pgtype.UUID, error) {
	var id pgtype.UUID
	if err := id.Scan(s); err != nil {
		return pgtype.UUID{}, err
	}
	return id, nil
}

// UUIDString formats id, returning "" when it is NULL.
func UUIDString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

// NewUUID returns a random, valid id.
func NewUUID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

// Numeric converts d for a NUMERIC column.
func Numeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

// Decimal converts a NUMERIC value. NULL, NaN and infinities become zero.
func Decimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

// Text converts s, mapping "" to NULL.
func Text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// TimePtr returns nil for a NULL timestamp.
func TimePtr(ts pgtype.Timestamptz) *time.Time {
	if !ts.Valid {
		return nil
	}
	t := ts.Time
	return &t
}

// Int32Ptr returns nil for a NULL integer.
func Int32Ptr(i pgtype.Int4) *int32 {
	if !i.Valid {
		return nil
	}
	v := i.Int32
	return &v
}
