package repository

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type DiscountCode struct {
	ID         pgtype.UUID        `json:"id"`
	StoreID    pgtype.UUID        `json:"store_id"`
	Code       string             `json:"code"`
	Type       string             `json:"type"`
	Value      pgtype.Numeric     `json:"value"`
	MaxUses    pgtype.Int4        `json:"max_uses"`
	UsedCount  int32              `json:"used_count"`
	StartsAt   pgtype.Timestamptz `json:"starts_at"`
	ExpiresAt  pgtype.Timestamptz `json:"expires_at"`
	IsActive   bool               `json:"is_active"`
	ArchivedAt pgtype.Timestamptz `json:"archived_at"`
	CreatedAt  pgtype.Timestamptz `json:"created_at"`
	UpdatedAt  pgtype.Timestamptz `json:"updated_at"`
}

type Invoice struct {
	ID               pgtype.UUID        `json:"id"`
	OrderID          pgtype.UUID        `json:"order_id"`
	StoreID          pgtype.UUID        `json:"store_id"`
	InvoiceNumber    string             `json:"invoice_number"`
	ShareToken       string             `json:"share_token"`
	CustomerSnapshot []byte             `json:"customer_snapshot"`
	StoreSnapshot    []byte             `json:"store_snapshot"`
	Subtotal         pgtype.Numeric     `json:"subtotal"`
	Total            pgtype.Numeric     `json:"total"`
	IssuedAt         pgtype.Timestamptz `json:"issued_at"`
	CancelledAt      pgtype.Timestamptz `json:"cancelled_at"`
}

type Order struct {
	ID            pgtype.UUID        `json:"id"`
	UserID        pgtype.UUID        `json:"user_id"`
	StoreID       pgtype.UUID        `json:"store_id"`
	Total         pgtype.Numeric     `json:"total"`
	Status        string             `json:"status"`
	PaymentMethod pgtype.Text        `json:"payment_method"`
	Metadata      []byte             `json:"metadata"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	UpdatedAt     pgtype.Timestamptz `json:"updated_at"`
}

type OrderItem struct {
	ID        pgtype.UUID        `json:"id"`
	OrderID   pgtype.UUID        `json:"order_id"`
	ProductID pgtype.UUID        `json:"product_id"`
	Quantity  int32              `json:"quantity"`
	UnitPrice pgtype.Numeric     `json:"unit_price"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type Product struct {
	ID        pgtype.UUID        `json:"id"`
	StoreID   pgtype.UUID        `json:"store_id"`
	Name      string             `json:"name"`
	Price     pgtype.Numeric     `json:"price"`
	Stock     int32              `json:"stock"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type Store struct {
	ID        pgtype.UUID        `json:"id"`
	Slug      string             `json:"slug"`
	Name      string             `json:"name"`
	OwnerID   pgtype.UUID        `json:"owner_id"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type User struct {
	ID           pgtype.UUID        `json:"id"`
	Email        string             `json:"email"`
	Name         string             `json:"name"`
	PasswordHash string             `json:"password_hash"`
	IsGuest      bool               `json:"is_guest"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}
