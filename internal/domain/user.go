package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a customer account. Guest users are created by checkout and
// carry an unusable password.
type User struct {
	ID        string
	Email     string
	Name      string
	IsGuest   bool
	CreatedAt time.Time
}

// Store is a storefront tenant.
type Store struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Name    string `json:"name"`
	OwnerID string `json:"ownerId"`
}

// OwnedBy reports whether userID owns the store.
func (s *Store) OwnedBy(userID string) bool {
	return s != nil && userID != "" && s.OwnerID == userID
}

// Product is the catalog snapshot checkout prices and reserves against.
type Product struct {
	ID      string
	StoreID string
	Name    string
	Price   decimal.Decimal
	Stock   int32
}
