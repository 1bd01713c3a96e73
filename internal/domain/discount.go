package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Discount-related domain errors.
var (
	ErrDiscountNotFound       = &Error{Code: ENOTFOUND, Message: "Discount code not found"}
	ErrDiscountCeilingReached = &Error{Code: ECONFLICT, Message: "Discount code has reached its redemption limit"}
)

// DiscountType is how a code's value applies to an order.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// DiscountStatus is derived from persisted fields, never stored.
type DiscountStatus string

const (
	DiscountStatusActive    DiscountStatus = "active"
	DiscountStatusInactive  DiscountStatus = "inactive"
	DiscountStatusScheduled DiscountStatus = "scheduled"
	DiscountStatusExpired   DiscountStatus = "expired"
	DiscountStatusExhausted DiscountStatus = "exhausted"
	DiscountStatusArchived  DiscountStatus = "archived"
)

// DiscountCode is a store-scoped redeemable code.
// MaxUses nil means unlimited redemptions.
type DiscountCode struct {
	ID         string
	StoreID    string
	Code       string
	Type       DiscountType
	Value      decimal.Decimal
	MaxUses    *int32
	UsedCount  int32
	StartsAt   *time.Time
	ExpiresAt  *time.Time
	IsActive   bool
	ArchivedAt *time.Time
	UpdatedAt  time.Time
}

// NormalizeDiscountCode trims and upper-cases a code.
func NormalizeDiscountCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// DiscountStatusAt derives the status of c at instant now.
// A code is active only when it is not archived, its active flag is set,
// now falls within its window, and it is under its redemption ceiling.
func DiscountStatusAt(c DiscountCode, now time.Time) DiscountStatus {
	switch {
	case c.ArchivedAt != nil:
		return DiscountStatusArchived
	case !c.IsActive:
		return DiscountStatusInactive
	case c.StartsAt != nil && now.Before(*c.StartsAt):
		return DiscountStatusScheduled
	case c.ExpiresAt != nil && !now.Before(*c.ExpiresAt):
		return DiscountStatusExpired
	case c.MaxUses != nil && c.UsedCount >= *c.MaxUses:
		return DiscountStatusExhausted
	}
	return DiscountStatusActive
}
