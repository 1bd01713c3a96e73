package service

import (
	"github.com/dukerupert/freyja/internal/domain"
)

// Cart and order errors
var (
	ErrEmptyCart         = domain.ErrEmptyCart
	ErrInvalidQuantity   = domain.ErrInvalidQuantity
	ErrMissingOwner      = domain.ErrMissingOwner
	ErrMissingProductID  = domain.ErrMissingProductID
	ErrInvalidTotal      = domain.ErrInvalidTotal
	ErrInsufficientStock = domain.ErrInsufficientStock
	ErrStockContention   = domain.ErrStockContention
	ErrOrderNotFound     = domain.ErrOrderNotFound
	ErrOrderCancelled    = domain.ErrOrderCancelled
	ErrInvalidPrice      = &domain.Error{Code: domain.EINVALID, Message: "Resolved price must be a finite, non-negative amount"}
)

// Store and identity errors
var (
	ErrStoreNotFound      = domain.ErrStoreNotFound
	ErrStoreRequired      = domain.ErrStoreRequired
	ErrIdentityResolution = domain.ErrIdentityResolution
	ErrInvalidEmail       = &domain.Error{Code: domain.EINVALID, Message: "Customer email is not a valid address"}
)

// Discount errors
var (
	ErrDiscountNotFound       = domain.ErrDiscountNotFound
	ErrDiscountCeilingReached = domain.ErrDiscountCeilingReached
)

// Document errors
var (
	ErrInvoiceNotFound     = domain.ErrInvoiceNotFound
	ErrAllocationExhausted = domain.ErrAllocationExhausted
)

// withDetail returns an error matching sentinel whose user-facing message
// names the offending input.
func withDetail(sentinel *domain.Error, op, detail string) error {
	return &domain.Error{
		Code:    sentinel.Code,
		Op:      op,
		Message: sentinel.Message + ": " + detail,
		Err:     sentinel,
	}
}
