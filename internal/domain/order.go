package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Order-related domain errors.
var (
	ErrEmptyCart          = &Error{Code: EINVALID, Message: "Cart is empty"}
	ErrInvalidQuantity    = &Error{Code: EINVALID, Message: "Quantity must be a positive integer"}
	ErrMissingOwner       = &Error{Code: EINVALID, Message: "Order owner is required"}
	ErrMissingProductID   = &Error{Code: EINVALID, Message: "Product ID is required"}
	ErrInvalidTotal       = &Error{Code: EINVALID, Message: "Order total must be a finite, non-negative amount"}
	ErrInsufficientStock  = &Error{Code: ECONFLICT, Message: "Insufficient stock for one or more items"}
	ErrStockContention    = &Error{Code: ECONFLICT, Message: "Stock is being updated by another checkout, please retry"}
	ErrOrderNotFound      = &Error{Code: ENOTFOUND, Message: "Order not found"}
	ErrOrderCancelled     = &Error{Code: EINVALID, Message: "Order has been cancelled"}
	ErrStoreNotFound      = &Error{Code: ENOTFOUND, Message: "Store not found"}
	ErrStoreRequired      = &Error{Code: EINVALID, Message: "Store ID or slug is required"}
	ErrIdentityResolution = &Error{Code: EINTERNAL, Message: "Failed to resolve checkout identity"}
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Metadata keys written into order metadata.
const (
	MetaDiscountCode      = "discountCode"
	MetaCustomer          = "customer"
	MetaInvoiceID         = "invoiceId"
	MetaInvoiceNumber     = "invoiceNumber"
	MetaInvoiceShareToken = "invoiceShareToken"
)

// CartItem is one requested line of a checkout.
// Price, when set, overrides the catalog price for the line.
type CartItem struct {
	ProductID string   `json:"productId"`
	Quantity  int32    `json:"quantity"`
	Price     *float64 `json:"price,omitempty"`
}

// CustomerForm is the optional customer block submitted with a checkout.
type CustomerForm struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// IsEmpty reports whether no customer field was supplied.
func (f *CustomerForm) IsEmpty() bool {
	if f == nil {
		return true
	}
	return strings.TrimSpace(f.Name) == "" &&
		strings.TrimSpace(f.Email) == "" &&
		strings.TrimSpace(f.Address) == "" &&
		strings.TrimSpace(f.Phone) == ""
}

// Cart is a tenant-scoped checkout request.
// Total, when set, is authoritative and already net of discount and tax.
type Cart struct {
	Items         []CartItem     `json:"items"`
	PaymentMethod string         `json:"paymentMethod,omitempty"`
	Total         *float64       `json:"total,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	StoreID       string         `json:"storeId,omitempty"`
	StoreSlug     string         `json:"storeSlug,omitempty"`
	Customer      *CustomerForm  `json:"customer,omitempty"`
}

// DiscountCode returns the normalized discount code referenced by the cart
// metadata, or "" when none is present.
func (c *Cart) DiscountCode() string {
	if c == nil || c.Metadata == nil {
		return ""
	}
	raw, ok := c.Metadata[MetaDiscountCode].(string)
	if !ok {
		return ""
	}
	return NormalizeDiscountCode(raw)
}

// Order is a committed checkout.
type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	StoreID       string          `json:"storeId"`
	Total         decimal.Decimal `json:"total"`
	Status        OrderStatus     `json:"status"`
	PaymentMethod string          `json:"paymentMethod,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	Items         []OrderItem     `json:"items"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// OrderItem is an immutable line of a committed order. Price is the unit
// price captured at sale time.
type OrderItem struct {
	ProductID string          `json:"productId"`
	Quantity  int32           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// InsufficientStockError names the product whose reservation failed.
// errors.Is(err, ErrInsufficientStock) holds for every instance.
type InsufficientStockError struct {
	ProductID string
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Is matches ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// NewInsufficientStockError returns a coded conflict wrapping the stock detail.
func NewInsufficientStockError(op, productID string, requested, available int32) error {
	detail := &InsufficientStockError{ProductID: productID, Requested: requested, Available: available}
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: fmt.Sprintf("Insufficient stock for product %s (requested %d, available %d)", productID, requested, available),
		Err:     detail,
	}
}

// AsInsufficientStock extracts stock detail from err.
func AsInsufficientStock(err error) (*InsufficientStockError, bool) {
	var se *InsufficientStockError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
