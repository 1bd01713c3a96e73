package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice-related domain errors.
var (
	ErrInvoiceNotFound     = &Error{Code: ENOTFOUND, Message: "Invoice not found"}
	ErrAllocationExhausted = &Error{Code: EUNAVAILABLE, Message: "Could not allocate a unique document identifier"}
)

// InvoiceStatus mirrors the cancellation state of the invoice's order.
type InvoiceStatus string

const (
	InvoiceStatusIssued    InvoiceStatus = "issued"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// CustomerSnapshot is the customer as known at issuance.
type CustomerSnapshot struct {
	UserID  string `json:"userId"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

// StoreSnapshot is the store as known at issuance.
type StoreSnapshot struct {
	StoreID string `json:"storeId"`
	Slug    string `json:"slug"`
	Name    string `json:"name"`
}

// Invoice is the 1:1 billing document of an order.
type Invoice struct {
	ID            string           `json:"id"`
	OrderID       string           `json:"orderId"`
	StoreID       string           `json:"storeId"`
	InvoiceNumber string           `json:"invoiceNumber"`
	ShareToken    string           `json:"shareToken"`
	Customer      CustomerSnapshot `json:"customer"`
	Store         StoreSnapshot    `json:"store"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	Total         decimal.Decimal  `json:"total"`
	Items         []OrderItem      `json:"items"`
	IssuedAt      time.Time        `json:"issuedAt"`
	CancelledAt   *time.Time       `json:"cancelledAt,omitempty"`
}

// InvoiceStatusOf derives the status of inv.
func InvoiceStatusOf(inv Invoice) InvoiceStatus {
	if inv.CancelledAt != nil {
		return InvoiceStatusCancelled
	}
	return InvoiceStatusIssued
}
