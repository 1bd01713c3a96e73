package routes

import (
	"github.com/dukerupert/freyja/internal/router"
)

// RegisterAPIRoutes registers the order and invoice API.
// Callers are identified by middleware.WithUserID; none of these routes
// require a logged-in user.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	// Checkout
	r.Post("/api/checkout", deps.CheckoutHandler.Checkout)

	// Orders
	r.Get("/api/stores/{storeID}/orders/{orderID}", deps.CheckoutHandler.GetOrder)
	r.Post("/api/stores/{storeID}/orders/{orderID}/cancel", deps.CheckoutHandler.CancelOrder)

	// Invoices
	r.Post("/api/stores/{storeID}/orders/{orderID}/invoice", deps.InvoiceHandler.Materialize)
	r.Get("/api/invoices/shared/{token}", deps.InvoiceHandler.Shared)
}
