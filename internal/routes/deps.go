package routes

import (
	"net/http"

	"github.com/dukerupert/freyja/internal/handler/api"
)

// APIDeps contains dependencies for the order and invoice API
type APIDeps struct {
	CheckoutHandler *api.CheckoutHandler
	InvoiceHandler  *api.InvoiceHandler
}

// OpsDeps contains dependencies for operational endpoints
type OpsDeps struct {
	// Health reports database reachability
	Health http.HandlerFunc

	// Metrics serves the Prometheus registry
	Metrics http.Handler
}
