package api

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/handler"
	"github.com/dukerupert/freyja/internal/service"
)

// InvoiceHandler serves invoice issuance and public share links.
type InvoiceHandler struct {
	invoices service.InvoiceService
	logger   *slog.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoices service.InvoiceService, logger *slog.Logger) *InvoiceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InvoiceHandler{invoices: invoices, logger: logger}
}

type invoiceResponse struct {
	*domain.Invoice
	Status domain.InvoiceStatus `json:"status"`
}

func newInvoiceResponse(inv *domain.Invoice) invoiceResponse {
	return invoiceResponse{Invoice: inv, Status: domain.InvoiceStatusOf(*inv)}
}

// Materialize handles POST /api/stores/{storeID}/orders/{orderID}/invoice
//
// Idempotent: an order that already has an invoice gets it back with 200.
func (h *InvoiceHandler) Materialize(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.MaterializeInvoice(r.Context(), r.PathValue("storeID"), r.PathValue("orderID"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, newInvoiceResponse(inv))
}

// Shared handles GET /api/invoices/shared/{token}
//
// The token is the only credential; unknown tokens are indistinguishable
// from missing invoices.
func (h *InvoiceHandler) Shared(w http.ResponseWriter, r *http.Request) {
	inv, err := h.invoices.GetSharedInvoice(r.Context(), r.PathValue("token"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "private, no-store")
	handler.JSON(w, http.StatusOK, newInvoiceResponse(inv))
}
