package api

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/handler"
	"github.com/dukerupert/freyja/internal/middleware"
	"github.com/dukerupert/freyja/internal/service"
)

// CheckoutHandler serves the JSON order API.
type CheckoutHandler struct {
	orders service.OrderService
	logger *slog.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(orders service.OrderService, logger *slog.Logger) *CheckoutHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutHandler{orders: orders, logger: logger}
}

type cartItemRequest struct {
	ProductID string   `json:"productId" validate:"required"`
	Quantity  int32    `json:"quantity" validate:"gt=0"`
	Price     *float64 `json:"price" validate:"omitempty,gte=0"`
}

type customerRequest struct {
	Name    string `json:"name" validate:"max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"max=50"`
}

type checkoutRequest struct {
	Items         []cartItemRequest `json:"items" validate:"dive"`
	PaymentMethod string            `json:"paymentMethod" validate:"max=50"`
	Total         *float64          `json:"total" validate:"omitempty,gte=0"`
	Metadata      map[string]any    `json:"metadata"`
	StoreID       string            `json:"storeId"`
	StoreSlug     string            `json:"storeSlug"`
	Customer      *customerRequest  `json:"customer"`
}

func (req checkoutRequest) toCart() domain.Cart {
	cart := domain.Cart{
		Items:         make([]domain.CartItem, len(req.Items)),
		PaymentMethod: req.PaymentMethod,
		Total:         req.Total,
		Metadata:      req.Metadata,
		StoreID:       req.StoreID,
		StoreSlug:     req.StoreSlug,
	}
	for i, item := range req.Items {
		cart.Items[i] = domain.CartItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	if req.Customer != nil {
		cart.Customer = &domain.CustomerForm{
			Name:    req.Customer.Name,
			Email:   req.Customer.Email,
			Address: req.Customer.Address,
			Phone:   req.Customer.Phone,
		}
	}
	return cart
}

// Checkout handles POST /api/checkout
//
// The logged-in user, if any, comes from middleware.WithUserID. Responds
// 201 with the committed order.
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r, "checkout.decode", &req); err != nil {
		handler.ValidationErrorResponse(w, r, err)
		return
	}

	order, err := h.orders.Checkout(r.Context(), middleware.GetUserID(r.Context()), req.toCart())
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	middleware.GetLogger(r.Context(), h.logger).Info("order placed",
		"order_id", order.ID,
		"store_id", order.StoreID,
		"total", order.Total.StringFixed(2),
	)
	handler.JSON(w, http.StatusCreated, order)
}

// GetOrder handles GET /api/stores/{storeID}/orders/{orderID}
func (h *CheckoutHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), r.PathValue("storeID"), r.PathValue("orderID"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, order)
}

// CancelOrder handles POST /api/stores/{storeID}/orders/{orderID}/cancel
func (h *CheckoutHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.CancelOrder(r.Context(), r.PathValue("storeID"), r.PathValue("orderID"))
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.JSON(w, http.StatusOK, order)
}
