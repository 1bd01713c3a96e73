package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/repository"
	"github.com/dukerupert/freyja/internal/telemetry"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// InvoiceService issues the 1:1 invoice of a committed order.
type InvoiceService interface {
	// MaterializeInvoice allocates an invoice number and share token, freezes
	// customer and store snapshots, and links the invoice into the order's
	// metadata in one unit of work. An order that already has an invoice
	// gets that invoice back. Cancelled orders cannot be invoiced.
	MaterializeInvoice(ctx context.Context, storeID, orderID string) (*domain.Invoice, error)

	// GetSharedInvoice returns the invoice granted by shareToken.
	GetSharedInvoice(ctx context.Context, shareToken string) (*domain.Invoice, error)
}

type invoiceService struct {
	db        repository.Database
	allocator DocumentAllocator
	stores    StoreDirectory
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
}

// NewInvoiceService creates a new InvoiceService instance.
func NewInvoiceService(
	db repository.Database,
	allocator DocumentAllocator,
	stores StoreDirectory,
	metrics *telemetry.BusinessMetrics,
	logger *slog.Logger,
) InvoiceService {
	if allocator == nil {
		allocator = NewDocumentAllocator(db, metrics)
	}
	if stores == nil {
		stores = NewStoreDirectory(db)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &invoiceService{
		db:        db,
		allocator: allocator,
		stores:    stores,
		metrics:   metrics,
		logger:    logger,
	}
}

// errDocumentCollision marks an insert that lost a uniqueness race on the
// invoice number or share token.
var errDocumentCollision = errors.New("document identifier collision")

func (s *invoiceService) MaterializeInvoice(ctx context.Context, storeID, orderID string) (*domain.Invoice, error) {
	const op = "invoice.materialize"

	storeUUID, orderUUID, err := parseOrderRef(storeID, orderID)
	if err != nil {
		return nil, err
	}

	order, err := s.db.GetOrder(ctx, repository.GetOrderParams{StoreID: storeUUID, ID: orderUUID})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}

	items, err := s.db.GetOrderItems(ctx, order.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load order items")
	}

	if existing, ok, err := s.existing(ctx, order.ID, items); err != nil || ok {
		return existing, err
	}

	if order.Status == string(domain.OrderStatusCancelled) {
		return nil, ErrOrderCancelled
	}

	customer, storeSnap, err := s.snapshots(ctx, order)
	if err != nil {
		return nil, err
	}
	customerJSON, err := json.Marshal(customer)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode customer snapshot")
	}
	storeJSON, err := json.Marshal(storeSnap)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to encode store snapshot")
	}

	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(repository.Decimal(it.UnitPrice).Mul(decimal.NewFromInt32(it.Quantity)))
	}

	for attempt := 0; attempt < MaxAllocationAttempts; attempt++ {
		number, err := s.allocator.AllocateInvoiceNumber(ctx)
		if err != nil {
			return nil, err
		}
		token, err := s.allocator.AllocateShareToken(ctx)
		if err != nil {
			return nil, err
		}

		var created repository.Invoice
		err = s.db.ExecTx(ctx, func(ctx context.Context, q repository.Querier) error {
			// Holds the order row against a concurrent cancellation until commit.
			locked, err := q.GetOrderForUpdate(ctx, repository.GetOrderForUpdateParams{
				StoreID: order.StoreID,
				ID:      order.ID,
			})
			if err != nil {
				return err
			}
			if locked.Status == string(domain.OrderStatusCancelled) {
				return ErrOrderCancelled
			}

			inv, err := q.CreateInvoice(ctx, repository.CreateInvoiceParams{
				OrderID:          order.ID,
				StoreID:          order.StoreID,
				InvoiceNumber:    number,
				ShareToken:       token,
				CustomerSnapshot: customerJSON,
				StoreSnapshot:    storeJSON,
				Subtotal:         repository.Numeric(subtotal.Round(2)),
				Total:            order.Total,
			})
			if err != nil {
				if repository.IsUniqueViolation(err, repository.ConstraintInvoiceNumber) ||
					repository.IsUniqueViolation(err, repository.ConstraintInvoiceShareToken) {
					return errDocumentCollision
				}
				return err
			}

			link, err := json.Marshal(map[string]string{
				domain.MetaInvoiceID:         repository.UUIDString(inv.ID),
				domain.MetaInvoiceNumber:     inv.InvoiceNumber,
				domain.MetaInvoiceShareToken: inv.ShareToken,
			})
			if err != nil {
				return err
			}
			if err := q.MergeOrderMetadata(ctx, repository.MergeOrderMetadataParams{
				ID:       order.ID,
				Metadata: link,
			}); err != nil {
				return err
			}

			created = inv
			return nil
		})

		switch {
		case err == nil:
			s.metrics.RecordInvoiceMaterialized(storeID)
			s.logger.Info("invoice materialized",
				"order_id", orderID,
				"store_id", storeID,
				"invoice_number", created.InvoiceNumber,
			)
			inv, err := toDomainInvoice(created, items)
			if err != nil {
				return nil, domain.Internal(err, op, "failed to decode invoice")
			}
			return inv, nil

		case errors.Is(err, ErrOrderCancelled):
			return nil, ErrOrderCancelled

		case errors.Is(err, errDocumentCollision):
			s.metrics.RecordAllocationRetry("invoice_insert")
			continue

		case repository.IsUniqueViolation(err, repository.ConstraintInvoiceOrderID):
			// A concurrent materialization won; return its invoice.
			if existing, ok, lookupErr := s.existing(ctx, order.ID, items); lookupErr != nil || ok {
				return existing, lookupErr
			}
			return nil, domain.Internal(err, op, "invoice vanished after conflict")

		default:
			return nil, domain.Internal(err, op, "failed to create invoice")
		}
	}

	return nil, fmt.Errorf("%w: invoice insert after %d attempts", ErrAllocationExhausted, MaxAllocationAttempts)
}

func (s *invoiceService) GetSharedInvoice(ctx context.Context, shareToken string) (*domain.Invoice, error) {
	const op = "invoice.shared"

	if shareToken == "" {
		return nil, ErrInvoiceNotFound
	}

	inv, err := s.db.GetInvoiceByShareToken(ctx, shareToken)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvoiceNotFound
		}
		return nil, domain.Internal(err, op, "failed to load invoice")
	}

	items, err := s.db.GetOrderItems(ctx, inv.OrderID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load invoice items")
	}

	out, err := toDomainInvoice(inv, items)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode invoice")
	}
	return out, nil
}

func (s *invoiceService) existing(ctx context.Context, orderID pgtype.UUID, items []repository.OrderItem) (*domain.Invoice, bool, error) {
	inv, err := s.db.GetInvoiceByOrderID(ctx, orderID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, domain.Internal(err, "invoice.materialize", "failed to load invoice")
	}
	out, err := toDomainInvoice(inv, items)
	if err != nil {
		return nil, false, domain.Internal(err, "invoice.materialize", "failed to decode invoice")
	}
	return out, true, nil
}

// snapshots freezes the customer and store as they are now.
func (s *invoiceService) snapshots(ctx context.Context, order repository.Order) (domain.CustomerSnapshot, domain.StoreSnapshot, error) {
	const op = "invoice.snapshot"

	customer := domain.CustomerSnapshot{UserID: repository.UUIDString(order.UserID)}

	user, err := s.db.GetUserByID(ctx, order.UserID)
	switch {
	case err == nil:
		customer.Name = user.Name
		customer.Email = user.Email
	case !repository.IsNotFound(err):
		return customer, domain.StoreSnapshot{}, domain.Internal(err, op, "failed to load customer")
	}

	// The checkout form, when present, is what the customer asked to be billed as.
	meta, err := decodeMetadata(order.Metadata)
	if err == nil {
		if form, ok := meta[domain.MetaCustomer].(map[string]any); ok {
			if v, _ := form["name"].(string); v != "" {
				customer.Name = v
			}
			if v, _ := form["email"].(string); v != "" {
				customer.Email = v
			}
			customer.Address, _ = form["address"].(string)
			customer.Phone, _ = form["phone"].(string)
		}
	}

	store, err := s.stores.StoreByID(ctx, repository.UUIDString(order.StoreID))
	if err != nil {
		return customer, domain.StoreSnapshot{}, err
	}

	return customer, domain.StoreSnapshot{
		StoreID: store.ID,
		Slug:    store.Slug,
		Name:    store.Name,
	}, nil
}
