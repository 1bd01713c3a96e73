package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/events"
	"github.com/dukerupert/freyja/internal/repository"
	"github.com/dukerupert/freyja/internal/telemetry"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// postCommitTimeout bounds best-effort work after an order commits.
const postCommitTimeout = 5 * time.Second

// OrderService provides business logic for order operations
type OrderService interface {
	// Checkout resolves the store and the customer identity for cart, then
	// creates the order. Identity resolution runs before any transaction.
	Checkout(ctx context.Context, loggedInUserID string, cart domain.Cart) (*domain.Order, error)

	// CreateOrder atomically reserves stock and persists the order and its
	// line items for ownerUserID. cart.StoreID must be set.
	//
	// Flow:
	// 1. Validate owner, items and any total override
	// 2. Batch-load the distinct products of the cart
	// 3. Resolve each line price and the computed total
	// 4. In one unit of work: insert the header, then reserve and insert
	//    each line in cart order, aborting on the first failure
	// 5. After commit: redeem the discount code and publish orders.created;
	//    failures here are logged and never undo the order
	CreateOrder(ctx context.Context, ownerUserID string, cart domain.Cart) (*domain.Order, error)

	// GetOrder retrieves a single order with its items, scoped to the store.
	GetOrder(ctx context.Context, storeID, orderID string) (*domain.Order, error)

	// CancelOrder marks the order cancelled and cancels its invoice in the
	// same unit of work. Cancelling a cancelled order returns it unchanged.
	// Stock and discount redemptions are not restored.
	CancelOrder(ctx context.Context, storeID, orderID string) (*domain.Order, error)
}

// OrderDeps are the collaborators of an OrderService.
type OrderDeps struct {
	DB        repository.Database
	Inventory InventoryLedger
	Discounts DiscountTracker
	Identity  IdentityResolver
	Stores    StoreDirectory
	Publisher events.Publisher
	Metrics   *telemetry.BusinessMetrics
	Logger    *slog.Logger
}

type orderService struct {
	db        repository.Database
	inventory InventoryLedger
	discounts DiscountTracker
	identity  IdentityResolver
	stores    StoreDirectory
	publisher events.Publisher
	metrics   *telemetry.BusinessMetrics
	logger    *slog.Logger
}

// NewOrderService creates a new OrderService instance.
// Unset optional collaborators default to implementations over deps.DB.
func NewOrderService(deps OrderDeps) (OrderService, error) {
	if deps.DB == nil {
		return nil, errors.New("order service requires a database")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Inventory == nil {
		deps.Inventory = NewInventoryLedger(deps.DB)
	}
	if deps.Discounts == nil {
		deps.Discounts = NewDiscountTracker(deps.DB)
	}
	if deps.Stores == nil {
		deps.Stores = NewStoreDirectory(deps.DB)
	}
	if deps.Identity == nil {
		deps.Identity = NewIdentityResolver(deps.DB, IdentityConfig{}, deps.Metrics, deps.Logger)
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NopPublisher{}
	}

	return &orderService{
		db:        deps.DB,
		inventory: deps.Inventory,
		discounts: deps.Discounts,
		identity:  deps.Identity,
		stores:    deps.Stores,
		publisher: deps.Publisher,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}, nil
}

func (s *orderService) Checkout(ctx context.Context, loggedInUserID string, cart domain.Cart) (*domain.Order, error) {
	if err := validateCart(cart); err != nil {
		return nil, err
	}

	store, err := s.resolveStore(ctx, cart)
	if err != nil {
		return nil, err
	}

	userID, err := s.identity.ResolveCheckoutIdentity(ctx, loggedInUserID, *store, cart.Customer)
	if err != nil {
		s.metrics.RecordCheckoutFailure(store.ID, domain.ErrorCode(err))
		s.logger.Error("checkout identity resolution failed", "store_id", store.ID, "error", err)
		return nil, err
	}

	meta := make(map[string]any, len(cart.Metadata)+1)
	for k, v := range cart.Metadata {
		meta[k] = v
	}
	if !cart.Customer.IsEmpty() {
		meta[domain.MetaCustomer] = map[string]any{
			"name":    strings.TrimSpace(cart.Customer.Name),
			"email":   strings.ToLower(strings.TrimSpace(cart.Customer.Email)),
			"address": strings.TrimSpace(cart.Customer.Address),
			"phone":   strings.TrimSpace(cart.Customer.Phone),
		}
	}

	cart.Metadata = meta
	cart.StoreID = store.ID
	return s.CreateOrder(ctx, userID, cart)
}

func (s *orderService) CreateOrder(ctx context.Context, ownerUserID string, cart domain.Cart) (*domain.Order, error) {
	const op = "order.create"

	order, err := s.createOrder(ctx, ownerUserID, cart)
	if err != nil {
		s.metrics.RecordCheckoutFailure(cart.StoreID, domain.ErrorCode(err))
		if se, ok := domain.AsInsufficientStock(err); ok {
			s.metrics.RecordStockConflict(cart.StoreID)
			s.logger.Info("order rejected for insufficient stock",
				"store_id", cart.StoreID,
				"product_id", se.ProductID,
				"requested", se.Requested,
				"available", se.Available,
			)
		}
		var de *domain.Error
		if !errors.As(err, &de) {
			err = domain.Internal(err, op, "failed to create order")
		}
		return nil, err
	}

	s.afterCommit(ctx, order, cart.DiscountCode())
	return order, nil
}

func (s *orderService) createOrder(ctx context.Context, ownerUserID string, cart domain.Cart) (*domain.Order, error) {
	const op = "order.create"

	if strings.TrimSpace(ownerUserID) == "" {
		return nil, ErrMissingOwner
	}
	if cart.StoreID == "" {
		return nil, ErrStoreRequired
	}
	if err := validateCart(cart); err != nil {
		return nil, err
	}

	ownerUUID, err := repository.ParseUUID(ownerUserID)
	if err != nil {
		return nil, domain.Errorf(domain.EINVALID, op, "invalid owner ID: %s", ownerUserID)
	}
	storeUUID, err := repository.ParseUUID(cart.StoreID)
	if err != nil {
		return nil, domain.Errorf(domain.EINVALID, op, "invalid store ID: %s", cart.StoreID)
	}

	// Step 1: every distinct product, in one read, before any mutation
	productIDs := distinctProductIDs(cart.Items)
	snapshot, err := s.inventory.LoadSnapshot(ctx, cart.StoreID, productIDs)
	if err != nil {
		return nil, err
	}

	// Step 2: resolved prices and the computed total
	prices := make([]decimal.Decimal, len(cart.Items))
	computed := decimal.Zero
	for i, item := range cart.Items {
		product := snapshot[canonicalID(item.ProductID)]
		price, err := s.inventory.ResolvePrice(item, product)
		if err != nil {
			return nil, err
		}
		prices[i] = price
		computed = computed.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	// Step 3: an explicit total is already net of discount and tax
	total := computed
	if cart.Total != nil {
		total = decimal.NewFromFloat(*cart.Total)
	}
	total = total.Round(2)

	meta, err := encodeMetadata(cart.Metadata)
	if err != nil {
		return nil, domain.Errorf(domain.EINVALID, op, "metadata is not valid JSON: %v", err)
	}

	// Step 4: the unit of work
	var (
		header repository.Order
		lines  []repository.OrderItem
	)
	err = s.db.ExecTx(ctx, func(ctx context.Context, q repository.Querier) error {
		var err error
		header, err = q.CreateOrder(ctx, repository.CreateOrderParams{
			UserID:        ownerUUID,
			StoreID:       storeUUID,
			Total:         repository.Numeric(total),
			Status:        string(domain.OrderStatusCompleted),
			PaymentMethod: repository.Text(cart.PaymentMethod),
			Metadata:      meta,
		})
		if err != nil {
			return domain.Internal(err, op, "failed to insert order")
		}

		if err := s.reserveAll(ctx, q, cart.Items); err != nil {
			return err
		}

		lines = make([]repository.OrderItem, 0, len(cart.Items))
		for i, item := range cart.Items {
			productUUID, _ := repository.ParseUUID(item.ProductID)
			line, err := q.CreateOrderItem(ctx, repository.CreateOrderItemParams{
				OrderID:   header.ID,
				ProductID: productUUID,
				Quantity:  item.Quantity,
				UnitPrice: repository.Numeric(prices[i]),
			})
			if err != nil {
				return domain.Internal(err, op, fmt.Sprintf("failed to insert line item %d", i))
			}
			lines = append(lines, line)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := toDomainOrder(header, lines)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode order")
	}
	return order, nil
}

// reserveAll decrements stock for every line. Rows are locked in product id
// order so two carts naming the same products in different orders cannot
// deadlock. The reported shortage is the earliest failing line in cart order.
func (s *orderService) reserveAll(ctx context.Context, q repository.Querier, items []domain.CartItem) error {
	var (
		shortage     error
		shortageLine = len(items)
	)
	for _, i := range reservationOrder(items) {
		item := items[i]
		err := s.inventory.Reserve(ctx, q, item.ProductID, item.Quantity)
		if err == nil {
			continue
		}
		if _, ok := domain.AsInsufficientStock(err); !ok {
			return err
		}
		if i < shortageLine {
			shortage, shortageLine = err, i
		}
	}
	return shortage
}

// reservationOrder returns line indexes sorted by canonical product id.
// Lines for the same product keep their cart order.
func reservationOrder(items []domain.CartItem) []int {
	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return strings.Compare(canonicalID(items[a].ProductID), canonicalID(items[b].ProductID))
	})
	return order
}

// afterCommit runs best-effort steps outside the unit of work. Nothing here
// may fail the checkout.
func (s *orderService) afterCommit(ctx context.Context, order *domain.Order, discountCode string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
	defer cancel()

	total, _ := order.Total.Float64()
	s.metrics.RecordOrderCreated(order.StoreID, total, len(order.Items))

	logger := s.logger.With("order_id", order.ID, "store_id", order.StoreID)
	logger.Info("order created", "total", order.Total.StringFixed(2), "items", len(order.Items))

	if discountCode != "" {
		s.redeem(ctx, logger, order.StoreID, discountCode)
	}

	evt := events.OrderEvent{
		OrderID:      order.ID,
		StoreID:      order.StoreID,
		UserID:       order.UserID,
		Total:        order.Total.StringFixed(2),
		ItemCount:    len(order.Items),
		DiscountCode: discountCode,
		OccurredAt:   order.CreatedAt,
	}
	if err := s.publisher.Publish(ctx, events.SubjectOrderCreated, evt); err != nil {
		logger.Warn("failed to publish order event", "subject", events.SubjectOrderCreated, "error", err)
	}
}

func (s *orderService) redeem(ctx context.Context, logger *slog.Logger, storeID, code string) {
	updated, err := s.discounts.Redeem(ctx, storeID, code)
	switch {
	case err == nil:
		s.metrics.RecordDiscountRedemption(storeID, "redeemed")
		logger.Info("discount code redeemed",
			"code", updated.Code,
			"used_count", updated.UsedCount,
			"status", domain.DiscountStatusAt(*updated, time.Now()),
		)
	case errors.Is(err, ErrDiscountCeilingReached):
		s.metrics.RecordDiscountRedemption(storeID, "exhausted")
		logger.Warn("discount code already at redemption limit", "code", code)
	case errors.Is(err, ErrDiscountNotFound):
		s.metrics.RecordDiscountRedemption(storeID, "not_found")
		logger.Warn("discount code not found", "code", code)
	default:
		s.metrics.RecordDiscountRedemption(storeID, "error")
		logger.Error("failed to redeem discount code", "code", code, "error", err)
	}
}

func (s *orderService) GetOrder(ctx context.Context, storeID, orderID string) (*domain.Order, error) {
	const op = "order.get"

	storeUUID, orderUUID, err := parseOrderRef(storeID, orderID)
	if err != nil {
		return nil, err
	}

	row, err := s.db.GetOrder(ctx, repository.GetOrderParams{StoreID: storeUUID, ID: orderUUID})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrOrderNotFound
		}
		return nil, domain.Internal(err, op, "failed to load order")
	}

	items, err := s.db.GetOrderItems(ctx, row.ID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load order items")
	}

	order, err := toDomainOrder(row, items)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode order")
	}
	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, storeID, orderID string) (*domain.Order, error) {
	const op = "order.cancel"

	storeUUID, orderUUID, err := parseOrderRef(storeID, orderID)
	if err != nil {
		return nil, err
	}

	var (
		row         repository.Order
		items       []repository.OrderItem
		transitions bool
	)
	err = s.db.ExecTx(ctx, func(ctx context.Context, q repository.Querier) error {
		current, err := q.GetOrderForUpdate(ctx, repository.GetOrderForUpdateParams{StoreID: storeUUID, ID: orderUUID})
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrOrderNotFound
			}
			return domain.Internal(err, op, "failed to load order")
		}

		row = current
		if current.Status != string(domain.OrderStatusCancelled) {
			row, err = q.UpdateOrderStatus(ctx, repository.UpdateOrderStatusParams{
				ID:     current.ID,
				Status: string(domain.OrderStatusCancelled),
			})
			if err != nil {
				return domain.Internal(err, op, "failed to update order status")
			}
			transitions = true
		}

		if _, err := q.CancelInvoiceByOrderID(ctx, current.ID); err != nil {
			return domain.Internal(err, op, "failed to cancel invoice")
		}

		items, err = q.GetOrderItems(ctx, current.ID)
		if err != nil {
			return domain.Internal(err, op, "failed to load order items")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := toDomainOrder(row, items)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to decode order")
	}

	if transitions {
		s.metrics.RecordOrderCancelled(order.StoreID)
		s.logger.Info("order cancelled", "order_id", order.ID, "store_id", order.StoreID)

		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postCommitTimeout)
		defer cancel()
		evt := events.OrderEvent{
			OrderID:    order.ID,
			StoreID:    order.StoreID,
			UserID:     order.UserID,
			Total:      order.Total.StringFixed(2),
			ItemCount:  len(order.Items),
			OccurredAt: time.Now().UTC(),
		}
		if err := s.publisher.Publish(pubCtx, events.SubjectOrderCancelled, evt); err != nil {
			s.logger.Warn("failed to publish order event",
				"subject", events.SubjectOrderCancelled, "order_id", order.ID, "error", err)
		}
	}

	return order, nil
}

func (s *orderService) resolveStore(ctx context.Context, cart domain.Cart) (*domain.Store, error) {
	switch {
	case cart.StoreID != "":
		return s.stores.StoreByID(ctx, cart.StoreID)
	case cart.StoreSlug != "":
		return s.stores.StoreBySlug(ctx, cart.StoreSlug)
	default:
		return nil, ErrStoreRequired
	}
}

// validateCart checks the shape of a cart without touching storage.
func validateCart(cart domain.Cart) error {
	if len(cart.Items) == 0 {
		return ErrEmptyCart
	}
	for i, item := range cart.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return withDetail(ErrMissingProductID, "order.validate", fmt.Sprintf("item %d", i))
		}
		if item.Quantity <= 0 {
			return withDetail(ErrInvalidQuantity, "order.validate", fmt.Sprintf("item %d (%s)", i, item.ProductID))
		}
	}
	if cart.Total != nil {
		t := *cart.Total
		if math.IsNaN(t) || math.IsInf(t, 0) || t < 0 {
			return ErrInvalidTotal
		}
	}
	return nil
}

func distinctProductIDs(items []domain.CartItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		key := canonicalID(item.ProductID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func parseOrderRef(storeID, orderID string) (pgtype.UUID, pgtype.UUID, error) {
	storeUUID, err := repository.ParseUUID(storeID)
	if err != nil {
		return pgtype.UUID{}, pgtype.UUID{}, ErrOrderNotFound
	}
	orderUUID, err := repository.ParseUUID(orderID)
	if err != nil {
		return pgtype.UUID{}, pgtype.UUID{}, ErrOrderNotFound
	}
	return storeUUID, orderUUID, nil
}
