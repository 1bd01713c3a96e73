package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/dukerupert/freyja/internal/repository"
)

// memDB is an in-memory repository.Database. Transactions are serialized,
// which stands in for row locks, and every write made through the
// transaction context is undone when fn fails.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users     map[[16]byte]repository.User
	stores    map[[16]byte]repository.Store
	products  map[[16]byte]repository.Product
	orders    map[[16]byte]repository.Order
	items     map[[16]byte][]repository.OrderItem
	discounts map[string]repository.DiscountCode
	invoices  map[[16]byte]repository.Invoice

	invoiceNumbers map[string]struct{}
	shareTokens    map[string]struct{}

	// failures makes the named method return the error.
	failures map[string]error

	// decrements lists the product of every stock decrement, in call order.
	decrements []pgtype.UUID

	// lockedOrders lists every order read with GetOrderForUpdate.
	lockedOrders []pgtype.UUID

	txCount int
}

var _ repository.Database = (*memDB)(nil)

type undoLog struct{ fns []func() }

type undoKey struct{}

func newMemDB() *memDB {
	return &memDB{
		users:          make(map[[16]byte]repository.User),
		stores:         make(map[[16]byte]repository.Store),
		products:       make(map[[16]byte]repository.Product),
		orders:         make(map[[16]byte]repository.Order),
		items:          make(map[[16]byte][]repository.OrderItem),
		discounts:      make(map[string]repository.DiscountCode),
		invoices:       make(map[[16]byte]repository.Invoice),
		invoiceNumbers: make(map[string]struct{}),
		shareTokens:    make(map[string]struct{}),
		failures:       make(map[string]error),
	}
}

func (m *memDB) ExecTx(ctx context.Context, fn func(ctx context.Context, q repository.Querier) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	log := &undoLog{}
	err := fn(context.WithValue(ctx, undoKey{}, log), m)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.txCount++
	if err != nil {
		for i := len(log.fns) - 1; i >= 0; i-- {
			log.fns[i]()
		}
	}
	return err
}

// onUndo registers fn for rollback. Callers hold m.mu.
func (m *memDB) onUndo(ctx context.Context, fn func()) {
	if log, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		log.fns = append(log.fns, fn)
	}
}

func (m *memDB) fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method] = err
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func pgNow() pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: time.Now().UTC(), Valid: true}
}

func discountKey(storeID pgtype.UUID, code string) string {
	return repository.UUIDString(storeID) + "|" + code
}

// Seeding and inspection helpers

func (m *memDB) seedUser(email, name string) repository.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := repository.User{ID: repository.NewUUID(), Email: strings.ToLower(email), Name: name, CreatedAt: pgNow()}
	m.users[u.ID.Bytes] = u
	return u
}

func (m *memDB) seedStore(slug, name string, ownerID pgtype.UUID) repository.Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := repository.Store{ID: repository.NewUUID(), Slug: slug, Name: name, OwnerID: ownerID, CreatedAt: pgNow()}
	m.stores[s.ID.Bytes] = s
	return s
}

func (m *memDB) seedProduct(storeID pgtype.UUID, name, price string, stock int32) repository.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := repository.Product{
		ID:        repository.NewUUID(),
		StoreID:   storeID,
		Name:      name,
		Price:     repository.Numeric(decimal.RequireFromString(price)),
		Stock:     stock,
		CreatedAt: pgNow(),
	}
	m.products[p.ID.Bytes] = p
	return p
}

func (m *memDB) seedDiscount(storeID pgtype.UUID, code string, maxUses int32) repository.DiscountCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := repository.DiscountCode{
		ID:        repository.NewUUID(),
		StoreID:   storeID,
		Code:      code,
		Type:      "percentage",
		Value:     repository.Numeric(decimal.NewFromInt(10)),
		MaxUses:   pgtype.Int4{Int32: maxUses, Valid: maxUses > 0},
		IsActive:  true,
		CreatedAt: pgNow(),
	}
	m.discounts[discountKey(storeID, code)] = d
	return d
}

func (m *memDB) seedOrder(userID, storeID pgtype.UUID, total string, items ...repository.OrderItem) repository.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := repository.Order{
		ID:        repository.NewUUID(),
		UserID:    userID,
		StoreID:   storeID,
		Total:     repository.Numeric(decimal.RequireFromString(total)),
		Status:    "completed",
		Metadata:  []byte(`{}`),
		CreatedAt: pgNow(),
	}
	m.orders[o.ID.Bytes] = o
	for _, it := range items {
		it.ID = repository.NewUUID()
		it.OrderID = o.ID
		m.items[o.ID.Bytes] = append(m.items[o.ID.Bytes], it)
	}
	return o
}

func (m *memDB) stock(productID pgtype.UUID) int32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID.Bytes].Stock
}

func (m *memDB) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memDB) itemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, items := range m.items {
		n += len(items)
	}
	return n
}

func (m *memDB) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memDB) discount(storeID pgtype.UUID, code string) repository.DiscountCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.discounts[discountKey(storeID, code)]
}

func (m *memDB) orderMetadata(orderID pgtype.UUID) map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	var meta map[string]any
	_ = json.Unmarshal(m.orders[orderID.Bytes].Metadata, &meta)
	return meta
}

// Querier

func (m *memDB) CancelInvoiceByOrderID(ctx context.Context, orderID pgtype.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[orderID.Bytes]
	if !ok || inv.CancelledAt.Valid {
		return 0, nil
	}
	prev := inv
	inv.CancelledAt = pgNow()
	m.invoices[orderID.Bytes] = inv
	m.onUndo(ctx, func() { m.invoices[orderID.Bytes] = prev })
	return 1, nil
}

func (m *memDB) CreateInvoice(ctx context.Context, arg repository.CreateInvoiceParams) (repository.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["CreateInvoice"]; err != nil {
		return repository.Invoice{}, err
	}
	if _, ok := m.invoices[arg.OrderID.Bytes]; ok {
		return repository.Invoice{}, uniqueViolation(repository.ConstraintInvoiceOrderID)
	}
	if _, ok := m.invoiceNumbers[arg.InvoiceNumber]; ok {
		return repository.Invoice{}, uniqueViolation(repository.ConstraintInvoiceNumber)
	}
	if _, ok := m.shareTokens[arg.ShareToken]; ok {
		return repository.Invoice{}, uniqueViolation(repository.ConstraintInvoiceShareToken)
	}

	inv := repository.Invoice{
		ID:               repository.NewUUID(),
		OrderID:          arg.OrderID,
		StoreID:          arg.StoreID,
		InvoiceNumber:    arg.InvoiceNumber,
		ShareToken:       arg.ShareToken,
		CustomerSnapshot: arg.CustomerSnapshot,
		StoreSnapshot:    arg.StoreSnapshot,
		Subtotal:         arg.Subtotal,
		Total:            arg.Total,
		IssuedAt:         pgNow(),
	}
	m.invoices[arg.OrderID.Bytes] = inv
	m.invoiceNumbers[inv.InvoiceNumber] = struct{}{}
	m.shareTokens[inv.ShareToken] = struct{}{}
	m.onUndo(ctx, func() {
		delete(m.invoices, arg.OrderID.Bytes)
		delete(m.invoiceNumbers, inv.InvoiceNumber)
		delete(m.shareTokens, inv.ShareToken)
	})
	return inv, nil
}

func (m *memDB) CreateOrder(ctx context.Context, arg repository.CreateOrderParams) (repository.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["CreateOrder"]; err != nil {
		return repository.Order{}, err
	}
	o := repository.Order{
		ID:            repository.NewUUID(),
		UserID:        arg.UserID,
		StoreID:       arg.StoreID,
		Total:         arg.Total,
		Status:        arg.Status,
		PaymentMethod: arg.PaymentMethod,
		Metadata:      append([]byte(nil), arg.Metadata...),
		CreatedAt:     pgNow(),
		UpdatedAt:     pgNow(),
	}
	m.orders[o.ID.Bytes] = o
	m.onUndo(ctx, func() { delete(m.orders, o.ID.Bytes) })
	return o, nil
}

func (m *memDB) CreateOrderItem(ctx context.Context, arg repository.CreateOrderItemParams) (repository.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["CreateOrderItem"]; err != nil {
		return repository.OrderItem{}, err
	}
	it := repository.OrderItem{
		ID:        repository.NewUUID(),
		OrderID:   arg.OrderID,
		ProductID: arg.ProductID,
		Quantity:  arg.Quantity,
		UnitPrice: arg.UnitPrice,
		CreatedAt: pgNow(),
	}
	prev := m.items[arg.OrderID.Bytes]
	m.items[arg.OrderID.Bytes] = append(prev[:len(prev):len(prev)], it)
	m.onUndo(ctx, func() {
		if len(prev) == 0 {
			delete(m.items, arg.OrderID.Bytes)
			return
		}
		m.items[arg.OrderID.Bytes] = prev
	})
	return it, nil
}

func (m *memDB) DecrementProductStock(ctx context.Context, arg repository.DecrementProductStockParams) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decrements = append(m.decrements, arg.ID)
	if err := m.failures["DecrementProductStock"]; err != nil {
		return 0, err
	}
	p, ok := m.products[arg.ID.Bytes]
	if !ok || p.Stock < arg.Quantity {
		return 0, nil
	}
	prev := p
	p.Stock -= arg.Quantity
	m.products[arg.ID.Bytes] = p
	m.onUndo(ctx, func() { m.products[arg.ID.Bytes] = prev })
	return 1, nil
}

func (m *memDB) GetDiscountCode(ctx context.Context, arg repository.GetDiscountCodeParams) (repository.DiscountCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.discounts[discountKey(arg.StoreID, arg.Code)]
	if !ok {
		return repository.DiscountCode{}, pgx.ErrNoRows
	}
	return d, nil
}

func (m *memDB) GetInvoiceByOrderID(ctx context.Context, orderID pgtype.UUID) (repository.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[orderID.Bytes]
	if !ok {
		return repository.Invoice{}, pgx.ErrNoRows
	}
	return inv, nil
}

func (m *memDB) GetInvoiceByShareToken(ctx context.Context, shareToken string) (repository.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invoices {
		if inv.ShareToken == shareToken {
			return inv, nil
		}
	}
	return repository.Invoice{}, pgx.ErrNoRows
}

func (m *memDB) GetOrder(ctx context.Context, arg repository.GetOrderParams) (repository.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID.Bytes]
	if !ok || o.StoreID != arg.StoreID {
		return repository.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memDB) GetOrderForUpdate(ctx context.Context, arg repository.GetOrderForUpdateParams) (repository.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockedOrders = append(m.lockedOrders, arg.ID)
	o, ok := m.orders[arg.ID.Bytes]
	if !ok || o.StoreID != arg.StoreID {
		return repository.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memDB) GetOrderItems(ctx context.Context, orderID pgtype.UUID) ([]repository.OrderItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repository.OrderItem(nil), m.items[orderID.Bytes]...), nil
}

func (m *memDB) GetProductStock(ctx context.Context, id pgtype.UUID) (int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id.Bytes]
	if !ok {
		return 0, pgx.ErrNoRows
	}
	return p.Stock, nil
}

func (m *memDB) GetProductsByIDs(ctx context.Context, arg repository.GetProductsByIDsParams) ([]repository.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["GetProductsByIDs"]; err != nil {
		return nil, err
	}
	var out []repository.Product
	for _, id := range arg.IDs {
		if p, ok := m.products[id.Bytes]; ok && p.StoreID == arg.StoreID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memDB) GetStoreByID(ctx context.Context, id pgtype.UUID) (repository.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id.Bytes]
	if !ok {
		return repository.Store{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *memDB) GetStoreBySlug(ctx context.Context, slug string) (repository.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stores {
		if s.Slug == slug {
			return s, nil
		}
	}
	return repository.Store{}, pgx.ErrNoRows
}

func (m *memDB) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["GetUserByEmail"]; err != nil {
		return repository.User{}, err
	}
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return repository.User{}, pgx.ErrNoRows
}

func (m *memDB) GetUserByID(ctx context.Context, id pgtype.UUID) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id.Bytes]
	if !ok {
		return repository.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memDB) InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.invoiceNumbers[invoiceNumber]
	return ok, nil
}

func (m *memDB) MergeOrderMetadata(ctx context.Context, arg repository.MergeOrderMetadataParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID.Bytes]
	if !ok {
		return nil
	}
	merged := map[string]any{}
	_ = json.Unmarshal(o.Metadata, &merged)
	var patch map[string]any
	if err := json.Unmarshal(arg.Metadata, &patch); err != nil {
		return err
	}
	for k, v := range patch {
		merged[k] = v
	}
	data, err := json.Marshal(merged)
	if err != nil {
		return err
	}
	prev := o
	o.Metadata = data
	m.orders[arg.ID.Bytes] = o
	m.onUndo(ctx, func() { m.orders[arg.ID.Bytes] = prev })
	return nil
}

func (m *memDB) RedeemDiscountCode(ctx context.Context, arg repository.RedeemDiscountCodeParams) (repository.DiscountCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := discountKey(arg.StoreID, arg.Code)
	d, ok := m.discounts[key]
	if !ok || (d.MaxUses.Valid && d.UsedCount >= d.MaxUses.Int32) {
		return repository.DiscountCode{}, pgx.ErrNoRows
	}
	prev := d
	d.UsedCount++
	if d.MaxUses.Valid && d.UsedCount >= d.MaxUses.Int32 {
		d.IsActive = false
	}
	d.UpdatedAt = pgNow()
	m.discounts[key] = d
	m.onUndo(ctx, func() { m.discounts[key] = prev })
	return d, nil
}

func (m *memDB) ShareTokenExists(ctx context.Context, shareToken string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.shareTokens[shareToken]
	return ok, nil
}

func (m *memDB) UpdateOrderStatus(ctx context.Context, arg repository.UpdateOrderStatusParams) (repository.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[arg.ID.Bytes]
	if !ok {
		return repository.Order{}, pgx.ErrNoRows
	}
	prev := o
	o.Status = arg.Status
	o.UpdatedAt = pgNow()
	m.orders[arg.ID.Bytes] = o
	m.onUndo(ctx, func() { m.orders[arg.ID.Bytes] = prev })
	return o, nil
}

func (m *memDB) UpdateUserName(ctx context.Context, arg repository.UpdateUserNameParams) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[arg.ID.Bytes]
	if !ok {
		return repository.User{}, pgx.ErrNoRows
	}
	prev := u
	u.Name = arg.Name
	m.users[arg.ID.Bytes] = u
	m.onUndo(ctx, func() { m.users[arg.ID.Bytes] = prev })
	return u, nil
}

func (m *memDB) UpsertUserByEmail(ctx context.Context, arg repository.UpsertUserByEmailParams) (repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failures["UpsertUserByEmail"]; err != nil {
		return repository.User{}, err
	}
	email := strings.ToLower(arg.Email)
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	u := repository.User{
		ID:           repository.NewUUID(),
		Email:        email,
		Name:         arg.Name,
		PasswordHash: arg.PasswordHash,
		IsGuest:      arg.IsGuest,
		CreatedAt:    pgNow(),
	}
	m.users[u.ID.Bytes] = u
	m.onUndo(ctx, func() { delete(m.users, u.ID.Bytes) })
	return u, nil
}
