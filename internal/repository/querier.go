package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type Querier interface {
	CancelInvoiceByOrderID(ctx context.Context, orderID pgtype.UUID) (int64, error)
	CreateInvoice(ctx context.Context, arg CreateInvoiceParams) (Invoice, error)
	CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error)
	CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error)
	// DecrementProductStock returns the number of rows updated; zero means
	// the product had less than the requested quantity.
	DecrementProductStock(ctx context.Context, arg DecrementProductStockParams) (int64, error)
	GetDiscountCode(ctx context.Context, arg GetDiscountCodeParams) (DiscountCode, error)
	GetInvoiceByOrderID(ctx context.Context, orderID pgtype.UUID) (Invoice, error)
	GetInvoiceByShareToken(ctx context.Context, shareToken string) (Invoice, error)
	GetOrder(ctx context.Context, arg GetOrderParams) (Order, error)
	GetOrderForUpdate(ctx context.Context, arg GetOrderForUpdateParams) (Order, error)
	GetOrderItems(ctx context.Context, orderID pgtype.UUID) ([]OrderItem, error)
	GetProductStock(ctx context.Context, id pgtype.UUID) (int32, error)
	GetProductsByIDs(ctx context.Context, arg GetProductsByIDsParams) ([]Product, error)
	GetStoreByID(ctx context.Context, id pgtype.UUID) (Store, error)
	GetStoreBySlug(ctx context.Context, slug string) (Store, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id pgtype.UUID) (User, error)
	InvoiceNumberExists(ctx context.Context, invoiceNumber string) (bool, error)
	MergeOrderMetadata(ctx context.Context, arg MergeOrderMetadataParams) error
	// RedeemDiscountCode increments used_count only while under max_uses and
	// clears is_active once the new count reaches it. pgx.ErrNoRows means the
	// code is unknown or already at its ceiling.
	RedeemDiscountCode(ctx context.Context, arg RedeemDiscountCodeParams) (DiscountCode, error)
	ShareTokenExists(ctx context.Context, shareToken string) (bool, error)
	UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error)
	UpdateUserName(ctx context.Context, arg UpdateUserNameParams) (User, error)
	UpsertUserByEmail(ctx context.Context, arg UpsertUserByEmailParams) (User, error)
}

var _ Querier = (*Queries)(nil)
