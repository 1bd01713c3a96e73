package service

import (
	"context"
	"fmt"
	"math"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/repository"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// InventoryLedger guards per-product stock counters and resolves line prices.
type InventoryLedger interface {
	// LoadSnapshot batch-reads every product in productIDs for the store.
	// A product that does not exist, or belongs to another store, is an
	// EINVALID error naming that product.
	LoadSnapshot(ctx context.Context, storeID string, productIDs []string) (map[string]domain.Product, error)

	// ResolvePrice returns the explicit line price when supplied, else the
	// catalog price, rounded half away from zero to whole cents.
	ResolvePrice(item domain.CartItem, product domain.Product) (decimal.Decimal, error)

	// Reserve decrements stock by quantity inside the caller's unit of work.
	// It fails with an insufficient stock error when fewer than quantity
	// units remain, which must abort the unit of work.
	Reserve(ctx context.Context, q repository.Querier, productID string, quantity int32) error
}

type inventoryLedger struct {
	repo repository.Querier
}

// NewInventoryLedger creates an InventoryLedger reading snapshots through repo.
func NewInventoryLedger(repo repository.Querier) InventoryLedger {
	return &inventoryLedger{repo: repo}
}

func (l *inventoryLedger) LoadSnapshot(ctx context.Context, storeID string, productIDs []string) (map[string]domain.Product, error) {
	const op = "inventory.snapshot"

	storeUUID, err := repository.ParseUUID(storeID)
	if err != nil {
		return nil, domain.Errorf(domain.EINVALID, op, "invalid store ID: %s", storeID)
	}

	ids := make([]pgtype.UUID, 0, len(productIDs))
	for _, id := range productIDs {
		pid, err := repository.ParseUUID(id)
		if err != nil {
			return nil, domain.Errorf(domain.EINVALID, op, "unknown product: %s", id)
		}
		ids = append(ids, pid)
	}

	rows, err := l.repo.GetProductsByIDs(ctx, repository.GetProductsByIDsParams{
		StoreID: storeUUID,
		IDs:     ids,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "failed to load products")
	}

	snapshot := make(map[string]domain.Product, len(rows))
	for _, row := range rows {
		p := toDomainProduct(row)
		snapshot[p.ID] = p
	}

	for _, id := range productIDs {
		if _, ok := snapshot[canonicalID(id)]; !ok {
			return nil, domain.Errorf(domain.EINVALID, op, "unknown product: %s", id)
		}
	}

	return snapshot, nil
}

func (l *inventoryLedger) ResolvePrice(item domain.CartItem, product domain.Product) (decimal.Decimal, error) {
	if item.Price == nil {
		if product.Price.IsNegative() {
			return decimal.Zero, withDetail(ErrInvalidPrice, "inventory.price", "product "+product.ID)
		}
		return product.Price.Round(2), nil
	}

	p := *item.Price
	if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
		return decimal.Zero, withDetail(ErrInvalidPrice, "inventory.price", "product "+item.ProductID)
	}
	return decimal.NewFromFloat(p).Round(2), nil
}

func (l *inventoryLedger) Reserve(ctx context.Context, q repository.Querier, productID string, quantity int32) error {
	const op = "inventory.reserve"

	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	pid, err := repository.ParseUUID(productID)
	if err != nil {
		return domain.Errorf(domain.EINVALID, op, "unknown product: %s", productID)
	}

	n, err := q.DecrementProductStock(ctx, repository.DecrementProductStockParams{
		ID:       pid,
		Quantity: quantity,
	})
	if err != nil {
		if repository.IsLockConflict(err) {
			return withDetail(ErrStockContention, op, "product "+productID)
		}
		return domain.Internal(err, op, "failed to reserve stock")
	}
	if n > 0 {
		return nil
	}

	// Read within the same unit of work so the reported figure matches
	// what the decrement saw.
	available, err := q.GetProductStock(ctx, pid)
	if err != nil {
		if repository.IsNotFound(err) {
			return domain.Errorf(domain.EINVALID, op, "unknown product: %s", productID)
		}
		return domain.Internal(err, op, fmt.Sprintf("failed to read stock for %s", productID))
	}

	return domain.NewInsufficientStockError(op, productID, quantity, available)
}

// canonicalID lower-cases a textual UUID so lookups match UUIDString output.
func canonicalID(id string) string {
	pid, err := repository.ParseUUID(id)
	if err != nil {
		return id
	}
	return repository.UUIDString(pid)
}
