package service

import (
	"context"
	"fmt"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/repository"
)

// DiscountTracker records discount code redemptions.
type DiscountTracker interface {
	// Redeem increments the code's redemption count. The code is trimmed and
	// upper-cased before lookup. Reaching max_uses deactivates the code in the
	// same statement; a code already at its ceiling is never incremented.
	Redeem(ctx context.Context, storeID, code string) (*domain.DiscountCode, error)
}

type discountTracker struct {
	repo repository.Querier
}

// NewDiscountTracker creates a DiscountTracker backed by repo.
func NewDiscountTracker(repo repository.Querier) DiscountTracker {
	return &discountTracker{repo: repo}
}

func (t *discountTracker) Redeem(ctx context.Context, storeID, code string) (*domain.DiscountCode, error) {
	const op = "discount.redeem"

	normalized := domain.NormalizeDiscountCode(code)
	if normalized == "" {
		return nil, ErrDiscountNotFound
	}

	storeUUID, err := repository.ParseUUID(storeID)
	if err != nil {
		return nil, domain.Errorf(domain.EINVALID, op, "invalid store ID: %s", storeID)
	}

	row, err := t.repo.RedeemDiscountCode(ctx, repository.RedeemDiscountCodeParams{
		StoreID: storeUUID,
		Code:    normalized,
	})
	if err == nil {
		return toDomainDiscount(row), nil
	}
	if !repository.IsNotFound(err) {
		return nil, domain.Internal(err, op, "failed to redeem discount code")
	}

	// No row updated: either the code is unknown or it is at its ceiling.
	_, lookupErr := t.repo.GetDiscountCode(ctx, repository.GetDiscountCodeParams{
		StoreID: storeUUID,
		Code:    normalized,
	})
	switch {
	case lookupErr == nil:
		return nil, fmt.Errorf("%w: %s", ErrDiscountCeilingReached, normalized)
	case repository.IsNotFound(lookupErr):
		return nil, fmt.Errorf("%w: %s", ErrDiscountNotFound, normalized)
	default:
		return nil, domain.Internal(lookupErr, op, "failed to load discount code")
	}
}
