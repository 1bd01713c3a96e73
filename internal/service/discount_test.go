package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/repository"
)

func TestDiscountTracker_CeilingDeactivatesCode(t *testing.T) {
	db := newMemDB()
	store := db.seedStore("acme", "Acme", repository.NewUUID())
	db.seedDiscount(store.ID, "SPRING", 3)
	tracker := NewDiscountTracker(db)
	storeID := repository.UUIDString(store.ID)

	for i := 1; i <= 3; i++ {
		code, err := tracker.Redeem(context.Background(), storeID, "spring")
		require.NoError(t, err)
		assert.Equal(t, int32(i), code.UsedCount)
	}

	last := toDomainDiscount(db.discount(store.ID, "SPRING"))
	assert.False(t, last.IsActive)
	assert.Equal(t, domain.DiscountStatusInactive, domain.DiscountStatusAt(*last, time.Now()))

	_, err := tracker.Redeem(context.Background(), storeID, "SPRING")
	assert.ErrorIs(t, err, ErrDiscountCeilingReached)
	assert.Equal(t, int32(3), db.discount(store.ID, "SPRING").UsedCount)
}

func TestDiscountTracker_ConcurrentRedemptionsStopAtCeiling(t *testing.T) {
	db := newMemDB()
	store := db.seedStore("acme", "Acme", repository.NewUUID())
	db.seedDiscount(store.ID, "FLASH", 5)
	tracker := NewDiscountTracker(db)

	results := make([]error, 25)
	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			_, results[i] = tracker.Redeem(context.Background(), repository.UUIDString(store.ID), "FLASH")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	redeemed := 0
	for _, err := range results {
		if err == nil {
			redeemed++
			continue
		}
		assert.True(t, errors.Is(err, ErrDiscountCeilingReached), "unexpected error: %v", err)
	}
	assert.Equal(t, 5, redeemed)
	assert.Equal(t, int32(5), db.discount(store.ID, "FLASH").UsedCount)
}

func TestDiscountTracker_Redeem(t *testing.T) {
	db := newMemDB()
	store := db.seedStore("acme", "Acme", repository.NewUUID())
	other := db.seedStore("other", "Other", repository.NewUUID())
	db.seedDiscount(store.ID, "FOREVER", 0)
	tracker := NewDiscountTracker(db)

	tests := []struct {
		name     string
		storeID  string
		code     string
		wantErr  error
		wantCode string
	}{
		{name: "unlimited code", storeID: repository.UUIDString(store.ID), code: " forever ", wantCode: "FOREVER"},
		{name: "unknown code", storeID: repository.UUIDString(store.ID), code: "NOPE", wantErr: ErrDiscountNotFound},
		{name: "blank code", storeID: repository.UUIDString(store.ID), code: "   ", wantErr: ErrDiscountNotFound},
		{name: "code of another store", storeID: repository.UUIDString(other.ID), code: "FOREVER", wantErr: ErrDiscountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := tracker.Redeem(context.Background(), tt.storeID, tt.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, code.Code)
			assert.Nil(t, code.MaxUses)
			assert.Equal(t, domain.DiscountStatusActive, domain.DiscountStatusAt(*code, time.Now()))
		})
	}

	t.Run("invalid store id", func(t *testing.T) {
		_, err := tracker.Redeem(context.Background(), "acme", "FOREVER")
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	})
}
