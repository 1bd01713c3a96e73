package service

import (
	"context"

	"github.com/dukerupert/freyja/internal/domain"
	"github.com/dukerupert/freyja/internal/repository"
)

// StoreDirectory reads storefronts by id or slug.
type StoreDirectory interface {
	StoreByID(ctx context.Context, storeID string) (*domain.Store, error)
	StoreBySlug(ctx context.Context, slug string) (*domain.Store, error)
}

type storeDirectory struct {
	repo repository.Querier
}

// NewStoreDirectory creates a StoreDirectory reading from repo.
func NewStoreDirectory(repo repository.Querier) StoreDirectory {
	return &storeDirectory{repo: repo}
}

func (d *storeDirectory) StoreByID(ctx context.Context, storeID string) (*domain.Store, error) {
	id, err := repository.ParseUUID(storeID)
	if err != nil {
		return nil, ErrStoreNotFound
	}

	row, err := d.repo.GetStoreByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrStoreNotFound
		}
		return nil, domain.Internal(err, "store.get", "failed to load store")
	}

	s := toDomainStore(row)
	return &s, nil
}

func (d *storeDirectory) StoreBySlug(ctx context.Context, slug string) (*domain.Store, error) {
	if slug == "" {
		return nil, ErrStoreNotFound
	}

	row, err := d.repo.GetStoreBySlug(ctx, slug)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrStoreNotFound
		}
		return nil, domain.Internal(err, "store.get", "failed to load store")
	}

	s := toDomainStore(row)
	return &s, nil
}
