package ports

import (
	"context"

	"catalogtree/internal/domain"
)

// CatalogIndex is a persistent mirror of a provider's tree that can itself
// serve pages.
type CatalogIndex interface {
	ItemProvider

	// Lifecycle
	Close() error

	// Batch updates
	BeginTx(ctx context.Context) (CatalogTx, error)

	Stats(ctx context.Context) (*domain.CatalogStats, error)
}

// CatalogTx groups index writes so a branch is replaced atomically.
type CatalogTx interface {
	UpsertEntry(parentKey string, item domain.Item) error
	DeleteChildren(parentKey string) error

	// Transaction control
	Commit() error
	Rollback() error
}
