package ports

import (
	"context"

	"catalogtree/internal/domain"
)

// ItemProvider yields pages of child items for a node key.
type ItemProvider interface {
	// ListChildren returns up to limit children of key, starting at
	// pageToken. An empty pageToken requests the first page; an empty
	// NextPageToken in the result means there are no further pages.
	// Item identity must be stable across pages of the same key.
	ListChildren(ctx context.Context, key, pageToken string, limit int) (domain.Page, error)
}

// ItemProviderFunc adapts a function to ItemProvider.
type ItemProviderFunc func(ctx context.Context, key, pageToken string, limit int) (domain.Page, error)

// ListChildren calls f.
func (f ItemProviderFunc) ListChildren(ctx context.Context, key, pageToken string, limit int) (domain.Page, error) {
	return f(ctx, key, pageToken, limit)
}

// RootNamer is implemented by providers that know a display name for their
// root entry.
type RootNamer interface {
	RootName() string
}
