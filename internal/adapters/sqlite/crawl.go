package sqlite

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"catalogtree/internal/domain"
	"catalogtree/internal/ports"
)

// CrawlOptions bounds a crawl
type CrawlOptions struct {
	MaxDepth    int // Levels below the root to mirror; 0 means unlimited
	Concurrency int // Branches listed in parallel
	PageSize    int
	Logger      logrus.FieldLogger
}

func (o *CrawlOptions) defaults() {
	if o.Concurrency < 1 {
		o.Concurrency = 4
	}
	if o.PageSize < 1 {
		o.PageSize = 200
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
}

// Crawl mirrors src into dst one level at a time. Each branch is listed in
// full and then replaced in a single transaction, so readers never see a
// half written branch. A branch that fails to list is logged, counted and
// left as it was.
func Crawl(ctx context.Context, src ports.ItemProvider, dst ports.CatalogIndex, opts CrawlOptions) (*domain.CrawlStats, error) {
	opts.defaults()
	start := time.Now()
	stats := &domain.CrawlStats{}

	var (
		mu      sync.Mutex // Guards stats and serializes writes
		level   = []string{""}
		depth   = 0
		pending []string
	)

	for len(level) > 0 {
		if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
			break
		}
		pending = nil

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for _, key := range level {
			g.Go(func() error {
				items, pages, err := listAll(gctx, src, key, opts.PageSize)
				if err != nil {
					if gctx.Err() != nil {
						return gctx.Err()
					}
					opts.Logger.WithFields(logrus.Fields{"op": "crawl", "key": key}).
						WithError(err).Warn("failed to list branch")
					mu.Lock()
					stats.Failed++
					stats.PagesFetched += pages
					mu.Unlock()
					return nil
				}

				mu.Lock()
				defer mu.Unlock()
				stats.PagesFetched += pages
				if err := replaceChildren(gctx, dst, key, items); err != nil {
					return fmt.Errorf("failed to write %q: %w", key, err)
				}
				stats.Branches++
				for _, it := range items {
					stats.Entries++
					if it.Expandable {
						pending = append(pending, it.Key)
					}
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			stats.Duration = time.Since(start)
			return stats, err
		}

		level = pending
		depth++
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

func listAll(ctx context.Context, src ports.ItemProvider, key string, pageSize int) ([]domain.Item, int, error) {
	var (
		items []domain.Item
		token string
		pages int
	)
	for {
		page, err := src.ListChildren(ctx, key, token, pageSize)
		if err != nil {
			return nil, pages, err
		}
		pages++
		items = append(items, page.Items...)
		if !page.HasMore() {
			return items, pages, nil
		}
		token = page.NextPageToken
	}
}

func replaceChildren(ctx context.Context, dst ports.CatalogIndex, key string, items []domain.Item) error {
	tx, err := dst.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := tx.DeleteChildren(key); err != nil {
		tx.Rollback()
		return err
	}
	for _, it := range items {
		if err := tx.UpsertEntry(key, it); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
