// Package source opens the item provider selected by configuration.
package source

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"catalogtree/internal/adapters/filesystem"
	"catalogtree/internal/adapters/httpapi"
	"catalogtree/internal/adapters/memory"
	"catalogtree/internal/adapters/sqlite"
	"catalogtree/internal/config"
	"catalogtree/internal/ports"
)

// Opened is a provider together with what it needs released.
type Opened struct {
	Provider ports.ItemProvider
	// Filesystem is set for the fs source; it resolves keys to paths for
	// the editor and the watcher.
	Filesystem *filesystem.Provider
	Close      func() error
}

// Open builds the provider for cfg.Source.
func Open(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*Opened, error) {
	noop := func() error { return nil }

	switch strings.ToLower(cfg.Source) {
	case config.SourceFilesystem:
		p, err := filesystem.NewProvider(cfg.Root, filesystem.WithHidden(cfg.ShowHidden))
		if err != nil {
			return nil, err
		}
		return &Opened{Provider: p, Filesystem: p, Close: noop}, nil

	case config.SourceSQLite:
		path, err := CatalogPath(cfg)
		if err != nil {
			return nil, err
		}
		c, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		log.WithField("db", c.Path()).Debug("opened catalog")
		return &Opened{Provider: c, Close: c.Close}, nil

	case config.SourceHTTP:
		client, err := httpapi.NewClient(cfg.Remote, httpapi.WithTimeout(30*time.Second))
		if err != nil {
			return nil, err
		}
		// The root name is cosmetic; an unreachable server fails on the first fetch
		hctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := client.Health(hctx); err != nil {
			log.WithField("remote", cfg.Remote).WithError(err).Warn("health check failed")
		}
		return &Opened{Provider: client, Close: noop}, nil

	case config.SourceYAML:
		p, err := memory.LoadFile(cfg.Catalog)
		if err != nil {
			return nil, err
		}
		return &Opened{Provider: p, Close: noop}, nil
	}
	return nil, fmt.Errorf("unknown source: %s", cfg.Source)
}

// CatalogPath returns the sqlite database for cfg: the db setting, or the
// default location derived from the root.
func CatalogPath(cfg *config.Config) (string, error) {
	if cfg.DB != "" {
		return cfg.DB, nil
	}
	abs, err := filepath.Abs(cfg.Root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve root: %w", err)
	}
	return sqlite.DatabasePath(abs), nil
}
