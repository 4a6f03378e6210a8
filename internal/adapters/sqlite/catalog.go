package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"catalogtree/internal/domain"
	"catalogtree/internal/ports"
)

const schemaVersion = "1"

// Catalog implements ports.CatalogIndex using SQLite. Children are served
// in insertion order with keyset pagination on their position.
type Catalog struct {
	db     *sql.DB
	dbPath string
}

// Ensure Catalog implements CatalogIndex and RootNamer
var (
	_ ports.CatalogIndex = (*Catalog)(nil)
	_ ports.RootNamer    = (*Catalog)(nil)
)

// Open opens or creates the catalog database at path
func Open(path string) (*Catalog, error) {
	// Expand ~ in path
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create catalog directory: %w", err)
	}

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Performance pragmas + schema in single batch (reduces round-trips)
	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -64000;
		PRAGMA temp_store = MEMORY;

		CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			parent_key TEXT NOT NULL,
			position INTEGER NOT NULL,
			name TEXT NOT NULL,
			expandable INTEGER NOT NULL DEFAULT 0,
			metadata TEXT
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_entries_parent ON entries(parent_key, position);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	c := &Catalog{db: db, dbPath: path}
	if err := c.setMeta("schema_version", schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to update metadata: %w", err)
	}
	return c, nil
}

// Path returns the database file
func (c *Catalog) Path() string {
	return c.dbPath
}

// Close closes the database connection
func (c *Catalog) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DatabasePath returns the default database location for a crawled source
func DatabasePath(source string) string {
	// XDG data directory
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, "catalogtree", hashSource(source)+".db")
}

// hashSource returns a short hash of the source location
func hashSource(source string) string {
	h := sha256.Sum256([]byte(source))
	return hex.EncodeToString(h[:8]) // First 8 bytes = 16 hex chars
}

// RootName returns the name recorded by the last crawl
func (c *Catalog) RootName() string {
	name, _ := c.meta("root_name")
	if name == "" {
		return "catalog"
	}
	return name
}

// SetSource records where the catalog was crawled from
func (c *Catalog) SetSource(source, rootName string) error {
	if err := c.setMeta("source", source); err != nil {
		return err
	}
	return c.setMeta("root_name", rootName)
}

func (c *Catalog) meta(key string) (string, error) {
	var value string
	err := c.db.QueryRow(`SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (c *Catalog) setMeta(key, value string) error {
	_, err := c.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// ListChildren returns up to limit children of key. The page token is the
// position of the last entry of the previous page.
func (c *Catalog) ListChildren(ctx context.Context, key, pageToken string, limit int) (domain.Page, error) {
	if limit < 1 {
		return domain.Page{}, fmt.Errorf("invalid page size: %d", limit)
	}
	after := int64(-1)
	if pageToken != "" {
		n, err := strconv.ParseInt(pageToken, 10, 64)
		if err != nil {
			return domain.Page{}, fmt.Errorf("invalid page token: %q", pageToken)
		}
		after = n
	}

	// One extra row tells whether another page exists
	rows, err := c.db.QueryContext(ctx, `
		SELECT key, name, expandable, metadata, position
		FROM entries
		WHERE parent_key = ? AND position > ?
		ORDER BY position
		LIMIT ?
	`, key, after, limit+1)
	if err != nil {
		return domain.Page{}, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var (
		page      domain.Page
		positions []int64
	)
	for rows.Next() {
		var (
			item     domain.Item
			metadata sql.NullString
			position int64
		)
		if err := rows.Scan(&item.Key, &item.Name, &item.Expandable, &metadata, &position); err != nil {
			return domain.Page{}, err
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &item.Metadata); err != nil {
				return domain.Page{}, fmt.Errorf("corrupt metadata for %s: %w", item.Key, err)
			}
		}
		page.Items = append(page.Items, item)
		positions = append(positions, position)
	}
	if err := rows.Err(); err != nil {
		return domain.Page{}, err
	}

	if len(page.Items) > limit {
		page.Items = page.Items[:limit]
		page.NextPageToken = strconv.FormatInt(positions[limit-1], 10)
	}
	return page, nil
}

// Stats counts the indexed entries
func (c *Catalog) Stats(ctx context.Context) (*domain.CatalogStats, error) {
	stats := &domain.CatalogStats{}
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(expandable), 0) FROM entries
	`).Scan(&stats.Entries, &stats.Branches)
	if err != nil {
		return nil, err
	}
	stats.Source, err = c.meta("source")
	if err != nil {
		return nil, err
	}
	return stats, nil
}

// BeginTx starts a new transaction
func (c *Catalog) BeginTx(ctx context.Context) (ports.CatalogTx, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &catalogTx{tx: tx}, nil
}
