package sqlite

import (
	"database/sql"

	json "github.com/goccy/go-json"

	"catalogtree/internal/domain"
	"catalogtree/internal/ports"
)

// catalogTx implements ports.CatalogTx
type catalogTx struct {
	tx *sql.Tx
}

// Ensure catalogTx implements CatalogTx
var _ ports.CatalogTx = (*catalogTx)(nil)

// UpsertEntry inserts or updates an entry. New entries are appended after
// their siblings; existing ones keep their position.
func (t *catalogTx) UpsertEntry(parentKey string, item domain.Item) error {
	var metadata sql.NullString
	if len(item.Metadata) > 0 {
		b, err := json.Marshal(item.Metadata)
		if err != nil {
			return err
		}
		metadata = sql.NullString{String: string(b), Valid: true}
	}

	_, err := t.tx.Exec(`
		INSERT OR REPLACE INTO entries (key, parent_key, position, name, expandable, metadata)
		VALUES (?, ?,
			COALESCE(
				(SELECT position FROM entries WHERE key = ? AND parent_key = ?),
				(SELECT COALESCE(MAX(position) + 1, 0) FROM entries WHERE parent_key = ?)
			),
			?, ?, ?)
	`, item.Key, parentKey, item.Key, parentKey, parentKey, item.Name, item.Expandable, metadata)
	return err
}

// DeleteChildren removes every entry below parentKey
func (t *catalogTx) DeleteChildren(parentKey string) error {
	_, err := t.tx.Exec(`
		WITH RECURSIVE sub(key) AS (
			SELECT key FROM entries WHERE parent_key = ?
			UNION
			SELECT e.key FROM entries e JOIN sub ON e.parent_key = sub.key
		)
		DELETE FROM entries WHERE key IN (SELECT key FROM sub)
	`, parentKey)
	return err
}

// Commit commits the transaction
func (t *catalogTx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction
func (t *catalogTx) Rollback() error {
	return t.tx.Rollback()
}
