// Package assetstore persists normalized panorama payloads in SQLite,
// keyed 1:1 by scene id. The store is the owner of asset binaries; the
// project document only references them through the shared scene id.
package assetstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/raido/internal/apperr"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS assets (
	scene_id        TEXT PRIMARY KEY,
	file_name       TEXT NOT NULL DEFAULT '',
	payload         BLOB NOT NULL,
	width           INTEGER NOT NULL,
	height          INTEGER NOT NULL,
	original_width  INTEGER NOT NULL,
	original_height INTEGER NOT NULL,
	updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// StoredAsset is a normalized panorama plus its metadata. The scene id is a
// weak foreign key: a scene may exist without an asset (incomplete import),
// never the document embedding the payload.
type StoredAsset struct {
	SceneID        string
	FileName       string
	Payload        []byte
	Width          int
	Height         int
	OriginalWidth  int
	OriginalHeight int
	UpdatedAt      time.Time
}

// Store is the opaque key-value boundary the rest of the system depends on.
// Consumers should use this interface rather than *DB to allow test fakes.
type Store interface {
	Put(ctx context.Context, a StoredAsset) error
	Get(ctx context.Context, sceneID string) (*StoredAsset, error)
	Delete(ctx context.Context, sceneID string) error
	List(ctx context.Context) ([]StoredAsset, error)
	Close() error
}

// DB implements Store backed by SQLite.
type DB struct {
	conn *sql.DB
}

var _ Store = (*DB)(nil)

// Open opens (or creates) the asset database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("assetstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("assetstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("assetstore: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Put inserts or replaces the asset for its scene id. Replacement discards
// the old payload; releasing any live preview handle is the caller's job.
func (db *DB) Put(ctx context.Context, a StoredAsset) error {
	if a.SceneID == "" {
		return fmt.Errorf("assetstore: put: scene id is empty")
	}
	updated := a.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO assets (scene_id, file_name, payload, width, height, original_width, original_height, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(scene_id) DO UPDATE SET
			file_name = excluded.file_name,
			payload = excluded.payload,
			width = excluded.width,
			height = excluded.height,
			original_width = excluded.original_width,
			original_height = excluded.original_height,
			updated_at = excluded.updated_at`,
		a.SceneID, a.FileName, a.Payload, a.Width, a.Height, a.OriginalWidth, a.OriginalHeight, updated)
	if err != nil {
		return fmt.Errorf("assetstore: put %s: %w", a.SceneID, err)
	}
	return nil
}

// Get returns the asset for a scene id, or apperr.ErrNotFound when absent.
func (db *DB) Get(ctx context.Context, sceneID string) (*StoredAsset, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT scene_id, file_name, payload, width, height, original_width, original_height, updated_at
		FROM assets WHERE scene_id = ?`, sceneID)

	var a StoredAsset
	err := row.Scan(&a.SceneID, &a.FileName, &a.Payload, &a.Width, &a.Height,
		&a.OriginalWidth, &a.OriginalHeight, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assetstore: get %s: %w", sceneID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("assetstore: get %s: %w", sceneID, err)
	}
	return &a, nil
}

// Delete removes the asset for a scene id. Deleting an absent key is a no-op.
func (db *DB) Delete(ctx context.Context, sceneID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM assets WHERE scene_id = ?`, sceneID); err != nil {
		return fmt.Errorf("assetstore: delete %s: %w", sceneID, err)
	}
	return nil
}

// List returns every stored asset ordered by scene id. Export joins this
// set against the project snapshot.
func (db *DB) List(ctx context.Context) ([]StoredAsset, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT scene_id, file_name, payload, width, height, original_width, original_height, updated_at
		FROM assets ORDER BY scene_id`)
	if err != nil {
		return nil, fmt.Errorf("assetstore: list: %w", err)
	}
	defer rows.Close()

	var out []StoredAsset
	for rows.Next() {
		var a StoredAsset
		if err := rows.Scan(&a.SceneID, &a.FileName, &a.Payload, &a.Width, &a.Height,
			&a.OriginalWidth, &a.OriginalHeight, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("assetstore: scan: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("assetstore: list rows: %w", err)
	}
	return out, nil
}
