// Package sqlite stores post meta and block placements in a SQLite database
// through the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aretw0/introspection"
	_ "modernc.org/sqlite"

	"github.com/aretw0/metabind/pkg/core"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS post_meta (
	post_id    TEXT NOT NULL,
	meta_key   TEXT NOT NULL,
	meta_value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (post_id, meta_key)
);

CREATE TABLE IF NOT EXISTS block_instances (
	id         TEXT PRIMARY KEY,
	post_id    TEXT NOT NULL,
	block_type TEXT NOT NULL,
	attributes TEXT NOT NULL DEFAULT '{}',
	position   INTEGER NOT NULL,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_block_instances_post ON block_instances(post_id, position);
`

// Config holds the configuration for the SQLite store.
type Config struct {
	Path     string // database file, or MemoryPath
	ReadOnly bool
	Logger   *slog.Logger
}

// Store implements core.Store on SQLite. Values are stored as JSON so
// booleans and strings keep their type.
type Store struct {
	config Config
	db     *sql.DB
	mu     sync.RWMutex
}

// New creates a store. Call Initialize before use.
func New(config Config) *Store {
	if config.Path == "" {
		config.Path = MemoryPath
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}
	return &Store{config: config}
}

// Initialize opens the database and creates the tables.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	if s.config.Path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(s.config.Path), 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", s.config.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: an in-memory database is per connection, and a single
	// writer avoids SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return fmt.Errorf("failed to configure database: %w", err)
	}
	if !s.config.ReadOnly {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			db.Close()
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	s.db = db
	s.config.Logger.Debug("sqlite store ready", "path", s.config.Path)
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) conn() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("sqlite store is not initialized")
	}
	return s.db, nil
}

func (s *Store) writable() (*sql.DB, error) {
	if s.config.ReadOnly {
		return nil, core.ErrReadOnly
	}
	return s.conn()
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(b), nil
}

func decode(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return v, nil
}

// jsonPath quotes key as a JSON path member so any key is addressable.
func jsonPath(key string) string {
	return `$."` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(key) + `"`
}

// --- core.MetaStore ---

func (s *Store) GetMeta(ctx context.Context, postID, key string) (any, bool, error) {
	db, err := s.conn()
	if err != nil {
		return nil, false, err
	}
	var raw string
	err = db.QueryRowContext(ctx,
		`SELECT meta_value FROM post_meta WHERE post_id = ? AND meta_key = ?`, postID, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := decode(raw)
	return v, err == nil, err
}

func (s *Store) SetMeta(ctx context.Context, postID, key string, value any) error {
	db, err := s.writable()
	if err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO post_meta (post_id, meta_key, meta_value) VALUES (?, ?, ?)
		ON CONFLICT (post_id, meta_key) DO UPDATE SET meta_value = excluded.meta_value, updated_at = CURRENT_TIMESTAMP`,
		postID, key, raw)
	return err
}

func (s *Store) Meta(ctx context.Context, postID string) (core.Metadata, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT meta_key, meta_value FROM post_meta WHERE post_id = ?`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(core.Metadata)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		v, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("meta %s: %w", key, err)
		}
		out[key] = v
	}
	return out, rows.Err()
}

// --- core.AttributeStore ---

func (s *Store) Place(ctx context.Context, inst core.BlockInstance) error {
	if inst.ID == "" || inst.PostID == "" {
		return fmt.Errorf("%w: placement needs an ID and a post ID", core.ErrInvalidScope)
	}
	db, err := s.writable()
	if err != nil {
		return err
	}
	attrs := inst.Attributes
	if attrs == nil {
		attrs = core.Metadata{}
	}
	raw, err := encode(attrs)
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO block_instances (id, post_id, block_type, attributes, position)
		VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM block_instances WHERE post_id = ?))
		ON CONFLICT (id) DO UPDATE SET block_type = excluded.block_type, attributes = excluded.attributes
		WHERE block_instances.post_id = excluded.post_id`,
		inst.ID, inst.PostID, inst.Type, raw, inst.PostID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("instance %s already placed on another post", inst.ID)
	}
	return nil
}

func (s *Store) scanInstance(row interface{ Scan(...any) error }) (core.BlockInstance, error) {
	var inst core.BlockInstance
	var raw string
	if err := row.Scan(&inst.ID, &inst.PostID, &inst.Type, &raw); err != nil {
		return core.BlockInstance{}, err
	}
	inst.Attributes = core.Metadata{}
	if err := json.Unmarshal([]byte(raw), &inst.Attributes); err != nil {
		return core.BlockInstance{}, fmt.Errorf("instance %s: bad attributes: %w", inst.ID, err)
	}
	return inst, nil
}

func (s *Store) Instance(ctx context.Context, id string) (core.BlockInstance, error) {
	db, err := s.conn()
	if err != nil {
		return core.BlockInstance{}, err
	}
	row := db.QueryRowContext(ctx,
		`SELECT id, post_id, block_type, attributes FROM block_instances WHERE id = ?`, id)
	inst, err := s.scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.BlockInstance{}, fmt.Errorf("instance %s: %w", id, core.ErrNotFound)
	}
	return inst, err
}

func (s *Store) Instances(ctx context.Context, postID string) ([]core.BlockInstance, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, post_id, block_type, attributes FROM block_instances WHERE post_id = ? ORDER BY position`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.BlockInstance
	for rows.Next() {
		inst, err := s.scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *Store) Remove(ctx context.Context, id string) error {
	db, err := s.writable()
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx, `DELETE FROM block_instances WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("instance %s: %w", id, core.ErrNotFound)
	}
	return nil
}

func (s *Store) GetAttribute(ctx context.Context, instanceID, key string) (any, bool, error) {
	inst, err := s.Instance(ctx, instanceID)
	if err != nil {
		return nil, false, err
	}
	v, ok := inst.Attributes[key]
	return v, ok, nil
}

// SetAttribute updates one member of the attributes object in a single statement.
func (s *Store) SetAttribute(ctx context.Context, instanceID, key string, value any) error {
	db, err := s.writable()
	if err != nil {
		return err
	}
	raw, err := encode(value)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`UPDATE block_instances SET attributes = json_set(attributes, ?, json(?)) WHERE id = ?`,
		jsonPath(key), raw, instanceID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("instance %s: %w", instanceID, core.ErrNotFound)
	}
	return nil
}

// StoreState exposes internal state for observability.
type StoreState struct {
	Path     string `json:"path"`
	Open     bool   `json:"open"`
	ReadOnly bool   `json:"read_only"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return StoreState{Path: s.config.Path, Open: s.db != nil, ReadOnly: s.config.ReadOnly}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string { return "sqlite-store" }

var (
	_ core.Store                   = (*Store)(nil)
	_ introspection.Introspectable = (*Store)(nil)
	_ introspection.Component      = (*Store)(nil)
)
