package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/custodia-labs/qagent/internal/core/ports/driven"
	"github.com/custodia-labs/qagent/internal/logger"
)

// DefaultCollection is used when no collection name is given.
const DefaultCollection = "default"

const dbFile = "index.db"

var log = logger.For("sqlite")

var _ driven.CollectionStore = (*Store)(nil)

// Store owns the database handle shared by every collection.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) dataDir/index.db and brings its
// schema up to date. An empty dataDir means ~/.qagent/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".qagent", "data")
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	path := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	applied, err := migrate(context.Background(), db)
	if err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	if applied > 0 {
		log.Debug("Applied %d migrations to %s", applied, path)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ChunkIndex returns the index for a collection. Nothing is written until
// the first Replace.
func (s *Store) ChunkIndex(collection string) *ChunkIndex {
	if collection == "" {
		collection = DefaultCollection
	}
	return &ChunkIndex{db: s.db, collection: collection}
}

// Collections lists every collection that has been built, sorted by name.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM collections ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteCollection drops a collection and its chunks. Deleting an unknown
// collection is not an error.
func (s *Store) DeleteCollection(ctx context.Context, collection string) error {
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE collection = ?`, collection); err != nil {
			return fmt.Errorf("delete chunks of %s: %w", collection, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, collection); err != nil {
			return fmt.Errorf("delete collection %s: %w", collection, err)
		}
		return nil
	})
}

// inTx runs fn in a transaction, committing only if fn succeeds.
func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
