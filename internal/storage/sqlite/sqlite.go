// Package sqlite provides a SQLite-backed implementation of the storage.Ledger interface.
//
// The ledger lives in an in-memory SQLite database. Its serialized image is
// the persisted form: it is loaded from a blobstore.Store on startup and
// written back in full after every mutation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/scanbill/internal/blobstore"
	"github.com/mmynk/scanbill/internal/storage"
)

// Ensure SQLiteStore implements storage.Ledger
var _ storage.Ledger = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Ledger using an in-memory SQLite database.
type SQLiteStore struct {
	mu sync.Mutex

	db   *sql.DB
	conn *sql.Conn

	blobs blobstore.Store
	// saved is the image most recently written to blobs.
	saved []byte

	onPersist func(d time.Duration, err error)
}

// Option configures a SQLiteStore.
type Option func(*SQLiteStore)

// WithPersistObserver registers fn to be called after every persist attempt.
func WithPersistObserver(fn func(d time.Duration, err error)) Option {
	return func(s *SQLiteStore) {
		s.onPersist = fn
	}
}

// New loads the ledger from blobs, migrating it to the current schema, or
// creates an empty ledger if none is stored. An unreadable or unmigratable
// ledger is replaced by an empty one. Errors wrap storage.ErrStoreInit.
func New(ctx context.Context, blobs blobstore.Store, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{blobs: blobs}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.open(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrStoreInit, err)
	}
	if err := s.initialize(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrStoreInit, err)
	}
	return s, nil
}

func (s *SQLiteStore) initialize(ctx context.Context) error {
	data, err := s.blobs.Load(ctx, storage.LedgerKey)
	loaded := err == nil
	if err != nil && !errors.Is(err, blobstore.ErrNotExist) {
		return fmt.Errorf("failed to load ledger: %w", err)
	}

	if loaded {
		if err := s.restore(ctx, data); err != nil {
			slog.Error("Discarding unreadable ledger", "bytes", len(data), "error", err)
			if err := s.reopen(ctx); err != nil {
				return err
			}
			loaded = false
		}
	}

	changed, err := s.migrate(ctx)
	if err != nil {
		slog.Error("Ledger migration failed, rebuilding empty schema", "error", err)
		if err := recreate(ctx, s.conn); err != nil {
			return fmt.Errorf("failed to rebuild schema: %w", err)
		}
		changed = true
	}

	if loaded && !changed {
		s.saved = data
		slog.Info("Ledger loaded", "bytes", len(data))
		return nil
	}
	if err := s.persist(ctx); err != nil {
		return err
	}
	slog.Info("Ledger initialized", "loaded", loaded, "migrated", changed, "bytes", len(s.saved))
	return nil
}

// open creates the in-memory database and pins its single connection.
func (s *SQLiteStore) open(ctx context.Context) error {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database exists only as long as its connection.
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	s.db, s.conn = db, conn

	if err := s.enableForeignKeys(ctx); err != nil {
		s.Close()
		return err
	}
	return nil
}

func (s *SQLiteStore) reopen(ctx context.Context) error {
	if err := s.Close(); err != nil {
		slog.Warn("Failed to close discarded ledger", "error", err)
	}
	return s.open(ctx)
}

func (s *SQLiteStore) enableForeignKeys(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return nil
}

// Close closes the database connection. The blob store is left open.
func (s *SQLiteStore) Close() error {
	var errs []error
	if s.conn != nil {
		errs = append(errs, s.conn.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}

// Snapshot returns a copy of the persisted ledger image.
func (s *SQLiteStore) Snapshot(_ context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]byte(nil), s.saved...), nil
}

// mutate runs fn in a transaction, then persists. If persisting fails the
// database is restored to the last saved image. Caller must hold s.mu.
func (s *SQLiteStore) mutate(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if err := s.persist(ctx); err != nil {
		if rerr := s.restore(ctx, s.saved); rerr != nil {
			slog.Error("Failed to roll back unpersisted mutation", "error", rerr)
		}
		return err
	}
	return nil
}

// persist serializes the database and writes it under storage.LedgerKey.
func (s *SQLiteStore) persist(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		if s.onPersist != nil {
			s.onPersist(time.Since(start), err)
		}
	}()

	data, err := s.serialize()
	if err != nil {
		return fmt.Errorf("%w: %v", storage.ErrPersistence, err)
	}
	if err := s.blobs.Save(ctx, storage.LedgerKey, data); err != nil {
		slog.Error("Failed to persist ledger", "bytes", len(data), "error", err)
		return fmt.Errorf("%w: %v", storage.ErrPersistence, err)
	}
	s.saved = data
	slog.Debug("Ledger persisted", "bytes", len(data), "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// restore replaces the database contents with image and checks it is readable.
func (s *SQLiteStore) restore(ctx context.Context, image []byte) error {
	if err := s.deserialize(image); err != nil {
		return err
	}
	if err := s.enableForeignKeys(ctx); err != nil {
		return err
	}
	var n int
	if err := s.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master").Scan(&n); err != nil {
		return fmt.Errorf("failed to read restored ledger: %w", err)
	}
	return nil
}

type serializer interface {
	Serialize() ([]byte, error)
}

type deserializer interface {
	Deserialize(buf []byte) error
}

func (s *SQLiteStore) serialize() ([]byte, error) {
	var data []byte
	err := s.conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(serializer)
		if !ok {
			return fmt.Errorf("sqlite driver does not support serialization")
		}
		var err error
		data, err = c.Serialize()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize ledger: %w", err)
	}
	return data, nil
}

func (s *SQLiteStore) deserialize(image []byte) error {
	if len(image) == 0 {
		return fmt.Errorf("empty ledger image")
	}
	err := s.conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(deserializer)
		if !ok {
			return fmt.Errorf("sqlite driver does not support deserialization")
		}
		return c.Deserialize(image)
	})
	if err != nil {
		return fmt.Errorf("failed to deserialize ledger: %w", err)
	}
	return nil
}
