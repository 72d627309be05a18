package jobstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore keeps objects in a database table. It works with the "sqlite"
// (modernc.org/sqlite) and "postgres" (lib/pq) drivers; the caller
// registers the driver with a blank import.
type SQLStore struct {
	db   *sqlx.DB
	opts *options
}

var _ Store = (*SQLStore)(nil)

// objectRow mirrors the objects table. Times are stored as Unix nanoseconds
// so both drivers compare them the same way.
type objectRow struct {
	ID        string `db:"id"`
	Kind      Kind   `db:"kind"`
	Filename  string `db:"filename"`
	Size      int64  `db:"size"`
	CreatedAt int64  `db:"created_at"`
	ExpiresAt int64  `db:"expires_at"`
}

func (r objectRow) object() Object {
	return Object{
		ID:        r.ID,
		Kind:      r.Kind,
		Filename:  r.Filename,
		Size:      r.Size,
		CreatedAt: time.Unix(0, r.CreatedAt),
		ExpiresAt: time.Unix(0, r.ExpiresAt),
	}
}

// OpenSQL connects to the database and creates the objects table.
func OpenSQL(ctx context.Context, driver, dsn string, opts ...Option) (*SQLStore, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	s := NewSQLStore(db, opts...)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database. Call Migrate before first use.
func NewSQLStore(db *sqlx.DB, opts ...Option) *SQLStore {
	return &SQLStore{db: db, opts: buildOptions(opts)}
}

// Migrate creates the objects table if it does not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	blob := "BLOB"
	if s.db.DriverName() == "postgres" {
		blob = "BYTEA"
	}
	schema := `CREATE TABLE IF NOT EXISTS xlaction_objects (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		filename TEXT NOT NULL,
		size BIGINT NOT NULL,
		data ` + blob + ` NOT NULL,
		created_at BIGINT NOT NULL,
		expires_at BIGINT NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create objects table: %w", err)
	}
	index := `CREATE INDEX IF NOT EXISTS xlaction_objects_expires ON xlaction_objects (expires_at)`
	if _, err := s.db.ExecContext(ctx, index); err != nil {
		return fmt.Errorf("failed to create objects index: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Put(ctx context.Context, kind Kind, filename string, r io.Reader) (Object, error) {
	if err := validKind(kind); err != nil {
		return Object{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, fmt.Errorf("read object: %w", err)
	}
	created := s.opts.now()
	row := objectRow{
		ID:        newID(),
		Kind:      kind,
		Filename:  cleanFilename(filename),
		Size:      int64(len(data)),
		CreatedAt: created.UnixNano(),
		ExpiresAt: created.Add(s.opts.retention.For(kind)).UnixNano(),
	}
	query := s.db.Rebind(`INSERT INTO xlaction_objects
		(id, kind, filename, size, data, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		row.ID, row.Kind, row.Filename, row.Size, data, row.CreatedAt, row.ExpiresAt)
	if err != nil {
		return Object{}, fmt.Errorf("failed to store object: %w", err)
	}
	return row.object(), nil
}

func (s *SQLStore) Stat(ctx context.Context, kind Kind, id string) (Object, error) {
	if validKind(kind) != nil || !validID(id) {
		return Object{}, ErrNotFound
	}
	var row objectRow
	query := s.db.Rebind(`SELECT id, kind, filename, size, created_at, expires_at
		FROM xlaction_objects WHERE id = ? AND kind = ?`)
	if err := s.db.GetContext(ctx, &row, query, id, kind); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Object{}, ErrNotFound
		}
		return Object{}, fmt.Errorf("failed to get object: %w", err)
	}
	return row.object(), nil
}

func (s *SQLStore) Open(ctx context.Context, kind Kind, id string) (io.ReadCloser, Object, error) {
	obj, err := s.Stat(ctx, kind, id)
	if err != nil {
		return nil, Object{}, err
	}
	var data []byte
	query := s.db.Rebind(`SELECT data FROM xlaction_objects WHERE id = ?`)
	if err := s.db.GetContext(ctx, &data, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, fmt.Errorf("failed to read object: %w", err)
	}
	return io.NopCloser(bytes.NewReader(data)), obj, nil
}

func (s *SQLStore) Sweep(ctx context.Context, now time.Time) (int, error) {
	query := s.db.Rebind(`DELETE FROM xlaction_objects WHERE expires_at < ?`)
	res, err := s.db.ExecContext(ctx, query, now.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired objects: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted objects: %w", err)
	}
	return int(n), nil
}
