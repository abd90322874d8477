package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/modoterra/logcap/pkg/core"
)

const schema = `CREATE TABLE IF NOT EXISTS logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp TEXT,
	message TEXT
)`

// SQLite is a Store backed by github.com/mattn/go-sqlite3.
type SQLite struct {
	db     *sql.DB
	mode   Mode
	path   string
	writeM sync.Mutex
	closed atomic.Bool
}

var _ Store = (*SQLite)(nil)

// Open opens or creates the logs table. Schema creation is idempotent.
func Open(ctx context.Context, opts Options) (*SQLite, error) {
	if opts.Mode == "" {
		opts.Mode = ModeDurable
	}

	var dsn string
	switch opts.Mode {
	case ModeDurable:
		if opts.Path == "" {
			opts.Path = DefaultPath
		}
		if dir := filepath.Dir(opts.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("%w: create directory %s: %v", core.ErrStorageUnavailable, dir, err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", escapePath(opts.Path))
	case ModeEphemeral:
		dsn = ":memory:"
	default:
		return nil, fmt.Errorf("%w: unknown store mode %q", core.ErrStorageUnavailable, opts.Mode)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", core.ErrStorageUnavailable, dsn, err)
	}
	if opts.Mode == ModeEphemeral {
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping: %v", core.ErrStorageUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: create table: %v", core.ErrStorageUnavailable, err)
	}

	return &SQLite{db: db, mode: opts.Mode, path: opts.Path}, nil
}

// escapePath percent-encodes p for a file: URI so '?', '#' and '%' in the
// path are not read as URI syntax.
func escapePath(p string) string {
	return (&url.URL{Path: p}).EscapedPath()
}

// Mode reports whether the store is durable or ephemeral.
func (s *SQLite) Mode() Mode { return s.mode }

// Path returns the database file, empty in ephemeral mode.
func (s *SQLite) Path() string {
	if s.mode == ModeEphemeral {
		return ""
	}
	return s.path
}

// Insert appends a record and returns its id.
func (s *SQLite) Insert(ctx context.Context, message string, ts time.Time) (int64, error) {
	if s.closed.Load() {
		return 0, fmt.Errorf("%w: %w", core.ErrStorageWriteError, core.ErrStoreClosed)
	}

	s.writeM.Lock()
	defer s.writeM.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO logs (timestamp, message) VALUES (?, ?)`,
		core.FormatTimestamp(ts), message)
	if err != nil {
		if s.closed.Load() {
			return 0, fmt.Errorf("%w: %w", core.ErrStorageWriteError, core.ErrStoreClosed)
		}
		return 0, fmt.Errorf("%w: %v", core.ErrStorageWriteError, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: last insert id: %v", core.ErrStorageWriteError, err)
	}
	return id, nil
}

// QueryAll returns every record ordered by id, newest first.
func (s *SQLite) QueryAll(ctx context.Context) ([]core.LogRecord, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("%w: %w", core.ErrStorageReadError, core.ErrStoreClosed)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, timestamp, message FROM logs ORDER BY id DESC`)
	if err != nil {
		if s.closed.Load() {
			return nil, fmt.Errorf("%w: %w", core.ErrStorageReadError, core.ErrStoreClosed)
		}
		return nil, fmt.Errorf("%w: %v", core.ErrStorageReadError, err)
	}
	defer rows.Close()

	records := make([]core.LogRecord, 0)
	for rows.Next() {
		var (
			rec     core.LogRecord
			ts, msg sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &msg); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", core.ErrStorageReadError, err)
		}
		rec.Timestamp = ts.String
		rec.Message = msg.String
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrStorageReadError, err)
	}
	return records, nil
}

// Close releases the database handle. Closing twice returns ErrStoreClosed.
func (s *SQLite) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return core.ErrStoreClosed
	}
	s.writeM.Lock()
	defer s.writeM.Unlock()
	return s.db.Close()
}
