// Package store persists captured log lines in an embedded SQLite table.
package store

import (
	"context"
	"time"

	"github.com/modoterra/logcap/pkg/core"
)

// Mode selects whether records survive a process restart.
type Mode string

const (
	ModeDurable   Mode = "durable"
	ModeEphemeral Mode = "ephemeral"
)

// DefaultPath is the database file used in durable mode when none is given.
const DefaultPath = "logs.db"

// Options configures Open.
type Options struct {
	Mode Mode
	Path string
}

// Writer appends records. Implementations must serialize concurrent calls.
type Writer interface {
	Insert(ctx context.Context, message string, ts time.Time) (int64, error)
}

// Reader returns every record, newest first.
type Reader interface {
	QueryAll(ctx context.Context) ([]core.LogRecord, error)
}

// Store is the full handle shared by capture (writer) and query (reader).
type Store interface {
	Writer
	Reader
	Close() error
}
