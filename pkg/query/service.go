// Package query serves read access to captured log records.
package query

import (
	"context"
	"fmt"

	"github.com/modoterra/logcap/pkg/core"
	"github.com/modoterra/logcap/pkg/store"
)

// Service lists stored records. It never writes.
type Service struct {
	r store.Reader
}

// New returns a Service over r. r may be nil when the store could not be
// opened; every query then fails with core.ErrStorageUnavailable.
func New(r store.Reader) *Service {
	return &Service{r: r}
}

// ListLogs returns every record, newest first. An empty store yields an
// empty, non-nil slice.
func (s *Service) ListLogs(ctx context.Context) ([]core.LogRecord, error) {
	if s.r == nil {
		return nil, fmt.Errorf("list logs: %w", core.ErrStorageUnavailable)
	}
	records, err := s.r.QueryAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	if records == nil {
		records = []core.LogRecord{}
	}
	return records, nil
}

// Available reports whether a store is attached.
func (s *Service) Available() bool {
	return s.r != nil
}
