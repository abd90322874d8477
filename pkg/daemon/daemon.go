// Package daemon wires the store, capture session and HTTP surface of logcapd.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/modoterra/logcap/pkg/capture"
	"github.com/modoterra/logcap/pkg/config"
	"github.com/modoterra/logcap/pkg/core"
	"github.com/modoterra/logcap/pkg/httpapi"
	"github.com/modoterra/logcap/pkg/query"
	"github.com/modoterra/logcap/pkg/store"
	"github.com/modoterra/logcap/pkg/target"
)

// Daemon is the logcapd process: one store, at most one open capture
// session, one HTTP server.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	onReady func()
	// lookupUnit resolves journald units; swapped in tests.
	lookupUnit func(context.Context, string) (target.UnitState, error)

	mu      sync.Mutex
	store   *store.SQLite
	session *capture.Session
	query   *query.Service
}

// New creates a daemon. Nothing is opened until Run.
func New(cfg *config.Config, logger *slog.Logger) *Daemon {
	return &Daemon{cfg: cfg, logger: logger, lookupUnit: target.LookupUnit}
}

// SetOnReady registers fn to run once the store is open, capture has been
// started and the listener is bound.
func (d *Daemon) SetOnReady(fn func()) {
	d.onReady = fn
}

// Run opens the store, starts capture and serves HTTP on the configured
// address until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.cfg.HTTP.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", d.cfg.HTTP.Addr, err)
	}
	return d.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	d.openStore(ctx)
	defer d.closeStore()

	if d.cfg.Capture.Enabled {
		d.startConfiguredCapture(ctx)
	}
	defer d.stopCapture()

	srv := httpapi.New(d.cfg.HTTP.Addr, d.Query(), d.logger)
	if d.onReady != nil {
		d.onReady()
	}
	return srv.Serve(ctx, ln)
}

// Query returns the read side. It is usable once Serve has opened the store.
func (d *Daemon) Query() *query.Service {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.query == nil {
		d.query = query.New(nil)
	}
	return d.query
}

// Session returns the current capture session, or nil.
func (d *Daemon) Session() *capture.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// openStore leaves the store nil on failure; queries then answer 500 and
// capture is skipped, but the daemon keeps serving.
func (d *Daemon) openStore(ctx context.Context) {
	opts := store.Options{Mode: store.Mode(d.cfg.Store.Mode), Path: d.cfg.Store.Path}
	st, err := store.Open(ctx, opts)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.logger.Error("store unavailable", "mode", opts.Mode, "path", opts.Path, "err", err)
		d.query = query.New(nil)
		return
	}
	d.logger.Info("store opened", "mode", st.Mode(), "path", st.Path())
	d.store = st
	d.query = query.New(st)
}

func (d *Daemon) closeStore() {
	d.mu.Lock()
	st := d.store
	d.mu.Unlock()
	if st == nil {
		return
	}
	if err := st.Close(); err != nil {
		d.logger.Warn("close store", "err", err)
	}
}

func (d *Daemon) startConfiguredCapture(ctx context.Context) {
	c := d.cfg.Capture
	spec, err := target.Build(c)
	if err != nil {
		d.logger.Error("capture target", "kind", c.Kind, "err", err)
		return
	}

	if c.Kind == config.KindJournald {
		if u, err := d.lookupUnit(ctx, c.Unit); err != nil {
			d.logger.Debug("systemd lookup skipped", "unit", c.Unit, "err", err)
		} else if !u.Loaded() {
			d.logger.Warn("journald unit not loaded, capture may stay empty", "unit", c.Unit, "load_state", u.LoadState)
		}
	}

	if _, err := d.StartCapture(ctx, spec.Process()); err != nil {
		d.logger.Error("capture not started", "err", err)
	}
}

// StartCapture begins capturing proc into the store. Only one session may be
// open at a time; a second call while one is streaming returns
// core.ErrSessionActive. The launch is not retried.
func (d *Daemon) StartCapture(ctx context.Context, proc capture.Process) (*capture.Session, error) {
	d.mu.Lock()
	if d.store == nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("start capture: %w", core.ErrStorageUnavailable)
	}
	if d.session != nil {
		switch d.session.State() {
		case capture.StateClosed, capture.StateFailed:
		default:
			d.mu.Unlock()
			return nil, core.ErrSessionActive
		}
	}
	s := capture.New(proc, d.store,
		capture.WithLogger(d.logger),
		capture.WithQueueSize(d.cfg.Capture.QueueSize),
	)
	d.session = s
	d.mu.Unlock()

	if err := s.Start(ctx); err != nil {
		return s, err
	}

	go func() {
		if err := s.Wait(); err != nil {
			d.logger.Warn("capture process exited", "session", s.ID(), "err", err)
			return
		}
		d.logger.Info("capture process exited", "session", s.ID(), "lines", s.Lines())
	}()
	return s, nil
}

func (d *Daemon) stopCapture() {
	s := d.Session()
	if s == nil {
		return
	}
	if err := s.Close(); err != nil && !errors.Is(err, core.ErrSessionClosed) {
		d.logger.Warn("close capture", "err", err)
	}
}
