// Package capture binds a process's output streams to a log store.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/modoterra/logcap/pkg/core"
	"github.com/modoterra/logcap/pkg/framer"
)

// State is the lifecycle stage of a Session.
type State string

const (
	StateSpawning  State = "spawning"
	StateStreaming State = "streaming"
	StateClosed    State = "closed"
	StateFailed    State = "failed"
)

const (
	defaultQueueSize   = 1024
	defaultKillTimeout = 10 * time.Second
)

// Recorder persists one message. Session calls it from a single goroutine.
type Recorder interface {
	Insert(ctx context.Context, message string, ts time.Time) (int64, error)
}

// ExitError reports a non-zero exit of the captured process.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("process exited with code %d: %v", e.Code, e.Err)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the operator-channel logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithClock overrides the time source used to stamp lines.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithQueueSize sets the capacity of the queue between the stream readers and the writer.
func WithQueueSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithKillTimeout sets how long Close waits after SIGTERM before SIGKILL.
func WithKillTimeout(d time.Duration) Option {
	return func(s *Session) { s.killTimeout = d }
}

// Session captures one process. Lines from stdout are recorded verbatim and
// lines from stderr with core.ErrorPrefix. A Session runs once.
type Session struct {
	id          string
	proc        Process
	rec         Recorder
	logger      *slog.Logger
	now         func() time.Time
	queueSize   int
	killTimeout time.Duration

	mu          sync.Mutex
	state       State
	closeCalled bool
	stdout      io.ReadCloser
	stderr      io.ReadCloser
	startedAt   time.Time
	lines       atomic.Uint64
	waitErr     error

	stopping atomic.Bool
	done     chan struct{}
}

// New creates a Session in the spawning state.
func New(proc Process, rec Recorder, opts ...Option) *Session {
	s := &Session{
		id:          uuid.NewString(),
		proc:        proc,
		rec:         rec,
		logger:      slog.Default(),
		now:         time.Now,
		queueSize:   defaultQueueSize,
		killTimeout: defaultKillTimeout,
		state:       StateSpawning,
		done:        make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With("session", s.id)
	return s
}

// ID returns the session identifier used in operator logs.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle stage.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Lines returns how many lines have been framed so far.
func (s *Session) Lines() uint64 { return s.lines.Load() }

// StartedAt returns when the process was launched.
func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// Done is closed once the session reaches closed or failed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Start launches the process and begins streaming. It returns once both
// streams are attached; capture continues in the background until the
// process exits, ctx is cancelled or Close is called.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.closeCalled || s.state == StateClosed || s.state == StateFailed:
		s.mu.Unlock()
		return core.ErrSessionClosed
	case s.state != StateSpawning:
		s.mu.Unlock()
		return core.ErrSessionActive
	}

	stdout, stderr, err := s.proc.Start()
	if err != nil {
		s.state = StateFailed
		s.waitErr = fmt.Errorf("%w: %s: %v", core.ErrProcessLaunch, s.proc, err)
		close(s.done)
		s.mu.Unlock()
		s.logger.Error("capture launch failed", "command", s.proc.String(), "err", err)
		return s.waitErr
	}
	s.stdout, s.stderr = stdout, stderr
	s.state = StateStreaming
	s.startedAt = s.now()
	s.mu.Unlock()

	s.logger.Info("capture started", "command", s.proc.String())

	queue := make(chan core.Line, s.queueSize)
	var readers sync.WaitGroup
	readers.Add(2)
	go s.read(core.OriginStdout, stdout, queue, &readers)
	go s.read(core.OriginStderr, stderr, queue, &readers)

	written := make(chan struct{})
	go s.write(context.WithoutCancel(ctx), queue, written)

	go func() {
		readers.Wait()
		err := s.proc.Wait()
		close(queue)
		<-written
		s.finish(err)
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.stop()
		case <-s.done:
		}
	}()

	return nil
}

// Wait blocks until the session is closed. It returns nil when the process
// exited cleanly or was stopped by Close, an *ExitError for a non-zero exit,
// and the launch error if Start failed.
func (s *Session) Wait() error {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waitErr
}

// Close stops the process, releases both streams and stops further writes.
// It blocks until the session is closed. Closing twice returns ErrSessionClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closeCalled {
		s.mu.Unlock()
		return core.ErrSessionClosed
	}
	s.closeCalled = true
	if s.state == StateSpawning {
		s.state = StateClosed
		s.stopping.Store(true)
		close(s.done)
		s.mu.Unlock()
		return nil
	}
	finished := s.state == StateClosed || s.state == StateFailed
	s.mu.Unlock()
	if finished {
		return nil
	}

	s.stop()
	<-s.done
	return nil
}

func (s *Session) stop() {
	if !s.stopping.CompareAndSwap(false, true) {
		return
	}

	if err := s.proc.Terminate(); err != nil {
		s.logger.Warn("terminate capture process", "err", err)
	}

	// Descendants may hold the pipes open after the leader exits.
	s.mu.Lock()
	stdout, stderr := s.stdout, s.stderr
	s.mu.Unlock()
	if stdout != nil {
		stdout.Close()
	}
	if stderr != nil {
		stderr.Close()
	}

	go func() {
		select {
		case <-s.done:
		case <-time.After(s.killTimeout):
			s.logger.Warn("capture process did not exit, killing", "timeout", s.killTimeout)
			if err := s.proc.Kill(); err != nil {
				s.logger.Error("kill capture process", "err", err)
			}
		}
	}()
}

func (s *Session) read(origin core.Origin, r io.ReadCloser, queue chan<- core.Line, wg *sync.WaitGroup) {
	defer wg.Done()
	defer r.Close()

	err := framer.Copy(r, func(text string) {
		s.lines.Add(1)
		queue <- core.Line{Origin: origin, Text: text, Time: s.now()}
	})
	if err == nil || s.stopping.Load() {
		return
	}

	err = fmt.Errorf("%w: %s: %v", core.ErrStreamRead, origin, err)
	s.logger.Warn("capture stream failed", "stream", origin, "err", err)
	queue <- core.Line{Origin: core.OriginStderr, Text: err.Error(), Time: s.now()}
}

func (s *Session) write(ctx context.Context, queue <-chan core.Line, done chan<- struct{}) {
	defer close(done)
	for line := range queue {
		if s.stopping.Load() {
			continue
		}
		if _, err := s.rec.Insert(ctx, line.Message(), line.Time); err != nil {
			s.logger.Error("store log line", "stream", line.Origin, "err", err)
		}
	}
}

func (s *Session) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = StateClosed
	switch {
	case err == nil, s.stopping.Load():
		s.waitErr = nil
	default:
		code := -1
		var ec interface{ ExitCode() int }
		if errors.As(err, &ec) {
			code = ec.ExitCode()
		}
		s.waitErr = &ExitError{Code: code, Err: err}
	}
	s.logger.Info("capture closed", "lines", s.lines.Load(), "err", err)
	close(s.done)
}
