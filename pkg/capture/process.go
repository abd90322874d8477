package capture

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
)

// Process is a log-producing process whose two output streams are captured.
type Process interface {
	// Start launches the process and returns its stdout and stderr streams.
	Start() (stdout, stderr io.ReadCloser, err error)

	// Wait blocks until the process exits. It is called after both streams are drained.
	Wait() error

	// Terminate asks the process to exit.
	Terminate() error

	// Kill forces the process to exit.
	Kill() error

	String() string
}

// Command runs argv as a child process in its own process group.
type Command struct {
	Argv []string
	Dir  string
	Env  []string

	mu  sync.Mutex
	cmd *exec.Cmd
}

// NewCommand creates an exec-backed Process. env entries are KEY=VALUE pairs
// appended to the daemon's own environment.
func NewCommand(argv []string, dir string, env []string) *Command {
	return &Command{Argv: argv, Dir: dir, Env: env}
}

// Start launches the command and returns its stdout and stderr pipes.
func (c *Command) Start() (io.ReadCloser, io.ReadCloser, error) {
	if len(c.Argv) == 0 {
		return nil, nil, fmt.Errorf("empty command")
	}

	cmd := exec.Command(c.Argv[0], c.Argv[1:]...)
	cmd.Dir = c.Dir
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Env = append(os.Environ(), c.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("start %q: %w", c.String(), err)
	}

	c.mu.Lock()
	c.cmd = cmd
	c.mu.Unlock()
	return stdout, stderr, nil
}

// Wait reaps the process. Call it only after both pipes are drained.
func (c *Command) Wait() error {
	cmd := c.started()
	if cmd == nil {
		return fmt.Errorf("process not started")
	}
	return cmd.Wait()
}

// Terminate sends SIGTERM to the whole process group.
func (c *Command) Terminate() error {
	return c.signal(syscall.SIGTERM)
}

// Kill sends SIGKILL to the whole process group.
func (c *Command) Kill() error {
	return c.signal(syscall.SIGKILL)
}

// PID returns the process id, or 0 before Start.
func (c *Command) PID() int {
	cmd := c.started()
	if cmd == nil {
		return 0
	}
	return cmd.Process.Pid
}

// String returns the argv joined with spaces.
func (c *Command) String() string {
	return strings.Join(c.Argv, " ")
}

func (c *Command) started() *exec.Cmd {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cmd == nil || c.cmd.Process == nil {
		return nil
	}
	return c.cmd
}

func (c *Command) signal(sig syscall.Signal) error {
	cmd := c.started()
	if cmd == nil {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, sig); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("signal %s: %w", sig, err)
	}
	return nil
}
