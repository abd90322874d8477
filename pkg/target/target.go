// Package target turns a capture configuration into the command whose
// output logcap records.
package target

import (
	"fmt"
	"strconv"

	"github.com/modoterra/logcap/pkg/capture"
	"github.com/modoterra/logcap/pkg/config"
)

// Spec is a resolved capture command.
type Spec struct {
	Argv []string
	Dir  string
	Env  []string
}

// Process returns the exec-backed process for s.
func (s Spec) Process() *capture.Command {
	return capture.NewCommand(s.Argv, s.Dir, s.Env)
}

// Build resolves c into a command line. Follow mode keeps the command
// attached to the source; one-shot mode dumps what is there and exits.
func Build(c config.Capture) (Spec, error) {
	follow := c.Mode != config.ModeOneShot
	tail := strconv.Itoa(c.Tail)

	switch c.Kind {
	case config.KindExec:
		if c.Command == "" {
			return Spec{}, fmt.Errorf("exec target: command is required")
		}
		return Spec{Argv: []string{"sh", "-c", c.Command}, Dir: c.Dir, Env: c.Env}, nil

	case config.KindDocker:
		if c.Container == "" {
			return Spec{}, fmt.Errorf("docker target: container is required")
		}
		return Spec{Argv: dockerLogs(c.Container, tail, follow)}, nil

	case config.KindCompose:
		cf, err := ParseComposeFile(c.ComposeFile)
		if err != nil {
			return Spec{}, fmt.Errorf("compose target: %w", err)
		}
		project := cf.ProjectName(c.Project, c.ComposeFile)
		container, err := cf.ContainerFor(c.Service, project)
		if err != nil {
			return Spec{}, fmt.Errorf("compose target: %w", err)
		}
		return Spec{Argv: dockerLogs(container, tail, follow)}, nil

	case config.KindJournald:
		if c.Unit == "" {
			return Spec{}, fmt.Errorf("journald target: unit is required")
		}
		argv := []string{"journalctl"}
		if follow {
			argv = append(argv, "-f")
		}
		argv = append(argv, "-u", c.Unit, "-o", "cat", "-n", tail, "--no-pager")
		return Spec{Argv: argv}, nil

	case config.KindFile:
		if c.File == "" {
			return Spec{}, fmt.Errorf("file target: file is required")
		}
		argv := []string{"tail", "-n", tail}
		if follow {
			argv = append(argv, "-F")
		}
		argv = append(argv, c.File)
		return Spec{Argv: argv}, nil

	default:
		return Spec{}, fmt.Errorf("unknown capture kind %q", c.Kind)
	}
}

func dockerLogs(container, tail string, follow bool) []string {
	argv := []string{"docker", "logs"}
	if follow {
		argv = append(argv, "--follow")
	}
	return append(argv, "--tail", tail, container)
}
