package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration and returns every problem found.
func Validate(c *Config) []error {
	var errs []error

	switch c.Store.Mode {
	case "durable":
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required in durable mode"))
		}
	case "ephemeral":
	default:
		errs = append(errs, fmt.Errorf("store.mode must be durable or ephemeral; got %q", c.Store.Mode))
	}

	if c.HTTP.Addr == "" {
		errs = append(errs, fmt.Errorf("http.addr is required"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug, info, warn or error; got %q", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be text or json; got %q", c.Logging.Format))
	}

	if c.Capture.Enabled {
		errs = append(errs, validateCapture(&c.Capture)...)
	}
	return errs
}

func validateCapture(c *Capture) []error {
	var errs []error

	if c.Mode != ModeFollow && c.Mode != ModeOneShot {
		errs = append(errs, fmt.Errorf("capture.mode must be follow or one-shot; got %q", c.Mode))
	}
	if c.Tail < 0 {
		errs = append(errs, fmt.Errorf("capture.tail must not be negative; got %d", c.Tail))
	}
	if c.QueueSize <= 0 {
		errs = append(errs, fmt.Errorf("capture.queue_size must be positive; got %d", c.QueueSize))
	}
	for _, kv := range c.Env {
		if !strings.Contains(kv, "=") {
			errs = append(errs, fmt.Errorf("capture.env entry %q must be KEY=VALUE", kv))
		}
	}

	switch c.Kind {
	case KindExec:
		if c.Command == "" {
			errs = append(errs, fmt.Errorf("capture (exec): command is required"))
		}
	case KindDocker:
		if c.Container == "" {
			errs = append(errs, fmt.Errorf("capture (docker): container is required"))
		}
	case KindCompose:
		if c.ComposeFile == "" || c.Service == "" {
			errs = append(errs, fmt.Errorf("capture (compose): compose_file and service are required"))
		}
	case KindJournald:
		if c.Unit == "" {
			errs = append(errs, fmt.Errorf("capture (journald): unit is required"))
		}
	case KindFile:
		if c.File == "" {
			errs = append(errs, fmt.Errorf("capture (file): file is required"))
		}
	case "":
		errs = append(errs, fmt.Errorf("capture: kind is required"))
	default:
		errs = append(errs, fmt.Errorf("capture: unknown kind %q", c.Kind))
	}
	return errs
}
