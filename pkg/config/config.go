// Package config loads logcap settings from defaults, an optional YAML file
// and LOGCAP_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the working directory when no
// explicit path is given.
const FileName = "logcap.yaml"

// EnvPrefix prefixes every environment override, e.g. LOGCAP_HTTP_ADDR.
const EnvPrefix = "LOGCAP"

// DefaultCommand is a smoke-test command that proves the capture path end to end.
const DefaultCommand = "echo 'logcap capture test'"

// Capture kinds.
const (
	KindExec     = "exec"
	KindDocker   = "docker"
	KindCompose  = "compose"
	KindJournald = "journald"
	KindFile     = "file"
)

// Capture modes.
const (
	ModeFollow  = "follow"
	ModeOneShot = "one-shot"
)

type Config struct {
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Capture Capture       `mapstructure:"capture" yaml:"capture"`
	HTTP    HTTPConfig    `mapstructure:"http" yaml:"http"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type StoreConfig struct {
	// Mode is durable (file-backed) or ephemeral (in-memory).
	Mode string `mapstructure:"mode" yaml:"mode"`
	Path string `mapstructure:"path" yaml:"path"`
}

// Capture describes the process whose output is recorded.
type Capture struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Kind    string `mapstructure:"kind" yaml:"kind"`
	Mode    string `mapstructure:"mode" yaml:"mode"`

	// exec
	Command string   `mapstructure:"command" yaml:"command,omitempty"`
	Dir     string   `mapstructure:"dir" yaml:"dir,omitempty"`
	Env     []string `mapstructure:"env" yaml:"env,omitempty"`

	// docker / compose
	Container   string `mapstructure:"container" yaml:"container,omitempty"`
	ComposeFile string `mapstructure:"compose_file" yaml:"compose_file,omitempty"`
	Service     string `mapstructure:"service" yaml:"service,omitempty"`
	Project     string `mapstructure:"project" yaml:"project,omitempty"`

	// journald
	Unit string `mapstructure:"unit" yaml:"unit,omitempty"`

	// file
	File string `mapstructure:"file" yaml:"file,omitempty"`

	// Tail is how many lines of history docker, journald and file targets replay.
	Tail      int `mapstructure:"tail" yaml:"tail"`
	QueueSize int `mapstructure:"queue_size" yaml:"queue_size"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Mode: "durable",
			Path: "logs.db",
		},
		Capture: Capture{
			Enabled:   true,
			Kind:      KindExec,
			Mode:      ModeFollow,
			Command:   DefaultCommand,
			Tail:      50,
			QueueSize: 1024,
		},
		HTTP: HTTPConfig{
			Addr: ":3333",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("store.mode", d.Store.Mode)
	v.SetDefault("store.path", d.Store.Path)

	v.SetDefault("capture.enabled", d.Capture.Enabled)
	v.SetDefault("capture.kind", d.Capture.Kind)
	v.SetDefault("capture.mode", d.Capture.Mode)
	v.SetDefault("capture.command", d.Capture.Command)
	v.SetDefault("capture.dir", d.Capture.Dir)
	v.SetDefault("capture.env", []string{})
	v.SetDefault("capture.container", d.Capture.Container)
	v.SetDefault("capture.compose_file", d.Capture.ComposeFile)
	v.SetDefault("capture.service", d.Capture.Service)
	v.SetDefault("capture.project", d.Capture.Project)
	v.SetDefault("capture.unit", d.Capture.Unit)
	v.SetDefault("capture.file", d.Capture.File)
	v.SetDefault("capture.tail", d.Capture.Tail)
	v.SetDefault("capture.queue_size", d.Capture.QueueSize)

	v.SetDefault("http.addr", d.HTTP.Addr)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Load reads the configuration. An empty path looks for logcap.yaml in the
// working directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// Save writes cfg as YAML, creating parent directories as needed.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
