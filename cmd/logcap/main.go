package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/modoterra/logcap/internal/buildinfo"
	"github.com/modoterra/logcap/pkg/config"
	"github.com/modoterra/logcap/pkg/core"
	"github.com/modoterra/logcap/pkg/daemon/service"
	"github.com/modoterra/logcap/pkg/httpapi"
	tuimodel "github.com/modoterra/logcap/pkg/tui/model"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var addr string

	root := &cobra.Command{
		Use:          "logcap",
		Short:        "Read logs captured by logcapd",
		Long:         "logcap queries a running logcapd over HTTP, prints or browses its records, and manages its config and systemd unit.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&addr, "addr", defaultAddr(), "logcapd address or base URL")

	root.AddCommand(
		newLogsCmd(&addr),
		newViewCmd(&addr),
		newConfigCmd(),
		newServiceCmd(&addr),
		newDaemonCmd(),
		newVersionCmd(),
	)
	return root
}

// defaultAddr follows the daemon's own override so both sides agree.
func defaultAddr() string {
	if v := os.Getenv(config.EnvPrefix + "_HTTP_ADDR"); v != "" {
		return v
	}
	return config.Default().HTTP.Addr
}

// --- Logs ---

func newLogsCmd(addr *string) *cobra.Command {
	var (
		asJSON     bool
		errorsOnly bool
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print captured records, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			records, err := httpapi.NewClient(*addr).ListLogs(ctx)
			if err != nil {
				return err
			}
			records = filterRecords(records, errorsOnly, limit)
			return printRecords(cmd.OutOrStdout(), records, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	cmd.Flags().BoolVar(&errorsOnly, "errors", false, "only records captured from stderr")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n records (0 = all)")
	return cmd
}

func filterRecords(records []core.LogRecord, errorsOnly bool, limit int) []core.LogRecord {
	if errorsOnly {
		filtered := make([]core.LogRecord, 0, len(records))
		for _, r := range records {
			if r.IsError() {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}

func printRecords(w io.Writer, records []core.LogRecord, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "no records")
		return nil
	}
	fmt.Fprintf(w, "%-8s %-24s %s\n", "ID", "TIMESTAMP", "MESSAGE")
	for _, r := range records {
		fmt.Fprintf(w, "%-8d %-24s %s\n", r.ID, r.Timestamp, r.Message)
	}
	return nil
}

// --- View ---

func newViewCmd(addr *string) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Browse captured records in a live terminal viewer",
		RunE: func(_ *cobra.Command, _ []string) error {
			client := httpapi.NewClient(*addr)
			app := tuimodel.New(client, client.BaseURL, interval)
			p := tea.NewProgram(app, tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "refresh interval")
	return cmd
}

// --- Config ---

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage logcap.yaml",
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a logcap.yaml with default settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(output); err == nil {
				return fmt.Errorf("%s already exists", output)
			}
			if err := config.Save(output, config.Default()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %s\n", output)
			return nil
		},
	}
	initCmd.Flags().StringVar(&output, "output", config.FileName, "output file path")

	validateCmd := &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a logcap.yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.FileName
			if len(args) > 0 {
				path = args[0]
			}

			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			errs := config.Validate(cfg)
			if len(errs) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (capture %s, store %s)\n", path, describeCapture(cfg), cfg.Store.Mode)
				return nil
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %d error(s)\n", path, len(errs))
			for _, e := range errs {
				fmt.Fprintf(cmd.ErrOrStderr(), "  • %s\n", e)
			}
			return fmt.Errorf("%s is invalid", path)
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

func describeCapture(cfg *config.Config) string {
	if !cfg.Capture.Enabled {
		return "disabled"
	}
	return cfg.Capture.Kind + "/" + cfg.Capture.Mode
}

// --- Service ---

func newServiceCmd(addr *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage the logcapd systemd user service",
	}

	var configPath string
	installCmd := &cobra.Command{
		Use:   "install",
		Short: "Install and start logcapd as a systemd user service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := service.Install(configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logcapd service installed and started ✓")
			return nil
		},
	}
	installCmd.Flags().StringVar(&configPath, "config", "", "config file passed to logcapd")

	uninstallCmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Stop and remove the logcapd systemd user service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := service.Uninstall(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "logcapd service removed ✓")
			return nil
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and service status",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), service.Status(cmd.Context(), httpapi.NewClient(*addr).BaseURL))
		},
	}

	cmd.AddCommand(installCmd, uninstallCmd, statusCmd)
	return cmd
}

// --- Daemon ---

func newDaemonCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run logcapd in the foreground",
		RunE: func(_ *cobra.Command, _ []string) error {
			var args []string
			if configPath != "" {
				args = append(args, "--config", configPath)
			}
			c := exec.Command("logcapd", args...)
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			return c.Run()
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to logcap.yaml")
	return cmd
}

// --- Version ---

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "logcap %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
		},
	}
}
