package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sddaemon "github.com/coreos/go-systemd/v22/daemon"

	"github.com/modoterra/logcap/internal/buildinfo"
	"github.com/modoterra/logcap/pkg/config"
	"github.com/modoterra/logcap/pkg/daemon"
	"github.com/modoterra/logcap/pkg/logging"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("logcapd %s (%s) built %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.Date)
		return
	}

	configPath := flag.String("config", "", "path to logcap.yaml (default: ./logcap.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logcapd: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)

	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			logger.Error("invalid config", "err", e)
		}
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		sddaemon.SdNotify(false, sddaemon.SdNotifyStopping)
	}()

	d := daemon.New(cfg, logger)
	d.SetOnReady(func() {
		if _, err := sddaemon.SdNotify(false, sddaemon.SdNotifyReady); err != nil {
			logger.Debug("sd_notify", "err", err)
		}
	})

	logger.Info("starting logcapd", "version", buildinfo.Version, "addr", cfg.HTTP.Addr, "store", cfg.Store.Mode)
	if err := d.Run(ctx); err != nil {
		logger.Error("daemon error", "err", err)
		os.Exit(1)
	}
}
