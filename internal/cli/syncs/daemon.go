package syncs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/julianstephens/salahlog/internal/cli"
	"github.com/julianstephens/salahlog/internal/daemon"
	"github.com/julianstephens/salahlog/internal/logger"
	"github.com/julianstephens/salahlog/internal/syncer"
)

type DaemonCmd struct {
	MetricsAddr string        `help:"Serve /metrics and /healthz on this address, e.g. 127.0.0.1:9464."`
	Interval    time.Duration `help:"Time between scheduled syncs. Defaults to sync.interval from the config."`
}

func (c *DaemonCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}
	if ctx.Remote == nil {
		return errors.New("no remote configured, run 'salahlog keyring set' or set SALAHLOG_DB_CONNECTION")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// A restart must not drop edits made while the daemon was down
	if err := ctx.Connect(context.Background(),
		syncer.WithRegisterer(reg),
		syncer.WithHydratePolicy(syncer.HydratePreservePending),
	); err != nil {
		return err
	}

	interval := c.Interval
	if interval <= 0 {
		interval = ctx.Config.SyncInterval
	}
	metricsAddr := c.MetricsAddr
	if metricsAddr == "" {
		metricsAddr = ctx.Config.MetricsAddr
	}

	d, err := daemon.New(ctx.Tracker.Engine(), daemon.Config{
		UserID:      userID,
		DBPath:      ctx.Store.GetConfigPath(),
		Interval:    interval,
		Debounce:    ctx.Config.Debounce,
		MetricsAddr: metricsAddr,
		Registry:    reg,
		Logger:      logger.New("daemon"),
	})
	if err != nil {
		return err
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("salahlog daemon syncing for %s every %s (Ctrl+C to stop)\n", userID, interval)
	if metricsAddr != "" {
		fmt.Printf("  metrics: http://%s/metrics\n", metricsAddr)
	}
	return d.Run(sigCtx)
}
