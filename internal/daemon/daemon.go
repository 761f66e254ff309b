// Package daemon runs background sync: it hydrates once at start, then
// pushes pending entries on an interval and shortly after the local database
// changes.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/julianstephens/salahlog/internal/constants"
	"github.com/julianstephens/salahlog/internal/logger"
	"github.com/julianstephens/salahlog/internal/syncer"
)

// Engine is the part of the sync engine the daemon drives
type Engine interface {
	Sync(ctx context.Context, userID string) (syncer.Report, error)
	Hydrate(ctx context.Context, userID string) (syncer.Report, error)
	InFlight() bool
}

type Config struct {
	UserID string
	// DBPath is the local database; writes to it (or its WAL) trigger a sync.
	DBPath   string
	Interval time.Duration
	Debounce time.Duration
	// MinGap is the minimum time between two triggered syncs.
	MinGap      time.Duration
	MetricsAddr string
	// LockDir holds the single-instance lockfile. Defaults to the database directory.
	LockDir  string
	Registry *prometheus.Registry
	Logger   *log.Logger
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = constants.DefaultSyncInterval
	}
	if c.Debounce <= 0 {
		c.Debounce = constants.DefaultDebounce
	}
	if c.MinGap <= 0 {
		c.MinGap = c.Debounce
	}
	if c.LockDir == "" {
		c.LockDir = filepath.Dir(c.DBPath)
	}
	if c.Registry == nil {
		c.Registry = prometheus.NewRegistry()
	}
	if c.Logger == nil {
		c.Logger = logger.New("daemon")
	}
}

type Daemon struct {
	engine  Engine
	cfg     Config
	log     *log.Logger
	limiter *rate.Limiter

	mu     sync.Mutex
	health Health

	wg sync.WaitGroup
}

func New(engine Engine, cfg Config) (*Daemon, error) {
	if engine == nil {
		return nil, errors.New("engine cannot be nil")
	}
	if cfg.UserID == "" {
		return nil, errors.New("no signed-in user, run 'salahlog login' first")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("database path cannot be empty")
	}
	cfg.applyDefaults()

	return &Daemon{
		engine:  engine,
		cfg:     cfg,
		log:     cfg.Logger,
		limiter: rate.NewLimiter(rate.Every(cfg.MinGap), 1),
		health:  Health{Status: "starting", User: cfg.UserID},
	}, nil
}

// Health returns the latest daemon state
func (d *Daemon) Health() Health {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.health
	h.InFlight = d.engine.InFlight()
	return h
}

func (d *Daemon) record(report syncer.Report, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.health.Status = "ok"
	d.health.LastRun = time.Now()
	d.health.LastStatus = string(report.Status)
	d.health.LastError = ""
	if err != nil {
		d.health.LastError = err.Error()
	}
}

// Run blocks until ctx is cancelled. Sync failures are logged and retried
// on the next trigger; only setup errors are returned.
func (d *Daemon) Run(ctx context.Context) error {
	lock, err := AcquireLock(d.cfg.LockDir, LockInfo{PID: os.Getpid(), MetricsAddr: d.cfg.MetricsAddr})
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			d.log.Warn("failed to release lockfile", "path", lock.Path(), "error", err)
		}
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	// Watch the directory: SQLite replaces and recreates the WAL file
	if err := watcher.Add(filepath.Dir(d.cfg.DBPath)); err != nil {
		return fmt.Errorf("failed to watch database directory: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		d.wg.Wait()
		d.log.Info("Daemon stopped")
	}()

	var srv *http.Server
	if d.cfg.MetricsAddr != "" {
		srv, err = d.serve(ctx)
		if err != nil {
			return err
		}
	}

	d.log.Info("Starting daemon", "user", d.cfg.UserID, "interval", d.cfg.Interval, "db", d.cfg.DBPath)
	report, err := d.engine.Hydrate(ctx, d.cfg.UserID)
	d.record(report, err)
	if err != nil {
		d.log.Warn("Initial hydrate failed", "error", err)
	} else {
		d.log.Info(report.String())
	}

	debouncer := NewDebouncer(d.cfg.Debounce)
	d.wg.Add(2)
	go func() {
		defer d.wg.Done()
		debouncer.Run(ctx)
	}()
	go func() {
		defer d.wg.Done()
		d.watch(ctx, watcher, debouncer)
	}()

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	// Push anything recorded while the daemon was down
	d.sync(ctx, "startup")
	for {
		select {
		case <-ctx.Done():
			if srv != nil {
				shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				if err := srv.Shutdown(shutdownCtx); err != nil {
					d.log.Warn("metrics server shutdown", "error", err)
				}
				done()
			}
			return nil
		case <-ticker.C:
			d.sync(ctx, "interval")
		case <-debouncer.C:
			d.sync(ctx, "change")
		}
	}
}

func (d *Daemon) sync(ctx context.Context, trigger string) {
	if err := d.limiter.Wait(ctx); err != nil {
		return
	}
	report, err := d.engine.Sync(ctx, d.cfg.UserID)
	d.record(report, err)
	if err != nil {
		d.log.Warn("Sync failed", "trigger", trigger, "error", err)
		return
	}
	d.log.Debug("Sync finished", "trigger", trigger, "report", report.String())
}

// isDBWrite reports whether ev modifies the database or its WAL
func (d *Daemon) isDBWrite(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	name := filepath.Clean(ev.Name)
	db := filepath.Clean(d.cfg.DBPath)
	return name == db || name == db+"-wal"
}

func (d *Daemon) watch(ctx context.Context, watcher *fsnotify.Watcher, debouncer *Debouncer) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}
			if d.isDBWrite(ev) {
				debouncer.Notify()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			d.log.Warn("Watcher error", "error", err)
		}
	}
}

func (d *Daemon) serve(ctx context.Context) (*http.Server, error) {
	ln, err := net.Listen("tcp", d.cfg.MetricsAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", d.cfg.MetricsAddr, err)
	}
	srv := &http.Server{
		Handler:           NewRouter(d.cfg.Registry, d.Health, d.log),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	d.log.Info("Serving metrics", "addr", ln.Addr().String())

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("metrics server stopped", "error", err)
		}
	}()
	return srv, nil
}
