package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/julianstephens/salahlog/internal/backup"
	"github.com/julianstephens/salahlog/internal/config"
	"github.com/julianstephens/salahlog/internal/connectivity"
	"github.com/julianstephens/salahlog/internal/logger"
	"github.com/julianstephens/salahlog/internal/remote/postgres"
	"github.com/julianstephens/salahlog/internal/storage/sqlite"
	"github.com/julianstephens/salahlog/internal/syncer"
	"github.com/julianstephens/salahlog/internal/tracker"
)

type Context struct {
	Config  *config.Config
	Store   *sqlite.Store
	Tracker *tracker.Tracker
	// Remote is nil when no backend is configured
	Remote *postgres.Store
	Debug  bool
}

// UserID returns the signed-in user or config.ErrNoUser
func (c *Context) UserID() (string, error) {
	return c.Config.ResolveUser()
}

// Connect attaches a sync engine to the tracker. It is a no-op without a
// configured remote. An unreachable remote is not an error: the engine is
// attached anyway and reports offline until the host answers.
func (c *Context) Connect(ctx context.Context, opts ...syncer.Option) error {
	if c.Remote == nil || c.Tracker.Engine() != nil {
		return nil
	}

	online := c.onlineChecker()
	if !c.Config.Offline && online.Online(ctx) {
		if err := c.Remote.Load(ctx); err != nil {
			return fmt.Errorf("failed to connect to remote: %w", err)
		}
	}

	base := []syncer.Option{
		syncer.WithTimeout(c.Config.SyncTimeout),
		syncer.WithHydrateLimit(c.Config.HydrateLimit),
		syncer.WithLogger(logger.New("sync")),
	}
	c.Tracker.SetEngine(syncer.New(c.Store, c.Remote, online, append(base, opts...)...))
	return nil
}

// onlineChecker probes the remote host and opens the pool the first time it
// answers. The engine calls it under its in-flight flag, so Load never races.
func (c *Context) onlineChecker() connectivity.Checker {
	if c.Config.Offline {
		return connectivity.Static(false)
	}

	var probe connectivity.Checker
	addr, err := c.Remote.Addr()
	if err != nil {
		logger.Debug("remote has no TCP address, skipping probe", "error", err)
		probe = connectivity.Static(true)
	} else {
		probe = connectivity.NewDialProbe(addr)
	}

	return connectivity.Func(func(ctx context.Context) bool {
		if !probe.Online(ctx) {
			return false
		}
		if err := c.Remote.Load(ctx); err != nil {
			logger.Warn("Remote reachable but could not be opened", "error", err)
			return false
		}
		return true
	})
}

// Close releases the local store and the remote pool
func (c *Context) Close() {
	if c.Remote != nil {
		c.Remote.Close()
	}
	if c.Store != nil {
		c.Store.Close()
	}
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup(ctx context.Context, reason string) {
	mgr := backup.NewManager(c.Store.GetConfigPath())
	if _, err := mgr.Create(ctx, reason); err != nil {
		// Log warning but don't interrupt user workflow
		logger.Warn("Automatic backup failed", "reason", reason, "error", err)
	}
}

// Confirm prints prompt and reads a y/N answer from in
func Confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
