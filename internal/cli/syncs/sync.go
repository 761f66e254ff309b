package syncs

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/salahlog/internal/backup"
	"github.com/julianstephens/salahlog/internal/cli"
	"github.com/julianstephens/salahlog/internal/daemon"
	"github.com/julianstephens/salahlog/internal/syncer"
)

func printReport(r syncer.Report) {
	switch r.Status {
	case syncer.StatusSkipped:
		fmt.Printf("⊘ %s\n", r)
	case syncer.StatusFailed:
		fmt.Printf("❌ %s\n", r)
	default:
		fmt.Printf("✓ %s\n", r)
	}
	if r.Status == syncer.StatusPushed && r.Marked < r.Pushed {
		fmt.Printf("ℹ %d entr(ies) changed during the push and will be sent next time\n", r.Pushed-r.Marked)
	}
}

type SyncCmd struct {
	Settings bool `help:"Also push local settings to your profile."`
}

func (c *SyncCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}
	bg := context.Background()
	if err := ctx.Connect(bg); err != nil {
		return err
	}

	report, err := ctx.Tracker.Sync(bg, userID)
	printReport(report)
	if err != nil {
		return err
	}

	if c.Settings {
		report, err := ctx.Tracker.PushSettings(bg, userID)
		printReport(report)
		if err != nil {
			return err
		}
	}
	return nil
}

type HydrateCmd struct {
	PreservePending bool `help:"Keep local changes that have not been pushed instead of overwriting them."`
	Yes             bool `help:"Do not ask before overwriting pending changes." short:"y"`
}

func (c *HydrateCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}
	bg := context.Background()
	if err := ctx.Connect(bg); err != nil {
		return err
	}

	policy := syncer.HydrateOverwrite
	if c.PreservePending {
		policy = syncer.HydratePreservePending
	}

	if policy == syncer.HydrateOverwrite {
		pending, err := ctx.Tracker.Pending(bg, userID)
		if err != nil {
			return err
		}
		if pending > 0 && !c.Yes {
			fmt.Printf("⚠️  %d local change(s) have not been pushed and may be overwritten by the remote copy.\n", pending)
			fmt.Println("   Run 'salahlog sync' first, or use --preserve-pending to keep them.")
			ok, err := cli.Confirm(os.Stdin, os.Stdout, "Continue?")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Hydrate cancelled.")
				return nil
			}
		}
		ctx.PerformAutomaticBackup(bg, backup.ReasonPreHydrate)
	}

	report, err := ctx.Tracker.Hydrate(bg, userID, policy)
	printReport(report)
	return err
}

type StatusCmd struct{}

func (c *StatusCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err == nil {
		fmt.Printf("User:      %s\n", userID)
	} else {
		fmt.Printf("User:      (not signed in)\n")
	}
	fmt.Printf("Database:  %s\n", ctx.Store.GetConfigPath())

	switch {
	case ctx.Remote == nil:
		fmt.Println("Remote:    not configured")
	case ctx.Config.Offline:
		fmt.Println("Remote:    configured (offline mode)")
	default:
		addr, aerr := ctx.Remote.Addr()
		if aerr != nil {
			addr = "local socket"
		}
		fmt.Printf("Remote:    %s\n", addr)
	}

	if err == nil {
		pending, err := ctx.Tracker.Pending(context.Background(), userID)
		if err != nil {
			return fmt.Errorf("failed to count pending entries: %w", err)
		}
		fmt.Printf("Pending:   %d\n", pending)
	}

	info, lerr := daemon.ReadLock(daemon.LockPath(ctx.Store.Dir()))
	switch {
	case lerr == nil && info.MetricsAddr != "":
		fmt.Printf("Daemon:    running (PID %d, metrics on %s)\n", info.PID, info.MetricsAddr)
	case lerr == nil:
		fmt.Printf("Daemon:    running (PID %d)\n", info.PID)
	case errors.Is(lerr, daemon.ErrNotRunning):
		fmt.Println("Daemon:    not running")
	default:
		fmt.Printf("Daemon:    unknown (%v)\n", lerr)
	}
	return nil
}
