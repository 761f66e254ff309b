package system

import (
	"context"
	"errors"
	"fmt"

	"github.com/julianstephens/salahlog/internal/cli"
	"github.com/julianstephens/salahlog/internal/config"
	"github.com/julianstephens/salahlog/internal/keyring"
	"github.com/julianstephens/salahlog/internal/syncer"
)

// LoginCmd records the signed-in user and pulls their recent history
type LoginCmd struct {
	User      string `arg:"" help:"User id to sign in as."`
	NoHydrate bool   `help:"Do not pull entries from the remote after signing in."`
}

func (c *LoginCmd) Run(ctx *cli.Context) error {
	if err := keyring.SetSessionUser(c.User); err != nil {
		return err
	}
	fmt.Printf("✓ Signed in as %s\n", c.User)
	if ctx.Config.User != "" && ctx.Config.User != c.User {
		fmt.Printf("⚠️  %s is set to %s and takes precedence over this session.\n", config.KeyUser, ctx.Config.User)
	}

	if c.NoHydrate || ctx.Remote == nil {
		return nil
	}
	bg := context.Background()
	if err := ctx.Connect(bg); err != nil {
		return err
	}
	// Signing in must never discard edits made on this device
	report, err := ctx.Tracker.Hydrate(bg, c.User, syncer.HydratePreservePending)
	if err != nil {
		return err
	}
	fmt.Printf("  %s\n", report)
	return nil
}

type LogoutCmd struct{}

func (c *LogoutCmd) Run(ctx *cli.Context) error {
	user, err := keyring.GetSessionUser()
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.New("not signed in")
		}
		return err
	}

	pending, err := ctx.Tracker.Pending(context.Background(), user)
	if err != nil {
		return err
	}
	if err := keyring.DeleteSessionUser(); err != nil {
		return err
	}
	fmt.Printf("✓ Signed out %s\n", user)
	if pending > 0 {
		fmt.Printf("⚠️  %d change(s) were not synced. They stay on this device and sync after the next login.\n", pending)
	}
	return nil
}

type WhoamiCmd struct{}

func (c *WhoamiCmd) Run(ctx *cli.Context) error {
	user, err := ctx.UserID()
	if err != nil {
		return err
	}
	source := "session"
	if ctx.Config.User != "" {
		source = "config"
	}
	fmt.Printf("%s (%s)\n", user, source)
	return nil
}
