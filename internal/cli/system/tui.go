package system

import (
	"context"

	"github.com/julianstephens/salahlog/internal/backup"
	"github.com/julianstephens/salahlog/internal/cli"
	"github.com/julianstephens/salahlog/internal/logger"
	"github.com/julianstephens/salahlog/internal/motivation"
	"github.com/julianstephens/salahlog/internal/tui"
)

type TuiCmd struct {
	NoSync bool `help:"Do not push marks in the background."`
}

func (c *TuiCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}

	bg := context.Background()
	ctx.PerformAutomaticBackup(bg, backup.ReasonStartup)

	debounce := ctx.Config.Debounce
	if c.NoSync {
		debounce = 0
	} else if err := ctx.Connect(bg); err != nil {
		// Marks stay pending and go out with the next sync
		logger.Warn("Background sync disabled", "error", err)
	}

	return tui.Run(bg, tui.Options{
		Tracker:    ctx.Tracker,
		UserID:     userID,
		Motivation: motivation.New(ctx.Config.AnthropicKey, ctx.Config.MotivationModel),
		Debounce:   debounce,
	})
}
