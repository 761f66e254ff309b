package prayers

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/julianstephens/salahlog/internal/cli"
	"github.com/julianstephens/salahlog/internal/daemon"
	"github.com/julianstephens/salahlog/internal/models"
	"github.com/julianstephens/salahlog/internal/tracker"
	"github.com/julianstephens/salahlog/internal/utils"
)

var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

type MarkCmd struct {
	Prayer string `arg:"" optional:"" help:"Prayer to mark (fajr, dhuhr, asr, maghrib, isha)."`
	Status string `arg:"" optional:"" help:"Outcome: on_time, late, missed or not_marked."`
	Mode   string `help:"How an on-time prayer was performed: congregation or individual." short:"m"`
	Date   string `help:"Date to mark: YYYY-MM-DD, 'yesterday', 'last friday'. Defaults to today." short:"d"`
}

func (c *MarkCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}

	if c.Prayer == "" || c.Status == "" {
		if !isInteractive() {
			return errors.New("prayer and status are required when not running in a terminal")
		}
		if err := c.prompt(ctx, userID); err != nil {
			return err
		}
	}

	prayer, err := models.ParsePrayer(c.Prayer)
	if err != nil {
		return err
	}
	status, err := models.ParseStatus(c.Status)
	if err != nil {
		return err
	}
	mode, err := models.ParseMode(c.Mode)
	if err != nil {
		return err
	}
	date, err := utils.ResolveDate(c.Date, ctx.Tracker.Now())
	if err != nil {
		return err
	}

	entry, err := ctx.Tracker.Mark(context.Background(), tracker.MarkRequest{
		UserID: userID,
		Date:   date,
		Prayer: prayer,
		Status: status,
		Mode:   mode,
	})
	if err != nil {
		return fmt.Errorf("failed to mark prayer: %w", err)
	}

	fmt.Printf("✓ %s on %s marked %s\n", entry.Prayer.Title(), entry.Date, statusLabel(entry.Status))
	if _, err := daemon.ReadLock(daemon.LockPath(ctx.Store.Dir())); err != nil {
		fmt.Println("  Run 'salahlog sync' to push it, or start 'salahlog daemon' to sync automatically.")
	}
	return nil
}

// prompt fills in missing arguments with an interactive form. The prayer
// defaults to the first one not yet marked on the target date.
func (c *MarkCmd) prompt(ctx *cli.Context, userID string) error {
	if c.Prayer == "" {
		date, err := utils.ResolveDate(c.Date, ctx.Tracker.Now())
		if err != nil {
			return err
		}
		if day, err := ctx.Tracker.DailyLog(context.Background(), userID, date); err == nil {
			for _, p := range models.Prayers {
				if !day.Status(p).Marked() {
					c.Prayer = string(p)
					break
				}
			}
		}
	}

	prayerOptions := make([]huh.Option[string], 0, len(models.Prayers))
	for _, p := range models.Prayers {
		prayerOptions = append(prayerOptions, huh.NewOption(p.Title(), string(p)))
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Prayer").
				Options(prayerOptions...).
				Value(&c.Prayer),
			huh.NewSelect[string]().
				Title("Status").
				Options(
					huh.NewOption("On time", string(models.StatusOnTime)),
					huh.NewOption("Late", string(models.StatusLate)),
					huh.NewOption("Missed", string(models.StatusMissed)),
					huh.NewOption("Clear", string(models.StatusNotMarked)),
				).
				Value(&c.Status),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Mode").
				Options(
					huh.NewOption("Not recorded", string(models.ModeNone)),
					huh.NewOption("Congregation", string(models.ModeCongregation)),
					huh.NewOption("Individual", string(models.ModeIndividual)),
				).
				Value(&c.Mode),
		).WithHideFunc(func() bool { return c.Status != string(models.StatusOnTime) }),
	)
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return errors.New("cancelled")
		}
		return err
	}
	if c.Status != string(models.StatusOnTime) {
		c.Mode = ""
	}
	return nil
}
