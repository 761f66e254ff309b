package prayers

import (
	"context"
	"fmt"

	"github.com/julianstephens/salahlog/internal/cli"
	"github.com/julianstephens/salahlog/internal/utils"
)

type TodayCmd struct {
	Date string `help:"Show another day instead: YYYY-MM-DD or 'yesterday'." short:"d"`
}

func (c *TodayCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}
	date, err := utils.ResolveDate(c.Date, ctx.Tracker.Now())
	if err != nil {
		return err
	}

	day, err := ctx.Tracker.DailyLog(context.Background(), userID, date)
	if err != nil {
		return fmt.Errorf("failed to load prayers: %w", err)
	}
	fmt.Println(renderDay(day))

	pending, err := ctx.Tracker.Pending(context.Background(), userID)
	if err != nil {
		return err
	}
	if pending > 0 {
		fmt.Println(pendingStyle.Render(fmt.Sprintf("  %d change(s) not yet synced", pending)))
	}
	return nil
}

type HistoryCmd struct {
	Days int `help:"Number of days to show." default:"7"`
}

func (c *HistoryCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}
	if c.Days <= 0 {
		return fmt.Errorf("days must be positive, got %d", c.Days)
	}

	days, err := ctx.Tracker.History(context.Background(), userID, c.Days)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	fmt.Println(historyHeader())
	for _, day := range days {
		fmt.Println(historyRow(day))
	}
	return nil
}
