package prayers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/julianstephens/salahlog/internal/cli"
	"github.com/julianstephens/salahlog/internal/motivation"
)

var newProvider = motivation.New

type StatsCmd struct {
	JSON         bool `help:"Print statistics as JSON."`
	NoMotivation bool `help:"Skip the motivational message."`
}

func (c *StatsCmd) Run(ctx *cli.Context) error {
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}

	st, err := ctx.Tracker.Stats(context.Background(), userID)
	if err != nil {
		return fmt.Errorf("failed to compute statistics: %w", err)
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	last := st.LastCompletedDate
	if last == "" {
		last = "none yet"
	}
	fmt.Println(headerStyle.Render("Statistics"))
	fmt.Printf("  Streak:              %d day(s)\n", st.Streak)
	fmt.Printf("  Prayers recorded:    %d\n", st.TotalMarked)
	fmt.Printf("  On time:             %d (%.0f%%)\n", st.OnTimeCount, st.OnTimeRatio*100)
	fmt.Printf("  Last complete day:   %s\n", last)

	if c.NoMotivation {
		return nil
	}
	provider := newProvider(ctx.Config.AnthropicKey, ctx.Config.MotivationModel)
	msg, err := provider.Message(context.Background(), st)
	if err != nil {
		return nil
	}
	fmt.Println()
	fmt.Println(quoteStyle.Render("  " + msg.Text))
	return nil
}
