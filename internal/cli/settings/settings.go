package settings

import (
	"context"
	"fmt"
	"strings"

	"github.com/julianstephens/salahlog/internal/cli"
	"github.com/julianstephens/salahlog/internal/models"
)

type SettingsCmd struct {
	List bool `help:"List current settings."`
	Push bool `help:"Push settings to your remote profile after saving."`

	TimingMode  *string  `help:"Prayer timing mode: auto or manual."`
	Theme       *string  `help:"UI theme name."`
	Strictness  *string  `help:"How strictly lateness is judged: lenient, standard or strict."`
	Locale      *string  `help:"Language tag, e.g. en."`
	Timezone    *string  `help:"IANA timezone name, or Local."`
	PrayerTimes []string `help:"Manual prayer times as prayer=HH:MM, e.g. fajr=05:10." name:"time" sep:","`
}

func (c *SettingsCmd) Run(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	if c.List {
		printSettings(settings)
		return nil
	}

	updated, err := c.apply(&settings)
	if err != nil {
		return err
	}
	if !updated {
		fmt.Println("No changes specified. Use --list to view settings or flags to update them.")
		return nil
	}

	if err := models.ValidateSettings(settings); err != nil {
		return err
	}
	if err := ctx.Store.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	fmt.Println("Settings updated successfully.")

	if !c.Push {
		return nil
	}
	userID, err := ctx.UserID()
	if err != nil {
		return err
	}
	if err := ctx.Connect(context.Background()); err != nil {
		return err
	}
	report, err := ctx.Tracker.PushSettings(context.Background(), userID)
	if err != nil {
		return err
	}
	fmt.Printf("  %s\n", report)
	return nil
}

func (c *SettingsCmd) apply(settings *models.Settings) (bool, error) {
	updated := false
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
			updated = true
		}
	}
	set(&settings.TimingMode, c.TimingMode)
	set(&settings.Theme, c.Theme)
	set(&settings.Strictness, c.Strictness)
	set(&settings.Locale, c.Locale)
	set(&settings.Timezone, c.Timezone)

	for _, pair := range c.PrayerTimes {
		name, at, ok := strings.Cut(pair, "=")
		if !ok {
			return false, fmt.Errorf("invalid prayer time %q (expected prayer=HH:MM)", pair)
		}
		prayer, err := models.ParsePrayer(name)
		if err != nil {
			return false, err
		}
		if settings.PrayerTimes == nil {
			settings.PrayerTimes = make(map[models.Prayer]string)
		}
		settings.PrayerTimes[prayer] = strings.TrimSpace(at)
		updated = true
	}
	return updated, nil
}

func printSettings(settings models.Settings) {
	fmt.Println("Current Settings:")
	fmt.Printf("  Timing Mode:  %s\n", settings.TimingMode)
	fmt.Printf("  Strictness:   %s\n", settings.Strictness)
	fmt.Printf("  Theme:        %s\n", settings.Theme)
	fmt.Printf("  Locale:       %s\n", settings.Locale)
	fmt.Printf("  Timezone:     %s\n", settings.Timezone)
	if len(settings.PrayerTimes) == 0 {
		return
	}
	fmt.Println("\nPrayer Times:")
	for _, p := range models.Prayers {
		if at, ok := settings.PrayerTimes[p]; ok {
			fmt.Printf("  %-8s %s\n", p.Title(), at)
		}
	}
}
