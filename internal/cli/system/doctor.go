package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/salahlog/internal/backup"
	"github.com/julianstephens/salahlog/internal/cli"
	"github.com/julianstephens/salahlog/internal/constants"
	"github.com/julianstephens/salahlog/internal/keyring"
	"github.com/julianstephens/salahlog/internal/models"
	"github.com/julianstephens/salahlog/internal/utils"
)

// errSkipped marks a check that does not apply to the current setup
var errSkipped = errors.New("skipped")

type check struct {
	name string
	run  func(*cli.Context) error
	// needsDB checks are skipped when the database is unreachable
	needsDB bool
	// warnOnly failures do not fail the command
	warnOnly bool
}

var checks = []check{
	{name: "Schema version", run: checkSchemaVersion, needsDB: true},
	{name: "Migrations complete", run: checkMigrationsComplete, needsDB: true},
	{name: "Settings", run: checkSettings, needsDB: true},
	{name: "Prayer entries", run: checkEntries, needsDB: true},
	{name: "Date formats", run: checkDateFormats, needsDB: true},
	{name: "Backups present", run: checkBackupsPresent, warnOnly: true},
	{name: "Clock/timezone", run: checkClockTimezone, needsDB: true},
	{name: "OS keyring", run: checkKeyring, warnOnly: true},
	{name: "Remote reachable", run: checkRemote},
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	hasError := false
	dbErr := checkDBReachable(ctx)
	report("Database reachable", dbErr, false, &hasError)

	for _, c := range checks {
		if c.needsDB && dbErr != nil {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		report(c.name, c.run(ctx), c.warnOnly, &hasError)
	}

	fmt.Println()
	if hasError {
		fmt.Println("Diagnostics completed with errors.")
		return errors.New("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

func report(name string, err error, warnOnly bool, hasError *bool) {
	switch {
	case err == nil:
		fmt.Printf("✓ %s: OK\n", name)
	case errors.Is(err, errSkipped):
		fmt.Printf("⊘ %s: SKIPPED (%v)\n", name, err)
	case warnOnly:
		fmt.Printf("⚠ %s: WARNING\n", name)
		fmt.Printf("   %v\n", err)
	default:
		fmt.Printf("❌ %s: FAIL\n", name)
		fmt.Printf("   Error: %v\n", err)
		*hasError = true
	}
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	db := ctx.Store.GetDB()
	if db == nil {
		return errors.New("database connection is nil")
	}
	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("failed to query database: %w", err)
	}
	return nil
}

func checkSchemaVersion(ctx *cli.Context) error {
	current, latest, err := ctx.Store.SchemaVersion()
	if err != nil {
		return err
	}
	if current > latest {
		return fmt.Errorf("database schema version (%d) is newer than supported version (%d)", current, latest)
	}
	return nil
}

func checkMigrationsComplete(ctx *cli.Context) error {
	current, latest, err := ctx.Store.SchemaVersion()
	if err != nil {
		return err
	}
	if current < latest {
		return fmt.Errorf("migrations incomplete: current version %d, latest version %d (run 'salahlog migrate')", current, latest)
	}
	return nil
}

func checkSettings(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	return models.ValidateSettings(settings)
}

func checkEntries(ctx *cli.Context) error {
	entries, err := ctx.Store.GetAllLogs(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read entries: %w", err)
	}
	invalid := 0
	var first error
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			invalid++
			if first == nil {
				first = fmt.Errorf("entry %s: %w", e.ID, err)
			}
		}
	}
	if invalid > 0 {
		return fmt.Errorf("%d invalid entries, first: %w", invalid, first)
	}
	return nil
}

func checkDateFormats(ctx *cli.Context) error {
	var invalid int
	err := ctx.Store.GetDB().QueryRow(`
		SELECT COUNT(*)
		FROM prayer_entries
		WHERE date NOT GLOB '[0-9][0-9][0-9][0-9]-[0-9][0-9]-[0-9][0-9]'
	`).Scan(&invalid)
	if err != nil {
		return fmt.Errorf("failed to check entry dates: %w", err)
	}
	if invalid > 0 {
		return fmt.Errorf("found %d entries with a malformed date (expected YYYY-MM-DD)", invalid)
	}
	return nil
}

func checkBackupsPresent(ctx *cli.Context) error {
	backups, err := backup.NewManager(ctx.Store.GetConfigPath()).List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}
	if len(backups) == 0 {
		return errors.New("no backups found - consider creating one with 'salahlog backup create'")
	}
	return nil
}

func checkClockTimezone(ctx *cli.Context) error {
	now := time.Now()
	if now.Year() < 2020 || now.Year() > 2100 {
		return fmt.Errorf("system time appears incorrect: %s", now.Format(time.RFC3339))
	}
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return err
	}
	if _, err := utils.LoadLocation(settings.Timezone); err != nil {
		return fmt.Errorf("invalid %s setting %q: %w", constants.SettingTimezone, settings.Timezone, err)
	}
	return nil
}

func checkKeyring(*cli.Context) error {
	if !keyring.IsAvailable() {
		return errors.New("OS keyring is not available, set SALAHLOG_DB_CONNECTION and SALAHLOG_USER instead")
	}
	return nil
}

func checkRemote(ctx *cli.Context) error {
	switch {
	case ctx.Remote == nil:
		return fmt.Errorf("%w: no remote configured", errSkipped)
	case ctx.Config.Offline:
		return fmt.Errorf("%w: offline mode", errSkipped)
	}
	c, cancel := context.WithTimeout(context.Background(), constants.DefaultSyncTimeout)
	defer cancel()
	if err := ctx.Remote.Load(c); err != nil {
		return err
	}
	return ctx.Remote.Ping(c)
}
