package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/salahlog/internal/cli"
	"github.com/julianstephens/salahlog/internal/cli/backups"
	"github.com/julianstephens/salahlog/internal/cli/prayers"
	"github.com/julianstephens/salahlog/internal/cli/settings"
	"github.com/julianstephens/salahlog/internal/cli/syncs"
	"github.com/julianstephens/salahlog/internal/cli/system"
	"github.com/julianstephens/salahlog/internal/config"
	"github.com/julianstephens/salahlog/internal/constants"
	"github.com/julianstephens/salahlog/internal/errors"
	"github.com/julianstephens/salahlog/internal/logger"
	"github.com/julianstephens/salahlog/internal/remote/postgres"
	"github.com/julianstephens/salahlog/internal/storage/sqlite"
	"github.com/julianstephens/salahlog/internal/tracker"
)

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Config file (yaml, toml or json). Defaults to ~/.config/salahlog/config.*." type:"path"`
	Database string `help:"Local SQLite database path. Overrides the config file." type:"path"`
	Offline  bool   `help:"Never contact the remote." env:"SALAHLOG_OFFLINE"`
	Debug    bool   `help:"Log debug output to stderr."`

	Init     system.InitCmd       `cmd:"" help:"Initialize salahlog storage."`
	Login    system.LoginCmd      `cmd:"" help:"Sign in as a user and pull their history."`
	Logout   system.LogoutCmd     `cmd:"" help:"Forget the signed-in user."`
	Whoami   system.WhoamiCmd     `cmd:"" help:"Show the signed-in user."`
	Mark     prayers.MarkCmd      `cmd:"" help:"Mark a prayer as on time, late or missed."`
	Today    prayers.TodayCmd     `cmd:"" help:"Show the prayers of a day."`
	History  prayers.HistoryCmd   `cmd:"" help:"Show recent days."`
	Stats    prayers.StatsCmd     `cmd:"" help:"Show streak and on-time statistics."`
	Sync     syncs.SyncCmd        `cmd:"" help:"Push pending entries to the remote."`
	Hydrate  syncs.HydrateCmd     `cmd:"" help:"Pull entries from the remote into the local database."`
	Status   syncs.StatusCmd      `cmd:"" help:"Show sync status."`
	Daemon   syncs.DaemonCmd      `cmd:"" help:"Run the background sync daemon."`
	Settings settings.SettingsCmd `cmd:"" help:"Manage application settings."`
	Keyring  struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store the PostgreSQL connection string in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove the stored connection string."`
		Status system.KeyringStatusCmd `cmd:"" help:"Check whether the OS keyring is available." default:"1"`
	} `cmd:"" help:"Manage the remote connection string in the OS keyring."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Tui     system.TuiCmd     `cmd:"" help:"Launch the interactive TUI." default:"1"`
}

// Commands that open (or create) the database themselves, or never touch it
var skipLoad = []string{"init", "doctor", "keyring", "whoami"}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Local-first prayer tracker with PostgreSQL sync"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)
	command := kctx.Command()

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	if CLI.Database != "" {
		cfg.Database = CLI.Database
	}
	if CLI.Offline {
		cfg.Offline = true
	}

	configDir, err := config.DefaultDir()
	if err != nil {
		errors.Fatal(err)
	}
	if err := logger.Init(logger.Config{
		Debug:     CLI.Debug,
		ConfigDir: configDir,
		Stderr:    command == "daemon",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logger: %v\n", err)
	}

	appCtx := &cli.Context{
		Config: cfg,
		Store:  sqlite.NewStore(cfg.Database),
		Debug:  CLI.Debug,
	}
	appCtx.Tracker = tracker.New(appCtx.Store, nil)
	defer appCtx.Close()

	connStr, err := cfg.ResolveRemote()
	if err != nil {
		logger.Warn("Could not read the remote connection string", "error", err)
	} else if connStr != "" {
		if ok, err := postgres.ValidateConnString(connStr); !ok {
			// Still let the user replace a bad stored value
			if !strings.HasPrefix(command, "keyring") {
				fail(appCtx, err)
			}
			logger.Warn("Ignoring invalid remote connection string", "error", err)
		} else {
			appCtx.Remote = postgres.New(connStr)
		}
	}

	if needsLoad(command) {
		if err := appCtx.Store.Load(); err != nil {
			fail(appCtx, err)
		}
	}

	logger.Debug("Running command", "command", command, "database", cfg.Database)
	if err := kctx.Run(appCtx); err != nil {
		fail(appCtx, err)
	}
}

func needsLoad(command string) bool {
	for _, name := range skipLoad {
		if command == name || strings.HasPrefix(command, name+" ") {
			return false
		}
	}
	return true
}

// fail closes the stores before exiting, since os.Exit skips deferred calls
func fail(appCtx *cli.Context, err error) {
	appCtx.Close()
	errors.Fatal(err)
}
