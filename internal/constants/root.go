package constants

import "time"

const (
	AppName            = "salahlog"
	DefaultKeyringUser = "database-connection"
	SessionKeyringUser = "session-user"
	DefaultConfigPath  = "~/.config/salahlog/salahlog.db"
	Version            = "v0.1.0"

	// DateFormat is the standard date format used throughout the application (YYYY-MM-DD)
	DateFormat = "2006-01-02"

	// TimeFormat is the standard time format used throughout the application (HH:MM)
	TimeFormat = "15:04"

	// Environment variables
	EnvDBConnection = "SALAHLOG_DB_CONNECTION"
	EnvUser         = "SALAHLOG_USER"
	EnvOffline      = "SALAHLOG_OFFLINE"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"

	// Backup constants
	MaxBackups       = 14
	BackupDirName    = "backups"
	BackupFilePrefix = "salahlog-"
	BackupFileSuffix = ".db"

	// Sync constants
	DefaultSyncTimeout     = 30 * time.Second
	DefaultHydrateLimit    = 100
	DefaultSyncInterval    = 5 * time.Minute
	DefaultDebounce        = 2 * time.Second
	DefaultProbeTimeout    = 3 * time.Second
	DaemonLockfileName     = "salahlog-daemon.lock"
	RemoteEntriesTable     = "prayer_entries"
	RemoteProfilesTable    = "profiles"
	StreakLookbackDays     = 365
	DefaultHistoryDays     = 7
	DefaultMotivationModel = "claude-3-5-haiku-latest"
)
