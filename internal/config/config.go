// Package config layers the config file, .env and SALAHLOG_* environment
// variables into one Config. Command-line flags are applied on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/julianstephens/salahlog/internal/constants"
	"github.com/julianstephens/salahlog/internal/keyring"
	"github.com/julianstephens/salahlog/internal/utils"
)

// Config keys
const (
	KeyDatabase        = "database"
	KeyDBConnection    = "db_connection"
	KeyUser            = "user"
	KeyOffline         = "offline"
	KeySyncInterval    = "sync.interval"
	KeySyncTimeout     = "sync.timeout"
	KeyHydrateLimit    = "sync.hydrate_limit"
	KeyDebounce        = "sync.debounce"
	KeyMetricsAddr     = "daemon.metrics_addr"
	KeyMotivationModel = "motivation.model"
	KeyAnthropicKey    = "anthropic_key"
)

var ErrNoUser = errors.New("no signed-in user, run 'salahlog login <user>' or set " + constants.EnvUser)

type Config struct {
	// Database is the local SQLite file
	Database string
	// Remote is the PostgreSQL connection string; empty means local only
	Remote string
	User   string
	// Offline disables every remote call
	Offline bool

	SyncInterval time.Duration
	SyncTimeout  time.Duration
	HydrateLimit int
	Debounce     time.Duration
	MetricsAddr  string

	MotivationModel string
	AnthropicKey    string

	// File is the config file that was read, if any
	File string
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDatabase, constants.DefaultConfigPath)
	v.SetDefault(KeyOffline, false)
	v.SetDefault(KeySyncInterval, constants.DefaultSyncInterval)
	v.SetDefault(KeySyncTimeout, constants.DefaultSyncTimeout)
	v.SetDefault(KeyHydrateLimit, constants.DefaultHydrateLimit)
	v.SetDefault(KeyDebounce, constants.DefaultDebounce)
	v.SetDefault(KeyMotivationModel, constants.DefaultMotivationModel)

	v.SetEnvPrefix(strings.ToUpper(constants.AppName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Unprefixed, shared with other tools
	_ = v.BindEnv(KeyAnthropicKey, constants.EnvAnthropicKey)
	return v
}

// DefaultDir returns ~/.config/salahlog
func DefaultDir() (string, error) {
	path, err := utils.ExpandPath(constants.DefaultConfigPath)
	if err != nil {
		return "", err
	}
	return filepath.Dir(path), nil
}

// Load reads .env from the working directory (if present), then the config
// file at path, or config.{yaml,toml,json} in the default directory when path
// is empty. A missing config file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	if path != "" {
		expanded, err := utils.ExpandPath(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expanded)
	} else {
		dir, err := DefaultDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	db, err := utils.ExpandPath(v.GetString(KeyDatabase))
	if err != nil {
		return nil, fmt.Errorf("failed to expand database path: %w", err)
	}

	cfg := &Config{
		Database:        db,
		Remote:          v.GetString(KeyDBConnection),
		User:            v.GetString(KeyUser),
		Offline:         v.GetBool(KeyOffline),
		SyncInterval:    v.GetDuration(KeySyncInterval),
		SyncTimeout:     v.GetDuration(KeySyncTimeout),
		HydrateLimit:    v.GetInt(KeyHydrateLimit),
		Debounce:        v.GetDuration(KeyDebounce),
		MetricsAddr:     v.GetString(KeyMetricsAddr),
		MotivationModel: v.GetString(KeyMotivationModel),
		AnthropicKey:    v.GetString(KeyAnthropicKey),
		File:            v.ConfigFileUsed(),
	}
	if cfg.HydrateLimit <= 0 {
		return nil, fmt.Errorf("%s must be positive, got %d", KeyHydrateLimit, cfg.HydrateLimit)
	}
	if cfg.SyncInterval <= 0 || cfg.SyncTimeout <= 0 || cfg.Debounce <= 0 {
		return nil, errors.New("sync durations must be positive")
	}
	return cfg, nil
}

// ResolveRemote returns the connection string from config or environment,
// falling back to the OS keyring. An empty result with nil error means no
// remote is configured.
func (c *Config) ResolveRemote() (string, error) {
	if c.Remote != "" {
		return c.Remote, nil
	}
	connStr, err := keyring.GetConnectionString()
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(err, keyring.ErrKeyringUnavailable) {
		return "", nil
	}
	return connStr, err
}

// ResolveUser returns the signed-in user from config or environment,
// falling back to the session stored by 'salahlog login'.
func (c *Config) ResolveUser() (string, error) {
	if c.User != "" {
		return c.User, nil
	}
	user, err := keyring.GetSessionUser()
	if errors.Is(err, keyring.ErrNotFound) || errors.Is(err, keyring.ErrKeyringUnavailable) {
		return "", ErrNoUser
	}
	if err != nil {
		return "", err
	}
	return user, nil
}
