package storage

import (
	"context"
	"errors"

	"github.com/julianstephens/salahlog/internal/models"
)

var (
	// ErrNotFound is returned when a requested entry does not exist
	ErrNotFound = errors.New("entry not found")
	// ErrNotInitialized is returned by Load when the database file is missing
	ErrNotInitialized = errors.New("storage not initialized, run 'salahlog init' first")
)

// Provider is the device-local store of prayer entries and settings.
// It never touches the network.
type Provider interface {
	// Lifecycle
	Init() error
	Load() error
	Close() error

	// Settings
	GetSettings() (models.Settings, error)
	SaveSettings(models.Settings) error

	// Prayer entries
	SaveEntry(ctx context.Context, entry models.PrayerEntry) error
	GetEntry(ctx context.Context, id string) (models.PrayerEntry, error)
	FindEntry(ctx context.Context, userID, date string, prayer models.Prayer) (models.PrayerEntry, error)
	GetEntriesForUser(ctx context.Context, userID, startDate, endDate string) ([]models.PrayerEntry, error)
	GetAllLogs(ctx context.Context) ([]models.PrayerEntry, error)

	// Sync bookkeeping
	GetUnsyncedEntries(ctx context.Context) ([]models.PrayerEntry, error)
	CountUnsynced(ctx context.Context, userID string) (int, error)
	MarkAsSynced(ctx context.Context, ids []string) error
	// MarkPushed marks each entry synced only if the stored row still holds
	// the pushed version. It returns how many rows were marked.
	MarkPushed(ctx context.Context, entries []models.PrayerEntry) (int, error)

	// Utils
	GetConfigPath() string
}
