// Package tracker is the application root: it owns the local store and the
// sync engine and exposes the operations the CLI and TUI call.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/julianstephens/salahlog/internal/constants"
	"github.com/julianstephens/salahlog/internal/logger"
	"github.com/julianstephens/salahlog/internal/models"
	"github.com/julianstephens/salahlog/internal/stats"
	"github.com/julianstephens/salahlog/internal/storage"
	"github.com/julianstephens/salahlog/internal/syncer"
	"github.com/julianstephens/salahlog/internal/utils"
)

// ErrFutureDate is returned when marking a prayer on a date after today
var ErrFutureDate = errors.New("cannot mark a prayer in the future")

// ReasonNoRemote is reported by sync operations when no backend is configured
const ReasonNoRemote = "no remote configured"

// Notifier is told about every successful mutation, typically to schedule a
// background sync.
type Notifier interface {
	Notify()
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func()

func (f NotifierFunc) Notify() { f() }

type Tracker struct {
	store    storage.Provider
	engine   *syncer.Engine
	notifier Notifier
	now      func() time.Time
	log      *log.Logger
}

type Option func(*Tracker)

func WithNotifier(n Notifier) Option {
	return func(t *Tracker) { t.notifier = n }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New builds a tracker. engine may be nil when no remote is configured.
func New(store storage.Provider, engine *syncer.Engine, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		engine: engine,
		now:    time.Now,
		log:    logger.New("tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Store() storage.Provider { return t.store }

func (t *Tracker) Engine() *syncer.Engine { return t.engine }

// SetEngine attaches a sync engine once the remote is reachable.
func (t *Tracker) SetEngine(e *syncer.Engine) { t.engine = e }

// SetNotifier replaces the mutation hook. Not safe to call concurrently with Mark.
func (t *Tracker) SetNotifier(n Notifier) { t.notifier = n }

// Now returns the current time in the configured timezone.
func (t *Tracker) Now() time.Time {
	now := t.now()
	settings, err := t.store.GetSettings()
	if err != nil {
		return now
	}
	loc, err := utils.LoadLocation(settings.Timezone)
	if err != nil {
		t.log.Warn("invalid timezone setting, using local time", "timezone", settings.Timezone, "error", err)
		return now
	}
	return now.In(loc)
}

// Today returns today's date (YYYY-MM-DD) in the configured timezone.
func (t *Tracker) Today() string {
	return t.Now().Format(constants.DateFormat)
}

// MarkRequest describes one status change
type MarkRequest struct {
	UserID string
	Date   string // defaults to today
	Prayer models.Prayer
	Status models.Status
	Mode   models.Mode
}

// Mark records the status of one prayer. Re-marking an already recorded
// prayer keeps its id; the new version is unsynced until the next push.
func (t *Tracker) Mark(ctx context.Context, req MarkRequest) (models.PrayerEntry, error) {
	if req.Date == "" {
		req.Date = t.Today()
	}
	if _, err := time.Parse(constants.DateFormat, req.Date); err != nil {
		return models.PrayerEntry{}, fmt.Errorf("%w: invalid date %q", models.ErrInvalidEntry, req.Date)
	}
	if req.Date > t.Today() {
		return models.PrayerEntry{}, fmt.Errorf("%w: %s", ErrFutureDate, req.Date)
	}

	id := uuid.NewString()
	existing, err := t.store.FindEntry(ctx, req.UserID, req.Date, req.Prayer)
	switch {
	case err == nil:
		id = existing.ID
	case !errors.Is(err, storage.ErrNotFound):
		return models.PrayerEntry{}, fmt.Errorf("failed to look up entry: %w", err)
	}

	entry := models.PrayerEntry{
		ID:         id,
		UserID:     req.UserID,
		Prayer:     req.Prayer,
		Date:       req.Date,
		Status:     req.Status,
		Mode:       req.Mode,
		RecordedAt: t.now().UTC(),
		Synced:     false,
	}
	if err := t.store.SaveEntry(ctx, entry); err != nil {
		return models.PrayerEntry{}, err
	}
	t.log.Debug("marked prayer", "prayer", entry.Prayer, "date", entry.Date, "status", entry.Status)

	if t.notifier != nil {
		t.notifier.Notify()
	}
	return entry, nil
}

// DailyLog returns the five statuses for date.
func (t *Tracker) DailyLog(ctx context.Context, userID, date string) (models.DailyLog, error) {
	entries, err := t.store.GetEntriesForUser(ctx, userID, date, date)
	if err != nil {
		return models.DailyLog{}, err
	}
	if day, ok := stats.BuildDailyLogs(entries)[date]; ok {
		return day, nil
	}
	return models.NewDailyLog(date), nil
}

// History returns the last days daily logs, newest first. Days without
// entries are included with every prayer not marked.
func (t *Tracker) History(ctx context.Context, userID string, days int) ([]models.DailyLog, error) {
	if days <= 0 {
		days = constants.DefaultHistoryDays
	}
	dates := utils.DaysBack(t.Now(), days)
	entries, err := t.store.GetEntriesForUser(ctx, userID, dates[len(dates)-1], dates[0])
	if err != nil {
		return nil, err
	}
	logs := stats.BuildDailyLogs(entries)

	out := make([]models.DailyLog, 0, len(dates))
	for _, date := range dates {
		if day, ok := logs[date]; ok {
			out = append(out, day)
		} else {
			out = append(out, models.NewDailyLog(date))
		}
	}
	return out, nil
}

// Stats recomputes the user's statistics from every stored entry.
func (t *Tracker) Stats(ctx context.Context, userID string) (models.UserStats, error) {
	entries, err := t.store.GetEntriesForUser(ctx, userID, "", "")
	if err != nil {
		return models.UserStats{}, err
	}
	return stats.Compute(stats.BuildDailyLogs(entries), t.Now()), nil
}

// Pending counts the user's entries that have not been pushed.
func (t *Tracker) Pending(ctx context.Context, userID string) (int, error) {
	return t.store.CountUnsynced(ctx, userID)
}

func noRemote(op string) syncer.Report {
	return syncer.Report{Op: op, Status: syncer.StatusSkipped, Reason: ReasonNoRemote}
}

func (t *Tracker) Sync(ctx context.Context, userID string) (syncer.Report, error) {
	if t.engine == nil {
		return noRemote("push"), nil
	}
	return t.engine.Sync(ctx, userID)
}

func (t *Tracker) Hydrate(ctx context.Context, userID string, policy syncer.HydratePolicy) (syncer.Report, error) {
	if t.engine == nil {
		return noRemote("hydrate"), nil
	}
	return t.engine.HydrateWith(ctx, userID, policy)
}

func (t *Tracker) PushSettings(ctx context.Context, userID string) (syncer.Report, error) {
	if t.engine == nil {
		return noRemote("settings"), nil
	}
	return t.engine.PushSettings(ctx, userID)
}
