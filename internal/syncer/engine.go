// Package syncer pushes locally recorded prayer entries to the remote backend
// and hydrates the local store from it.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/julianstephens/salahlog/internal/connectivity"
	"github.com/julianstephens/salahlog/internal/constants"
	"github.com/julianstephens/salahlog/internal/logger"
	"github.com/julianstephens/salahlog/internal/models"
	"github.com/julianstephens/salahlog/internal/remote"
	"github.com/julianstephens/salahlog/internal/storage"
)

var (
	// ErrPushFailed wraps any failure while pushing unsynced entries
	ErrPushFailed = errors.New("sync push failed")
	// ErrPullFailed wraps any failure while hydrating from the remote
	ErrPullFailed = errors.New("sync hydrate failed")
)

const (
	opPush     = "push"
	opHydrate  = "hydrate"
	opSettings = "settings"
)

// Status is the outcome of one engine run.
type Status string

const (
	StatusSkipped     Status = "skipped"
	StatusNothingToDo Status = "nothing_to_do"
	StatusPushed      Status = "pushed"
	StatusHydrated    Status = "hydrated"
	StatusFailed      Status = "failed"
)

// Reasons attached to skipped runs
const (
	ReasonInFlight = "another sync is in progress"
	ReasonOffline  = "offline"
	ReasonNoUser   = "no signed-in user"
)

// HydratePolicy decides what happens to local entries that have not been
// pushed yet when the remote holds a version of the same entry.
type HydratePolicy int

const (
	// HydrateOverwrite replaces the local entry with the remote version and
	// marks it synced. Unpushed local edits to that entry are lost.
	HydrateOverwrite HydratePolicy = iota
	// HydratePreservePending leaves unsynced local entries untouched.
	HydratePreservePending
)

func (p HydratePolicy) String() string {
	if p == HydratePreservePending {
		return "preserve-pending"
	}
	return "overwrite"
}

// Report describes what a Sync, Hydrate or PushSettings call did.
type Report struct {
	Op        string
	Status    Status
	Reason    string
	Pushed    int // entries sent to the remote
	Marked    int // entries marked synced locally
	Pulled    int // remote entries written locally
	Preserved int // remote entries skipped to keep pending local edits
	Skipped   int // remote entries that failed validation
	Duration  time.Duration
}

func (r Report) String() string {
	switch r.Status {
	case StatusSkipped:
		return fmt.Sprintf("%s skipped: %s", r.Op, r.Reason)
	case StatusNothingToDo:
		return fmt.Sprintf("%s: nothing to do", r.Op)
	case StatusPushed:
		if r.Op == opSettings {
			return "settings pushed"
		}
		return fmt.Sprintf("pushed %d entries (%d marked synced) in %s", r.Pushed, r.Marked, r.Duration.Round(time.Millisecond))
	case StatusHydrated:
		return fmt.Sprintf("pulled %d entries (%d preserved, %d invalid) in %s", r.Pulled, r.Preserved, r.Skipped, r.Duration.Round(time.Millisecond))
	case StatusFailed:
		return fmt.Sprintf("%s failed: %s", r.Op, r.Reason)
	}
	return string(r.Status)
}

// LocalStore is the subset of the local store the engine reads and writes.
type LocalStore interface {
	GetUnsyncedEntries(ctx context.Context) ([]models.PrayerEntry, error)
	CountUnsynced(ctx context.Context, userID string) (int, error)
	MarkPushed(ctx context.Context, entries []models.PrayerEntry) (int, error)
	SaveEntry(ctx context.Context, entry models.PrayerEntry) error
	GetEntry(ctx context.Context, id string) (models.PrayerEntry, error)
	FindEntry(ctx context.Context, userID, date string, prayer models.Prayer) (models.PrayerEntry, error)
	GetSettings() (models.Settings, error)
}

// Engine moves entries between the local store and the remote backend.
// At most one Sync, Hydrate or PushSettings runs at a time per Engine;
// overlapping calls return immediately with StatusSkipped.
type Engine struct {
	local  LocalStore
	remote remote.Store
	online connectivity.Checker

	timeout      time.Duration
	hydrateLimit int
	policy       HydratePolicy
	log          *log.Logger
	metrics      *metrics

	inFlight atomic.Bool
}

type Option func(*Engine)

// WithTimeout bounds every run. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithHydrateLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.hydrateLimit = n
		}
	}
}

// WithHydratePolicy sets the policy used by Hydrate.
func WithHydratePolicy(p HydratePolicy) Option {
	return func(e *Engine) { e.policy = p }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRegisterer registers the engine's collectors on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *Engine) { e.metrics.register(reg) }
}

func New(local LocalStore, rem remote.Store, online connectivity.Checker, opts ...Option) *Engine {
	if online == nil {
		online = connectivity.Static(true)
	}
	e := &Engine{
		local:        local,
		remote:       rem,
		online:       online,
		timeout:      constants.DefaultSyncTimeout,
		hydrateLimit: constants.DefaultHydrateLimit,
		policy:       HydrateOverwrite,
		log:          logger.New("syncer"),
		metrics:      newMetrics(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InFlight reports whether a run currently holds the engine.
func (e *Engine) InFlight() bool {
	return e.inFlight.Load()
}

// Policy returns the default hydrate policy.
func (e *Engine) Policy() HydratePolicy {
	return e.policy
}

func skipped(op, reason string) Report {
	return Report{Op: op, Status: StatusSkipped, Reason: reason}
}

// run checks the shared preconditions, holds the in-flight flag for the
// duration of fn and applies the engine timeout.
func (e *Engine) run(ctx context.Context, op, userID string, fn func(context.Context) (Report, error)) (report Report, err error) {
	start := time.Now()
	defer func() {
		report.Op = op
		report.Duration = time.Since(start)
		e.metrics.observe(op, report)
	}()

	if userID == "" {
		return skipped(op, ReasonNoUser), nil
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		e.log.Debug("run skipped, already in flight", "op", op)
		return skipped(op, ReasonInFlight), nil
	}
	defer e.inFlight.Store(false)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	if !e.online.Online(ctx) {
		e.log.Debug("run skipped, offline", "op", op)
		return skipped(op, ReasonOffline), nil
	}
	return fn(ctx)
}

// Sync pushes the user's unsynced entries and marks the pushed versions synced.
// Entries belonging to other users stay pending.
func (e *Engine) Sync(ctx context.Context, userID string) (Report, error) {
	return e.run(ctx, opPush, userID, func(ctx context.Context) (Report, error) {
		return e.push(ctx, userID)
	})
}

func (e *Engine) fail(op string, sentinel, err error) (Report, error) {
	err = fmt.Errorf("%w: %w", sentinel, err)
	e.log.Error("sync run failed", "op", op, "error", err)
	return Report{Status: StatusFailed, Reason: err.Error()}, err
}

func (e *Engine) push(ctx context.Context, userID string) (Report, error) {
	pending, err := e.local.GetUnsyncedEntries(ctx)
	if err != nil {
		return e.fail(opPush, ErrPushFailed, fmt.Errorf("read unsynced entries: %w", err))
	}

	var owned []models.PrayerEntry
	for _, entry := range pending {
		if entry.UserID == userID {
			owned = append(owned, entry)
		}
	}
	if len(owned) == 0 {
		e.metrics.unsynced.Set(0)
		return Report{Status: StatusNothingToDo}, nil
	}

	rows := make([]remote.Entry, 0, len(owned))
	for _, entry := range owned {
		rows = append(rows, remote.FromModel(entry))
	}

	err = e.remote.UpsertEntries(ctx, rows, remote.UpsertOptions{
		ConflictTarget:   remote.NaturalKey,
		IgnoreDuplicates: false,
	})
	if err != nil {
		e.metrics.unsynced.Set(float64(len(owned)))
		return e.fail(opPush, ErrPushFailed, err)
	}

	marked, err := e.local.MarkPushed(ctx, owned)
	if err != nil {
		// The remote already holds these versions; they are re-sent next time.
		return e.fail(opPush, ErrPushFailed, fmt.Errorf("mark entries synced: %w", err))
	}

	if remaining, err := e.local.CountUnsynced(ctx, userID); err == nil {
		e.metrics.unsynced.Set(float64(remaining))
	} else {
		e.log.Debug("failed to count unsynced entries", "error", err)
	}

	e.log.Info("pushed entries", "user", userID, "pushed", len(owned), "marked", marked)
	return Report{Status: StatusPushed, Pushed: len(owned), Marked: marked}, nil
}

// Hydrate seeds the local store with the user's most recent remote entries
// using the engine's default policy.
func (e *Engine) Hydrate(ctx context.Context, userID string) (Report, error) {
	return e.HydrateWith(ctx, userID, e.policy)
}

// HydrateWith is Hydrate with an explicit policy. It never deletes local entries.
func (e *Engine) HydrateWith(ctx context.Context, userID string, policy HydratePolicy) (Report, error) {
	return e.run(ctx, opHydrate, userID, func(ctx context.Context) (Report, error) {
		return e.hydrate(ctx, userID, policy)
	})
}

func (e *Engine) hydrate(ctx context.Context, userID string, policy HydratePolicy) (Report, error) {
	rows, err := e.remote.SelectEntries(ctx, remote.Query{
		UserID:     userID,
		OrderBy:    remote.ColumnRecordedAt,
		Descending: true,
		Limit:      e.hydrateLimit,
	})
	if err != nil {
		return e.fail(opHydrate, ErrPullFailed, err)
	}
	if len(rows) == 0 {
		return Report{Status: StatusNothingToDo}, nil
	}

	report := Report{Status: StatusHydrated}
	for _, row := range rows {
		entry := row.ToModel(true)
		if err := entry.Validate(); err != nil {
			e.log.Warn("skipping invalid remote entry", "id", row.ID, "error", err)
			report.Skipped++
			continue
		}

		if policy == HydratePreservePending {
			pending, err := e.hasPending(ctx, entry)
			if err != nil {
				return e.fail(opHydrate, ErrPullFailed, err)
			}
			if pending {
				report.Preserved++
				continue
			}
		}

		if err := e.local.SaveEntry(ctx, entry); err != nil {
			return e.fail(opHydrate, ErrPullFailed, err)
		}
		report.Pulled++
	}

	e.log.Info("hydrated entries", "user", userID, "pulled", report.Pulled,
		"preserved", report.Preserved, "policy", policy)
	return report, nil
}

// hasPending reports whether the local store holds an unsynced version of
// entry, matched by id or by (user, date, prayer).
func (e *Engine) hasPending(ctx context.Context, entry models.PrayerEntry) (bool, error) {
	local, err := e.local.GetEntry(ctx, entry.ID)
	if err == nil {
		return !local.Synced, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return false, err
	}

	local, err = e.local.FindEntry(ctx, entry.UserID, entry.Date, entry.Prayer)
	if err == nil {
		return !local.Synced, nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	return false, err
}

// PushSettings mirrors the local settings into the user's remote profile.
func (e *Engine) PushSettings(ctx context.Context, userID string) (Report, error) {
	return e.run(ctx, opSettings, userID, func(ctx context.Context) (Report, error) {
		settings, err := e.local.GetSettings()
		if err != nil {
			return e.fail(opSettings, ErrPushFailed, fmt.Errorf("read settings: %w", err))
		}
		doc, err := json.Marshal(models.SettingsToMap(settings))
		if err != nil {
			return e.fail(opSettings, ErrPushFailed, err)
		}
		if err := e.remote.UpsertProfile(ctx, userID, doc); err != nil {
			return e.fail(opSettings, ErrPushFailed, err)
		}
		e.log.Info("pushed settings", "user", userID)
		return Report{Status: StatusPushed}, nil
	})
}
