package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/julianstephens/salahlog/internal/connectivity"
	"github.com/julianstephens/salahlog/internal/models"
	"github.com/julianstephens/salahlog/internal/remote"
	"github.com/julianstephens/salahlog/internal/remote/memory"
	"github.com/julianstephens/salahlog/internal/storage/sqlite"
)

var baseTime = time.Date(2026, 3, 10, 5, 0, 0, 0, time.UTC)

func setupLocal(t *testing.T) *sqlite.Store {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func entry(id, user, date string, prayer models.Prayer, status models.Status, at time.Time) models.PrayerEntry {
	return models.PrayerEntry{
		ID:         id,
		UserID:     user,
		Prayer:     prayer,
		Date:       date,
		Status:     status,
		RecordedAt: at,
	}
}

func save(t *testing.T, s *sqlite.Store, entries ...models.PrayerEntry) {
	t.Helper()
	for _, e := range entries {
		if err := s.SaveEntry(context.Background(), e); err != nil {
			t.Fatalf("SaveEntry(%s): %v", e.ID, err)
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for condition")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSync_PushesOnlyUsersEntries(t *testing.T) {
	ctx := context.Background()
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true))

	save(t, local,
		entry("a1", "alice", "2026-03-10", models.Fajr, models.StatusOnTime, baseTime),
		entry("a2", "alice", "2026-03-10", models.Dhuhr, models.StatusLate, baseTime),
		entry("b1", "bob", "2026-03-10", models.Fajr, models.StatusMissed, baseTime),
	)

	report, err := engine.Sync(ctx, "alice")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if report.Status != StatusPushed || report.Pushed != 2 || report.Marked != 2 {
		t.Errorf("unexpected report: %+v", report)
	}

	rows := rem.Rows()
	if len(rows) != 2 {
		t.Fatalf("expected 2 remote rows, got %d", len(rows))
	}
	for _, r := range rows {
		if r.UserID != "alice" {
			t.Errorf("pushed another user's entry: %+v", r)
		}
	}

	opts := rem.LastUpsertOptions()
	if opts.IgnoreDuplicates {
		t.Error("push must overwrite on conflict")
	}
	if got, err := remote.ResolveConflictTarget(opts.ConflictTarget); err != nil || len(got) != 3 {
		t.Errorf("push should target the natural key, got %v (%v)", opts.ConflictTarget, err)
	}

	pending, err := local.GetUnsyncedEntries(ctx)
	if err != nil {
		t.Fatalf("GetUnsyncedEntries: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "b1" {
		t.Errorf("expected only bob's entry to stay pending, got %+v", pending)
	}
}

func TestSync_NothingToDo(t *testing.T) {
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true))

	save(t, local, entry("b1", "bob", "2026-03-10", models.Fajr, models.StatusMissed, baseTime))

	report, err := engine.Sync(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if report.Status != StatusNothingToDo {
		t.Errorf("status = %s, want %s", report.Status, StatusNothingToDo)
	}
	if rem.UpsertCalls() != 0 {
		t.Errorf("expected no remote calls, got %d", rem.UpsertCalls())
	}
}

func TestSync_Preconditions(t *testing.T) {
	tests := []struct {
		name   string
		online bool
		user   string
		reason string
	}{
		{"offline", false, "alice", ReasonOffline},
		{"no user", true, "", ReasonNoUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := setupLocal(t)
			rem := memory.New()
			engine := New(local, rem, connectivity.Static(tt.online))
			save(t, local, entry("a1", "alice", "2026-03-10", models.Fajr, models.StatusOnTime, baseTime))

			for _, run := range []func(context.Context, string) (Report, error){engine.Sync, engine.Hydrate, engine.PushSettings} {
				report, err := run(context.Background(), tt.user)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if report.Status != StatusSkipped || report.Reason != tt.reason {
					t.Errorf("report = %+v, want skipped with %q", report, tt.reason)
				}
			}

			if rem.UpsertCalls() != 0 || rem.SelectCalls() != 0 {
				t.Errorf("expected no remote calls, got %d upserts %d selects", rem.UpsertCalls(), rem.SelectCalls())
			}
			if n, _ := local.CountUnsynced(context.Background(), "alice"); n != 1 {
				t.Errorf("expected entry to stay pending, unsynced = %d", n)
			}
		})
	}
}

func TestSync_MutualExclusion(t *testing.T) {
	ctx := context.Background()
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true))
	save(t, local, entry("a1", "alice", "2026-03-10", models.Fajr, models.StatusOnTime, baseTime))

	release := rem.Block()
	done := make(chan Report, 1)
	go func() {
		r, _ := engine.Sync(ctx, "alice")
		done <- r
	}()
	waitFor(t, func() bool { return rem.UpsertCalls() == 1 })

	if !engine.InFlight() {
		t.Error("engine should report in flight while the push is blocked")
	}

	for _, run := range []func(context.Context, string) (Report, error){engine.Sync, engine.Hydrate} {
		report, err := run(ctx, "alice")
		if err != nil {
			t.Fatalf("overlapping call returned error: %v", err)
		}
		if report.Status != StatusSkipped || report.Reason != ReasonInFlight {
			t.Errorf("overlapping call = %+v, want skipped in flight", report)
		}
	}
	if rem.UpsertCalls() != 1 || rem.SelectCalls() != 0 {
		t.Errorf("overlapping calls reached the remote: %d upserts %d selects", rem.UpsertCalls(), rem.SelectCalls())
	}

	release()
	first := <-done
	if first.Status != StatusPushed {
		t.Errorf("first sync = %+v, want pushed", first)
	}
	if engine.InFlight() {
		t.Error("flag should be cleared after the run")
	}
}

func TestSync_FailureRecovery(t *testing.T) {
	ctx := context.Background()
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true))
	save(t, local,
		entry("a1", "alice", "2026-03-10", models.Fajr, models.StatusOnTime, baseTime),
		entry("a2", "alice", "2026-03-10", models.Asr, models.StatusLate, baseTime),
	)

	rem.FailUpserts(memory.ErrInjected)
	report, err := engine.Sync(ctx, "alice")
	if !errors.Is(err, ErrPushFailed) || !errors.Is(err, memory.ErrInjected) {
		t.Fatalf("error = %v, want ErrPushFailed wrapping the remote error", err)
	}
	if report.Status != StatusFailed {
		t.Errorf("status = %s, want failed", report.Status)
	}
	if n, _ := local.CountUnsynced(ctx, "alice"); n != 2 {
		t.Errorf("failed push must not mark anything, unsynced = %d", n)
	}
	if engine.InFlight() {
		t.Error("flag should be cleared after a failure")
	}

	rem.FailUpserts(nil)
	report, err = engine.Sync(ctx, "alice")
	if err != nil {
		t.Fatalf("retry Sync: %v", err)
	}
	if report.Pushed != 2 {
		t.Errorf("retry pushed %d, want 2", report.Pushed)
	}
	if n, _ := local.CountUnsynced(ctx, "alice"); n != 0 {
		t.Errorf("unsynced after retry = %d, want 0", n)
	}
}

func TestSync_TimeoutReleasesFlag(t *testing.T) {
	ctx := context.Background()
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true), WithTimeout(50*time.Millisecond))
	save(t, local, entry("a1", "alice", "2026-03-10", models.Fajr, models.StatusOnTime, baseTime))

	release := rem.Block()
	defer release()

	_, err := engine.Sync(ctx, "alice")
	if !errors.Is(err, ErrPushFailed) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want ErrPushFailed wrapping DeadlineExceeded", err)
	}
	if engine.InFlight() {
		t.Fatal("timed out run must release the flag")
	}
	if n, _ := local.CountUnsynced(ctx, "alice"); n != 1 {
		t.Errorf("timed out push must not mark, unsynced = %d", n)
	}

	release()
	report, err := engine.Sync(ctx, "alice")
	if err != nil || report.Status != StatusPushed {
		t.Errorf("sync after timeout = %+v, %v", report, err)
	}
}

func TestSync_EditDuringPushStaysPending(t *testing.T) {
	ctx := context.Background()
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true))
	save(t, local, entry("a1", "alice", "2026-03-10", models.Fajr, models.StatusLate, baseTime))

	release := rem.Block()
	done := make(chan Report, 1)
	go func() {
		r, _ := engine.Sync(ctx, "alice")
		done <- r
	}()
	waitFor(t, func() bool { return rem.UpsertCalls() == 1 })

	edited := entry("a1", "alice", "2026-03-10", models.Fajr, models.StatusOnTime, baseTime.Add(time.Minute))
	save(t, local, edited)

	release()
	report := <-done
	if report.Pushed != 1 || report.Marked != 0 {
		t.Errorf("report = %+v, want 1 pushed and 0 marked", report)
	}

	got, err := local.GetEntry(ctx, "a1")
	if err != nil {
		t.Fatalf("GetEntry: %v", err)
	}
	if got.Synced || got.Status != models.StatusOnTime {
		t.Errorf("edited entry should stay pending with the new status, got %+v", got)
	}
}

func TestHydrate_OverwritesPendingByDefault(t *testing.T) {
	ctx := context.Background()
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true))

	save(t, local, entry("local-fajr", "alice", "2026-03-10", models.Fajr, models.StatusLate, baseTime))
	rem.Seed(
		remote.Entry{ID: "remote-fajr", UserID: "alice", PrayerName: "fajr", Date: "2026-03-10",
			Status: "on_time", Mode: "congregation", RecordedAt: baseTime.Add(-time.Hour)},
		remote.Entry{ID: "remote-dhuhr", UserID: "alice", PrayerName: "dhuhr", Date: "2026-03-10",
			Status: "missed", RecordedAt: baseTime},
	)

	report, err := engine.Hydrate(ctx, "alice")
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if report.Status != StatusHydrated || report.Pulled != 2 {
		t.Errorf("unexpected report: %+v", report)
	}

	fajr, err := local.FindEntry(ctx, "alice", "2026-03-10", models.Fajr)
	if err != nil {
		t.Fatalf("FindEntry fajr: %v", err)
	}
	if fajr.Status != models.StatusOnTime || fajr.Mode != models.ModeCongregation || !fajr.Synced {
		t.Errorf("local fajr should be replaced by the remote version, got %+v", fajr)
	}

	dhuhr, err := local.GetEntry(ctx, "remote-dhuhr")
	if err != nil {
		t.Fatalf("GetEntry dhuhr: %v", err)
	}
	if !dhuhr.Synced {
		t.Error("hydrated entries must be marked synced")
	}
}

func TestHydrate_PreservePending(t *testing.T) {
	ctx := context.Background()
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true), WithHydratePolicy(HydratePreservePending))

	save(t, local,
		entry("local-fajr", "alice", "2026-03-10", models.Fajr, models.StatusLate, baseTime),
		entry("shared-asr", "alice", "2026-03-10", models.Asr, models.StatusMissed, baseTime),
	)
	rem.Seed(
		remote.Entry{ID: "remote-fajr", UserID: "alice", PrayerName: "fajr", Date: "2026-03-10",
			Status: "on_time", RecordedAt: baseTime},
		remote.Entry{ID: "shared-asr", UserID: "alice", PrayerName: "asr", Date: "2026-03-10",
			Status: "on_time", RecordedAt: baseTime},
		remote.Entry{ID: "remote-isha", UserID: "alice", PrayerName: "isha", Date: "2026-03-09",
			Status: "late", RecordedAt: baseTime},
	)

	report, err := engine.Hydrate(ctx, "alice")
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if report.Preserved != 2 || report.Pulled != 1 {
		t.Errorf("report = %+v, want 2 preserved and 1 pulled", report)
	}

	fajr, _ := local.FindEntry(ctx, "alice", "2026-03-10", models.Fajr)
	if fajr.Status != models.StatusLate || fajr.Synced {
		t.Errorf("pending fajr must be preserved, got %+v", fajr)
	}
	asr, _ := local.GetEntry(ctx, "shared-asr")
	if asr.Status != models.StatusMissed || asr.Synced {
		t.Errorf("pending asr must be preserved, got %+v", asr)
	}
	if _, err := local.GetEntry(ctx, "remote-isha"); err != nil {
		t.Errorf("non-conflicting remote entry should be pulled: %v", err)
	}
}

func TestHydrate_PolicyOverride(t *testing.T) {
	ctx := context.Background()
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true))

	save(t, local, entry("local-fajr", "alice", "2026-03-10", models.Fajr, models.StatusLate, baseTime))
	rem.Seed(remote.Entry{ID: "remote-fajr", UserID: "alice", PrayerName: "fajr", Date: "2026-03-10",
		Status: "on_time", RecordedAt: baseTime})

	report, err := engine.HydrateWith(ctx, "alice", HydratePreservePending)
	if err != nil {
		t.Fatalf("HydrateWith: %v", err)
	}
	if report.Preserved != 1 {
		t.Errorf("report = %+v, want 1 preserved", report)
	}
	if engine.Policy() != HydrateOverwrite {
		t.Error("per-call policy must not change the engine default")
	}
}

func TestHydrate_NewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true), WithHydrateLimit(2))

	for i, p := range models.Prayers {
		rem.Seed(remote.Entry{ID: "r-" + string(p), UserID: "alice", PrayerName: string(p), Date: "2026-03-10",
			Status: "on_time", RecordedAt: baseTime.Add(time.Duration(i) * time.Hour)})
	}
	rem.Seed(remote.Entry{ID: "r-bob", UserID: "bob", PrayerName: "fajr", Date: "2026-03-10",
		Status: "on_time", RecordedAt: baseTime.Add(24 * time.Hour)})

	report, err := engine.Hydrate(ctx, "alice")
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if report.Pulled != 2 {
		t.Fatalf("pulled %d, want 2", report.Pulled)
	}

	all, err := local.GetAllLogs(ctx)
	if err != nil {
		t.Fatalf("GetAllLogs: %v", err)
	}
	got := map[string]bool{}
	for _, e := range all {
		got[e.ID] = true
	}
	if !got["r-isha"] || !got["r-maghrib"] || got["r-bob"] {
		t.Errorf("expected the two newest of alice's entries, got %v", got)
	}
}

func TestHydrate_SkipsInvalidRows(t *testing.T) {
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true))
	rem.Seed(
		remote.Entry{ID: "bad", UserID: "alice", PrayerName: "tahajjud", Date: "2026-03-10",
			Status: "on_time", RecordedAt: baseTime},
		remote.Entry{ID: "good", UserID: "alice", PrayerName: "fajr", Date: "2026-03-10",
			Status: "on_time", RecordedAt: baseTime},
	)

	report, err := engine.Hydrate(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if report.Skipped != 1 || report.Pulled != 1 {
		t.Errorf("report = %+v, want 1 skipped and 1 pulled", report)
	}
}

func TestHydrate_FailureWrapped(t *testing.T) {
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true))
	rem.FailSelects(memory.ErrInjected)

	report, err := engine.Hydrate(context.Background(), "alice")
	if !errors.Is(err, ErrPullFailed) {
		t.Fatalf("error = %v, want ErrPullFailed", err)
	}
	if report.Status != StatusFailed || report.Op != opHydrate {
		t.Errorf("unexpected report: %+v", report)
	}
}

func TestPushSettings(t *testing.T) {
	local := setupLocal(t)
	rem := memory.New()
	engine := New(local, rem, connectivity.Static(true))

	report, err := engine.PushSettings(context.Background(), "alice")
	if err != nil {
		t.Fatalf("PushSettings: %v", err)
	}
	if report.Status != StatusPushed {
		t.Errorf("status = %s, want pushed", report.Status)
	}

	doc, ok := rem.Profile("alice")
	if !ok {
		t.Fatal("profile not stored")
	}
	var fields map[string]string
	if err := json.Unmarshal(doc, &fields); err != nil {
		t.Fatalf("profile is not a JSON object: %v", err)
	}
	if fields["timing_mode"] == "" {
		t.Errorf("profile missing timing_mode: %s", doc)
	}
}

func TestMetrics(t *testing.T) {
	local := setupLocal(t)
	rem := memory.New()
	reg := prometheus.NewRegistry()
	engine := New(local, rem, connectivity.Static(true), WithRegisterer(reg))
	// A second engine on the same registry reuses the collectors
	second := New(local, rem, connectivity.Static(false), WithRegisterer(reg))

	save(t, local, entry("a1", "alice", "2026-03-10", models.Fajr, models.StatusOnTime, baseTime))
	if _, err := engine.Sync(context.Background(), "alice"); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if _, err := second.Sync(context.Background(), "alice"); err != nil {
		t.Fatalf("second Sync: %v", err)
	}

	if got := testutil.ToFloat64(engine.metrics.runs.WithLabelValues(opPush, string(StatusPushed))); got != 1 {
		t.Errorf("pushed runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(engine.metrics.runs.WithLabelValues(opPush, string(StatusSkipped))); got != 1 {
		t.Errorf("skipped runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(engine.metrics.entries.WithLabelValues(opPush)); got != 1 {
		t.Errorf("pushed entries = %v, want 1", got)
	}
	if got := testutil.ToFloat64(engine.metrics.unsynced); got != 0 {
		t.Errorf("unsynced gauge = %v, want 0", got)
	}
}

func TestReportString(t *testing.T) {
	tests := []struct {
		report Report
		want   string
	}{
		{Report{Op: opPush, Status: StatusSkipped, Reason: ReasonOffline}, "push skipped: offline"},
		{Report{Op: opHydrate, Status: StatusNothingToDo}, "hydrate: nothing to do"},
		{Report{Op: opSettings, Status: StatusPushed}, "settings pushed"},
		{Report{Op: opPush, Status: StatusFailed, Reason: "boom"}, "push failed: boom"},
	}
	for _, tt := range tests {
		if got := tt.report.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
