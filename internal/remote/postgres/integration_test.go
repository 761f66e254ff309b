package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/salahlog/internal/remote"
)

// TestStore_Integration runs against a real database.
// Example: POSTGRES_TEST_URL="postgres://salahlog_user@localhost:5432/salahlog_test?sslmode=disable"
func TestStore_Integration(t *testing.T) {
	connStr := os.Getenv("POSTGRES_TEST_URL")
	if connStr == "" {
		t.Skip("POSTGRES_TEST_URL not set, skipping PostgreSQL integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store := New(connStr)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	defer store.Close()

	user := "it-" + uuid.NewString()
	recorded := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("NaturalKeyUpsert", func(t *testing.T) {
		first := remote.Entry{
			ID: uuid.NewString(), UserID: user, PrayerName: "fajr", Date: "2024-03-10",
			Status: "late", RecordedAt: recorded,
		}
		if err := store.UpsertEntries(ctx, []remote.Entry{first}, remote.UpsertOptions{ConflictTarget: remote.NaturalKey}); err != nil {
			t.Fatalf("first upsert: %v", err)
		}

		second := first
		second.ID = uuid.NewString()
		second.Status = "on_time"
		second.Mode = "congregation"
		second.RecordedAt = recorded.Add(time.Minute)
		if err := store.UpsertEntries(ctx, []remote.Entry{second}, remote.UpsertOptions{ConflictTarget: remote.NaturalKey}); err != nil {
			t.Fatalf("second upsert: %v", err)
		}

		rows, err := store.SelectEntries(ctx, remote.Query{UserID: user, Descending: true, Limit: 10})
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected 1 row for natural key, got %d", len(rows))
		}
		if rows[0].Status != "on_time" || rows[0].Mode != "congregation" || rows[0].Date != "2024-03-10" {
			t.Errorf("unexpected row after overwrite: %+v", rows[0])
		}
	})

	t.Run("SelectOrderAndLimit", func(t *testing.T) {
		var batch []remote.Entry
		for i, p := range []string{"dhuhr", "asr", "maghrib"} {
			batch = append(batch, remote.Entry{
				ID: uuid.NewString(), UserID: user, PrayerName: p, Date: "2024-03-10",
				Status: "on_time", RecordedAt: recorded.Add(time.Duration(i+2) * time.Minute),
			})
		}
		if err := store.UpsertEntries(ctx, batch, remote.UpsertOptions{ConflictTarget: remote.NaturalKey}); err != nil {
			t.Fatalf("batch upsert: %v", err)
		}

		rows, err := store.SelectEntries(ctx, remote.Query{UserID: user, Descending: true, Limit: 2})
		if err != nil {
			t.Fatalf("select: %v", err)
		}
		if len(rows) != 2 || rows[0].PrayerName != "maghrib" || rows[1].PrayerName != "asr" {
			t.Errorf("unexpected order: %+v", rows)
		}
	})

	t.Run("Profile", func(t *testing.T) {
		if err := store.UpsertProfile(ctx, user, []byte(`{"theme":"dark"}`)); err != nil {
			t.Fatalf("upsert profile: %v", err)
		}
		if err := store.UpsertProfile(ctx, user, []byte(`{"theme":"light"}`)); err != nil {
			t.Fatalf("second upsert profile: %v", err)
		}
	})

	t.Run("Reload", func(t *testing.T) {
		other := New(connStr)
		if err := other.Load(ctx); err != nil {
			t.Fatalf("Load: %v", err)
		}
		defer other.Close()
		if err := other.Ping(ctx); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})
}
