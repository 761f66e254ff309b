package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/salahlog/internal/models"
	"github.com/julianstephens/salahlog/internal/storage"
)

const entryColumns = "id, user_id, prayer, date, status, mode, recorded_at, synced"

// SaveEntry upserts by id. A save that collides with another row on
// (user_id, date, prayer) updates that row in place and keeps its id.
func (s *Store) SaveEntry(ctx context.Context, e models.PrayerEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prayer_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			user_id = excluded.user_id,
			prayer = excluded.prayer,
			date = excluded.date,
			status = excluded.status,
			mode = excluded.mode,
			recorded_at = excluded.recorded_at,
			synced = excluded.synced
		ON CONFLICT(user_id, date, prayer) DO UPDATE SET
			status = excluded.status,
			mode = excluded.mode,
			recorded_at = excluded.recorded_at,
			synced = excluded.synced`,
		e.ID, e.UserID, string(e.Prayer), e.Date, string(e.Status), string(e.Mode),
		formatTimestamp(e.RecordedAt), e.Synced,
	)
	if err != nil {
		return fmt.Errorf("failed to save entry %s: %w", e.ID, err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (models.PrayerEntry, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+entryColumns+" FROM prayer_entries WHERE id = ?", id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PrayerEntry{}, storage.ErrNotFound
	}
	return e, err
}

func (s *Store) FindEntry(ctx context.Context, userID, date string, prayer models.Prayer) (models.PrayerEntry, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+entryColumns+" FROM prayer_entries WHERE user_id = ? AND date = ? AND prayer = ?",
		userID, date, string(prayer))
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PrayerEntry{}, storage.ErrNotFound
	}
	return e, err
}

// GetEntriesForUser returns the user's entries with startDate <= date <= endDate.
// An empty bound is open.
func (s *Store) GetEntriesForUser(ctx context.Context, userID, startDate, endDate string) ([]models.PrayerEntry, error) {
	query := "SELECT " + entryColumns + " FROM prayer_entries WHERE user_id = ?"
	args := []interface{}{userID}
	if startDate != "" {
		query += " AND date >= ?"
		args = append(args, startDate)
	}
	if endDate != "" {
		query += " AND date <= ?"
		args = append(args, endDate)
	}
	query += " ORDER BY date, prayer"
	return s.queryEntries(ctx, query, args...)
}

func (s *Store) GetAllLogs(ctx context.Context) ([]models.PrayerEntry, error) {
	return s.queryEntries(ctx, "SELECT "+entryColumns+" FROM prayer_entries ORDER BY date, user_id, prayer")
}

func (s *Store) GetUnsyncedEntries(ctx context.Context) ([]models.PrayerEntry, error) {
	return s.queryEntries(ctx, "SELECT "+entryColumns+" FROM prayer_entries WHERE synced = 0")
}

// CountUnsynced counts pending entries for userID, or for everyone when userID is empty.
func (s *Store) CountUnsynced(ctx context.Context, userID string) (int, error) {
	query := "SELECT count(*) FROM prayer_entries WHERE synced = 0"
	var args []interface{}
	if userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count unsynced entries: %w", err)
	}
	return n, nil
}

func (s *Store) MarkAsSynced(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "UPDATE prayer_entries SET synced = 1 WHERE id = ?")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("failed to mark entry %s synced: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit synced marks: %w", err)
	}
	return nil
}

func (s *Store) MarkPushed(ctx context.Context, entries []models.PrayerEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE prayer_entries SET synced = 1
		WHERE id = ? AND status = ? AND mode = ? AND recorded_at = ?`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	marked := 0
	for _, e := range entries {
		res, err := stmt.ExecContext(ctx, e.ID, string(e.Status), string(e.Mode), formatTimestamp(e.RecordedAt))
		if err != nil {
			return 0, fmt.Errorf("failed to mark entry %s synced: %w", e.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		marked += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit synced marks: %w", err)
	}
	return marked, nil
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...interface{}) ([]models.PrayerEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []models.PrayerEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (models.PrayerEntry, error) {
	var (
		e                            models.PrayerEntry
		prayer, status, mode, record string
		synced                       bool
	)
	if err := row.Scan(&e.ID, &e.UserID, &prayer, &e.Date, &status, &mode, &record, &synced); err != nil {
		return models.PrayerEntry{}, err
	}
	recordedAt, err := time.Parse(time.RFC3339Nano, record)
	if err != nil {
		return models.PrayerEntry{}, fmt.Errorf("parsing recorded_at for entry %s: %w", e.ID, err)
	}
	e.Prayer = models.Prayer(prayer)
	e.Status = models.Status(status)
	e.Mode = models.Mode(strings.TrimSpace(mode))
	e.RecordedAt = recordedAt
	e.Synced = synced
	return e, nil
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
