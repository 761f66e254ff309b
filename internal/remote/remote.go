// Package remote defines the contract the sync engine needs from the hosted backend.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/salahlog/internal/models"
)

// Column names of the remote prayer_entries table
const (
	ColumnID         = "id"
	ColumnUserID     = "user_id"
	ColumnDate       = "date"
	ColumnPrayerName = "prayer_name"
	ColumnRecordedAt = "recorded_at"
)

// NaturalKey is the composite conflict target that makes an upsert last-write-wins
// per (user, date, prayer).
var NaturalKey = []string{ColumnUserID, ColumnDate, ColumnPrayerName}

var (
	// ErrUnsupportedConflictTarget is returned for conflict targets the backend has no unique constraint for
	ErrUnsupportedConflictTarget = errors.New("unsupported conflict target")
	// ErrUnsupportedOrder is returned for an unknown order-by column
	ErrUnsupportedOrder = errors.New("unsupported order column")
)

// Entry is the wire shape of a prayer entry. It has no synced flag;
// that is local bookkeeping only.
type Entry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	PrayerName string    `json:"prayer_name"`
	Date       string    `json:"date"`
	Status     string    `json:"status"`
	Mode       string    `json:"mode,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// FromModel strips local-only fields from e
func FromModel(e models.PrayerEntry) Entry {
	return Entry{
		ID:         e.ID,
		UserID:     e.UserID,
		PrayerName: string(e.Prayer),
		Date:       e.Date,
		Status:     string(e.Status),
		Mode:       string(e.Mode),
		RecordedAt: e.RecordedAt,
	}
}

// ToModel converts a remote row into a local entry with the given synced flag
func (e Entry) ToModel(synced bool) models.PrayerEntry {
	return models.PrayerEntry{
		ID:         e.ID,
		UserID:     e.UserID,
		Prayer:     models.Prayer(e.PrayerName),
		Date:       e.Date,
		Status:     models.Status(e.Status),
		Mode:       models.Mode(e.Mode),
		RecordedAt: e.RecordedAt,
		Synced:     synced,
	}
}

// NaturalKey returns the (user, date, prayer) identity of e
func (e Entry) NaturalKey() string {
	return e.UserID + "|" + e.Date + "|" + e.PrayerName
}

// UpsertOptions controls conflict handling for UpsertEntries
type UpsertOptions struct {
	// ConflictTarget names the unique columns that identify an existing row.
	// Empty means the primary key.
	ConflictTarget []string
	// IgnoreDuplicates keeps the existing row on conflict instead of overwriting it.
	IgnoreDuplicates bool
}

// Query filters and orders SelectEntries
type Query struct {
	UserID     string
	OrderBy    string // defaults to recorded_at
	Descending bool
	Limit      int // 0 means no limit
}

// Store is the hosted backend as seen by the sync engine
type Store interface {
	UpsertEntries(ctx context.Context, rows []Entry, opts UpsertOptions) error
	SelectEntries(ctx context.Context, q Query) ([]Entry, error)
	// UpsertProfile stores the user's settings as an opaque JSON document
	UpsertProfile(ctx context.Context, userID string, settings json.RawMessage) error
}

// ResolveConflictTarget validates target against the unique constraints the
// remote schema defines and returns it in canonical column order.
func ResolveConflictTarget(target []string) ([]string, error) {
	if len(target) == 0 {
		return []string{ColumnID}, nil
	}
	if len(target) == 1 && target[0] == ColumnID {
		return []string{ColumnID}, nil
	}
	if len(target) == len(NaturalKey) {
		seen := make(map[string]bool, len(target))
		for _, c := range target {
			seen[strings.ToLower(strings.TrimSpace(c))] = true
		}
		match := true
		for _, c := range NaturalKey {
			if !seen[c] {
				match = false
				break
			}
		}
		if match {
			return NaturalKey, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedConflictTarget, strings.Join(target, ","))
}

// ResolveOrder validates an order-by column, defaulting to recorded_at
func ResolveOrder(column string) (string, error) {
	switch column {
	case "", ColumnRecordedAt:
		return ColumnRecordedAt, nil
	case ColumnDate, ColumnID:
		return column, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedOrder, column)
}
