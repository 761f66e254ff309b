package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/salahlog/internal/constants"
)

// ErrInvalidEntry is returned when a prayer entry fails validation
var ErrInvalidEntry = errors.New("invalid prayer entry")

// Prayer identifies one of the five daily prayers
type Prayer string

const (
	Fajr    Prayer = "fajr"
	Dhuhr   Prayer = "dhuhr"
	Asr     Prayer = "asr"
	Maghrib Prayer = "maghrib"
	Isha    Prayer = "isha"
)

// Prayers lists the daily prayers in the order they are performed
var Prayers = []Prayer{Fajr, Dhuhr, Asr, Maghrib, Isha}

// Status is the recorded outcome of a prayer
type Status string

const (
	StatusNotMarked Status = "not_marked"
	StatusOnTime    Status = "on_time"
	StatusLate      Status = "late"
	StatusMissed    Status = "missed"
)

// Mode records how an on-time prayer was performed
type Mode string

const (
	ModeNone         Mode = ""
	ModeCongregation Mode = "congregation"
	ModeIndividual   Mode = "individual"
)

// ParsePrayer parses a prayer name case-insensitively
func ParsePrayer(s string) (Prayer, error) {
	p := Prayer(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown prayer %q (expected one of fajr, dhuhr, asr, maghrib, isha)", s)
	}
	return p, nil
}

func (p Prayer) Valid() bool {
	for _, known := range Prayers {
		if p == known {
			return true
		}
	}
	return false
}

// Title returns the display name of the prayer
func (p Prayer) Title() string {
	if p == "" {
		return ""
	}
	return strings.ToUpper(string(p[:1])) + string(p[1:])
}

// ParseStatus accepts the stored form as well as a few shorthands used on the command line
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on_time", "on-time", "ontime", "done", "prayed":
		return StatusOnTime, nil
	case "late", "qada":
		return StatusLate, nil
	case "missed", "miss":
		return StatusMissed, nil
	case "not_marked", "not-marked", "unmarked", "clear", "":
		return StatusNotMarked, nil
	}
	return "", fmt.Errorf("unknown status %q (expected on_time, late, missed or not_marked)", s)
}

func (s Status) Valid() bool {
	switch s {
	case StatusNotMarked, StatusOnTime, StatusLate, StatusMissed:
		return true
	}
	return false
}

// Marked reports whether the user has recorded any outcome for the prayer
func (s Status) Marked() bool {
	return s != StatusNotMarked && s != ""
}

// Completed reports whether the prayer was performed, on time or late
func (s Status) Completed() bool {
	return s == StatusOnTime || s == StatusLate
}

// ParseMode parses a mode; an empty string means no mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return ModeNone, nil
	case "congregation", "jamaah", "jamaat", "group":
		return ModeCongregation, nil
	case "individual", "alone", "solo":
		return ModeIndividual, nil
	}
	return "", fmt.Errorf("unknown mode %q (expected congregation or individual)", s)
}

func (m Mode) Valid() bool {
	return m == ModeNone || m == ModeCongregation || m == ModeIndividual
}

// PrayerEntry is one user's recorded outcome for one prayer on one date
type PrayerEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Prayer     Prayer    `json:"prayer_name"`
	Date       string    `json:"date"` // YYYY-MM-DD
	Status     Status    `json:"status"`
	Mode       Mode      `json:"mode,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	Synced     bool      `json:"synced"`
}

func (e *PrayerEntry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidEntry)
	}
	if strings.TrimSpace(e.UserID) == "" {
		return fmt.Errorf("%w: user id cannot be empty", ErrInvalidEntry)
	}
	if !e.Prayer.Valid() {
		return fmt.Errorf("%w: unknown prayer %q", ErrInvalidEntry, e.Prayer)
	}
	if _, err := time.Parse(constants.DateFormat, e.Date); err != nil {
		return fmt.Errorf("%w: invalid date format (expected YYYY-MM-DD): %v", ErrInvalidEntry, err)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidEntry, e.Status)
	}
	if !e.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidEntry, e.Mode)
	}
	if e.Mode != ModeNone && e.Status != StatusOnTime {
		return fmt.Errorf("%w: mode is only recorded for on-time prayers", ErrInvalidEntry)
	}
	if e.RecordedAt.IsZero() {
		return fmt.Errorf("%w: recorded_at cannot be empty", ErrInvalidEntry)
	}
	return nil
}

// NaturalKey returns the (user, date, prayer) triple that is unique per entry
func (e *PrayerEntry) NaturalKey() string {
	return e.UserID + "|" + e.Date + "|" + string(e.Prayer)
}
