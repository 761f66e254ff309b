package models

import (
	"errors"
	"testing"
	"time"
)

func validEntry() PrayerEntry {
	return PrayerEntry{
		ID:         "entry-1",
		UserID:     "user-a",
		Prayer:     Fajr,
		Date:       "2026-01-15",
		Status:     StatusOnTime,
		Mode:       ModeCongregation,
		RecordedAt: time.Date(2026, 1, 15, 5, 30, 0, 0, time.UTC),
	}
}

func TestPrayerEntry_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *PrayerEntry)
		wantErr bool
	}{
		{name: "valid on-time congregation", mutate: func(e *PrayerEntry) {}},
		{name: "valid late without mode", mutate: func(e *PrayerEntry) { e.Status = StatusLate; e.Mode = ModeNone }},
		{name: "valid not marked", mutate: func(e *PrayerEntry) { e.Status = StatusNotMarked; e.Mode = ModeNone }},
		{name: "empty id", mutate: func(e *PrayerEntry) { e.ID = "" }, wantErr: true},
		{name: "empty user", mutate: func(e *PrayerEntry) { e.UserID = " " }, wantErr: true},
		{name: "unknown prayer", mutate: func(e *PrayerEntry) { e.Prayer = "tahajjud" }, wantErr: true},
		{name: "bad date", mutate: func(e *PrayerEntry) { e.Date = "15/01/2026" }, wantErr: true},
		{name: "unknown status", mutate: func(e *PrayerEntry) { e.Status = "skipped" }, wantErr: true},
		{name: "unknown mode", mutate: func(e *PrayerEntry) { e.Mode = "online" }, wantErr: true},
		{name: "mode on late prayer", mutate: func(e *PrayerEntry) { e.Status = StatusLate }, wantErr: true},
		{name: "zero recorded at", mutate: func(e *PrayerEntry) { e.RecordedAt = time.Time{} }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validEntry()
			tt.mutate(&e)
			err := e.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEntry) {
				t.Errorf("Validate() error = %v, want wrapped ErrInvalidEntry", err)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"on_time", StatusOnTime, false},
		{"On-Time", StatusOnTime, false},
		{"late", StatusLate, false},
		{"missed", StatusMissed, false},
		{"clear", StatusNotMarked, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStatus(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePrayer(t *testing.T) {
	if p, err := ParsePrayer(" Maghrib "); err != nil || p != Maghrib {
		t.Errorf("ParsePrayer(Maghrib) = %q, %v", p, err)
	}
	if _, err := ParsePrayer("witr"); err == nil {
		t.Error("ParsePrayer(witr) should fail")
	}
	if got := Isha.Title(); got != "Isha" {
		t.Errorf("Title() = %q, want Isha", got)
	}
}

func TestStatusPredicates(t *testing.T) {
	tests := []struct {
		status        Status
		wantMarked    bool
		wantCompleted bool
	}{
		{StatusNotMarked, false, false},
		{StatusOnTime, true, true},
		{StatusLate, true, true},
		{StatusMissed, true, false},
	}
	for _, tt := range tests {
		if got := tt.status.Marked(); got != tt.wantMarked {
			t.Errorf("%s.Marked() = %v, want %v", tt.status, got, tt.wantMarked)
		}
		if got := tt.status.Completed(); got != tt.wantCompleted {
			t.Errorf("%s.Completed() = %v, want %v", tt.status, got, tt.wantCompleted)
		}
	}
}

func TestDailyLog_Complete(t *testing.T) {
	log := NewDailyLog("2026-01-15")
	if log.Complete() {
		t.Fatal("empty log should not be complete")
	}
	for _, p := range Prayers {
		log.Statuses[p] = StatusOnTime
	}
	log.Statuses[Asr] = StatusLate
	if !log.Complete() {
		t.Error("log with on-time and late prayers should be complete")
	}
	log.Statuses[Isha] = StatusMissed
	if log.Complete() {
		t.Error("log with a missed prayer should not be complete")
	}
	if got := log.MarkedCount(); got != 5 {
		t.Errorf("MarkedCount() = %d, want 5", got)
	}
}
