package utils

import (
	"testing"
	"time"
)

func TestResolveDate(t *testing.T) {
	now := time.Date(2026, 3, 18, 14, 0, 0, 0, time.UTC) // a Wednesday

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "empty means today", input: "", want: "2026-03-18"},
		{name: "today keyword", input: "Today", want: "2026-03-18"},
		{name: "iso date", input: "2026-02-01", want: "2026-02-01"},
		{name: "yesterday", input: "yesterday", want: "2026-03-17"},
		{name: "gibberish", input: "flibbertigibbet", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveDate(tt.input, now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveDate(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveDate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDaysBack(t *testing.T) {
	today := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	got := DaysBack(today, 3)
	want := []string{"2026-03-01", "2026-02-28", "2026-02-27"}
	if len(got) != len(want) {
		t.Fatalf("DaysBack() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("DaysBack()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
