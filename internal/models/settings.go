package models

// Settings represents user and device configuration
type Settings struct {
	TimingMode  string            `json:"timing_mode"`            // "auto" or "manual"
	PrayerTimes map[Prayer]string `json:"prayer_times,omitempty"` // manual prayer times, HH:MM
	Theme       string            `json:"theme"`                  // UI theme name
	Strictness  string            `json:"strictness"`             // lenient, standard or strict
	Locale      string            `json:"locale"`                 // BCP 47 language tag, e.g. "en"
	Timezone    string            `json:"timezone"`               // IANA timezone name or "Local"
}
