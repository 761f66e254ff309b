package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/salahlog/internal/constants"
)

// MapToSettings converts a map of key-value pairs to a Settings struct.
func MapToSettings(data map[string]string) (Settings, error) {
	settings := Settings{}

	for key, value := range data {
		switch key {
		case constants.SettingTimingMode:
			settings.TimingMode = value
		case constants.SettingTheme:
			settings.Theme = value
		case constants.SettingStrictness:
			settings.Strictness = value
		case constants.SettingLocale:
			settings.Locale = value
		case constants.SettingTimezone:
			settings.Timezone = value
		default:
			if !strings.HasPrefix(key, constants.SettingPrayerTimePrefix) {
				continue
			}
			p := Prayer(strings.TrimPrefix(key, constants.SettingPrayerTimePrefix))
			if !p.Valid() {
				return Settings{}, fmt.Errorf("unknown prayer in setting %q", key)
			}
			if value == "" {
				continue
			}
			if _, err := time.Parse(constants.TimeFormat, value); err != nil {
				return Settings{}, fmt.Errorf("parsing %s: %w", key, err)
			}
			if settings.PrayerTimes == nil {
				settings.PrayerTimes = make(map[Prayer]string)
			}
			settings.PrayerTimes[p] = value
		}
	}
	return settings, nil
}

// SettingsToMap converts a Settings struct to a map of key-value pairs.
func SettingsToMap(settings Settings) map[string]string {
	m := map[string]string{
		constants.SettingTimingMode: settings.TimingMode,
		constants.SettingTheme:      settings.Theme,
		constants.SettingStrictness: settings.Strictness,
		constants.SettingLocale:     settings.Locale,
		constants.SettingTimezone:   settings.Timezone,
	}
	for p, t := range settings.PrayerTimes {
		m[constants.SettingPrayerTimePrefix+string(p)] = t
	}
	return m
}

// ApplyDefaultSettings applies default values to missing settings.
func ApplyDefaultSettings(settings *Settings) {
	if settings.TimingMode == "" {
		settings.TimingMode = constants.DefaultTimingMode
	}
	if settings.Theme == "" {
		settings.Theme = constants.DefaultTheme
	}
	if settings.Strictness == "" {
		settings.Strictness = constants.DefaultStrictness
	}
	if settings.Locale == "" {
		settings.Locale = constants.DefaultLocale
	}
	if settings.Timezone == "" {
		settings.Timezone = constants.DefaultTimezone
	}
}

// ValidateSettings checks enumerated settings and manual prayer times
func ValidateSettings(settings Settings) error {
	switch settings.TimingMode {
	case constants.TimingModeAuto, constants.TimingModeManual:
	default:
		return fmt.Errorf("invalid timing mode %q (expected auto or manual)", settings.TimingMode)
	}
	switch settings.Strictness {
	case constants.StrictnessLenient, constants.StrictnessStandard, constants.StrictnessStrict:
	default:
		return fmt.Errorf("invalid strictness %q (expected lenient, standard or strict)", settings.Strictness)
	}
	for p, t := range settings.PrayerTimes {
		if !p.Valid() {
			return fmt.Errorf("unknown prayer %q in prayer times", p)
		}
		if _, err := time.Parse(constants.TimeFormat, t); err != nil {
			return fmt.Errorf("invalid time for %s (expected HH:MM): %w", p, err)
		}
	}
	if settings.TimingMode == constants.TimingModeManual && len(settings.PrayerTimes) != len(Prayers) {
		return fmt.Errorf("manual timing mode requires a time for all %d prayers", len(Prayers))
	}
	return nil
}
