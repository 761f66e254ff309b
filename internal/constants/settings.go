package constants

const (
	// General Settings
	SettingTimingMode = "timing_mode"
	SettingTheme      = "theme"
	SettingStrictness = "strictness"
	SettingLocale     = "locale"
	SettingTimezone   = "timezone"

	// Manual prayer time settings are stored as "time_<prayer>"
	SettingPrayerTimePrefix = "time_"

	// Timing modes
	TimingModeAuto   = "auto"
	TimingModeManual = "manual"

	// Strictness levels
	StrictnessLenient  = "lenient"
	StrictnessStandard = "standard"
	StrictnessStrict   = "strict"

	// Default Settings Values
	DefaultTimingMode = TimingModeAuto
	DefaultTheme      = "system"
	DefaultStrictness = StrictnessStandard
	DefaultLocale     = "en"
	DefaultTimezone   = "Local" // Use system local timezone by default
)
