// Package stats derives daily logs and user statistics from prayer entries.
// Nothing here is persisted; callers recompute on every read.
package stats

import (
	"sort"
	"time"

	"github.com/julianstephens/salahlog/internal/constants"
	"github.com/julianstephens/salahlog/internal/models"
)

// BuildDailyLogs groups entries by date. Entries of every user are folded
// together, so callers pass one user's entries.
func BuildDailyLogs(entries []models.PrayerEntry) map[string]models.DailyLog {
	logs := make(map[string]models.DailyLog)
	for _, e := range entries {
		day, ok := logs[e.Date]
		if !ok {
			day = models.NewDailyLog(e.Date)
			logs[e.Date] = day
		}
		day.Statuses[e.Prayer] = e.Status
		if e.Mode != models.ModeNone {
			day.Modes[e.Prayer] = e.Mode
		}
	}
	return logs
}

// Compute returns the statistics for logs as of today (in the user's zone).
func Compute(logs map[string]models.DailyLog, today time.Time) models.UserStats {
	var st models.UserStats

	for _, day := range logs {
		for _, p := range models.Prayers {
			status := day.Status(p)
			if status.Marked() {
				st.TotalMarked++
			}
			if status == models.StatusOnTime {
				st.OnTimeCount++
			}
		}
	}
	if st.TotalMarked > 0 {
		st.OnTimeRatio = float64(st.OnTimeCount) / float64(st.TotalMarked)
	}

	st.Streak = Streak(logs, today)
	st.LastCompletedDate = LastCompletedDate(logs)
	return st
}

// Streak counts consecutive complete days ending today. Today is allowed to
// be incomplete; the walk stops at the first earlier day that is not, and
// never looks further back than a year.
func Streak(logs map[string]models.DailyLog, today time.Time) int {
	streak := 0
	for i := 0; i < constants.StreakLookbackDays; i++ {
		date := today.AddDate(0, 0, -i).Format(constants.DateFormat)
		day, ok := logs[date]
		complete := ok && day.Complete()
		if complete {
			streak++
			continue
		}
		if i == 0 {
			continue
		}
		break
	}
	return streak
}

// LastCompletedDate returns the newest date with all five prayers performed,
// or "" when there is none.
func LastCompletedDate(logs map[string]models.DailyLog) string {
	dates := make([]string, 0, len(logs))
	for date := range logs {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	for _, date := range dates {
		if logs[date].Complete() {
			return date
		}
	}
	return ""
}
