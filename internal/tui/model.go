// Package tui is the interactive "today" screen: the five prayers of a day,
// marked with single keys and synced in the background.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/salahlog/internal/constants"
	"github.com/julianstephens/salahlog/internal/models"
	"github.com/julianstephens/salahlog/internal/motivation"
	"github.com/julianstephens/salahlog/internal/syncer"
	"github.com/julianstephens/salahlog/internal/tracker"
)

type loadedMsg struct {
	date    string
	day     models.DailyLog
	stats   models.UserStats
	pending int
	err     error
}

type markedMsg struct {
	entry models.PrayerEntry
	err   error
}

type syncedMsg struct {
	report syncer.Report
	err    error
	// background results come from the debounced loop and re-arm the listener
	background bool
}

type motivationMsg struct {
	text string
}

type Model struct {
	tracker  *tracker.Tracker
	userID   string
	provider motivation.Provider
	syncs    <-chan syncedMsg

	keys KeyMap
	help help.Model

	date       string
	day        models.DailyLog
	stats      models.UserStats
	pending    int
	cursor     int
	motivation string
	status     string
	err        error
	width      int
	quitting   bool
}

// NewModel builds the screen for userID. syncs delivers background sync
// results and may be nil.
func NewModel(t *tracker.Tracker, userID string, provider motivation.Provider, syncs <-chan syncedMsg) Model {
	if provider == nil {
		provider = motivation.Static{}
	}
	today := t.Today()
	return Model{
		tracker:  t,
		userID:   userID,
		provider: provider,
		syncs:    syncs,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		date:     today,
		day:      models.NewDailyLog(today),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(), waitForSync(m.syncs))
}

// load reads the selected day, the stats and the pending count
func (m Model) load() tea.Cmd {
	t, userID, date := m.tracker, m.userID, m.date
	return func() tea.Msg {
		ctx := context.Background()
		day, err := t.DailyLog(ctx, userID, date)
		if err != nil {
			return loadedMsg{date: date, err: err}
		}
		stats, err := t.Stats(ctx, userID)
		if err != nil {
			return loadedMsg{date: date, err: err}
		}
		pending, err := t.Pending(ctx, userID)
		return loadedMsg{date: date, day: day, stats: stats, pending: pending, err: err}
	}
}

func (m Model) mark(status models.Status, mode models.Mode) tea.Cmd {
	t := m.tracker
	req := tracker.MarkRequest{
		UserID: m.userID,
		Date:   m.date,
		Prayer: models.Prayers[m.cursor],
		Status: status,
		Mode:   mode,
	}
	return func() tea.Msg {
		entry, err := t.Mark(context.Background(), req)
		return markedMsg{entry: entry, err: err}
	}
}

func (m Model) syncNow() tea.Cmd {
	t, userID := m.tracker, m.userID
	return func() tea.Msg {
		report, err := t.Sync(context.Background(), userID)
		return syncedMsg{report: report, err: err}
	}
}

func (m Model) fetchMotivation() tea.Cmd {
	provider, stats := m.provider, m.stats
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		msg, err := provider.Message(ctx, stats)
		if err != nil {
			return motivationMsg{}
		}
		return motivationMsg{text: msg.Text}
	}
}

func waitForSync(ch <-chan syncedMsg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		msg.background = true
		return msg
	}
}

// shiftDate moves the selected day by delta days, never past today.
func (m Model) shiftDate(delta int) string {
	d, err := time.Parse(constants.DateFormat, m.date)
	if err != nil {
		return m.tracker.Today()
	}
	next := d.AddDate(0, 0, delta).Format(constants.DateFormat)
	if today := m.tracker.Today(); next > today {
		return today
	}
	return next
}
