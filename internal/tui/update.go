package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/salahlog/internal/models"
	"github.com/julianstephens/salahlog/internal/syncer"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case loadedMsg:
		if msg.date != m.date {
			// A newer load for another day is on its way
			return m, nil
		}
		m.err = msg.err
		if msg.err != nil {
			return m, nil
		}
		firstLoad := m.motivation == ""
		m.day, m.stats, m.pending = msg.day, msg.stats, msg.pending
		if firstLoad {
			return m, m.fetchMotivation()
		}

	case markedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("%s marked %s", msg.entry.Prayer.Title(), statusLabel(msg.entry.Status))
		if m.cursor < len(models.Prayers)-1 && msg.entry.Status.Marked() {
			m.cursor++
		}
		return m, m.load()

	case syncedMsg:
		if msg.err != nil {
			m.status = "sync failed: " + msg.err.Error()
		} else if msg.report.Status != syncer.StatusNothingToDo || !msg.background {
			m.status = msg.report.String()
		}
		cmds := []tea.Cmd{m.load()}
		if msg.background {
			cmds = append(cmds, waitForSync(m.syncs))
		}
		return m, tea.Batch(cmds...)

	case motivationMsg:
		m.motivation = msg.text

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(models.Prayers)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.PrevDay):
		return m.selectDate(m.shiftDate(-1))
	case key.Matches(msg, m.keys.NextDay):
		return m.selectDate(m.shiftDate(1))
	case key.Matches(msg, m.keys.Today):
		return m.selectDate(m.tracker.Today())
	case key.Matches(msg, m.keys.OnTime):
		return m, m.mark(models.StatusOnTime, models.ModeIndividual)
	case key.Matches(msg, m.keys.Congregation):
		return m, m.mark(models.StatusOnTime, models.ModeCongregation)
	case key.Matches(msg, m.keys.Late):
		return m, m.mark(models.StatusLate, models.ModeNone)
	case key.Matches(msg, m.keys.Missed):
		return m, m.mark(models.StatusMissed, models.ModeNone)
	case key.Matches(msg, m.keys.Clear):
		return m, m.mark(models.StatusNotMarked, models.ModeNone)
	case key.Matches(msg, m.keys.Sync):
		m.status = "syncing..."
		return m, m.syncNow()
	}
	return m, nil
}

func (m Model) selectDate(date string) (tea.Model, tea.Cmd) {
	if date == m.date {
		return m, nil
	}
	m.date = date
	m.day = models.NewDailyLog(date)
	m.cursor = 0
	return m, m.load()
}
