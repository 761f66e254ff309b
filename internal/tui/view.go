package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/salahlog/internal/models"
)

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusOnTime:
		return "on time"
	case models.StatusLate:
		return "late"
	case models.StatusMissed:
		return "missed"
	default:
		return "not marked"
	}
}

func statusBadge(s models.Status) string {
	switch s {
	case models.StatusOnTime:
		return onTimeStyle.Render("✓ on time")
	case models.StatusLate:
		return lateStyle.Render("~ late")
	case models.StatusMissed:
		return missedStyle.Render("✗ missed")
	default:
		return mutedStyle.Render("· not marked")
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	title := "salahlog · " + m.date
	if m.date == m.tracker.Today() {
		title += " (today)"
	}

	var rows strings.Builder
	for i, p := range models.Prayers {
		cursor := "  "
		name := fmt.Sprintf("%-8s", p.Title())
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
			name = cursorStyle.Render(name)
		}
		line := cursor + name + " " + statusBadge(m.day.Status(p))
		if mode := m.day.Modes[p]; mode != models.ModeNone {
			line += mutedStyle.Render(" (" + string(mode) + ")")
		}
		rows.WriteString(line + "\n")
	}

	summary := summaryStyle.Render(fmt.Sprintf(
		"Streak %d · On time %.0f%% · Pending %d",
		m.stats.Streak, m.stats.OnTimeRatio*100, m.pending))

	parts := []string{titleStyle.Render(title), "", rows.String(), summary}
	if m.motivation != "" {
		parts = append(parts, quoteStyle.Render(m.motivation))
	}
	if m.err != nil {
		parts = append(parts, dangerStyle.Render("Error: "+m.err.Error()))
	} else if m.status != "" {
		parts = append(parts, mutedStyle.Render(m.status))
	}
	parts = append(parts, "", m.help.View(m.keys))

	return docStyle.Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
