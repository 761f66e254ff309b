package prayers

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/salahlog/internal/models"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	onTimeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	lateStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	missedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	quoteStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("111"))
)

func statusSymbol(s models.Status) string {
	switch s {
	case models.StatusOnTime:
		return "✓"
	case models.StatusLate:
		return "~"
	case models.StatusMissed:
		return "✗"
	default:
		return "·"
	}
}

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

func styleFor(s models.Status) lipgloss.Style {
	switch s {
	case models.StatusOnTime:
		return onTimeStyle
	case models.StatusLate:
		return lateStyle
	case models.StatusMissed:
		return missedStyle
	default:
		return pendingStyle
	}
}

// renderDay lists the five prayers of day, one per line
func renderDay(day models.DailyLog) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(day.Date))
	b.WriteString("\n")
	for _, p := range models.Prayers {
		status := day.Status(p)
		line := fmt.Sprintf("  %s %-8s %s", statusSymbol(status), p.Title(), statusLabel(status))
		if mode := day.Modes[p]; mode != models.ModeNone {
			line += fmt.Sprintf(" (%s)", mode)
		}
		b.WriteString(styleFor(status).Render(line))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "  %d/%d marked", day.MarkedCount(), len(models.Prayers))
	if day.Complete() {
		b.WriteString(onTimeStyle.Render("  complete"))
	}
	return b.String()
}

// historyRow renders day as "2026-03-10  ✓ ✓ ~ ✗ ·  4/5"
func historyRow(day models.DailyLog) string {
	symbols := make([]string, 0, len(models.Prayers))
	for _, p := range models.Prayers {
		status := day.Status(p)
		symbols = append(symbols, styleFor(status).Render(statusSymbol(status)))
	}
	row := fmt.Sprintf("%s  %s  %d/%d", day.Date, strings.Join(symbols, " "), day.MarkedCount(), len(models.Prayers))
	if day.Complete() {
		row += " ★"
	}
	return row
}

func historyHeader() string {
	names := make([]string, 0, len(models.Prayers))
	for _, p := range models.Prayers {
		names = append(names, strings.ToUpper(string(p[:1])))
	}
	return headerStyle.Render(fmt.Sprintf("%-10s  %s", "Date", strings.Join(names, " ")))
}
