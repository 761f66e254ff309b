package tui

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Up           key.Binding
	Down         key.Binding
	PrevDay      key.Binding
	NextDay      key.Binding
	Today        key.Binding
	OnTime       key.Binding
	Congregation key.Binding
	Late         key.Binding
	Missed       key.Binding
	Clear        key.Binding
	Sync         key.Binding
	Help         key.Binding
	Quit         key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.OnTime, k.Late, k.Missed, k.Sync, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PrevDay, k.NextDay, k.Today},
		{k.OnTime, k.Congregation, k.Late, k.Missed, k.Clear},
		{k.Sync, k.Help, k.Quit},
	}
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PrevDay: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "previous day"),
		),
		NextDay: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "next day"),
		),
		Today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "today"),
		),
		OnTime: key.NewBinding(
			key.WithKeys("1", "enter"),
			key.WithHelp("1", "on time"),
		),
		Congregation: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "in congregation"),
		),
		Late: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "late"),
		),
		Missed: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "missed"),
		),
		Clear: key.NewBinding(
			key.WithKeys("0", "backspace"),
			key.WithHelp("0", "clear"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sync now"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
