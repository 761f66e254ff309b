package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/salahlog/internal/daemon"
	"github.com/julianstephens/salahlog/internal/motivation"
	"github.com/julianstephens/salahlog/internal/tracker"
)

type Options struct {
	Tracker    *tracker.Tracker
	UserID     string
	Motivation motivation.Provider
	// Debounce is the quiet period after the last mark before a
	// background push. Zero disables background sync.
	Debounce time.Duration
}

// Run shows the screen until the user quits or ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	if opts.Tracker == nil {
		return fmt.Errorf("tui: tracker is required")
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	var syncs chan syncedMsg
	if opts.Debounce > 0 && opts.Tracker.Engine() != nil {
		debouncer := daemon.NewDebouncer(opts.Debounce)
		opts.Tracker.SetNotifier(debouncer)
		defer opts.Tracker.SetNotifier(nil)

		syncs = make(chan syncedMsg, 1)
		wg.Add(2)
		go func() {
			defer wg.Done()
			debouncer.Run(ctx)
		}()
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-debouncer.C:
					report, err := opts.Tracker.Sync(ctx, opts.UserID)
					select {
					case syncs <- syncedMsg{report: report, err: err}:
					case <-ctx.Done():
						return
					}
				}
			}
		}()
	}

	m := NewModel(opts.Tracker, opts.UserID, opts.Motivation, syncs)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("tui: %w", err)
	}
	return nil
}
