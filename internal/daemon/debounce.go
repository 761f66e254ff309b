package daemon

import (
	"context"
	"sync"
	"time"
)

// Debouncer collapses bursts of Notify calls into one signal on C, sent once
// no Notify has arrived for the quiet period.
type Debouncer struct {
	quiet time.Duration
	C     chan struct{}

	mu       sync.Mutex
	queuedAt time.Time
	now      func() time.Time
}

func NewDebouncer(quiet time.Duration) *Debouncer {
	return &Debouncer{
		quiet: quiet,
		C:     make(chan struct{}, 1),
		now:   time.Now,
	}
}

// Notify records a change. It never blocks.
func (d *Debouncer) Notify() {
	d.mu.Lock()
	d.queuedAt = d.now()
	d.mu.Unlock()
}

// Run checks the queue every half quiet period until ctx ends.
func (d *Debouncer) Run(ctx context.Context) {
	tick := d.quiet / 2
	if tick <= 0 {
		tick = time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.flush()
		}
	}
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	ready := !d.queuedAt.IsZero() && d.now().Sub(d.queuedAt) >= d.quiet
	if ready {
		d.queuedAt = time.Time{}
	}
	d.mu.Unlock()

	if ready {
		select {
		case d.C <- struct{}{}:
		default:
		}
	}
}
