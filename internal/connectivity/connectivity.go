// Package connectivity reports whether the remote backend is reachable.
package connectivity

import (
	"context"
	"net"
	"time"

	"github.com/julianstephens/salahlog/internal/constants"
)

// Checker answers "are we online?" for the sync engine.
type Checker interface {
	Online(ctx context.Context) bool
}

// Static is a fixed answer, used for --offline and tests.
type Static bool

func (s Static) Online(context.Context) bool { return bool(s) }

// Func adapts a plain function to Checker.
type Func func(ctx context.Context) bool

func (f Func) Online(ctx context.Context) bool { return f(ctx) }

// DialProbe reports online when a TCP connection to Addr succeeds within Timeout.
type DialProbe struct {
	Addr    string
	Timeout time.Duration

	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewDialProbe(addr string) *DialProbe {
	return &DialProbe{
		Addr:    addr,
		Timeout: constants.DefaultProbeTimeout,
	}
}

func (p *DialProbe) Online(ctx context.Context) bool {
	if p.Addr == "" {
		return false
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dial := p.dial
	if dial == nil {
		var d net.Dialer
		dial = d.DialContext
	}
	conn, err := dial(ctx, "tcp", p.Addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
