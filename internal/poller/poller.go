// Package poller runs a callback on a fixed interval.
package poller

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/eldtechnologies/charette/internal/metrics"
)

// DefaultInterval is the base polling cadence of a session view.
const DefaultInterval = 3 * time.Second

// Func is invoked on every tick. The context is cancelled when the poller stops.
type Func func(ctx context.Context)

// Poller invokes its callback once per interval while running. The first
// tick fires one full interval after Start. Ticks never overlap: ticks that
// come due while the callback is still running are discarded, and the next
// call waits for the following interval boundary.
type Poller struct {
	name     string
	interval time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	fn     Func
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped poller.
func New(name string, interval time.Duration, fn Func, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		name:     name,
		interval: interval,
		fn:       fn,
		logger:   logger.With().Str("poller", name).Logger(),
	}
}

// Interval returns the tick period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// SetFunc replaces the callback. The next tick uses fn.
func (p *Poller) SetFunc(fn Func) {
	p.mu.Lock()
	p.fn = fn
	p.mu.Unlock()
}

// SetEnabled starts or stops the poller.
func (p *Poller) SetEnabled(enabled bool) {
	if enabled {
		p.Start()
	} else {
		p.Stop()
	}
}

// Running reports whether the poller is started.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Start begins ticking. Starting a running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop cancels the pending tick and waits for an in-flight callback to
// return. Stopping a stopped poller is a no-op. Stop must not be called
// from the callback itself.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			p.tick(ctx)
			// The ticker buffers one tick; drop it so a slow callback is
			// not followed by an immediate catch-up call.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	p.mu.Lock()
	fn := p.fn
	p.mu.Unlock()

	if fn == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			metrics.PollPanics.WithLabelValues(p.name).Inc()
			p.logger.Error().Interface("panic", r).Msg("poll callback panicked")
		}
	}()

	metrics.PollTicks.WithLabelValues(p.name).Inc()
	fn(ctx)
}
