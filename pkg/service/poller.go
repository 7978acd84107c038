package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fountain-coach/midi2-go/pkg/transport"
)

// Poller drains a transport on a fixed interval, routes what it receives,
// and sends the replies back out on the same transport. The loop ends on
// Stop, on context cancellation, or when the transport fails to receive.
type Poller struct {
	router    *Router
	transport transport.Transport
	interval  time.Duration
	logger    *slog.Logger

	// pollMu serializes polls so a slow poll never overlaps the next tick.
	pollMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	stats   PollerStats
}

// NewPoller creates a poller feeding t into router.
func NewPoller(router *Router, t transport.Transport, cfg PollerConfig) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{
		router:    router,
		transport: t,
		interval:  cfg.Interval,
		logger:    cfg.Logger.With("handler", router.Handler()),
	}
}

// Start begins polling until Stop is called or ctx is done.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyStarted
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})

	go p.loop(ctx, p.stopCh, p.doneCh)
	p.logger.Debug("poller started", "interval", p.interval)
	return nil
}

// Stop ends polling and waits for an in-flight poll to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	done := p.doneCh
	p.mu.Unlock()

	<-done
	p.logger.Debug("poller stopped")
}

// Done returns a channel closed when the current loop exits. It returns
// nil before the first Start.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doneCh
}

// IsRunning reports whether the polling loop is active.
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Stats returns a copy of the poller counters.
func (p *Poller) Stats() PollerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *Poller) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			p.running = false
			p.mu.Unlock()
			return
		case <-stopCh:
			return
		case <-ticker.C:
			err := p.PollOnce(ctx)
			switch {
			case err == nil, errors.Is(err, context.Canceled):
			case errors.Is(err, ErrReceive):
				p.logger.Info("poller stopping", "error", err)
				p.mu.Lock()
				p.running = false
				p.mu.Unlock()
				return
			default:
				p.logger.Debug("poll failed", "error", err)
			}
		}
	}
}

// PollOnce drains the transport once, routes every received message, and
// sends the replies. Routing failures do not stop the remaining messages.
func (p *Poller) PollOnce(ctx context.Context) error {
	p.pollMu.Lock()
	defer p.pollMu.Unlock()

	msgs, err := p.transport.Receive(ctx)
	p.count(func(s *PollerStats) {
		s.Polls++
		s.Messages += uint64(len(msgs))
	})
	if err != nil {
		p.count(func(s *PollerStats) { s.Errors++ })
		return fmt.Errorf("%w: %w", ErrReceive, err)
	}

	var errs []error
	for _, words := range msgs {
		replies, err := p.router.HandleWords(words)
		if err != nil {
			p.count(func(s *PollerStats) { s.Errors++ })
			errs = append(errs, err)
		}
		for _, reply := range replies {
			if err := p.transport.Send(ctx, reply); err != nil {
				p.count(func(s *PollerStats) { s.Errors++ })
				errs = append(errs, err)
				continue
			}
			p.count(func(s *PollerStats) { s.Replies++ })
		}
	}
	return errors.Join(errs...)
}

func (p *Poller) count(fn func(*PollerStats)) {
	p.mu.Lock()
	fn(&p.stats)
	p.mu.Unlock()
}
