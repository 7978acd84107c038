package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/fountain-coach/midi2-go/pkg/config"
	"github.com/fountain-coach/midi2-go/pkg/log"
	"github.com/fountain-coach/midi2-go/pkg/registry"
	"github.com/fountain-coach/midi2-go/pkg/service"
	"github.com/fountain-coach/midi2-go/pkg/transport"
)

// binding ties one registered handler to its loopback endpoint.
type binding struct {
	name     string
	endpoint *transport.Endpoint
	router   *service.Router
	poller   *service.Poller
}

// Host owns the registry, the loopback hub, and one poller per handler.
type Host struct {
	cfg     *config.Config
	logger  *slog.Logger
	capture log.Logger

	reg      *registry.Registry
	hub      *transport.Loopback
	bindings []*binding

	mu       sync.Mutex
	sessions map[string]*service.Poller
	wg       sync.WaitGroup
}

// NewHost registers every configured handler and opens its endpoint.
func NewHost(cfg *config.Config, logger *slog.Logger, capture log.Logger) (*Host, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		cfg:      cfg,
		logger:   logger,
		capture:  log.OrNoop(capture),
		reg:      registry.New(),
		hub:      transport.NewLoopback(cfg.QueueSize),
		sessions: make(map[string]*service.Poller),
	}

	for _, hc := range cfg.Handlers {
		handler, err := config.NewHandler(hc)
		if err != nil {
			return nil, err
		}
		if err := h.reg.Register(hc.Name, handler); err != nil {
			return nil, err
		}
		ep, err := h.hub.Open(hc.Endpoint)
		if err != nil {
			return nil, err
		}
		ep.SetLogger(h.capture)

		router, err := h.newRouter(hc.Name, ep.ID())
		if err != nil {
			return nil, err
		}
		h.bindings = append(h.bindings, &binding{
			name:     hc.Name,
			endpoint: ep,
			router:   router,
			poller: service.NewPoller(router, ep, service.PollerConfig{
				Interval: cfg.PollInterval,
				Logger:   logger,
			}),
		})
		logger.Info("handler registered", "name", hc.Name, "endpoint", hc.Endpoint, "kind", hc.Kind)
	}
	return h, nil
}

func (h *Host) newRouter(name, connID string) (*service.Router, error) {
	return service.NewRouter(h.reg, service.RouterConfig{
		Handler:        name,
		DeviceID:       h.cfg.DeviceID,
		MaxMessageSize: h.cfg.MaxMessageSize,
		OnSnapshot: func(s registry.Snapshot) {
			h.logger.Info("peer snapshot", "handler", s.Handler, "properties", s.Properties())
		},
		ConnectionID:   connID,
		ProtocolLogger: h.capture,
		Logger:         h.logger,
	})
}

// Registry returns the host's handler registry.
func (h *Host) Registry() *registry.Registry { return h.reg }

// Hub returns the loopback hub the handler endpoints live on.
func (h *Host) Hub() *transport.Loopback { return h.hub }

// Endpoint returns the loopback endpoint serving handler name.
func (h *Host) Endpoint(name string) (*transport.Endpoint, bool) {
	for _, b := range h.bindings {
		if b.name == name {
			return b.endpoint, true
		}
	}
	return nil, false
}

// Start starts every handler poller.
func (h *Host) Start(ctx context.Context) error {
	for _, b := range h.bindings {
		if err := b.poller.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %w", b.name, err)
		}
	}
	return nil
}

// Serve accepts stream connections on ln until ctx is done or ln is
// closed. Each connection gets its own router for the first configured
// handler.
func (h *Host) Serve(ctx context.Context, ln net.Listener) error {
	if len(h.bindings) == 0 {
		return fmt.Errorf("%w: no handlers", service.ErrInvalidConfig)
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	target := h.bindings[0].name
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		stream := transport.NewStream(conn, transport.StreamConfig{
			QueueSize:      h.cfg.QueueSize,
			ProtocolLogger: h.capture,
			Logger:         h.logger,
		})
		if err := h.startSession(ctx, target, stream); err != nil {
			h.logger.Warn("session rejected", "remote", conn.RemoteAddr().String(), "error", err)
			stream.Close()
			continue
		}
		h.logger.Info("session opened", "id", stream.ID(), "remote", conn.RemoteAddr().String(), "handler", target)
	}
}

func (h *Host) startSession(ctx context.Context, handler string, stream *transport.Stream) error {
	router, err := h.newRouter(handler, stream.ID())
	if err != nil {
		return err
	}
	poller := service.NewPoller(router, stream, service.PollerConfig{
		Interval: h.cfg.PollInterval,
		Logger:   h.logger,
	})
	h.mu.Lock()
	h.sessions[stream.ID()] = poller
	h.mu.Unlock()

	if err := poller.Start(ctx); err != nil {
		h.mu.Lock()
		delete(h.sessions, stream.ID())
		h.mu.Unlock()
		return err
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		<-poller.Done()
		stream.Close()

		h.mu.Lock()
		delete(h.sessions, stream.ID())
		h.mu.Unlock()
		h.logger.Info("session closed", "id", stream.ID(), "dropped", stream.Dropped())
	}()
	return nil
}

// Sessions returns the number of open stream sessions.
func (h *Host) Sessions() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Stop stops every poller, closes sessions and endpoints.
func (h *Host) Stop() {
	h.mu.Lock()
	sessions := make([]*service.Poller, 0, len(h.sessions))
	for _, p := range h.sessions {
		sessions = append(sessions, p)
	}
	h.mu.Unlock()

	for _, p := range sessions {
		p.Stop()
	}
	h.wg.Wait()

	for _, b := range h.bindings {
		b.poller.Stop()
		stats := b.poller.Stats()
		h.logger.Info("handler stopped", "name", b.name,
			"polls", stats.Polls, "messages", stats.Messages, "replies", stats.Replies, "errors", stats.Errors)
		b.endpoint.Close()
	}
}
