package transport

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fountain-coach/midi2-go/pkg/log"
)

// Loopback is an in-memory hub of named endpoints. A host opens an
// Endpoint per instrument; a controller resolves it by display name and
// delivers words to it or observes what it sends.
type Loopback struct {
	mu        sync.RWMutex
	endpoints map[string]*Endpoint
	queueSize int
}

// NewLoopback returns a hub whose endpoints buffer up to queueSize inbound
// and outbound messages each. A non-positive size selects DefaultQueueSize.
func NewLoopback(queueSize int) *Loopback {
	return &Loopback{
		endpoints: make(map[string]*Endpoint),
		queueSize: queueSize,
	}
}

// Open creates an endpoint with the given display name.
func (l *Loopback) Open(displayName string) (*Endpoint, error) {
	if displayName == "" {
		return nil, ErrEmptyName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.endpoints[displayName]; ok {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateName, displayName)
	}
	ep := &Endpoint{
		name:     displayName,
		id:       uuid.NewString(),
		hub:      l,
		inbound:  newQueue(l.queueSize),
		outbound: newQueue(l.queueSize),
		logger:   log.NoopLogger{},
	}
	l.endpoints[displayName] = ep
	return ep, nil
}

// Resolve returns the endpoint whose display name contains substr. An exact
// match wins; otherwise the first match in sorted name order is returned.
func (l *Loopback) Resolve(substr string) (*Endpoint, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if ep, ok := l.endpoints[substr]; ok {
		return ep, true
	}
	names := make([]string, 0, len(l.endpoints))
	for name := range l.endpoints {
		if strings.Contains(name, substr) {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, false
	}
	sort.Strings(names)
	return l.endpoints[names[0]], true
}

// Deliver sends words to the endpoint resolved from substr.
func (l *Loopback) Deliver(ctx context.Context, substr string, words []uint32) error {
	ep, ok := l.Resolve(substr)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, substr)
	}
	return ep.Deliver(ctx, words)
}

// Names returns the open display names, sorted.
func (l *Loopback) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.endpoints))
	for name := range l.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (l *Loopback) remove(ep *Endpoint) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.endpoints[ep.name] == ep {
		delete(l.endpoints, ep.name)
	}
}

// Endpoint is one side of a Loopback connection. Send, Receive, and Close
// are the instrument side; Deliver, Outgoing, and Observe are the
// controller side.
type Endpoint struct {
	name string
	id   string
	hub  *Loopback

	inbound  *queue
	outbound *queue

	mu       sync.Mutex
	closed   bool
	observer func([]uint32)
	logger   log.Logger
}

// Name returns the display name.
func (e *Endpoint) Name() string { return e.name }

// ID returns the endpoint's unique session ID.
func (e *Endpoint) ID() string { return e.id }

// SetLogger sets the protocol logger for packet capture. Nil disables it.
func (e *Endpoint) SetLogger(logger log.Logger) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.logger = log.OrNoop(logger)
}

// Send queues words as outgoing from this endpoint and passes them to the
// observer, if any.
func (e *Endpoint) Send(ctx context.Context, words []uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(words) == 0 {
		return ErrEmptyMessage
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	observer := e.observer
	logger := e.logger
	e.mu.Unlock()

	e.outbound.push(words)
	logger.Log(e.packetEvent(log.DirectionOut, words))
	if observer != nil {
		observer(append([]uint32(nil), words...))
	}
	return nil
}

// Receive drains messages delivered to this endpoint.
func (e *Endpoint) Receive(ctx context.Context) ([][]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return e.inbound.drain(), nil
}

// Deliver queues words as inbound to this endpoint.
func (e *Endpoint) Deliver(ctx context.Context, words []uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(words) == 0 {
		return ErrEmptyMessage
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrClosed
	}
	logger := e.logger
	e.mu.Unlock()

	e.inbound.push(words)
	logger.Log(e.packetEvent(log.DirectionIn, words))
	return nil
}

// Outgoing drains the messages this endpoint has sent.
func (e *Endpoint) Outgoing() [][]uint32 {
	return e.outbound.drain()
}

// Observe registers fn to be called with every message this endpoint
// sends. Pass nil to remove it.
func (e *Endpoint) Observe(fn func(words []uint32)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observer = fn
}

// Stats reports queue depths and the number of inbound messages dropped on
// overflow.
func (e *Endpoint) Stats() EndpointStats {
	return EndpointStats{
		Inbound:         e.inbound.len(),
		Outbound:        e.outbound.len(),
		InboundDropped:  e.inbound.droppedCount(),
		OutboundDropped: e.outbound.droppedCount(),
	}
}

// Close removes the endpoint from its hub. It is safe to call more than once.
func (e *Endpoint) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.hub.remove(e)
	return nil
}

func (e *Endpoint) packetEvent(dir log.Direction, words []uint32) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: e.id,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Endpoint:     e.name,
		Packet:       log.NewPacketEvent(words),
	}
}

// EndpointStats is a snapshot of an endpoint's queues.
type EndpointStats struct {
	Inbound         int
	Outbound        int
	InboundDropped  uint64
	OutboundDropped uint64
}

var _ Transport = (*Endpoint)(nil)
