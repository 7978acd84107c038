package registry

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fountain-coach/midi2-go/pkg/jsonvalue"
	"github.com/fountain-coach/midi2-go/pkg/vendor"
)

// Registry errors.
var (
	ErrNotFound   = errors.New("handler not found")
	ErrDuplicate  = errors.New("handler already registered")
	ErrEmptyName  = errors.New("handler name is empty")
	ErrNilHandler = errors.New("handler is nil")
	ErrNotObject  = errors.New("value is not a JSON object")
)

// Handler owns the state behind one registered name.
type Handler interface {
	// HandleVendor applies a vendor topic. It returns nil when the topic
	// is not one the handler understands.
	HandleVendor(topic string, data jsonvalue.Value) (*Snapshot, error)

	// HandlePropertySet applies named numeric properties and returns the
	// resulting state.
	HandlePropertySet(props map[string]float64) (*Snapshot, error)

	// Snapshot returns the current state.
	Snapshot() Snapshot
}

type entry struct {
	mu      sync.Mutex
	handler Handler
}

// Registry maps names to handlers. The zero value is not usable; call New.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]*entry
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{handlers: make(map[string]*entry)}
}

// Register adds h under name.
func (r *Registry) Register(name string, h Handler) error {
	if name == "" {
		return ErrEmptyName
	}
	if h == nil {
		return fmt.Errorf("%w: %q", ErrNilHandler, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, name)
	}
	r.handlers[name] = &entry{handler: h}
	return nil
}

// Unregister removes name and reports whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.handlers[name]; !ok {
		return false
	}
	delete(r.handlers, name)
	return true
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	e, ok := r.entry(name)
	if !ok {
		return nil, false
	}
	return e.handler, true
}

// Resolve returns the first registered name, in sorted order, containing
// substr.
func (r *Registry) Resolve(substr string) (string, bool) {
	for _, name := range r.Names() {
		if strings.Contains(name, substr) {
			return name, true
		}
	}
	return "", false
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}

// DispatchVendor delivers msg to the handler under name. The snapshot is
// nil when the handler ignored the topic.
func (r *Registry) DispatchVendor(name string, msg vendor.Message) (*Snapshot, error) {
	var snap *Snapshot
	err := r.with(name, func(h Handler) error {
		var err error
		snap, err = h.HandleVendor(msg.Topic, msg.Data)
		return err
	})
	return stamp(snap, name), err
}

// DispatchPropertySet delivers props to the handler under name.
func (r *Registry) DispatchPropertySet(name string, props map[string]float64) (*Snapshot, error) {
	var snap *Snapshot
	err := r.with(name, func(h Handler) error {
		var err error
		snap, err = h.HandlePropertySet(props)
		return err
	})
	return stamp(snap, name), err
}

// Snapshot returns the current state of the handler under name.
func (r *Registry) Snapshot(name string) (Snapshot, error) {
	var snap Snapshot
	err := r.with(name, func(h Handler) error {
		snap = h.Snapshot()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	snap.Handler = name
	return snap, nil
}

func (r *Registry) entry(name string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.handlers[name]
	return e, ok
}

// with runs fn while holding the per-handler lock.
func (r *Registry) with(name string, fn func(Handler) error) error {
	e, ok := r.entry(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.handler)
}

func stamp(snap *Snapshot, name string) *Snapshot {
	if snap != nil {
		snap.Handler = name
	}
	return snap
}
