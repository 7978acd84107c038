package pe

import "sync"

// RequestIDs hands out request IDs for outgoing requests. IDs start at 1,
// increase by one, and wrap back to 1 after MaxRequestID. Zero is never
// returned. The zero value is ready to use.
type RequestIDs struct {
	mu   sync.Mutex
	last uint32
}

// NewRequestIDs returns a source whose first ID is start. A start of zero
// or above MaxRequestID begins at 1.
func NewRequestIDs(start uint32) *RequestIDs {
	r := &RequestIDs{}
	if start > 0 && start <= MaxRequestID {
		r.last = start - 1
	}
	return r
}

// Next returns the next request ID.
func (r *RequestIDs) Next() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.last++
	if r.last > MaxRequestID {
		r.last = 1
	}
	return r.last
}
