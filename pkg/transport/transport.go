package transport

import (
	"context"
	"errors"
)

// Transport errors.
var (
	// ErrClosed indicates use of a closed endpoint or stream.
	ErrClosed = errors.New("transport closed")

	// ErrEmptyMessage indicates an attempt to send no words.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNotFound indicates a display name that matches no endpoint.
	ErrNotFound = errors.New("endpoint not found")

	// ErrEmptyName indicates an Open without a display name.
	ErrEmptyName = errors.New("endpoint name is empty")

	// ErrDuplicateName indicates an Open with a display name already in use.
	ErrDuplicateName = errors.New("endpoint name already in use")
)

// Sender sends one UMP message.
type Sender interface {
	Send(ctx context.Context, words []uint32) error
}

// Receiver drains buffered inbound UMP messages. It returns an empty slice,
// not an error, when nothing is buffered.
type Receiver interface {
	Receive(ctx context.Context) ([][]uint32, error)
}

// Transport is a bidirectional UMP endpoint.
type Transport interface {
	Sender
	Receiver
	Close() error
}
