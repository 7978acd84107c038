package log

import (
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends CBOR-encoded events to a capture file.
// It is safe for concurrent use.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	written int
	dropped int
	closed  bool
}

// NewFileLogger opens path for appending, creating it with mode 0644.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:    f,
		encoder: NewEncoder(f),
	}, nil
}

// Log writes an event. Encoding failures are counted, not returned; capture
// must not disturb the protocol path. Events after Close are ignored.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err != nil {
		l.dropped++
		return
	}
	l.written++
}

// Counts returns the number of events written and dropped.
func (l *FileLogger) Counts() (written, dropped int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.written, l.dropped
}

// Sync flushes the file to stable storage.
func (l *FileLogger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	return l.file.Sync()
}

// Close closes the file. It is safe to call more than once.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
