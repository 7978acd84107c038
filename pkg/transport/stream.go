package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/fountain-coach/midi2-go/pkg/log"
)

// StreamConfig configures a Stream.
type StreamConfig struct {
	// QueueSize bounds the inbound queue. Zero selects DefaultQueueSize.
	QueueSize int

	// ProtocolLogger receives packet capture events.
	ProtocolLogger log.Logger

	// Logger is the operational logger. Nil selects slog.Default().
	Logger *slog.Logger
}

// Stream is a Transport over a byte connection using word frames. A
// background goroutine reads frames into the inbound queue until the
// connection fails or Close is called.
type Stream struct {
	id     string
	conn   io.ReadWriteCloser
	writer *WordWriter
	reader *WordReader
	in     *queue
	logger *slog.Logger

	mu      sync.Mutex
	closed  bool
	readErr error
	done    chan struct{}
}

// NewStream starts reading frames from conn.
func NewStream(conn io.ReadWriteCloser, cfg StreamConfig) *Stream {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Stream{
		id:     uuid.NewString(),
		conn:   conn,
		writer: NewWordWriter(conn),
		reader: NewWordReader(conn),
		in:     newQueue(cfg.QueueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
	if cfg.ProtocolLogger != nil {
		s.writer.SetLogger(cfg.ProtocolLogger, s.id)
		s.reader.SetLogger(cfg.ProtocolLogger, s.id)
	}

	go s.readLoop()
	return s
}

// ID returns the stream's session ID.
func (s *Stream) ID() string { return s.id }

func (s *Stream) readLoop() {
	defer close(s.done)
	for {
		words, err := s.reader.ReadWords()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			if !closed && !errors.Is(err, io.EOF) {
				s.readErr = err
			}
			s.mu.Unlock()
			if !closed && !errors.Is(err, io.EOF) {
				s.logger.Warn("stream read failed", "id", s.id, "error", err)
			}
			return
		}
		s.in.push(words)
	}
}

// Send writes one frame.
func (s *Stream) Send(ctx context.Context, words []uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.writer.WriteWords(words)
}

// Receive drains buffered frames. After the peer disconnects, buffered
// frames are still returned; once empty, Receive reports the read error or
// io.EOF.
func (s *Stream) Receive(ctx context.Context) ([][]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Check done before draining: the reader's last push happens before
	// done closes, so nothing it queued can be missed below.
	var finished bool
	select {
	case <-s.done:
		finished = true
	default:
	}

	msgs := s.in.drain()
	if len(msgs) > 0 || !finished {
		return msgs, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.readErr != nil {
		return nil, s.readErr
	}
	return nil, io.EOF
}

// Dropped returns the number of inbound frames dropped on overflow.
func (s *Stream) Dropped() uint64 {
	return s.in.droppedCount()
}

// Close closes the connection and waits for the reader to exit.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.conn.Close()
	<-s.done
	return err
}

var _ Transport = (*Stream)(nil)
