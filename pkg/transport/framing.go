package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fountain-coach/midi2-go/pkg/log"
	"github.com/fountain-coach/midi2-go/pkg/ump"
)

// Framing constants.
const (
	// LengthPrefixSize is the size of the word-count prefix in bytes.
	LengthPrefixSize = 4

	// WordSize is the size of one UMP word on the wire.
	WordSize = 4

	// DefaultMaxWords is the default frame limit (64 KiB of words).
	DefaultMaxWords = 16384
)

// Framing errors.
var (
	// ErrMessageTooLarge indicates a frame over the word limit.
	ErrMessageTooLarge = errors.New("message too large")

	// ErrFrameTruncated indicates a frame cut short by end of stream.
	ErrFrameTruncated = errors.New("frame truncated")
)

// WordWriter writes UMP messages as frames: a big-endian word count
// followed by the words, big-endian.
type WordWriter struct {
	mu       sync.Mutex
	w        io.Writer
	maxWords uint32

	logger log.Logger
	connID string
}

// NewWordWriter returns a writer with DefaultMaxWords.
func NewWordWriter(w io.Writer) *WordWriter {
	return &WordWriter{w: w, maxWords: DefaultMaxWords}
}

// SetLogger configures packet capture. Pass nil to disable it.
func (ww *WordWriter) SetLogger(logger log.Logger, connID string) {
	ww.mu.Lock()
	defer ww.mu.Unlock()
	ww.logger = logger
	ww.connID = connID
}

// WriteWords writes one frame. Safe for concurrent use.
func (ww *WordWriter) WriteWords(words []uint32) error {
	if len(words) == 0 {
		return ErrEmptyMessage
	}
	if uint32(len(words)) > ww.maxWords {
		return fmt.Errorf("%w: %d > %d words", ErrMessageTooLarge, len(words), ww.maxWords)
	}

	buf := make([]byte, 0, LengthPrefixSize+len(words)*WordSize)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(words)))
	buf = ump.AppendWords(buf, words)

	ww.mu.Lock()
	defer ww.mu.Unlock()

	if _, err := ww.w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	if ww.logger != nil {
		ww.logger.Log(framePacketEvent(ww.connID, log.DirectionOut, words))
	}
	return nil
}

// WordReader reads frames written by WordWriter.
type WordReader struct {
	r         io.Reader
	maxWords  uint32
	lengthBuf [LengthPrefixSize]byte

	logger log.Logger
	connID string
}

// NewWordReader returns a reader with DefaultMaxWords.
func NewWordReader(r io.Reader) *WordReader {
	return &WordReader{r: r, maxWords: DefaultMaxWords}
}

// NewWordReaderWithMaxWords returns a reader that rejects frames longer
// than maxWords.
func NewWordReaderWithMaxWords(r io.Reader, maxWords uint32) *WordReader {
	return &WordReader{r: r, maxWords: maxWords}
}

// SetLogger configures packet capture. Pass nil to disable it.
func (wr *WordReader) SetLogger(logger log.Logger, connID string) {
	wr.logger = logger
	wr.connID = connID
}

// ReadWords reads one frame. It returns io.EOF only at a clean frame
// boundary.
func (wr *WordReader) ReadWords() ([]uint32, error) {
	if _, err := io.ReadFull(wr.r, wr.lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	count := binary.BigEndian.Uint32(wr.lengthBuf[:])
	if count == 0 {
		return nil, ErrEmptyMessage
	}
	if count > wr.maxWords {
		return nil, fmt.Errorf("%w: %d > %d words", ErrMessageTooLarge, count, wr.maxWords)
	}

	payload := make([]byte, int(count)*WordSize)
	if _, err := io.ReadFull(wr.r, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, fmt.Errorf("failed to read words: %w", err)
	}

	words, err := ump.BytesToWords(payload)
	if err != nil {
		return nil, err
	}

	if wr.logger != nil {
		wr.logger.Log(framePacketEvent(wr.connID, log.DirectionIn, words))
	}
	return words, nil
}

func framePacketEvent(connID string, dir log.Direction, words []uint32) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Direction:    dir,
		Layer:        log.LayerTransport,
		Category:     log.CategoryMessage,
		Packet:       log.NewPacketEvent(words),
	}
}
