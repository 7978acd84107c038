package ump

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fountain-coach/midi2-go/pkg/log"
)

// Assembler errors.
var (
	// ErrUnexpectedStatus indicates a packet whose status does not fit the
	// group's current state.
	ErrUnexpectedStatus = errors.New("unexpected SysEx7 status")

	// ErrMessageTooLarge indicates a message that grew past the size limit.
	ErrMessageTooLarge = errors.New("SysEx7 message too large")
)

// DefaultMaxMessageSize is the default reassembly limit per message.
const DefaultMaxMessageSize = 64 * 1024

// Message is a SysEx7 message reassembled by an Assembler.
type Message struct {
	Group   uint8
	Data    []byte
	Packets int
}

// AssemblerStats counts Assembler outcomes.
type AssemblerStats struct {
	Messages  int
	Packets   int
	Discarded int
	Errors    int
}

type pending struct {
	open    bool
	data    []byte
	packets int
}

// Assembler reassembles SysEx7 messages fed one packet at a time. State is
// kept per group, so packets of different groups may interleave.
//
// Sequencing is strict: a start or complete packet while a message is open,
// or a continue or end packet with none open, resets the group and returns
// ErrUnexpectedStatus. The offending packet is dropped with the partial
// message.
//
// Assembler is safe for concurrent use.
type Assembler struct {
	mu      sync.Mutex
	maxSize int
	groups  [MaxGroup + 1]pending
	stats   AssemblerStats

	logger log.Logger
	connID string
}

// NewAssembler returns an Assembler with DefaultMaxMessageSize.
func NewAssembler() *Assembler {
	return NewAssemblerWithMaxSize(DefaultMaxMessageSize)
}

// NewAssemblerWithMaxSize returns an Assembler that rejects messages longer
// than maxSize bytes. A non-positive maxSize selects the default.
func NewAssemblerWithMaxSize(maxSize int) *Assembler {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Assembler{maxSize: maxSize}
}

// SetLogger sets the protocol logger and connection ID for capture events.
// Completed messages are logged as SysEx events and sequencing failures as
// error events.
func (a *Assembler) SetLogger(logger log.Logger, connID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logger = logger
	a.connID = connID
}

// Push feeds one packet. It returns the message and true when the packet
// completes one.
func (a *Assembler) Push(pair WordPair) (Message, bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := pair.Validate(); err != nil {
		a.stats.Errors++
		a.logError(pair.Group(), err)
		return Message{}, false, err
	}
	a.stats.Packets++

	g := pair.Group()
	st := &a.groups[g]
	status := pair.Status()

	if status.Opens() == st.open {
		state := "idle"
		if st.open {
			state = "open"
		}
		err := fmt.Errorf("%w: %s on group %d while %s", ErrUnexpectedStatus, status, g, state)
		a.drop(g)
		a.stats.Errors++
		a.logError(g, err)
		return Message{}, false, err
	}

	if status.Opens() {
		st.open = true
		st.data = st.data[:0]
		st.packets = 0
	}

	payload := pair.Payload()
	if len(st.data)+len(payload) > a.maxSize {
		err := fmt.Errorf("%w: group %d exceeds %d bytes", ErrMessageTooLarge, g, a.maxSize)
		a.drop(g)
		a.stats.Errors++
		a.logError(g, err)
		return Message{}, false, err
	}
	st.data = append(st.data, payload...)
	st.packets++

	if !status.Closes() {
		return Message{}, false, nil
	}

	msg := Message{
		Group:   g,
		Data:    append([]byte(nil), st.data...),
		Packets: st.packets,
	}
	*st = pending{data: st.data[:0]}
	a.stats.Messages++
	a.logMessage(msg)
	return msg, true, nil
}

// PushWords feeds a word stream and returns every message it completes.
// Errors for individual packets are joined; processing continues past them.
// A dangling odd word is reported as ErrTruncated.
func (a *Assembler) PushWords(words []uint32) ([]Message, error) {
	var msgs []Message
	var errs []error

	i := 0
	for ; i+1 < len(words); i += WordsPerPacket {
		msg, ok, err := a.Push(WordPair{words[i], words[i+1]})
		if err != nil {
			errs = append(errs, fmt.Errorf("packet %d: %w", i/WordsPerPacket, err))
			continue
		}
		if ok {
			msgs = append(msgs, msg)
		}
	}
	if i < len(words) {
		errs = append(errs, ErrTruncated)
	}
	return msgs, errors.Join(errs...)
}

// Pending reports whether group has a message in progress.
func (a *Assembler) Pending(group uint8) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.groups[group&0x0F].open
}

// Reset discards every partial message.
func (a *Assembler) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for g := range a.groups {
		if a.groups[g].open {
			a.stats.Discarded++
		}
		a.groups[g] = pending{}
	}
}

// Stats returns a snapshot of the counters.
func (a *Assembler) Stats() AssemblerStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// drop discards the partial message of group g. Caller holds mu.
func (a *Assembler) drop(g uint8) {
	if a.groups[g].open {
		a.stats.Discarded++
	}
	a.groups[g] = pending{data: a.groups[g].data[:0]}
}

func (a *Assembler) logMessage(msg Message) {
	if a.logger == nil {
		return
	}
	a.logger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: a.connID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerFraming,
		Category:     log.CategoryMessage,
		Group:        msg.Group,
		SysEx:        log.NewSysExEvent(msg.Data, true, msg.Packets),
	})
}

func (a *Assembler) logError(group uint8, err error) {
	if a.logger == nil {
		return
	}
	ev := log.NewErrorEvent(a.connID, log.LayerFraming, err, "assemble")
	ev.Direction = log.DirectionIn
	ev.Group = group
	a.logger.Log(ev)
}
