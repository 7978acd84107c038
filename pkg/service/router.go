package service

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fountain-coach/midi2-go/pkg/jsonvalue"
	"github.com/fountain-coach/midi2-go/pkg/log"
	"github.com/fountain-coach/midi2-go/pkg/pe"
	"github.com/fountain-coach/midi2-go/pkg/registry"
	"github.com/fountain-coach/midi2-go/pkg/ump"
	"github.com/fountain-coach/midi2-go/pkg/vendor"
)

// Router turns inbound UMP words for one handler into reply words.
type Router struct {
	cfg       RouterConfig
	reg       *registry.Registry
	assembler *ump.Assembler
	logger    *slog.Logger
	capture   log.Logger
}

// NewRouter returns a router serving cfg.Handler from reg.
func NewRouter(reg *registry.Registry, cfg RouterConfig) (*Router, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidConfig)
	}
	if cfg.Handler == "" {
		return nil, fmt.Errorf("%w: empty handler name", ErrInvalidConfig)
	}
	if cfg.DeviceID != nil && *cfg.DeviceID > 0x7F {
		return nil, fmt.Errorf("%w: device ID 0x%02X", ErrInvalidConfig, *cfg.DeviceID)
	}
	cfg.applyDefaults()

	asm := ump.NewAssemblerWithMaxSize(cfg.MaxMessageSize)
	asm.SetLogger(cfg.ProtocolLogger, cfg.ConnectionID)

	return &Router{
		cfg:       cfg,
		reg:       reg,
		assembler: asm,
		logger:    cfg.Logger.With("handler", cfg.Handler),
		capture:   cfg.ProtocolLogger,
	}, nil
}

// Handler returns the registry name this router serves.
func (r *Router) Handler() string { return r.cfg.Handler }

// Assembler returns the router's reassembly state.
func (r *Router) Assembler() *ump.Assembler { return r.assembler }

// HandleWords feeds words through reassembly and handles every message they
// complete. Replies are returned in order, one word stream per message.
// Per-message failures are joined into the error; the remaining messages
// are still handled, and replies built before a failure are kept.
func (r *Router) HandleWords(words []uint32) ([][]uint32, error) {
	msgs, asmErr := r.assembler.PushWords(words)

	var replies [][]uint32
	errs := []error{asmErr}
	for _, msg := range msgs {
		out, err := r.HandleSysEx(msg.Data, msg.Group)
		replies = append(replies, out...)
		if err != nil {
			errs = append(errs, err)
			r.logger.Debug("message rejected", "group", msg.Group, "size", len(msg.Data), "error", err)
		}
	}
	return replies, errors.Join(errs...)
}

// HandleSysEx handles one complete SysEx7 buffer received on group.
func (r *Router) HandleSysEx(buf []byte, group uint8) ([][]uint32, error) {
	if msg, ok := vendor.Decode(buf); ok {
		return r.handleVendor(msg, group)
	}
	if !vendor.IsFrame(buf) {
		msg, err := pe.Unwrap(buf)
		if err == nil {
			return r.handlePropertyExchange(msg, group)
		}
		r.logError(group, err, "property exchange decode")
		return nil, fmt.Errorf("%w: %w", ErrUnrecognized, err)
	}
	err := fmt.Errorf("%w: malformed vendor frame", ErrUnrecognized)
	r.logError(group, err, "vendor decode")
	return nil, err
}

func (r *Router) handleVendor(msg vendor.Message, group uint8) ([][]uint32, error) {
	r.logMessage(log.DirectionIn, group, &log.MessageEvent{
		Protocol: log.ProtocolVendor,
		Topic:    msg.Topic,
		Payload:  payloadOf(msg.Data),
	})

	snap, err := r.reg.DispatchVendor(r.cfg.Handler, msg)
	if err != nil {
		r.logError(group, err, "dispatch "+msg.Topic)
		return nil, err
	}
	if snap == nil {
		r.logger.Debug("vendor topic ignored", "topic", msg.Topic)
		return nil, nil
	}
	r.logSnapshot(group, snap)

	reply, err := r.encodeSnapshot(snap, group)
	if err != nil {
		return nil, err
	}
	return [][]uint32{reply}, nil
}

// encodeSnapshot builds a state.snapshot vendor message on group.
func (r *Router) encodeSnapshot(snap *registry.Snapshot, group uint8) ([]uint32, error) {
	data := snap.JSON()
	buf, err := vendor.Encode(SnapshotTopic, data)
	if err != nil {
		r.logError(group, err, "encode "+SnapshotTopic)
		return nil, err
	}
	r.logMessage(log.DirectionOut, group, &log.MessageEvent{
		Protocol: log.ProtocolVendor,
		Topic:    SnapshotTopic,
		Payload:  payloadOf(data),
	})
	return ump.EncodeSysEx7(buf, group), nil
}

func (r *Router) handlePropertyExchange(msg pe.Message, group uint8) ([][]uint32, error) {
	r.logPE(log.DirectionIn, group, msg)

	switch msg.Command {
	case pe.CommandGet:
		snap, err := r.reg.Snapshot(r.cfg.Handler)
		if err != nil {
			return nil, err
		}
		reply, err := r.encodePE(pe.CommandGetReply, msg.RequestID, snap.JSON(), group)
		if errors.Is(err, pe.ErrPayloadTooLarge) {
			// Answer the request empty and carry the state in a vendor frame.
			return r.oversizedReply(pe.CommandGetReply, msg.RequestID, &snap, group)
		}
		if err != nil {
			return nil, err
		}
		return [][]uint32{reply}, nil

	case pe.CommandSet:
		doc, err := msg.JSON()
		if err != nil {
			r.logError(group, err, "property set")
			return nil, err
		}
		props, err := registry.FlattenProperties(doc)
		if err != nil {
			r.logError(group, err, "property set")
			return nil, err
		}
		snap, err := r.reg.DispatchPropertySet(r.cfg.Handler, props)
		if err != nil {
			r.logError(group, err, "property set")
			return nil, err
		}
		if snap == nil {
			cur, err := r.reg.Snapshot(r.cfg.Handler)
			if err != nil {
				return nil, err
			}
			snap = &cur
		}
		r.logSnapshot(group, snap)

		ack, err := r.encodePE(pe.CommandSetReply, msg.RequestID, jsonvalue.Value{}, group)
		if err != nil {
			return nil, err
		}
		notify, err := r.encodePE(pe.CommandNotify, 0, snap.JSON(), group)
		if errors.Is(err, pe.ErrPayloadTooLarge) {
			notify, err = r.encodeSnapshot(snap, group)
		}
		if err != nil {
			// The change is applied; the peer still gets its ack.
			return [][]uint32{ack}, err
		}
		return [][]uint32{ack, notify}, nil

	case pe.CommandGetReply, pe.CommandSetReply, pe.CommandNotify:
		r.observeSnapshot(msg, group)
		return nil, nil

	default:
		r.logger.Debug("property exchange command not handled", "command", msg.Command.String(), "request_id", msg.RequestID)
		return nil, nil
	}
}

// oversizedReply answers id with an empty cmd reply followed by a
// state.snapshot vendor message, for snapshots too large for one PE data
// part.
func (r *Router) oversizedReply(cmd pe.Command, id uint32, snap *registry.Snapshot, group uint8) ([][]uint32, error) {
	r.logger.Debug("snapshot exceeds property exchange data limit, sent as vendor frame", "command", cmd.String())
	reply, err := r.encodePE(cmd, id, jsonvalue.Value{}, group)
	if err != nil {
		return nil, err
	}
	state, err := r.encodeSnapshot(snap, group)
	if err != nil {
		return [][]uint32{reply}, err
	}
	return [][]uint32{reply, state}, nil
}

// encodePE builds a PE message carrying v (omitted when undefined) as
// words on group.
func (r *Router) encodePE(cmd pe.Command, id uint32, v jsonvalue.Value, group uint8) ([]uint32, error) {
	msg := pe.NewReply(cmd, id, nil)
	if v.IsDefined() {
		var err error
		msg, err = pe.NewJSON(cmd, id, v)
		if err != nil {
			return nil, err
		}
	}
	buf, err := pe.WrapEnvelope(msg, *r.cfg.DeviceID)
	if err != nil {
		r.logError(group, err, "encode "+cmd.String())
		return nil, err
	}
	r.logPE(log.DirectionOut, group, msg)
	return ump.EncodeSysEx7(buf, group), nil
}

func (r *Router) observeSnapshot(msg pe.Message, group uint8) {
	if len(msg.Data) == 0 {
		return
	}
	doc, err := msg.JSON()
	if err != nil {
		r.logError(group, err, "snapshot "+msg.Command.String())
		return
	}
	snap, err := registry.ParseSnapshot(r.cfg.Handler, doc)
	if err != nil {
		r.logError(group, err, "snapshot "+msg.Command.String())
		return
	}
	if r.cfg.OnSnapshot != nil {
		r.cfg.OnSnapshot(snap)
	}
}

func (r *Router) logMessage(dir log.Direction, group uint8, ev *log.MessageEvent) {
	r.capture.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: r.cfg.ConnectionID,
		Direction:    dir,
		Layer:        log.LayerCodec,
		Category:     log.CategoryMessage,
		Endpoint:     r.cfg.Handler,
		Group:        group,
		Message:      ev,
	})
}

func (r *Router) logPE(dir log.Direction, group uint8, msg pe.Message) {
	cmd := msg.Command
	id := msg.RequestID
	r.logMessage(dir, group, &log.MessageEvent{
		Protocol:  log.ProtocolPropertyExchange,
		Command:   &cmd,
		RequestID: &id,
		Payload:   msg.Data,
	})
}

func (r *Router) logSnapshot(group uint8, snap *registry.Snapshot) {
	r.capture.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: r.cfg.ConnectionID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerService,
		Category:     log.CategoryState,
		Endpoint:     r.cfg.Handler,
		Group:        group,
		Snapshot: &log.SnapshotEvent{
			Handler:    snap.Handler,
			Properties: snap.Properties(),
		},
	})
}

func (r *Router) logError(group uint8, err error, context string) {
	ev := log.NewErrorEvent(r.cfg.ConnectionID, log.LayerCodec, err, context)
	ev.Endpoint = r.cfg.Handler
	ev.Group = group
	r.capture.Log(ev)
}

func payloadOf(v jsonvalue.Value) []byte {
	if !v.IsDefined() {
		return nil
	}
	b, err := jsonvalue.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}
