package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes protocol events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter returns an adapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: slog.LevelDebug}
}

// WithLevel returns a copy of a that logs at level.
func (a *SlogAdapter) WithLevel(level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: a.logger, level: level}
}

// Log writes the event with one attribute per populated field.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
		slog.Uint64("group", uint64(event.Group)),
	}
	if event.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", event.Endpoint))
	}

	switch {
	case event.Packet != nil:
		attrs = append(attrs,
			slog.Int("words", event.Packet.Count),
			slog.Bool("truncated", event.Packet.Truncated),
		)
	case event.SysEx != nil:
		attrs = append(attrs,
			slog.Int("sysex_size", event.SysEx.Size),
			slog.Int("packets", event.SysEx.Packets),
			slog.Bool("complete", event.SysEx.Complete),
		)
	case event.Message != nil:
		attrs = append(attrs, slog.String("protocol", event.Message.Protocol.String()))
		if event.Message.Topic != "" {
			attrs = append(attrs, slog.String("topic", event.Message.Topic))
		}
		if event.Message.Command != nil {
			attrs = append(attrs, slog.String("command", event.Message.Command.String()))
		}
		if event.Message.RequestID != nil {
			attrs = append(attrs, slog.Uint64("request_id", uint64(*event.Message.RequestID)))
		}
		if len(event.Message.Payload) > 0 {
			attrs = append(attrs, slog.String("payload", string(event.Message.Payload)))
		}
	case event.Snapshot != nil:
		attrs = append(attrs,
			slog.String("handler", event.Snapshot.Handler),
			slog.Any("properties", event.Snapshot.Properties),
		)
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
	}

	a.logger.LogAttrs(context.Background(), a.level, "protocol", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
