// Package log provides structured protocol capture for the SysEx7 stack.
//
// This package defines the Logger interface and Event types for capturing
// protocol events at each layer (transport, framing, codec, service). It is
// separate from operational logging (slog): protocol capture is a complete
// machine-readable trace for debugging and replay.
//
// # Basic Usage
//
//	// For development: log to console via slog
//	logger := log.NewSlogAdapter(slog.Default())
//
//	// For capture: write to a binary file
//	fileLogger, _ := log.NewFileLogger("session.ulog")
//
//	// Both
//	logger := log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fileLogger)
//
// # Event Types
//
//   - Transport: UMP words sent or received (PacketEvent)
//   - Framing: reassembled SysEx7 buffers (SysExEvent)
//   - Codec: decoded Vendor-JSON and Property Exchange messages (MessageEvent)
//   - Service: handler state after dispatch (SnapshotEvent)
//
// Errors at any layer use ErrorEventData.
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with the .ulog
// extension. The midi2-log tool views, filters, and exports them.
package log
