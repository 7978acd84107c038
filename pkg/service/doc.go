// Package service ties the codecs, the registry, and a transport together.
//
// # Router
//
// A Router serves one registered handler. It reassembles inbound UMP words
// into SysEx7 messages, decodes each as Vendor-JSON or MIDI-CI Property
// Exchange, dispatches to the registry, and returns the reply word streams:
//
//   - vendor message: the resulting snapshot as topic "state.snapshot"
//   - PE Get: GetReply carrying the snapshot, same request ID
//   - PE Set: SetReply with no data, then Notify carrying the new snapshot
//   - PE GetReply, SetReply, Notify: passed to OnSnapshot, no reply
//
// Messages still being reassembled are never handed to a codec.
//
// # Poller
//
// A Poller drives a Router from a transport on a fixed interval:
//
//	router, _ := service.NewRouter(reg, service.RouterConfig{Handler: "Canvas"})
//	poller := service.NewPoller(router, endpoint, service.PollerConfig{})
//	poller.Start(ctx)
//	defer poller.Stop()
package service
