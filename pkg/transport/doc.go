// Package transport moves UMP word streams between endpoints.
//
// The protocol core only produces and consumes []uint32. A Transport hands
// those words to something else: the in-memory Loopback hub used by tests
// and the headless host, or a Stream over any byte connection (TCP, pipes)
// using length-prefixed word frames.
//
// Receiving is poll based. Inbound messages are buffered in a bounded queue
// that drops its oldest entry when full; Receive drains the queue without
// blocking.
package transport
