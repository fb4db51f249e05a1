// Package transport defines the connection interfaces used by the dispatch
// channel and provides implementations for tcp, quic and an in-process mem
// transport.
//
// Key concepts:
//   - Transport: dials/listens for Sessions of a specific Kind
//   - Session: a bidirectional connection between scheduler and worker
//   - Stream: a Send/Recv channel of length-prefixed frames; the protocol
//     package layers envelopes on top
package transport
