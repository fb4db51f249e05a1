// Package stream carries protocol envelopes over a transport stream.
package stream

import (
	"fmt"

	"chainflow/pkg/protocol"
	"chainflow/pkg/transport"
)

// DefaultFragmentSize is the payload size above which envelopes are split.
const DefaultFragmentSize = 1 << 20

// maxPending bounds the number of partially received messages.
const maxPending = 16

// Conn wraps a transport.Stream to send/receive protocol.Envelope frames.
// Payloads larger than the fragment size are split on Send and reassembled
// on Recv. A Conn is not safe for concurrent use by multiple readers.
type Conn struct {
	st       transport.Stream
	fragSize int
	pending  map[[16]byte][]protocol.Envelope
}

// New wraps st. A fragSize <= 0 selects DefaultFragmentSize.
func New(st transport.Stream, fragSize int) *Conn {
	if fragSize <= 0 {
		fragSize = DefaultFragmentSize
	}
	if limit := transport.MaxFrameSize - protocol.HeaderSize; fragSize > limit {
		fragSize = limit
	}
	return &Conn{st: st, fragSize: fragSize, pending: make(map[[16]byte][]protocol.Envelope)}
}

// Send writes e, split into fragments when its payload exceeds the
// fragment size.
func (c *Conn) Send(e *protocol.Envelope) error {
	frags, err := e.Fragments(c.fragSize)
	if err != nil {
		return err
	}
	for i := range frags {
		frame, err := frags[i].EncodeFrame()
		if err != nil {
			return err
		}
		if err := c.st.SendBytes(frame); err != nil {
			return err
		}
	}
	return nil
}

// Recv reads the next complete envelope into e.
func (c *Conn) Recv(e *protocol.Envelope) error {
	for {
		b, err := c.st.RecvBytes()
		if err != nil {
			return err
		}
		var in protocol.Envelope
		if err := in.DecodeFrame(b); err != nil {
			return err
		}
		if !in.HasFlag(protocol.FlagFragment) {
			*e = in
			return nil
		}
		id := in.Header.Correlation
		if _, ok := c.pending[id]; !ok && len(c.pending) >= maxPending {
			return fmt.Errorf("too many partial messages (%d)", len(c.pending))
		}
		c.pending[id] = append(c.pending[id], in)
		if len(c.pending[id]) < int(in.Header.FragTotal) {
			continue
		}
		frags := c.pending[id]
		delete(c.pending, id)
		out, err := protocol.Reassemble(frags)
		if err != nil {
			return err
		}
		*e = out
		return nil
	}
}

// Close closes the underlying stream.
func (c *Conn) Close() error { return c.st.Close() }
