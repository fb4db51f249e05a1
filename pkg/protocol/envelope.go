package protocol

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/google/uuid"
)

// MaxPayload bounds a single envelope payload read from the wire.
const MaxPayload = 1 << 28

var ErrPayloadTooLarge = errors.New("payload too large")

// Envelope is a header + payload wrapper for a single channel transfer.
type Envelope struct {
	Header  Header
	Payload []byte
}

// NewCorrelation generates a random 16-byte id.
func NewCorrelation() [16]byte { return [16]byte(uuid.New()) }

// CorrelationString formats a correlation id for logs.
func CorrelationString(c [16]byte) string { return uuid.UUID(c).String() }

// HasFlag checks whether a flag is set.
func (e *Envelope) HasFlag(flag uint32) bool { return (e.Header.Flags & flag) != 0 }

// SetFlag sets/unsets a flag.
func (e *Envelope) SetFlag(flag uint32, on bool) {
	if on {
		e.Header.Flags |= flag
	} else {
		e.Header.Flags &^= flag
	}
}

// WriteTo writes header + payload to w.
func (e *Envelope) WriteTo(w io.Writer) (int64, error) {
	frame, err := e.EncodeFrame()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(frame)
	return int64(n), err
}

// ReadFrom reads header + payload from r.
func (e *Envelope) ReadFrom(r io.Reader) (int64, error) {
	hb := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hb); err != nil {
		return 0, err
	}
	if err := e.Header.UnmarshalBinary(hb); err != nil {
		return int64(headerSize), err
	}
	if e.Header.PayloadLen > MaxPayload {
		return int64(headerSize), fmt.Errorf("%w: %d", ErrPayloadTooLarge, e.Header.PayloadLen)
	}
	e.Payload = nil
	if e.Header.PayloadLen > 0 {
		e.Payload = make([]byte, int(e.Header.PayloadLen))
		if _, err := io.ReadFull(r, e.Payload); err != nil {
			return int64(headerSize), err
		}
	}
	return int64(headerSize + int(e.Header.PayloadLen)), nil
}

// EncodeFrame returns header+payload as a single byte slice.
func (e *Envelope) EncodeFrame() ([]byte, error) {
	if len(e.Payload) > MaxPayload {
		return nil, fmt.Errorf("%w: %d", ErrPayloadTooLarge, len(e.Payload))
	}
	e.Header.PayloadLen = uint32(len(e.Payload))
	hb, err := e.Header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	out := make([]byte, headerSize+len(e.Payload))
	copy(out, hb)
	copy(out[headerSize:], e.Payload)
	return out, nil
}

// DecodeFrame parses a single frame from buf.
func (e *Envelope) DecodeFrame(buf []byte) error {
	if len(buf) < headerSize {
		return ErrShortHeader
	}
	if err := e.Header.UnmarshalBinary(buf[:headerSize]); err != nil {
		return err
	}
	need := int(e.Header.PayloadLen)
	if headerSize+need > len(buf) {
		return io.ErrUnexpectedEOF
	}
	e.Payload = append(e.Payload[:0], buf[headerSize:headerSize+need]...)
	return nil
}

// Fragments splits the payload into chunks and yields envelopes.
// A payload that fits in one chunk is returned unchanged.
func (e *Envelope) Fragments(chunk int) ([]Envelope, error) {
	if chunk <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunk)
	}
	data := e.Payload
	total := (len(data) + chunk - 1) / chunk
	if total <= 1 {
		return []Envelope{*e}, nil
	}
	if total > 0xFFFF {
		return nil, fmt.Errorf("%w: %d fragments of %d bytes", ErrPayloadTooLarge, total, chunk)
	}
	out := make([]Envelope, 0, total)
	for i := 0; i < total; i++ {
		start := i * chunk
		end := min(start+chunk, len(data))
		ne := Envelope{Header: e.Header}
		ne.Payload = append([]byte(nil), data[start:end]...)
		ne.Header.PayloadLen = uint32(len(ne.Payload))
		ne.Header.FragIndex = uint16(i)
		ne.Header.FragTotal = uint16(total)
		ne.Header.Flags |= FlagFragment
		if i == total-1 {
			ne.Header.Flags |= FlagLastFrag
		}
		out = append(out, ne)
	}
	return out, nil
}

// Reassemble merges fragments of one message into a single envelope.
// Fragments may arrive in any order; all of them must be present.
func Reassemble(frags []Envelope) (Envelope, error) {
	if len(frags) == 0 {
		return Envelope{}, errors.New("no fragments")
	}
	sorted := append([]Envelope(nil), frags...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Header.FragIndex < sorted[j].Header.FragIndex })
	total := int(sorted[0].Header.FragTotal)
	if total != len(sorted) {
		return Envelope{}, fmt.Errorf("have %d of %d fragments", len(sorted), total)
	}
	var size int
	for i, f := range sorted {
		if int(f.Header.FragIndex) != i || f.Header.Correlation != sorted[0].Header.Correlation {
			return Envelope{}, fmt.Errorf("fragment %d out of sequence", f.Header.FragIndex)
		}
		size += len(f.Payload)
	}
	buf := make([]byte, 0, size)
	for _, f := range sorted {
		buf = append(buf, f.Payload...)
	}
	base := sorted[0]
	base.Payload = buf
	base.Header.Flags &^= FlagFragment | FlagLastFrag
	base.Header.FragIndex, base.Header.FragTotal = 0, 0
	base.Header.PayloadLen = uint32(len(buf))
	return base, nil
}
