package transport

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
)

// MaxFrameSize bounds a single frame on every transport.
const MaxFrameSize = 16 << 20

var ErrFrameTooLarge = errors.New("frame too large")

// WriteFrame writes b with a u32 little-endian length prefix and flushes w.
func WriteFrame(w *bufio.Writer, b []byte) error {
	if len(b) > MaxFrameSize {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, len(b))
	}
	var lenbuf [4]byte
	binary.LittleEndian.PutUint32(lenbuf[:], uint32(len(b)))
	if _, err := w.Write(lenbuf[:]); err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return err
	}
	return w.Flush()
}

// ReadFrame reads one length-prefixed frame from r.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenbuf [4]byte
	if _, err := io.ReadFull(r, lenbuf[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(lenbuf[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ConnStream frames a net.Conn. It is the single stream of transports
// without native multiplexing.
type ConnStream struct {
	mu sync.Mutex
	c  net.Conn
	br *bufio.Reader
	bw *bufio.Writer
}

func NewConnStream(c net.Conn) *ConnStream {
	return &ConnStream{c: c, br: bufio.NewReader(c), bw: bufio.NewWriter(c)}
}

func (s *ConnStream) SendBytes(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return WriteFrame(s.bw, b)
}

func (s *ConnStream) RecvBytes() ([]byte, error) { return ReadFrame(s.br) }
func (s *ConnStream) Close() error               { return s.c.Close() }
