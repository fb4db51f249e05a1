package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Kind identifies transport/link type.
type Kind int

const (
	KindUnknown Kind = iota
	KindTCP
	KindQUIC
	KindMem
)

func (k Kind) String() string {
	switch k {
	case KindTCP:
		return "tcp"
	case KindQUIC:
		return "quic"
	case KindMem:
		return "mem"
	default:
		return "unknown"
	}
}

// ParseKind maps a config name onto a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "tcp":
		return KindTCP, nil
	case "quic":
		return KindQUIC, nil
	case "mem", "inproc":
		return KindMem, nil
	default:
		return KindUnknown, fmt.Errorf("unknown transport kind %q", s)
	}
}

// ErrListenerClosed is returned by Accept after Close.
var ErrListenerClosed = errors.New("listener closed")

// Stream is a bidirectional frame stream.
// Exactly one reader and one writer goroutine are expected.
type Stream interface {
	// SendBytes sends one message frame as opaque bytes.
	SendBytes([]byte) error
	// RecvBytes receives the next message frame and returns its bytes.
	RecvBytes() ([]byte, error)
	Close() error
}

// Session is one connection between the scheduler and a worker.
type Session interface {
	TransportKind() Kind
	LocalAddr() net.Addr
	RemoteAddr() net.Addr

	// OpenStream returns the session's request/reply stream, opening it on
	// first use. Transports without multiplexing return the connection itself.
	OpenStream(ctx context.Context) (Stream, error)

	// AcceptStream waits for the peer to open its stream. For transports
	// without native streams this returns the connection itself.
	AcceptStream(ctx context.Context) (Stream, error)

	// Close closes the entire session.
	Close() error
}

// Listener accepts inbound sessions.
type Listener interface {
	// Accept blocks until an inbound session is available or ctx is done.
	Accept(ctx context.Context) (Session, error)
	// Addr returns the local listening address.
	Addr() net.Addr
	// Close stops the listener and unblocks Accept.
	Close() error
}

// Transport provides dialing/listening for a specific link kind.
type Transport interface {
	Kind() Kind
	// Listen starts accepting inbound sessions on address (transport-specific
	// format). The listener is closed when ctx ends.
	Listen(ctx context.Context, address string) (Listener, error)
	// Dial creates an outbound session. ctx bounds connection setup only.
	Dial(ctx context.Context, address string) (Session, error)
}
