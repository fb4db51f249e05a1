package mem

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"chainflow/pkg/transport"
)

// Transport is an in-process transport using net.Pipe. Listeners are
// addressed by name within one Transport value.
type Transport struct {
	mu        sync.Mutex
	listeners map[string]*listener
}

func New() *Transport { return &Transport{listeners: make(map[string]*listener)} }

var (
	sharedOnce sync.Once
	shared     *Transport
)

// Shared returns the process-wide transport, so that a worker and a
// scheduler started in the same process can find each other by name.
func Shared() *Transport {
	sharedOnce.Do(func() { shared = New() })
	return shared
}

func (t *Transport) Kind() transport.Kind { return transport.KindMem }

func (t *Transport) Listen(ctx context.Context, name string) (transport.Listener, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.listeners[name]; ok {
		return nil, fmt.Errorf("mem: listener %q already exists", name)
	}
	l := &listener{name: name, newCh: make(chan *session, 8), closeCh: make(chan struct{})}
	l.onClose = func() {
		t.mu.Lock()
		if t.listeners[name] == l {
			delete(t.listeners, name)
		}
		t.mu.Unlock()
	}
	t.listeners[name] = l
	go func() {
		select {
		case <-ctx.Done():
			_ = l.Close()
		case <-l.closeCh:
		}
	}()
	return l, nil
}

func (t *Transport) Dial(ctx context.Context, name string) (transport.Session, error) {
	t.mu.Lock()
	l := t.listeners[name]
	t.mu.Unlock()
	if l == nil {
		return nil, fmt.Errorf("mem: no listener %q", name)
	}
	c1, c2 := net.Pipe()
	srv := newSession(c1, name)
	cli := newSession(c2, name)
	select {
	case l.newCh <- srv:
		return cli, nil
	case <-l.closeCh:
	case <-ctx.Done():
	}
	_ = srv.Close()
	_ = cli.Close()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return nil, errors.New("mem: listener closed")
}

type listener struct {
	name      string
	newCh     chan *session
	closeCh   chan struct{}
	closeOnce sync.Once
	onClose   func()
}

func (l *listener) Addr() net.Addr { return memAddr(l.name) }

func (l *listener) Accept(ctx context.Context) (transport.Session, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-l.closeCh:
		return nil, transport.ErrListenerClosed
	case s := <-l.newCh:
		return s, nil
	}
}

func (l *listener) Close() error {
	l.closeOnce.Do(func() {
		close(l.closeCh)
		l.onClose()
	})
	return nil
}

type memAddr string

func (a memAddr) Network() string { return "mem" }
func (a memAddr) String() string  { return string(a) }

type session struct {
	name string
	c    net.Conn
	st   *transport.ConnStream
}

func newSession(c net.Conn, name string) *session {
	return &session{name: name, c: c, st: transport.NewConnStream(c)}
}

func (s *session) TransportKind() transport.Kind { return transport.KindMem }
func (s *session) LocalAddr() net.Addr           { return memAddr(s.name) }
func (s *session) RemoteAddr() net.Addr          { return memAddr(s.name) }

func (s *session) OpenStream(context.Context) (transport.Stream, error)   { return s.st, nil }
func (s *session) AcceptStream(context.Context) (transport.Stream, error) { return s.st, nil }
func (s *session) Close() error                                           { return s.c.Close() }
