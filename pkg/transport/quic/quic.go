package quic

import (
	"bufio"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"math/big"
	"net"
	"sync"
	"time"

	quicgo "github.com/quic-go/quic-go"

	"chainflow/pkg/transport"
)

// ALPN is the application protocol negotiated on every connection.
const ALPN = "chainflow"

// Transport implements QUIC-based sessions with length-prefixed frames per stream.
// It exposes a single request/reply stream, opened by the dialer and accepted
// by the listener.
type Transport struct {
	tlsConf  *tls.Config
	quicConf *quicgo.Config
}

// New generates an ephemeral self-signed certificate for the server side.
func New() (*Transport, error) {
	cert, err := selfSignedCert()
	if err != nil {
		return nil, err
	}
	return &Transport{
		tlsConf: &tls.Config{
			Certificates: []tls.Certificate{cert},
			NextProtos:   []string{ALPN},
			MinVersion:   tls.VersionTLS13,
		},
		quicConf: &quicgo.Config{KeepAlivePeriod: 10 * time.Second},
	}, nil
}

func (t *Transport) Kind() transport.Kind { return transport.KindQUIC }

func (t *Transport) Listen(ctx context.Context, address string) (transport.Listener, error) {
	l, err := quicgo.ListenAddr(address, t.tlsConf, t.quicConf)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	ql := &listener{l: l, cancel: cancel, newCh: make(chan *session, 8), closeCh: make(chan struct{})}
	go ql.acceptLoop(ctx)
	go func() { <-ctx.Done(); _ = ql.Close() }()
	return ql, nil
}

func (t *Transport) Dial(ctx context.Context, address string) (transport.Session, error) {
	// Transport security is out of scope; the certificate is not verified.
	tlsClient := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{ALPN},
		MinVersion:         tls.VersionTLS13,
	}
	c, err := quicgo.DialAddr(ctx, address, tlsClient, t.quicConf)
	if err != nil {
		return nil, err
	}
	return &session{c: c}, nil
}

type listener struct {
	l         *quicgo.Listener
	cancel    context.CancelFunc
	newCh     chan *session
	closeCh   chan struct{}
	closeOnce sync.Once
}

func (l *listener) Addr() net.Addr { return l.l.Addr() }

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
	var err error
	l.closeOnce.Do(func() {
		close(l.closeCh)
		l.cancel()
		err = l.l.Close()
	})
	return err
}

func (l *listener) acceptLoop(ctx context.Context) {
	for {
		c, err := l.l.Accept(ctx)
		if err != nil {
			return
		}
		s := &session{c: c, inbound: true}
		select {
		case l.newCh <- s:
		case <-l.closeCh:
			_ = s.Close()
			return
		}
	}
}

type session struct {
	c       quicgo.Connection
	inbound bool

	mu   sync.Mutex
	ctrl *qstream
}

func (s *session) TransportKind() transport.Kind { return transport.KindQUIC }
func (s *session) LocalAddr() net.Addr           { return s.c.LocalAddr() }
func (s *session) RemoteAddr() net.Addr          { return s.c.RemoteAddr() }

// OpenStream returns the request/reply stream. The dialer opens it; the
// inbound side waits for the dialer's first frame.
func (s *session) OpenStream(ctx context.Context) (transport.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctrl != nil {
		return s.ctrl, nil
	}
	var (
		qs  quicgo.Stream
		err error
	)
	if s.inbound {
		qs, err = s.c.AcceptStream(ctx)
	} else {
		qs, err = s.c.OpenStreamSync(ctx)
	}
	if err != nil {
		return nil, err
	}
	s.ctrl = &qstream{s: qs, br: bufio.NewReader(qs), bw: bufio.NewWriter(qs)}
	return s.ctrl, nil
}

func (s *session) AcceptStream(ctx context.Context) (transport.Stream, error) {
	return s.OpenStream(ctx)
}

func (s *session) Close() error { return s.c.CloseWithError(0, "") }

// qstream implements transport.Stream over a QUIC bidirectional stream with u32 LE framing.
type qstream struct {
	mu sync.Mutex
	s  quicgo.Stream
	br *bufio.Reader
	bw *bufio.Writer
}

func (st *qstream) SendBytes(b []byte) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return transport.WriteFrame(st.bw, b)
}

func (st *qstream) RecvBytes() ([]byte, error) { return transport.ReadFrame(st.br) }
func (st *qstream) Close() error               { return st.s.Close() }

// selfSignedCert generates a short-lived self-signed TLS certificate for local QUIC use.
func selfSignedCert() (tls.Certificate, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, err
	}
	tmpl := x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &priv.PublicKey, priv)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv}, nil
}
