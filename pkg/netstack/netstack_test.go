package netstack

import (
	"context"
	"errors"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainflow/pkg/transport"
	"chainflow/pkg/transport/mem"
)

func TestNewByKind(t *testing.T) {
	tr, err := NewByKind("tcp")
	require.NoError(t, err)
	assert.Equal(t, transport.KindTCP, tr.Kind())

	tr, err = NewByKind("mem")
	require.NoError(t, err)
	assert.Same(t, mem.Shared(), tr)

	_, err = NewByKind("udp")
	var uk ErrUnknownKind
	assert.ErrorAs(t, err, &uk)
}

type flakyTransport struct {
	transport.Transport
	failures int32
	calls    atomic.Int32
}

func (f *flakyTransport) Dial(ctx context.Context, address string) (transport.Session, error) {
	if f.calls.Add(1) <= f.failures {
		return nil, errors.New("connection refused")
	}
	return f.Transport.Dial(ctx, address)
}

func TestDialRetriesUntilListenerAppears(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	inner := mem.New()
	l, err := inner.Listen(ctx, "w")
	require.NoError(t, err)
	defer l.Close()

	tr := &flakyTransport{Transport: inner, failures: 2}
	sess, err := Dial(ctx, tr, "w", Options{BackoffInitial: time.Millisecond, BackoffMax: 5 * time.Millisecond})
	require.NoError(t, err)
	defer sess.Close()
	assert.EqualValues(t, 3, tr.calls.Load())
}

func TestDialGivesUpAfterAttempts(t *testing.T) {
	tr := &flakyTransport{Transport: mem.New(), failures: 100}
	_, err := Dial(context.Background(), tr, "w", Options{BackoffInitial: time.Millisecond, Attempts: 2})
	require.Error(t, err)
	assert.EqualValues(t, 3, tr.calls.Load())
}

func TestListen(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l, err := Listen(ctx, "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, ok := l.Addr().(*net.TCPAddr)
	assert.True(t, ok)
	cancel()
	_, err = l.Accept(context.Background())
	assert.Error(t, err)
}
