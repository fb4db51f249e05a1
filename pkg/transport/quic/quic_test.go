package quic

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainflow/pkg/transport"
)

func TestQUICFrameExchange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tr, err := New()
	require.NoError(t, err)
	l, err := tr.Listen(ctx, "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	cli, err := tr.Dial(ctx, l.Addr().String())
	require.NoError(t, err)
	defer cli.Close()
	cs, err := cli.OpenStream(ctx)
	require.NoError(t, err)
	// the stream becomes visible to the listener with its first frame
	require.NoError(t, cs.SendBytes([]byte("ping")))

	srv, err := l.Accept(ctx)
	require.NoError(t, err)
	defer srv.Close()
	assert.Equal(t, transport.KindQUIC, srv.TransportKind())

	ss, err := srv.AcceptStream(ctx)
	require.NoError(t, err)
	got, err := ss.RecvBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("ping"), got)

	require.NoError(t, ss.SendBytes([]byte("pong")))
	got, err = cs.RecvBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("pong"), got)
}
