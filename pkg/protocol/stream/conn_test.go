package stream

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chainflow/pkg/protocol"
	"chainflow/pkg/transport"
	"chainflow/pkg/transport/mem"
)

func pipe(t *testing.T) (transport.Stream, transport.Stream) {
	t.Helper()
	ctx := context.Background()
	tr := mem.New()
	l, err := tr.Listen(ctx, "s")
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	cli, err := tr.Dial(ctx, "s")
	require.NoError(t, err)
	srv, err := l.Accept(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cli.Close(); _ = srv.Close() })
	a, _ := cli.OpenStream(ctx)
	b, _ := srv.AcceptStream(ctx)
	return a, b
}

func TestConnSendRecv(t *testing.T) {
	a, b := pipe(t)
	ca, cb := New(a, 0), New(b, 0)

	in := protocol.Envelope{Header: protocol.NewHeader(protocol.MsgTask, protocol.NewCorrelation()), Payload: []byte("hi")}
	go func() { _ = ca.Send(&in) }()

	var out protocol.Envelope
	require.NoError(t, cb.Recv(&out))
	assert.Equal(t, in.Header.Correlation, out.Header.Correlation)
	assert.Equal(t, []byte("hi"), out.Payload)
}

func TestConnFragmentsLargePayload(t *testing.T) {
	a, b := pipe(t)
	ca, cb := New(a, 100), New(b, 100)

	data := bytes.Repeat([]byte("0123456789"), 95)
	in := protocol.Envelope{Header: protocol.NewHeader(protocol.MsgResult, protocol.NewCorrelation()), Payload: data}
	errc := make(chan error, 1)
	go func() { errc <- ca.Send(&in) }()

	var out protocol.Envelope
	require.NoError(t, cb.Recv(&out))
	require.NoError(t, <-errc)
	assert.Equal(t, data, out.Payload)
	assert.Equal(t, protocol.MsgResult, out.Header.Type)
	assert.False(t, out.HasFlag(protocol.FlagFragment))
	assert.Empty(t, cb.pending)
}
