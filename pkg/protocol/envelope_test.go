package protocol

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeFrameEncodeDecode(t *testing.T) {
	e := Envelope{Header: Header{
		Version:     Version,
		Type:        MsgControl,
		Flags:       FlagRetry,
		WorkflowID:  WorkflowID("demo"),
		Step:        1,
		Attempt:     2,
		Correlation: NewCorrelation(),
	}}
	e.Payload = []byte("hello")

	frame, err := e.EncodeFrame()
	require.NoError(t, err)
	require.Len(t, frame, HeaderSize+5)

	var d Envelope
	require.NoError(t, d.DecodeFrame(frame))
	assert.Equal(t, e.Payload, d.Payload)
	assert.Equal(t, e.Header, d.Header)

	assert.ErrorIs(t, d.DecodeFrame(frame[:HeaderSize+2]), io.ErrUnexpectedEOF)
}

func TestEnvelopeStreamRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	in := []Envelope{
		{Header: Header{Version: Version, Type: MsgTask, Correlation: NewCorrelation()}, Payload: []byte("one")},
		{Header: Header{Version: Version, Type: MsgHeartbeat, Correlation: NewCorrelation()}},
	}
	for i := range in {
		_, err := in[i].WriteTo(&buf)
		require.NoError(t, err)
	}
	for i := range in {
		var out Envelope
		_, err := out.ReadFrom(&buf)
		require.NoError(t, err)
		assert.Equal(t, in[i].Header, out.Header)
		assert.Equal(t, in[i].Payload, out.Payload)
	}
	var out Envelope
	_, err := out.ReadFrom(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestEnvelopeRejectsOversizedPayload(t *testing.T) {
	h := Header{Version: Version, Type: MsgTask, PayloadLen: MaxPayload + 1}
	hb, err := h.MarshalBinary()
	require.NoError(t, err)
	var e Envelope
	_, err = e.ReadFrom(bytes.NewReader(hb))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestCorrelationIsUnique(t *testing.T) {
	a, b := NewCorrelation(), NewCorrelation()
	assert.NotEqual(t, a, b)
	assert.Len(t, CorrelationString(a), 36)
}

func TestFragmentsAndReassemble(t *testing.T) {
	e := Envelope{Header: Header{Version: Version, Type: MsgTask, Correlation: NewCorrelation()}}
	data := bytes.Repeat([]byte{0xAB}, 1000)
	e.Payload = data
	frags, err := e.Fragments(128)
	require.NoError(t, err)
	require.Len(t, frags, 8)
	for i, f := range frags {
		assert.Equal(t, uint16(i), f.Header.FragIndex)
		assert.Equal(t, uint16(len(frags)), f.Header.FragTotal)
		assert.True(t, f.HasFlag(FlagFragment))
		assert.Equal(t, i == len(frags)-1, f.HasFlag(FlagLastFrag))
	}
	assert.Len(t, frags[7].Payload, 1000-7*128)

	// out of order is fine
	frags[0], frags[5] = frags[5], frags[0]
	re, err := Reassemble(frags)
	require.NoError(t, err)
	assert.Equal(t, data, re.Payload)
	assert.False(t, re.HasFlag(FlagFragment))
	assert.Equal(t, uint32(len(data)), re.Header.PayloadLen)

	_, err = Reassemble(frags[:3])
	assert.Error(t, err)
}

func TestFragmentsSmallPayload(t *testing.T) {
	e := Envelope{Header: Header{Type: MsgTask}, Payload: []byte("tiny")}
	frags, err := e.Fragments(64)
	require.NoError(t, err)
	require.Len(t, frags, 1)
	assert.False(t, frags[0].HasFlag(FlagFragment))

	_, err = e.Fragments(0)
	assert.Error(t, err)
}
