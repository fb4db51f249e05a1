package transport

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundtrip(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	require.NoError(t, WriteFrame(w, []byte("abc")))
	require.NoError(t, WriteFrame(w, nil))
	assert.Equal(t, 4+3+4, buf.Len())

	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
	got, err = ReadFrame(&buf)
	require.NoError(t, err)
	assert.Empty(t, got)
	_, err = ReadFrame(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestFrameTooLarge(t *testing.T) {
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], MaxFrameSize+1)
	_, err := ReadFrame(bytes.NewReader(hdr[:]))
	assert.ErrorIs(t, err, ErrFrameTooLarge)

	w := bufio.NewWriter(io.Discard)
	assert.ErrorIs(t, WriteFrame(w, make([]byte, MaxFrameSize+1)), ErrFrameTooLarge)
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]Kind{"": KindTCP, "tcp": KindTCP, "quic": KindQUIC, "mem": KindMem} {
		got, err := ParseKind(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		if in != "" {
			assert.Equal(t, in, got.String())
		}
	}
	_, err := ParseKind("winpipe")
	assert.Error(t, err)
}
