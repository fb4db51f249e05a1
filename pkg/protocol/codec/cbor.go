package codec

import (
	"sync"

	cbor "github.com/fxamacker/cbor/v2"
)

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var (
	cborOnce  sync.Once
	cborModes cborCodec
)

// CBOR returns a deterministic CBOR codec (RFC 8949 core deterministic encoding).
// Floats are encoded in the shortest form that preserves their value.
func CBOR() Codec {
	cborOnce.Do(func() {
		em, err := cbor.CoreDetEncOptions().EncMode()
		if err != nil {
			panic(err)
		}
		dm, err := cbor.DecOptions{}.DecMode()
		if err != nil {
			panic(err)
		}
		cborModes = cborCodec{enc: em, dec: dm}
	})
	return cborModes
}

func (c cborCodec) ContentType() string                { return ContentCBOR }
func (c cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }
