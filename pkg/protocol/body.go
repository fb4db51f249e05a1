package protocol

import (
	"errors"
	"fmt"

	"chainflow/pkg/protocol/codec"
)

// Format is a compact on-wire indicator of payload encoding.
// It is carried as the first byte of Envelope.Payload.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatJSON
	FormatCBOR
	FormatProto
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	case FormatProto:
		return "proto"
	default:
		return "unknown"
	}
}

// ParseFormat maps a config name onto a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "json":
		return FormatJSON, nil
	case "", "cbor":
		return FormatCBOR, nil
	case "proto", "protobuf":
		return FormatProto, nil
	default:
		return FormatUnknown, fmt.Errorf("unknown wire format %q", s)
	}
}

// CodecFor returns a codec instance for a given format.
func CodecFor(r *codec.Registry, f Format) (codec.Codec, error) {
	var ct string
	switch f {
	case FormatJSON:
		ct = codec.ContentJSON
	case FormatCBOR:
		ct = codec.ContentCBOR
	case FormatProto:
		ct = codec.ContentProto
	default:
		return nil, fmt.Errorf("unknown format: %d", f)
	}
	if r != nil {
		if c := r.Get(ct); c != nil {
			return c, nil
		}
	}
	switch f {
	case FormatJSON:
		return codec.JSON(), nil
	case FormatCBOR:
		return codec.CBOR(), nil
	default:
		return codec.Proto(), nil
	}
}

// EncodeBody serializes v using the codec for f and prefixes the payload
// with a single format byte.
func EncodeBody(r *codec.Registry, f Format, v any) ([]byte, error) {
	c, err := CodecFor(r, f)
	if err != nil {
		return nil, err
	}
	b, err := c.Marshal(v)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1+len(b))
	out[0] = byte(f)
	copy(out[1:], b)
	return out, nil
}

// DecodeBody decodes payload produced by EncodeBody into v.
func DecodeBody(r *codec.Registry, payload []byte, v any) (Format, error) {
	if len(payload) == 0 {
		return FormatUnknown, errors.New("empty payload")
	}
	f := Format(payload[0])
	c, err := CodecFor(r, f)
	if err != nil {
		return f, err
	}
	if err := c.Unmarshal(payload[1:], v); err != nil {
		return f, fmt.Errorf("decode %s body: %w", f, err)
	}
	return f, nil
}

// PeekFormat returns the format byte of an encoded body.
func PeekFormat(payload []byte) Format {
	if len(payload) == 0 {
		return FormatUnknown
	}
	return Format(payload[0])
}
