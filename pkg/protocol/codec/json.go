package codec

import jsoniter "github.com/json-iterator/go"

type jsonCodec struct{ api jsoniter.API }

// JSON returns a JSON codec (RFC 8259) with encoding/json compatible behavior
// and sorted map keys.
func JSON() Codec { return jsonCodec{api: jsoniter.ConfigCompatibleWithStandardLibrary} }

func (jsonCodec) ContentType() string                  { return ContentJSON }
func (c jsonCodec) Marshal(v any) ([]byte, error)      { return c.api.Marshal(v) }
func (c jsonCodec) Unmarshal(data []byte, v any) error { return c.api.Unmarshal(data, v) }
