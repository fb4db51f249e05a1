// Package codec provides the body serializers used on the dispatch channel.
package codec

import "sync"

// Codec marshals typed messages. Implementations are deterministic so that
// both ends of a connection agree on the bytes they exchange.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

// Content types of the built-in codecs.
const (
	ContentJSON  = "application/json"
	ContentCBOR  = "application/cbor"
	ContentProto = "application/x-protobuf"
)

// Registry maps content types to codecs.
type Registry struct {
	mu     sync.RWMutex
	byType map[string]Codec
}

// NewRegistry constructs a registry preloaded with JSON, CBOR and Protobuf.
func NewRegistry() *Registry {
	r := &Registry{byType: make(map[string]Codec)}
	r.Register(JSON())
	r.Register(CBOR())
	r.Register(Proto())
	return r
}

// Register adds or replaces a codec.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	r.byType[c.ContentType()] = c
	r.mu.Unlock()
}

// Get returns a codec by content type, or nil.
func (r *Registry) Get(contentType string) Codec {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byType[contentType]
}
