// Package netstack builds transports from configuration and establishes
// sessions over them.
package netstack

import (
	"chainflow/pkg/transport"
	"chainflow/pkg/transport/mem"
	tquic "chainflow/pkg/transport/quic"
	ttcp "chainflow/pkg/transport/tcp"
)

// ErrUnknownKind is returned by NewByKind for unsupported kinds.
type ErrUnknownKind string

func (e ErrUnknownKind) Error() string { return "unknown transport kind: " + string(e) }

// NewByKind constructs a Transport by string kind. The mem kind returns the
// process-wide in-memory transport.
func NewByKind(kind string) (transport.Transport, error) {
	k, err := transport.ParseKind(kind)
	if err != nil {
		return nil, ErrUnknownKind(kind)
	}
	switch k {
	case transport.KindTCP:
		return ttcp.New(), nil
	case transport.KindQUIC:
		return tquic.New()
	case transport.KindMem:
		return mem.Shared(), nil
	default:
		return nil, ErrUnknownKind(kind)
	}
}
