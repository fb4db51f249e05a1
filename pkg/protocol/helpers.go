package protocol

import (
	"hash/fnv"
	"time"

	"chainflow/pkg/api"
	"chainflow/pkg/protocol/codec"
)

// WorkflowID hashes a workflow name into the header's 64-bit id.
// The empty name maps to zero.
func WorkflowID(name string) uint64 {
	if name == "" {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	return h.Sum64()
}

// NewHeader returns a header of type t stamped with the current protocol
// version and send time.
func NewHeader(t uint8, corr [16]byte) Header {
	return Header{
		Version:     Version,
		Type:        t,
		Correlation: corr,
		SentUnixMs:  time.Now().UnixMilli(),
	}
}

// NewCallEnvelope encodes c according to format and returns a task envelope.
func NewCallEnvelope(h Header, format Format, c api.Call, reg *codec.Registry) (Envelope, error) {
	b, err := EncodeCall(reg, format, c)
	if err != nil {
		return Envelope{}, err
	}
	h.Type = MsgTask
	h.PayloadLen = uint32(len(b))
	return Envelope{Header: h, Payload: b}, nil
}

// NewReplyEnvelope answers req with outcome o encoded in the request's format.
// The reply keeps the request's correlation id, workflow step and attempt.
func NewReplyEnvelope(req Header, format Format, o api.Outcome, reg *codec.Registry) (Envelope, error) {
	b, err := EncodeOutcome(reg, format, o)
	if err != nil {
		return Envelope{}, err
	}
	h := req
	h.Type = MsgResult
	h.Flags = 0
	h.FragIndex, h.FragTotal = 0, 0
	h.SentUnixMs = time.Now().UnixMilli()
	h.PayloadLen = uint32(len(b))
	e := Envelope{Header: h, Payload: b}
	e.SetFlag(FlagFailure, o.Failed())
	return e, nil
}
