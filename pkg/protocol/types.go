package protocol

// Version is the protocol version written into every header.
const Version uint8 = 1

// Message types (fit in uint8).
const (
	MsgUnknown   uint8 = iota
	MsgTask            // task call: api.Call body
	MsgResult          // task reply: api.Outcome body
	MsgControl         // control request/reply
	MsgHeartbeat       // liveness ping, echoed back unchanged
)

// Flags bitmask (uint32).
const (
	FlagFailure  uint32 = 1 << 0 // reply carries a failed outcome
	FlagRetry    uint32 = 1 << 1 // call resent after a timeout or reconnect
	FlagFragment uint32 = 1 << 4 // this envelope is a fragment
	FlagLastFrag uint32 = 1 << 5 // last fragment
)

// TypeName returns a readable name for a message type.
func TypeName(t uint8) string {
	switch t {
	case MsgTask:
		return "task"
	case MsgResult:
		return "result"
	case MsgControl:
		return "control"
	case MsgHeartbeat:
		return "heartbeat"
	default:
		return "unknown"
	}
}
