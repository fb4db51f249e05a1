package api

import "chainflow/pkg/value"

// ErrorPrefix starts the string form of a failed outcome.
const ErrorPrefix = "Error executing task: "

// OutcomeKind tags an Outcome as a success or a failure.
type OutcomeKind uint8

const (
	OutcomeNone OutcomeKind = iota
	OutcomeSuccess
	OutcomeFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "none"
	}
}

// Outcome is the reply half of one dispatch.
type Outcome struct {
	Kind    OutcomeKind `json:"kind" cbor:"kind"`
	Value   value.Value `json:"value" cbor:"value"`
	Message string      `json:"message,omitempty" cbor:"message,omitempty"`
}

// Success wraps a task's return value.
func Success(v value.Value) Outcome { return Outcome{Kind: OutcomeSuccess, Value: v} }

// Failure wraps the message of an error raised while executing a task.
func Failure(msg string) Outcome { return Outcome{Kind: OutcomeFailure, Message: msg} }

func (o Outcome) Failed() bool { return o.Kind == OutcomeFailure }

// Forward returns the value handed to the next task in a workflow. A failure
// is forwarded as its error string, "Error executing task: <message>".
func (o Outcome) Forward() value.Value {
	if o.Failed() {
		return value.String(ErrorPrefix + o.Message)
	}
	return o.Value
}

func (o Outcome) String() string { return o.Forward().String() }
