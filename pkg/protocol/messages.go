package protocol

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"chainflow/pkg/api"
	"chainflow/pkg/protocol/codec"
	"chainflow/pkg/value"
)

// Control operations understood by a worker.
const (
	OpListTasks = "list_tasks"
	OpStats     = "stats"
)

// ControlRequest asks a worker about itself rather than running a task.
type ControlRequest struct {
	Op string `json:"op" cbor:"op"`
}

// ControlReply answers a ControlRequest.
type ControlReply struct {
	Worker string      `json:"worker" cbor:"worker"`
	Tasks  []string    `json:"tasks,omitempty" cbor:"tasks,omitempty"`
	Stats  []TaskStats `json:"stats,omitempty" cbor:"stats,omitempty"`
	Error  string      `json:"error,omitempty" cbor:"error,omitempty"`
}

// TaskStats counts the executions of one task on a worker.
type TaskStats struct {
	Task      string `json:"task" cbor:"task"`
	Runs      uint64 `json:"runs" cbor:"runs"`
	Failures  uint64 `json:"failures" cbor:"failures"`
	LastError string `json:"last_error,omitempty" cbor:"last_error,omitempty"`
	// LastRun is unix milliseconds.
	LastRun int64 `json:"last_run_unix_ms" cbor:"last_run_unix_ms"`
	TotalMs int64 `json:"total_ms" cbor:"total_ms"`
}

// EncodeCall serializes a task call in format f.
func EncodeCall(r *codec.Registry, f Format, c api.Call) ([]byte, error) {
	if f == FormatProto {
		return EncodeBody(r, f, &structpb.Struct{Fields: map[string]*structpb.Value{
			"task": structpb.NewStringValue(c.Task),
			"arg":  value.ToProto(c.Arg),
		}})
	}
	return EncodeBody(r, f, c)
}

// DecodeCall parses a body produced by EncodeCall.
func DecodeCall(r *codec.Registry, payload []byte) (api.Call, Format, error) {
	var c api.Call
	if PeekFormat(payload) == FormatProto {
		var st structpb.Struct
		f, err := DecodeBody(r, payload, &st)
		if err != nil {
			return c, f, err
		}
		c.Task = st.GetFields()["task"].GetStringValue()
		if c.Arg, err = fromProtoField(&st, "arg"); err != nil {
			return c, f, fmt.Errorf("call arg: %w", err)
		}
		return c, f, nil
	}
	f, err := DecodeBody(r, payload, &c)
	return c, f, err
}

// EncodeOutcome serializes a task reply in format f.
func EncodeOutcome(r *codec.Registry, f Format, o api.Outcome) ([]byte, error) {
	if f == FormatProto {
		return EncodeBody(r, f, &structpb.Struct{Fields: map[string]*structpb.Value{
			"kind":    structpb.NewNumberValue(float64(o.Kind)),
			"value":   value.ToProto(o.Value),
			"message": structpb.NewStringValue(o.Message),
		}})
	}
	return EncodeBody(r, f, o)
}

// DecodeOutcome parses a body produced by EncodeOutcome.
func DecodeOutcome(r *codec.Registry, payload []byte) (api.Outcome, Format, error) {
	var o api.Outcome
	if PeekFormat(payload) == FormatProto {
		var st structpb.Struct
		f, err := DecodeBody(r, payload, &st)
		if err != nil {
			return o, f, err
		}
		fields := st.GetFields()
		o.Kind = api.OutcomeKind(fields["kind"].GetNumberValue())
		o.Message = fields["message"].GetStringValue()
		if o.Value, err = fromProtoField(&st, "value"); err != nil {
			return o, f, fmt.Errorf("outcome value: %w", err)
		}
		return o, f, nil
	}
	f, err := DecodeBody(r, payload, &o)
	return o, f, err
}

// EncodeControlRequest serializes a control request in format f.
func EncodeControlRequest(r *codec.Registry, f Format, req ControlRequest) ([]byte, error) {
	if f == FormatProto {
		return EncodeBody(r, f, &structpb.Struct{Fields: map[string]*structpb.Value{
			"op": structpb.NewStringValue(req.Op),
		}})
	}
	return EncodeBody(r, f, req)
}

// DecodeControlRequest parses a body produced by EncodeControlRequest.
func DecodeControlRequest(r *codec.Registry, payload []byte) (ControlRequest, Format, error) {
	var req ControlRequest
	if PeekFormat(payload) == FormatProto {
		var st structpb.Struct
		f, err := DecodeBody(r, payload, &st)
		req.Op = st.GetFields()["op"].GetStringValue()
		return req, f, err
	}
	f, err := DecodeBody(r, payload, &req)
	return req, f, err
}

// EncodeControlReply serializes a control reply in format f.
func EncodeControlReply(r *codec.Registry, f Format, rep ControlReply) ([]byte, error) {
	if f == FormatProto {
		tasks := make([]*structpb.Value, len(rep.Tasks))
		for i, t := range rep.Tasks {
			tasks[i] = structpb.NewStringValue(t)
		}
		stats := make([]*structpb.Value, len(rep.Stats))
		for i, st := range rep.Stats {
			stats[i] = structpb.NewStructValue(&structpb.Struct{Fields: map[string]*structpb.Value{
				"task":       structpb.NewStringValue(st.Task),
				"runs":       structpb.NewNumberValue(float64(st.Runs)),
				"failures":   structpb.NewNumberValue(float64(st.Failures)),
				"last_error": structpb.NewStringValue(st.LastError),
				"last_run":   structpb.NewNumberValue(float64(st.LastRun)),
				"total_ms":   structpb.NewNumberValue(float64(st.TotalMs)),
			}})
		}
		return EncodeBody(r, f, &structpb.Struct{Fields: map[string]*structpb.Value{
			"worker": structpb.NewStringValue(rep.Worker),
			"tasks":  structpb.NewListValue(&structpb.ListValue{Values: tasks}),
			"stats":  structpb.NewListValue(&structpb.ListValue{Values: stats}),
			"error":  structpb.NewStringValue(rep.Error),
		}})
	}
	return EncodeBody(r, f, rep)
}

// DecodeControlReply parses a body produced by EncodeControlReply.
func DecodeControlReply(r *codec.Registry, payload []byte) (ControlReply, Format, error) {
	var rep ControlReply
	if PeekFormat(payload) == FormatProto {
		var st structpb.Struct
		f, err := DecodeBody(r, payload, &st)
		if err != nil {
			return rep, f, err
		}
		fields := st.GetFields()
		rep.Worker = fields["worker"].GetStringValue()
		rep.Error = fields["error"].GetStringValue()
		for _, t := range fields["tasks"].GetListValue().GetValues() {
			rep.Tasks = append(rep.Tasks, t.GetStringValue())
		}
		for _, v := range fields["stats"].GetListValue().GetValues() {
			sf := v.GetStructValue().GetFields()
			rep.Stats = append(rep.Stats, TaskStats{
				Task:      sf["task"].GetStringValue(),
				Runs:      uint64(sf["runs"].GetNumberValue()),
				Failures:  uint64(sf["failures"].GetNumberValue()),
				LastError: sf["last_error"].GetStringValue(),
				LastRun:   int64(sf["last_run"].GetNumberValue()),
				TotalMs:   int64(sf["total_ms"].GetNumberValue()),
			})
		}
		return rep, f, nil
	}
	f, err := DecodeBody(r, payload, &rep)
	return rep, f, err
}

func fromProtoField(st *structpb.Struct, name string) (value.Value, error) {
	pv, ok := st.GetFields()[name]
	if !ok {
		return value.Null(), nil
	}
	return value.FromProto(pv)
}
