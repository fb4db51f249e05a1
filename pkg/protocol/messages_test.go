package protocol

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"chainflow/pkg/api"
	"chainflow/pkg/protocol/codec"
	"chainflow/pkg/value"
)

var allFormats = []Format{FormatJSON, FormatCBOR, FormatProto}

func scalarGen() *rapid.Generator[value.Value] {
	return rapid.Custom(func(t *rapid.T) value.Value {
		switch rapid.IntRange(0, 4).Draw(t, "scalar") {
		case 0:
			return value.Null()
		case 1:
			return value.Bool(rapid.Bool().Draw(t, "b"))
		case 2:
			return value.Int(rapid.Int64().Draw(t, "i"))
		case 3:
			return value.Float(rapid.Float64Range(-1e12, 1e12).Draw(t, "f"))
		default:
			return value.String(rapid.StringMatching(`[a-zA-Z0-9 ,.]{0,16}`).Draw(t, "s"))
		}
	})
}

func valueGen() *rapid.Generator[value.Value] {
	return rapid.Custom(func(t *rapid.T) value.Value {
		switch rapid.IntRange(0, 2).Draw(t, "shape") {
		case 0:
			return scalarGen().Draw(t, "scalar")
		case 1:
			return value.List(rapid.SliceOfN(scalarGen(), 0, 4).Draw(t, "items")...)
		default:
			cols := rapid.SliceOfNDistinct(rapid.StringMatching(`[a-z]{1,6}`), 1, 3, rapid.ID[string]).Draw(t, "cols")
			tbl := value.NewTable(cols...)
			rows := rapid.IntRange(0, 3).Draw(t, "rows")
			for i := 0; i < rows; i++ {
				_ = tbl.AppendRow(rapid.SliceOfN(scalarGen(), len(cols), len(cols)).Draw(t, "row")...)
			}
			return value.FromTable(tbl)
		}
	})
}

func TestCallRoundtripAllFormats(t *testing.T) {
	reg := codec.NewRegistry()
	rapid.Check(t, func(t *rapid.T) {
		f := rapid.SampledFrom(allFormats).Draw(t, "format")
		in := api.Call{
			Task: rapid.StringMatching(`[a-z_]{1,20}`).Draw(t, "task"),
			Arg:  valueGen().Draw(t, "arg"),
		}
		b, err := EncodeCall(reg, f, in)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		out, gotF, err := DecodeCall(reg, b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if gotF != f || out.Task != in.Task || !value.Equal(out.Arg, in.Arg) {
			t.Fatalf("%s: got %+v, want %+v", f, out, in)
		}
	})
}

func TestOutcomeRoundtripAllFormats(t *testing.T) {
	reg := codec.NewRegistry()
	rapid.Check(t, func(t *rapid.T) {
		f := rapid.SampledFrom(allFormats).Draw(t, "format")
		var in api.Outcome
		if rapid.Bool().Draw(t, "failed") {
			in = api.Failure(rapid.StringMatching(`[a-zA-Z :]{0,30}`).Draw(t, "msg"))
		} else {
			in = api.Success(valueGen().Draw(t, "value"))
		}
		b, err := EncodeOutcome(reg, f, in)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		out, _, err := DecodeOutcome(reg, b)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if out.Kind != in.Kind || out.Message != in.Message || !value.Equal(out.Value, in.Value) {
			t.Fatalf("%s: got %+v, want %+v", f, out, in)
		}
	})
}

func TestNegativeZeroKeepsSign(t *testing.T) {
	reg := codec.NewRegistry()
	negZero := value.Float(math.Copysign(0, -1))
	for _, f := range allFormats {
		b, err := EncodeOutcome(reg, f, api.Success(value.List(negZero, value.Float(0))))
		require.NoError(t, err, f.String())
		out, _, err := DecodeOutcome(reg, b)
		require.NoError(t, err, f.String())
		items, ok := out.Value.AsList()
		require.True(t, ok, f.String())
		require.Len(t, items, 2)
		assert.Equal(t, value.KindFloat, items[0].Kind, f.String())
		assert.True(t, math.Signbit(items[0].Float), f.String())
		assert.False(t, math.Signbit(items[1].Float), f.String())

		b, err = EncodeCall(reg, f, api.Call{Task: "negate", Arg: negZero})
		require.NoError(t, err, f.String())
		call, _, err := DecodeCall(reg, b)
		require.NoError(t, err, f.String())
		assert.True(t, math.Signbit(call.Arg.Float), f.String())
	}
}

func TestControlRoundtrip(t *testing.T) {
	reg := codec.NewRegistry()
	for _, f := range allFormats {
		b, err := EncodeControlRequest(reg, f, ControlRequest{Op: OpListTasks})
		require.NoError(t, err)
		req, _, err := DecodeControlRequest(reg, b)
		require.NoError(t, err)
		assert.Equal(t, OpListTasks, req.Op)

		in := ControlReply{Worker: "w1", Tasks: []string{"double", "negate"}}
		b, err = EncodeControlReply(reg, f, in)
		require.NoError(t, err)
		out, gotF, err := DecodeControlReply(reg, b)
		require.NoError(t, err)
		assert.Equal(t, f, gotF)
		assert.Equal(t, in, out, f.String())

		in = ControlReply{Worker: "w1", Stats: []TaskStats{{
			Task:      "double",
			Runs:      3,
			Failures:  1,
			LastError: "cannot double a string",
			LastRun:   1714554000000,
			TotalMs:   12,
		}}}
		b, err = EncodeControlReply(reg, f, in)
		require.NoError(t, err)
		out, _, err = DecodeControlReply(reg, b)
		require.NoError(t, err)
		assert.Equal(t, in, out, f.String())
	}
}

func TestReplyEnvelopeKeepsRequestIdentity(t *testing.T) {
	reg := codec.NewRegistry()
	req := NewHeader(MsgTask, NewCorrelation())
	req.WorkflowID = WorkflowID("wf")
	req.Step = 1
	req.Attempt = 2
	req.Flags = FlagRetry

	rep, err := NewReplyEnvelope(req, FormatJSON, api.Failure("boom"), reg)
	require.NoError(t, err)
	assert.Equal(t, MsgResult, rep.Header.Type)
	assert.Equal(t, req.Correlation, rep.Header.Correlation)
	assert.Equal(t, req.WorkflowID, rep.Header.WorkflowID)
	assert.Equal(t, uint32(2), rep.Header.Attempt)
	assert.True(t, rep.HasFlag(FlagFailure))
	assert.False(t, rep.HasFlag(FlagRetry))

	o, f, err := DecodeOutcome(reg, rep.Payload)
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)
	assert.Equal(t, "Error executing task: boom", o.String())
}

func TestWorkflowID(t *testing.T) {
	assert.Zero(t, WorkflowID(""))
	assert.Equal(t, WorkflowID("employee_salary_analysis"), WorkflowID("employee_salary_analysis"))
	assert.NotEqual(t, WorkflowID("a"), WorkflowID("b"))
}
