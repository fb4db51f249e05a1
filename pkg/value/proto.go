package value

import (
	"fmt"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"
)

// ToProto maps v onto a google.protobuf.Value. Integers travel as decimal
// strings because protobuf Struct numbers are doubles.
func ToProto(v Value) *structpb.Value {
	fields := map[string]*structpb.Value{
		"k": structpb.NewNumberValue(float64(v.Kind)),
	}
	switch v.Kind {
	case KindBool:
		fields["b"] = structpb.NewBoolValue(v.Bool)
	case KindInt:
		fields["i"] = structpb.NewStringValue(strconv.FormatInt(v.Int, 10))
	case KindFloat:
		fields["f"] = structpb.NewNumberValue(v.Float)
	case KindString:
		fields["s"] = structpb.NewStringValue(v.Str)
	case KindList:
		items := make([]*structpb.Value, len(v.List))
		for i, it := range v.List {
			items[i] = ToProto(it)
		}
		fields["l"] = structpb.NewListValue(&structpb.ListValue{Values: items})
	case KindTable:
		if v.Table != nil {
			fields["t"] = structpb.NewStructValue(tableToProto(v.Table))
		}
	}
	return structpb.NewStructValue(&structpb.Struct{Fields: fields})
}

// FromProto is the inverse of ToProto.
func FromProto(pv *structpb.Value) (Value, error) {
	st := pv.GetStructValue()
	if st == nil {
		return Value{}, fmt.Errorf("proto value: expected struct, got %T", pv.GetKind())
	}
	f := st.GetFields()
	k := Kind(f["k"].GetNumberValue())
	switch k {
	case KindNull:
		return Null(), nil
	case KindBool:
		return Bool(f["b"].GetBoolValue()), nil
	case KindInt:
		n, err := strconv.ParseInt(f["i"].GetStringValue(), 10, 64)
		if err != nil {
			return Value{}, fmt.Errorf("proto value: int: %w", err)
		}
		return Int(n), nil
	case KindFloat:
		return Float(f["f"].GetNumberValue()), nil
	case KindString:
		return String(f["s"].GetStringValue()), nil
	case KindList:
		raw := f["l"].GetListValue().GetValues()
		var items []Value
		for i, it := range raw {
			iv, err := FromProto(it)
			if err != nil {
				return Value{}, fmt.Errorf("item %d: %w", i, err)
			}
			items = append(items, iv)
		}
		return List(items...), nil
	case KindTable:
		ts := f["t"].GetStructValue()
		if ts == nil {
			return FromTable(nil), nil
		}
		t, err := tableFromProto(ts)
		if err != nil {
			return Value{}, err
		}
		return FromTable(t), nil
	default:
		return Value{}, fmt.Errorf("proto value: unknown kind %d", k)
	}
}

func tableToProto(t *Table) *structpb.Struct {
	cols := make([]*structpb.Value, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = structpb.NewStringValue(c)
	}
	rows := make([]*structpb.Value, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]*structpb.Value, len(row))
		for j, cell := range row {
			cells[j] = ToProto(cell)
		}
		rows[i] = structpb.NewListValue(&structpb.ListValue{Values: cells})
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"c": structpb.NewListValue(&structpb.ListValue{Values: cols}),
		"r": structpb.NewListValue(&structpb.ListValue{Values: rows}),
	}}
}

func tableFromProto(s *structpb.Struct) (*Table, error) {
	t := &Table{}
	for _, c := range s.GetFields()["c"].GetListValue().GetValues() {
		t.Columns = append(t.Columns, c.GetStringValue())
	}
	for i, r := range s.GetFields()["r"].GetListValue().GetValues() {
		var row []Value
		for j, c := range r.GetListValue().GetValues() {
			cell, err := FromProto(c)
			if err != nil {
				return nil, fmt.Errorf("row %d cell %d: %w", i, j, err)
			}
			row = append(row, cell)
		}
		if len(row) != len(t.Columns) {
			return nil, fmt.Errorf("row %d has %d cells, table has %d columns", i, len(row), len(t.Columns))
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
