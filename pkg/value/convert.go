package value

import (
	"fmt"
	"math"
	"sort"
)

// number matches json.Number and the decoders that mimic it.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// FromAny converts plain Go data (as produced by YAML/JSON decoders) into a Value.
// Maps become a single-row table with columns sorted by key; a list of maps
// sharing the same keys becomes a table with one row per element.
func FromAny(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return v, nil
	case *Table:
		return FromTable(v), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int(int64(v)), nil
	case int8:
		return Int(int64(v)), nil
	case int16:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case uint8:
		return Int(int64(v)), nil
	case uint16:
		return Int(int64(v)), nil
	case uint32:
		return Int(int64(v)), nil
	case uint64:
		if v > math.MaxInt64 {
			return Value{}, fmt.Errorf("integer %d overflows int64", v)
		}
		return Int(int64(v)), nil
	case float32:
		return Float(float64(v)), nil
	case float64:
		return Float(v), nil
	case string:
		return String(v), nil
	case number:
		if n, err := v.Int64(); err == nil {
			return Int(n), nil
		}
		f, err := v.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("number %s: %w", v, err)
		}
		return Float(f), nil
	case map[string]any:
		return recordsToTable([]map[string]any{v})
	case []any:
		if recs, ok := asRecords(v); ok {
			return recordsToTable(recs)
		}
		items := make([]Value, 0, len(v))
		for i, it := range v {
			iv, err := FromAny(it)
			if err != nil {
				return Value{}, fmt.Errorf("item %d: %w", i, err)
			}
			items = append(items, iv)
		}
		return List(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", x)
	}
}

// ToAny converts v back into plain Go data. Tables become []map[string]any.
func ToAny(v Value) any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindString:
		return v.Str
	case KindList:
		out := make([]any, len(v.List))
		for i, it := range v.List {
			out[i] = ToAny(it)
		}
		return out
	case KindTable:
		if v.Table == nil {
			return nil
		}
		out := make([]any, 0, len(v.Table.Rows))
		for _, rec := range v.Table.Records() {
			m := make(map[string]any, len(rec))
			for k, cell := range rec {
				m[k] = ToAny(cell)
			}
			out = append(out, m)
		}
		return out
	default:
		return nil
	}
}

func asRecords(items []any) ([]map[string]any, bool) {
	if len(items) == 0 {
		return nil, false
	}
	recs := make([]map[string]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			return nil, false
		}
		recs = append(recs, m)
	}
	return recs, true
}

func recordsToTable(recs []map[string]any) (Value, error) {
	cols := make([]string, 0, len(recs[0]))
	for k := range recs[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	t := NewTable(cols...)
	for i, rec := range recs {
		if len(rec) != len(cols) {
			return Value{}, fmt.Errorf("record %d: has %d fields, want %d", i, len(rec), len(cols))
		}
		row := make([]Value, len(cols))
		for j, c := range cols {
			raw, ok := rec[c]
			if !ok {
				return Value{}, fmt.Errorf("record %d: missing field %q", i, c)
			}
			cell, err := FromAny(raw)
			if err != nil {
				return Value{}, fmt.Errorf("record %d field %q: %w", i, c, err)
			}
			row[j] = cell
		}
		t.Rows = append(t.Rows, row)
	}
	return FromTable(t), nil
}
