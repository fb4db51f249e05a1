// Package value defines the serializable values passed between workflow steps.
//
// A Value is a small tagged union. Only the field selected by Kind is
// meaningful; the others stay at their zero value so that every codec
// (JSON, CBOR, protobuf) reproduces the value exactly.
package value

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which field of a Value is set.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindList
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is an argument or result carried across the dispatch channel.
type Value struct {
	Kind  Kind    `json:"k" cbor:"k"`
	Bool  bool    `json:"b,omitempty" cbor:"b,omitempty"`
	Int   int64   `json:"i,omitempty" cbor:"i,omitempty"`
	Float float64 `json:"f" cbor:"f"`
	Str   string  `json:"s,omitempty" cbor:"s,omitempty"`
	List  []Value `json:"l,omitempty" cbor:"l,omitempty"`
	Table *Table  `json:"t,omitempty" cbor:"t,omitempty"`
}

func Null() Value               { return Value{} }
func Bool(b bool) Value         { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value         { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value     { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value     { return Value{Kind: KindString, Str: s} }
func List(items ...Value) Value { return Value{Kind: KindList, List: items} }

// FromTable wraps t as a Value.
func FromTable(t *Table) Value { return Value{Kind: KindTable, Table: t} }

func (v Value) IsNull() bool { return v.Kind == KindNull }

func (v Value) AsBool() (bool, bool)     { return v.Bool, v.Kind == KindBool }
func (v Value) AsInt() (int64, bool)     { return v.Int, v.Kind == KindInt }
func (v Value) AsFloat() (float64, bool) { return v.Float, v.Kind == KindFloat }
func (v Value) AsString() (string, bool) { return v.Str, v.Kind == KindString }
func (v Value) AsList() ([]Value, bool)  { return v.List, v.Kind == KindList }
func (v Value) AsTable() (*Table, bool)  { return v.Table, v.Kind == KindTable && v.Table != nil }

// AsNumber returns int and float values as float64.
func (v Value) AsNumber() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	default:
		return 0, false
	}
}

// Equal reports whether a and b hold the same kind and the same data.
// NaN equals NaN.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBool:
		return a.Bool == b.Bool
	case KindInt:
		return a.Int == b.Int
	case KindFloat:
		return a.Float == b.Float || (math.IsNaN(a.Float) && math.IsNaN(b.Float))
	case KindString:
		return a.Str == b.Str
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !Equal(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	case KindTable:
		return a.Table.Equal(b.Table)
	default:
		return false
	}
}

// String renders v for logs and CLI output.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindList:
		parts := make([]string, len(v.List))
		for i, it := range v.List {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case KindTable:
		return v.Table.String()
	default:
		return fmt.Sprintf("<%s>", v.Kind)
	}
}
