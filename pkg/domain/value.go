package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind is the dynamic type carried by a Value.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindBool
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindBool:
		return "bool"
	case KindList:
		return "list"
	}
	return "invalid"
}

// Value is a slot value: a string, an integer, a boolean or a list of strings.
// The zero Value is invalid and is never stored in Slots.
type Value struct {
	kind Kind
	str  string
	num  int
	flag bool
	list []string
}

// String builds a string value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Int builds an integer value.
func Int(n int) Value { return Value{kind: KindInt, num: n} }

// Bool builds a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, flag: b} }

// List builds a list value. Duplicates are dropped, first occurrence wins.
func List(items ...string) Value {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return Value{kind: KindList, list: out}
}

func (v Value) Kind() Kind    { return v.kind }
func (v Value) IsValid() bool { return v.kind != KindInvalid }
func (v Value) IsList() bool  { return v.kind == KindList }

// Str returns the string payload.
func (v Value) Str() (string, bool) { return v.str, v.kind == KindString }

// Int returns the integer payload.
func (v Value) Int() (int, bool) { return v.num, v.kind == KindInt }

// Bool returns the boolean payload.
func (v Value) Bool() (bool, bool) { return v.flag, v.kind == KindBool }

// Items returns a copy of the list payload.
func (v Value) Items() []string {
	if v.kind != KindList {
		return nil
	}
	return append([]string(nil), v.list...)
}

// Empty reports whether the value carries no information. Only lists can be empty.
func (v Value) Empty() bool {
	return v.kind == KindInvalid || (v.kind == KindList && len(v.list) == 0)
}

// Union returns the ordered union of two list values.
func (v Value) Union(other Value) Value {
	return List(append(v.Items(), other.Items()...)...)
}

// Equal compares kind and payload.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindInt:
		return v.num == other.num
	case KindBool:
		return v.flag == other.flag
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != other.list[i] {
				return false
			}
		}
		return true
	}
	return true
}

// String renders the value for prompts and summaries.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return strconv.Itoa(v.num)
	case KindBool:
		return strconv.FormatBool(v.flag)
	case KindList:
		return strings.Join(v.list, ", ")
	}
	return ""
}

// Any returns the payload as a plain Go value.
func (v Value) Any() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindInt:
		return v.num
	case KindBool:
		return v.flag
	case KindList:
		return v.Items()
	}
	return nil
}

// MarshalJSON encodes the value as its native JSON form.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindInt:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.flag)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	}
	return []byte("null"), nil
}

// UnmarshalJSON restores a value from its native JSON form.
// Numbers must be integral; arrays must contain strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("slot list must contain strings: %w", err)
		}
		*v = List(items...)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		i, err := n.Int64()
		if err != nil {
			return fmt.Errorf("slot number must be an integer: %w", err)
		}
		*v = Int(int(i))
	}
	return nil
}

// ValueOf converts a plain Go value (as produced by YAML/JSON decoders) into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(t), nil
	case int64:
		return Int(int(t)), nil
	case float64:
		if t != float64(int(t)) {
			return Value{}, fmt.Errorf("non-integral number %v", t)
		}
		return Int(int(t)), nil
	case json.Number:
		i, err := t.Int64()
		if err != nil {
			return Value{}, err
		}
		return Int(int(i)), nil
	case []string:
		return List(t...), nil
	case []any:
		items := make([]string, 0, len(t))
		for _, it := range t {
			s, ok := it.(string)
			if !ok {
				return Value{}, fmt.Errorf("list item %v is not a string", it)
			}
			items = append(items, s)
		}
		return List(items...), nil
	}
	return Value{}, fmt.Errorf("unsupported slot value type %T", x)
}
