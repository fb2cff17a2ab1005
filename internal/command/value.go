package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

type valueKind uint8

const (
	scalarValue valueKind = iota
	mappingValue
	sequenceValue
)

// Value is a command parameter: a Scalar, a Mapping or a Sequence.
// The zero Value is the null scalar.
type Value struct {
	kind   valueKind
	scalar any
	fields []Field
	items  []Value
}

// Field is one ordered entry of a Mapping.
type Field struct {
	Key   string
	Value Value
}

// String builds a string scalar.
func String(s string) Value { return Value{scalar: s} }

// Number builds a floating point scalar.
func Number(f float64) Value { return Value{scalar: f} }

// Int builds an integer scalar.
func Int(i int64) Value { return Value{scalar: i} }

// Bool builds a boolean scalar.
func Bool(b bool) Value { return Value{scalar: b} }

// Null builds the null scalar, also the zero Value.
func Null() Value { return Value{} }

// F builds a Mapping field.
func F(key string, v Value) Field { return Field{Key: key, Value: v} }

// Map builds a Mapping that keeps the given field order.
func Map(fields ...Field) Value {
	return Value{kind: mappingValue, fields: fields}
}

// List builds a Sequence.
func List(items ...Value) Value {
	return Value{kind: sequenceValue, items: items}
}

// Strings builds a Sequence of string scalars.
func Strings(ss ...string) Value {
	items := make([]Value, len(ss))
	for i, s := range ss {
		items[i] = String(s)
	}
	return List(items...)
}

// IsScalar reports whether v is a string, number, bool or null.
func (v Value) IsScalar() bool { return v.kind == scalarValue }

// IsMapping reports whether v is an ordered mapping.
func (v Value) IsMapping() bool { return v.kind == mappingValue }

// IsSequence reports whether v is a list.
func (v Value) IsSequence() bool { return v.kind == sequenceValue }

// Scalar returns the scalar payload; nil for mappings and sequences.
func (v Value) Scalar() any {
	if v.kind != scalarValue {
		return nil
	}
	return v.scalar
}

// Fields returns the entries of a Mapping.
func (v Value) Fields() []Field { return v.fields }

// Items returns the elements of a Sequence.
func (v Value) Items() []Value { return v.items }

// MarshalJSON encodes mappings as objects in field order, sequences as
// arrays and scalars directly.
func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := v.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (v Value) encode(buf *bytes.Buffer) error {
	switch v.kind {
	case scalarValue:
		b, err := json.Marshal(v.scalar)
		if err != nil {
			return err
		}
		buf.Write(b)
	case mappingValue:
		buf.WriteByte('{')
		for i, f := range v.fields {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeKey(buf, f.Key); err != nil {
				return err
			}
			if err := f.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case sequenceValue:
		buf.WriteByte('[')
		for i, item := range v.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := item.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		return fmt.Errorf("unknown value kind %d", v.kind)
	}
	return nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	b, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(b)
	buf.WriteByte(':')
	return nil
}

// FromAny converts a decoded JSON value or plain Go value into a Value.
// Map keys are sorted so the result is deterministic.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case string:
		return String(t), nil
	case bool:
		return Bool(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case json.Number:
		return Value{scalar: t}, nil
	case []string:
		return Strings(t...), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, e := range t {
			item, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("index %d: %w", i, err)
			}
			items = append(items, item)
		}
		return List(items...), nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]Field, 0, len(t))
		for _, k := range keys {
			fv, err := FromAny(t[k])
			if err != nil {
				return Value{}, fmt.Errorf("key %q: %w", k, err)
			}
			fields = append(fields, F(k, fv))
		}
		return Map(fields...), nil
	case map[string]string:
		m := make(map[string]any, len(t))
		for k, s := range t {
			m[k] = s
		}
		return FromAny(m)
	default:
		return Value{}, fmt.Errorf("unsupported parameter type %T", x)
	}
}

// ParseValue decodes a JSON document into a Value.
func ParseValue(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var x any
	if err := dec.Decode(&x); err != nil {
		return Value{}, err
	}
	return FromAny(x)
}
