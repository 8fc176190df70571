package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	ValueNull ValueKind = iota
	ValueText
	ValueNumber
	ValueBool
	ValueList
)

func (k ValueKind) String() string {
	switch k {
	case ValueText:
		return "text"
	case ValueNumber:
		return "number"
	case ValueBool:
		return "boolean"
	case ValueList:
		return "list"
	default:
		return "null"
	}
}

// Value is a dynamically typed answer or option value: text, number, boolean
// or a list of those. The zero Value is null.
type Value struct {
	kind    ValueKind
	text    string
	number  float64
	boolean bool
	list    []Value
}

func TextValue(s string) Value { return Value{kind: ValueText, text: s} }
func NumberValue(f float64) Value { return Value{kind: ValueNumber, number: f} }
func BoolValue(b bool) Value { return Value{kind: ValueBool, boolean: b} }
func ListValue(vs ...Value) Value { return Value{kind: ValueList, list: append([]Value{}, vs...)} }
func (v Value) Kind() ValueKind { return v.kind }
func (v Value) IsNull() bool { return v.kind == ValueNull }
func (v Value) IsScalar() bool { return v.kind == ValueText || v.kind == ValueNumber || v.kind == ValueBool }

func (v Value) Text() (string, bool) {
	return v.text, v.kind == ValueText
}

func (v Value) Number() (float64, bool) {
	return v.number, v.kind == ValueNumber
}

func (v Value) List() ([]Value, bool) {
	return v.list, v.kind == ValueList
}

// String renders the value in the text form used for option comparison,
// so NumberValue(2) and TextValue("2") compare equal.
func (v Value) String() string {
	switch v.kind {
	case ValueText:
		return v.text
	case ValueNumber:
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	case ValueBool:
		return strconv.FormatBool(v.boolean)
	case ValueList:
		b, _ := json.Marshal(v)
		return string(b)
	default:
		return ""
	}
}

// Interface returns the plain Go representation (string, float64, bool, []interface{} or nil).
func (v Value) Interface() interface{} {
	switch v.kind {
	case ValueText:
		return v.text
	case ValueNumber:
		return v.number
	case ValueBool:
		return v.boolean
	case ValueList:
		out := make([]interface{}, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	default:
		return nil
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := valueFromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func valueFromInterface(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return TextValue(t), nil
	case bool:
		return BoolValue(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("invalid number %q: %w", t, err)
		}
		return NumberValue(f), nil
	case float64:
		return NumberValue(t), nil
	case []interface{}:
		items := make([]Value, 0, len(t))
		for _, item := range t {
			iv, err := valueFromInterface(item)
			if err != nil {
				return Value{}, err
			}
			if iv.kind == ValueList {
				return Value{}, fmt.Errorf("nested lists are not supported")
			}
			items = append(items, iv)
		}
		return Value{kind: ValueList, list: items}, nil
	default:
		return Value{}, fmt.Errorf("unsupported value of type %T", raw)
	}
}

func (v Value) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if v.kind == ValueNull {
		return bsontype.Null, nil, nil
	}
	return bson.MarshalValue(v.Interface())
}

func (v *Value) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	parsed, err := valueFromRaw(bson.RawValue{Type: t, Value: data})
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func valueFromRaw(rv bson.RawValue) (Value, error) {
	switch rv.Type {
	case bsontype.Null, bsontype.Undefined:
		return Value{}, nil
	case bsontype.String:
		return TextValue(rv.StringValue()), nil
	case bsontype.Boolean:
		return BoolValue(rv.Boolean()), nil
	case bsontype.Double:
		return NumberValue(rv.Double()), nil
	case bsontype.Int32:
		return NumberValue(float64(rv.Int32())), nil
	case bsontype.Int64:
		return NumberValue(float64(rv.Int64())), nil
	case bsontype.Array:
		raws, err := rv.Array().Values()
		if err != nil {
			return Value{}, err
		}
		items := make([]Value, 0, len(raws))
		for _, r := range raws {
			iv, err := valueFromRaw(r)
			if err != nil {
				return Value{}, err
			}
			items = append(items, iv)
		}
		return Value{kind: ValueList, list: items}, nil
	default:
		return Value{}, fmt.Errorf("unsupported bson type %s", rv.Type)
	}
}
