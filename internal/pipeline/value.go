package pipeline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Kind identifies the JSON type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindObject
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindObject:
		return "object"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Member is one key of a JSON object. Objects keep their source key order.
type Member struct {
	Key   string
	Value Value
}

// Value is a decoded JSON value as returned by the model, before coercion.
type Value struct {
	Kind    Kind
	Bool    bool
	Number  float64
	String  string
	Members []Member
	Items   []Value
}

// Get returns the value stored under key. Duplicate keys resolve to the last
// occurrence, matching encoding/json.
func (v Value) Get(key string) (Value, bool) {
	if v.Kind != KindObject {
		return Value{}, false
	}
	for i := len(v.Members) - 1; i >= 0; i-- {
		if v.Members[i].Key == key {
			return v.Members[i].Value, true
		}
	}
	return Value{}, false
}

// Constructors for building values by hand.
func Null() Value              { return Value{Kind: KindNull} }
func Str(s string) Value       { return Value{Kind: KindString, String: s} }
func Num(f float64) Value      { return Value{Kind: KindNumber, Number: f} }
func Bool(b bool) Value        { return Value{Kind: KindBool, Bool: b} }
func Arr(items ...Value) Value { return Value{Kind: KindArray, Items: items} }

// Obj builds an object from members in the given order.
func Obj(members ...Member) Value {
	return Value{Kind: KindObject, Members: members}
}

// ParseValue decodes a single JSON document. Trailing non-whitespace data is an error.
func ParseValue(text string) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, fmt.Errorf("ParseValue: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return Value{}, fmt.Errorf("ParseValue: %w", err)
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case string:
		return Str(t), nil
	case json.Number:
		f, err := t.Float64()
		if errors.Is(err, strconv.ErrRange) {
			// Out of float64 range; coercion treats it as missing.
			return Null(), nil
		}
		if err != nil {
			return Value{}, fmt.Errorf("number %q: %w", t.String(), err)
		}
		return Num(f), nil
	case json.Delim:
		switch t {
		case '{':
			obj := Value{Kind: KindObject}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is %T, want string", keyTok)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Members = append(obj.Members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return obj, nil
		case '[':
			arr := Value{Kind: KindArray, Items: []Value{}}
			for dec.More() {
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				arr.Items = append(arr.Items, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return arr, nil
		}
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}
