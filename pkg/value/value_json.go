package value

import (
	"encoding/json"
	"math"
)

// ToJSON marshals a Value to JSON bytes.
// Integers are emitted as exact JSON numbers regardless of width; non-finite
// floats, which JSON cannot represent, are emitted as their display strings.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(toRaw(v))
}

// ToJSONString is a convenience that returns a string.
func ToJSONString(v Value) string {
	b, err := ToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func toRaw(v Value) any {
	switch val := v.(type) {
	case Integer:
		return json.Number(val.String())
	case Float:
		if math.IsNaN(val.Val) || math.IsInf(val.Val, 0) {
			return val.String()
		}
		return val.Val
	case Text:
		return val.Val
	case Boolean:
		return val.Val
	case Character:
		return val.String()
	}
	return nil
}

// Tagged is the self-describing JSON form of a value, used in trace data and
// machine-readable run output.
type Tagged struct {
	Kind  string `json:"kind"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Tag converts v to its tagged form.
func Tag(v Value) Tagged {
	if v == nil {
		return Tagged{Kind: "none", Type: TypeName(v)}
	}
	return Tagged{
		Kind:  v.Kind().String(),
		Type:  TypeName(v),
		Value: toRaw(v),
	}
}

// TaggedJSON marshals v in its tagged form.
func TaggedJSON(v Value) ([]byte, error) {
	return json.Marshal(Tag(v))
}
