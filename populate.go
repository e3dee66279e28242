package webhooks

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

// Shape is implemented by every payload object that can be filled from a
// decoded JSON object.
//
// Bindings returns the compound fields of the object keyed by their JSON
// name. Scalar fields need no entry: they are matched to struct fields through
// their json tags.
type Shape interface {
	Bindings() Bindings
}

// Populate fills target from data.
//
// For every key in data:
//   - if target binds the key as a compound field, the Binder validates and
//     assigns the value (recursing into nested shapes as needed);
//   - otherwise the value is assigned to the scalar field with the matching
//     json tag;
//   - keys that match no field are ignored.
//
// Keys are processed in lexical order. The first failure aborts population and
// is returned; target is then partially populated and must be discarded.
func Populate(target Shape, data map[string]any) error {
	bindings := target.Bindings()

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var dec *mapstructure.Decoder
	for _, key := range keys {
		raw := data[key]

		if b, ok := bindings[key]; ok {
			if err := b.Bind(key, raw); err != nil {
				return err
			}
			continue
		}

		if dec == nil {
			var err error
			dec, err = newScalarDecoder(target)
			if err != nil {
				return &InvalidShapeError{Field: key, Shape: shapeName(target), Err: err}
			}
		}
		if err := dec.Decode(map[string]any{key: raw}); err != nil {
			return &InvalidShapeError{Field: key, Shape: shapeName(target), Err: err}
		}
	}

	return nil
}

// newScalarDecoder returns a decoder that writes plain values into target's
// json-tagged fields. Numbers arrive as json.Number and strings are converted
// where the field type asks for it. Values bound for a json.Number field must
// be numeric so the populated shape can be encoded again.
func newScalarDecoder(target any) (*mapstructure.Decoder, error) {
	return mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(numberHook),
		TagName:          "json",
		WeaklyTypedInput: true,
		Squash:           true,
		Result:           target,
	})
}

var numberType = reflect.TypeOf(json.Number(""))

func numberHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != numberType {
		return data, nil
	}

	switch v := data.(type) {
	case json.Number:
		return checkNumber(string(v))
	case string:
		return checkNumber(v)
	case int, int8, int16, int32, int64:
		return json.Number(strconv.FormatInt(reflect.ValueOf(v).Int(), 10)), nil
	case uint, uint8, uint16, uint32, uint64:
		return json.Number(strconv.FormatUint(reflect.ValueOf(v).Uint(), 10)), nil
	case float32, float64:
		return checkNumber(strconv.FormatFloat(reflect.ValueOf(v).Float(), 'f', -1, 64))
	}
	return data, nil
}

// checkNumber accepts s when it is a JSON number literal. The empty string
// stands for an absent number.
func checkNumber(s string) (json.Number, error) {
	if s == "" {
		return "", nil
	}
	if s[0] != '-' && (s[0] < '0' || s[0] > '9') || strings.TrimSpace(s) != s || !json.Valid([]byte(s)) {
		return "", fmt.Errorf("%q is not a number", s)
	}
	return json.Number(s), nil
}

// FieldInfo describes one compound field of a shape.
type FieldInfo struct {
	Name  string
	Kind  Kind
	Shape string
}

// Describe lists the compound fields of s sorted by name.
func Describe(s Shape) []FieldInfo {
	return s.Bindings().Fields()
}

// Fields lists the bound fields sorted by name.
func (bs Bindings) Fields() []FieldInfo {
	out := make([]FieldInfo, 0, len(bs))
	for name, b := range bs {
		out = append(out, FieldInfo{Name: name, Kind: b.Kind(), Shape: b.Shape()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// shapeName returns the bare type name of v, e.g. "Visitor" for *webhooks.Visitor.
func shapeName(v any) string {
	name := strings.TrimLeft(fmt.Sprintf("%T", v), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
