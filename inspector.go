package webhooks

import (
	"errors"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when the input is not valid JSON.
var ErrInvalidJSON = errors.New("invalid JSON")

// ErrNotObject is returned when the input is valid JSON but not an object.
var ErrNotObject = errors.New("top-level value is not an object")

// Inspector validates a raw payload and returns a View over it without
// decoding the whole document.
type Inspector interface {
	Inspect(raw []byte) (View, error)
}

// View gives read access to an inspected payload. Paths use dot notation
// ("visitor.name").
type View interface {
	// GetString returns the string at path, or false if the path is missing
	// or holds another JSON type.
	GetString(path string) (string, bool)

	// IsObject reports whether the top-level value is an object.
	IsObject() bool
}

// JSONInspector returns an Inspector backed by gjson.
func JSONInspector() Inspector {
	return jsonInspector{}
}

type jsonInspector struct{}

func (jsonInspector) Inspect(raw []byte) (View, error) {
	if !gjson.ValidBytes(raw) {
		return nil, ErrInvalidJSON
	}
	return jsonView{root: gjson.ParseBytes(raw)}, nil
}

type jsonView struct {
	root gjson.Result
}

func (v jsonView) GetString(path string) (string, bool) {
	r := v.root.Get(path)
	if r.Type != gjson.String {
		return "", false
	}
	return r.Str, true
}

func (v jsonView) IsObject() bool {
	return v.root.IsObject()
}

// PeekEventType reads event_name from raw without validating the rest of
// the payload. It is meant for logging and auditing, where raw may be
// malformed.
func PeekEventType(raw []byte) (EventType, bool) {
	r := gjson.GetBytes(raw, DiscriminatorField)
	if r.Type != gjson.String || r.Str == "" {
		return "", false
	}
	return EventType(r.Str), true
}
