package webhooks

import (
	"errors"
	"fmt"
)

var errEmptyValue = errors.New("value is empty")

// Kind is the population strategy of a field.
type Kind int

const (
	Scalar Kind = iota
	SingleRequired
	SingleOptional
	ListRequired
	ListOptional
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case SingleRequired:
		return "single-required"
	case SingleOptional:
		return "single-optional"
	case ListRequired:
		return "list-required"
	case ListOptional:
		return "list-optional"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Requirement says whether an empty value is acceptable for a compound field.
type Requirement int

const (
	// Required fields reject empty values.
	Required Requirement = iota
	// Optional fields reset to nil on empty values.
	Optional
)

// Bindings maps JSON field names to the binders that populate them.
type Bindings map[string]Binder

// Binder populates a single compound field of a shape.
type Binder struct {
	kind  Kind
	shape string
	bind  func(field string, raw any) error
}

// Kind returns the field's population strategy.
func (b Binder) Kind() Kind { return b.kind }

// Shape returns the name of the nested shape.
func (b Binder) Shape() string { return b.shape }

// Bind converts raw and assigns it to the bound field. field names the JSON
// key and is only used for error context.
func (b Binder) Bind(field string, raw any) error {
	return b.bind(field, raw)
}

// shapePtr is satisfied by *N when N is a populatable shape.
type shapePtr[N any] interface {
	*N
	Shape
}

// One binds a single nested object to dst.
//
// The value may be an existing *N, which is stored as is, or a JSON object,
// which is populated into a fresh *N. Any other value fails with
// *InvalidShapeError. An empty value resets dst to nil when req is Optional
// and fails when req is Required.
func One[N any, P shapePtr[N]](dst **N, req Requirement) Binder {
	shape := shapeName(new(N))
	kind := SingleRequired
	if req == Optional {
		kind = SingleOptional
	}

	return Binder{
		kind:  kind,
		shape: shape,
		bind: func(field string, raw any) error {
			if emptyFor[N](raw) {
				if req == Optional {
					*dst = nil
					return nil
				}
				return &InvalidShapeError{Field: field, Shape: shape, Err: errEmptyValue}
			}

			v, err := convert[N, P](raw)
			if err != nil {
				return &InvalidShapeError{Field: field, Shape: shape, Err: err}
			}
			*dst = v
			return nil
		},
	}
}

// Many binds a homogeneous list of nested objects to dst.
//
// Every element is converted with the same rules as One. If any element fails,
// dst is left untouched and *InvalidShapeError names the offending index.
func Many[N any, P shapePtr[N]](dst *[]*N, req Requirement) Binder {
	shape := shapeName(new(N))
	kind := ListRequired
	if req == Optional {
		kind = ListOptional
	}

	return Binder{
		kind:  kind,
		shape: shape,
		bind: func(field string, raw any) error {
			if emptyFor[N](raw) {
				if req == Optional {
					*dst = nil
					return nil
				}
				return &InvalidShapeError{Field: field, Shape: shape, Err: errEmptyValue}
			}

			items, ok := listOf[N](raw)
			if !ok {
				return &InvalidShapeError{Field: field, Shape: shape, Err: fmt.Errorf("expected a list, got %T", raw)}
			}

			out := make([]*N, 0, len(items))
			for i, item := range items {
				v, err := convert[N, P](item)
				if err != nil {
					return &InvalidShapeError{Field: fmt.Sprintf("%s[%d]", field, i), Shape: shape, Err: err}
				}
				out = append(out, v)
			}
			*dst = out
			return nil
		},
	}
}

// convert turns raw into a *N. Existing instances pass through; JSON objects
// are populated into a new instance.
func convert[N any, P shapePtr[N]](raw any) (*N, error) {
	switch v := raw.(type) {
	case *N:
		if v == nil {
			return nil, errEmptyValue
		}
		return v, nil
	case N:
		return &v, nil
	case map[string]any:
		n := P(new(N))
		if err := Populate(n, v); err != nil {
			return nil, err
		}
		return (*N)(n), nil
	default:
		return nil, fmt.Errorf("expected an object, got %T", raw)
	}
}

// listOf normalizes the list forms a caller may hand to Many.
func listOf[N any](raw any) ([]any, bool) {
	switch v := raw.(type) {
	case []any:
		return v, true
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []*N:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	default:
		return nil, false
	}
}

// emptyFor extends isEmpty with the nil and zero-length forms of *N and []*N.
func emptyFor[N any](raw any) bool {
	switch v := raw.(type) {
	case *N:
		return v == nil
	case []*N:
		return len(v) == 0
	default:
		return isEmpty(raw)
	}
}

// isEmpty mirrors what the platform sends for "no value": null, an empty
// string, an empty object or an empty list.
func isEmpty(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case map[string]any:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case []map[string]any:
		return len(v) == 0
	default:
		return false
	}
}
