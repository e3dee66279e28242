package webhooks

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// variant ties an event type to the discriminator that recognizes it and the
// constructor of its payload.
type variant struct {
	eventType     EventType
	discriminator Discriminator
	new           func() Event
}

func variantOf[E any, P interface {
	*E
	Event
}]() variant {
	t := P(nil).Type()
	return variant{
		eventType:     t,
		discriminator: IsEvent(t),
		new:           func() Event { return P(new(E)) },
	}
}

var variants = []variant{
	variantOf[CallEvent](),
	variantOf[ChatAccepted](),
	variantOf[ChatAssigned](),
	variantOf[ChatFinished](),
	variantOf[ChatUpdated](),
	variantOf[OfflineMessage](),
	variantOf[ClientUpdated](),
}

// Factory builds typed events from raw webhook payloads.
//
// Factory is safe for concurrent use.
type Factory struct {
	inspector Inspector
	now       func() time.Time
}

// NewFactory creates a Factory that inspects payloads with i. A nil i selects
// JSONInspector.
func NewFactory(i Inspector) *Factory {
	if i == nil {
		i = JSONInspector()
	}
	return &Factory{inspector: i, now: time.Now}
}

var defaultFactory = NewFactory(nil)

// NewEvent decodes raw with the default Factory.
func NewEvent(raw []byte) (Event, error) {
	return defaultFactory.New(raw)
}

// New decodes raw into the event variant named by its event_name field.
//
// The errors are, in the order they are checked:
//   - *DecodeError if raw is not a JSON object;
//   - *MissingDiscriminatorError if event_name is absent, empty or not a string;
//   - *UnknownEventTypeError if event_name is not a known event type;
//   - *InvalidShapeError if a field cannot be populated.
func (f *Factory) New(raw []byte) (Event, error) {
	view, err := f.inspector.Inspect(raw)
	if err != nil {
		return nil, &DecodeError{Err: syntaxDetail(raw, err)}
	}
	if !view.IsObject() {
		return nil, &DecodeError{Err: ErrNotObject}
	}

	name, ok := view.GetString(DiscriminatorField)
	if !ok || name == "" {
		return nil, &MissingDiscriminatorError{Field: DiscriminatorField}
	}

	v, ok := match(view)
	if !ok {
		return nil, &UnknownEventTypeError{EventType: name}
	}

	data, err := decodeObject(raw)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	ev := v.new()
	if err := Populate(ev, data); err != nil {
		return nil, fmt.Errorf("build %s event: %w", v.eventType, err)
	}

	// A duplicated event_name key decodes to its last value, while the
	// variant was matched on the first one.
	h := ev.Header()
	h.EventName = v.eventType
	h.receivedAt = f.now()
	return ev, nil
}

func match(view View) (variant, bool) {
	for _, v := range variants {
		if v.discriminator.Match(view) {
			return v, true
		}
	}
	return variant{}, false
}

// decodeObject decodes raw keeping numbers as json.Number so that ids and
// timestamps survive without float rounding.
func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var data map[string]any
	if err := dec.Decode(&data); err != nil {
		return nil, err
	}
	return data, nil
}

// syntaxDetail attaches the parser's position information to err when the
// standard decoder can provide it.
func syntaxDetail(raw []byte, err error) error {
	var v any
	if jerr := json.Unmarshal(raw, &v); jerr != nil {
		return fmt.Errorf("%w: %v", err, jerr)
	}
	return err
}
