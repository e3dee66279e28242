package webhooks

// Discriminator recognizes the payloads of one event variant from an
// inspected View, before any population takes place.
type Discriminator interface {
	Match(v View) bool
}

// IsEvent returns a Discriminator that matches payloads whose event_name is
// the string t.
func IsEvent(t EventType) Discriminator {
	return eventIs(t)
}

type eventIs EventType

func (t eventIs) Match(v View) bool {
	name, ok := v.GetString(DiscriminatorField)
	return ok && name == string(t)
}
