package webhooks

import (
	"encoding/json"
	"time"
)

// DiscriminatorField is the payload key that carries the event type.
const DiscriminatorField = "event_name"

// EventType identifies a webhook event.
type EventType string

// Event types sent by the platform.
const (
	EventCallEvent      EventType = "call_event"
	EventChatAccepted   EventType = "chat_accepted"
	EventChatAssigned   EventType = "chat_assigned"
	EventChatFinished   EventType = "chat_finished"
	EventChatUpdated    EventType = "chat_updated"
	EventOfflineMessage EventType = "offline_message"
	EventClientUpdated  EventType = "client_updated"
)

// EventTypes returns every known event type.
func EventTypes() []EventType {
	return []EventType{
		EventCallEvent,
		EventChatAccepted,
		EventChatAssigned,
		EventChatFinished,
		EventChatUpdated,
		EventOfflineMessage,
		EventClientUpdated,
	}
}

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventCallEvent, EventChatAccepted, EventChatAssigned, EventChatFinished,
		EventChatUpdated, EventOfflineMessage, EventClientUpdated:
		return true
	}
	return false
}

func (t EventType) String() string { return string(t) }

// Event is a decoded webhook payload. The concrete type is one of the
// pointer types in this file; use a type switch to get at variant fields.
type Event interface {
	Shape

	// Type returns the event type of the variant. It does not read the
	// receiver and is safe to call on a nil pointer.
	Type() EventType

	// Header returns the fields shared by every event.
	Header() *Envelope
}

// Envelope holds the fields common to all events.
type Envelope struct {
	EventName  EventType   `json:"event_name"`
	WidgetID   string      `json:"widget_id"`
	UserToken  string      `json:"user_token"`
	Visitor    *Visitor    `json:"visitor,omitempty"`
	Session    *Session    `json:"session,omitempty"`
	Page       *Page       `json:"page,omitempty"`
	Analytics  *Analytics  `json:"analytics,omitempty"`
	Department *Department `json:"department,omitempty"`

	receivedAt time.Time
}

// Header returns e.
func (e *Envelope) Header() *Envelope { return e }

// ReceivedAt returns the time the event was built by a Factory. For a
// chat_finished event it is the time the chat was reported finished. It is
// zero for events populated directly.
func (e *Envelope) ReceivedAt() time.Time { return e.receivedAt }

func (e *Envelope) Bindings() Bindings {
	return Bindings{
		"visitor":    One(&e.Visitor, Required),
		"session":    One(&e.Session, Required),
		"page":       One(&e.Page, Optional),
		"analytics":  One(&e.Analytics, Optional),
		"department": One(&e.Department, Optional),
	}
}

// with returns the envelope bindings extended by extra.
func (e *Envelope) with(extra Bindings) Bindings {
	b := e.Bindings()
	for k, v := range extra {
		b[k] = v
	}
	return b
}

// ChatAccepted is sent when an agent accepts a chat.
type ChatAccepted struct {
	Envelope
	ChatID json.Number `json:"chat_id"`
	Agent  *Agent      `json:"agent,omitempty"`
}

func (*ChatAccepted) Type() EventType { return EventChatAccepted }

func (e *ChatAccepted) Bindings() Bindings {
	return e.with(Bindings{
		"agent": One(&e.Agent, Required),
	})
}

// ChatAssigned is sent when a chat is linked to a visitor card in the
// integrator's system.
type ChatAssigned struct {
	Envelope
	ChatID   json.Number `json:"chat_id"`
	Agent    *Agent      `json:"agent,omitempty"`
	AssignTo string      `json:"assign_to"`
}

func (*ChatAssigned) Type() EventType { return EventChatAssigned }

func (e *ChatAssigned) Bindings() Bindings {
	return e.with(Bindings{
		"agent": One(&e.Agent, Required),
	})
}

// ChatFinished is sent when a chat is closed.
type ChatFinished struct {
	Envelope
	ChatID json.Number `json:"chat_id"`
	Agents []*Agent    `json:"agents,omitempty"`
	Chat   *Chat       `json:"chat,omitempty"`
	Tags   []*Tag      `json:"tags,omitempty"`
}

func (*ChatFinished) Type() EventType { return EventChatFinished }

func (e *ChatFinished) Bindings() Bindings {
	return e.with(Bindings{
		"agents": Many(&e.Agents, Required),
		"chat":   One(&e.Chat, Required),
		"tags":   Many(&e.Tags, Optional),
	})
}

// ChatUpdated is sent when the visitor's contact details change during a chat.
type ChatUpdated struct {
	Envelope
	ChatID json.Number `json:"chat_id"`
	Agents []*Agent    `json:"agents,omitempty"`
}

func (*ChatUpdated) Type() EventType { return EventChatUpdated }

func (e *ChatUpdated) Bindings() Bindings {
	return e.with(Bindings{
		"agents": Many(&e.Agents, Optional),
	})
}

// OfflineMessage is sent when a visitor leaves a message while no agent is online.
type OfflineMessage struct {
	Envelope
	OfflineMessageID json.Number `json:"offline_message_id"`
	Message          string      `json:"message"`
}

func (*OfflineMessage) Type() EventType { return EventOfflineMessage }

func (e *OfflineMessage) Bindings() Bindings { return e.Envelope.Bindings() }

// CallEvent is sent on phone call state changes.
type CallEvent struct {
	Envelope
	CallID json.Number `json:"call_id"`
	Agent  *Agent      `json:"agent,omitempty"`
	Call   *Call       `json:"call,omitempty"`
}

func (*CallEvent) Type() EventType { return EventCallEvent }

func (e *CallEvent) Bindings() Bindings {
	return e.with(Bindings{
		"agent": One(&e.Agent, Optional),
		"call":  One(&e.Call, Required),
	})
}

// ClientUpdated is sent when a client card is edited by an agent.
type ClientUpdated struct {
	Envelope
	ClientID      json.Number   `json:"client_id"`
	Message       string        `json:"message"`
	AssignedAgent []*Agent      `json:"assigned_agent,omitempty"`
	Tags          []*Tag        `json:"tags,omitempty"`
	Status        *Status       `json:"status,omitempty"`
	Organization  *Organization `json:"organization,omitempty"`
}

func (*ClientUpdated) Type() EventType { return EventClientUpdated }

func (e *ClientUpdated) Bindings() Bindings {
	return e.with(Bindings{
		"assigned_agent": Many(&e.AssignedAgent, Required),
		"tags":           Many(&e.Tags, Optional),
		"status":         One(&e.Status, Optional),
		"organization":   One(&e.Organization, Optional),
	})
}
