package webhooks

import (
	"encoding/json"
	"time"
)

// Visitor is the chat visitor as known to the platform.
type Visitor struct {
	Name        string         `json:"name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Number      json.Number    `json:"number"`
	Description string         `json:"description"`
	Social      map[string]any `json:"social"`
	ChatsCount  int64          `json:"chats_count"`
}

func (*Visitor) Bindings() Bindings { return nil }

// Session describes the visitor's browser session.
type Session struct {
	IPAddr    string   `json:"ip_addr"`
	UserAgent string   `json:"user_agent"`
	UTM       string   `json:"utm"`
	GeoIP     *GeoIP   `json:"geoip,omitempty"`
	UTMJSON   *UTMJSON `json:"utm_json,omitempty"`
}

func (s *Session) Bindings() Bindings {
	return Bindings{
		"geoip":    One(&s.GeoIP, Optional),
		"utm_json": One(&s.UTMJSON, Optional),
	}
}

// GeoIP is the geolocation resolved from the visitor's address.
type GeoIP struct {
	RegionCode   string  `json:"region_code"`
	Region       string  `json:"region"`
	CountryCode  string  `json:"country_code"`
	Country      string  `json:"country"`
	City         string  `json:"city"`
	ISP          string  `json:"isp"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Organization string  `json:"organization"`
}

func (*GeoIP) Bindings() Bindings { return nil }

// UTMJSON holds the parsed UTM tags of the landing page.
type UTMJSON struct {
	Source   string `json:"source"`
	Medium   string `json:"medium"`
	Campaign string `json:"campaign"`
	Term     string `json:"term"`
	Content  string `json:"content"`
}

func (*UTMJSON) Bindings() Bindings { return nil }

// Page is the page the visitor is on.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

func (*Page) Bindings() Bindings { return nil }

// Agent is an operator account.
type Agent struct {
	ID    json.Number `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Phone string      `json:"phone"`
}

func (*Agent) Bindings() Bindings { return nil }

// Analytics carries the analytics client ids. Their format is set by the
// analytics vendor, so they are kept as sent.
type Analytics struct {
	GA any `json:"ga"`
	YM any `json:"ym"`
}

func (*Analytics) Bindings() Bindings { return nil }

type Department struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

func (*Department) Bindings() Bindings { return nil }

type Organization struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

func (*Organization) Bindings() Bindings { return nil }

type Status struct {
	ID    json.Number `json:"id"`
	Title string      `json:"title"`
}

func (*Status) Bindings() Bindings { return nil }

type Tag struct {
	ID    json.Number `json:"id"`
	Title string      `json:"title"`
}

func (*Tag) Bindings() Bindings { return nil }

// Chat is the transcript attached to a finished chat.
type Chat struct {
	Messages    []*Message `json:"messages,omitempty"`
	Rate        string     `json:"rate"`
	Blacklisted bool       `json:"blacklisted"`
	Invitation  any        `json:"invitation"`
}

func (c *Chat) Bindings() Bindings {
	return Bindings{
		"messages": Many(&c.Messages, Optional),
	}
}

// FirstMessageAt returns the time of the first message in the chat.
func (c *Chat) FirstMessageAt() (time.Time, bool) {
	if c == nil || len(c.Messages) == 0 {
		return time.Time{}, false
	}
	return c.Messages[0].Time(), true
}

// FirstAgentResponseAt returns the time of the first message sent by an agent.
func (c *Chat) FirstAgentResponseAt() (time.Time, bool) {
	if c == nil {
		return time.Time{}, false
	}
	for _, m := range c.Messages {
		if m.Type == MessageTypeAgent {
			return m.Time(), true
		}
	}
	return time.Time{}, false
}

// MessageTypeAgent marks messages written by an operator.
const MessageTypeAgent = "agent"

// Message is one line of a chat transcript.
type Message struct {
	Timestamp int64       `json:"timestamp"`
	Type      string      `json:"type"`
	AgentID   json.Number `json:"agent_id"`
	Message   string      `json:"message"`
}

func (*Message) Bindings() Bindings { return nil }

// Time returns Timestamp as a UTC time.
func (m *Message) Time() time.Time { return time.Unix(m.Timestamp, 0).UTC() }

// Call is a phone call handled through the platform.
type Call struct {
	Type      string `json:"type"`
	Phone     string `json:"phone"`
	Status    string `json:"status"`
	RecordURL string `json:"record_url"`
	Reason    string `json:"reason"`
}

func (*Call) Bindings() Bindings { return nil }
