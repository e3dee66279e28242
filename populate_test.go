package webhooks

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPopulate_Scalars(t *testing.T) {
	t.Run("assigns json-tagged fields", func(t *testing.T) {
		v := &Visitor{}
		err := Populate(v, map[string]any{
			"name":        "Jane",
			"email":       "jane@example.com",
			"number":      json.Number("1502"),
			"chats_count": json.Number("4"),
			"social":      map[string]any{"vk": map[string]any{"url": "https://vk.com/jane"}},
		})

		require.NoError(t, err)
		assert.Equal(t, "Jane", v.Name)
		assert.Equal(t, "jane@example.com", v.Email)
		assert.Equal(t, json.Number("1502"), v.Number)
		assert.Equal(t, int64(4), v.ChatsCount)
		assert.Equal(t, map[string]any{"vk": map[string]any{"url": "https://vk.com/jane"}}, v.Social)
	})

	t.Run("converts loosely typed values", func(t *testing.T) {
		g := &GeoIP{}
		err := Populate(g, map[string]any{
			"latitude":    "55.75",
			"longitude":   json.Number("37.61"),
			"region_code": 48,
		})

		require.NoError(t, err)
		assert.InDelta(t, 55.75, g.Latitude, 1e-9)
		assert.InDelta(t, 37.61, g.Longitude, 1e-9)
		assert.Equal(t, "48", g.RegionCode)
	})

	t.Run("ignores unknown keys", func(t *testing.T) {
		p := &Page{}
		err := Populate(p, map[string]any{"url": "https://example.com", "referrer": "x", "scroll": 3})

		require.NoError(t, err)
		assert.Equal(t, Page{URL: "https://example.com"}, *p)
	})

	t.Run("assigns embedded envelope fields", func(t *testing.T) {
		ev := &OfflineMessage{}
		err := Populate(ev, map[string]any{
			"event_name":         "offline_message",
			"widget_id":          "w-1",
			"offline_message_id": json.Number("17"),
			"message":            "call me back",
		})

		require.NoError(t, err)
		assert.Equal(t, EventOfflineMessage, ev.EventName)
		assert.Equal(t, "w-1", ev.WidgetID)
		assert.Equal(t, json.Number("17"), ev.OfflineMessageID)
		assert.Equal(t, "call me back", ev.Message)
	})

	t.Run("rejects unconvertible scalars", func(t *testing.T) {
		err := Populate(&Visitor{}, map[string]any{"chats_count": "many"})

		var shapeErr *InvalidShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, "chats_count", shapeErr.Field)
		assert.Equal(t, "Visitor", shapeErr.Shape)
	})
}

func TestPopulate_Single(t *testing.T) {
	t.Run("builds nested shape from a mapping", func(t *testing.T) {
		ev := &ChatAccepted{}
		err := Populate(ev, map[string]any{"agent": map[string]any{"id": json.Number("9"), "name": "Anna"}})

		require.NoError(t, err)
		require.NotNil(t, ev.Agent)
		assert.Equal(t, Agent{ID: "9", Name: "Anna"}, *ev.Agent)
	})

	t.Run("passes an existing instance through", func(t *testing.T) {
		agent := &Agent{Name: "Anna"}
		ev := &ChatAccepted{}
		require.NoError(t, Populate(ev, map[string]any{"agent": agent}))

		assert.Same(t, agent, ev.Agent)
	})

	t.Run("accepts an instance value", func(t *testing.T) {
		ev := &ChatAccepted{}
		require.NoError(t, Populate(ev, map[string]any{"agent": Agent{Name: "Anna"}}))

		require.NotNil(t, ev.Agent)
		assert.Equal(t, "Anna", ev.Agent.Name)
	})

	t.Run("required field rejects empty values", func(t *testing.T) {
		for name, raw := range map[string]any{
			"nil":          nil,
			"empty object": map[string]any{},
			"empty string": "",
			"nil instance": (*Agent)(nil),
		} {
			t.Run(name, func(t *testing.T) {
				err := Populate(&ChatAccepted{}, map[string]any{"agent": raw})

				var shapeErr *InvalidShapeError
				require.ErrorAs(t, err, &shapeErr)
				assert.Equal(t, "agent", shapeErr.Field)
				assert.Equal(t, "Agent", shapeErr.Shape)
			})
		}
	})

	t.Run("optional field resets to nil on empty values", func(t *testing.T) {
		ev := &CallEvent{Agent: &Agent{Name: "stale"}}
		require.NoError(t, Populate(ev, map[string]any{"agent": map[string]any{}}))

		assert.Nil(t, ev.Agent)
	})

	t.Run("rejects values of the wrong type", func(t *testing.T) {
		for name, raw := range map[string]any{
			"string": "Anna",
			"number": json.Number("5"),
			"list":   []any{map[string]any{"name": "Anna"}},
			"other":  &Tag{},
		} {
			t.Run(name, func(t *testing.T) {
				err := Populate(&CallEvent{}, map[string]any{"agent": raw})

				var shapeErr *InvalidShapeError
				require.ErrorAs(t, err, &shapeErr)
				assert.Equal(t, "agent", shapeErr.Field)
			})
		}
	})

	t.Run("recurses at any depth", func(t *testing.T) {
		ev := &ChatUpdated{}
		err := Populate(ev, map[string]any{
			"session": map[string]any{
				"ip_addr": "203.0.113.7",
				"geoip":   map[string]any{"city": "Moscow"},
			},
		})

		require.NoError(t, err)
		require.NotNil(t, ev.Session)
		require.NotNil(t, ev.Session.GeoIP)
		assert.Equal(t, "Moscow", ev.Session.GeoIP.City)
		assert.Nil(t, ev.Session.UTMJSON)
	})

	t.Run("nested failures name the inner field", func(t *testing.T) {
		err := Populate(&ChatUpdated{}, map[string]any{
			"session": map[string]any{"geoip": "Moscow"},
		})

		var shapeErr *InvalidShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, "session", shapeErr.Field)

		var inner *InvalidShapeError
		require.ErrorAs(t, shapeErr.Err, &inner)
		assert.Equal(t, "geoip", inner.Field)
		assert.Equal(t, "GeoIP", inner.Shape)
	})
}

func TestPopulate_Collection(t *testing.T) {
	t.Run("converts every element in order", func(t *testing.T) {
		ev := &ChatFinished{}
		err := Populate(ev, map[string]any{
			"agents": []any{
				map[string]any{"name": "Anna"},
				&Agent{Name: "Boris"},
			},
		})

		require.NoError(t, err)
		require.Len(t, ev.Agents, 2)
		assert.Equal(t, "Anna", ev.Agents[0].Name)
		assert.Equal(t, "Boris", ev.Agents[1].Name)
	})

	t.Run("accepts typed lists", func(t *testing.T) {
		tags := []*Tag{{Title: "lead"}}
		ev := &ChatFinished{}
		require.NoError(t, Populate(ev, map[string]any{"tags": tags}))

		assert.Equal(t, tags, ev.Tags)

		ev = &ChatFinished{}
		require.NoError(t, Populate(ev, map[string]any{"tags": []map[string]any{{"title": "vip"}}}))
		require.Len(t, ev.Tags, 1)
		assert.Equal(t, "vip", ev.Tags[0].Title)
	})

	t.Run("a bad element fails the whole field", func(t *testing.T) {
		kept := []*Agent{{Name: "before"}}
		ev := &ChatFinished{Agents: kept}
		err := Populate(ev, map[string]any{
			"agents": []any{map[string]any{"name": "Anna"}, json.Number("5")},
		})

		var shapeErr *InvalidShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, "agents[1]", shapeErr.Field)
		assert.Equal(t, "Agent", shapeErr.Shape)
		assert.Equal(t, kept, ev.Agents)
	})

	t.Run("required list rejects empty values", func(t *testing.T) {
		for name, raw := range map[string]any{
			"nil":        nil,
			"empty list": []any{},
			"typed":      []*Agent{},
		} {
			t.Run(name, func(t *testing.T) {
				err := Populate(&ClientUpdated{}, map[string]any{"assigned_agent": raw})

				var shapeErr *InvalidShapeError
				require.ErrorAs(t, err, &shapeErr)
				assert.Equal(t, "assigned_agent", shapeErr.Field)
			})
		}
	})

	t.Run("optional list resets to nil on empty values", func(t *testing.T) {
		ev := &ChatFinished{Tags: []*Tag{{Title: "stale"}}}
		require.NoError(t, Populate(ev, map[string]any{"tags": []any{}}))

		assert.Nil(t, ev.Tags)
	})

	t.Run("rejects non-lists", func(t *testing.T) {
		err := Populate(&ChatFinished{}, map[string]any{"agents": map[string]any{"name": "Anna"}})

		var shapeErr *InvalidShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, "agents", shapeErr.Field)
	})

	t.Run("nested lists are checked too", func(t *testing.T) {
		err := Populate(&ChatFinished{}, map[string]any{
			"chat": map[string]any{"messages": []any{"hello"}},
		})

		var shapeErr *InvalidShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, "chat", shapeErr.Field)
		assert.Contains(t, err.Error(), `"messages[0]"`)
	})
}

func TestPopulate_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		target Shape
		data   map[string]any
	}{
		{
			name:   "event",
			target: &OfflineMessage{},
			data: map[string]any{
				"event_name":         "offline_message",
				"widget_id":          "w-1",
				"user_token":         "tok",
				"offline_message_id": json.Number("17"),
				"message":            "Перезвоните мне",
			},
		},
		{
			name:   "zero values",
			target: &Visitor{},
			data: map[string]any{
				"name":        "",
				"chats_count": json.Number("0"),
				"email":       "a@b",
			},
		},
		{
			name:   "false flag",
			target: &Chat{},
			data: map[string]any{
				"rate":        "",
				"blacklisted": false,
			},
		},
		{
			name:   "negative number",
			target: &Message{},
			data: map[string]any{
				"timestamp": json.Number("0"),
				"agent_id":  json.Number("-3"),
				"message":   "",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, Populate(tt.target, tt.data))

			raw, err := json.Marshal(tt.target)
			require.NoError(t, err)

			got, err := decodeObject(raw)
			require.NoError(t, err)
			for key, want := range tt.data {
				assert.Contains(t, got, key)
				assert.Equal(t, want, got[key], key)
			}
		})
	}
}

func TestPopulate_Numbers(t *testing.T) {
	t.Run("numeric strings are accepted", func(t *testing.T) {
		v := &Visitor{}
		require.NoError(t, Populate(v, map[string]any{"number": "42"}))
		assert.Equal(t, json.Number("42"), v.Number)
	})

	t.Run("native numbers are accepted", func(t *testing.T) {
		a := &Agent{}
		require.NoError(t, Populate(a, map[string]any{"id": 7}))
		assert.Equal(t, json.Number("7"), a.ID)

		m := &Message{}
		require.NoError(t, Populate(m, map[string]any{"agent_id": 2.5}))
		assert.Equal(t, json.Number("2.5"), m.AgentID)
	})

	t.Run("empty string leaves the number unset", func(t *testing.T) {
		tag := &Tag{}
		require.NoError(t, Populate(tag, map[string]any{"id": ""}))
		assert.Empty(t, tag.ID)
	})

	for _, bad := range []string{"n-1", "agent-x", "1 ", "-", "0x10", "1e"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			v := &Visitor{}
			err := Populate(v, map[string]any{"number": bad})

			var shapeErr *InvalidShapeError
			require.ErrorAs(t, err, &shapeErr)
			assert.Equal(t, "number", shapeErr.Field)
			assert.Equal(t, "Visitor", shapeErr.Shape)
		})
	}

	t.Run("nested ids are checked", func(t *testing.T) {
		err := Populate(&ChatAccepted{}, map[string]any{"agent": map[string]any{"id": "agent-x"}})

		var shapeErr *InvalidShapeError
		require.ErrorAs(t, err, &shapeErr)
		assert.Equal(t, "agent", shapeErr.Field)
		assert.Contains(t, err.Error(), "agent-x")
	})
}

func TestDescribe(t *testing.T) {
	got := Describe(&ChatFinished{})

	assert.Equal(t, []FieldInfo{
		{Name: "agents", Kind: ListRequired, Shape: "Agent"},
		{Name: "analytics", Kind: SingleOptional, Shape: "Analytics"},
		{Name: "chat", Kind: SingleRequired, Shape: "Chat"},
		{Name: "department", Kind: SingleOptional, Shape: "Department"},
		{Name: "page", Kind: SingleOptional, Shape: "Page"},
		{Name: "session", Kind: SingleRequired, Shape: "Session"},
		{Name: "tags", Kind: ListOptional, Shape: "Tag"},
		{Name: "visitor", Kind: SingleRequired, Shape: "Visitor"},
	}, got)

	assert.Empty(t, Describe(&Visitor{}))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "scalar", Scalar.String())
	assert.Equal(t, "single-required", SingleRequired.String())
	assert.Equal(t, "list-optional", ListOptional.String())
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestInvalidShapeError(t *testing.T) {
	cause := errors.New("boom")
	err := &InvalidShapeError{Field: "agent", Shape: "Agent", Err: cause}

	assert.Equal(t, `field "agent": invalid data for Agent: boom`, err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsInputError(err))
}
