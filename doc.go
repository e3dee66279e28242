// Package webhooks receives chat platform webhook callbacks, turns their JSON
// payloads into typed events, routes each event to the handler registered for
// its type, and encodes the handler's decision into the reply the platform
// expects.
//
// # Quick Start
//
// Register a handler for the events you care about and feed raw request
// bodies to Listen:
//
//	l := webhooks.NewListener()
//
//	webhooks.Register(l, func(ctx context.Context, e *webhooks.ChatAccepted) (webhooks.Decision, error) {
//	    return webhooks.NewResponse().
//	        SetContactInfo(webhooks.ContactInfo{Name: e.Visitor.Name}).
//	        SetCRMLink("https://crm.example.com/chats/" + e.ChatID.String()), nil
//	})
//
//	reply, err := l.Listen(ctx, body)
//
// Events without a registered handler are answered with {"result":"ok"}.
//
// # Events
//
// Every payload carries an event_name field selecting one of seven variants:
// CallEvent, ChatAccepted, ChatAssigned, ChatFinished, ChatUpdated,
// OfflineMessage and ClientUpdated. All of them embed Envelope, which holds the
// fields shared by every event. NewEvent decodes a payload on its own:
//
//	ev, err := webhooks.NewEvent(body)
//	switch e := ev.(type) {
//	case *webhooks.ChatFinished:
//	    started, _ := e.Chat.FirstMessageAt()
//	}
//
// # Population
//
// Payload objects implement Shape. Plain fields are filled from their json
// tags with loose typing ("3" decodes into an int64). Nested objects and lists
// of objects are declared in the Bindings table of the shape, one entry per
// field:
//
//	func (c *Chat) Bindings() webhooks.Bindings {
//	    return webhooks.Bindings{
//	        "messages": webhooks.Many(&c.Messages, webhooks.Optional),
//	    }
//	}
//
// A Required field rejects empty values (null, "", {} or []) with
// *InvalidShapeError; an Optional field is reset to nil. Fields missing from
// the payload are left untouched, and unknown keys are ignored. A list is only
// assigned once every element converted.
//
// # Replies
//
// Response accumulates the decision. With nothing set it encodes to
// {"result":"ok"}; once custom data, contact info, a CRM link or a page is
// set, enable_assign and the set blocks are added.
//
// # Hooks
//
// Hooks observe the listen cycle without coupling the package to a logging or
// metrics system:
//
//	l := webhooks.NewListener(
//	    webhooks.WithOnSuccess(func(ctx context.Context, t webhooks.EventType, d time.Duration) {
//	        handled.WithLabelValues(t.String()).Observe(d.Seconds())
//	    }),
//	    webhooks.WithOnNoHandler(func(ctx context.Context, t webhooks.EventType) error {
//	        return nil
//	    }),
//	)
//
// Handlers can implement OnDispatchHook, OnSuccessHook or OnFailureHook to
// run their own hooks after the global ones.
//
// # Auditing
//
// An AuditLog sees the raw payload before decoding and the encoded reply
// after it, both under the same RequestID. A failing audit log fails the
// request with *AuditError.
//
// # Thread Safety
//
// Listener is safe for concurrent use after configuration is complete. Do not
// call On or Register after calling Listen.
package webhooks
