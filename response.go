package webhooks

import (
	"bytes"
	"encoding/json"
)

// Decision is what a handler returns: the reply to send back to the platform.
type Decision interface {
	Encode() ([]byte, error)
}

// CustomData is an extra block shown to the agent in the chat window.
type CustomData struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Key     string `json:"key,omitempty"`
	Link    string `json:"link,omitempty"`
}

// CustomDataOption sets an optional attribute of a CustomData entry.
type CustomDataOption func(*CustomData)

// WithLink makes the custom data entry a hyperlink.
func WithLink(link string) CustomDataOption {
	return func(d *CustomData) { d.Link = link }
}

// WithKey sets the label of the custom data entry.
func WithKey(key string) CustomDataOption {
	return func(d *CustomData) { d.Key = key }
}

// ContactInfo is the visitor contact card returned to the platform.
type ContactInfo struct {
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Description string `json:"description,omitempty"`
}

// IsZero reports whether no field of c is set.
func (c ContactInfo) IsZero() bool { return c == ContactInfo{} }

// PageLink points the agent at a page in the integrator's system.
type PageLink struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

// Response accumulates a handler's decision. The zero value is ready to use
// and encodes to {"result":"ok"}.
//
// A Response is meant to be filled by a single handler invocation and is not
// safe for concurrent mutation.
type Response struct {
	customData   []CustomData
	contactInfo  *ContactInfo
	enableAssign bool
	crmLink      string
	page         *PageLink
}

// NewResponse returns an empty Response.
func NewResponse() *Response { return &Response{} }

// SetCustomData appends a custom data entry.
func (r *Response) SetCustomData(title, content string, opts ...CustomDataOption) *Response {
	d := CustomData{Title: title, Content: content}
	for _, opt := range opts {
		opt(&d)
	}
	r.customData = append(r.customData, d)
	return r
}

// SetContactInfo replaces the contact info. An all-empty c is ignored and the
// previous contact info is kept.
func (r *Response) SetContactInfo(c ContactInfo) *Response {
	if c.IsZero() {
		return r
	}
	r.contactInfo = &c
	return r
}

// SetEnableAssign sets whether the platform may link the chat to the returned
// contact.
func (r *Response) SetEnableAssign(v bool) *Response {
	r.enableAssign = v
	return r
}

// SetCRMLink sets the link to the visitor's card in the CRM.
func (r *Response) SetCRMLink(link string) *Response {
	r.crmLink = link
	return r
}

// SetPage sets the page annotation.
func (r *Response) SetPage(url, title string) *Response {
	r.page = &PageLink{URL: url, Title: title}
	return r
}

// CustomData returns a copy of the custom data entries in insertion order.
func (r *Response) CustomData() []CustomData {
	return append([]CustomData(nil), r.customData...)
}

// ContactInfo returns the contact info and whether it was set.
func (r *Response) ContactInfo() (ContactInfo, bool) {
	if r.contactInfo == nil {
		return ContactInfo{}, false
	}
	return *r.contactInfo, true
}

func (r *Response) EnableAssign() bool { return r.enableAssign }

func (r *Response) CRMLink() string { return r.crmLink }

// Page returns the page annotation and whether it was set.
func (r *Response) Page() (PageLink, bool) {
	if r.page == nil {
		return PageLink{}, false
	}
	return *r.page, true
}

// Extended reports whether the reply carries more than the bare result.
func (r *Response) Extended() bool {
	return len(r.customData) > 0 || r.contactInfo != nil || r.crmLink != "" || r.page != nil
}

type responseBody struct {
	Result       string       `json:"result"`
	EnableAssign *bool        `json:"enable_assign,omitempty"`
	CRMLink      string       `json:"crm_link,omitempty"`
	ContactInfo  *ContactInfo `json:"contact_info,omitempty"`
	CustomData   []CustomData `json:"custom_data,omitempty"`
	Page         *PageLink    `json:"page,omitempty"`
}

// Encode serializes the reply. enable_assign and the optional blocks are only
// written once at least one of custom data, contact info, CRM link or page is
// set. Non-ASCII text is written as is.
//
// Encode does not modify r and may be called any number of times.
func (r *Response) Encode() ([]byte, error) {
	body := responseBody{Result: "ok"}
	if r.Extended() {
		assign := r.enableAssign
		body.EnableAssign = &assign
		body.CRMLink = r.crmLink
		body.ContactInfo = r.contactInfo
		body.CustomData = r.customData
		body.Page = r.page
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, &SerializationError{Err: err}
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalJSON implements json.Marshaler.
func (r *Response) MarshalJSON() ([]byte, error) { return r.Encode() }

// String returns the encoded reply, or an empty string if encoding fails.
func (r *Response) String() string {
	b, err := r.Encode()
	if err != nil {
		return ""
	}
	return string(b)
}

var okResponse = []byte(`{"result":"ok"}`)

// OK returns the bare success reply.
func OK() []byte { return append([]byte(nil), okResponse...) }
