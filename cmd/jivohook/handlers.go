package main

import (
	"context"
	"encoding/json"
	"strings"

	webhooks "github.com/ChezRD/jivochat-webhooks-api"
	"github.com/ChezRD/jivochat-webhooks-api/internal/config"
)

// replies builds the answers of the built-in handlers.
type replies struct {
	crmLink      string
	enableAssign bool
}

func registerHandlers(l *webhooks.Listener, cfg config.ResponseConfig) error {
	r := replies{crmLink: cfg.CRMLinkTemplate, enableAssign: cfg.EnableAssign}

	if err := webhooks.Register(l, r.chatAccepted); err != nil {
		return err
	}
	return webhooks.Register(l, r.chatUpdated)
}

func (r replies) chatAccepted(_ context.Context, e *webhooks.ChatAccepted) (webhooks.Decision, error) {
	return r.visitorCard(e.ChatID, e.Visitor), nil
}

func (r replies) chatUpdated(_ context.Context, e *webhooks.ChatUpdated) (webhooks.Decision, error) {
	return r.visitorCard(e.ChatID, e.Visitor), nil
}

// visitorCard echoes the visitor's contacts and links the chat in the CRM.
func (r replies) visitorCard(chatID json.Number, v *webhooks.Visitor) *webhooks.Response {
	resp := webhooks.NewResponse().SetEnableAssign(r.enableAssign)
	if v != nil {
		resp.SetContactInfo(webhooks.ContactInfo{
			Name:        v.Name,
			Email:       v.Email,
			Phone:       v.Phone,
			Description: v.Description,
		})
	}
	if link := r.link(chatID, v); link != "" {
		resp.SetCRMLink(link)
	}
	return resp
}

func (r replies) link(chatID json.Number, v *webhooks.Visitor) string {
	if r.crmLink == "" {
		return ""
	}
	var number string
	if v != nil {
		number = v.Number.String()
	}
	return strings.NewReplacer(
		"{chat_id}", chatID.String(),
		"{visitor_number}", number,
	).Replace(r.crmLink)
}
