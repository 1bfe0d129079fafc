// Package crmhook parses CRM-provider change notifications.
package crmhook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Event types delivered by the CRM provider's subscription API.
const (
	EventContactCreated = "contact.created"
	EventContactUpdated = "contact.updated"
)

type payload struct {
	Events []struct {
		Type    string `json:"type"`
		Contact struct {
			Email     string `json:"email"`
			Phone     string `json:"phone"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"contact"`
	} `json:"events"`
}

// ContactEvent is one CRM contact change.
type ContactEvent struct {
	Type      string
	Email     string
	Phone     string
	FirstName string
	LastName  string
}

// Parse extracts the contact changes from a CRM delivery. Event types this
// bridge does not subscribe to are dropped, not errors, so the provider can
// widen its event set without breaking deliveries.
func Parse(body []byte) ([]ContactEvent, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode crm payload: %w", err)
	}

	events := make([]ContactEvent, 0, len(p.Events))
	for _, e := range p.Events {
		eventType := strings.TrimSpace(e.Type)
		if eventType != EventContactCreated && eventType != EventContactUpdated {
			continue
		}
		events = append(events, ContactEvent{
			Type:      eventType,
			Email:     strings.TrimSpace(e.Contact.Email),
			Phone:     strings.TrimSpace(e.Contact.Phone),
			FirstName: strings.TrimSpace(e.Contact.FirstName),
			LastName:  strings.TrimSpace(e.Contact.LastName),
		})
	}
	return events, nil
}
