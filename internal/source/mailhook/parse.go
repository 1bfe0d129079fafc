// Package mailhook parses email-forwarder webhook payloads.
package mailhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Cimminelli1982/CRM/internal/interactions"
)

// ErrNoCounterparty reports a mail with no resolvable address on the other
// side of the exchange.
var ErrNoCounterparty = errors.New("mail has no counterparty address")

type party struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type payload struct {
	MessageID string  `json:"message_id"`
	From      party   `json:"from"`
	To        []party `json:"to"`
	Subject   string  `json:"subject"`
	Date      string  `json:"date"`
}

// Mail is one parsed email exchange with the counterparty identified.
type Mail struct {
	UID          string
	ContactEmail string
	ContactName  string
	Subject      string
	Direction    string
	OccurredAt   time.Time
}

// Forwarders emit ISO timestamps; raw RFC 2822 headers show up when the
// forwarder passes the Date header through untouched.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
}

// Parse extracts a normalized mail from a forwarder delivery. When the
// sender is the configured owner address, the mail is Outbound and the
// counterparty is the first non-owner recipient.
func Parse(body []byte, ownerEmail string) (Mail, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Mail{}, fmt.Errorf("decode mail payload: %w", err)
	}

	owner := strings.TrimSpace(ownerEmail)
	fromEmail := strings.TrimSpace(p.From.Email)

	direction := interactions.DirectionInbound
	counterparty := party{Email: fromEmail, Name: strings.TrimSpace(p.From.Name)}
	if owner != "" && strings.EqualFold(fromEmail, owner) {
		direction = interactions.DirectionOutbound
		counterparty = party{}
		for _, to := range p.To {
			email := strings.TrimSpace(to.Email)
			if email == "" || strings.EqualFold(email, owner) {
				continue
			}
			counterparty = party{Email: email, Name: strings.TrimSpace(to.Name)}
			break
		}
	}
	if counterparty.Email == "" {
		return Mail{}, ErrNoCounterparty
	}

	occurredAt := time.Now().UTC()
	if raw := strings.TrimSpace(p.Date); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			return Mail{}, err
		}
		occurredAt = parsed
	}

	return Mail{
		UID:          strings.TrimSpace(p.MessageID),
		ContactEmail: counterparty.Email,
		ContactName:  counterparty.Name,
		Subject:      strings.TrimSpace(p.Subject),
		Direction:    direction,
		OccurredAt:   occurredAt,
	}, nil
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse mail date %q", raw)
}
