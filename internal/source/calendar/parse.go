// Package calendar parses calendar-provider webhook payloads.
package calendar

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrCancelled reports a delivery for a cancelled event, acknowledged but
// not recorded.
var ErrCancelled = errors.New("event is cancelled")

type payload struct {
	Event struct {
		ID          string `json:"id"`
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Status      string `json:"status"`
		Start       struct {
			DateTime string `json:"date_time"`
			Date     string `json:"date"`
		} `json:"start"`
		Attendees []struct {
			Email       string `json:"email"`
			DisplayName string `json:"display_name"`
			Self        bool   `json:"self"`
			Organizer   bool   `json:"organizer"`
		} `json:"attendees"`
	} `json:"event"`
}

// Attendee is a meeting participant other than the account owner.
type Attendee struct {
	Email       string
	DisplayName string
}

// Event is one parsed calendar event.
type Event struct {
	UID         string
	Title       string
	Description string
	StartsAt    time.Time
	Attendees   []Attendee
}

// Parse extracts a normalized event from a calendar delivery. The owner is
// excluded from the attendee list, both by the payload's self flag and by
// the configured owner address.
func Parse(body []byte, ownerEmail string) (Event, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return Event{}, fmt.Errorf("decode calendar payload: %w", err)
	}
	if strings.EqualFold(strings.TrimSpace(p.Event.Status), "cancelled") {
		return Event{}, ErrCancelled
	}

	startsAt, err := parseStart(p.Event.Start.DateTime, p.Event.Start.Date)
	if err != nil {
		return Event{}, err
	}

	owner := strings.TrimSpace(ownerEmail)
	attendees := make([]Attendee, 0, len(p.Event.Attendees))
	for _, a := range p.Event.Attendees {
		email := strings.TrimSpace(a.Email)
		if email == "" || a.Self {
			continue
		}
		if owner != "" && strings.EqualFold(email, owner) {
			continue
		}
		attendees = append(attendees, Attendee{
			Email:       email,
			DisplayName: strings.TrimSpace(a.DisplayName),
		})
	}

	return Event{
		UID:         strings.TrimSpace(p.Event.ID),
		Title:       strings.TrimSpace(p.Event.Summary),
		Description: strings.TrimSpace(p.Event.Description),
		StartsAt:    startsAt,
		Attendees:   attendees,
	}, nil
}

// parseStart accepts the provider's two start shapes: a timed event with an
// RFC 3339 date_time, or an all-day event with a bare date.
func parseStart(dateTime, date string) (time.Time, error) {
	if raw := strings.TrimSpace(dateTime); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse event start %q: %w", raw, err)
		}
		return parsed.UTC(), nil
	}
	if raw := strings.TrimSpace(date); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse event start date %q: %w", raw, err)
		}
		return parsed.UTC(), nil
	}
	return time.Time{}, errors.New("event has no start time")
}
