package calendar

import (
	"errors"
	"testing"
	"time"
)

const owner = "owner@example.com"

func TestParseTimedEvent(t *testing.T) {
	body := []byte(`{
		"event": {
			"id": "evt-100",
			"summary": "Kickoff",
			"description": "Project kickoff call",
			"status": "confirmed",
			"start": {"date_time": "2025-04-02T15:00:00+01:00"},
			"attendees": [
				{"email": "owner@example.com", "self": true, "organizer": true},
				{"email": "dana@client.io", "display_name": "Dana Fox"},
				{"email": "raj@client.io"}
			]
		}
	}`)

	ev, err := Parse(body, owner)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ev.UID != "evt-100" {
		t.Errorf("UID = %q", ev.UID)
	}
	if ev.Title != "Kickoff" {
		t.Errorf("Title = %q", ev.Title)
	}
	if ev.Description != "Project kickoff call" {
		t.Errorf("Description = %q", ev.Description)
	}
	want := time.Date(2025, 4, 2, 14, 0, 0, 0, time.UTC)
	if !ev.StartsAt.Equal(want) {
		t.Errorf("StartsAt = %v, want %v", ev.StartsAt, want)
	}
	if len(ev.Attendees) != 2 {
		t.Fatalf("Attendees = %d, want 2 (owner excluded)", len(ev.Attendees))
	}
	if ev.Attendees[0].Email != "dana@client.io" || ev.Attendees[0].DisplayName != "Dana Fox" {
		t.Errorf("Attendees[0] = %+v", ev.Attendees[0])
	}
	if ev.Attendees[1].Email != "raj@client.io" {
		t.Errorf("Attendees[1] = %+v", ev.Attendees[1])
	}
}

func TestParseAllDayEvent(t *testing.T) {
	body := []byte(`{"event":{"id":"evt-101","summary":"Offsite","start":{"date":"2025-04-10"}}}`)

	ev, err := Parse(body, owner)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	if !ev.StartsAt.Equal(want) {
		t.Errorf("StartsAt = %v, want %v", ev.StartsAt, want)
	}
}

func TestParseOwnerExcludedWithoutSelfFlag(t *testing.T) {
	// Some providers omit the self flag, so the configured address is the
	// fallback filter.
	body := []byte(`{
		"event": {
			"id": "evt-102",
			"summary": "1:1",
			"start": {"date": "2025-04-11"},
			"attendees": [
				{"email": "Owner@Example.com"},
				{"email": "sam@client.io"}
			]
		}
	}`)

	ev, err := Parse(body, owner)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ev.Attendees) != 1 || ev.Attendees[0].Email != "sam@client.io" {
		t.Errorf("Attendees = %+v, want only sam@client.io", ev.Attendees)
	}
}

func TestParseCancelled(t *testing.T) {
	body := []byte(`{"event":{"id":"evt-103","status":"cancelled","start":{"date":"2025-04-12"}}}`)
	_, err := Parse(body, owner)
	if !errors.Is(err, ErrCancelled) {
		t.Errorf("Parse error = %v, want ErrCancelled", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"event":`},
		{"missing start", `{"event":{"id":"evt-104","summary":"No start"}}`},
		{"bad date_time", `{"event":{"start":{"date_time":"tomorrow"}}}`},
		{"bad date", `{"event":{"start":{"date":"04/10/2025"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.body), owner); err == nil {
				t.Error("Parse: expected error")
			}
		})
	}
}
