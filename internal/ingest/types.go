package ingest

import "time"

// Source identifiers as stored in interactions.source.
const (
	SourceWhatsApp = "whatsapp"
	SourceEmail    = "email"
	SourceCalendar = "calendar"
	SourceCRM      = "crm"
)

// Event is one normalized webhook delivery ready to be recorded.
type Event struct {
	Source      string
	ExternalUID string
	Phone       string
	Email       string
	DisplayName string
	OccurredAt  time.Time
	Direction   string
	Kind        string
	Note        string
}

// Result reports what one delivery changed. Duplicate means the delivery
// was recognized as a replay and nothing was written.
type Result struct {
	ContactID      string
	InteractionID  string
	ContactCreated bool
	Duplicate      bool
}

// Attendee is a meeting participant identified by email.
type Attendee struct {
	Email       string
	DisplayName string
}

// MeetingEvent is a normalized calendar event with its attendees.
type MeetingEvent struct {
	ExternalUID string
	Name        string
	Description string
	OccurredAt  time.Time
	Attendees   []Attendee
}

// MeetingResult reports what one calendar delivery changed.
type MeetingResult struct {
	MeetingID       string
	ContactIDs      []string
	ContactsCreated int
	Interactions    int
	Duplicate       bool
}

// FormatDay returns the UTC calendar date of t as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
