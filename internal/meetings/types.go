package meetings

import "time"

// Meeting is a calendar event reflected into the CRM.
type Meeting struct {
	ID          string
	Name        string
	Description string
	Day         time.Time
	ExternalUID string
	CreatedAt   time.Time
}
