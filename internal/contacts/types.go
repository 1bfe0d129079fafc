package contacts

import (
	"errors"
	"time"
)

// Errors returned by contact operations.
var (
	ErrNotFound   = errors.New("contact not found")
	ErrNoIdentity = errors.New("contact has no phone or email identity")
	ErrBadPhone   = errors.New("phone number has no digits")
)

// Contact is a person known to the CRM.
type Contact struct {
	ID              string
	Mobile          string
	Email           string
	Email2          string
	Email3          string
	FirstName       string
	LastName        string
	LastInteraction time.Time // day precision, zero when never contacted
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Identity is what a webhook delivery reveals about a person. At least one
// of Phone or Email must be set for resolution to succeed.
type Identity struct {
	Phone       string
	Email       string
	DisplayName string
}

// Upsert carries the CRM provider's view of a contact.
type Upsert struct {
	Email     string
	Phone     string
	FirstName string
	LastName  string
}
