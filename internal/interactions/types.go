package interactions

import (
	"errors"
	"time"
)

// Interaction kinds as stored in interaction_type.
const (
	KindWhatsApp = "WhatsApp"
	KindEmail    = "email"
	KindMeeting  = "Google Meet"
)

// Interaction directions as stored in direction.
const (
	DirectionInbound  = "Inbound"
	DirectionOutbound = "Outbound"
)

// ErrDuplicate reports that an interaction with the same source and
// external uid was already recorded.
var ErrDuplicate = errors.New("interaction already recorded")

// Interaction is one append-only touch-point row. ContactID is empty when
// contact resolution was degraded and the row is unlinked.
type Interaction struct {
	ID            string
	ContactID     string
	Date          time.Time
	Kind          string
	Direction     string
	Note          string
	ContactEmail  string
	ContactMobile string
	Source        string
	ExternalUID   string
	CreatedAt     time.Time
}
