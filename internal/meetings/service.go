// Package meetings stores calendar events and their attendee links.
package meetings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Cimminelli1982/CRM/internal/db"
)

const meetingColumns = `id, meeting_name, description, interaction_date, external_uid, created_at`

// Service writes and reads meeting rows and their contact links.
type Service struct {
	q      db.Querier
	logger *slog.Logger
}

// NewService creates a meeting service on the given pool or transaction.
func NewService(log *slog.Logger, q db.Querier) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		q:      q,
		logger: log.With(slog.String("service", "meetings")),
	}
}

// WithTx returns a copy of the service that runs its queries on tx.
func (s *Service) WithTx(tx pgx.Tx) *Service {
	return &Service{q: tx, logger: s.logger}
}

// Record inserts a meeting and links the given contacts to it. A replayed
// calendar delivery, recognized by external_uid, reuses the stored meeting
// and reports created=false. Link rows are best effort: one failed attendee
// does not sink the rest.
func (s *Service) Record(ctx context.Context, m Meeting, contactIDs []string) (Meeting, bool, error) {
	if s.q == nil {
		return Meeting{}, false, errors.New("meetings store not configured")
	}
	if strings.TrimSpace(m.Name) == "" {
		return Meeting{}, false, errors.New("meeting name is required")
	}
	if m.Day.IsZero() {
		return Meeting{}, false, errors.New("meeting date is required")
	}

	created := true
	row := s.q.QueryRow(ctx, `
		INSERT INTO meetings (meeting_name, description, interaction_date, external_uid)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_uid) WHERE external_uid IS NOT NULL DO NOTHING
		RETURNING `+meetingColumns,
		m.Name,
		m.Description,
		db.DateToPg(m.Day),
		db.TextOrNull(m.ExternalUID),
	)
	stored, err := scanMeeting(row)
	if errors.Is(err, pgx.ErrNoRows) {
		created = false
		stored, err = s.getByExternalUID(ctx, m.ExternalUID)
	}
	if err != nil {
		return Meeting{}, false, fmt.Errorf("record meeting: %w", err)
	}

	pgMeetingID, err := db.ParseUUID(stored.ID)
	if err != nil {
		return Meeting{}, false, err
	}
	for _, contactID := range contactIDs {
		pgContactID, err := db.ParseUUID(contactID)
		if err != nil {
			s.logger.Warn("skipping meeting link for invalid contact id",
				slog.String("meeting_id", stored.ID),
				slog.String("contact_id", contactID),
			)
			continue
		}
		if _, err := s.q.Exec(ctx, `
			INSERT INTO meeting_contacts (meeting_id, contact_id)
			VALUES ($1, $2)
			ON CONFLICT (meeting_id, contact_id) DO NOTHING`,
			pgMeetingID, pgContactID,
		); err != nil {
			s.logger.Warn("meeting link failed",
				slog.String("meeting_id", stored.ID),
				slog.String("contact_id", contactID),
				slog.String("error", err.Error()),
			)
		}
	}
	return stored, created, nil
}

func (s *Service) getByExternalUID(ctx context.Context, externalUID string) (Meeting, error) {
	if strings.TrimSpace(externalUID) == "" {
		return Meeting{}, errors.New("meeting insert returned no row and no external uid to re-read")
	}
	return scanMeeting(s.q.QueryRow(ctx, `
		SELECT `+meetingColumns+` FROM meetings WHERE external_uid = $1`,
		externalUID,
	))
}

// ListContacts returns the contact ids linked to a meeting.
func (s *Service) ListContacts(ctx context.Context, meetingID string) ([]string, error) {
	pgID, err := db.ParseUUID(meetingID)
	if err != nil {
		return nil, err
	}
	rows, err := s.q.Query(ctx, `
		SELECT contact_id FROM meeting_contacts WHERE meeting_id = $1 ORDER BY created_at`,
		pgID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := make([]string, 0)
	for rows.Next() {
		var contactID pgtype.UUID
		if err := rows.Scan(&contactID); err != nil {
			return nil, err
		}
		ids = append(ids, contactID.String())
	}
	return ids, rows.Err()
}

func scanMeeting(row pgx.Row) (Meeting, error) {
	var (
		id          pgtype.UUID
		name        string
		description string
		day         pgtype.Date
		externalUID pgtype.Text
		createdAt   pgtype.Timestamptz
	)
	if err := row.Scan(&id, &name, &description, &day, &externalUID, &createdAt); err != nil {
		return Meeting{}, err
	}
	return Meeting{
		ID:          id.String(),
		Name:        name,
		Description: description,
		Day:         db.DateFromPg(day),
		ExternalUID: db.TextToString(externalUID),
		CreatedAt:   db.TimeFromPg(createdAt),
	}, nil
}
