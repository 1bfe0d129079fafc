// Package interactions records append-only touch points per contact.
package interactions

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

const interactionColumns = `id, contact_id, interaction_date, interaction_type, direction, note, contact_email, contact_mobile, source, external_uid, created_at`

const defaultListLimit = 100

// Service writes and reads interaction rows.
type Service struct {
	q      db.Querier
	logger *slog.Logger
}

// NewService creates an interaction service on the given pool or transaction.
func NewService(log *slog.Logger, q db.Querier) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		q:      q,
		logger: log.With(slog.String("service", "interactions")),
	}
}

// WithTx returns a copy of the service that runs its queries on tx.
func (s *Service) WithTx(tx pgx.Tx) *Service {
	return &Service{q: tx, logger: s.logger}
}

// Record inserts one interaction. A replayed delivery, recognized by the
// (source, external_uid) pair, returns ErrDuplicate without writing.
func (s *Service) Record(ctx context.Context, in Interaction) (Interaction, error) {
	if s.q == nil {
		return Interaction{}, errors.New("interactions store not configured")
	}
	if strings.TrimSpace(in.Source) == "" {
		return Interaction{}, errors.New("interaction source is required")
	}
	if in.Date.IsZero() {
		return Interaction{}, errors.New("interaction date is required")
	}

	var contactID pgtype.UUID
	if strings.TrimSpace(in.ContactID) != "" {
		parsed, err := db.ParseUUID(in.ContactID)
		if err != nil {
			return Interaction{}, err
		}
		contactID = parsed
	}

	row := s.q.QueryRow(ctx, `
		INSERT INTO interactions (contact_id, interaction_date, interaction_type, direction, note, contact_email, contact_mobile, source, external_uid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source, external_uid) WHERE external_uid IS NOT NULL DO NOTHING
		RETURNING `+interactionColumns,
		contactID,
		db.DateToPg(in.Date),
		in.Kind,
		in.Direction,
		in.Note,
		db.TextOrNull(in.ContactEmail),
		db.TextOrNull(in.ContactMobile),
		in.Source,
		db.TextOrNull(in.ExternalUID),
	)
	recorded, err := scanInteraction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Interaction{}, ErrDuplicate
		}
		return Interaction{}, fmt.Errorf("record interaction: %w", err)
	}
	return recorded, nil
}

// ListByContact returns a contact's interactions, newest first.
func (s *Service) ListByContact(ctx context.Context, contactID string, limit int) ([]Interaction, error) {
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.q.Query(ctx, `
		SELECT `+interactionColumns+` FROM interactions
		WHERE contact_id = $1
		ORDER BY interaction_date DESC, created_at DESC
		LIMIT $2`,
		pgID, int32(limit),
	)
	if err != nil {
		return nil, err
	}
	return collectInteractions(rows)
}

// ListAll returns every interaction, newest first.
func (s *Service) ListAll(ctx context.Context) ([]Interaction, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+interactionColumns+` FROM interactions
		ORDER BY interaction_date DESC, created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectInteractions(rows)
}

func collectInteractions(rows pgx.Rows) ([]Interaction, error) {
	defer rows.Close()
	items := make([]Interaction, 0)
	for rows.Next() {
		in, err := scanInteraction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, in)
	}
	return items, rows.Err()
}

func scanInteraction(row pgx.Row) (Interaction, error) {
	var (
		id            pgtype.UUID
		contactID     pgtype.UUID
		date          pgtype.Date
		kind          string
		direction     string
		note          string
		contactEmail  pgtype.Text
		contactMobile pgtype.Text
		source        string
		externalUID   pgtype.Text
		createdAt     pgtype.Timestamptz
	)
	if err := row.Scan(&id, &contactID, &date, &kind, &direction, &note, &contactEmail, &contactMobile, &source, &externalUID, &createdAt); err != nil {
		return Interaction{}, err
	}
	in := Interaction{
		ID:            id.String(),
		Date:          db.DateFromPg(date),
		Kind:          kind,
		Direction:     direction,
		Note:          note,
		ContactEmail:  db.TextToString(contactEmail),
		ContactMobile: db.TextToString(contactMobile),
		Source:        source,
		ExternalUID:   db.TextToString(externalUID),
		CreatedAt:     db.TimeFromPg(createdAt),
	}
	if contactID.Valid {
		in.ContactID = contactID.String()
	}
	return in, nil
}
