// Package contacts resolves webhook identities to contact rows and keeps
// the denormalized last-interaction date current.
package contacts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/Cimminelli1982/CRM/internal/db"
)

const contactColumns = `id, mobile, email, email2, email3, first_name, last_name, last_interaction, created_at, updated_at`

// Service reads and writes contact rows.
type Service struct {
	q      db.Querier
	logger *slog.Logger
}

// NewService creates a contact service on the given pool or transaction.
func NewService(log *slog.Logger, q db.Querier) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		q:      q,
		logger: log.With(slog.String("service", "contacts")),
	}
}

// WithTx returns a copy of the service that runs its queries on tx.
func (s *Service) WithTx(tx pgx.Tx) *Service {
	return &Service{q: tx, logger: s.logger}
}

// NormalizePhone reduces a raw phone string to a single leading "+" followed
// by digits only. Formatting characters and any interior "+" are dropped.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "", ErrBadPhone
	}
	return "+" + b.String(), nil
}

// SplitDisplayName splits a display name into first name (first whitespace
// token) and last name (the remainder). Either part may be empty.
func SplitDisplayName(name string) (first, last string) {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return "", ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// FindOrCreate resolves an identity to a contact, inserting one when no row
// matches. Lookup prefers the normalized phone, then any of the email
// columns. A concurrent insert of the same identity is resolved by
// re-reading the winner, so created=false on that path.
func (s *Service) FindOrCreate(ctx context.Context, id Identity) (Contact, bool, error) {
	if s.q == nil {
		return Contact{}, false, errors.New("contacts store not configured")
	}

	phone := ""
	if strings.TrimSpace(id.Phone) != "" {
		normalized, err := NormalizePhone(id.Phone)
		if err != nil {
			return Contact{}, false, err
		}
		phone = normalized
	}
	email := strings.TrimSpace(id.Email)
	if phone == "" && email == "" {
		return Contact{}, false, ErrNoIdentity
	}

	contact, err := s.lookup(ctx, phone, email)
	if err == nil {
		return contact, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Contact{}, false, err
	}

	firstName, lastName := SplitDisplayName(id.DisplayName)
	row := s.q.QueryRow(ctx, `
		INSERT INTO contacts (mobile, email, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		RETURNING `+contactColumns,
		db.TextOrNull(phone),
		db.TextOrNull(email),
		db.TextOrNull(firstName),
		db.TextOrNull(lastName),
	)
	contact, err = scanContact(row)
	if err == nil {
		s.logger.Info("contact created",
			slog.String("contact_id", contact.ID),
			slog.String("mobile", contact.Mobile),
			slog.String("email", contact.Email),
		)
		return contact, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, false, fmt.Errorf("create contact: %w", err)
	}

	// ON CONFLICT DO NOTHING returned no row: another delivery inserted the
	// same identity first. Re-read and return the winner.
	contact, err = s.lookup(ctx, phone, email)
	if err != nil {
		return Contact{}, false, fmt.Errorf("contact insert race lost and re-read failed: %w", err)
	}
	return contact, false, nil
}

func (s *Service) lookup(ctx context.Context, phone, email string) (Contact, error) {
	if phone != "" {
		contact, err := s.findOne(ctx, `SELECT `+contactColumns+` FROM contacts WHERE mobile = $1`, phone)
		if err == nil || !errors.Is(err, ErrNotFound) {
			return contact, err
		}
	}
	if email != "" {
		return s.findOne(ctx, `
			SELECT `+contactColumns+` FROM contacts
			WHERE lower(email) = lower($1)
			   OR lower(email2) = lower($1)
			   OR lower(email3) = lower($1)
			ORDER BY created_at
			LIMIT 1`, email)
	}
	return Contact{}, ErrNotFound
}

func (s *Service) findOne(ctx context.Context, query string, args ...any) (Contact, error) {
	contact, err := scanContact(s.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contact{}, ErrNotFound
		}
		return Contact{}, err
	}
	return contact, nil
}

// Get returns the contact with the given id.
func (s *Service) Get(ctx context.Context, contactID string) (Contact, error) {
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return Contact{}, err
	}
	return s.findOne(ctx, `SELECT `+contactColumns+` FROM contacts WHERE id = $1`, pgID)
}

// Search returns contacts whose name, email, or mobile matches the query.
// An empty query lists everything.
func (s *Service) Search(ctx context.Context, query string) ([]Contact, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return s.ListAll(ctx)
	}
	pattern := "%" + trimmed + "%"
	rows, err := s.q.Query(ctx, `
		SELECT `+contactColumns+` FROM contacts
		WHERE first_name ILIKE $1
		   OR last_name ILIKE $1
		   OR email ILIKE $1
		   OR email2 ILIKE $1
		   OR email3 ILIKE $1
		   OR mobile ILIKE $1
		ORDER BY last_interaction DESC NULLS LAST, created_at DESC`,
		pattern,
	)
	if err != nil {
		return nil, err
	}
	return collectContacts(rows)
}

// ListAll returns every contact, most recently touched first.
func (s *Service) ListAll(ctx context.Context) ([]Contact, error) {
	rows, err := s.q.Query(ctx, `
		SELECT `+contactColumns+` FROM contacts
		ORDER BY last_interaction DESC NULLS LAST, created_at DESC`)
	if err != nil {
		return nil, err
	}
	return collectContacts(rows)
}

// AdvanceLastInteraction moves the contact's last-interaction date forward
// to day. The update is conditional, so an older event never rewinds it.
func (s *Service) AdvanceLastInteraction(ctx context.Context, contactID string, day time.Time) error {
	pgID, err := db.ParseUUID(contactID)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx, `
		UPDATE contacts
		SET last_interaction = $2, updated_at = now()
		WHERE id = $1
		  AND (last_interaction IS NULL OR last_interaction < $2)`,
		pgID, db.DateToPg(day),
	)
	if err != nil {
		return fmt.Errorf("advance last interaction: %w", err)
	}
	return nil
}

// UpsertFromCRM applies the CRM provider's view of a contact. Missing rows
// are created; existing rows get empty fields filled. A new address lands
// in the first free email column and never displaces a populated one.
func (s *Service) UpsertFromCRM(ctx context.Context, up Upsert) (Contact, bool, error) {
	phone := ""
	if strings.TrimSpace(up.Phone) != "" {
		normalized, err := NormalizePhone(up.Phone)
		if err == nil {
			phone = normalized
		}
	}
	email := strings.TrimSpace(up.Email)
	if phone == "" && email == "" {
		return Contact{}, false, ErrNoIdentity
	}

	contact, err := s.lookup(ctx, phone, email)
	if errors.Is(err, ErrNotFound) {
		row := s.q.QueryRow(ctx, `
			INSERT INTO contacts (mobile, email, first_name, last_name)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT DO NOTHING
			RETURNING `+contactColumns,
			db.TextOrNull(phone),
			db.TextOrNull(email),
			db.TextOrNull(up.FirstName),
			db.TextOrNull(up.LastName),
		)
		created, scanErr := scanContact(row)
		if scanErr == nil {
			return created, true, nil
		}
		if !errors.Is(scanErr, pgx.ErrNoRows) {
			return Contact{}, false, fmt.Errorf("create contact from crm: %w", scanErr)
		}
		contact, err = s.lookup(ctx, phone, email)
	}
	if err != nil {
		return Contact{}, false, err
	}

	merged := fillEmpty(contact, phone, email, strings.TrimSpace(up.FirstName), strings.TrimSpace(up.LastName))
	if merged == contact {
		return contact, false, nil
	}
	pgID, err := db.ParseUUID(contact.ID)
	if err != nil {
		return Contact{}, false, err
	}
	row := s.q.QueryRow(ctx, `
		UPDATE contacts
		SET mobile = $2, email = $3, email2 = $4, email3 = $5,
		    first_name = $6, last_name = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+contactColumns,
		pgID,
		db.TextOrNull(merged.Mobile),
		db.TextOrNull(merged.Email),
		db.TextOrNull(merged.Email2),
		db.TextOrNull(merged.Email3),
		db.TextOrNull(merged.FirstName),
		db.TextOrNull(merged.LastName),
	)
	updated, err := scanContact(row)
	if err != nil {
		return Contact{}, false, fmt.Errorf("update contact from crm: %w", err)
	}
	return updated, false, nil
}

// fillEmpty merges incoming CRM fields into a contact without overwriting
// anything already populated.
func fillEmpty(c Contact, phone, email, firstName, lastName string) Contact {
	if c.Mobile == "" && phone != "" {
		c.Mobile = phone
	}
	if email != "" && !hasEmail(c, email) {
		switch {
		case c.Email == "":
			c.Email = email
		case c.Email2 == "":
			c.Email2 = email
		case c.Email3 == "":
			c.Email3 = email
		}
	}
	if c.FirstName == "" && firstName != "" {
		c.FirstName = firstName
	}
	if c.LastName == "" && lastName != "" {
		c.LastName = lastName
	}
	return c
}

func hasEmail(c Contact, email string) bool {
	for _, have := range []string{c.Email, c.Email2, c.Email3} {
		if have != "" && strings.EqualFold(have, email) {
			return true
		}
	}
	return false
}

func collectContacts(rows pgx.Rows) ([]Contact, error) {
	defer rows.Close()
	items := make([]Contact, 0)
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, contact)
	}
	return items, rows.Err()
}

func scanContact(row pgx.Row) (Contact, error) {
	var (
		id                  pgtype.UUID
		mobile, email       pgtype.Text
		email2, email3      pgtype.Text
		firstName, lastName pgtype.Text
		lastInteraction     pgtype.Date
		createdAt           pgtype.Timestamptz
		updatedAt           pgtype.Timestamptz
	)
	if err := row.Scan(&id, &mobile, &email, &email2, &email3, &firstName, &lastName, &lastInteraction, &createdAt, &updatedAt); err != nil {
		return Contact{}, err
	}
	return Contact{
		ID:              id.String(),
		Mobile:          db.TextToString(mobile),
		Email:           db.TextToString(email),
		Email2:          db.TextToString(email2),
		Email3:          db.TextToString(email3),
		FirstName:       db.TextToString(firstName),
		LastName:        db.TextToString(lastName),
		LastInteraction: db.DateFromPg(lastInteraction),
		CreatedAt:       db.TimeFromPg(createdAt),
		UpdatedAt:       db.TimeFromPg(updatedAt),
	}, nil
}
