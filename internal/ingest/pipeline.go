// Package ingest turns normalized webhook events into contact, interaction,
// and meeting rows. All sources funnel through the same pipeline so the
// write path, its transaction, and its replay handling exist exactly once.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Cimminelli1982/CRM/internal/contacts"
	"github.com/Cimminelli1982/CRM/internal/dedup"
	"github.com/Cimminelli1982/CRM/internal/interactions"
	"github.com/Cimminelli1982/CRM/internal/meetings"
)

// Pipeline is the shared ingestion path for all webhook sources.
type Pipeline struct {
	pool         *pgxpool.Pool
	contacts     *contacts.Service
	interactions *interactions.Service
	meetings     *meetings.Service
	guard        dedup.Guard
	logger       *slog.Logger
}

// NewPipeline creates the ingestion pipeline. A nil guard disables the
// replay fast path; the database unique index still blocks duplicates.
func NewPipeline(log *slog.Logger, pool *pgxpool.Pool, contactSvc *contacts.Service, interactionSvc *interactions.Service, meetingSvc *meetings.Service, guard dedup.Guard) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if guard == nil {
		guard = dedup.Noop{}
	}
	return &Pipeline{
		pool:         pool,
		contacts:     contactSvc,
		interactions: interactionSvc,
		meetings:     meetingSvc,
		guard:        guard,
		logger:       log.With(slog.String("service", "ingest")),
	}
}

// Process records one delivery: resolve the contact, insert the
// interaction, then advance the contact's last-interaction date. Contact
// resolution failing degrades to an unlinked interaction; the interaction
// insert failing aborts; the last-interaction update is best effort and
// runs after commit.
func (p *Pipeline) Process(ctx context.Context, ev Event) (Result, error) {
	if p.pool == nil {
		return Result{}, errors.New("ingest pipeline not configured")
	}
	if ev.Source == "" {
		return Result{}, errors.New("event source is required")
	}
	occurredAt := ev.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	seen, err := p.guard.Seen(ctx, ev.Source, ev.ExternalUID)
	if err != nil {
		p.logger.Warn("replay guard unavailable, continuing",
			slog.String("source", ev.Source),
			slog.String("error", err.Error()),
		)
	} else if seen {
		return Result{Duplicate: true}, nil
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Result{}, fmt.Errorf("begin ingest tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var res Result
	contactID := ""
	if ev.Phone != "" || ev.Email != "" {
		contact, created, err := p.contacts.WithTx(tx).FindOrCreate(ctx, contacts.Identity{
			Phone:       ev.Phone,
			Email:       ev.Email,
			DisplayName: ev.DisplayName,
		})
		if err != nil {
			p.logger.Warn("contact resolution failed, recording unlinked interaction",
				slog.String("source", ev.Source),
				slog.String("error", err.Error()),
			)
		} else {
			contactID = contact.ID
			res.ContactCreated = created
		}
	}

	mobile := ""
	if ev.Phone != "" {
		if normalized, err := contacts.NormalizePhone(ev.Phone); err == nil {
			mobile = normalized
		}
	}
	recorded, err := p.interactions.WithTx(tx).Record(ctx, interactions.Interaction{
		ContactID:     contactID,
		Date:          occurredAt,
		Kind:          ev.Kind,
		Direction:     ev.Direction,
		Note:          ev.Note,
		ContactEmail:  ev.Email,
		ContactMobile: mobile,
		Source:        ev.Source,
		ExternalUID:   ev.ExternalUID,
	})
	if err != nil {
		if errors.Is(err, interactions.ErrDuplicate) {
			p.markSeen(ctx, ev.Source, ev.ExternalUID)
			return Result{Duplicate: true}, nil
		}
		return Result{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Result{}, fmt.Errorf("commit ingest tx: %w", err)
	}
	res.ContactID = contactID
	res.InteractionID = recorded.ID

	if contactID != "" {
		if err := p.contacts.AdvanceLastInteraction(ctx, contactID, occurredAt); err != nil {
			p.logger.Warn("last interaction update failed",
				slog.String("contact_id", contactID),
				slog.String("error", err.Error()),
			)
		}
	}
	p.markSeen(ctx, ev.Source, ev.ExternalUID)

	p.logger.Info("interaction recorded",
		slog.String("source", ev.Source),
		slog.String("interaction_id", res.InteractionID),
		slog.String("contact_id", contactID),
		slog.Bool("contact_created", res.ContactCreated),
	)
	return res, nil
}

// ProcessMeeting records one calendar delivery: resolve every attendee,
// store the meeting with its contact links, then one interaction per
// attendee. The Redis fast path is deliberately not consulted: the provider
// redelivers the same event uid when attendees change, and those updates
// must reach the database, where per-row conflict handling sorts out what
// is genuinely new.
func (p *Pipeline) ProcessMeeting(ctx context.Context, ev MeetingEvent) (MeetingResult, error) {
	if p.pool == nil {
		return MeetingResult{}, errors.New("ingest pipeline not configured")
	}
	occurredAt := ev.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	name := ev.Name
	if name == "" {
		name = "(untitled event)"
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return MeetingResult{}, fmt.Errorf("begin meeting tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	txContacts := p.contacts.WithTx(tx)
	txInteractions := p.interactions.WithTx(tx)

	var res MeetingResult
	for _, attendee := range ev.Attendees {
		contact, created, err := txContacts.FindOrCreate(ctx, contacts.Identity{
			Email:       attendee.Email,
			DisplayName: attendee.DisplayName,
		})
		if err != nil {
			p.logger.Warn("attendee resolution failed, skipping",
				slog.String("email", attendee.Email),
				slog.String("error", err.Error()),
			)
			continue
		}
		if created {
			res.ContactsCreated++
		}
		res.ContactIDs = append(res.ContactIDs, contact.ID)
	}

	meeting, created, err := p.meetings.WithTx(tx).Record(ctx, meetings.Meeting{
		Name:        name,
		Description: ev.Description,
		Day:         occurredAt,
		ExternalUID: ev.ExternalUID,
	}, res.ContactIDs)
	if err != nil {
		return MeetingResult{}, err
	}
	res.MeetingID = meeting.ID

	for _, contactID := range res.ContactIDs {
		uid := ""
		if ev.ExternalUID != "" {
			// Scope the dedup key per attendee so a redelivered event only
			// records interactions for newly added attendees.
			uid = ev.ExternalUID + ":" + contactID
		}
		_, err := txInteractions.Record(ctx, interactions.Interaction{
			ContactID:   contactID,
			Date:        occurredAt,
			Kind:        interactions.KindMeeting,
			Direction:   interactions.DirectionOutbound,
			Note:        name,
			Source:      SourceCalendar,
			ExternalUID: uid,
		})
		if err != nil {
			if errors.Is(err, interactions.ErrDuplicate) {
				continue
			}
			return MeetingResult{}, err
		}
		res.Interactions++
	}

	if err := tx.Commit(ctx); err != nil {
		return MeetingResult{}, fmt.Errorf("commit meeting tx: %w", err)
	}
	res.Duplicate = !created && res.Interactions == 0

	for _, contactID := range res.ContactIDs {
		if err := p.contacts.AdvanceLastInteraction(ctx, contactID, occurredAt); err != nil {
			p.logger.Warn("last interaction update failed",
				slog.String("contact_id", contactID),
				slog.String("error", err.Error()),
			)
		}
	}

	p.logger.Info("meeting recorded",
		slog.String("meeting_id", res.MeetingID),
		slog.Int("attendees", len(res.ContactIDs)),
		slog.Int("interactions", res.Interactions),
		slog.Bool("duplicate", res.Duplicate),
	)
	return res, nil
}

func (p *Pipeline) markSeen(ctx context.Context, source, uid string) {
	if err := p.guard.Mark(ctx, source, uid); err != nil {
		p.logger.Warn("replay guard mark failed",
			slog.String("source", source),
			slog.String("error", err.Error()),
		)
	}
}
