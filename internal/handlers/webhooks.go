package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Cimminelli1982/CRM/internal/config"
	"github.com/Cimminelli1982/CRM/internal/contacts"
	"github.com/Cimminelli1982/CRM/internal/ingest"
	"github.com/Cimminelli1982/CRM/internal/interactions"
	"github.com/Cimminelli1982/CRM/internal/server"
	"github.com/Cimminelli1982/CRM/internal/source/calendar"
	"github.com/Cimminelli1982/CRM/internal/source/crmhook"
	"github.com/Cimminelli1982/CRM/internal/source/mailhook"
	"github.com/Cimminelli1982/CRM/internal/source/whatsapp"
)

// Processor is the ingestion surface the webhook handlers drive.
type Processor interface {
	Process(ctx context.Context, ev ingest.Event) (ingest.Result, error)
	ProcessMeeting(ctx context.Context, ev ingest.MeetingEvent) (ingest.MeetingResult, error)
}

// ContactUpserter applies CRM-sourced contact changes.
type ContactUpserter interface {
	UpsertFromCRM(ctx context.Context, up contacts.Upsert) (contacts.Contact, bool, error)
}

// WebhooksHandler serves the per-source delivery endpoints.
type WebhooksHandler struct {
	processor Processor
	upserter  ContactUpserter
	sources   config.SourcesConfig
	logger    *slog.Logger
}

// NewWebhooksHandler creates the webhook handler.
func NewWebhooksHandler(log *slog.Logger, processor Processor, upserter ContactUpserter, sources config.SourcesConfig) *WebhooksHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhooksHandler{
		processor: processor,
		upserter:  upserter,
		sources:   sources,
		logger:    log.With(slog.String("handler", "webhooks")),
	}
}

// Register mounts one POST route per source, each behind its own token.
func (h *WebhooksHandler) Register(e *echo.Echo) {
	g := e.Group("/webhooks")
	g.POST("/whatsapp", h.WhatsApp, server.TokenAuth(h.sources.WhatsApp.Token))
	g.POST("/email", h.Email, server.TokenAuth(h.sources.Email.Token))
	g.POST("/calendar", h.Calendar, server.TokenAuth(h.sources.Calendar.Token))
	g.POST("/crm", h.CRM, server.TokenAuth(h.sources.CRM.Token))
}

// WhatsApp ingests one messaging-relay delivery. Group chats and messages
// without a sender phone are acknowledged without writing anything.
func (h *WebhooksHandler) WhatsApp(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	msg, err := whatsapp.Parse(body)
	if errors.Is(err, whatsapp.ErrGroupChat) {
		return respondSkipped(c, "No individual chat messages to process")
	}
	if errors.Is(err, whatsapp.ErrNoPhone) {
		h.logger.Warn("message without sender phone skipped")
		return respondSkipped(c, "No processable messages")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	res, err := h.processor.Process(c.Request().Context(), ingest.Event{
		Source:      ingest.SourceWhatsApp,
		ExternalUID: msg.UID,
		Phone:       msg.Phone,
		DisplayName: msg.DisplayName,
		OccurredAt:  msg.OccurredAt,
		Direction:   msg.Direction,
		Kind:        interactions.KindWhatsApp,
		Note:        msg.Text,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if res.Duplicate {
		return respondSkipped(c, "Message already processed")
	}
	return respondSuccess(c)
}

// Email ingests one forwarder delivery. A mail with no counterparty is a
// payload defect and surfaces as a 500.
func (h *WebhooksHandler) Email(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	mail, err := mailhook.Parse(body, h.sources.Email.OwnerEmail)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	res, err := h.processor.Process(c.Request().Context(), ingest.Event{
		Source:      ingest.SourceEmail,
		ExternalUID: mail.UID,
		Email:       mail.ContactEmail,
		DisplayName: mail.ContactName,
		OccurredAt:  mail.OccurredAt,
		Direction:   mail.Direction,
		Kind:        interactions.KindEmail,
		Note:        mail.Subject,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if res.Duplicate {
		return respondSkipped(c, "Message already processed")
	}
	return respondSuccess(c)
}

// Calendar ingests one calendar delivery: the meeting, its attendee links,
// and one interaction per attendee.
func (h *WebhooksHandler) Calendar(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	ev, err := calendar.Parse(body, h.sources.Calendar.OwnerEmail)
	if errors.Is(err, calendar.ErrCancelled) {
		return respondSkipped(c, "Cancelled events are not processed")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	attendees := make([]ingest.Attendee, 0, len(ev.Attendees))
	for _, a := range ev.Attendees {
		attendees = append(attendees, ingest.Attendee{Email: a.Email, DisplayName: a.DisplayName})
	}
	res, err := h.processor.ProcessMeeting(c.Request().Context(), ingest.MeetingEvent{
		ExternalUID: ev.UID,
		Name:        ev.Title,
		Description: ev.Description,
		OccurredAt:  ev.StartsAt,
		Attendees:   attendees,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if res.Duplicate {
		return respondSkipped(c, "Event already processed")
	}
	return respondSuccess(c)
}

// CRM ingests a batch of contact change notifications from the CRM
// provider's subscription API.
func (h *WebhooksHandler) CRM(c echo.Context) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	events, err := crmhook.Parse(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if len(events) == 0 {
		return respondSkipped(c, "No contact events to process")
	}

	for _, ev := range events {
		_, _, err := h.upserter.UpsertFromCRM(c.Request().Context(), contacts.Upsert{
			Email:     ev.Email,
			Phone:     ev.Phone,
			FirstName: ev.FirstName,
			LastName:  ev.LastName,
		})
		if errors.Is(err, contacts.ErrNoIdentity) {
			h.logger.Warn("contact event without identity skipped", slog.String("type", ev.Type))
			continue
		}
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}
	return respondSuccess(c)
}

func readBody(c echo.Context) ([]byte, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "read request body: "+err.Error())
	}
	return body, nil
}
