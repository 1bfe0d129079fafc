package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Cimminelli1982/CRM/internal/contacts"
	"github.com/Cimminelli1982/CRM/internal/export"
	"github.com/Cimminelli1982/CRM/internal/ingest"
	"github.com/Cimminelli1982/CRM/internal/interactions"
	"github.com/Cimminelli1982/CRM/internal/server"
)

// ContactDirectory is the contact read surface the admin endpoints serve.
type ContactDirectory interface {
	Get(ctx context.Context, id string) (contacts.Contact, error)
	Search(ctx context.Context, query string) ([]contacts.Contact, error)
	ListAll(ctx context.Context) ([]contacts.Contact, error)
}

// InteractionLog is the interaction read surface the admin endpoints serve.
type InteractionLog interface {
	ListByContact(ctx context.Context, contactID string, limit int) ([]interactions.Interaction, error)
	ListAll(ctx context.Context) ([]interactions.Interaction, error)
}

// AdminHandler serves the token-protected read and export endpoints.
type AdminHandler struct {
	contacts     ContactDirectory
	interactions InteractionLog
	token        string
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(directory ContactDirectory, log InteractionLog, token string) *AdminHandler {
	return &AdminHandler{
		contacts:     directory,
		interactions: log,
		token:        token,
	}
}

// Register mounts the admin group behind the configured bearer token.
func (h *AdminHandler) Register(e *echo.Echo) {
	g := e.Group("/admin", server.TokenAuth(h.token))
	g.GET("/contacts", h.ListContacts)
	g.GET("/contacts/:id", h.GetContact)
	g.GET("/contacts/:id/interactions", h.ListContactInteractions)
	g.GET("/export/contacts", h.ExportContacts)
	g.GET("/export/interactions", h.ExportInteractions)
}

type contactView struct {
	ID              string `json:"id"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Mobile          string `json:"mobile,omitempty"`
	Email           string `json:"email,omitempty"`
	Email2          string `json:"email2,omitempty"`
	Email3          string `json:"email3,omitempty"`
	LastInteraction string `json:"last_interaction,omitempty"`
}

type interactionView struct {
	ID            string `json:"id"`
	ContactID     string `json:"contact_id,omitempty"`
	Date          string `json:"date"`
	Type          string `json:"type"`
	Direction     string `json:"direction"`
	Note          string `json:"note,omitempty"`
	ContactEmail  string `json:"contact_email,omitempty"`
	ContactMobile string `json:"contact_mobile,omitempty"`
	Source        string `json:"source"`
}

func toContactView(c contacts.Contact) contactView {
	v := contactView{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Mobile:    c.Mobile,
		Email:     c.Email,
		Email2:    c.Email2,
		Email3:    c.Email3,
	}
	if !c.LastInteraction.IsZero() {
		v.LastInteraction = ingest.FormatDay(c.LastInteraction)
	}
	return v
}

func toInteractionView(in interactions.Interaction) interactionView {
	return interactionView{
		ID:            in.ID,
		ContactID:     in.ContactID,
		Date:          ingest.FormatDay(in.Date),
		Type:          in.Kind,
		Direction:     in.Direction,
		Note:          in.Note,
		ContactEmail:  in.ContactEmail,
		ContactMobile: in.ContactMobile,
		Source:        in.Source,
	}
}

// ListContacts returns contacts matching the q query parameter, or all of
// them when q is empty.
func (h *AdminHandler) ListContacts(c echo.Context) error {
	items, err := h.contacts.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	views := make([]contactView, 0, len(items))
	for _, item := range items {
		views = append(views, toContactView(item))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": views})
}

// GetContact returns one contact by id.
func (h *AdminHandler) GetContact(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	item, err := h.contacts.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, contacts.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "contact not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, toContactView(item))
}

// ListContactInteractions returns a contact's interaction timeline.
func (h *AdminHandler) ListContactInteractions(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		limit = parsed
	}
	items, err := h.interactions.ListByContact(c.Request().Context(), id, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	views := make([]interactionView, 0, len(items))
	for _, item := range items {
		views = append(views, toInteractionView(item))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": views})
}

// ExportContacts streams the contact list as an XLSX workbook.
func (h *AdminHandler) ExportContacts(c echo.Context) error {
	items, err := h.contacts.ListAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	data, err := export.Contacts(items)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return sendWorkbook(c, "contacts.xlsx", data)
}

// ExportInteractions streams the interaction log as an XLSX workbook.
func (h *AdminHandler) ExportInteractions(c echo.Context) error {
	items, err := h.interactions.ListAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	data, err := export.Interactions(items)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return sendWorkbook(c, "interactions.xlsx", data)
}

func sendWorkbook(c echo.Context, filename string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
