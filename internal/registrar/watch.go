package registrar

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/Cimminelli1982/CRM/internal/config"
)

// WatchClient renews the calendar provider's push channel. Channels expire
// on the provider side, so renewal runs on a schedule.
type WatchClient struct {
	http        *resty.Client
	calendarID  string
	callbackURL string
	logger      *slog.Logger
}

// NewWatchClient creates a client that authenticates with an OAuth2 refresh
// token. Token refresh happens inside the transport, under resty.
func NewWatchClient(log *slog.Logger, cfg config.WatchRegistrarConfig) *WatchClient {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: cfg.TokenURL},
	}
	source := oauthCfg.TokenSource(context.Background(), &oauth2.Token{RefreshToken: cfg.RefreshToken})

	client := resty.NewWithClient(oauth2.NewClient(context.Background(), source)).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(config.Duration(cfg.Timeout, 30*time.Second)).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &WatchClient{
		http:        client,
		calendarID:  cfg.CalendarID,
		callbackURL: cfg.CallbackURL,
		logger:      log.With(slog.String("client", "calendar_watch")),
	}
}

// RenewWatch opens a fresh push channel pointed at the bridge's callback
// URL. Each call uses a new channel id; the provider drops the old channel
// when it expires.
func (c *WatchClient) RenewWatch(ctx context.Context) error {
	req := watchRequest{
		ID:      uuid.NewString(),
		Type:    "web_hook",
		Address: c.callbackURL,
	}
	var created watchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&created).
		Post(fmt.Sprintf("/calendars/%s/events/watch", url.PathEscape(c.calendarID)))
	if err != nil {
		return fmt.Errorf("renew calendar watch: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("renew calendar watch: %s: %s", resp.Status(), resp.String())
	}
	c.logger.Info("watch channel renewed",
		slog.String("channel_id", req.ID),
		slog.String("resource_id", created.ResourceID),
		slog.String("expiration", created.Expiration),
	)
	return nil
}
