package registrar

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Cimminelli1982/CRM/internal/config"
	"github.com/Cimminelli1982/CRM/internal/source/crmhook"
)

// SubscribedEvents lists the CRM change notifications the bridge consumes.
var SubscribedEvents = []string{
	crmhook.EventContactCreated,
	crmhook.EventContactUpdated,
}

// CRMClient registers webhook subscriptions with the CRM provider.
type CRMClient struct {
	http        *resty.Client
	callbackURL string
	logger      *slog.Logger
}

// NewCRMClient creates a client against the provider's subscription API.
func NewCRMClient(log *slog.Logger, cfg config.CRMRegistrarConfig) *CRMClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(config.Duration(cfg.Timeout, 30*time.Second)).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second).
		SetAuthToken(cfg.BearerToken).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &CRMClient{
		http:        client,
		callbackURL: cfg.CallbackURL,
		logger:      log.With(slog.String("client", "crm_registrar")),
	}
}

// RegisterSubscriptions ensures the provider delivers contact changes to
// the bridge's callback URL. The provider upserts by target URL, so the
// call is safe to repeat.
func (c *CRMClient) RegisterSubscriptions(ctx context.Context) error {
	for _, eventType := range SubscribedEvents {
		var created Subscription
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(Subscription{EventType: eventType, TargetURL: c.callbackURL}).
			SetResult(&created).
			Post("/webhooks/subscriptions")
		if err != nil {
			return fmt.Errorf("register %s subscription: %w", eventType, err)
		}
		if resp.IsError() {
			return fmt.Errorf("register %s subscription: %s: %s", eventType, resp.Status(), resp.String())
		}
		c.logger.Info("subscription registered",
			slog.String("event_type", eventType),
			slog.String("subscription_id", created.ID),
		)
	}
	return nil
}
