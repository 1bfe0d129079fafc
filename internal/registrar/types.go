// Package registrar manages the bridge's outbound provider setup: webhook
// subscriptions at the CRM provider and the calendar push channel, both of
// which need periodic renewal.
package registrar

// Subscription is one webhook subscription held at the CRM provider.
type Subscription struct {
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type"`
	TargetURL string `json:"target_url"`
}

type watchRequest struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Address string `json:"address"`
}

type watchResponse struct {
	ResourceID string `json:"resource_id"`
	Expiration string `json:"expiration"`
}
