package registrar

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cimminelli1982/CRM/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   map[string]any
}

type recordingServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	response string
}

func newRecordingServer(status int, response string) (*recordingServer, *httptest.Server) {
	rs := &recordingServer{status: status, response: response}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
		}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		rs.mu.Lock()
		rs.requests = append(rs.requests, rec)
		rs.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rs.status)
		_, _ = w.Write([]byte(rs.response))
	}))
	return rs, srv
}

func (rs *recordingServer) recorded() []recordedRequest {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return append([]recordedRequest(nil), rs.requests...)
}

func TestRegisterSubscriptions(t *testing.T) {
	rs, srv := newRecordingServer(http.StatusCreated, `{"id":"sub-1"}`)
	defer srv.Close()

	client := NewCRMClient(testLogger(), config.CRMRegistrarConfig{
		BaseURL:     srv.URL,
		BearerToken: "crm-token",
		CallbackURL: "https://bridge.example.com/webhooks/crm",
	})

	require.NoError(t, client.RegisterSubscriptions(context.Background()))

	requests := rs.recorded()
	require.Len(t, requests, 2)
	for i, eventType := range SubscribedEvents {
		assert.Equal(t, http.MethodPost, requests[i].method)
		assert.Equal(t, "/webhooks/subscriptions", requests[i].path)
		assert.Equal(t, "Bearer crm-token", requests[i].auth)
		assert.Equal(t, eventType, requests[i].body["event_type"])
		assert.Equal(t, "https://bridge.example.com/webhooks/crm", requests[i].body["target_url"])
	}
}

func TestRegisterSubscriptionsProviderError(t *testing.T) {
	_, srv := newRecordingServer(http.StatusForbidden, `{"error":"bad token"}`)
	defer srv.Close()

	client := NewCRMClient(testLogger(), config.CRMRegistrarConfig{
		BaseURL:     srv.URL,
		BearerToken: "wrong",
		CallbackURL: "https://bridge.example.com/webhooks/crm",
	})

	err := client.RegisterSubscriptions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestRenewWatchUsesRefreshedToken(t *testing.T) {
	rs := &recordingServer{status: http.StatusOK, response: `{"resource_id":"res-9","expiration":"1767225600000"}`}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/token" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"access_token":"at-123","token_type":"Bearer","expires_in":3600}`))
			return
		}
		rec := recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			auth:   r.Header.Get("Authorization"),
		}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &rec.body)
		}
		rs.mu.Lock()
		rs.requests = append(rs.requests, rec)
		rs.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rs.status)
		_, _ = w.Write([]byte(rs.response))
	}))
	defer srv.Close()

	client := NewWatchClient(testLogger(), config.WatchRegistrarConfig{
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/oauth/token",
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RefreshToken: "refresh-1",
		CalendarID:   "primary",
		CallbackURL:  "https://bridge.example.com/webhooks/calendar",
	})

	require.NoError(t, client.RenewWatch(context.Background()))

	requests := rs.recorded()
	require.Len(t, requests, 1)
	assert.Equal(t, "/calendars/primary/events/watch", requests[0].path)
	assert.Equal(t, "Bearer at-123", requests[0].auth)
	assert.Equal(t, "web_hook", requests[0].body["type"])
	assert.Equal(t, "https://bridge.example.com/webhooks/calendar", requests[0].body["address"])
	assert.NotEmpty(t, requests[0].body["id"])
}

func TestBootstrapRunsEagerlyAndSchedules(t *testing.T) {
	rs, srv := newRecordingServer(http.StatusCreated, `{"id":"sub-1"}`)
	defer srv.Close()

	crm := NewCRMClient(testLogger(), config.CRMRegistrarConfig{
		BaseURL:     srv.URL,
		BearerToken: "crm-token",
		CallbackURL: "https://bridge.example.com/webhooks/crm",
	})
	svc := NewService(testLogger(), crm, nil, config.RegistrarConfig{
		CRM: config.CRMRegistrarConfig{Cron: "@hourly"},
	})

	require.NoError(t, svc.Bootstrap(context.Background()))
	svc.Stop()

	assert.Len(t, rs.recorded(), len(SubscribedEvents))
}

func TestBootstrapRejectsBadPattern(t *testing.T) {
	rs, srv := newRecordingServer(http.StatusCreated, `{"id":"sub-1"}`)
	defer srv.Close()

	crm := NewCRMClient(testLogger(), config.CRMRegistrarConfig{
		BaseURL:     srv.URL,
		BearerToken: "crm-token",
		CallbackURL: "https://bridge.example.com/webhooks/crm",
	})
	svc := NewService(testLogger(), crm, nil, config.RegistrarConfig{
		CRM: config.CRMRegistrarConfig{Cron: "not a pattern"},
	})

	err := svc.Bootstrap(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule crm_subscriptions")
	assert.Len(t, rs.recorded(), len(SubscribedEvents))
}

func TestBootstrapWithoutClients(t *testing.T) {
	svc := NewService(testLogger(), nil, nil, config.RegistrarConfig{})
	require.NoError(t, svc.Bootstrap(context.Background()))
	svc.Stop()
}
