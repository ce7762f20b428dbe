package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"substore/config"
	"substore/internal/apperrors"
	"substore/internal/model"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(config.Backend{
		URL:            server.URL,
		Token:          "secret",
		TimeoutSeconds: 5,
	}, zap.NewNop().Sugar())
	assert.NoError(t, err)
	return client
}

func writeEnvelope(w http.ResponseWriter, data any) {
	payload, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data":   json.RawMessage(payload),
	})
}

func TestClient_ListSubscriptions(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/subs", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		writeEnvelope(w, []model.Subscription{
			{ID: "1", Name: "hk", Source: model.SubscriptionSourceRemote, URL: "https://e.com/hk", UpdatedAt: now},
		})
	}))

	subs, err := client.ListSubscriptions(context.Background())
	assert.NoError(t, err)
	assert.Len(t, subs, 1)
	assert.Equal(t, "hk", subs[0].Name)
}

func TestClient_NotFoundMapsToSentinel(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	_, err := client.GetSubscription(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestClient_BackendFailureStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": "failed",
			"error":  "quota exceeded",
		})
	}))

	_, err := client.ListSubscriptions(context.Background())
	var networkErr *apperrors.NetworkError
	assert.ErrorAs(t, err, &networkErr)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestClient_MalformedEnvelope(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))

	_, err := client.ListSubscriptions(context.Background())
	var parseErr *apperrors.ParseError
	assert.ErrorAs(t, err, &parseErr)
}

func TestClient_CreateSubscriptionSendsBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/subs", r.URL.Path)

		var received model.Subscription
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "new", received.Name)

		writeEnvelope(w, received)
	}))

	created, err := client.CreateSubscription(context.Background(), model.Subscription{
		ID: "1", Name: "new", Source: model.SubscriptionSourceLocal, Content: "x",
	})
	assert.NoError(t, err)
	assert.Equal(t, "new", created.Name)
}

func TestClient_ContextCancellation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListSubscriptions(ctx)
	var networkErr *apperrors.NetworkError
	assert.ErrorAs(t, err, &networkErr)
	assert.ErrorIs(t, networkErr.Err, context.Canceled)
}

func TestClient_InvalidProxyURL(t *testing.T) {
	_, err := New(config.Backend{
		URL:      "http://127.0.0.1:3000",
		ProxyURL: "://bad",
	}, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestClient_FetchFromSyncPostsConfig(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/sync/subs", r.URL.Path)

		var cfg model.SyncConfig
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&cfg))
		assert.Equal(t, model.SyncProviderGist, cfg.Provider)

		writeEnvelope(w, []model.Subscription{})
	}))

	subs, err := client.FetchSubscriptionsFromSync(context.Background(), model.SyncConfig{
		Provider: model.SyncProviderGist, Token: "tok", Interval: 60,
	})
	assert.NoError(t, err)
	assert.Empty(t, subs)
}
