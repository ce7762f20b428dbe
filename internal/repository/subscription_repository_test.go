package repository

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"substore/config"
	"substore/internal/apperrors"
	"substore/internal/client"
	"substore/internal/model"
)

// fakeBackend 可切换在线/离线的后端
type fakeBackend struct {
	offline atomic.Bool // true表示离线
	subs    []model.Subscription
	handler http.Handler
}

func newFakeBackend() *fakeBackend {
	b := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/subs", func(w http.ResponseWriter, r *http.Request) {
		if b.offline.Load() {
			http.Error(w, "backend down", http.StatusBadGateway)
			return
		}
		switch r.Method {
		case http.MethodGet:
			b.writeData(w, b.subs)
		case http.MethodPost:
			var sub model.Subscription
			json.NewDecoder(r.Body).Decode(&sub)
			b.subs = append(b.subs, sub)
			b.writeData(w, sub)
		}
	})
	mux.HandleFunc("/api/subs/", func(w http.ResponseWriter, r *http.Request) {
		if b.offline.Load() {
			http.Error(w, "backend down", http.StatusBadGateway)
			return
		}
		id := r.URL.Path[len("/api/subs/"):]
		for _, sub := range b.subs {
			if sub.ID == id {
				b.writeData(w, sub)
				return
			}
		}
		http.NotFound(w, r)
	})
	b.handler = mux
	return b
}

func (b *fakeBackend) writeData(w http.ResponseWriter, data any) {
	payload, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(map[string]any{
		"status": "success",
		"data":   json.RawMessage(payload),
	})
}

func newTestRepo(t *testing.T, backend *fakeBackend) (SubscriptionRepository, *gorm.DB) {
	t.Helper()
	server := httptest.NewServer(backend.handler)
	t.Cleanup(server.Close)

	log := zap.NewNop().Sugar()
	api, err := client.New(config.Backend{URL: server.URL, TimeoutSeconds: 5}, log)
	assert.NoError(t, err)

	db, err := InitDB(config.Database{Driver: "sqlite", DSN: ":memory:"})
	assert.NoError(t, err)

	return NewSubscriptionRepository(api, db, log), db
}

func testSub(id, name string) model.Subscription {
	return model.Subscription{
		ID:        id,
		Name:      name,
		Source:    model.SubscriptionSourceRemote,
		URL:       "https://example.com/" + name,
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSubscriptionRepository_GetAllPopulatesCache(t *testing.T) {
	backend := newFakeBackend()
	backend.subs = []model.Subscription{testSub("1", "hk"), testSub("2", "us")}
	repo, db := newTestRepo(t, backend)

	subs, stale, err := repo.GetAll(context.Background())
	assert.NoError(t, err)
	assert.False(t, stale)
	assert.Len(t, subs, 2)

	var cached []model.Subscription
	assert.NoError(t, db.Find(&cached).Error)
	assert.Len(t, cached, 2)
}

func TestSubscriptionRepository_GetAllFallsBackToCache(t *testing.T) {
	backend := newFakeBackend()
	backend.subs = []model.Subscription{testSub("1", "hk")}
	repo, _ := newTestRepo(t, backend)

	// 先在线拉一次填充缓存
	_, _, err := repo.GetAll(context.Background())
	assert.NoError(t, err)

	// 后端下线后读到缓存且stale为true
	backend.offline.Store(true)
	subs, stale, err := repo.GetAll(context.Background())
	assert.NoError(t, err)
	assert.True(t, stale)
	assert.Len(t, subs, 1)
	assert.Equal(t, "hk", subs[0].Name)
}

func TestSubscriptionRepository_GetAllOfflineEmptyCache(t *testing.T) {
	backend := newFakeBackend()
	backend.offline.Store(true)
	repo, _ := newTestRepo(t, backend)

	subs, stale, err := repo.GetAll(context.Background())
	assert.NoError(t, err)
	assert.True(t, stale)
	assert.Empty(t, subs)
}

func TestSubscriptionRepository_GetByIDCacheFirst(t *testing.T) {
	backend := newFakeBackend()
	backend.subs = []model.Subscription{testSub("1", "hk")}
	repo, _ := newTestRepo(t, backend)

	_, _, err := repo.GetAll(context.Background())
	assert.NoError(t, err)

	// 缓存命中后即使后端下线也能读到
	backend.offline.Store(true)
	sub, err := repo.GetByID(context.Background(), "1")
	assert.NoError(t, err)
	assert.Equal(t, "hk", sub.Name)
}

func TestSubscriptionRepository_GetByIDMissEverywhere(t *testing.T) {
	backend := newFakeBackend()
	repo, _ := newTestRepo(t, backend)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSubscriptionRepository_CreateWritesThroughCache(t *testing.T) {
	backend := newFakeBackend()
	repo, db := newTestRepo(t, backend)

	created, err := repo.Create(context.Background(), testSub("7", "jp"))
	assert.NoError(t, err)
	assert.Equal(t, "jp", created.Name)

	var cached model.Subscription
	assert.NoError(t, db.First(&cached, "id = ?", "7").Error)
	assert.Equal(t, "jp", cached.Name)
}

func TestSubscriptionRepository_ReplaceCacheIsTotal(t *testing.T) {
	backend := newFakeBackend()
	repo, db := newTestRepo(t, backend)

	assert.NoError(t, repo.ReplaceCache([]model.Subscription{testSub("1", "a"), testSub("2", "b")}))
	assert.NoError(t, repo.ReplaceCache([]model.Subscription{testSub("3", "c")}))

	var cached []model.Subscription
	assert.NoError(t, db.Find(&cached).Error)
	assert.Len(t, cached, 1)
	assert.Equal(t, "3", cached[0].ID)

	// 空集合清空缓存
	assert.NoError(t, repo.ReplaceCache(nil))
	assert.NoError(t, db.Find(&cached).Error)
	assert.Empty(t, cached)
}
