package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"substore/internal/apperrors"
	"substore/internal/eventbus"
	"substore/internal/exporter"
	"substore/internal/model"
	"substore/internal/service/task"
)

// fakeSubscriptionRepo 内存实现，网络与缓存行为可编排。
// 批量操作会并发调用，内部用互斥锁保护。
type fakeSubscriptionRepo struct {
	mu        sync.Mutex
	subs      []model.Subscription
	cached    []model.Subscription
	offline   bool // 模拟后端不可达
	updateErr map[string]error
	deleteErr map[string]error
	pushErr   map[string]error
	remote    []model.Subscription
	fetchErr  error

	replaced [][]model.Subscription
	pushed   []string
}

func (f *fakeSubscriptionRepo) GetAll(ctx context.Context) ([]model.Subscription, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return f.cached, true, nil
	}
	return f.subs, false, nil
}

func (f *fakeSubscriptionRepo) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, sub := range f.subs {
		if sub.ID == id {
			out := sub
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeSubscriptionRepo) Create(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, sub)
	return &sub, nil
}

func (f *fakeSubscriptionRepo) Update(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	if err := f.updateErr[sub.ID]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.subs {
		if f.subs[i].ID == sub.ID {
			f.subs[i] = sub
		}
	}
	return &sub, nil
}

func (f *fakeSubscriptionRepo) Delete(ctx context.Context, id string) error {
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.subs {
		if f.subs[i].ID == id {
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeSubscriptionRepo) GetFlow(ctx context.Context, id string) (*model.FlowInfo, error) {
	return &model.FlowInfo{Used: 1, Total: 10}, nil
}

func (f *fakeSubscriptionRepo) Download(ctx context.Context, name string) (string, error) {
	return "payload", nil
}

func (f *fakeSubscriptionRepo) FetchFromSync(ctx context.Context, cfg model.SyncConfig) ([]model.Subscription, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.remote, nil
}

func (f *fakeSubscriptionRepo) PushToSync(ctx context.Context, cfg model.SyncConfig, sub model.Subscription) error {
	if err := f.pushErr[sub.ID]; err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, sub.ID)
	return nil
}

func (f *fakeSubscriptionRepo) ReplaceCache(subs []model.Subscription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced = append(f.replaced, subs)
	return nil
}

// fakePrefsRepo 内存偏好存储
type fakePrefsRepo struct {
	configs map[string][]model.SyncConfig
}

func newFakePrefsRepo() *fakePrefsRepo {
	return &fakePrefsRepo{configs: make(map[string][]model.SyncConfig)}
}

func (f *fakePrefsRepo) Get(key string, out any) error   { return apperrors.ErrNotFound }
func (f *fakePrefsRepo) Set(key string, value any) error { return nil }
func (f *fakePrefsRepo) Delete(key string) error         { return nil }

func (f *fakePrefsRepo) SyncConfigs(family string) ([]model.SyncConfig, error) {
	return f.configs[family], nil
}

func (f *fakePrefsRepo) SaveSyncConfigs(family string, configs []model.SyncConfig) error {
	f.configs[family] = configs
	return nil
}

func testSubscriptions() []model.Subscription {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return []model.Subscription{
		{ID: "1", Name: "vmess-hk", Source: model.SubscriptionSourceRemote, URL: "https://example.com/hk", Tags: []string{"asia", "paid"}, Enabled: true, UpdatedAt: now},
		{ID: "2", Name: "trojan-us", Source: model.SubscriptionSourceRemote, URL: "https://example.com/us", Tags: []string{"america"}, Enabled: false, UpdatedAt: now},
		{ID: "3", Name: "local-rules", Source: model.SubscriptionSourceLocal, Content: "vmess://inline", Tags: []string{"asia"}, Enabled: true, UpdatedAt: now},
	}
}

func newTestSubscriptionService(t *testing.T, repo *fakeSubscriptionRepo, prefs *fakePrefsRepo) SubscriptionService {
	t.Helper()
	log := zap.NewNop().Sugar()
	bus := eventbus.NewEventBus(log)
	exp := exporter.New(t.TempDir())
	return NewSubscriptionService(repo, prefs, bus, task.NewTaskManager(), exp, time.Millisecond, 2, log)
}

func TestSubscriptionService_LoadAndFilterPipeline(t *testing.T) {
	repo := &fakeSubscriptionRepo{subs: testSubscriptions()}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())

	assert.NoError(t, svc.Load(context.Background()))
	assert.False(t, svc.IsStale())
	assert.Len(t, svc.Filtered(), 3)

	// 搜索大小写不敏感，命中name和content
	svc.SetSearchText("VMESS")
	svc.FlushFilter()
	filtered := svc.Filtered()
	assert.Len(t, filtered, 2)
	assert.Equal(t, "1", filtered[0].ID)
	assert.Equal(t, "3", filtered[1].ID)

	// 标签过滤是超集匹配
	svc.SetFilter(SubscriptionFilter{Tags: []string{"asia", "paid"}})
	svc.FlushFilter()
	filtered = svc.Filtered()
	assert.Len(t, filtered, 1)
	assert.Equal(t, "1", filtered[0].ID)

	// 清空后恢复全量
	svc.ClearFilters()
	svc.FlushFilter()
	assert.Len(t, svc.Filtered(), 3)
}

func TestSubscriptionService_FilteredIsSubsetAndOrderPreserved(t *testing.T) {
	repo := &fakeSubscriptionRepo{subs: testSubscriptions()}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())
	assert.NoError(t, svc.Load(context.Background()))

	svc.SetFilter(SubscriptionFilter{EnabledOnly: true})
	svc.FlushFilter()

	all := svc.Subscriptions()
	index := make(map[string]int)
	for i, sub := range all {
		index[sub.ID] = i
	}
	prev := -1
	for _, sub := range svc.Filtered() {
		pos, exists := index[sub.ID]
		assert.True(t, exists, "filtered entity %s not in collection", sub.ID)
		assert.Greater(t, pos, prev, "filtered view must preserve collection order")
		prev = pos
	}
}

func TestSubscriptionService_LoadStaleFallback(t *testing.T) {
	repo := &fakeSubscriptionRepo{
		offline: true,
		cached:  testSubscriptions()[:1],
	}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())

	assert.NoError(t, svc.Load(context.Background()))
	assert.True(t, svc.IsStale())
	assert.Len(t, svc.Filtered(), 1)
}

func TestSubscriptionService_SelectAllToggle(t *testing.T) {
	repo := &fakeSubscriptionRepo{subs: testSubscriptions()}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())
	assert.NoError(t, svc.Load(context.Background()))

	// 先全选
	svc.SelectAll()
	selected := svc.SelectedIDs()
	sort.Strings(selected)
	assert.Equal(t, []string{"1", "2", "3"}, selected)

	// 已全部选中时再次触发清空
	svc.SelectAll()
	assert.Empty(t, svc.SelectedIDs())

	// 部分选中时触发全选，结果是过滤视图的全部条目
	svc.ToggleSelect("1")
	svc.SelectAll()
	selected = svc.SelectedIDs()
	sort.Strings(selected)
	assert.Equal(t, []string{"1", "2", "3"}, selected)
}

func TestSubscriptionService_SelectAllFollowsFilteredView(t *testing.T) {
	repo := &fakeSubscriptionRepo{subs: testSubscriptions()}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())
	assert.NoError(t, svc.Load(context.Background()))

	svc.SetFilter(SubscriptionFilter{EnabledOnly: true})
	svc.FlushFilter()

	svc.SelectAll()
	selected := svc.SelectedIDs()
	sort.Strings(selected)
	assert.Equal(t, []string{"1", "3"}, selected)
}

func TestSubscriptionService_ToggleSelect(t *testing.T) {
	repo := &fakeSubscriptionRepo{subs: testSubscriptions()}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())
	assert.NoError(t, svc.Load(context.Background()))

	svc.ToggleSelect("2")
	assert.Equal(t, []string{"2"}, svc.SelectedIDs())
	svc.ToggleSelect("2")
	assert.Empty(t, svc.SelectedIDs())
}

func TestSubscriptionService_CreateValidationFailsFast(t *testing.T) {
	repo := &fakeSubscriptionRepo{}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())

	// 远程订阅缺少URL
	_, err := svc.Create(context.Background(), model.Subscription{
		Name:   "bad",
		Source: model.SubscriptionSourceRemote,
	})
	assert.True(t, apperrors.IsValidation(err))
	assert.Empty(t, repo.subs, "validation failure must not reach the repository")
}

func TestSubscriptionService_CreateAssignsID(t *testing.T) {
	repo := &fakeSubscriptionRepo{}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())

	created, err := svc.Create(context.Background(), model.Subscription{
		Name:   "new",
		Source: model.SubscriptionSourceRemote,
		URL:    "https://example.com/new",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, svc.Subscriptions(), 1)
	assert.Len(t, svc.Filtered(), 1)
}

func TestSubscriptionService_BatchPartialFailure(t *testing.T) {
	repo := &fakeSubscriptionRepo{
		subs:      testSubscriptions(),
		updateErr: map[string]error{"2": errors.New("backend rejected")},
	}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())
	assert.NoError(t, svc.Load(context.Background()))

	svc.SelectAll()
	result, err := svc.Batch(context.Background(), BatchDisable, []string{"1", "2", "3"})
	assert.NoError(t, err)

	sort.Strings(result.Succeeded)
	assert.Equal(t, []string{"1", "3"}, result.Succeeded)
	assert.Equal(t, 1, result.FailedCount())
	assert.Contains(t, result.Failed["2"], "backend rejected")

	// 成功的实体已禁用，失败的保持原状
	for _, sub := range svc.Subscriptions() {
		switch sub.ID {
		case "1", "3":
			assert.False(t, sub.Enabled)
		case "2":
			assert.False(t, sub.Enabled) // 2本来就是禁用的
		}
	}

	// 无论成败，批量操作后选择都被清空
	assert.Empty(t, svc.SelectedIDs())
}

func TestSubscriptionService_BatchDeleteRemovesFromCollection(t *testing.T) {
	repo := &fakeSubscriptionRepo{subs: testSubscriptions()}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())
	assert.NoError(t, svc.Load(context.Background()))

	result, err := svc.Batch(context.Background(), BatchDelete, []string{"1", "3"})
	assert.NoError(t, err)
	assert.Len(t, result.Succeeded, 2)

	remaining := svc.Subscriptions()
	assert.Len(t, remaining, 1)
	assert.Equal(t, "2", remaining[0].ID)
}

// capturingHandler 收集总线上的通知事件
type capturingHandler struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (h *capturingHandler) HandleEvent(event eventbus.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, event)
	return nil
}

func (h *capturingHandler) countErrors() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, e := range h.events {
		if e.GetType() == eventbus.EventTypeNotification && e.GetData()["level"] == eventbus.LevelError {
			n++
		}
	}
	return n
}

func TestSubscriptionService_BatchDeleteMiddleFailure(t *testing.T) {
	repo := &fakeSubscriptionRepo{
		subs:      testSubscriptions(),
		deleteErr: map[string]error{"2": errors.New("backend unavailable")},
	}
	log := zap.NewNop().Sugar()
	bus := eventbus.NewEventBus(log)
	captured := &capturingHandler{}
	assert.NoError(t, bus.Subscribe(captured))
	svc := NewSubscriptionService(repo, newFakePrefsRepo(), bus, task.NewTaskManager(),
		exporter.New(t.TempDir()), time.Millisecond, 2, log)
	assert.NoError(t, svc.Load(context.Background()))

	svc.ToggleSelect("1")
	svc.ToggleSelect("2")
	svc.ToggleSelect("3")

	result, err := svc.Batch(context.Background(), BatchDelete, []string{"1", "2", "3"})
	assert.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "3"}, result.Succeeded)
	assert.Contains(t, result.Failed["2"], "backend unavailable")

	// 失败的实体保留在集合中，选中集无条件清空
	remaining := svc.Subscriptions()
	assert.Len(t, remaining, 1)
	assert.Equal(t, "2", remaining[0].ID)
	assert.Empty(t, svc.SelectedIDs())

	// 只产生一条错误通知
	assert.Eventually(t, func() bool {
		return captured.countErrors() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSubscriptionService_BatchExportWritesDocument(t *testing.T) {
	repo := &fakeSubscriptionRepo{subs: testSubscriptions()}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())
	assert.NoError(t, svc.Load(context.Background()))

	result, err := svc.Batch(context.Background(), BatchExport, []string{"1", "2"})
	assert.NoError(t, err)
	assert.NotEmpty(t, result.ExportPath)
	assert.FileExists(t, result.ExportPath)
	assert.Len(t, result.Succeeded, 2)
}

func TestSubscriptionService_BatchUnknownIDsIgnored(t *testing.T) {
	repo := &fakeSubscriptionRepo{subs: testSubscriptions()}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())
	assert.NoError(t, svc.Load(context.Background()))

	result, err := svc.Batch(context.Background(), BatchDisable, []string{"1", "missing"})
	assert.NoError(t, err)
	assert.Equal(t, []string{"1"}, result.Succeeded)
	assert.Empty(t, result.Failed)
}

func TestSubscriptionService_BatchUnsupportedOperation(t *testing.T) {
	repo := &fakeSubscriptionRepo{subs: testSubscriptions()}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())
	assert.NoError(t, svc.Load(context.Background()))

	result, err := svc.Batch(context.Background(), BatchTest, []string{"1"})
	assert.NoError(t, err)
	assert.Equal(t, 1, result.FailedCount())
}

func TestSubscriptionService_SyncMergesAndMarksConfig(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	subs := testSubscriptions()
	remote := []model.Subscription{
		{ID: "1", Name: "vmess-hk-renamed", Source: model.SubscriptionSourceRemote, URL: "https://example.com/hk", UpdatedAt: now.Add(time.Hour)},
		{ID: "9", Name: "fresh", Source: model.SubscriptionSourceLocal, Content: "x", UpdatedAt: now},
	}
	repo := &fakeSubscriptionRepo{subs: subs, remote: remote}
	prefs := newFakePrefsRepo()
	prefs.configs[FamilySubscriptions] = []model.SyncConfig{
		{ID: "cfg-1", Provider: model.SyncProviderGist, Token: "tok", Enabled: true, Interval: 1800},
	}
	svc := newTestSubscriptionService(t, repo, prefs)
	assert.NoError(t, svc.Load(context.Background()))

	result, err := svc.Sync(context.Background(), prefs.configs[FamilySubscriptions][0])
	assert.NoError(t, err)
	sort.Strings(result.SyncedIDs)
	assert.Equal(t, []string{"1", "9"}, result.SyncedIDs)
	assert.Empty(t, result.Conflicts)

	// 合并结果进入共享集合并整体覆盖缓存
	assert.Len(t, svc.Subscriptions(), 4)
	assert.NotEmpty(t, repo.replaced)

	// lastSync已推进
	saved := prefs.configs[FamilySubscriptions]
	assert.NotNil(t, saved[0].LastSyncAt)
}

func TestSubscriptionService_SyncKeepsNewerLocal(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	subs := testSubscriptions()
	subs[0].UpdatedAt = now.Add(2 * time.Hour)
	remote := []model.Subscription{
		{ID: "1", Name: "stale-remote", Source: model.SubscriptionSourceRemote, URL: "https://example.com/hk", UpdatedAt: now},
	}
	repo := &fakeSubscriptionRepo{subs: subs, remote: remote}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())
	assert.NoError(t, svc.Load(context.Background()))

	result, err := svc.Sync(context.Background(), model.SyncConfig{
		ID: "cfg-1", Provider: model.SyncProviderGist, Token: "tok", Enabled: true, Interval: 1800,
	})
	assert.NoError(t, err)
	assert.Len(t, result.Conflicts, 1)

	// 本地较新的版本原样保留
	for _, sub := range svc.Subscriptions() {
		if sub.ID == "1" {
			assert.Equal(t, "vmess-hk", sub.Name)
		}
	}
}

func TestSubscriptionService_SyncFetchFailure(t *testing.T) {
	repo := &fakeSubscriptionRepo{subs: testSubscriptions(), fetchErr: errors.New("gist unreachable")}
	svc := newTestSubscriptionService(t, repo, newFakePrefsRepo())
	assert.NoError(t, svc.Load(context.Background()))

	_, err := svc.Sync(context.Background(), model.SyncConfig{
		ID: "cfg-1", Provider: model.SyncProviderGist, Token: "tok", Enabled: true, Interval: 1800,
	})
	var syncErr *apperrors.SyncError
	assert.ErrorAs(t, err, &syncErr)
	// 失败的同步不改变共享集合
	assert.Len(t, svc.Subscriptions(), 3)
}

func TestSubscriptionService_RunDueSyncs(t *testing.T) {
	now := time.Now().Add(-time.Hour)
	repo := &fakeSubscriptionRepo{subs: testSubscriptions(), remote: nil}
	prefs := newFakePrefsRepo()
	prefs.configs[FamilySubscriptions] = []model.SyncConfig{
		{ID: "due", Provider: model.SyncProviderGist, Token: "tok", Enabled: true, Interval: 60, LastSyncAt: &now},
		{ID: "not-due", Provider: model.SyncProviderGist, Token: "tok", Enabled: true, Interval: 86400, LastSyncAt: &now},
		{ID: "disabled", Provider: model.SyncProviderGist, Token: "tok", Enabled: false, Interval: 60},
	}
	svc := newTestSubscriptionService(t, repo, prefs)
	assert.NoError(t, svc.Load(context.Background()))

	svc.RunDueSyncs(context.Background())

	saved := prefs.configs[FamilySubscriptions]
	assert.True(t, saved[0].LastSyncAt.After(now), "due config must run")
	assert.Equal(t, now, *saved[1].LastSyncAt, "not-due config must not run")
	assert.Nil(t, saved[2].LastSyncAt, "disabled config must not run")
}

func TestSubscriptionService_RefreshFlows(t *testing.T) {
	repo := &fakeSubscriptionRepo{subs: testSubscriptions()}
	log := zap.NewNop().Sugar()
	tasks := task.NewTaskManager()
	svc := NewSubscriptionService(repo, newFakePrefsRepo(), eventbus.NewEventBus(log), tasks,
		exporter.New(t.TempDir()), time.Millisecond, 2, log)
	assert.NoError(t, svc.Load(context.Background()))

	svc.RefreshFlows(context.Background())

	for _, sub := range svc.Subscriptions() {
		if sub.Source == model.SubscriptionSourceRemote {
			assert.NotNil(t, sub.Flow, "remote subscription %s must get a flow snapshot", sub.ID)
		} else {
			assert.Nil(t, sub.Flow, "local subscription %s has no flow", sub.ID)
		}
	}

	// 任务总数在快照确定后补报为远程订阅数
	status := tasks.GetStatus(task.TaskTypeFlowRefresh)
	assert.NotNil(t, status)
	assert.Equal(t, 2, status.Total)
	assert.Equal(t, task.TaskStateFinished, status.State)
}
