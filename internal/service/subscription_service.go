package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"substore/internal/apperrors"
	"substore/internal/debounce"
	"substore/internal/eventbus"
	"substore/internal/exporter"
	"substore/internal/model"
	"substore/internal/repository"
	"substore/internal/service/task"
	"substore/internal/syncer"
	"substore/internal/util"
)

// SubscriptionFilter 订阅过滤条件
type SubscriptionFilter struct {
	Sources     []model.SubscriptionSource `json:"sources,omitempty"`
	Tags        []string                   `json:"tags,omitempty"`
	EnabledOnly bool                       `json:"enabledOnly,omitempty"`
	HasFlowOnly bool                       `json:"hasFlowOnly,omitempty"`
}

// SubscriptionService 订阅集合控制器接口。
// 每个实体族进程内只有一份共享集合，所有变更通过事件总线对外广播。
type SubscriptionService interface {
	Load(ctx context.Context) error
	Subscriptions() []model.Subscription
	Filtered() []model.Subscription
	IsStale() bool
	GetByID(ctx context.Context, id string) (*model.Subscription, error)
	Create(ctx context.Context, sub model.Subscription) (*model.Subscription, error)
	Update(ctx context.Context, sub model.Subscription) (*model.Subscription, error)
	Delete(ctx context.Context, id string) error
	Download(ctx context.Context, name string) (string, error)

	SetSearchText(query string)
	SetFilter(filter SubscriptionFilter)
	ClearFilters()
	FlushFilter()

	ToggleSelect(id string)
	SelectAll()
	SelectedIDs() []string

	Batch(ctx context.Context, op BatchOperation, ids []string) (*BatchResult, error)
	Sync(ctx context.Context, cfg model.SyncConfig) (*model.SyncResult, error)
	RunDueSyncs(ctx context.Context)
	RefreshFlows(ctx context.Context)
	SyncConfigs() ([]model.SyncConfig, error)
	SaveSyncConfigs(configs []model.SyncConfig) error
}

// DefaultSubscriptionService 订阅集合控制器默认实现
type DefaultSubscriptionService struct {
	repo       repository.SubscriptionRepository
	prefs      repository.PreferencesRepository
	bus        eventbus.EventBus
	tasks      task.TaskManager
	exporter   *exporter.Exporter
	log        *zap.SugaredLogger
	concurrent int

	mu         sync.Mutex
	entities   []model.Subscription
	filtered   []model.Subscription
	searchText string
	filter     SubscriptionFilter
	selected   selection
	stale      bool
	debouncer  *debounce.Debouncer
}

// NewSubscriptionService 创建订阅集合控制器
func NewSubscriptionService(
	repo repository.SubscriptionRepository,
	prefs repository.PreferencesRepository,
	bus eventbus.EventBus,
	tasks task.TaskManager,
	exp *exporter.Exporter,
	debounceWindow time.Duration,
	concurrent int,
	log *zap.SugaredLogger,
) SubscriptionService {
	return &DefaultSubscriptionService{
		repo:       repo,
		prefs:      prefs,
		bus:        bus,
		tasks:      tasks,
		exporter:   exp,
		log:        log,
		concurrent: concurrent,
		selected:   selection{},
		debouncer:  debounce.New(debounceWindow),
	}
}

// Load 加载共享集合，网络失败时呈现缓存数据并发出降级通知
func (s *DefaultSubscriptionService) Load(ctx context.Context) error {
	subs, stale, err := s.repo.GetAll(ctx)
	if err != nil {
		s.notifyError(err)
		return err
	}

	s.mu.Lock()
	s.entities = subs
	s.stale = stale
	s.recomputeLocked()
	s.mu.Unlock()

	if stale {
		s.bus.Publish(eventbus.NewNotificationEvent(eventbus.LevelWarning, "后端不可达，订阅列表展示的是本地缓存"))
	}
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilySubscriptions))
	return nil
}

// Subscriptions 当前集合快照
func (s *DefaultSubscriptionService) Subscriptions() []model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Subscription, len(s.entities))
	copy(out, s.entities)
	return out
}

// Filtered 过滤后视图快照
func (s *DefaultSubscriptionService) Filtered() []model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Subscription, len(s.filtered))
	copy(out, s.filtered)
	return out
}

// IsStale 最近一次Load是否回退到了缓存
func (s *DefaultSubscriptionService) IsStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// GetByID 读取单个订阅
func (s *DefaultSubscriptionService) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	return s.repo.GetByID(ctx, id)
}

// Create 创建订阅，表单校验失败时不发起任何网络请求
func (s *DefaultSubscriptionService) Create(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	if err := util.ValidateSubscription(sub); err != nil {
		return nil, err
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}

	s.mu.Lock()
	s.entities = append(s.entities, *created)
	s.recomputeLocked()
	s.mu.Unlock()

	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilySubscriptions))
	return created, nil
}

// Update 更新订阅，成功后用后端规范版本原位替换
func (s *DefaultSubscriptionService) Update(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	if err := util.ValidateSubscription(sub); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, sub)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}

	s.replaceEntity(*updated)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilySubscriptions))
	return updated, nil
}

// Delete 删除订阅
func (s *DefaultSubscriptionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.notifyError(err)
		return err
	}

	s.removeEntity(id)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilySubscriptions))
	return nil
}

// Download 通过后端下载订阅产出的配置内容
func (s *DefaultSubscriptionService) Download(ctx context.Context, name string) (string, error) {
	return s.repo.Download(ctx, name)
}

// SetSearchText 更新搜索词，防抖后重算过滤视图
func (s *DefaultSubscriptionService) SetSearchText(query string) {
	s.mu.Lock()
	s.searchText = query
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// SetFilter 更新过滤条件，防抖后重算过滤视图
func (s *DefaultSubscriptionService) SetFilter(filter SubscriptionFilter) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// ClearFilters 清空搜索词和所有过滤条件
func (s *DefaultSubscriptionService) ClearFilters() {
	s.mu.Lock()
	s.searchText = ""
	s.filter = SubscriptionFilter{}
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// FlushFilter 立即执行挂起的过滤重算
func (s *DefaultSubscriptionService) FlushFilter() {
	s.debouncer.Flush()
}

// ToggleSelect 切换单个订阅的选中状态
func (s *DefaultSubscriptionService) ToggleSelect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected.toggle(id)
}

// SelectAll 全选切换：过滤视图内已全部选中时清空选择，否则选中过滤视图全部条目
func (s *DefaultSubscriptionService) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.filtered))
	for _, sub := range s.filtered {
		ids = append(ids, sub.ID)
	}
	if s.selected.containsAll(ids) {
		s.selected = selection{}
		return
	}
	s.selected = selection{}
	for _, id := range ids {
		s.selected[id] = struct{}{}
	}
}

// SelectedIDs 当前选中的订阅ID
func (s *DefaultSubscriptionService) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.ids()
}

// Batch 批量操作：逐实体独立执行，单个失败不影响其余，结束后无条件清空选择
func (s *DefaultSubscriptionService) Batch(ctx context.Context, op BatchOperation, ids []string) (*BatchResult, error) {
	defer s.clearSelection()

	entities := s.resolve(ids)
	result := &BatchResult{Operation: op, Failed: map[string]string{}}

	if op == BatchExport {
		path, err := s.exporter.Export(FamilySubscriptions, len(entities), entities)
		if err != nil {
			s.notifyError(err)
			return nil, err
		}
		result.ExportPath = path
		for _, sub := range entities {
			result.Succeeded = append(result.Succeeded, sub.ID)
		}
		return result, nil
	}

	var syncCfg *model.SyncConfig
	if op == BatchSync {
		cfg, err := s.firstEnabledSyncConfig()
		if err != nil {
			return nil, err
		}
		syncCfg = cfg
	}

	taskCtx, ok := s.tasks.StartTask(ctx, task.TaskTypeBatch, len(entities))
	if !ok {
		return nil, fmt.Errorf("another batch task is already running")
	}

	succeeded, failed := runBatch(taskCtx, s.concurrent, entities,
		func(ctx context.Context, sub model.Subscription) error {
			return s.applyBatchOp(ctx, op, sub, syncCfg)
		},
		func(completed int) {
			s.tasks.UpdateProgress(task.TaskTypeBatch, completed, "")
		})
	result.Succeeded = succeeded
	result.Failed = failed

	summary := ""
	if len(failed) > 0 {
		summary = fmt.Sprintf("%d/%d %s operations failed", len(failed), len(entities), op)
		s.bus.Publish(eventbus.NewNotificationEvent(eventbus.LevelError, summary))
	}
	s.tasks.FinishTask(task.TaskTypeBatch, summary)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilySubscriptions))
	return result, nil
}

// applyBatchOp 单实体等价操作
func (s *DefaultSubscriptionService) applyBatchOp(ctx context.Context, op BatchOperation, sub model.Subscription, syncCfg *model.SyncConfig) error {
	switch op {
	case BatchEnable, BatchDisable:
		sub.Enabled = op == BatchEnable
		updated, err := s.repo.Update(ctx, sub)
		if err != nil {
			return err
		}
		s.replaceEntity(*updated)
		return nil
	case BatchDelete:
		if err := s.repo.Delete(ctx, sub.ID); err != nil {
			return err
		}
		s.removeEntity(sub.ID)
		return nil
	case BatchSync:
		return s.repo.PushToSync(ctx, *syncCfg, sub)
	default:
		return &apperrors.ValidationError{Field: "operation", Reason: string(op) + " is not supported for subscriptions"}
	}
}

// Sync 从外部同步目标拉取并按最后写入者获胜规则合并
func (s *DefaultSubscriptionService) Sync(ctx context.Context, cfg model.SyncConfig) (*model.SyncResult, error) {
	if err := util.ValidateSyncConfig(cfg); err != nil {
		return nil, err
	}

	remote, err := s.repo.FetchFromSync(ctx, cfg)
	if err != nil {
		syncErr := &apperrors.SyncError{Provider: string(cfg.Provider), Err: err}
		s.notifyError(syncErr)
		return nil, syncErr
	}

	s.mu.Lock()
	outcome := syncer.Merge(s.entities, remote)
	s.entities = outcome.Merged
	s.recomputeLocked()
	s.mu.Unlock()

	if err := s.repo.ReplaceCache(outcome.Merged); err != nil {
		s.log.Warnw("同步结果写缓存失败", "err", err)
	}

	result := outcome.Result("")
	for _, conflict := range result.Conflicts {
		s.log.Infow("同步冲突，保留本地版本",
			"id", conflict.EntityID,
			"local", conflict.LocalUpdatedAt,
			"remote", conflict.RemoteUpdatedAt)
	}
	s.markSynced(cfg)
	s.bus.Publish(eventbus.NewSyncCompletedEvent(FamilySubscriptions, true, len(result.SyncedIDs), len(result.Conflicts)))
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilySubscriptions))
	return &result, nil
}

// RunDueSyncs 执行所有到期的自动同步，单个配置失败不影响其余
func (s *DefaultSubscriptionService) RunDueSyncs(ctx context.Context) {
	configs, err := s.prefs.SyncConfigs(FamilySubscriptions)
	if err != nil {
		s.log.Warnw("读取订阅同步配置失败", "err", err)
		return
	}
	now := time.Now()
	for _, cfg := range configs {
		if !cfg.IsDue(now) {
			continue
		}
		if _, err := s.Sync(ctx, cfg); err != nil {
			s.log.Warnw("订阅自动同步失败", "config", cfg.ID, "err", err)
		}
	}
}

// RefreshFlows 刷新远程订阅的流量快照
func (s *DefaultSubscriptionService) RefreshFlows(ctx context.Context) {
	// 先占住任务槽再取快照，快照期间集合不会被另一轮刷新动到
	taskCtx, ok := s.tasks.StartTask(ctx, task.TaskTypeFlowRefresh, 0)
	if !ok {
		return
	}

	s.mu.Lock()
	remotes := make([]model.Subscription, 0, len(s.entities))
	for _, sub := range s.entities {
		if sub.Source == model.SubscriptionSourceRemote {
			remotes = append(remotes, sub)
		}
	}
	s.mu.Unlock()
	if len(remotes) == 0 {
		s.tasks.FinishTask(task.TaskTypeFlowRefresh, "")
		return
	}
	s.tasks.UpdateTotal(task.TaskTypeFlowRefresh, len(remotes))

	_, failed := runBatch(taskCtx, s.concurrent, remotes,
		func(ctx context.Context, sub model.Subscription) error {
			flow, err := s.repo.GetFlow(ctx, sub.ID)
			if err != nil {
				return err
			}
			sub.Flow = flow
			s.replaceEntity(sub)
			return nil
		},
		func(completed int) {
			s.tasks.UpdateProgress(task.TaskTypeFlowRefresh, completed, "")
		})

	summary := ""
	if len(failed) > 0 {
		summary = fmt.Sprintf("%d/%d flow refreshes failed", len(failed), len(remotes))
		s.log.Warnw("部分订阅流量刷新失败", "failed", len(failed))
	}
	s.tasks.FinishTask(task.TaskTypeFlowRefresh, summary)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilySubscriptions))
}

// SyncConfigs 读取订阅族的同步配置列表
func (s *DefaultSubscriptionService) SyncConfigs() ([]model.SyncConfig, error) {
	return s.prefs.SyncConfigs(FamilySubscriptions)
}

// SaveSyncConfigs 保存订阅族的同步配置列表
func (s *DefaultSubscriptionService) SaveSyncConfigs(configs []model.SyncConfig) error {
	for _, cfg := range configs {
		if err := util.ValidateSyncConfig(cfg); err != nil {
			return err
		}
	}
	return s.prefs.SaveSyncConfigs(FamilySubscriptions, configs)
}

// recompute 重算过滤视图
func (s *DefaultSubscriptionService) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked()
}

// recomputeLocked 过滤管线，阶段顺序固定：来源 → 标签 → 布尔开关 → 搜索
func (s *DefaultSubscriptionService) recomputeLocked() {
	filtered := make([]model.Subscription, 0, len(s.entities))
	for _, sub := range s.entities {
		if len(s.filter.Sources) > 0 && !containsSource(s.filter.Sources, sub.Source) {
			continue
		}
		if !matchTags(sub.Tags, s.filter.Tags) {
			continue
		}
		if s.filter.EnabledOnly && !sub.Enabled {
			continue
		}
		if s.filter.HasFlowOnly && sub.Flow == nil {
			continue
		}
		if !matchSearch(s.searchText, sub.Name, sub.URL, sub.Content, joinTags(sub.Tags)) {
			continue
		}
		filtered = append(filtered, sub)
	}
	s.filtered = filtered
}

func containsSource(sources []model.SubscriptionSource, source model.SubscriptionSource) bool {
	for _, candidate := range sources {
		if candidate == source {
			return true
		}
	}
	return false
}

// resolve 从共享集合中按ID取实体快照，未知ID忽略
func (s *DefaultSubscriptionService) resolve(ids []string) []model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := make(map[string]model.Subscription, len(s.entities))
	for _, sub := range s.entities {
		index[sub.ID] = sub
	}
	out := make([]model.Subscription, 0, len(ids))
	for _, id := range ids {
		if sub, ok := index[id]; ok {
			out = append(out, sub)
		}
	}
	return out
}

func (s *DefaultSubscriptionService) replaceEntity(sub model.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entities {
		if s.entities[i].ID == sub.ID {
			s.entities[i] = sub
			s.recomputeLocked()
			return
		}
	}
	s.entities = append(s.entities, sub)
	s.recomputeLocked()
}

func (s *DefaultSubscriptionService) removeEntity(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entities {
		if s.entities[i].ID == id {
			s.entities = append(s.entities[:i], s.entities[i+1:]...)
			break
		}
	}
	delete(s.selected, id)
	s.recomputeLocked()
}

func (s *DefaultSubscriptionService) clearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = selection{}
}

// firstEnabledSyncConfig 取第一个启用的同步配置，没有则报校验错误
func (s *DefaultSubscriptionService) firstEnabledSyncConfig() (*model.SyncConfig, error) {
	configs, err := s.prefs.SyncConfigs(FamilySubscriptions)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if cfg.Enabled {
			return &cfg, nil
		}
	}
	return nil, &apperrors.ValidationError{Field: "syncConfig", Reason: "no enabled sync config for subscriptions"}
}

// markSynced 同步成功后推进lastSync
func (s *DefaultSubscriptionService) markSynced(cfg model.SyncConfig) {
	configs, err := s.prefs.SyncConfigs(FamilySubscriptions)
	if err != nil {
		s.log.Warnw("读取订阅同步配置失败", "err", err)
		return
	}
	now := time.Now()
	changed := false
	for i := range configs {
		if configs[i].ID == cfg.ID {
			configs[i].LastSyncAt = &now
			changed = true
		}
	}
	if changed {
		if err := s.prefs.SaveSyncConfigs(FamilySubscriptions, configs); err != nil {
			s.log.Warnw("保存订阅同步配置失败", "err", err)
		}
	}
}

func (s *DefaultSubscriptionService) notifyError(err error) {
	s.bus.Publish(eventbus.NewNotificationEvent(eventbus.LevelError, err.Error()))
}
