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

// ArtifactFilter 产物过滤条件
type ArtifactFilter struct {
	Types       []model.ArtifactType `json:"types,omitempty"`
	Tags        []string             `json:"tags,omitempty"`
	EnabledOnly bool                 `json:"enabledOnly,omitempty"`
}

// ArtifactService 产物集合控制器接口
type ArtifactService interface {
	Load(ctx context.Context) error
	Artifacts() []model.Artifact
	Filtered() []model.Artifact
	IsStale() bool
	GetByID(ctx context.Context, id string) (*model.Artifact, error)
	Create(ctx context.Context, artifact model.Artifact) (*model.Artifact, error)
	Update(ctx context.Context, artifact model.Artifact) (*model.Artifact, error)
	Delete(ctx context.Context, id string) error
	Test(ctx context.Context, id string) (*model.TestResult, error)
	ValidateContent(ctx context.Context, content string, artifactType model.ArtifactType) (*model.ValidationResult, error)

	SetSearchText(query string)
	SetFilter(filter ArtifactFilter)
	ClearFilters()
	FlushFilter()

	ToggleSelect(id string)
	SelectAll()
	SelectedIDs() []string

	Batch(ctx context.Context, op BatchOperation, ids []string) (*BatchResult, error)
	Sync(ctx context.Context, cfg model.SyncConfig) (*model.SyncResult, error)
	RunDueSyncs(ctx context.Context)
	SyncConfigs() ([]model.SyncConfig, error)
	SaveSyncConfigs(configs []model.SyncConfig) error
}

// DefaultArtifactService 产物集合控制器默认实现
type DefaultArtifactService struct {
	repo       repository.ArtifactRepository
	prefs      repository.PreferencesRepository
	bus        eventbus.EventBus
	tasks      task.TaskManager
	exporter   *exporter.Exporter
	log        *zap.SugaredLogger
	concurrent int

	mu         sync.Mutex
	entities   []model.Artifact
	filtered   []model.Artifact
	searchText string
	filter     ArtifactFilter
	selected   selection
	stale      bool
	debouncer  *debounce.Debouncer
}

// NewArtifactService 创建产物集合控制器
func NewArtifactService(
	repo repository.ArtifactRepository,
	prefs repository.PreferencesRepository,
	bus eventbus.EventBus,
	tasks task.TaskManager,
	exp *exporter.Exporter,
	debounceWindow time.Duration,
	concurrent int,
	log *zap.SugaredLogger,
) ArtifactService {
	return &DefaultArtifactService{
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
func (s *DefaultArtifactService) Load(ctx context.Context) error {
	artifacts, stale, err := s.repo.GetAll(ctx)
	if err != nil {
		s.notifyError(err)
		return err
	}

	s.mu.Lock()
	s.entities = artifacts
	s.stale = stale
	s.recomputeLocked()
	s.mu.Unlock()

	if stale {
		s.bus.Publish(eventbus.NewNotificationEvent(eventbus.LevelWarning, "后端不可达，产物列表展示的是本地缓存"))
	}
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyArtifacts))
	return nil
}

// Artifacts 当前集合快照
func (s *DefaultArtifactService) Artifacts() []model.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Artifact, len(s.entities))
	copy(out, s.entities)
	return out
}

// Filtered 过滤后视图快照
func (s *DefaultArtifactService) Filtered() []model.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Artifact, len(s.filtered))
	copy(out, s.filtered)
	return out
}

// IsStale 最近一次Load是否回退到了缓存
func (s *DefaultArtifactService) IsStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// GetByID 读取单个产物
func (s *DefaultArtifactService) GetByID(ctx context.Context, id string) (*model.Artifact, error) {
	return s.repo.GetByID(ctx, id)
}

// Create 创建产物，表单校验失败时不发起任何网络请求
func (s *DefaultArtifactService) Create(ctx context.Context, artifact model.Artifact) (*model.Artifact, error) {
	if err := util.ValidateArtifact(artifact); err != nil {
		return nil, err
	}
	if artifact.ID == "" {
		artifact.ID = uuid.NewString()
	}

	created, err := s.repo.Create(ctx, artifact)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}

	s.mu.Lock()
	s.entities = append(s.entities, *created)
	s.recomputeLocked()
	s.mu.Unlock()

	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyArtifacts))
	return created, nil
}

// Update 更新产物
func (s *DefaultArtifactService) Update(ctx context.Context, artifact model.Artifact) (*model.Artifact, error) {
	if err := util.ValidateArtifact(artifact); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, artifact)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}

	s.replaceEntity(*updated)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyArtifacts))
	return updated, nil
}

// Delete 删除产物
func (s *DefaultArtifactService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.notifyError(err)
		return err
	}

	s.removeEntity(id)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyArtifacts))
	return nil
}

// Test 产物测试，执行本身完全委托后端
func (s *DefaultArtifactService) Test(ctx context.Context, id string) (*model.TestResult, error) {
	artifact, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	result, err := s.repo.Test(ctx, *artifact)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}
	return result, nil
}

// ValidateContent 产物内容校验，完全委托后端
func (s *DefaultArtifactService) ValidateContent(ctx context.Context, content string, artifactType model.ArtifactType) (*model.ValidationResult, error) {
	return s.repo.ValidateContent(ctx, content, artifactType)
}

// SetSearchText 更新搜索词，防抖后重算过滤视图
func (s *DefaultArtifactService) SetSearchText(query string) {
	s.mu.Lock()
	s.searchText = query
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// SetFilter 更新过滤条件，防抖后重算过滤视图
func (s *DefaultArtifactService) SetFilter(filter ArtifactFilter) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// ClearFilters 清空搜索词和所有过滤条件
func (s *DefaultArtifactService) ClearFilters() {
	s.mu.Lock()
	s.searchText = ""
	s.filter = ArtifactFilter{}
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// FlushFilter 立即执行挂起的过滤重算
func (s *DefaultArtifactService) FlushFilter() {
	s.debouncer.Flush()
}

// ToggleSelect 切换单个产物的选中状态
func (s *DefaultArtifactService) ToggleSelect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected.toggle(id)
}

// SelectAll 全选切换：过滤视图内已全部选中时清空选择，否则选中过滤视图全部条目
func (s *DefaultArtifactService) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.filtered))
	for _, artifact := range s.filtered {
		ids = append(ids, artifact.ID)
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

// SelectedIDs 当前选中的产物ID
func (s *DefaultArtifactService) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.ids()
}

// Batch 批量操作：逐实体独立执行，结束后无条件清空选择
func (s *DefaultArtifactService) Batch(ctx context.Context, op BatchOperation, ids []string) (*BatchResult, error) {
	defer s.clearSelection()

	entities := s.resolve(ids)
	result := &BatchResult{Operation: op, Failed: map[string]string{}}

	if op == BatchExport {
		path, err := s.exporter.Export(FamilyArtifacts, len(entities), entities)
		if err != nil {
			s.notifyError(err)
			return nil, err
		}
		result.ExportPath = path
		for _, artifact := range entities {
			result.Succeeded = append(result.Succeeded, artifact.ID)
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
		func(ctx context.Context, artifact model.Artifact) error {
			return s.applyBatchOp(ctx, op, artifact, syncCfg)
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
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyArtifacts))
	return result, nil
}

// applyBatchOp 单实体等价操作
func (s *DefaultArtifactService) applyBatchOp(ctx context.Context, op BatchOperation, artifact model.Artifact, syncCfg *model.SyncConfig) error {
	switch op {
	case BatchEnable, BatchDisable:
		artifact.Enabled = op == BatchEnable
		updated, err := s.repo.Update(ctx, artifact)
		if err != nil {
			return err
		}
		s.replaceEntity(*updated)
		return nil
	case BatchDelete:
		if err := s.repo.Delete(ctx, artifact.ID); err != nil {
			return err
		}
		s.removeEntity(artifact.ID)
		return nil
	case BatchTest:
		result, err := s.repo.Test(ctx, artifact)
		if err != nil {
			return err
		}
		if !result.Success {
			return fmt.Errorf("test failed: %s", result.Error)
		}
		return nil
	case BatchSync:
		return s.repo.PushToSync(ctx, *syncCfg, artifact)
	default:
		return &apperrors.ValidationError{Field: "operation", Reason: string(op) + " is not supported for artifacts"}
	}
}

// Sync 从外部同步目标拉取并按最后写入者获胜规则合并
func (s *DefaultArtifactService) Sync(ctx context.Context, cfg model.SyncConfig) (*model.SyncResult, error) {
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
	s.bus.Publish(eventbus.NewSyncCompletedEvent(FamilyArtifacts, true, len(result.SyncedIDs), len(result.Conflicts)))
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyArtifacts))
	return &result, nil
}

// RunDueSyncs 执行所有到期的自动同步
func (s *DefaultArtifactService) RunDueSyncs(ctx context.Context) {
	configs, err := s.prefs.SyncConfigs(FamilyArtifacts)
	if err != nil {
		s.log.Warnw("读取产物同步配置失败", "err", err)
		return
	}
	now := time.Now()
	for _, cfg := range configs {
		if !cfg.IsDue(now) {
			continue
		}
		if _, err := s.Sync(ctx, cfg); err != nil {
			s.log.Warnw("产物自动同步失败", "config", cfg.ID, "err", err)
		}
	}
}

// SyncConfigs 读取产物族的同步配置列表
func (s *DefaultArtifactService) SyncConfigs() ([]model.SyncConfig, error) {
	return s.prefs.SyncConfigs(FamilyArtifacts)
}

// SaveSyncConfigs 保存产物族的同步配置列表
func (s *DefaultArtifactService) SaveSyncConfigs(configs []model.SyncConfig) error {
	for _, cfg := range configs {
		if err := util.ValidateSyncConfig(cfg); err != nil {
			return err
		}
	}
	return s.prefs.SaveSyncConfigs(FamilyArtifacts, configs)
}

func (s *DefaultArtifactService) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked()
}

// recomputeLocked 过滤管线，阶段顺序固定：类型 → 标签 → 布尔开关 → 搜索
func (s *DefaultArtifactService) recomputeLocked() {
	filtered := make([]model.Artifact, 0, len(s.entities))
	for _, artifact := range s.entities {
		if len(s.filter.Types) > 0 && !containsArtifactType(s.filter.Types, artifact.Type) {
			continue
		}
		if !matchTags(artifact.Tags, s.filter.Tags) {
			continue
		}
		if s.filter.EnabledOnly && !artifact.Enabled {
			continue
		}
		if !matchSearch(s.searchText, artifact.Name, artifact.Content, artifact.Platform, joinTags(artifact.Tags)) {
			continue
		}
		filtered = append(filtered, artifact)
	}
	s.filtered = filtered
}

func containsArtifactType(types []model.ArtifactType, artifactType model.ArtifactType) bool {
	for _, candidate := range types {
		if candidate == artifactType {
			return true
		}
	}
	return false
}

// resolve 从共享集合中按ID取实体快照，未知ID忽略
func (s *DefaultArtifactService) resolve(ids []string) []model.Artifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := make(map[string]model.Artifact, len(s.entities))
	for _, artifact := range s.entities {
		index[artifact.ID] = artifact
	}
	out := make([]model.Artifact, 0, len(ids))
	for _, id := range ids {
		if artifact, ok := index[id]; ok {
			out = append(out, artifact)
		}
	}
	return out
}

func (s *DefaultArtifactService) replaceEntity(artifact model.Artifact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entities {
		if s.entities[i].ID == artifact.ID {
			s.entities[i] = artifact
			s.recomputeLocked()
			return
		}
	}
	s.entities = append(s.entities, artifact)
	s.recomputeLocked()
}

func (s *DefaultArtifactService) removeEntity(id string) {
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

func (s *DefaultArtifactService) clearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = selection{}
}

// firstEnabledSyncConfig 取第一个启用的同步配置，没有则报校验错误
func (s *DefaultArtifactService) firstEnabledSyncConfig() (*model.SyncConfig, error) {
	configs, err := s.prefs.SyncConfigs(FamilyArtifacts)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if cfg.Enabled {
			return &cfg, nil
		}
	}
	return nil, &apperrors.ValidationError{Field: "syncConfig", Reason: "no enabled sync config for artifacts"}
}

// markSynced 同步成功后推进lastSync
func (s *DefaultArtifactService) markSynced(cfg model.SyncConfig) {
	configs, err := s.prefs.SyncConfigs(FamilyArtifacts)
	if err != nil {
		s.log.Warnw("读取产物同步配置失败", "err", err)
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
		if err := s.prefs.SaveSyncConfigs(FamilyArtifacts, configs); err != nil {
			s.log.Warnw("保存产物同步配置失败", "err", err)
		}
	}
}

func (s *DefaultArtifactService) notifyError(err error) {
	s.bus.Publish(eventbus.NewNotificationEvent(eventbus.LevelError, err.Error()))
}
