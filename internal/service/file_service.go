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

// FileFilter 文件过滤条件
type FileFilter struct {
	Types []model.FileType `json:"types,omitempty"`
	Tags  []string         `json:"tags,omitempty"`
}

// FileService 文件集合控制器接口
type FileService interface {
	Load(ctx context.Context) error
	Files() []model.File
	Filtered() []model.File
	IsStale() bool
	GetByID(ctx context.Context, id string) (*model.File, error)
	Create(ctx context.Context, file model.File) (*model.File, error)
	Update(ctx context.Context, file model.File) (*model.File, error)
	Delete(ctx context.Context, id string) error

	SetSearchText(query string)
	SetFilter(filter FileFilter)
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

// DefaultFileService 文件集合控制器默认实现
type DefaultFileService struct {
	repo       repository.FileRepository
	prefs      repository.PreferencesRepository
	bus        eventbus.EventBus
	tasks      task.TaskManager
	exporter   *exporter.Exporter
	log        *zap.SugaredLogger
	concurrent int

	mu         sync.Mutex
	entities   []model.File
	filtered   []model.File
	searchText string
	filter     FileFilter
	selected   selection
	stale      bool
	debouncer  *debounce.Debouncer
}

// NewFileService 创建文件集合控制器
func NewFileService(
	repo repository.FileRepository,
	prefs repository.PreferencesRepository,
	bus eventbus.EventBus,
	tasks task.TaskManager,
	exp *exporter.Exporter,
	debounceWindow time.Duration,
	concurrent int,
	log *zap.SugaredLogger,
) FileService {
	return &DefaultFileService{
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
func (s *DefaultFileService) Load(ctx context.Context) error {
	files, stale, err := s.repo.GetAll(ctx)
	if err != nil {
		s.notifyError(err)
		return err
	}

	s.mu.Lock()
	s.entities = files
	s.stale = stale
	s.recomputeLocked()
	s.mu.Unlock()

	if stale {
		s.bus.Publish(eventbus.NewNotificationEvent(eventbus.LevelWarning, "后端不可达，文件列表展示的是本地缓存"))
	}
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyFiles))
	return nil
}

// Files 当前集合快照
func (s *DefaultFileService) Files() []model.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.File, len(s.entities))
	copy(out, s.entities)
	return out
}

// Filtered 过滤后视图快照
func (s *DefaultFileService) Filtered() []model.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.File, len(s.filtered))
	copy(out, s.filtered)
	return out
}

// IsStale 最近一次Load是否回退到了缓存
func (s *DefaultFileService) IsStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// GetByID 读取单个文件
func (s *DefaultFileService) GetByID(ctx context.Context, id string) (*model.File, error) {
	return s.repo.GetByID(ctx, id)
}

// Create 创建文件，表单校验失败时不发起任何网络请求
func (s *DefaultFileService) Create(ctx context.Context, file model.File) (*model.File, error) {
	if err := util.ValidateFile(file); err != nil {
		return nil, err
	}
	if file.ID == "" {
		file.ID = uuid.NewString()
	}

	created, err := s.repo.Create(ctx, file)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}

	s.mu.Lock()
	s.entities = append(s.entities, *created)
	s.recomputeLocked()
	s.mu.Unlock()

	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyFiles))
	return created, nil
}

// Update 更新文件，只读文件拒绝修改
func (s *DefaultFileService) Update(ctx context.Context, file model.File) (*model.File, error) {
	if err := util.ValidateFile(file); err != nil {
		return nil, err
	}
	if existing, err := s.repo.GetByID(ctx, file.ID); err == nil && existing.ReadOnly {
		return nil, &apperrors.ValidationError{Field: "readOnly", Reason: "file is read-only"}
	}

	updated, err := s.repo.Update(ctx, file)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}

	s.replaceEntity(*updated)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyFiles))
	return updated, nil
}

// Delete 删除文件
func (s *DefaultFileService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.notifyError(err)
		return err
	}

	s.removeEntity(id)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyFiles))
	return nil
}

// SetSearchText 更新搜索词，防抖后重算过滤视图
func (s *DefaultFileService) SetSearchText(query string) {
	s.mu.Lock()
	s.searchText = query
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// SetFilter 更新过滤条件，防抖后重算过滤视图
func (s *DefaultFileService) SetFilter(filter FileFilter) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// ClearFilters 清空搜索词和所有过滤条件
func (s *DefaultFileService) ClearFilters() {
	s.mu.Lock()
	s.searchText = ""
	s.filter = FileFilter{}
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// FlushFilter 立即执行挂起的过滤重算
func (s *DefaultFileService) FlushFilter() {
	s.debouncer.Flush()
}

// ToggleSelect 切换单个文件的选中状态
func (s *DefaultFileService) ToggleSelect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected.toggle(id)
}

// SelectAll 全选切换：过滤视图内已全部选中时清空选择，否则选中过滤视图全部条目
func (s *DefaultFileService) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.filtered))
	for _, file := range s.filtered {
		ids = append(ids, file.ID)
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

// SelectedIDs 当前选中的文件ID
func (s *DefaultFileService) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.ids()
}

// Batch 批量操作：逐实体独立执行，结束后无条件清空选择
func (s *DefaultFileService) Batch(ctx context.Context, op BatchOperation, ids []string) (*BatchResult, error) {
	defer s.clearSelection()

	entities := s.resolve(ids)
	result := &BatchResult{Operation: op, Failed: map[string]string{}}

	if op == BatchExport {
		path, err := s.exporter.Export(FamilyFiles, len(entities), entities)
		if err != nil {
			s.notifyError(err)
			return nil, err
		}
		result.ExportPath = path
		for _, file := range entities {
			result.Succeeded = append(result.Succeeded, file.ID)
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
		func(ctx context.Context, file model.File) error {
			return s.applyBatchOp(ctx, op, file, syncCfg)
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
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyFiles))
	return result, nil
}

// applyBatchOp 单实体等价操作。文件没有启用开关，enable/disable不适用
func (s *DefaultFileService) applyBatchOp(ctx context.Context, op BatchOperation, file model.File, syncCfg *model.SyncConfig) error {
	switch op {
	case BatchDelete:
		if file.ReadOnly {
			return &apperrors.ValidationError{Field: "readOnly", Reason: "file is read-only"}
		}
		if err := s.repo.Delete(ctx, file.ID); err != nil {
			return err
		}
		s.removeEntity(file.ID)
		return nil
	case BatchSync:
		return s.repo.PushToSync(ctx, *syncCfg, file)
	default:
		return &apperrors.ValidationError{Field: "operation", Reason: string(op) + " is not supported for files"}
	}
}

// Sync 从外部同步目标拉取并按最后写入者获胜规则合并
func (s *DefaultFileService) Sync(ctx context.Context, cfg model.SyncConfig) (*model.SyncResult, error) {
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
	s.bus.Publish(eventbus.NewSyncCompletedEvent(FamilyFiles, true, len(result.SyncedIDs), len(result.Conflicts)))
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyFiles))
	return &result, nil
}

// RunDueSyncs 执行所有到期的自动同步
func (s *DefaultFileService) RunDueSyncs(ctx context.Context) {
	configs, err := s.prefs.SyncConfigs(FamilyFiles)
	if err != nil {
		s.log.Warnw("读取文件同步配置失败", "err", err)
		return
	}
	now := time.Now()
	for _, cfg := range configs {
		if !cfg.IsDue(now) {
			continue
		}
		if _, err := s.Sync(ctx, cfg); err != nil {
			s.log.Warnw("文件自动同步失败", "config", cfg.ID, "err", err)
		}
	}
}

// SyncConfigs 读取文件族的同步配置列表
func (s *DefaultFileService) SyncConfigs() ([]model.SyncConfig, error) {
	return s.prefs.SyncConfigs(FamilyFiles)
}

// SaveSyncConfigs 保存文件族的同步配置列表
func (s *DefaultFileService) SaveSyncConfigs(configs []model.SyncConfig) error {
	for _, cfg := range configs {
		if err := util.ValidateSyncConfig(cfg); err != nil {
			return err
		}
	}
	return s.prefs.SaveSyncConfigs(FamilyFiles, configs)
}

func (s *DefaultFileService) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked()
}

// recomputeLocked 过滤管线，阶段顺序固定：类型 → 标签 → 搜索
func (s *DefaultFileService) recomputeLocked() {
	filtered := make([]model.File, 0, len(s.entities))
	for _, file := range s.entities {
		if len(s.filter.Types) > 0 && !containsFileType(s.filter.Types, file.Type) {
			continue
		}
		if !matchTags(file.Tags, s.filter.Tags) {
			continue
		}
		if !matchSearch(s.searchText, file.Name, file.Content, joinTags(file.Tags)) {
			continue
		}
		filtered = append(filtered, file)
	}
	s.filtered = filtered
}

func containsFileType(types []model.FileType, fileType model.FileType) bool {
	for _, candidate := range types {
		if candidate == fileType {
			return true
		}
	}
	return false
}

// resolve 从共享集合中按ID取实体快照，未知ID忽略
func (s *DefaultFileService) resolve(ids []string) []model.File {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := make(map[string]model.File, len(s.entities))
	for _, file := range s.entities {
		index[file.ID] = file
	}
	out := make([]model.File, 0, len(ids))
	for _, id := range ids {
		if file, ok := index[id]; ok {
			out = append(out, file)
		}
	}
	return out
}

func (s *DefaultFileService) replaceEntity(file model.File) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entities {
		if s.entities[i].ID == file.ID {
			s.entities[i] = file
			s.recomputeLocked()
			return
		}
	}
	s.entities = append(s.entities, file)
	s.recomputeLocked()
}

func (s *DefaultFileService) removeEntity(id string) {
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

func (s *DefaultFileService) clearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = selection{}
}

// firstEnabledSyncConfig 取第一个启用的同步配置，没有则报校验错误
func (s *DefaultFileService) firstEnabledSyncConfig() (*model.SyncConfig, error) {
	configs, err := s.prefs.SyncConfigs(FamilyFiles)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if cfg.Enabled {
			return &cfg, nil
		}
	}
	return nil, &apperrors.ValidationError{Field: "syncConfig", Reason: "no enabled sync config for files"}
}

// markSynced 同步成功后推进lastSync
func (s *DefaultFileService) markSynced(cfg model.SyncConfig) {
	configs, err := s.prefs.SyncConfigs(FamilyFiles)
	if err != nil {
		s.log.Warnw("读取文件同步配置失败", "err", err)
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
		if err := s.prefs.SaveSyncConfigs(FamilyFiles, configs); err != nil {
			s.log.Warnw("保存文件同步配置失败", "err", err)
		}
	}
}

func (s *DefaultFileService) notifyError(err error) {
	s.bus.Publish(eventbus.NewNotificationEvent(eventbus.LevelError, err.Error()))
}
