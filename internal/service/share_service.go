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
	"substore/internal/util"
)

// ShareFilter 分享过滤条件
type ShareFilter struct {
	Types       []model.ShareType `json:"types,omitempty"`
	EnabledOnly bool              `json:"enabledOnly,omitempty"`
	ActiveOnly  bool              `json:"activeOnly,omitempty"` // 排除已过期的分享
}

// ShareService 分享集合控制器接口。分享不参与外部同步。
type ShareService interface {
	Load(ctx context.Context) error
	Shares() []model.Share
	Filtered() []model.Share
	IsStale() bool
	GetByID(ctx context.Context, id string) (*model.Share, error)
	Create(ctx context.Context, share model.Share) (*model.Share, error)
	Update(ctx context.Context, share model.Share) (*model.Share, error)
	Delete(ctx context.Context, id string) error
	RegenerateToken(ctx context.Context, id string) (*model.Share, error)

	SetSearchText(query string)
	SetFilter(filter ShareFilter)
	ClearFilters()
	FlushFilter()

	ToggleSelect(id string)
	SelectAll()
	SelectedIDs() []string

	Batch(ctx context.Context, op BatchOperation, ids []string) (*BatchResult, error)
}

// DefaultShareService 分享集合控制器默认实现
type DefaultShareService struct {
	repo       repository.ShareRepository
	bus        eventbus.EventBus
	tasks      task.TaskManager
	exporter   *exporter.Exporter
	log        *zap.SugaredLogger
	concurrent int

	mu         sync.Mutex
	entities   []model.Share
	filtered   []model.Share
	searchText string
	filter     ShareFilter
	selected   selection
	stale      bool
	debouncer  *debounce.Debouncer
}

// NewShareService 创建分享集合控制器
func NewShareService(
	repo repository.ShareRepository,
	bus eventbus.EventBus,
	tasks task.TaskManager,
	exp *exporter.Exporter,
	debounceWindow time.Duration,
	concurrent int,
	log *zap.SugaredLogger,
) ShareService {
	return &DefaultShareService{
		repo:       repo,
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
func (s *DefaultShareService) Load(ctx context.Context) error {
	shares, stale, err := s.repo.GetAll(ctx)
	if err != nil {
		s.notifyError(err)
		return err
	}

	s.mu.Lock()
	s.entities = shares
	s.stale = stale
	s.recomputeLocked()
	s.mu.Unlock()

	if stale {
		s.bus.Publish(eventbus.NewNotificationEvent(eventbus.LevelWarning, "后端不可达，分享列表展示的是本地缓存"))
	}
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyShares))
	return nil
}

// Shares 当前集合快照
func (s *DefaultShareService) Shares() []model.Share {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Share, len(s.entities))
	copy(out, s.entities)
	return out
}

// Filtered 过滤后视图快照
func (s *DefaultShareService) Filtered() []model.Share {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Share, len(s.filtered))
	copy(out, s.filtered)
	return out
}

// IsStale 最近一次Load是否回退到了缓存
func (s *DefaultShareService) IsStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// GetByID 读取单个分享
func (s *DefaultShareService) GetByID(ctx context.Context, id string) (*model.Share, error) {
	return s.repo.GetByID(ctx, id)
}

// Create 创建分享，令牌为空时生成新令牌
func (s *DefaultShareService) Create(ctx context.Context, share model.Share) (*model.Share, error) {
	if share.Token == "" {
		share.Token = uuid.NewString()
	}
	if err := util.ValidateShare(share); err != nil {
		return nil, err
	}
	if share.ID == "" {
		share.ID = uuid.NewString()
	}

	created, err := s.repo.Create(ctx, share)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}

	s.mu.Lock()
	s.entities = append(s.entities, *created)
	s.recomputeLocked()
	s.mu.Unlock()

	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyShares))
	return created, nil
}

// Update 更新分享
func (s *DefaultShareService) Update(ctx context.Context, share model.Share) (*model.Share, error) {
	if err := util.ValidateShare(share); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, share)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}

	s.replaceEntity(*updated)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyShares))
	return updated, nil
}

// Delete 删除分享
func (s *DefaultShareService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.notifyError(err)
		return err
	}

	s.removeEntity(id)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyShares))
	return nil
}

// RegenerateToken 重新生成访问令牌，旧令牌立即失效
func (s *DefaultShareService) RegenerateToken(ctx context.Context, id string) (*model.Share, error) {
	share, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	share.Token = uuid.NewString()
	return s.Update(ctx, *share)
}

// SetSearchText 更新搜索词，防抖后重算过滤视图
func (s *DefaultShareService) SetSearchText(query string) {
	s.mu.Lock()
	s.searchText = query
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// SetFilter 更新过滤条件，防抖后重算过滤视图
func (s *DefaultShareService) SetFilter(filter ShareFilter) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// ClearFilters 清空搜索词和所有过滤条件
func (s *DefaultShareService) ClearFilters() {
	s.mu.Lock()
	s.searchText = ""
	s.filter = ShareFilter{}
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// FlushFilter 立即执行挂起的过滤重算
func (s *DefaultShareService) FlushFilter() {
	s.debouncer.Flush()
}

// ToggleSelect 切换单个分享的选中状态
func (s *DefaultShareService) ToggleSelect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected.toggle(id)
}

// SelectAll 全选切换：过滤视图内已全部选中时清空选择，否则选中过滤视图全部条目
func (s *DefaultShareService) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.filtered))
	for _, share := range s.filtered {
		ids = append(ids, share.ID)
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

// SelectedIDs 当前选中的分享ID
func (s *DefaultShareService) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.ids()
}

// Batch 批量操作：逐实体独立执行，结束后无条件清空选择
func (s *DefaultShareService) Batch(ctx context.Context, op BatchOperation, ids []string) (*BatchResult, error) {
	defer s.clearSelection()

	entities := s.resolve(ids)
	result := &BatchResult{Operation: op, Failed: map[string]string{}}

	if op == BatchExport {
		path, err := s.exporter.Export(FamilyShares, len(entities), entities)
		if err != nil {
			s.notifyError(err)
			return nil, err
		}
		result.ExportPath = path
		for _, share := range entities {
			result.Succeeded = append(result.Succeeded, share.ID)
		}
		return result, nil
	}

	taskCtx, ok := s.tasks.StartTask(ctx, task.TaskTypeBatch, len(entities))
	if !ok {
		return nil, fmt.Errorf("another batch task is already running")
	}

	succeeded, failed := runBatch(taskCtx, s.concurrent, entities,
		func(ctx context.Context, share model.Share) error {
			return s.applyBatchOp(ctx, op, share)
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
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyShares))
	return result, nil
}

// applyBatchOp 单实体等价操作
func (s *DefaultShareService) applyBatchOp(ctx context.Context, op BatchOperation, share model.Share) error {
	switch op {
	case BatchEnable, BatchDisable:
		share.Enabled = op == BatchEnable
		updated, err := s.repo.Update(ctx, share)
		if err != nil {
			return err
		}
		s.replaceEntity(*updated)
		return nil
	case BatchDelete:
		if err := s.repo.Delete(ctx, share.ID); err != nil {
			return err
		}
		s.removeEntity(share.ID)
		return nil
	default:
		return &apperrors.ValidationError{Field: "operation", Reason: string(op) + " is not supported for shares"}
	}
}

func (s *DefaultShareService) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked()
}

// recomputeLocked 过滤管线，阶段顺序固定：类型 → 布尔开关 → 搜索
func (s *DefaultShareService) recomputeLocked() {
	now := time.Now()
	filtered := make([]model.Share, 0, len(s.entities))
	for _, share := range s.entities {
		if len(s.filter.Types) > 0 && !containsShareType(s.filter.Types, share.Type) {
			continue
		}
		if s.filter.EnabledOnly && !share.Enabled {
			continue
		}
		if s.filter.ActiveOnly && share.IsExpired(now) {
			continue
		}
		if !matchSearch(s.searchText, share.Name, share.TargetName) {
			continue
		}
		filtered = append(filtered, share)
	}
	s.filtered = filtered
}

func containsShareType(types []model.ShareType, shareType model.ShareType) bool {
	for _, candidate := range types {
		if candidate == shareType {
			return true
		}
	}
	return false
}

// resolve 从共享集合中按ID取实体快照，未知ID忽略
func (s *DefaultShareService) resolve(ids []string) []model.Share {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := make(map[string]model.Share, len(s.entities))
	for _, share := range s.entities {
		index[share.ID] = share
	}
	out := make([]model.Share, 0, len(ids))
	for _, id := range ids {
		if share, ok := index[id]; ok {
			out = append(out, share)
		}
	}
	return out
}

func (s *DefaultShareService) replaceEntity(share model.Share) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entities {
		if s.entities[i].ID == share.ID {
			s.entities[i] = share
			s.recomputeLocked()
			return
		}
	}
	s.entities = append(s.entities, share)
	s.recomputeLocked()
}

func (s *DefaultShareService) removeEntity(id string) {
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

func (s *DefaultShareService) clearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = selection{}
}

func (s *DefaultShareService) notifyError(err error) {
	s.bus.Publish(eventbus.NewNotificationEvent(eventbus.LevelError, err.Error()))
}
