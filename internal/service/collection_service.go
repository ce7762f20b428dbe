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

// CollectionFilter 组合订阅过滤条件
type CollectionFilter struct {
	Tags        []string `json:"tags,omitempty"`
	EnabledOnly bool     `json:"enabledOnly,omitempty"`
}

// CollectionService 组合订阅集合控制器接口
type CollectionService interface {
	Load(ctx context.Context) error
	Collections() []model.Collection
	Filtered() []model.Collection
	IsStale() bool
	GetByID(ctx context.Context, id string) (*model.Collection, error)
	Create(ctx context.Context, collection model.Collection) (*model.Collection, error)
	Update(ctx context.Context, collection model.Collection) (*model.Collection, error)
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, id, subscriptionName string) (*model.Collection, error)
	RemoveMember(ctx context.Context, id, subscriptionName string) (*model.Collection, error)

	SetSearchText(query string)
	SetFilter(filter CollectionFilter)
	ClearFilters()
	FlushFilter()

	ToggleSelect(id string)
	SelectAll()
	SelectedIDs() []string

	Batch(ctx context.Context, op BatchOperation, ids []string) (*BatchResult, error)
}

// DefaultCollectionService 组合订阅集合控制器默认实现
type DefaultCollectionService struct {
	repo       repository.CollectionRepository
	bus        eventbus.EventBus
	tasks      task.TaskManager
	exporter   *exporter.Exporter
	log        *zap.SugaredLogger
	concurrent int

	mu         sync.Mutex
	entities   []model.Collection
	filtered   []model.Collection
	searchText string
	filter     CollectionFilter
	selected   selection
	stale      bool
	debouncer  *debounce.Debouncer
}

// NewCollectionService 创建组合订阅集合控制器
func NewCollectionService(
	repo repository.CollectionRepository,
	bus eventbus.EventBus,
	tasks task.TaskManager,
	exp *exporter.Exporter,
	debounceWindow time.Duration,
	concurrent int,
	log *zap.SugaredLogger,
) CollectionService {
	return &DefaultCollectionService{
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
func (s *DefaultCollectionService) Load(ctx context.Context) error {
	collections, stale, err := s.repo.GetAll(ctx)
	if err != nil {
		s.notifyError(err)
		return err
	}

	s.mu.Lock()
	s.entities = collections
	s.stale = stale
	s.recomputeLocked()
	s.mu.Unlock()

	if stale {
		s.bus.Publish(eventbus.NewNotificationEvent(eventbus.LevelWarning, "后端不可达，组合订阅列表展示的是本地缓存"))
	}
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyCollections))
	return nil
}

// Collections 当前集合快照
func (s *DefaultCollectionService) Collections() []model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Collection, len(s.entities))
	copy(out, s.entities)
	return out
}

// Filtered 过滤后视图快照
func (s *DefaultCollectionService) Filtered() []model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Collection, len(s.filtered))
	copy(out, s.filtered)
	return out
}

// IsStale 最近一次Load是否回退到了缓存
func (s *DefaultCollectionService) IsStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stale
}

// GetByID 读取单个组合订阅
func (s *DefaultCollectionService) GetByID(ctx context.Context, id string) (*model.Collection, error) {
	return s.repo.GetByID(ctx, id)
}

// Create 创建组合订阅，表单校验失败时不发起任何网络请求
func (s *DefaultCollectionService) Create(ctx context.Context, collection model.Collection) (*model.Collection, error) {
	if err := util.ValidateCollection(collection); err != nil {
		return nil, err
	}
	if collection.ID == "" {
		collection.ID = uuid.NewString()
	}

	created, err := s.repo.Create(ctx, collection)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}

	s.mu.Lock()
	s.entities = append(s.entities, *created)
	s.recomputeLocked()
	s.mu.Unlock()

	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyCollections))
	return created, nil
}

// Update 更新组合订阅
func (s *DefaultCollectionService) Update(ctx context.Context, collection model.Collection) (*model.Collection, error) {
	if err := util.ValidateCollection(collection); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, collection)
	if err != nil {
		s.notifyError(err)
		return nil, err
	}

	s.replaceEntity(*updated)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyCollections))
	return updated, nil
}

// Delete 删除组合订阅
func (s *DefaultCollectionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.notifyError(err)
		return err
	}

	s.removeEntity(id)
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyCollections))
	return nil
}

// AddMember 向组合订阅添加成员订阅，重复添加是幂等的
func (s *DefaultCollectionService) AddMember(ctx context.Context, id, subscriptionName string) (*model.Collection, error) {
	collection, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, member := range collection.Subscriptions {
		if member == subscriptionName {
			return collection, nil
		}
	}
	collection.Subscriptions = append(collection.Subscriptions, subscriptionName)
	return s.Update(ctx, *collection)
}

// RemoveMember 从组合订阅移除成员订阅，成员不存在时不报错
func (s *DefaultCollectionService) RemoveMember(ctx context.Context, id, subscriptionName string) (*model.Collection, error) {
	collection, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	members := collection.Subscriptions[:0]
	for _, member := range collection.Subscriptions {
		if member != subscriptionName {
			members = append(members, member)
		}
	}
	collection.Subscriptions = members
	return s.Update(ctx, *collection)
}

// SetSearchText 更新搜索词，防抖后重算过滤视图
func (s *DefaultCollectionService) SetSearchText(query string) {
	s.mu.Lock()
	s.searchText = query
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// SetFilter 更新过滤条件，防抖后重算过滤视图
func (s *DefaultCollectionService) SetFilter(filter CollectionFilter) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// ClearFilters 清空搜索词和所有过滤条件
func (s *DefaultCollectionService) ClearFilters() {
	s.mu.Lock()
	s.searchText = ""
	s.filter = CollectionFilter{}
	s.mu.Unlock()
	s.debouncer.Trigger(s.recompute)
}

// FlushFilter 立即执行挂起的过滤重算
func (s *DefaultCollectionService) FlushFilter() {
	s.debouncer.Flush()
}

// ToggleSelect 切换单个组合订阅的选中状态
func (s *DefaultCollectionService) ToggleSelect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected.toggle(id)
}

// SelectAll 全选切换：过滤视图内已全部选中时清空选择，否则选中过滤视图全部条目
func (s *DefaultCollectionService) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.filtered))
	for _, collection := range s.filtered {
		ids = append(ids, collection.ID)
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

// SelectedIDs 当前选中的组合订阅ID
func (s *DefaultCollectionService) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected.ids()
}

// Batch 批量操作：逐实体独立执行，结束后无条件清空选择
func (s *DefaultCollectionService) Batch(ctx context.Context, op BatchOperation, ids []string) (*BatchResult, error) {
	defer s.clearSelection()

	entities := s.resolve(ids)
	result := &BatchResult{Operation: op, Failed: map[string]string{}}

	if op == BatchExport {
		path, err := s.exporter.Export(FamilyCollections, len(entities), entities)
		if err != nil {
			s.notifyError(err)
			return nil, err
		}
		result.ExportPath = path
		for _, collection := range entities {
			result.Succeeded = append(result.Succeeded, collection.ID)
		}
		return result, nil
	}

	taskCtx, ok := s.tasks.StartTask(ctx, task.TaskTypeBatch, len(entities))
	if !ok {
		return nil, fmt.Errorf("another batch task is already running")
	}

	succeeded, failed := runBatch(taskCtx, s.concurrent, entities,
		func(ctx context.Context, collection model.Collection) error {
			return s.applyBatchOp(ctx, op, collection)
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
	s.bus.Publish(eventbus.NewCollectionChangedEvent(FamilyCollections))
	return result, nil
}

// applyBatchOp 单实体等价操作
func (s *DefaultCollectionService) applyBatchOp(ctx context.Context, op BatchOperation, collection model.Collection) error {
	switch op {
	case BatchEnable, BatchDisable:
		collection.Enabled = op == BatchEnable
		updated, err := s.repo.Update(ctx, collection)
		if err != nil {
			return err
		}
		s.replaceEntity(*updated)
		return nil
	case BatchDelete:
		if err := s.repo.Delete(ctx, collection.ID); err != nil {
			return err
		}
		s.removeEntity(collection.ID)
		return nil
	default:
		return &apperrors.ValidationError{Field: "operation", Reason: string(op) + " is not supported for collections"}
	}
}

func (s *DefaultCollectionService) recompute() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked()
}

// recomputeLocked 过滤管线，阶段顺序固定：标签 → 布尔开关 → 搜索
func (s *DefaultCollectionService) recomputeLocked() {
	filtered := make([]model.Collection, 0, len(s.entities))
	for _, collection := range s.entities {
		if !matchTags(collection.Tags, s.filter.Tags) {
			continue
		}
		if s.filter.EnabledOnly && !collection.Enabled {
			continue
		}
		if !matchSearch(s.searchText, collection.Name, collection.DisplayName, joinTags(collection.Tags)) {
			continue
		}
		filtered = append(filtered, collection)
	}
	s.filtered = filtered
}

// resolve 从共享集合中按ID取实体快照，未知ID忽略
func (s *DefaultCollectionService) resolve(ids []string) []model.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	index := make(map[string]model.Collection, len(s.entities))
	for _, collection := range s.entities {
		index[collection.ID] = collection
	}
	out := make([]model.Collection, 0, len(ids))
	for _, id := range ids {
		if collection, ok := index[id]; ok {
			out = append(out, collection)
		}
	}
	return out
}

func (s *DefaultCollectionService) replaceEntity(collection model.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.entities {
		if s.entities[i].ID == collection.ID {
			s.entities[i] = collection
			s.recomputeLocked()
			return
		}
	}
	s.entities = append(s.entities, collection)
	s.recomputeLocked()
}

func (s *DefaultCollectionService) removeEntity(id string) {
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

func (s *DefaultCollectionService) clearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = selection{}
}

func (s *DefaultCollectionService) notifyError(err error) {
	s.bus.Publish(eventbus.NewNotificationEvent(eventbus.LevelError, err.Error()))
}
