package repository

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"substore/internal/apperrors"
	"substore/internal/client"
	"substore/internal/model"
)

// CollectionRepository 组合订阅仓库接口
type CollectionRepository interface {
	GetAll(ctx context.Context) (collections []model.Collection, stale bool, err error)
	GetByID(ctx context.Context, id string) (*model.Collection, error)
	Create(ctx context.Context, collection model.Collection) (*model.Collection, error)
	Update(ctx context.Context, collection model.Collection) (*model.Collection, error)
	Delete(ctx context.Context, id string) error
	ReplaceCache(collections []model.Collection) error
}

// DefaultCollectionRepository 组合订阅仓库默认实现
type DefaultCollectionRepository struct {
	api *client.Client
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewCollectionRepository 创建组合订阅仓库
func NewCollectionRepository(api *client.Client, db *gorm.DB, log *zap.SugaredLogger) CollectionRepository {
	return &DefaultCollectionRepository{api: api, db: db, log: log}
}

// GetAll 拉取全部组合订阅；成功时整体覆盖缓存，失败时返回缓存内容
func (r *DefaultCollectionRepository) GetAll(ctx context.Context) ([]model.Collection, bool, error) {
	collections, err := r.api.ListCollections(ctx)
	if err != nil {
		r.log.Warnw("组合订阅拉取失败，回退到本地缓存", "err", err)
		var cached []model.Collection
		if dbErr := r.db.Order("name asc").Find(&cached).Error; dbErr != nil {
			return nil, false, &apperrors.StorageError{Op: "read", Err: dbErr}
		}
		return cached, true, nil
	}

	if err := r.ReplaceCache(collections); err != nil {
		r.log.Warnw("组合订阅缓存写入失败", "err", err)
	}
	return collections, false, nil
}

// GetByID 优先查缓存，未命中时回源并写缓存
func (r *DefaultCollectionRepository) GetByID(ctx context.Context, id string) (*model.Collection, error) {
	var cached model.Collection
	err := r.db.First(&cached, "id = ?", id).Error
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.StorageError{Op: "read", Err: err}
	}

	collection, err := r.api.GetCollection(ctx, id)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(collection).Error; dbErr != nil {
		r.log.Warnw("组合订阅缓存写入失败", "id", id, "err", dbErr)
	}
	return collection, nil
}

// Create 创建组合订阅
func (r *DefaultCollectionRepository) Create(ctx context.Context, collection model.Collection) (*model.Collection, error) {
	created, err := r.api.CreateCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(created).Error; dbErr != nil {
		r.log.Warnw("组合订阅缓存写入失败", "id", created.ID, "err", dbErr)
	}
	return created, nil
}

// Update 更新组合订阅
func (r *DefaultCollectionRepository) Update(ctx context.Context, collection model.Collection) (*model.Collection, error) {
	updated, err := r.api.UpdateCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(updated).Error; dbErr != nil {
		r.log.Warnw("组合订阅缓存写入失败", "id", updated.ID, "err", dbErr)
	}
	return updated, nil
}

// Delete 删除组合订阅
func (r *DefaultCollectionRepository) Delete(ctx context.Context, id string) error {
	if err := r.api.DeleteCollection(ctx, id); err != nil {
		return err
	}
	if dbErr := r.db.Delete(&model.Collection{}, "id = ?", id).Error; dbErr != nil {
		r.log.Warnw("组合订阅缓存删除失败", "id", id, "err", dbErr)
	}
	return nil
}

// ReplaceCache 用给定集合整体替换缓存
func (r *DefaultCollectionRepository) ReplaceCache(collections []model.Collection) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Collection{}).Error; err != nil {
			return err
		}
		if len(collections) == 0 {
			return nil
		}
		return tx.Create(&collections).Error
	})
}
