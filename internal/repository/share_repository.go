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

// ShareRepository 分享仓库接口，分享不参与外部同步
type ShareRepository interface {
	GetAll(ctx context.Context) (shares []model.Share, stale bool, err error)
	GetByID(ctx context.Context, id string) (*model.Share, error)
	Create(ctx context.Context, share model.Share) (*model.Share, error)
	Update(ctx context.Context, share model.Share) (*model.Share, error)
	Delete(ctx context.Context, id string) error
	ReplaceCache(shares []model.Share) error
}

// DefaultShareRepository 分享仓库默认实现
type DefaultShareRepository struct {
	api *client.Client
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewShareRepository 创建分享仓库
func NewShareRepository(api *client.Client, db *gorm.DB, log *zap.SugaredLogger) ShareRepository {
	return &DefaultShareRepository{api: api, db: db, log: log}
}

// GetAll 拉取全部分享；成功时整体覆盖缓存，失败时返回缓存内容
func (r *DefaultShareRepository) GetAll(ctx context.Context) ([]model.Share, bool, error) {
	shares, err := r.api.ListShares(ctx)
	if err != nil {
		r.log.Warnw("分享拉取失败，回退到本地缓存", "err", err)
		var cached []model.Share
		if dbErr := r.db.Order("created_at desc").Find(&cached).Error; dbErr != nil {
			return nil, false, &apperrors.StorageError{Op: "read", Err: dbErr}
		}
		return cached, true, nil
	}

	if err := r.ReplaceCache(shares); err != nil {
		r.log.Warnw("分享缓存写入失败", "err", err)
	}
	return shares, false, nil
}

// GetByID 优先查缓存，未命中时回源并写缓存
func (r *DefaultShareRepository) GetByID(ctx context.Context, id string) (*model.Share, error) {
	var cached model.Share
	err := r.db.First(&cached, "id = ?", id).Error
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.StorageError{Op: "read", Err: err}
	}

	share, err := r.api.GetShare(ctx, id)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(share).Error; dbErr != nil {
		r.log.Warnw("分享缓存写入失败", "id", id, "err", dbErr)
	}
	return share, nil
}

// Create 创建分享
func (r *DefaultShareRepository) Create(ctx context.Context, share model.Share) (*model.Share, error) {
	created, err := r.api.CreateShare(ctx, share)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(created).Error; dbErr != nil {
		r.log.Warnw("分享缓存写入失败", "id", created.ID, "err", dbErr)
	}
	return created, nil
}

// Update 更新分享
func (r *DefaultShareRepository) Update(ctx context.Context, share model.Share) (*model.Share, error) {
	updated, err := r.api.UpdateShare(ctx, share)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(updated).Error; dbErr != nil {
		r.log.Warnw("分享缓存写入失败", "id", updated.ID, "err", dbErr)
	}
	return updated, nil
}

// Delete 删除分享
func (r *DefaultShareRepository) Delete(ctx context.Context, id string) error {
	if err := r.api.DeleteShare(ctx, id); err != nil {
		return err
	}
	if dbErr := r.db.Delete(&model.Share{}, "id = ?", id).Error; dbErr != nil {
		r.log.Warnw("分享缓存删除失败", "id", id, "err", dbErr)
	}
	return nil
}

// ReplaceCache 用给定集合整体替换缓存
func (r *DefaultShareRepository) ReplaceCache(shares []model.Share) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Share{}).Error; err != nil {
			return err
		}
		if len(shares) == 0 {
			return nil
		}
		return tx.Create(&shares).Error
	})
}
