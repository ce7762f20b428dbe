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

// SubscriptionRepository 订阅仓库接口
//
// GetAll的读路径在网络失败时回退到本地缓存，stale为true表示返回的是
// 可能过期的缓存数据而不是远端结果。写路径的失败原样向上传播。
type SubscriptionRepository interface {
	GetAll(ctx context.Context) (subs []model.Subscription, stale bool, err error)
	GetByID(ctx context.Context, id string) (*model.Subscription, error)
	Create(ctx context.Context, sub model.Subscription) (*model.Subscription, error)
	Update(ctx context.Context, sub model.Subscription) (*model.Subscription, error)
	Delete(ctx context.Context, id string) error
	GetFlow(ctx context.Context, id string) (*model.FlowInfo, error)
	Download(ctx context.Context, name string) (string, error)
	FetchFromSync(ctx context.Context, cfg model.SyncConfig) ([]model.Subscription, error)
	PushToSync(ctx context.Context, cfg model.SyncConfig, sub model.Subscription) error
	ReplaceCache(subs []model.Subscription) error
}

// DefaultSubscriptionRepository 订阅仓库默认实现，远端优先、缓存兜底
type DefaultSubscriptionRepository struct {
	api *client.Client
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewSubscriptionRepository 创建订阅仓库
func NewSubscriptionRepository(api *client.Client, db *gorm.DB, log *zap.SugaredLogger) SubscriptionRepository {
	return &DefaultSubscriptionRepository{api: api, db: db, log: log}
}

// GetAll 拉取全部订阅；成功时整体覆盖缓存，失败时返回缓存内容
func (r *DefaultSubscriptionRepository) GetAll(ctx context.Context) ([]model.Subscription, bool, error) {
	subs, err := r.api.ListSubscriptions(ctx)
	if err != nil {
		r.log.Warnw("订阅拉取失败，回退到本地缓存", "err", err)
		var cached []model.Subscription
		if dbErr := r.db.Order("priority asc, name asc").Find(&cached).Error; dbErr != nil {
			return nil, false, &apperrors.StorageError{Op: "read", Err: dbErr}
		}
		return cached, true, nil
	}

	if err := r.ReplaceCache(subs); err != nil {
		r.log.Warnw("订阅缓存写入失败", "err", err)
	}
	return subs, false, nil
}

// GetByID 优先查缓存，未命中时回源并写缓存
func (r *DefaultSubscriptionRepository) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	var cached model.Subscription
	err := r.db.First(&cached, "id = ?", id).Error
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.StorageError{Op: "read", Err: err}
	}

	sub, err := r.api.GetSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(sub).Error; dbErr != nil {
		r.log.Warnw("订阅缓存写入失败", "id", id, "err", dbErr)
	}
	return sub, nil
}

// Create 创建订阅，缓存并返回后端的规范版本
func (r *DefaultSubscriptionRepository) Create(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	created, err := r.api.CreateSubscription(ctx, sub)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(created).Error; dbErr != nil {
		r.log.Warnw("订阅缓存写入失败", "id", created.ID, "err", dbErr)
	}
	return created, nil
}

// Update 更新订阅，缓存并返回后端的规范版本
func (r *DefaultSubscriptionRepository) Update(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	updated, err := r.api.UpdateSubscription(ctx, sub)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(updated).Error; dbErr != nil {
		r.log.Warnw("订阅缓存写入失败", "id", updated.ID, "err", dbErr)
	}
	return updated, nil
}

// Delete 删除订阅，成功后清除缓存
func (r *DefaultSubscriptionRepository) Delete(ctx context.Context, id string) error {
	if err := r.api.DeleteSubscription(ctx, id); err != nil {
		return err
	}
	if dbErr := r.db.Delete(&model.Subscription{}, "id = ?", id).Error; dbErr != nil {
		r.log.Warnw("订阅缓存删除失败", "id", id, "err", dbErr)
	}
	return nil
}

// GetFlow 拉取订阅流量快照
func (r *DefaultSubscriptionRepository) GetFlow(ctx context.Context, id string) (*model.FlowInfo, error) {
	return r.api.GetSubscriptionFlow(ctx, id)
}

// Download 下载订阅产出的配置内容
func (r *DefaultSubscriptionRepository) Download(ctx context.Context, name string) (string, error) {
	return r.api.DownloadSubscription(ctx, name)
}

// FetchFromSync 从外部同步目标拉取订阅
func (r *DefaultSubscriptionRepository) FetchFromSync(ctx context.Context, cfg model.SyncConfig) ([]model.Subscription, error) {
	return r.api.FetchSubscriptionsFromSync(ctx, cfg)
}

// PushToSync 把单个订阅推送到外部同步目标
func (r *DefaultSubscriptionRepository) PushToSync(ctx context.Context, cfg model.SyncConfig, sub model.Subscription) error {
	return r.api.PushToSync(ctx, "subs", cfg, sub)
}

// ReplaceCache 用给定集合整体替换缓存
func (r *DefaultSubscriptionRepository) ReplaceCache(subs []model.Subscription) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Subscription{}).Error; err != nil {
			return err
		}
		if len(subs) == 0 {
			return nil
		}
		return tx.Create(&subs).Error
	})
}
