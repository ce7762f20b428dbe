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

// ArtifactRepository 产物仓库接口
type ArtifactRepository interface {
	GetAll(ctx context.Context) (artifacts []model.Artifact, stale bool, err error)
	GetByID(ctx context.Context, id string) (*model.Artifact, error)
	Create(ctx context.Context, artifact model.Artifact) (*model.Artifact, error)
	Update(ctx context.Context, artifact model.Artifact) (*model.Artifact, error)
	Delete(ctx context.Context, id string) error
	Test(ctx context.Context, artifact model.Artifact) (*model.TestResult, error)
	ValidateContent(ctx context.Context, content string, artifactType model.ArtifactType) (*model.ValidationResult, error)
	FetchFromSync(ctx context.Context, cfg model.SyncConfig) ([]model.Artifact, error)
	PushToSync(ctx context.Context, cfg model.SyncConfig, artifact model.Artifact) error
	ReplaceCache(artifacts []model.Artifact) error
}

// DefaultArtifactRepository 产物仓库默认实现
type DefaultArtifactRepository struct {
	api *client.Client
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewArtifactRepository 创建产物仓库
func NewArtifactRepository(api *client.Client, db *gorm.DB, log *zap.SugaredLogger) ArtifactRepository {
	return &DefaultArtifactRepository{api: api, db: db, log: log}
}

// GetAll 拉取全部产物；成功时整体覆盖缓存，失败时返回缓存内容
func (r *DefaultArtifactRepository) GetAll(ctx context.Context) ([]model.Artifact, bool, error) {
	artifacts, err := r.api.ListArtifacts(ctx)
	if err != nil {
		r.log.Warnw("产物拉取失败，回退到本地缓存", "err", err)
		var cached []model.Artifact
		if dbErr := r.db.Order("name asc").Find(&cached).Error; dbErr != nil {
			return nil, false, &apperrors.StorageError{Op: "read", Err: dbErr}
		}
		return cached, true, nil
	}

	if err := r.ReplaceCache(artifacts); err != nil {
		r.log.Warnw("产物缓存写入失败", "err", err)
	}
	return artifacts, false, nil
}

// GetByID 优先查缓存，未命中时回源并写缓存
func (r *DefaultArtifactRepository) GetByID(ctx context.Context, id string) (*model.Artifact, error) {
	var cached model.Artifact
	err := r.db.First(&cached, "id = ?", id).Error
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.StorageError{Op: "read", Err: err}
	}

	artifact, err := r.api.GetArtifact(ctx, id)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(artifact).Error; dbErr != nil {
		r.log.Warnw("产物缓存写入失败", "id", id, "err", dbErr)
	}
	return artifact, nil
}

// Create 创建产物
func (r *DefaultArtifactRepository) Create(ctx context.Context, artifact model.Artifact) (*model.Artifact, error) {
	created, err := r.api.CreateArtifact(ctx, artifact)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(created).Error; dbErr != nil {
		r.log.Warnw("产物缓存写入失败", "id", created.ID, "err", dbErr)
	}
	return created, nil
}

// Update 更新产物
func (r *DefaultArtifactRepository) Update(ctx context.Context, artifact model.Artifact) (*model.Artifact, error) {
	updated, err := r.api.UpdateArtifact(ctx, artifact)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(updated).Error; dbErr != nil {
		r.log.Warnw("产物缓存写入失败", "id", updated.ID, "err", dbErr)
	}
	return updated, nil
}

// Delete 删除产物
func (r *DefaultArtifactRepository) Delete(ctx context.Context, id string) error {
	if err := r.api.DeleteArtifact(ctx, id); err != nil {
		return err
	}
	if dbErr := r.db.Delete(&model.Artifact{}, "id = ?", id).Error; dbErr != nil {
		r.log.Warnw("产物缓存删除失败", "id", id, "err", dbErr)
	}
	return nil
}

// Test 产物测试完全委托后端执行
func (r *DefaultArtifactRepository) Test(ctx context.Context, artifact model.Artifact) (*model.TestResult, error) {
	return r.api.TestArtifact(ctx, artifact)
}

// ValidateContent 内容校验完全委托后端执行
func (r *DefaultArtifactRepository) ValidateContent(ctx context.Context, content string, artifactType model.ArtifactType) (*model.ValidationResult, error) {
	return r.api.ValidateContent(ctx, content, artifactType)
}

// FetchFromSync 从外部同步目标拉取产物
func (r *DefaultArtifactRepository) FetchFromSync(ctx context.Context, cfg model.SyncConfig) ([]model.Artifact, error) {
	return r.api.FetchArtifactsFromSync(ctx, cfg)
}

// PushToSync 把单个产物推送到外部同步目标
func (r *DefaultArtifactRepository) PushToSync(ctx context.Context, cfg model.SyncConfig, artifact model.Artifact) error {
	return r.api.PushToSync(ctx, "artifacts", cfg, artifact)
}

// ReplaceCache 用给定集合整体替换缓存
func (r *DefaultArtifactRepository) ReplaceCache(artifacts []model.Artifact) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.Artifact{}).Error; err != nil {
			return err
		}
		if len(artifacts) == 0 {
			return nil
		}
		return tx.Create(&artifacts).Error
	})
}
