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

// FileRepository 文件仓库接口
type FileRepository interface {
	GetAll(ctx context.Context) (files []model.File, stale bool, err error)
	GetByID(ctx context.Context, id string) (*model.File, error)
	Create(ctx context.Context, file model.File) (*model.File, error)
	Update(ctx context.Context, file model.File) (*model.File, error)
	Delete(ctx context.Context, id string) error
	FetchFromSync(ctx context.Context, cfg model.SyncConfig) ([]model.File, error)
	PushToSync(ctx context.Context, cfg model.SyncConfig, file model.File) error
	ReplaceCache(files []model.File) error
}

// DefaultFileRepository 文件仓库默认实现
type DefaultFileRepository struct {
	api *client.Client
	db  *gorm.DB
	log *zap.SugaredLogger
}

// NewFileRepository 创建文件仓库
func NewFileRepository(api *client.Client, db *gorm.DB, log *zap.SugaredLogger) FileRepository {
	return &DefaultFileRepository{api: api, db: db, log: log}
}

// GetAll 拉取全部文件；成功时整体覆盖缓存，失败时返回缓存内容
func (r *DefaultFileRepository) GetAll(ctx context.Context) ([]model.File, bool, error) {
	files, err := r.api.ListFiles(ctx)
	if err != nil {
		r.log.Warnw("文件拉取失败，回退到本地缓存", "err", err)
		var cached []model.File
		if dbErr := r.db.Order("name asc").Find(&cached).Error; dbErr != nil {
			return nil, false, &apperrors.StorageError{Op: "read", Err: dbErr}
		}
		return cached, true, nil
	}

	if err := r.ReplaceCache(files); err != nil {
		r.log.Warnw("文件缓存写入失败", "err", err)
	}
	return files, false, nil
}

// GetByID 优先查缓存，未命中时回源并写缓存
func (r *DefaultFileRepository) GetByID(ctx context.Context, id string) (*model.File, error) {
	var cached model.File
	err := r.db.First(&cached, "id = ?", id).Error
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &apperrors.StorageError{Op: "read", Err: err}
	}

	file, err := r.api.GetFile(ctx, id)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(file).Error; dbErr != nil {
		r.log.Warnw("文件缓存写入失败", "id", id, "err", dbErr)
	}
	return file, nil
}

// Create 创建文件
func (r *DefaultFileRepository) Create(ctx context.Context, file model.File) (*model.File, error) {
	created, err := r.api.CreateFile(ctx, file)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(created).Error; dbErr != nil {
		r.log.Warnw("文件缓存写入失败", "id", created.ID, "err", dbErr)
	}
	return created, nil
}

// Update 更新文件
func (r *DefaultFileRepository) Update(ctx context.Context, file model.File) (*model.File, error) {
	updated, err := r.api.UpdateFile(ctx, file)
	if err != nil {
		return nil, err
	}
	if dbErr := r.db.Save(updated).Error; dbErr != nil {
		r.log.Warnw("文件缓存写入失败", "id", updated.ID, "err", dbErr)
	}
	return updated, nil
}

// Delete 删除文件
func (r *DefaultFileRepository) Delete(ctx context.Context, id string) error {
	if err := r.api.DeleteFile(ctx, id); err != nil {
		return err
	}
	if dbErr := r.db.Delete(&model.File{}, "id = ?", id).Error; dbErr != nil {
		r.log.Warnw("文件缓存删除失败", "id", id, "err", dbErr)
	}
	return nil
}

// FetchFromSync 从外部同步目标拉取文件
func (r *DefaultFileRepository) FetchFromSync(ctx context.Context, cfg model.SyncConfig) ([]model.File, error) {
	return r.api.FetchFilesFromSync(ctx, cfg)
}

// PushToSync 把单个文件推送到外部同步目标
func (r *DefaultFileRepository) PushToSync(ctx context.Context, cfg model.SyncConfig, file model.File) error {
	return r.api.PushToSync(ctx, "files", cfg, file)
}

// ReplaceCache 用给定集合整体替换缓存
func (r *DefaultFileRepository) ReplaceCache(files []model.File) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.File{}).Error; err != nil {
			return err
		}
		if len(files) == 0 {
			return nil
		}
		return tx.Create(&files).Error
	})
}
