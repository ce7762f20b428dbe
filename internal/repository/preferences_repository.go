package repository

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	"substore/internal/apperrors"
	"substore/internal/model"
)

// Preference 设备本地偏好项，值为JSON文档
type Preference struct {
	Key       string    `json:"key" gorm:"primaryKey"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Preference) TableName() string {
	return "preferences"
}

// 同步配置列表在偏好存储中的键前缀
const syncConfigKeyPrefix = "sync_configs."

// PreferencesRepository 偏好存储接口，按字符串键存取结构化文档
type PreferencesRepository interface {
	Get(key string, out any) error
	Set(key string, value any) error
	Delete(key string) error
	SyncConfigs(family string) ([]model.SyncConfig, error)
	SaveSyncConfigs(family string, configs []model.SyncConfig) error
}

// DefaultPreferencesRepository 基于GORM的偏好存储实现
type DefaultPreferencesRepository struct {
	db *gorm.DB
}

// NewPreferencesRepository 创建偏好存储
func NewPreferencesRepository(db *gorm.DB) PreferencesRepository {
	return &DefaultPreferencesRepository{db: db}
}

// Get 读取偏好项并反序列化到out
func (r *DefaultPreferencesRepository) Get(key string, out any) error {
	var pref Preference
	if err := r.db.First(&pref, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return &apperrors.StorageError{Op: "read", Err: err}
	}
	if err := json.Unmarshal([]byte(pref.Value), out); err != nil {
		return &apperrors.ParseError{Resource: "preference " + key, Err: err}
	}
	return nil
}

// Set 序列化value并写入偏好项
func (r *DefaultPreferencesRepository) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return &apperrors.StorageError{Op: "write", Err: err}
	}
	pref := Preference{Key: key, Value: string(data), UpdatedAt: time.Now()}
	if err := r.db.Save(&pref).Error; err != nil {
		return &apperrors.StorageError{Op: "write", Err: err}
	}
	return nil
}

// Delete 删除偏好项
func (r *DefaultPreferencesRepository) Delete(key string) error {
	if err := r.db.Delete(&Preference{}, "key = ?", key).Error; err != nil {
		return &apperrors.StorageError{Op: "delete", Err: err}
	}
	return nil
}

// SyncConfigs 读取某个实体族的同步配置列表，未配置时返回空列表
func (r *DefaultPreferencesRepository) SyncConfigs(family string) ([]model.SyncConfig, error) {
	var configs []model.SyncConfig
	err := r.Get(syncConfigKeyPrefix+family, &configs)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return configs, nil
}

// SaveSyncConfigs 保存某个实体族的同步配置列表
func (r *DefaultPreferencesRepository) SaveSyncConfigs(family string, configs []model.SyncConfig) error {
	return r.Set(syncConfigKeyPrefix+family, configs)
}
