package model

import (
	"time"
)

// Collection 组合订阅，由多个订阅聚合而成
type Collection struct {
	ID            string    `json:"id" gorm:"primaryKey"`
	Name          string    `json:"name" gorm:"uniqueIndex:idx_collections_name"`
	DisplayName   string    `json:"displayName,omitempty"`
	Subscriptions []string  `json:"subscriptions" gorm:"serializer:json"` // 成员订阅名称列表
	Tags          []string  `json:"tags" gorm:"serializer:json"`
	Enabled       bool      `json:"enabled"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (c Collection) GetID() string           { return c.ID }
func (c Collection) GetUpdatedAt() time.Time { return c.UpdatedAt }
