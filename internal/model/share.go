package model

import (
	"time"
)

// ShareType 分享目标类型
type ShareType string

const (
	ShareTypeSubscription ShareType = "subscription"
	ShareTypeCollection   ShareType = "collection"
	ShareTypeArtifact     ShareType = "artifact"
	ShareTypeFile         ShareType = "file"
)

// Share 分享链接，带访问令牌，可设置过期时间
type Share struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	Name        string     `json:"name"`
	Token       string     `json:"token" gorm:"uniqueIndex:idx_shares_token"` // 不透明访问令牌
	Type        ShareType  `json:"type"`
	TargetID    string     `json:"targetId"`
	TargetName  string     `json:"targetName,omitempty"` // 目标名称快照，避免列表页逐条回查
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Enabled     bool       `json:"enabled"`
	AccessCount int64      `json:"accessCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (s Share) GetID() string           { return s.ID }
func (s Share) GetUpdatedAt() time.Time { return s.UpdatedAt }

// IsExpired 分享是否已过期
func (s Share) IsExpired(now time.Time) bool {
	return s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}
