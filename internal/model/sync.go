package model

import (
	"time"
)

// SyncProvider 外部同步提供方
type SyncProvider string

const (
	SyncProviderGist    SyncProvider = "gist"    // gist类存储
	SyncProviderSnippet SyncProvider = "snippet" // snippet类存储
)

// SyncConfig 外部同步配置
type SyncConfig struct {
	ID         string       `json:"id"`
	Provider   SyncProvider `json:"provider"`
	Token      string       `json:"token"`
	RepoURL    string       `json:"repoUrl,omitempty"`
	Enabled    bool         `json:"enabled"`
	LastSyncAt *time.Time   `json:"lastSyncAt,omitempty"`
	Interval   int64        `json:"interval"` // 同步间隔，秒
}

// IsDue 是否到达同步时间
func (c SyncConfig) IsDue(now time.Time) bool {
	if !c.Enabled {
		return false
	}
	if c.LastSyncAt == nil {
		return true
	}
	return now.Sub(*c.LastSyncAt) >= time.Duration(c.Interval)*time.Second
}

// ConflictType 同步冲突类型
type ConflictType string

const (
	ConflictTypeContent  ConflictType = "content-difference"
	ConflictTypeDeletion ConflictType = "deletion-conflict"
	ConflictTypeCreation ConflictType = "creation-conflict"
)

// SyncConflict 单条同步冲突记录
type SyncConflict struct {
	EntityID        string       `json:"entityId"`
	Type            ConflictType `json:"type"`
	LocalUpdatedAt  time.Time    `json:"localUpdatedAt"`
	RemoteUpdatedAt time.Time    `json:"remoteUpdatedAt"`
}

// SyncResult 一轮同步的结果
type SyncResult struct {
	Success   bool           `json:"success"`
	SyncedIDs []string       `json:"syncedIds"`
	Conflicts []SyncConflict `json:"conflicts,omitempty"`
	Message   string         `json:"message,omitempty"`
	SyncedAt  time.Time      `json:"syncedAt"`
}

// Syncable 可参与外部同步合并的实体
type Syncable interface {
	GetID() string
	GetUpdatedAt() time.Time
}
