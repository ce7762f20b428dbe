package model

import (
	"time"
)

// ArtifactType 产物类型
type ArtifactType string

const (
	ArtifactTypeRewrite ArtifactType = "rewrite"  // 重写脚本
	ArtifactTypeRuleSet ArtifactType = "rule-set" // 规则集
	ArtifactTypeModule  ArtifactType = "module"   // 模块
	ArtifactTypeScript  ArtifactType = "script"   // 脚本
)

// Artifact 产物，可测试、校验并同步到外部存储的规则/配置载荷
type Artifact struct {
	ID         string       `json:"id" gorm:"primaryKey"`
	Name       string       `json:"name" gorm:"uniqueIndex:idx_artifacts_name"`
	Type       ArtifactType `json:"type"`
	Content    string       `json:"content"`
	Platform   string       `json:"platform,omitempty"` // 目标平台，如 surge/loon/stash
	Source     string       `json:"source,omitempty"`   // 生成来源
	Tags       []string     `json:"tags" gorm:"serializer:json"`
	Enabled    bool         `json:"enabled"`
	SyncURL    string       `json:"syncUrl,omitempty"` // 外部同步地址
	LastSyncAt *time.Time   `json:"lastSyncAt,omitempty"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

func (a Artifact) GetID() string           { return a.ID }
func (a Artifact) GetUpdatedAt() time.Time { return a.UpdatedAt }

// TestResult 产物测试结果，由后端返回
type TestResult struct {
	Success   bool      `json:"success"`
	Output    string    `json:"output,omitempty"`
	Error     string    `json:"error,omitempty"`
	LatencyMs int64     `json:"latencyMs"`
	TestedAt  time.Time `json:"testedAt"`
}

// ValidationResult 内容校验结果，由后端返回
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems,omitempty"`
}
