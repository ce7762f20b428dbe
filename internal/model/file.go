package model

import (
	"time"
)

// FileType 文件类型
type FileType string

const (
	FileTypeGeneral       FileType = "general"
	FileTypeJSON          FileType = "json"
	FileTypeYAML          FileType = "yaml"
	FileTypeJavaScript    FileType = "javascript"
	FileTypeMihomoProfile FileType = "mihomo-profile"
	FileTypeText          FileType = "text"
)

// File 文件
type File struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"uniqueIndex:idx_files_name"`
	Type      FileType  `json:"type"`
	Content   string    `json:"content"`
	Language  string    `json:"language,omitempty"` // 编辑器高亮提示
	Tags      []string  `json:"tags" gorm:"serializer:json"`
	ReadOnly  bool      `json:"readOnly"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (f File) GetID() string           { return f.ID }
func (f File) GetUpdatedAt() time.Time { return f.UpdatedAt }

// Size 内容字节数
func (f File) Size() int64 {
	return int64(len(f.Content))
}
