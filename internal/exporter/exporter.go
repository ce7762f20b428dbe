package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"substore/internal/apperrors"
	"substore/internal/util"
)

// Document 导出文档格式
type Document struct {
	Kind       string          `json:"kind"` // 实体族
	ExportedAt time.Time       `json:"exportedAt"`
	Count      int             `json:"count"`
	Checksum   string          `json:"checksum"` // 实体JSON的MD5
	Entities   json.RawMessage `json:"entities"`
}

// Exporter 把选中的实体序列化为本地JSON文档供外部分享
type Exporter struct {
	dir string
}

// New 创建导出器
func New(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Export 导出实体集合，返回写入的文件路径
func (e *Exporter) Export(family string, count int, entities any) (string, error) {
	payload, err := json.Marshal(entities)
	if err != nil {
		return "", &apperrors.StorageError{Op: "export", Err: err}
	}

	doc := Document{
		Kind:       family,
		ExportedAt: time.Now(),
		Count:      count,
		Checksum:   util.MD5(string(payload)),
		Entities:   payload,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &apperrors.StorageError{Op: "export", Err: err}
	}

	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", &apperrors.StorageError{Op: "export", Err: err}
	}
	name := fmt.Sprintf("%s-%s.json", family, doc.ExportedAt.Format("20060102-150405"))
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &apperrors.StorageError{Op: "export", Err: err}
	}
	return path, nil
}
