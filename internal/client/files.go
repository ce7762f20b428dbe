package client

import (
	"context"
	"net/http"

	"substore/internal/model"
)

// ListFiles 拉取全部文件
func (c *Client) ListFiles(ctx context.Context) ([]model.File, error) {
	var files []model.File
	if err := c.do(ctx, http.MethodGet, "/api/files", nil, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// GetFile 拉取单个文件
func (c *Client) GetFile(ctx context.Context, id string) (*model.File, error) {
	var file model.File
	if err := c.do(ctx, http.MethodGet, "/api/files/"+id, nil, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

// CreateFile 创建文件
func (c *Client) CreateFile(ctx context.Context, file model.File) (*model.File, error) {
	var created model.File
	if err := c.do(ctx, http.MethodPost, "/api/files", file, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateFile 更新文件
func (c *Client) UpdateFile(ctx context.Context, file model.File) (*model.File, error) {
	var updated model.File
	if err := c.do(ctx, http.MethodPatch, "/api/files/"+file.ID, file, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteFile 删除文件
func (c *Client) DeleteFile(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/files/"+id, nil, nil)
}
