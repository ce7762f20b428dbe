package client

import (
	"context"
	"net/http"

	"substore/internal/model"
)

// ListCollections 拉取全部组合订阅
func (c *Client) ListCollections(ctx context.Context) ([]model.Collection, error) {
	var collections []model.Collection
	if err := c.do(ctx, http.MethodGet, "/api/collections", nil, &collections); err != nil {
		return nil, err
	}
	return collections, nil
}

// GetCollection 拉取单个组合订阅
func (c *Client) GetCollection(ctx context.Context, id string) (*model.Collection, error) {
	var collection model.Collection
	if err := c.do(ctx, http.MethodGet, "/api/collections/"+id, nil, &collection); err != nil {
		return nil, err
	}
	return &collection, nil
}

// CreateCollection 创建组合订阅
func (c *Client) CreateCollection(ctx context.Context, collection model.Collection) (*model.Collection, error) {
	var created model.Collection
	if err := c.do(ctx, http.MethodPost, "/api/collections", collection, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateCollection 更新组合订阅
func (c *Client) UpdateCollection(ctx context.Context, collection model.Collection) (*model.Collection, error) {
	var updated model.Collection
	if err := c.do(ctx, http.MethodPatch, "/api/collections/"+collection.ID, collection, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteCollection 删除组合订阅
func (c *Client) DeleteCollection(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/collections/"+id, nil, nil)
}
