package client

import (
	"context"
	"net/http"

	"substore/internal/model"
)

// ListShares 拉取全部分享
func (c *Client) ListShares(ctx context.Context) ([]model.Share, error) {
	var shares []model.Share
	if err := c.do(ctx, http.MethodGet, "/api/share", nil, &shares); err != nil {
		return nil, err
	}
	return shares, nil
}

// GetShare 拉取单个分享
func (c *Client) GetShare(ctx context.Context, id string) (*model.Share, error) {
	var share model.Share
	if err := c.do(ctx, http.MethodGet, "/api/share/"+id, nil, &share); err != nil {
		return nil, err
	}
	return &share, nil
}

// CreateShare 创建分享，访问令牌由后端签发
func (c *Client) CreateShare(ctx context.Context, share model.Share) (*model.Share, error) {
	var created model.Share
	if err := c.do(ctx, http.MethodPost, "/api/share", share, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateShare 更新分享
func (c *Client) UpdateShare(ctx context.Context, share model.Share) (*model.Share, error) {
	var updated model.Share
	if err := c.do(ctx, http.MethodPatch, "/api/share/"+share.ID, share, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteShare 删除分享
func (c *Client) DeleteShare(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/share/"+id, nil, nil)
}
