package client

import (
	"context"
	"net/http"
)

// GetSettings 拉取后端设置
func (c *Client) GetSettings(ctx context.Context) (map[string]any, error) {
	var settings map[string]any
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// UpdateSettings 更新后端设置
func (c *Client) UpdateSettings(ctx context.Context, settings map[string]any) error {
	return c.do(ctx, http.MethodPatch, "/api/settings", settings, nil)
}
