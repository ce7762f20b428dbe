package client

import (
	"context"
	"net/http"

	"substore/internal/model"
)

// ListSubscriptions 拉取全部订阅
func (c *Client) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := c.do(ctx, http.MethodGet, "/api/subs", nil, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// GetSubscription 拉取单个订阅
func (c *Client) GetSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	var sub model.Subscription
	if err := c.do(ctx, http.MethodGet, "/api/subs/"+id, nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CreateSubscription 创建订阅，返回后端的规范版本
func (c *Client) CreateSubscription(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	var created model.Subscription
	if err := c.do(ctx, http.MethodPost, "/api/subs", sub, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateSubscription 更新订阅，返回后端的规范版本
func (c *Client) UpdateSubscription(ctx context.Context, sub model.Subscription) (*model.Subscription, error) {
	var updated model.Subscription
	if err := c.do(ctx, http.MethodPatch, "/api/subs/"+sub.ID, sub, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteSubscription 删除订阅
func (c *Client) DeleteSubscription(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/subs/"+id, nil, nil)
}

// GetSubscriptionFlow 拉取订阅的流量快照
func (c *Client) GetSubscriptionFlow(ctx context.Context, id string) (*model.FlowInfo, error) {
	var flow model.FlowInfo
	if err := c.do(ctx, http.MethodGet, "/api/subs/"+id+"/flow", nil, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

// DownloadSubscription 通过后端下载订阅产出的配置内容
func (c *Client) DownloadSubscription(ctx context.Context, name string) (string, error) {
	var content string
	if err := c.do(ctx, http.MethodGet, "/api/download/"+name, nil, &content); err != nil {
		return "", err
	}
	return content, nil
}
