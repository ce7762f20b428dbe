package client

import (
	"context"
	"net/http"

	"substore/internal/model"
)

// FetchSubscriptionsFromSync 通过后端从外部同步目标拉取订阅
func (c *Client) FetchSubscriptionsFromSync(ctx context.Context, cfg model.SyncConfig) ([]model.Subscription, error) {
	var subs []model.Subscription
	if err := c.do(ctx, http.MethodPost, "/api/sync/subs", cfg, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// FetchArtifactsFromSync 通过后端从外部同步目标拉取产物
func (c *Client) FetchArtifactsFromSync(ctx context.Context, cfg model.SyncConfig) ([]model.Artifact, error) {
	var artifacts []model.Artifact
	if err := c.do(ctx, http.MethodPost, "/api/sync/artifacts", cfg, &artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// FetchFilesFromSync 通过后端从外部同步目标拉取文件
func (c *Client) FetchFilesFromSync(ctx context.Context, cfg model.SyncConfig) ([]model.File, error) {
	var files []model.File
	if err := c.do(ctx, http.MethodPost, "/api/sync/files", cfg, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// PushToSync 通过后端把实体内容推送到外部同步目标
func (c *Client) PushToSync(ctx context.Context, family string, cfg model.SyncConfig, payload any) error {
	body := map[string]any{
		"config":  cfg,
		"payload": payload,
	}
	return c.do(ctx, http.MethodPost, "/api/sync/"+family+"/push", body, nil)
}
