package client

import (
	"context"
	"net/http"

	"substore/internal/model"
)

// ListArtifacts 拉取全部产物
func (c *Client) ListArtifacts(ctx context.Context) ([]model.Artifact, error) {
	var artifacts []model.Artifact
	if err := c.do(ctx, http.MethodGet, "/api/artifacts", nil, &artifacts); err != nil {
		return nil, err
	}
	return artifacts, nil
}

// GetArtifact 拉取单个产物
func (c *Client) GetArtifact(ctx context.Context, id string) (*model.Artifact, error) {
	var artifact model.Artifact
	if err := c.do(ctx, http.MethodGet, "/api/artifacts/"+id, nil, &artifact); err != nil {
		return nil, err
	}
	return &artifact, nil
}

// CreateArtifact 创建产物
func (c *Client) CreateArtifact(ctx context.Context, artifact model.Artifact) (*model.Artifact, error) {
	var created model.Artifact
	if err := c.do(ctx, http.MethodPost, "/api/artifacts", artifact, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateArtifact 更新产物
func (c *Client) UpdateArtifact(ctx context.Context, artifact model.Artifact) (*model.Artifact, error) {
	var updated model.Artifact
	if err := c.do(ctx, http.MethodPatch, "/api/artifacts/"+artifact.ID, artifact, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteArtifact 删除产物
func (c *Client) DeleteArtifact(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/artifacts/"+id, nil, nil)
}

// TestArtifact 由后端执行产物测试，本地不做任何业务判断
func (c *Client) TestArtifact(ctx context.Context, artifact model.Artifact) (*model.TestResult, error) {
	var result model.TestResult
	if err := c.do(ctx, http.MethodPost, "/api/artifacts/"+artifact.ID+"/test", artifact, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ValidateContent 由后端校验内容合法性
func (c *Client) ValidateContent(ctx context.Context, content string, artifactType model.ArtifactType) (*model.ValidationResult, error) {
	payload := map[string]string{
		"content": content,
		"type":    string(artifactType),
	}
	var result model.ValidationResult
	if err := c.do(ctx, http.MethodPost, "/api/artifacts/validate", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
