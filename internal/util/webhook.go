package util

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"substore/config"
)

// WebhookClient webhook客户端
type WebhookClient struct {
	Client *http.Client
}

// NewWebhookClient 创建webhook客户端
func NewWebhookClient() *WebhookClient {
	return &WebhookClient{
		Client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ExecuteWebhook 执行webhook请求，data中的键以{{key}}形式替换进请求体模板
func (wc *WebhookClient) ExecuteWebhook(ctx context.Context, webhook config.WebhookConfig, data map[string]interface{}) error {
	if webhook.URL == "" {
		return fmt.Errorf("webhook URL is empty")
	}

	targetURL := webhook.URL

	// 请求体模板替换
	bodyContent := webhook.Body
	if bodyContent != "" && data != nil {
		for key, value := range data {
			placeholder := fmt.Sprintf("{{%s}}", key)
			bodyContent = strings.ReplaceAll(bodyContent, placeholder, fmt.Sprintf("%v", value))
		}
	}

	method := strings.ToUpper(webhook.Method)
	if method == "" {
		method = http.MethodPost
	}

	var req *http.Request
	var err error
	if method == http.MethodGet {
		// GET请求把参数拼到URL里
		if len(data) > 0 {
			params := url.Values{}
			for key, value := range data {
				params.Add(key, fmt.Sprintf("%v", value))
			}
			if strings.Contains(targetURL, "?") {
				targetURL += "&" + params.Encode()
			} else {
				targetURL += "?" + params.Encode()
			}
		}
		req, err = http.NewRequestWithContext(ctx, method, targetURL, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, targetURL, bytes.NewReader([]byte(bodyContent)))
	}
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	// 自定义请求头，每行一条 key: value
	if webhook.Header != "" {
		for _, header := range strings.Split(webhook.Header, "\n") {
			parts := strings.SplitN(header, ":", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if key != "" && value != "" {
				req.Header.Set(key, value)
			}
		}
	}
	if method != http.MethodGet && bodyContent != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := wc.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned non-2xx status: %s", resp.Status)
	}

	return nil
}

// ExecuteWebhooks 批量执行webhooks
func (wc *WebhookClient) ExecuteWebhooks(ctx context.Context, webhooks []config.WebhookConfig, data map[string]interface{}) []error {
	var errors []error
	for _, webhook := range webhooks {
		if err := wc.ExecuteWebhook(ctx, webhook, data); err != nil {
			errors = append(errors, fmt.Errorf("webhook %s failed: %v", webhook.Name, err))
		}
	}
	return errors
}
