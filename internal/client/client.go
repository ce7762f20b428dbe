package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/carlmjohnson/requests"
	"go.uber.org/zap"

	"substore/config"
	"substore/internal/apperrors"
)

// Client Sub-Store后端HTTP客户端
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.SugaredLogger
}

// New 创建后端客户端，超时和出站代理由配置决定
func New(cfg config.Backend, log *zap.SugaredLogger) (*Client, error) {
	httpClient := &http.Client{
		Timeout: cfg.Timeout(),
	}

	// 如果配置了代理，设置代理
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, errors.New("invalid proxy URL: " + err.Error())
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		}
	}

	return &Client{
		baseURL: cfg.URL,
		token:   cfg.Token,
		http:    httpClient,
		log:     log,
	}, nil
}

// envelope 后端统一响应格式
type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// do 发送请求并解包响应，out为nil时忽略响应数据
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rawBuf bytes.Buffer

	builder := requests.URL(c.baseURL).
		Path(path).
		Method(method).
		Client(c.http).
		Header("Accept", "application/json").
		ToBytesBuffer(&rawBuf)
	if c.token != "" {
		builder = builder.Header("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		builder = builder.BodyJSON(body)
	}

	if err := builder.Fetch(ctx); err != nil {
		if requests.HasStatusErr(err, http.StatusNotFound) {
			return apperrors.ErrNotFound
		}
		return &apperrors.NetworkError{URL: path, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(rawBuf.Bytes(), &env); err != nil {
		return &apperrors.ParseError{Resource: path, Err: err}
	}
	if env.Status != "success" {
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		if msg == "" {
			msg = "backend reported failure"
		}
		return &apperrors.NetworkError{URL: path, Err: errors.New(msg)}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &apperrors.ParseError{Resource: path, Err: err}
		}
	}
	return nil
}
