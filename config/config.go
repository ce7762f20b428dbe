package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config 应用程序配置
type Config struct {
	Token      string          `yaml:"token" env:"SUBSTORE_TOKEN"`
	Concurrent int             `yaml:"concurrent" env:"SUBSTORE_CONCURRENT"`
	Server     Server          `yaml:"server"`
	Database   Database        `yaml:"database"`
	Backend    Backend         `yaml:"backend"`
	Sync       Sync            `yaml:"sync"`
	Export     Export          `yaml:"export"`
	CronJobs   []CronJob       `yaml:"cron_jobs"`
	Webhooks   []WebhookConfig `yaml:"webhooks"`
}

// Server 服务器配置
type Server struct {
	Address string `yaml:"address" env:"SUBSTORE_ADDRESS"`
}

// Database 本地缓存数据库配置
type Database struct {
	Driver string `yaml:"driver" env:"SUBSTORE_DB_DRIVER"`
	DSN    string `yaml:"dsn" env:"SUBSTORE_DB_DSN"`
}

// Backend 远端后端配置
type Backend struct {
	URL            string `yaml:"url" env:"SUBSTORE_BACKEND_URL"`
	Token          string `yaml:"token" env:"SUBSTORE_BACKEND_TOKEN"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env:"SUBSTORE_BACKEND_TIMEOUT"`
	ProxyURL       string `yaml:"proxy_url" env:"SUBSTORE_BACKEND_PROXY"` // 出站代理，如 http://127.0.0.1:7890
}

// Timeout 后端请求超时
func (b Backend) Timeout() time.Duration {
	return time.Duration(b.TimeoutSeconds) * time.Second
}

// Sync 同步相关配置
type Sync struct {
	DebounceMs           int `yaml:"debounce_ms" env:"SUBSTORE_DEBOUNCE_MS"`                    // 过滤重算防抖窗口
	CheckIntervalSeconds int `yaml:"check_interval_seconds" env:"SUBSTORE_SYNC_CHECK_INTERVAL"` // 自动同步巡检周期
}

// Debounce 防抖窗口时长
func (s Sync) Debounce() time.Duration {
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// Export 批量导出配置
type Export struct {
	Dir string `yaml:"dir" env:"SUBSTORE_EXPORT_DIR"`
}

// CronJob 定时任务配置
type CronJob struct {
	Name              string `yaml:"name"`
	Schedule          string `yaml:"schedule"`
	SyncSubscriptions bool   `yaml:"sync_subscriptions"`
	SyncArtifacts     bool   `yaml:"sync_artifacts"`
	SyncFiles         bool   `yaml:"sync_files"`
	RefreshFlow       bool   `yaml:"refresh_flow"`
}

// WebhookConfig 通知webhook配置
type WebhookConfig struct {
	Name   string `yaml:"name"`
	URL    string `yaml:"url"`
	Method string `yaml:"method"`
	Header string `yaml:"header"`
	Body   string `yaml:"body"`
}

// LoadConfig 从文件加载配置，环境变量优先
func LoadConfig() (*Config, error) {
	// 1. 尝试从环境变量获取配置文件路径
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// 2. 读取并解析配置文件，文件缺失时仅依赖环境变量和默认值
	var config Config
	data, err := os.ReadFile(configPath)
	if err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	// 3. 环境变量覆盖文件配置
	if err := env.Parse(&config); err != nil {
		return nil, err
	}

	// 4. 验证配置并设置默认值
	if config.Concurrent == 0 {
		config.Concurrent = 5
	}
	if config.Server.Address == "" {
		config.Server.Address = "127.0.0.1:8080"
	}
	if config.Database.Driver == "" {
		config.Database.Driver = "sqlite"
	}
	if config.Database.DSN == "" {
		config.Database.DSN = "substore.db"
	}
	if config.Backend.URL == "" {
		config.Backend.URL = "http://127.0.0.1:3000"
	}
	if config.Backend.TimeoutSeconds == 0 {
		config.Backend.TimeoutSeconds = 30
	}
	if config.Sync.DebounceMs == 0 {
		config.Sync.DebounceMs = 300
	}
	if config.Sync.CheckIntervalSeconds == 0 {
		config.Sync.CheckIntervalSeconds = 1800
	}
	if config.Export.Dir == "" {
		config.Export.Dir = "exports"
	}

	return &config, nil
}
