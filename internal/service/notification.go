package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"substore/config"
	"substore/internal/eventbus"
	"substore/internal/util"
)

const notificationHistorySize = 100

// Notification 用户可见的瞬时通知
type Notification struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NotificationCenter 订阅事件总线上的通知事件，保留最近的通知历史，
// 并把通知转发给配置的webhook
type NotificationCenter struct {
	webhooks []config.WebhookConfig
	client   *util.WebhookClient
	log      *zap.SugaredLogger

	mu      sync.Mutex
	history []Notification
}

// NewNotificationCenter 创建通知中心并订阅事件总线
func NewNotificationCenter(bus eventbus.EventBus, webhooks []config.WebhookConfig, log *zap.SugaredLogger) *NotificationCenter {
	center := &NotificationCenter{
		webhooks: webhooks,
		client:   util.NewWebhookClient(),
		log:      log,
	}
	if err := bus.Subscribe(center); err != nil {
		log.Warnw("通知中心订阅事件总线失败", "err", err)
	}
	return center
}

// HandleEvent 实现eventbus.EventHandler
func (c *NotificationCenter) HandleEvent(event eventbus.Event) error {
	switch event.GetType() {
	case eventbus.EventTypeNotification:
		data := event.GetData()
		notification := Notification{
			Level:     fmt.Sprintf("%v", data["level"]),
			Message:   fmt.Sprintf("%v", data["message"]),
			Timestamp: event.GetTimestamp(),
		}
		c.record(notification)
		c.dispatch(notification)
	case eventbus.EventTypeSyncCompleted:
		data := event.GetData()
		notification := Notification{
			Level:     eventbus.LevelInfo,
			Message:   fmt.Sprintf("%v sync finished: %v synced, %v conflicts", data["family"], data["synced"], data["conflicts"]),
			Timestamp: event.GetTimestamp(),
		}
		c.record(notification)
	}
	return nil
}

// Recent 最近的通知，新的在前
func (c *NotificationCenter) Recent(limit int) []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limit <= 0 || limit > len(c.history) {
		limit = len(c.history)
	}
	out := make([]Notification, 0, limit)
	for i := len(c.history) - 1; i >= len(c.history)-limit; i-- {
		out = append(out, c.history[i])
	}
	return out
}

// record 追加到通知历史，超出容量时丢弃最旧的
func (c *NotificationCenter) record(notification Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, notification)
	if len(c.history) > notificationHistorySize {
		c.history = c.history[len(c.history)-notificationHistorySize:]
	}
}

// dispatch 把通知转发给所有配置的webhook
func (c *NotificationCenter) dispatch(notification Notification) {
	if len(c.webhooks) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	data := map[string]interface{}{
		"level":   notification.Level,
		"message": notification.Message,
		"time":    notification.Timestamp.Format(time.RFC3339),
	}
	for _, err := range c.client.ExecuteWebhooks(ctx, c.webhooks, data) {
		c.log.Warnw("webhook通知发送失败", "err", err)
	}
}
