package eventbus

import (
	"time"
)

// 事件类型
const (
	EventTypeNotification      = "notification"
	EventTypeCollectionChanged = "collection_changed"
	EventTypeSyncCompleted     = "sync_completed"
)

// 通知级别
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// baseEvent 事件公共字段
type baseEvent struct {
	eventType string
	timestamp time.Time
	data      map[string]interface{}
}

func (e baseEvent) GetType() string                 { return e.eventType }
func (e baseEvent) GetTimestamp() time.Time         { return e.timestamp }
func (e baseEvent) GetData() map[string]interface{} { return e.data }

// NewNotificationEvent 用户可见的瞬时通知
func NewNotificationEvent(level, message string) Event {
	return baseEvent{
		eventType: EventTypeNotification,
		timestamp: time.Now(),
		data: map[string]interface{}{
			"level":   level,
			"message": message,
		},
	}
}

// NewCollectionChangedEvent 某实体族的共享集合发生变化
func NewCollectionChangedEvent(family string) Event {
	return baseEvent{
		eventType: EventTypeCollectionChanged,
		timestamp: time.Now(),
		data: map[string]interface{}{
			"family": family,
		},
	}
}

// NewSyncCompletedEvent 一轮外部同步结束
func NewSyncCompletedEvent(family string, success bool, synced, conflicts int) Event {
	return baseEvent{
		eventType: EventTypeSyncCompleted,
		timestamp: time.Now(),
		data: map[string]interface{}{
			"family":    family,
			"success":   success,
			"synced":    synced,
			"conflicts": conflicts,
		},
	}
}
