package eventbus

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event 事件接口
type Event interface {
	GetType() string
	GetTimestamp() time.Time
	GetData() map[string]interface{}
}

// EventHandler 事件处理器接口
type EventHandler interface {
	HandleEvent(event Event) error
}

// EventBus 事件总线接口
type EventBus interface {
	Publish(event Event) error
	Subscribe(handler EventHandler) error
	Unsubscribe(handler EventHandler) error
	GetHandlers() []EventHandler
}

// eventBus 事件总线实现
type eventBus struct {
	handlers map[EventHandler]struct{}
	mu       sync.RWMutex
	log      *zap.SugaredLogger
}

// NewEventBus 创建新的事件总线
func NewEventBus(log *zap.SugaredLogger) EventBus {
	return &eventBus{
		handlers: make(map[EventHandler]struct{}),
		log:      log,
	}
}

// Publish 发布事件。在锁内拍下处理器快照后再异步分发，
// 分发协程不会与Subscribe并发读写处理器map
func (eb *eventBus) Publish(event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	handlers := eb.GetHandlers()

	// 异步处理事件，避免阻塞发布者
	go func() {
		for _, handler := range handlers {
			go func(h EventHandler) {
				if err := h.HandleEvent(event); err != nil {
					// 记录错误，但不影响其他处理器
					eb.log.Warnw("event handler error", "type", event.GetType(), "err", err)
				}
			}(handler)
		}
	}()

	return nil
}

// Subscribe 订阅事件
func (eb *eventBus) Subscribe(handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.handlers[handler] = struct{}{}
	return nil
}

// Unsubscribe 取消订阅
func (eb *eventBus) Unsubscribe(handler EventHandler) error {
	if handler == nil {
		return fmt.Errorf("handler cannot be nil")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	delete(eb.handlers, handler)
	return nil
}

// GetHandlers 获取当前处理器集合的快照
func (eb *eventBus) GetHandlers() []EventHandler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	handlers := make([]EventHandler, 0, len(eb.handlers))
	for handler := range eb.handlers {
		handlers = append(handlers, handler)
	}

	return handlers
}
