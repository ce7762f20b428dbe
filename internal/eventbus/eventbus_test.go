package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// countingHandler 统计收到的事件数
type countingHandler struct {
	count atomic.Int64
}

func (h *countingHandler) HandleEvent(event Event) error {
	h.count.Add(1)
	return nil
}

func TestEventBus_PublishDeliversToAllHandlers(t *testing.T) {
	bus := NewEventBus(zap.NewNop().Sugar())
	h1 := &countingHandler{}
	h2 := &countingHandler{}
	assert.NoError(t, bus.Subscribe(h1))
	assert.NoError(t, bus.Subscribe(h2))

	assert.NoError(t, bus.Publish(NewNotificationEvent(LevelInfo, "hello")))

	assert.Eventually(t, func() bool {
		return h1.count.Load() == 1 && h2.count.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestEventBus_NilEventAndHandlerRejected(t *testing.T) {
	bus := NewEventBus(zap.NewNop().Sugar())
	assert.Error(t, bus.Publish(nil))
	assert.Error(t, bus.Subscribe(nil))
	assert.Error(t, bus.Unsubscribe(nil))
}

func TestEventBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewEventBus(zap.NewNop().Sugar())
	h := &countingHandler{}
	assert.NoError(t, bus.Subscribe(h))
	assert.NoError(t, bus.Publish(NewNotificationEvent(LevelInfo, "first")))
	assert.Eventually(t, func() bool { return h.count.Load() == 1 }, time.Second, 5*time.Millisecond)

	assert.NoError(t, bus.Unsubscribe(h))
	assert.Empty(t, bus.GetHandlers())
	assert.NoError(t, bus.Publish(NewNotificationEvent(LevelInfo, "second")))

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), h.count.Load())
}

// 启动时各实体族的预热Load会在订阅者挂上来之前发布事件，
// 发布与订阅必须可以并发执行
func TestEventBus_ConcurrentPublishAndSubscribe(t *testing.T) {
	bus := NewEventBus(zap.NewNop().Sugar())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			assert.NoError(t, bus.Publish(NewCollectionChangedEvent("subscriptions")))
		}
	}()

	for i := 0; i < 200; i++ {
		assert.NoError(t, bus.Subscribe(&countingHandler{}))
	}
	wg.Wait()

	assert.Len(t, bus.GetHandlers(), 200)
}
