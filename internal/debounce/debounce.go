package debounce

import (
	"sync"
	"time"
)

// Debouncer 尾沿防抖定时器：窗口内的多次触发合并为窗口结束后的一次执行，
// 执行的始终是最后一次Trigger传入的函数。
type Debouncer struct {
	window time.Duration

	mu    sync.Mutex
	timer *time.Timer
	fn    func()
}

// New 创建防抖器
func New(window time.Duration) *Debouncer {
	return &Debouncer{window: window}
}

// Trigger 记录最新的回调并重新计时
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fn = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Flush 立即执行挂起的回调，没有挂起时不做任何事
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.fn
	d.fn = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop 丢弃挂起的回调并停止计时
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fn = nil
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
