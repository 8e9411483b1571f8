package relay

import (
	"sync"
	"sync/atomic"
	"time"
)

// idleTimer 半关闭后的空闲计时
//
// arm 之前 touch 只记录时间；arm 之后超过 timeout 没有 touch 即触发 onIdle。
type idleTimer struct {
	timeout time.Duration
	last    atomic.Int64

	mu       sync.Mutex
	timer    *time.Timer
	onIdle   func()
	stopped  bool
	timedOut bool
}

func newIdleTimer(timeout time.Duration) *idleTimer {
	t := &idleTimer{timeout: timeout}
	t.touch()
	return t
}

// touch 记录一次数据传输
func (t *idleTimer) touch() {
	t.last.Store(time.Now().UnixNano())
}

// arm 开始计时，只有首次调用生效
func (t *idleTimer) arm(onIdle func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil || t.stopped {
		return
	}
	t.touch()
	t.onIdle = onIdle
	t.timer = time.AfterFunc(t.timeout, t.check)
}

func (t *idleTimer) check() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}

	idle := time.Since(time.Unix(0, t.last.Load()))
	if rest := t.timeout - idle; rest > 0 {
		t.timer.Reset(rest)
		return
	}
	t.timedOut = true
	t.onIdle()
}

// stop 停止计时，返回是否已因空闲触发
func (t *idleTimer) stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	if t.timer != nil {
		t.timer.Stop()
	}
	return t.timedOut
}
