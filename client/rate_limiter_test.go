package client

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 虚拟时钟，测试中手动推进时间
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	ch       chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, fakeWaiter{deadline: c.now.Add(d), ch: ch})
	return ch
}

// Advance 推进虚拟时间并唤醒到期的等待者
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	remaining := c.waiters[:0]
	for _, w := range c.waiters {
		if !c.now.Before(w.deadline) {
			w.ch <- c.now
		} else {
			remaining = append(remaining, w)
		}
	}
	c.waiters = remaining
}

func TestRateLimiter_配额耗尽后阻塞到下个周期(t *testing.T) {
	clock := newFakeClock()
	// 并发上限大于配额，只验证配额行为
	rl := NewRateLimiter(3, time.Minute, 5, clock)

	var admitted atomic.Int32
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		go func() {
			if err := rl.Acquire(ctx); err == nil {
				admitted.Add(1)
			}
		}()
	}

	// 周期内只放行配额数量的请求
	require.Eventually(t, func() bool {
		return admitted.Load() == 3
	}, 2*time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(3), admitted.Load())

	// 推进到下个周期，配额补满，剩余请求放行
	clock.Advance(time.Minute)
	require.Eventually(t, func() bool {
		return admitted.Load() == 5
	}, 2*time.Second, 5*time.Millisecond)
}

func TestRateLimiter_并发上限为1时严格串行(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(100, time.Minute, 1, clock)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx))

	acquired := make(chan struct{})
	go func() {
		if err := rl.Acquire(ctx); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("并发槽被占用时第二个请求不应放行")
	case <-time.After(50 * time.Millisecond):
	}

	rl.Release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("释放并发槽后等待中的请求应被放行")
	}
}

func TestRateLimiter_上下文取消时返回错误(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(1, time.Minute, 1, clock)

	require.NoError(t, rl.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- rl.Acquire(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("取消后Acquire应立即返回")
	}
}

func TestRateLimiter_长时间空闲后配额只补满一次(t *testing.T) {
	clock := newFakeClock()
	rl := NewRateLimiter(2, time.Minute, 2, clock)
	ctx := context.Background()

	require.NoError(t, rl.Acquire(ctx))
	require.NoError(t, rl.Acquire(ctx))

	// 跨越多个周期，配额补满到refill而不是累积
	clock.Advance(10 * time.Minute)
	reservoir, _ := rl.Stats()
	assert.Equal(t, 2, reservoir)
}
