/*
 * @module client/rate_limiter
 * @description 蓄水池限流器，按固定周期补满配额并限制并发请求数，准入阻塞直到有配额
 * @architecture 分层架构 - 客户端层
 * @documentReference ai_docs/sync_requirements.md
 * @stateFlow 请求准入 -> 消耗配额/占用并发槽 -> 请求完成释放槽 -> 周期补满配额
 * @rules 每个周期配额一次性补满而非连续滴灌；并发上限默认1；补齐计算基于注入时钟
 * @dependencies client/clock.go
 * @refs client/sienge_client.go
 */

package client

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 蓄水池限流器
type RateLimiter struct {
	mu          sync.Mutex
	reservoir   int           // 当前周期剩余配额
	refill      int           // 每周期补满的配额
	interval    time.Duration // 补满周期
	maxInflight int           // 并发请求上限
	inflight    int
	windowStart time.Time
	wake        chan struct{} // 槽释放或配额补满时广播
	clock       Clock
}

// NewRateLimiter 创建限流器
// refill 为每个 interval 周期的请求配额，maxInflight 为并发上限
func NewRateLimiter(refill int, interval time.Duration, maxInflight int, clock Clock) *RateLimiter {
	if clock == nil {
		clock = RealClock()
	}
	if maxInflight <= 0 {
		maxInflight = 1
	}
	return &RateLimiter{
		reservoir:   refill,
		refill:      refill,
		interval:    interval,
		maxInflight: maxInflight,
		windowStart: clock.Now(),
		wake:        make(chan struct{}),
		clock:       clock,
	}
}

// Acquire 阻塞直到获得一个请求配额和并发槽
// 成功后调用方必须在请求完成时调用 Release
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	for {
		rl.mu.Lock()
		now := rl.clock.Now()
		rl.refillLocked(now)

		if rl.inflight < rl.maxInflight && rl.reservoir > 0 {
			rl.reservoir--
			rl.inflight++
			rl.mu.Unlock()
			return nil
		}

		wake := rl.wake
		wait := rl.windowStart.Add(rl.interval).Sub(now)
		rl.mu.Unlock()

		if wait <= 0 {
			wait = time.Millisecond
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-wake:
		case <-rl.clock.After(wait):
		}
	}
}

// Release 释放并发槽，唤醒等待中的请求
func (rl *RateLimiter) Release() {
	rl.mu.Lock()
	if rl.inflight > 0 {
		rl.inflight--
	}
	close(rl.wake)
	rl.wake = make(chan struct{})
	rl.mu.Unlock()
}

// refillLocked 周期边界一次性补满配额，长时间空闲跨多个周期时逐周期推进窗口
func (rl *RateLimiter) refillLocked(now time.Time) {
	for !now.Before(rl.windowStart.Add(rl.interval)) {
		rl.windowStart = rl.windowStart.Add(rl.interval)
		rl.reservoir = rl.refill
	}
}

// Stats 返回当前配额和并发状态
func (rl *RateLimiter) Stats() (reservoir, inflight int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked(rl.clock.Now())
	return rl.reservoir, rl.inflight
}
