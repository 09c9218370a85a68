package client

import "time"

// Clock 时钟抽象，限流器和重试退避使用，测试时可注入虚拟时钟
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock 返回基于系统时间的时钟
func RealClock() Clock {
	return realClock{}
}
