package event

import (
	"context"
	"sync"
	"time"
)

// Signal 是一个可重置的单次同步标志, 一个协程等待, 另一个协程置位.
// Set 之后所有当前和后续的 Wait 都会立即返回, 直到 Clear.
type Signal struct {
	mu       sync.Mutex
	ch       chan struct{}
	signaled bool
}

func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{})}
}

// Set 幂等, 多次调用与一次调用效果相同
func (s *Signal) Set() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signaled {
		return
	}
	s.signaled = true
	close(s.ch)
}

// Clear 重置为未置位状态, 只能由唯一的编排者调用, 且必须在下一次 Set 之前完成.
func (s *Signal) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.signaled {
		return
	}
	s.signaled = false
	s.ch = make(chan struct{})
}

func (s *Signal) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.signaled
}

// Done 返回当前周期的通道, 置位时关闭
func (s *Signal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ch
}

// Wait 阻塞直到置位或 ctx 结束, 超时返回 ctx.Err()
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.Done():
		return nil
	default:
	}
	select {
	case <-s.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// WaitTimeout 在 d 内置位返回 true, 否则返回 false. d <= 0 表示不限时.
func (s *Signal) WaitTimeout(d time.Duration) bool {
	if d <= 0 {
		<-s.Done()
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.Done():
		return true
	case <-timer.C:
		return false
	}
}
