package event

import "sync/atomic"

// Latch 是单次触发的门闩, 每个周期只有第一次 Trip 返回 true
type Latch struct {
	tripped atomic.Bool
}

func (l *Latch) Trip() bool {
	return l.tripped.CompareAndSwap(false, true)
}

func (l *Latch) Tripped() bool {
	return l.tripped.Load()
}

// Reset 只在没有并发 Trip 时调用, 例如新连接建立之前
func (l *Latch) Reset() {
	l.tripped.Store(false)
}
