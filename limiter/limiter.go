package limiter

import (
	"context"

	"golang.org/x/time/rate"
)

//go:generate mockgen -destination=../limiter/mocks/limiter.go -package=mklimiter . Limiter
type Limiter interface {
	// Wait 阻塞直到允许发送下一条消息或 ctx 结束
	Wait(ctx context.Context) error
	// Allow 不阻塞, 当前窗口是否还有余量
	Allow() bool
}

// RateLimiter 出站消息限流, 多个周期窗口必须同时放行
type RateLimiter struct {
	opts     *Options
	limiters []*rate.Limiter
}

func NewRateLimiter(opts ...Option) *RateLimiter {
	o := &Options{
		PeriodLimitArray: []PeriodLimit{
			// 网关对客户端消息的限制为每秒50条
			{Period: "1s", Times: 50},
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return &RateLimiter{
		opts:     o,
		limiters: SetAllLimiters(o.PeriodLimitArray),
	}
}

func (r *RateLimiter) Wait(ctx context.Context) error {
	for _, l := range r.limiters {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (r *RateLimiter) Allow() bool {
	return LimiterAllow(r.limiters)
}

// Unlimited 不限流, 用于测试和本地中继
type Unlimited struct{}

func (Unlimited) Wait(ctx context.Context) error {
	return ctx.Err()
}

func (Unlimited) Allow() bool {
	return true
}
