package bridge

import (
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-gotop/ibkit/gateway"
	"github.com/go-gotop/ibkit/limiter"
)

type Option func(*options)

type options struct {
	logger          *log.Helper
	limiter         limiter.Limiter                // 出站请求限流
	tracerProvider  trace.TracerProvider           // 链路追踪
	grace           map[gateway.Kind]time.Duration // 结束回调后的宽限期
	disconnectGrace time.Duration                  // 断开时等待回调投递结束的最长时间
	isWarning       func(code int64) bool          // 不影响请求结果的告警码
}

func defaultOptions() *options {
	return &options{
		logger:          log.NewHelper(log.DefaultLogger),
		limiter:         limiter.NewRateLimiter(),
		tracerProvider:  otel.GetTracerProvider(),
		grace:           make(map[gateway.Kind]time.Duration),
		disconnectGrace: 500 * time.Millisecond,
		isWarning:       isWarningCode,
	}
}

// isWarningCode 2100-2199 为网关告警, 例如 2104 行情连接正常
func isWarningCode(code int64) bool {
	return code >= 2100 && code < 2200
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.NewHelper(logger)
	}
}

func WithLimiter(l limiter.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithGracePeriod 结束回调之后延迟 d 再完成请求, 期间到达的无请求ID的行仍会被收集.
// 只是对网关投递顺序不确定的容忍, 不是可靠的同步点.
func WithGracePeriod(kind gateway.Kind, d time.Duration) Option {
	return func(o *options) {
		o.grace[kind] = d
	}
}

func WithDisconnectGrace(d time.Duration) Option {
	return func(o *options) {
		o.disconnectGrace = d
	}
}

// WithWarningCodes 指定额外的告警码, 这些错误只记录日志不会使请求失败
func WithWarningCodes(codes ...int64) Option {
	return func(o *options) {
		set := make(map[int64]struct{}, len(codes))
		for _, c := range codes {
			set[c] = struct{}{}
		}
		o.isWarning = func(code int64) bool {
			if _, ok := set[code]; ok {
				return true
			}
			return isWarningCode(code)
		}
	}
}

// CallOption 单次请求的选项
type CallOption func(*callOptions)

type callOptions struct {
	requestID int64
}

// WithRequestID 使用调用方指定的请求ID, 默认从网关下发的 nextValidId 开始本地递增分配
func WithRequestID(id int64) CallOption {
	return func(o *callOptions) {
		o.requestID = id
	}
}
