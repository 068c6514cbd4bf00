package limiter

type Option func(*Options)

// PeriodLimit 一个周期窗口内允许的消息数, Period 形如 "1s" "10m"
type PeriodLimit struct {
	Period string
	Times  int64
}

type Options struct {
	// 请求次数限制
	PeriodLimitArray []PeriodLimit
}

// WithPeriodLimitArray 覆盖默认的周期窗口
func WithPeriodLimitArray(p []PeriodLimit) Option {
	return func(o *Options) {
		o.PeriodLimitArray = p
	}
}

// WithRate 每秒 n 条, 突发同为 n
func WithRate(n int64) Option {
	return func(o *Options) {
		o.PeriodLimitArray = []PeriodLimit{{Period: "1s", Times: n}}
	}
}

// WithPeriodLimit 追加一个周期窗口
func WithPeriodLimit(period string, times int64) Option {
	return func(o *Options) {
		o.PeriodLimitArray = append(o.PeriodLimitArray, PeriodLimit{Period: period, Times: times})
	}
}
