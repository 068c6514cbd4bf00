package ibgateway

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/scmhub/ibapi"
)

const defaultPort = 7497

type Option func(*options)

type options struct {
	logger    log.Logger
	libLevel  string                       // ibapi 自身日志的级别
	newClient func(ibapi.EWrapper) eclient // EClient 工厂
}

func defaultOptions() *options {
	return &options{
		logger:   log.DefaultLogger,
		libLevel: "warn",
		newClient: func(w ibapi.EWrapper) eclient {
			return ibapi.NewEClient(w)
		},
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLibraryLogLevel ibapi 内部日志的级别, 例如 debug, info, warn
func WithLibraryLogLevel(level string) Option {
	return func(o *options) {
		o.libLevel = level
	}
}

// withClientFactory 替换 EClient, 用于测试
func withClientFactory(f func(ibapi.EWrapper) eclient) Option {
	return func(o *options) {
		o.newClient = f
	}
}
