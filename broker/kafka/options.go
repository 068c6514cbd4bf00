package kafka

import (
	"time"

	"github.com/go-kratos/kratos/v2/log"
)

const defaultAddr = "127.0.0.1:9092"

type Option func(*options)

type options struct {
	addrs        []string
	logger       *log.Helper
	batchTimeout time.Duration
	requiredAcks int
	autoTopic    bool
}

func WithAddrs(addrs ...string) Option {
	return func(o *options) {
		o.addrs = addrs
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.NewHelper(logger)
	}
}

// WithBatchTimeout 批量写入的最长等待
func WithBatchTimeout(d time.Duration) Option {
	return func(o *options) {
		o.batchTimeout = d
	}
}

// WithRequiredAcks -1 全部副本确认, 1 只需 leader
func WithRequiredAcks(acks int) Option {
	return func(o *options) {
		o.requiredAcks = acks
	}
}

func WithAutoTopicCreation(b bool) Option {
	return func(o *options) {
		o.autoTopic = b
	}
}
