package bridge

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyConnected = errors.New("session already connected")
	ErrDuplicateRequest = errors.New("request id already in flight")
	ErrStreamBusy       = errors.New("stream of this kind already in flight")
	ErrUnknownKind      = errors.New("unknown request kind")
)

// sentinelError 同时匹配 sentinel 和底层原因, errors.Is 对两者都成立
type sentinelError struct {
	sentinel error
	msg      string
	cause    error
}

func (e *sentinelError) Error() string {
	s := e.sentinel.Error()
	if e.msg != "" {
		s += ": " + e.msg
	}
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *sentinelError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.sentinel}
	}
	return []error{e.sentinel, e.cause}
}

func withSentinel(sentinel, cause error, format string, args ...any) error {
	return &sentinelError{sentinel: sentinel, msg: fmt.Sprintf(format, args...), cause: cause}
}

// waitError 将等待失败转换为调用方可区分的错误: 超时包装为 sentinel, 取消原样返回
func waitError(ctx context.Context, sentinel error, format string, args ...any) error {
	err := ctx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return withSentinel(sentinel, err, format, args...)
	}
	if err == nil {
		err = context.Canceled
	}
	return errors.Wrapf(err, format, args...)
}
