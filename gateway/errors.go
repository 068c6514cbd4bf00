package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection 传输层拒绝或在就绪前断开
	ErrConnection = errors.New("gateway connection error")
	// ErrReadinessTimeout 超时未收到首个 nextValidId
	ErrReadinessTimeout = errors.New("gateway readiness timeout")
	// ErrRequestTimeout 请求在期限内未收到结束回调
	ErrRequestTimeout = errors.New("gateway request timeout")
	// ErrConnectionLost 会话级故障, 所有挂起请求失败
	ErrConnectionLost = errors.New("gateway connection lost")
	// ErrSessionClosed 会话已主动断开
	ErrSessionClosed = errors.New("gateway session closed")
	// ErrNotReady 会话未连接
	ErrNotReady = errors.New("gateway session not ready")
)

// GatewayError 网关针对某个请求ID返回的错误
type GatewayError struct {
	RequestID int64
	Code      int64
	Message   string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("<GatewayError> reqId=%d, code=%d, msg=%s", e.RequestID, e.Code, e.Message)
}

// IsGatewayError 判断 err 是否为网关错误
func IsGatewayError(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge)
}

// IsSystemNotice 系统级通知不属于任何请求, 例如 2104 行情连接正常
func IsSystemNotice(reqID int64) bool {
	return reqID == NoRequestID
}
