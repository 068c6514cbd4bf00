package websocket

import (
	"context"
	"net/http"
	"time"
)

//go:generate mockgen -destination=mock/websocket.go -package=mock_websocket . WebSocketConn
type WebSocketConn interface {
	Dial(ctx context.Context, endpoint string, requestHeader http.Header) error
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetPingHandler(h func(appData string) error)
	SetPongHandler(h func(appData string) error)
	Close() error
}

// WebsocketConfig 结构体定义了WebSocket实例的配置选项
type WebsocketConfig struct {
	PingHandler func(appData string) error
	PongHandler func(appData string) error
}

type WebsocketRequest struct {
	// Endpoint 是Websocket服务器的地址
	Endpoint string

	// ID 是Websocket连接的唯一标识符
	ID string

	// Header 握手时附带的请求头
	Header http.Header

	// MessageHandler 是Websocket消息处理函数, 返回错误不会中断读循环
	MessageHandler func([]byte) error

	// ErrorHandler 是Websocket错误处理函数
	ErrorHandler func(id string, err error)

	// ConnectedHandler 连接建立后, 读循环启动前调用
	ConnectedHandler func(id string)

	// CloseHandler 读循环退出时调用且只调用一次, 主动断开时 err 为 nil
	CloseHandler func(id string, err error)
}

// Websocket 接口定义了基本的连接管理操作, 不做自动重连
type Websocket interface {
	// Connect 方法用于建立Websocket连接
	// req 参数是连接请求的相关信息
	Connect(ctx context.Context, req *WebsocketRequest) error

	// Disconnect 方法用于关闭Websocket连接, 返回前读循环已经退出
	Disconnect() error

	// IsConnected 方法用于检查Websocket连接是否处于活跃状态
	// 返回 true 表示连接是活跃的，false 表示连接已经关闭或尚未建立
	IsConnected() bool

	// WriteMessage 并发安全的写入
	WriteMessage(messageType int, data []byte) error

	// GetCurrentRate 方法用于获取当前的通讯速率
	// 返回值是每秒收到的消息数
	GetCurrentRate() int

	// ConnectionDuration 方法用于获取当前连接的持续时间
	ConnectionDuration() time.Duration
}
