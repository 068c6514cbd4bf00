package wsgateway

import (
	"net/http"

	"github.com/go-kratos/kratos/v2/log"

	"github.com/go-gotop/ibkit/websocket"
	"github.com/go-gotop/ibkit/websocket/gorilla"
)

const defaultPath = "/v1/gateway"

type Option func(*options)

type options struct {
	logger   *log.Helper
	path     string                         // 中继的路径, 地址不带路径时使用
	header   http.Header                    // 握手请求头
	wsConfig *websocket.WebsocketConfig     // ping/pong 处理
	newConn  func() websocket.WebSocketConn // 底层连接工厂
}

func defaultOptions() *options {
	return &options{
		logger:   log.NewHelper(log.DefaultLogger),
		path:     defaultPath,
		wsConfig: &websocket.WebsocketConfig{},
		newConn: func() websocket.WebSocketConn {
			return gorilla.NewGorillaWebSocketConn()
		},
	}
}

func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = log.NewHelper(logger)
	}
}

func WithPath(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

func WithHeader(header http.Header) Option {
	return func(o *options) {
		o.header = header
	}
}

func WithWebsocketConfig(cfg *websocket.WebsocketConfig) Option {
	return func(o *options) {
		o.wsConfig = cfg
	}
}

// WithConnFactory 替换底层 websocket 连接, 用于测试
func WithConnFactory(f func() websocket.WebSocketConn) Option {
	return func(o *options) {
		o.newConn = f
	}
}
