package gorilla

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-gotop/ibkit/websocket"
)

var ErrNotConnected = errors.New("websocket not connected")

func NewGorillaWebsocket(conn websocket.WebSocketConn, config *websocket.WebsocketConfig) *GorillaWebsocket {
	if config == nil {
		config = &websocket.WebsocketConfig{}
	}
	g := &GorillaWebsocket{
		conn:    conn,
		config:  config,
		closeCh: make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	return g
}

// GorillaWebsocket 是 Websocket 接口的实现, 每个实例只连接一次
type GorillaWebsocket struct {
	messageCount atomic.Uint64
	isConnected  atomic.Bool
	conn         websocket.WebSocketConn
	config       *websocket.WebsocketConfig
	req          *websocket.WebsocketRequest
	writeMu      sync.Mutex // gorilla 连接只允许一个并发写
	closeCh      chan struct{}
	doneCh       chan struct{}
	closeOnce    sync.Once
	doneOnce     sync.Once
	connectTime  time.Time
}

func (w *GorillaWebsocket) Connect(ctx context.Context, req *websocket.WebsocketRequest) error {
	if err := w.conn.Dial(ctx, req.Endpoint, req.Header); err != nil {
		w.doneOnce.Do(func() { close(w.doneCh) })
		return err
	}
	w.configure()
	w.req = req
	w.connectTime = time.Now()
	w.messageCount.Store(0)
	w.isConnected.Store(true)
	if req.ConnectedHandler != nil {
		req.ConnectedHandler(req.ID)
	}
	go w.readMessages(req)
	return nil
}

func (w *GorillaWebsocket) configure() {
	if w.config.PingHandler != nil {
		w.conn.SetPingHandler(w.config.PingHandler)
	}
	if w.config.PongHandler != nil {
		w.conn.SetPongHandler(w.config.PongHandler)
	}
}

func (w *GorillaWebsocket) readMessages(req *websocket.WebsocketRequest) {
	var closeErr error
	defer func() {
		w.isConnected.Store(false)
		w.doneOnce.Do(func() {
			close(w.doneCh)
		}) // 确保此方法退出时标记doneCh为已完成
		if req.CloseHandler != nil {
			req.CloseHandler(req.ID, closeErr)
		}
	}()
	for {
		select {
		case <-w.closeCh: // 如果收到关闭信号，则立即退出循环
			return
		default:
		}
		_, message, err := w.conn.ReadMessage()
		if err != nil {
			// 当遇到错误时，首先检查是否因为连接已关闭
			select {
			case <-w.closeCh:
			default:
				closeErr = err
				if req.ErrorHandler != nil {
					req.ErrorHandler(req.ID, err)
				}
			}
			return
		}
		w.messageCount.Add(1)
		if err := req.MessageHandler(message); err != nil && req.ErrorHandler != nil {
			req.ErrorHandler(req.ID, err)
		}
	}
}

func (w *GorillaWebsocket) ID() string {
	if w.req == nil {
		return ""
	}
	return w.req.ID
}

func (w *GorillaWebsocket) Disconnect() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh) // 通知读协程退出
		if w.conn != nil {
			err = w.conn.Close() // 关闭WebSocket连接, 阻塞中的读会返回错误
		}
	})
	w.isConnected.Store(false)
	if w.req == nil {
		// 从未连接过, 没有读协程
		w.doneOnce.Do(func() { close(w.doneCh) })
	}
	<-w.doneCh // 确保读协程已经结束
	return err
}

// Done 读循环退出后关闭
func (w *GorillaWebsocket) Done() <-chan struct{} {
	return w.doneCh
}

func (w *GorillaWebsocket) IsConnected() bool {
	return w.isConnected.Load()
}

func (w *GorillaWebsocket) WriteMessage(messageType int, data []byte) error {
	if !w.isConnected.Load() {
		return ErrNotConnected
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteMessage(messageType, data)
}

func (w *GorillaWebsocket) GetCurrentRate() int {
	elapsed := time.Since(w.connectTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	count := w.messageCount.Load()
	rate := float64(count) / elapsed
	return int(rate) // 返回每秒消息数
}

func (w *GorillaWebsocket) ConnectionDuration() time.Duration {
	if w.connectTime.IsZero() {
		return 0
	}
	return time.Since(w.connectTime)
}
