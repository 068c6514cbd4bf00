package wsgateway

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	gwebsocket "github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/go-gotop/ibkit/gateway"
	"github.com/go-gotop/ibkit/websocket"
	"github.com/go-gotop/ibkit/websocket/gorilla"
)

var _ gateway.Client = (*Client)(nil)

var (
	ErrAlreadyConnected = errors.New("gateway relay already connected")
	ErrNotConnected     = errors.New("gateway relay not connected")
)

// Client 通过 websocket 中继访问网关. 读循环是唯一的回调投递协程.
type Client struct {
	opts *options

	mu            sync.Mutex
	ws            websocket.Websocket
	subscriptions map[int64]gateway.AccountUpdatesRequest // 停止账户订阅时需要原请求的账户
}

func NewClient(opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Client{
		opts:          o,
		subscriptions: make(map[int64]gateway.AccountUpdatesRequest),
	}
}

func (c *Client) Connect(ctx context.Context, address string, identity gateway.Identity, handler gateway.Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ws != nil && c.ws.IsConnected() {
		return ErrAlreadyConnected
	}

	endpoint, err := c.endpoint(address, identity)
	if err != nil {
		return err
	}
	ws := gorilla.NewGorillaWebsocket(c.opts.newConn(), c.opts.wsConfig)
	err = ws.Connect(ctx, &websocket.WebsocketRequest{
		Endpoint:       endpoint,
		ID:             uuid.New().String(),
		Header:         c.opts.header,
		MessageHandler: c.dispatch(handler),
		ErrorHandler: func(id string, err error) {
			c.opts.logger.Errorf("relay %s error: %v", id, err)
		},
		ConnectedHandler: func(id string) {
			c.opts.logger.Infof("relay %s connected to %s", id, endpoint)
		},
		CloseHandler: func(id string, err error) {
			c.opts.logger.Infof("relay %s closed after %s, %d msg/s", id, ws.ConnectionDuration().Round(time.Millisecond), ws.GetCurrentRate())
			handler.OnDisconnected(err)
		},
	})
	if err != nil {
		return errors.Wrapf(err, "dial %s", endpoint)
	}
	c.ws = ws
	c.subscriptions = make(map[int64]gateway.AccountUpdatesRequest)
	return nil
}

// endpoint host:port 形式的地址补全为 ws 地址, 并附带客户端身份
func (c *Client) endpoint(address string, identity gateway.Identity) (string, error) {
	if !strings.Contains(address, "://") {
		address = "ws://" + address
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", errors.Wrapf(err, "parse address %s", address)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = c.opts.path
	}
	q := u.Query()
	q.Set("clientId", strconv.FormatInt(identity.ClientID, 10))
	if identity.Account != "" {
		q.Set("account", identity.Account)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()
	if ws == nil {
		return nil
	}
	return ws.Disconnect()
}

func (c *Client) RequestIDs(count int) error {
	return c.write(&OutboundFrame{Op: OpReqIDs, ReqID: gateway.NoRequestID, Count: count})
}

func (c *Client) Send(kind gateway.Kind, reqID int64, payload any) error {
	if kind == gateway.KindAccountUpdates {
		if req, ok := payload.(gateway.AccountUpdatesRequest); ok && req.Subscribe {
			c.mu.Lock()
			c.subscriptions[reqID] = req
			c.mu.Unlock()
		}
	}
	return c.write(&OutboundFrame{Op: OpRequest, Kind: kind, ReqID: reqID, Payload: payload})
}

// Stop 账户更新以 subscribe=false 的请求退订, 其余类型发送取消帧
func (c *Client) Stop(kind gateway.Kind, reqID int64) error {
	if kind == gateway.KindAccountUpdates {
		c.mu.Lock()
		req, ok := c.subscriptions[reqID]
		delete(c.subscriptions, reqID)
		c.mu.Unlock()
		req.Subscribe = false
		if !ok {
			c.opts.logger.Warnf("stop account updates reqId=%d without subscription", reqID)
		}
		return c.write(&OutboundFrame{Op: OpRequest, Kind: kind, ReqID: reqID, Payload: req})
	}
	return c.write(&OutboundFrame{Op: OpCancel, Kind: kind, ReqID: reqID})
}

func (c *Client) write(f *OutboundFrame) error {
	c.mu.Lock()
	ws := c.ws
	c.mu.Unlock()
	if ws == nil {
		return ErrNotConnected
	}
	data, err := Json.Marshal(f)
	if err != nil {
		return errors.Wrapf(err, "encode %s frame", f.Op)
	}
	return ws.WriteMessage(gwebsocket.TextMessage, data)
}

// dispatch 解码入站帧并调用 handler, 在读循环中执行
func (c *Client) dispatch(h gateway.Handler) func(message []byte) error {
	return func(message []byte) error {
		j, err := NewJSON(message)
		if err != nil {
			return errors.Wrap(err, "frame new json error")
		}
		reqID := j.Get("reqId").MustInt64(gateway.NoRequestID)
		kind := gateway.Kind(j.Get("kind").MustString())
		switch typ := j.Get("type").MustString(); typ {
		case TypeNextValidID:
			h.OnNextValidID(j.Get("orderId").MustInt64())
		case TypeManagedAccounts:
			h.OnManagedAccounts(parseAccounts(j.Get("accounts")))
		case TypeRow:
			raw, err := j.Get("row").MarshalJSON()
			if err != nil {
				return errors.Wrap(err, "row marshal error")
			}
			row, err := decodeRow(j.Get("rowType").MustString(), raw)
			if err != nil {
				return err
			}
			h.OnRow(reqID, kind, row)
		case TypeEnd:
			h.OnStreamEnd(reqID, kind)
		case TypeError:
			h.OnError(reqID, j.Get("code").MustInt64(), j.Get("message").MustString())
		default:
			return fmt.Errorf("unknown frame type %q", typ)
		}
		return nil
	}
}
