package ibgateway

import (
	"context"
	"net"
	"strconv"
	"sync"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/pkg/errors"
	"github.com/scmhub/ibapi"

	"github.com/go-gotop/ibkit/gateway"
)

var _ gateway.Client = (*Client)(nil)

var (
	ErrAlreadyConnected = errors.New("tws already connected")
	ErrNotConnected     = errors.New("tws not connected")
	ErrBadPayload       = errors.New("unexpected request payload")
)

// eclient 用到的 EClient 命令, *ibapi.EClient 直接满足
type eclient interface {
	Connect(host string, port int, clientID int64) error
	Disconnect() error
	IsConnected() bool
	ReqIDs(numIds int64)
	ReqAccountSummary(reqID int64, groupName string, tags string)
	CancelAccountSummary(reqID int64)
	ReqAccountUpdates(subscribe bool, accountName string)
	ReqOpenOrders()
	ReqAllOpenOrders()
	ReqExecutions(reqID int64, execFilter *ibapi.ExecutionFilter)
	ReqHistoricalData(reqID int64, contract *ibapi.Contract, endDateTime string, duration string, barSize string, whatToShow string, useRTH bool, formatDate int, keepUpToDate bool, chartOptions []ibapi.TagValue)
	CancelHistoricalData(reqID int64)
	ReqGlobalCancel(orderCancel ibapi.OrderCancel)
}

var _ eclient = (*ibapi.EClient)(nil)

// Client 通过 TWS socket 协议直连 TWS 或 IB Gateway. EReader 协程是唯一的回调投递协程.
type Client struct {
	opts *options
	log  *log.Helper

	mu            sync.Mutex
	ec            eclient
	w             *wrapper
	subscriptions map[int64]gateway.AccountUpdatesRequest // 停止账户订阅时需要原请求的账户
}

func NewClient(opts ...Option) *Client {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	setLibraryLogger(o.logger, o.libLevel)
	return &Client{
		opts:          o,
		log:           log.NewHelper(o.logger),
		subscriptions: make(map[int64]gateway.AccountUpdatesRequest),
	}
}

// Connect 每次连接创建新的 EClient. ctx 结束时放弃握手, 之后成功的连接会被立即断开.
func (c *Client) Connect(ctx context.Context, address string, identity gateway.Identity, handler gateway.Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ec != nil && c.ec.IsConnected() {
		return ErrAlreadyConnected
	}

	host, port, err := splitAddress(address)
	if err != nil {
		return err
	}
	w := newWrapper(handler, c.log)
	ec := c.opts.newClient(w)

	done := make(chan error, 1)
	go func() {
		done <- ec.Connect(host, port, identity.ClientID)
	}()
	select {
	case err := <-done:
		if err != nil {
			return errors.Wrapf(err, "connect %s:%d", host, port)
		}
	case <-ctx.Done():
		w.detached.Store(true)
		go func() {
			if err := <-done; err == nil {
				_ = ec.Disconnect()
			}
		}()
		return errors.Wrapf(ctx.Err(), "connect %s:%d", host, port)
	}

	c.log.Infof("tws connected to %s:%d clientId=%d", host, port, identity.ClientID)
	c.ec = ec
	c.w = w
	c.subscriptions = make(map[int64]gateway.AccountUpdatesRequest)
	return nil
}

// splitAddress host:port, 没有端口时使用 TWS 模拟账户的默认端口
func splitAddress(address string) (string, int, error) {
	host, p, err := net.SplitHostPort(address)
	if err != nil {
		return address, defaultPort, nil
	}
	port, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, errors.Wrapf(err, "parse port of %s", address)
	}
	return host, port, nil
}

// Close 断开连接, ConnectionClosed 在返回前回调
func (c *Client) Close() error {
	c.mu.Lock()
	ec, w := c.ec, c.w
	c.ec, c.w = nil, nil
	c.mu.Unlock()
	if ec == nil {
		return nil
	}
	w.closing.Store(true)
	return ec.Disconnect()
}

func (c *Client) conn() (eclient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ec == nil || !c.ec.IsConnected() {
		return nil, ErrNotConnected
	}
	return c.ec, nil
}

func (c *Client) RequestIDs(count int) error {
	ec, err := c.conn()
	if err != nil {
		return err
	}
	ec.ReqIDs(int64(count))
	return nil
}

func (c *Client) Send(kind gateway.Kind, reqID int64, payload any) error {
	ec, err := c.conn()
	if err != nil {
		return err
	}
	switch kind {
	case gateway.KindAccountSummary:
		req, ok := payload.(gateway.AccountSummaryRequest)
		if !ok {
			return badPayload(kind, payload)
		}
		ec.ReqAccountSummary(reqID, req.Group, req.Tags)
	case gateway.KindAccountUpdates:
		req, ok := payload.(gateway.AccountUpdatesRequest)
		if !ok {
			return badPayload(kind, payload)
		}
		if req.Subscribe {
			c.mu.Lock()
			c.subscriptions[reqID] = req
			c.mu.Unlock()
		}
		ec.ReqAccountUpdates(req.Subscribe, req.Account)
	case gateway.KindOpenOrders:
		req, ok := payload.(gateway.OpenOrdersRequest)
		if !ok {
			return badPayload(kind, payload)
		}
		if req.All {
			ec.ReqAllOpenOrders()
		} else {
			ec.ReqOpenOrders()
		}
	case gateway.KindExecutions:
		req, ok := payload.(gateway.ExecutionsRequest)
		if !ok {
			return badPayload(kind, payload)
		}
		ec.ReqExecutions(reqID, toExecutionFilter(req))
	case gateway.KindHistoricalBars:
		req, ok := payload.(gateway.HistoricalBarsRequest)
		if !ok {
			return badPayload(kind, payload)
		}
		ec.ReqHistoricalData(reqID, toContract(req), req.EndDateTime, req.Duration, req.BarSize,
			req.WhatToShow, req.UseRTH, req.FormatDate, false, nil)
	case gateway.KindGlobalCancel:
		ec.ReqGlobalCancel(ibapi.NewOrderCancel())
	default:
		return errors.Errorf("unsupported request kind %s", kind)
	}
	return nil
}

// Stop 账户更新以 subscribe=false 退订. 挂单, 成交和全局撤单在 TWS 协议中没有取消命令.
func (c *Client) Stop(kind gateway.Kind, reqID int64) error {
	ec, err := c.conn()
	if err != nil {
		return err
	}
	switch kind {
	case gateway.KindAccountSummary:
		ec.CancelAccountSummary(reqID)
	case gateway.KindHistoricalBars:
		ec.CancelHistoricalData(reqID)
	case gateway.KindAccountUpdates:
		c.mu.Lock()
		req, ok := c.subscriptions[reqID]
		delete(c.subscriptions, reqID)
		c.mu.Unlock()
		if !ok {
			c.log.Warnf("stop account updates reqId=%d without subscription", reqID)
		}
		ec.ReqAccountUpdates(false, req.Account)
	}
	return nil
}

func badPayload(kind gateway.Kind, payload any) error {
	return errors.Wrapf(ErrBadPayload, "%s: %T", kind, payload)
}
