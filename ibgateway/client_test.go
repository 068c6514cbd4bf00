package ibgateway

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/pkg/errors"
	"github.com/scmhub/ibapi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/go-gotop/ibkit/bridge"
	"github.com/go-gotop/ibkit/gateway"
	mock_gateway "github.com/go-gotop/ibkit/gateway/mock"
	"github.com/go-gotop/ibkit/limiter"
	"github.com/go-gotop/ibkit/model"
)

// fakeEClient 记录命令, 按需回放回调
type fakeEClient struct {
	mu        sync.Mutex
	w         ibapi.EWrapper
	host      string
	port      int
	clientID  int64
	connected bool
	calls     []string

	connectErr error
	block      chan struct{}
	onConnect  func(w ibapi.EWrapper)
	onRequest  func(w ibapi.EWrapper, call string)
}

func (f *fakeEClient) record(format string, args ...any) {
	call := fmt.Sprintf(format, args...)
	f.mu.Lock()
	f.calls = append(f.calls, call)
	hook := f.onRequest
	f.mu.Unlock()
	if hook != nil {
		hook(f.w, call)
	}
}

func (f *fakeEClient) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeEClient) Connect(host string, port int, clientID int64) error {
	if f.block != nil {
		<-f.block
	}
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.host, f.port, f.clientID, f.connected = host, port, clientID, true
	f.mu.Unlock()
	if f.onConnect != nil {
		f.onConnect(f.w)
	}
	return nil
}

func (f *fakeEClient) Disconnect() error {
	f.mu.Lock()
	was := f.connected
	f.connected = false
	f.mu.Unlock()
	if was {
		f.w.ConnectionClosed()
	}
	return nil
}

func (f *fakeEClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeEClient) ReqIDs(numIds int64) { f.record("ReqIDs %d", numIds) }

func (f *fakeEClient) ReqAccountSummary(reqID int64, groupName string, tags string) {
	f.record("ReqAccountSummary %d %s %s", reqID, groupName, tags)
}

func (f *fakeEClient) CancelAccountSummary(reqID int64) { f.record("CancelAccountSummary %d", reqID) }

func (f *fakeEClient) ReqAccountUpdates(subscribe bool, accountName string) {
	f.record("ReqAccountUpdates %t %s", subscribe, accountName)
}

func (f *fakeEClient) ReqOpenOrders() { f.record("ReqOpenOrders") }

func (f *fakeEClient) ReqAllOpenOrders() { f.record("ReqAllOpenOrders") }

func (f *fakeEClient) ReqExecutions(reqID int64, execFilter *ibapi.ExecutionFilter) {
	f.record("ReqExecutions %d client=%d acct=%s symbol=%s side=%s", reqID, execFilter.ClientID, execFilter.AcctCode, execFilter.Symbol, execFilter.Side)
}

func (f *fakeEClient) ReqHistoricalData(reqID int64, contract *ibapi.Contract, endDateTime string, duration string, barSize string, whatToShow string, useRTH bool, formatDate int, keepUpToDate bool, chartOptions []ibapi.TagValue) {
	f.record("ReqHistoricalData %d %s %s %s %s %s %s %t %d", reqID, contract.Symbol, contract.SecType, contract.Exchange, duration, barSize, whatToShow, useRTH, formatDate)
}

func (f *fakeEClient) CancelHistoricalData(reqID int64) { f.record("CancelHistoricalData %d", reqID) }

func (f *fakeEClient) ReqGlobalCancel(orderCancel ibapi.OrderCancel) { f.record("ReqGlobalCancel") }

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(clientTestSuite))
}

type clientTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	handler *mock_gateway.MockHandler
	ec      *fakeEClient
	client  *Client
}

func (c *clientTestSuite) SetupTest() {
	c.ctrl = gomock.NewController(c.T())
	c.handler = mock_gateway.NewMockHandler(c.ctrl)
	c.ec = &fakeEClient{}
	c.client = c.newClient(c.ec)
}

func (c *clientTestSuite) newClient(ec *fakeEClient) *Client {
	return NewClient(
		WithLogger(log.NewStdLogger(io.Discard)),
		withClientFactory(func(w ibapi.EWrapper) eclient {
			ec.w = w
			return ec
		}),
	)
}

func (c *clientTestSuite) connect() {
	c.Require().NoError(c.client.Connect(context.Background(), "127.0.0.1:7497", gateway.Identity{ClientID: 3}, c.handler))
}

func (c *clientTestSuite) TestConnect() {
	c.ec.onConnect = func(w ibapi.EWrapper) {
		w.NextValidID(1)
		w.ManagedAccounts([]string{"DU1", "DU2"})
	}
	c.handler.EXPECT().OnNextValidID(int64(1))
	c.handler.EXPECT().OnManagedAccounts([]string{"DU1", "DU2"})

	c.connect()
	c.Equal("127.0.0.1", c.ec.host)
	c.Equal(7497, c.ec.port)
	c.Equal(int64(3), c.ec.clientID)
	c.ErrorIs(c.client.Connect(context.Background(), "127.0.0.1:7497", gateway.Identity{}, c.handler), ErrAlreadyConnected)
}

func (c *clientTestSuite) TestConnectDefaultPort() {
	c.Require().NoError(c.client.Connect(context.Background(), "gateway.local", gateway.Identity{ClientID: 1}, c.handler))
	c.Equal("gateway.local", c.ec.host)
	c.Equal(defaultPort, c.ec.port)
}

func (c *clientTestSuite) TestConnectRefused() {
	c.ec.connectErr = errors.New("connect fail")
	err := c.client.Connect(context.Background(), "127.0.0.1:7497", gateway.Identity{}, c.handler)
	c.ErrorContains(err, "connect fail")
	c.ErrorIs(c.client.RequestIDs(1), ErrNotConnected)
}

func (c *clientTestSuite) TestConnectContextDone() {
	c.ec.block = make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.client.Connect(ctx, "127.0.0.1:7497", gateway.Identity{}, c.handler)
	c.ErrorIs(err, context.DeadlineExceeded)

	// 握手随后完成, 连接被断开且不会再回调 handler
	close(c.ec.block)
	c.Eventually(func() bool {
		c.ec.mu.Lock()
		defer c.ec.mu.Unlock()
		return c.ec.host != "" && !c.ec.connected
	}, time.Second, time.Millisecond)
}

func (c *clientTestSuite) TestNotConnected() {
	c.ErrorIs(c.client.RequestIDs(1), ErrNotConnected)
	c.ErrorIs(c.client.Send(gateway.KindOpenOrders, gateway.NoRequestID, gateway.OpenOrdersRequest{}), ErrNotConnected)
	c.ErrorIs(c.client.Stop(gateway.KindHistoricalBars, 1), ErrNotConnected)
	c.NoError(c.client.Close())
}

func (c *clientTestSuite) TestSendCommands() {
	c.connect()

	c.NoError(c.client.RequestIDs(1))
	c.NoError(c.client.Send(gateway.KindAccountSummary, 5, gateway.AccountSummaryRequest{Group: "All", Tags: "NetLiquidation"}))
	c.NoError(c.client.Send(gateway.KindAccountUpdates, 6, gateway.AccountUpdatesRequest{Subscribe: true, Account: "DU1"}))
	c.NoError(c.client.Send(gateway.KindOpenOrders, gateway.NoRequestID, gateway.OpenOrdersRequest{All: true}))
	c.NoError(c.client.Send(gateway.KindOpenOrders, gateway.NoRequestID, gateway.OpenOrdersRequest{}))
	c.NoError(c.client.Send(gateway.KindExecutions, 7, gateway.ExecutionsRequest{ClientID: 3, Account: "DU1", Symbol: "SPY", Side: "BUY"}))
	c.NoError(c.client.Send(gateway.KindHistoricalBars, 8, gateway.HistoricalBarsRequest{
		Symbol: "SPY", Duration: "1 D", BarSize: "1 hour", WhatToShow: "TRADES", UseRTH: true, FormatDate: 1,
	}))
	c.NoError(c.client.Send(gateway.KindGlobalCancel, gateway.NoRequestID, nil))

	c.Equal([]string{
		"ReqIDs 1",
		"ReqAccountSummary 5 All NetLiquidation",
		"ReqAccountUpdates true DU1",
		"ReqAllOpenOrders",
		"ReqOpenOrders",
		"ReqExecutions 7 client=3 acct=DU1 symbol=SPY side=BUY",
		"ReqHistoricalData 8 SPY STK SMART 1 D 1 hour TRADES true 1",
		"ReqGlobalCancel",
	}, c.ec.recorded())
}

func (c *clientTestSuite) TestSendRejects() {
	c.connect()
	c.ErrorIs(c.client.Send(gateway.KindAccountSummary, 1, "All"), ErrBadPayload)
	c.ErrorContains(c.client.Send(gateway.Kind("PLACE_ORDER"), 1, nil), "unsupported request kind")
	c.Empty(c.ec.recorded())
}

func (c *clientTestSuite) TestStop() {
	c.connect()
	c.NoError(c.client.Send(gateway.KindAccountUpdates, 6, gateway.AccountUpdatesRequest{Subscribe: true, Account: "DU2"}))

	c.NoError(c.client.Stop(gateway.KindAccountUpdates, 6))
	c.NoError(c.client.Stop(gateway.KindAccountSummary, 5))
	c.NoError(c.client.Stop(gateway.KindHistoricalBars, 8))
	c.NoError(c.client.Stop(gateway.KindExecutions, 7))
	c.NoError(c.client.Stop(gateway.KindOpenOrders, gateway.NoRequestID))

	c.Equal([]string{
		"ReqAccountUpdates true DU2",
		"ReqAccountUpdates false DU2",
		"CancelAccountSummary 5",
		"CancelHistoricalData 8",
	}, c.ec.recorded())
}

func (c *clientTestSuite) TestCloseIsActiveDisconnect() {
	c.connect()
	c.handler.EXPECT().OnDisconnected(nil)
	c.NoError(c.client.Close())
	c.NoError(c.client.Close())
}

func (c *clientTestSuite) TestRemoteClose() {
	c.connect()
	c.handler.EXPECT().OnDisconnected(ErrConnectionClosed).Times(1)
	c.ec.w.ConnectionClosed()
	c.ec.w.ConnectionClosed()
}

func (c *clientTestSuite) TestCallbacks() {
	c.connect()
	w := c.ec.w

	var rows []any
	c.handler.EXPECT().OnRow(gomock.Any(), gomock.Any(), gomock.Any()).Do(func(reqID int64, kind gateway.Kind, row any) {
		rows = append(rows, row)
	}).Times(7)
	gomock.InOrder(
		c.handler.EXPECT().OnStreamEnd(int64(5), gateway.KindAccountSummary),
		c.handler.EXPECT().OnStreamEnd(gateway.NoRequestID, gateway.KindAccountUpdates),
		c.handler.EXPECT().OnStreamEnd(gateway.NoRequestID, gateway.KindOpenOrders),
		c.handler.EXPECT().OnStreamEnd(int64(7), gateway.KindExecutions),
		c.handler.EXPECT().OnStreamEnd(int64(8), gateway.KindHistoricalBars),
	)
	c.handler.EXPECT().OnError(int64(8), int64(162), "Historical Market Data Service error message")

	w.AccountSummary(5, "DU1", "NetLiquidation", "1000", "USD")
	w.AccountSummaryEnd(5)

	contract := ibapi.NewContract()
	contract.Symbol = "SPY"
	contract.ConID = 756733
	w.UpdatePortfolio(contract, ibapi.StringToDecimal("10"), 500.5, 5005, 480, 205, 0, "DU1")
	w.UpdateAccountTime("10:30")
	w.AccountDownloadEnd("DU1")

	order := &ibapi.Order{OrderID: 9, PermID: 11, Action: "BUY", TotalQuantity: ibapi.StringToDecimal("2"), OrderType: "LMT", LmtPrice: 420.25, TIF: "DAY"}
	w.OpenOrder(9, contract, order, &ibapi.OrderState{Status: "Submitted"})
	w.OrderStatus(9, "Submitted", ibapi.ZERO, ibapi.StringToDecimal("2"), 0, 11, 0, 0, 3, "", 0)
	w.OpenOrderEnd()

	w.ExecDetails(7, contract, &ibapi.Execution{ExecID: "e1", AcctNumber: "DU1", Side: "BOT", Shares: ibapi.StringToDecimal("5"), Price: 501, CumQty: ibapi.UNSET_DECIMAL})
	w.ExecDetailsEnd(7)
	w.CommissionAndFeesReport(ibapi.CommissionAndFeesReport{ExecID: "e1", CommissionAndFees: 0.35, Currency: "USD", RealizedPNL: ibapi.UNSET_FLOAT})

	w.HistoricalData(8, &ibapi.Bar{Date: "20240102", Open: 1, High: 3, Low: 0.5, Close: 2, Volume: ibapi.StringToDecimal("100"), Wap: ibapi.StringToDecimal("1.75"), BarCount: 12})
	w.Error(8, 0, 162, "Historical Market Data Service error message", "")
	w.HistoricalDataEnd(8, "", "")

	c.Require().Len(rows, 7)
	c.Equal(model.AccountSummary{Account: "DU1", Tag: "NetLiquidation", Value: "1000", Currency: "USD"}, rows[0])

	item := rows[1].(model.PortfolioItem)
	c.Equal("SPY", item.Contract.Symbol)
	c.Equal(int64(756733), item.Contract.ConID)
	c.True(item.Contract.Strike.IsZero())
	c.True(item.Position.Equal(decimal.NewFromInt(10)))
	c.True(item.MarketPrice.Equal(decimal.RequireFromString("500.5")))

	oo := rows[2].(model.OpenOrder)
	c.Equal(int64(9), oo.OrderID)
	c.Equal("Submitted", oo.Status)
	c.Equal("DAY", oo.Tif)
	c.True(oo.TotalQuantity.Equal(decimal.NewFromInt(2)))
	c.True(oo.LmtPrice.Equal(decimal.RequireFromString("420.25")))

	st := rows[3].(model.OrderStatus)
	c.True(st.Filled.IsZero())
	c.True(st.Remaining.Equal(decimal.NewFromInt(2)))
	c.Equal(int64(3), st.ClientID)

	exec := rows[4].(model.Execution)
	c.Equal("DU1", exec.Account)
	c.True(exec.Shares.Equal(decimal.NewFromInt(5)))
	c.True(exec.CumQty.IsZero())

	report := rows[5].(model.CommissionReport)
	c.True(report.Commission.Equal(decimal.RequireFromString("0.35")))
	c.True(report.RealizedPNL.IsZero())

	bar := rows[6].(model.Bar)
	c.Equal("20240102", bar.Date)
	c.True(bar.WAP.Equal(decimal.RequireFromString("1.75")))
	c.Equal(int64(12), bar.BarCount)
}

// 经过 bridge 的完整请求: EClient 命令触发回调, 会话按请求ID收集结果
func (c *clientTestSuite) TestSessionHistoricalBars() {
	ec := &fakeEClient{}
	ec.onConnect = func(w ibapi.EWrapper) { w.NextValidID(100) }
	ec.onRequest = func(w ibapi.EWrapper, call string) {
		var reqID int64
		if _, err := fmt.Sscanf(call, "ReqHistoricalData %d", &reqID); err != nil {
			return
		}
		go func() {
			w.HistoricalData(reqID, &ibapi.Bar{Date: "20240102", Open: 1, Close: 2, Volume: ibapi.ZERO, Wap: ibapi.ZERO})
			w.HistoricalData(reqID, &ibapi.Bar{Date: "20240103", Open: 2, Close: 3, Volume: ibapi.ZERO, Wap: ibapi.ZERO})
			w.HistoricalDataEnd(reqID, "", "")
		}()
	}
	client := c.newClient(ec)
	s := bridge.NewSession(client, bridge.WithLogger(log.NewStdLogger(io.Discard)), bridge.WithLimiter(limiter.Unlimited{}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c.Require().NoError(s.Connect(ctx, "127.0.0.1:7497", gateway.Identity{ClientID: 4}))
	c.Require().NoError(s.AwaitReady(ctx))

	bars, err := s.GetHistoricalBars(ctx, gateway.HistoricalBarsRequest{Symbol: "SPY", Duration: "2 D", BarSize: "1 day", WhatToShow: "TRADES"})
	c.Require().NoError(err)
	c.Require().Len(bars, 2)
	c.True(bars[1].IsUp())

	c.NoError(s.Disconnect())
	c.False(ec.IsConnected())
}
