package bridge

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/go-gotop/ibkit/gateway"
	mock_gateway "github.com/go-gotop/ibkit/gateway/mock"
	"github.com/go-gotop/ibkit/limiter"
	"github.com/go-gotop/ibkit/model"
)

const testAddress = "127.0.0.1:7497"

func TestBridgeSuite(t *testing.T) {
	suite.Run(t, new(bridgeTestSuite))
}

type bridgeTestSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	client  *mock_gateway.MockClient
	session *Session
}

func (b *bridgeTestSuite) SetupTest() {
	b.ctrl = gomock.NewController(b.T())
	b.client = mock_gateway.NewMockClient(b.ctrl)
	b.session = b.newSession()
}

func (b *bridgeTestSuite) newSession(opts ...Option) *Session {
	opts = append([]Option{
		WithLogger(log.NewStdLogger(io.Discard)),
		WithLimiter(limiter.Unlimited{}),
		WithDisconnectGrace(50 * time.Millisecond),
	}, opts...)
	return NewSession(b.client, opts...)
}

// connect 建立连接并投递首个ID
func (b *bridgeTestSuite) connect(s *Session, firstID int64) {
	b.client.EXPECT().Connect(gomock.Any(), testAddress, gomock.Any(), s).Return(nil)
	b.Require().NoError(s.Connect(context.Background(), testAddress, gateway.Identity{ClientID: 1}))
	b.Equal(StateAwaitingFirstID, s.State())
	s.OnNextValidID(firstID)
	b.Require().NoError(s.AwaitReady(context.Background()))
}

func (b *bridgeTestSuite) ctx(d time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	b.T().Cleanup(cancel)
	return ctx
}

func (b *bridgeTestSuite) waitPending(s *Session, n int) {
	b.Require().Eventually(func() bool { return s.Pending() == n }, time.Second, time.Millisecond)
}

func bar(close int64) model.Bar {
	return model.Bar{Open: decimal.NewFromInt(close - 1), Close: decimal.NewFromInt(close)}
}

func (b *bridgeTestSuite) TestConnectRefused() {
	b.client.EXPECT().Connect(gomock.Any(), testAddress, gomock.Any(), b.session).Return(errors.New("connection refused"))

	err := b.session.Connect(context.Background(), testAddress, gateway.Identity{ClientID: 1})
	b.ErrorIs(err, gateway.ErrConnection)
	b.Equal(StateDisconnected, b.session.State())
	b.ErrorIs(b.session.AwaitReady(b.ctx(time.Second)), gateway.ErrConnection)
}

func (b *bridgeTestSuite) TestConnectTwice() {
	b.connect(b.session, 1)
	b.ErrorIs(b.session.Connect(context.Background(), testAddress, gateway.Identity{}), ErrAlreadyConnected)
}

func (b *bridgeTestSuite) TestReadinessTimeout() {
	b.client.EXPECT().Connect(gomock.Any(), testAddress, gomock.Any(), b.session).Return(nil)
	b.Require().NoError(b.session.Connect(context.Background(), testAddress, gateway.Identity{ClientID: 1}))

	err := b.session.AwaitReady(b.ctx(30 * time.Millisecond))
	b.ErrorIs(err, gateway.ErrReadinessTimeout)
	b.ErrorIs(err, context.DeadlineExceeded)
	b.False(b.session.IsConnected())
}

func (b *bridgeTestSuite) TestLostBeforeReady() {
	b.client.EXPECT().Connect(gomock.Any(), testAddress, gomock.Any(), b.session).Return(nil)
	b.Require().NoError(b.session.Connect(context.Background(), testAddress, gateway.Identity{ClientID: 1}))

	go b.session.OnDisconnected(io.EOF)
	b.ErrorIs(b.session.AwaitReady(b.ctx(time.Second)), gateway.ErrConnection)
	b.Equal(StateDisconnected, b.session.State())
}

func (b *bridgeTestSuite) TestFirstIDRoutesToReadiness() {
	b.client.EXPECT().Connect(gomock.Any(), testAddress, gomock.Any(), b.session).Return(nil)
	b.Require().NoError(b.session.Connect(context.Background(), testAddress, gateway.Identity{ClientID: 1}))

	b.client.EXPECT().RequestIDs(1).DoAndReturn(func(int) error {
		go b.session.OnNextValidID(42)
		return nil
	})

	type result struct {
		id  int64
		err error
	}
	out := make(chan result, 1)
	go func() {
		id, err := b.session.NextRequestID(b.ctx(time.Second))
		out <- result{id, err}
	}()

	// 早于首个ID发出的调用不能拿走首个ID
	time.Sleep(10 * time.Millisecond)
	b.session.OnNextValidID(7)

	r := <-out
	b.NoError(r.err)
	b.Equal(int64(42), r.id)
	b.True(b.session.IsConnected())
}

func (b *bridgeTestSuite) TestNextRequestIDSequential() {
	b.connect(b.session, 1)
	next := int64(100)
	b.client.EXPECT().RequestIDs(1).DoAndReturn(func(int) error {
		id := next
		next++
		go b.session.OnNextValidID(id)
		return nil
	}).Times(2)

	id, err := b.session.GetNextID(b.ctx(time.Second))
	b.NoError(err)
	b.Equal(int64(100), id)
	id, err = b.session.GetNextID(b.ctx(time.Second))
	b.NoError(err)
	b.Equal(int64(101), id)
}

// 等待ID闸门期间断开, 拿到闸门后不能再发请求或等到超时
func (b *bridgeTestSuite) TestNextRequestIDLostWhileQueued() {
	b.connect(b.session, 1)
	entered := make(chan struct{})
	release := make(chan struct{})
	b.client.EXPECT().RequestIDs(1).DoAndReturn(func(int) error {
		close(entered)
		<-release
		b.session.OnDisconnected(io.EOF)
		return nil
	}).Times(1)

	first := make(chan error, 1)
	go func() {
		_, err := b.session.NextRequestID(b.ctx(time.Second))
		first <- err
	}()
	<-entered

	queued := make(chan error, 1)
	go func() {
		_, err := b.session.NextRequestID(b.ctx(time.Second))
		queued <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	b.ErrorIs(<-first, gateway.ErrConnectionLost)
	select {
	case err := <-queued:
		b.ErrorIs(err, gateway.ErrConnectionLost)
		b.NotErrorIs(err, gateway.ErrRequestTimeout)
	case <-time.After(500 * time.Millisecond):
		b.Fail("queued NextRequestID did not observe the lost connection")
	}
}

func (b *bridgeTestSuite) TestSentinelErrorKeepsCause() {
	b.client.EXPECT().Connect(gomock.Any(), testAddress, gomock.Any(), b.session).Return(io.ErrUnexpectedEOF)

	err := b.session.Connect(context.Background(), testAddress, gateway.Identity{ClientID: 1})
	b.ErrorIs(err, gateway.ErrConnection)
	b.ErrorIs(err, io.ErrUnexpectedEOF)
	b.Equal(gateway.ErrConnection.Error()+": "+testAddress+": "+io.ErrUnexpectedEOF.Error(), err.Error())
}

func (b *bridgeTestSuite) TestInterleavedHistoricalBars() {
	b.connect(b.session, 1)
	b.client.EXPECT().Send(gateway.KindHistoricalBars, gomock.Any(), gomock.Any()).Return(nil).Times(3)

	results := make([][]model.Bar, 4)
	errs := make([]error, 4)
	var wg sync.WaitGroup
	for id := int64(1); id <= 3; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			results[id], errs[id] = b.session.GetHistoricalBars(b.ctx(time.Second),
				gateway.HistoricalBarsRequest{Symbol: "SPY"}, WithRequestID(id))
		}(id)
	}
	b.waitPending(b.session, 3)

	b.session.OnRow(2, gateway.KindHistoricalBars, bar(20))
	b.session.OnRow(1, gateway.KindHistoricalBars, bar(10))
	b.session.OnRow(3, gateway.KindHistoricalBars, bar(30))
	b.session.OnRow(2, gateway.KindHistoricalBars, bar(21))
	b.session.OnStreamEnd(2, gateway.KindHistoricalBars)
	b.session.OnStreamEnd(1, gateway.KindHistoricalBars)
	b.session.OnStreamEnd(3, gateway.KindHistoricalBars)
	wg.Wait()

	for id := 1; id <= 3; id++ {
		b.NoError(errs[id])
	}
	b.Equal([]model.Bar{bar(10)}, results[1])
	b.Equal([]model.Bar{bar(20), bar(21)}, results[2])
	b.Equal([]model.Bar{bar(30)}, results[3])
	b.Zero(b.session.Pending())
}

func (b *bridgeTestSuite) TestGatewayError() {
	b.connect(b.session, 1)
	b.client.EXPECT().Send(gateway.KindHistoricalBars, int64(7), gomock.Any()).DoAndReturn(func(gateway.Kind, int64, any) error {
		go func() {
			b.session.OnRow(7, gateway.KindHistoricalBars, bar(1))
			b.session.OnError(7, 202, "cancelled")
		}()
		return nil
	})

	bars, err := b.session.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{Symbol: "SPY"}, WithRequestID(7))
	b.Nil(bars)
	b.True(gateway.IsGatewayError(err))
	var gerr *gateway.GatewayError
	b.Require().True(errors.As(err, &gerr))
	b.Equal(int64(202), gerr.Code)
	b.Equal(int64(7), gerr.RequestID)
	b.Equal("cancelled", gerr.Message)
	b.Zero(b.session.Pending())
	b.Zero(b.session.rows.Len())
}

func (b *bridgeTestSuite) TestWarningAndNoticeDoNotFail() {
	b.connect(b.session, 1)
	b.client.EXPECT().Send(gateway.KindAccountSummary, int64(1), gomock.Any()).DoAndReturn(func(gateway.Kind, int64, any) error {
		go func() {
			b.session.OnError(gateway.NoRequestID, 2104, "Market data farm connection is OK")
			b.session.OnError(1, 2106, "HMDS data farm connection is OK")
			b.session.OnRow(1, gateway.KindAccountSummary, model.AccountSummary{Account: "DU1", Tag: "NetLiquidation", Value: "100"})
			b.session.OnStreamEnd(1, gateway.KindAccountSummary)
		}()
		return nil
	})

	rows, err := b.session.GetAccountSummary(b.ctx(time.Second), "", "")
	b.NoError(err)
	b.Len(rows, 1)
	b.Equal("NetLiquidation", rows[0].Tag)
}

func (b *bridgeTestSuite) TestCustomWarningCode() {
	s := b.newSession(WithWarningCodes(399))
	b.connect(s, 1)
	b.client.EXPECT().Send(gateway.KindHistoricalBars, int64(1), gomock.Any()).DoAndReturn(func(gateway.Kind, int64, any) error {
		go func() {
			s.OnError(1, 399, "order message")
			s.OnStreamEnd(1, gateway.KindHistoricalBars)
		}()
		return nil
	})

	bars, err := s.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{})
	b.NoError(err)
	b.NotNil(bars)
	b.Empty(bars)
}

func (b *bridgeTestSuite) TestEmptyResult() {
	b.connect(b.session, 5)
	b.client.EXPECT().Send(gateway.KindAccountSummary, int64(5), gateway.AccountSummaryRequest{Group: GroupAll, Tags: "NetLiquidation"}).
		DoAndReturn(func(gateway.Kind, int64, any) error {
			go b.session.OnStreamEnd(5, gateway.KindAccountSummary)
			return nil
		})

	rows, err := b.session.GetAccountSummary(b.ctx(time.Second), "", "NetLiquidation")
	b.NoError(err)
	b.NotNil(rows)
	b.Empty(rows)
}

func (b *bridgeTestSuite) TestLocalIDAllocation() {
	b.connect(b.session, 10)
	var ids []int64
	b.client.EXPECT().Send(gateway.KindHistoricalBars, gomock.Any(), gomock.Any()).DoAndReturn(func(_ gateway.Kind, id int64, _ any) error {
		ids = append(ids, id)
		go b.session.OnStreamEnd(id, gateway.KindHistoricalBars)
		return nil
	}).Times(2)

	_, err := b.session.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{})
	b.NoError(err)
	_, err = b.session.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{})
	b.NoError(err)
	b.Equal([]int64{10, 11}, ids)
}

func (b *bridgeTestSuite) TestStreamEndStopsBeforeSignal() {
	b.connect(b.session, 1)
	var stopped atomic.Int32
	b.client.EXPECT().Send(gateway.KindAccountUpdates, gomock.Any(), gateway.AccountUpdatesRequest{Subscribe: true, Account: "DU123"}).
		DoAndReturn(func(gateway.Kind, int64, any) error {
			go func() {
				b.session.OnRow(gateway.NoRequestID, gateway.KindAccountUpdates, model.AccountValue{Account: "DU123", Key: "CashBalance", Value: "1000"})
				b.session.OnRow(gateway.NoRequestID, gateway.KindAccountUpdates, &model.PortfolioItem{Account: "DU123", Contract: model.Contract{Symbol: "SPY"}})
				b.session.OnStreamEnd(gateway.NoRequestID, gateway.KindAccountUpdates)
				// 重复的结束回调不会再次停止
				b.session.OnStreamEnd(gateway.NoRequestID, gateway.KindAccountUpdates)
			}()
			return nil
		})
	b.client.EXPECT().Stop(gateway.KindAccountUpdates, int64(1)).DoAndReturn(func(gateway.Kind, int64) error {
		stopped.Add(1)
		return nil
	}).Times(1)

	updates, err := b.session.StreamAccountUpdates(b.ctx(time.Second), "DU123")
	b.Require().NoError(err)
	b.Equal(int32(1), stopped.Load())
	b.Equal("DU123", updates.Account)
	b.Len(updates.Values, 1)
	b.Require().Len(updates.Portfolio, 1)
	b.Equal("SPY", updates.Portfolio[0].Contract.Symbol)
}

func (b *bridgeTestSuite) TestAccountUpdatesDefaultAccount() {
	b.connect(b.session, 1)
	b.session.OnManagedAccounts([]string{"DU9", ""})
	b.client.EXPECT().Send(gateway.KindAccountUpdates, gomock.Any(), gateway.AccountUpdatesRequest{Subscribe: true, Account: "DU9"}).
		DoAndReturn(func(gateway.Kind, int64, any) error {
			go b.session.OnStreamEnd(gateway.NoRequestID, gateway.KindAccountUpdates)
			return nil
		})
	b.client.EXPECT().Stop(gateway.KindAccountUpdates, gomock.Any()).Return(nil)

	updates, err := b.session.StreamAccountUpdates(b.ctx(time.Second), "")
	b.Require().NoError(err)
	b.Equal("DU9", updates.Account)
}

func (b *bridgeTestSuite) TestTimeoutThenSuccess() {
	b.connect(b.session, 1)
	b.client.EXPECT().Send(gateway.KindHistoricalBars, int64(1), gomock.Any()).Return(nil)
	b.client.EXPECT().Stop(gateway.KindHistoricalBars, int64(1)).Return(nil)

	bars, err := b.session.GetHistoricalBars(b.ctx(30*time.Millisecond), gateway.HistoricalBarsRequest{}, WithRequestID(1))
	b.Nil(bars)
	b.ErrorIs(err, gateway.ErrRequestTimeout)
	b.ErrorIs(err, context.DeadlineExceeded)
	b.Zero(b.session.Pending())

	// 迟到的回调被丢弃
	b.session.OnRow(1, gateway.KindHistoricalBars, bar(1))
	b.session.OnStreamEnd(1, gateway.KindHistoricalBars)
	b.Zero(b.session.rows.Len())

	b.client.EXPECT().Send(gateway.KindHistoricalBars, int64(2), gomock.Any()).DoAndReturn(func(gateway.Kind, int64, any) error {
		go func() {
			b.session.OnRow(2, gateway.KindHistoricalBars, bar(5))
			b.session.OnStreamEnd(2, gateway.KindHistoricalBars)
		}()
		return nil
	})
	bars, err = b.session.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{}, WithRequestID(2))
	b.NoError(err)
	b.Equal([]model.Bar{bar(5)}, bars)
}

func (b *bridgeTestSuite) TestTimeoutWithoutStop() {
	b.connect(b.session, 1)
	// 成交查询超时不需要停止请求
	b.client.EXPECT().Send(gateway.KindExecutions, int64(1), gomock.Any()).Return(nil)

	_, err := b.session.ListExecutions(b.ctx(30*time.Millisecond), gateway.ExecutionsRequest{})
	b.ErrorIs(err, gateway.ErrRequestTimeout)
}

func (b *bridgeTestSuite) TestCancelledContext() {
	b.connect(b.session, 1)
	b.client.EXPECT().Send(gateway.KindExecutions, int64(1), gomock.Any()).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		b.waitPending(b.session, 1)
		cancel()
	}()
	_, err := b.session.ListExecutions(ctx, gateway.ExecutionsRequest{})
	b.ErrorIs(err, context.Canceled)
	b.NotErrorIs(err, gateway.ErrRequestTimeout)
}

func (b *bridgeTestSuite) TestDuplicateRequestID() {
	b.connect(b.session, 1)
	b.client.EXPECT().Send(gateway.KindHistoricalBars, int64(3), gomock.Any()).Return(nil)

	done := make(chan error, 1)
	go func() {
		_, err := b.session.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{}, WithRequestID(3))
		done <- err
	}()
	b.waitPending(b.session, 1)

	_, err := b.session.GetAccountSummary(b.ctx(time.Second), "", "", WithRequestID(3))
	b.ErrorIs(err, ErrDuplicateRequest)

	b.session.OnStreamEnd(3, gateway.KindHistoricalBars)
	b.NoError(<-done)
}

func (b *bridgeTestSuite) TestStreamBusy() {
	b.connect(b.session, 1)
	b.client.EXPECT().Send(gateway.KindOpenOrders, int64(1), gateway.OpenOrdersRequest{All: true}).Return(nil)
	b.client.EXPECT().Stop(gateway.KindOpenOrders, int64(1)).Return(nil)

	done := make(chan *OpenOrders, 1)
	go func() {
		orders, err := b.session.ListOpenOrders(b.ctx(time.Second))
		b.NoError(err)
		done <- orders
	}()
	b.waitPending(b.session, 1)

	_, err := b.session.ListOpenOrders(b.ctx(time.Second))
	b.ErrorIs(err, ErrStreamBusy)

	b.session.OnRow(gateway.NoRequestID, gateway.KindOpenOrders, model.OpenOrder{OrderID: 4, Status: "Submitted"})
	b.session.OnRow(gateway.NoRequestID, gateway.KindOpenOrders, model.OrderStatus{OrderID: 4, Status: "Submitted"})
	b.session.OnStreamEnd(gateway.NoRequestID, gateway.KindOpenOrders)

	orders := <-done
	b.Require().NotNil(orders)
	b.Len(orders.Orders, 1)
	b.Len(orders.Statuses, 1)
}

func (b *bridgeTestSuite) TestExecutionsGracePeriod() {
	s := b.newSession(WithGracePeriod(gateway.KindExecutions, 50*time.Millisecond))
	b.connect(s, 1)
	b.client.EXPECT().Send(gateway.KindExecutions, int64(1), gomock.Any()).DoAndReturn(func(gateway.Kind, int64, any) error {
		go func() {
			s.OnRow(1, gateway.KindExecutions, model.Execution{ExecID: "e1", Shares: decimal.NewFromInt(10)})
			s.OnRow(1, gateway.KindExecutions, model.Execution{ExecID: "e2", Shares: decimal.NewFromInt(5)})
			s.OnStreamEnd(1, gateway.KindExecutions)
			// 佣金报告在结束回调之后到达, 不携带请求ID
			s.OnRow(gateway.NoRequestID, gateway.KindExecutions, model.CommissionReport{ExecID: "e1", Commission: decimal.NewFromFloat(1.5)})
		}()
		return nil
	})

	execs, err := s.ListExecutions(b.ctx(time.Second), gateway.ExecutionsRequest{Symbol: "SPY"})
	b.Require().NoError(err)
	b.Len(execs.Executions, 2)
	b.Len(execs.Commissions, 1)

	fills := execs.Fills()
	b.Require().Len(fills, 2)
	b.Equal("e1", fills[0].ExecID)
	b.True(fills[0].Complete())
	b.False(fills[1].Complete())
}

func (b *bridgeTestSuite) TestAmbiguousNoRequestIDDropped() {
	b.connect(b.session, 1)
	b.client.EXPECT().Send(gateway.KindExecutions, gomock.Any(), gomock.Any()).Return(nil).Times(2)

	var wg sync.WaitGroup
	results := make([]*Executions, 3)
	for id := int64(1); id <= 2; id++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			execs, err := b.session.ListExecutions(b.ctx(time.Second), gateway.ExecutionsRequest{}, WithRequestID(id))
			b.NoError(err)
			results[id] = execs
		}(id)
	}
	b.waitPending(b.session, 2)

	b.session.OnRow(gateway.NoRequestID, gateway.KindExecutions, model.CommissionReport{ExecID: "x"})
	b.session.OnRow(1, gateway.KindExecutions, model.Execution{ExecID: "a"})
	b.session.OnRow(2, gateway.KindExecutions, model.Execution{ExecID: "b"})
	b.session.OnStreamEnd(1, gateway.KindExecutions)
	b.session.OnStreamEnd(2, gateway.KindExecutions)
	wg.Wait()

	for id := 1; id <= 2; id++ {
		b.Require().NotNil(results[id])
		b.Len(results[id].Executions, 1)
		b.Empty(results[id].Commissions)
	}
}

func (b *bridgeTestSuite) TestConnectionLost() {
	b.connect(b.session, 1)
	b.client.EXPECT().Send(gateway.KindHistoricalBars, int64(1), gomock.Any()).DoAndReturn(func(gateway.Kind, int64, any) error {
		go b.session.OnDisconnected(io.ErrUnexpectedEOF)
		return nil
	})

	_, err := b.session.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{}, WithRequestID(1))
	b.ErrorIs(err, gateway.ErrConnectionLost)
	b.Equal(StateDisconnected, b.session.State())

	_, err = b.session.GetAccountSummary(b.ctx(time.Second), "", "")
	b.ErrorIs(err, gateway.ErrConnectionLost)
}

func (b *bridgeTestSuite) TestDisconnectFailsPending() {
	b.connect(b.session, 1)
	b.client.EXPECT().Send(gateway.KindHistoricalBars, int64(1), gomock.Any()).Return(nil)
	b.client.EXPECT().Close().DoAndReturn(func() error {
		go b.session.OnDisconnected(nil)
		return nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := b.session.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{}, WithRequestID(1))
		done <- err
	}()
	b.waitPending(b.session, 1)

	b.NoError(b.session.Disconnect())
	b.ErrorIs(<-done, gateway.ErrSessionClosed)
	b.Equal(StateDisconnected, b.session.State())
	// 重复断开不再关闭连接
	b.NoError(b.session.Disconnect())

	_, err := b.session.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{})
	b.ErrorIs(err, gateway.ErrSessionClosed)
}

func (b *bridgeTestSuite) TestReconnectAfterDisconnect() {
	b.connect(b.session, 1)
	b.client.EXPECT().Close().Return(nil)
	b.NoError(b.session.Disconnect())

	b.connect(b.session, 50)
	b.client.EXPECT().Send(gateway.KindHistoricalBars, int64(50), gomock.Any()).DoAndReturn(func(gateway.Kind, int64, any) error {
		go b.session.OnStreamEnd(50, gateway.KindHistoricalBars)
		return nil
	})
	_, err := b.session.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{})
	b.NoError(err)
}

func (b *bridgeTestSuite) TestGlobalCancel() {
	b.connect(b.session, 1)
	gomock.InOrder(
		b.client.EXPECT().Send(gateway.KindGlobalCancel, gateway.NoRequestID, nil).Return(nil),
		b.client.EXPECT().RequestIDs(1).DoAndReturn(func(int) error {
			go b.session.OnNextValidID(11)
			return nil
		}),
	)
	b.NoError(b.session.GlobalCancel(b.ctx(time.Second)))
}

func (b *bridgeTestSuite) TestUnknownKind() {
	b.connect(b.session, 1)
	_, err := b.session.Call(b.ctx(time.Second), gateway.Kind("NEWS"), nil)
	b.ErrorIs(err, ErrUnknownKind)
	_, err = b.session.Call(b.ctx(time.Second), gateway.KindGlobalCancel, nil)
	b.ErrorIs(err, ErrUnknownKind)
}

func (b *bridgeTestSuite) TestSendFailure() {
	b.connect(b.session, 1)
	b.client.EXPECT().Send(gateway.KindHistoricalBars, int64(1), gomock.Any()).Return(errors.New("broken pipe"))

	_, err := b.session.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{})
	b.ErrorContains(err, "broken pipe")
	b.Zero(b.session.Pending())
	b.Zero(b.session.rows.Len())
}

func (b *bridgeTestSuite) TestCallSpan() {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	s := b.newSession(WithTracerProvider(tp))
	b.connect(s, 1)
	b.client.EXPECT().Send(gateway.KindHistoricalBars, int64(1), gomock.Any()).DoAndReturn(func(gateway.Kind, int64, any) error {
		go s.OnError(1, 162, "Historical Market Data Service error message")
		return nil
	})

	_, err := s.GetHistoricalBars(b.ctx(time.Second), gateway.HistoricalBarsRequest{})
	b.Error(err)

	spans := sr.Ended()
	b.Require().Len(spans, 1)
	b.Equal("bridge.HISTORICAL_BARS", spans[0].Name())
	b.Equal(codes.Error, spans[0].Status().Code)
	var found bool
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "ibkit.request_id" {
			found = true
			b.Equal(int64(1), kv.Value.AsInt64())
		}
	}
	b.True(found)
}
