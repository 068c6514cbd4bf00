package ibgateway

import (
	"sync"
	"sync/atomic"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/pkg/errors"
	"github.com/scmhub/ibapi"

	"github.com/go-gotop/ibkit/gateway"
	"github.com/go-gotop/ibkit/model"
)

// ErrConnectionClosed TWS 端关闭了连接
var ErrConnectionClosed = errors.New("tws connection closed")

var _ ibapi.EWrapper = (*wrapper)(nil)

// wrapper 把 EWrapper 回调转换为 gateway.Handler 事件.
// 回调都在 EReader 协程中投递, 其余回调沿用 ibapi.Wrapper 的默认实现.
type wrapper struct {
	ibapi.Wrapper

	h   gateway.Handler
	log *log.Helper

	detached  atomic.Bool // 连接被放弃后不再投递
	closing   atomic.Bool // 主动断开
	closeOnce sync.Once
}

func newWrapper(h gateway.Handler, logger *log.Helper) *wrapper {
	return &wrapper{h: h, log: logger}
}

func (w *wrapper) live() bool {
	return !w.detached.Load()
}

func (w *wrapper) ConnectAck() {
	w.log.Debug("tws connect ack")
}

func (w *wrapper) ConnectionClosed() {
	if !w.live() {
		return
	}
	w.closeOnce.Do(func() {
		var err error
		if !w.closing.Load() {
			err = ErrConnectionClosed
		}
		w.h.OnDisconnected(err)
	})
}

func (w *wrapper) NextValidID(reqID int64) {
	if w.live() {
		w.h.OnNextValidID(reqID)
	}
}

func (w *wrapper) ManagedAccounts(accountsList []string) {
	if w.live() {
		w.h.OnManagedAccounts(accountsList)
	}
}

func (w *wrapper) Error(reqID int64, errorTimeMs int64, errCode int64, errString string, advancedOrderRejectJson string) {
	if !w.live() {
		return
	}
	if advancedOrderRejectJson != "" {
		w.log.Debugf("reqId=%d code=%d advanced reject: %s", reqID, errCode, advancedOrderRejectJson)
	}
	w.h.OnError(reqID, errCode, errString)
}

func (w *wrapper) AccountSummary(reqID int64, account string, tag string, value string, currency string) {
	if w.live() {
		w.h.OnRow(reqID, gateway.KindAccountSummary, model.AccountSummary{Account: account, Tag: tag, Value: value, Currency: currency})
	}
}

func (w *wrapper) AccountSummaryEnd(reqID int64) {
	if w.live() {
		w.h.OnStreamEnd(reqID, gateway.KindAccountSummary)
	}
}

func (w *wrapper) UpdateAccountValue(tag string, value string, currency string, accountName string) {
	if w.live() {
		w.h.OnRow(gateway.NoRequestID, gateway.KindAccountUpdates, model.AccountValue{Account: accountName, Key: tag, Value: value, Currency: currency})
	}
}

func (w *wrapper) UpdatePortfolio(contract *ibapi.Contract, position ibapi.Decimal, marketPrice float64, marketValue float64, averageCost float64, unrealizedPNL float64, realizedPNL float64, accountName string) {
	if !w.live() {
		return
	}
	w.h.OnRow(gateway.NoRequestID, gateway.KindAccountUpdates, model.PortfolioItem{
		Contract:      toModelContract(contract),
		Account:       accountName,
		Position:      fromDecimal(position),
		MarketPrice:   fromFloat(marketPrice),
		MarketValue:   fromFloat(marketValue),
		AverageCost:   fromFloat(averageCost),
		UnrealizedPNL: fromFloat(unrealizedPNL),
		RealizedPNL:   fromFloat(realizedPNL),
	})
}

func (w *wrapper) UpdateAccountTime(timeStamp string) {
	w.log.Debugf("account time %s", timeStamp)
}

func (w *wrapper) AccountDownloadEnd(accountName string) {
	if w.live() {
		w.h.OnStreamEnd(gateway.NoRequestID, gateway.KindAccountUpdates)
	}
}

func (w *wrapper) OpenOrder(orderID int64, contract *ibapi.Contract, order *ibapi.Order, orderState *ibapi.OrderState) {
	if w.live() {
		w.h.OnRow(gateway.NoRequestID, gateway.KindOpenOrders, toOpenOrder(orderID, contract, order, orderState))
	}
}

func (w *wrapper) OpenOrderEnd() {
	if w.live() {
		w.h.OnStreamEnd(gateway.NoRequestID, gateway.KindOpenOrders)
	}
}

func (w *wrapper) OrderStatus(orderID int64, status string, filled ibapi.Decimal, remaining ibapi.Decimal, avgFillPrice float64, permID int64, parentID int64, lastFillPrice float64, clientID int64, whyHeld string, mktCapPrice float64) {
	if !w.live() {
		return
	}
	w.h.OnRow(gateway.NoRequestID, gateway.KindOpenOrders, model.OrderStatus{
		PermID:        permID,
		ClientID:      clientID,
		OrderID:       orderID,
		Status:        status,
		Filled:        fromDecimal(filled),
		Remaining:     fromDecimal(remaining),
		AvgFillPrice:  fromFloat(avgFillPrice),
		LastFillPrice: fromFloat(lastFillPrice),
	})
}

func (w *wrapper) ExecDetails(reqID int64, contract *ibapi.Contract, execution *ibapi.Execution) {
	if w.live() && execution != nil {
		w.h.OnRow(reqID, gateway.KindExecutions, toExecution(contract, execution))
	}
}

func (w *wrapper) ExecDetailsEnd(reqID int64) {
	if w.live() {
		w.h.OnStreamEnd(reqID, gateway.KindExecutions)
	}
}

// CommissionAndFeesReport 不带请求ID, 按 execId 与成交合并
func (w *wrapper) CommissionAndFeesReport(commissionAndFeesReport ibapi.CommissionAndFeesReport) {
	if w.live() {
		w.h.OnRow(gateway.NoRequestID, gateway.KindExecutions, toCommissionReport(commissionAndFeesReport))
	}
}

func (w *wrapper) HistoricalData(reqID int64, bar *ibapi.Bar) {
	if w.live() && bar != nil {
		w.h.OnRow(reqID, gateway.KindHistoricalBars, toBar(bar))
	}
}

func (w *wrapper) HistoricalDataEnd(reqID int64, startDateStr string, endDateStr string) {
	if w.live() {
		w.h.OnStreamEnd(reqID, gateway.KindHistoricalBars)
	}
}
