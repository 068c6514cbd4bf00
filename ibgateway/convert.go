package ibgateway

import (
	"math"

	"github.com/scmhub/ibapi"
	"github.com/shopspring/decimal"

	"github.com/go-gotop/ibkit/gateway"
	"github.com/go-gotop/ibkit/model"
)

// fromFloat UNSET_FLOAT 和非法值视为 0
func fromFloat(v float64) decimal.Decimal {
	if v == ibapi.UNSET_FLOAT || math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// fromDecimal UNSET_DECIMAL 为 NaN, 视为 0
func fromDecimal(d ibapi.Decimal) decimal.Decimal {
	v, err := decimal.NewFromString(d.String())
	if err != nil {
		return decimal.Zero
	}
	return v
}

func toModelContract(c *ibapi.Contract) model.Contract {
	if c == nil {
		return model.Contract{}
	}
	return model.Contract{
		ConID:                        c.ConID,
		Symbol:                       c.Symbol,
		SecType:                      c.SecType,
		LastTradeDateOrContractMonth: c.LastTradeDateOrContractMonth,
		Strike:                       fromFloat(c.Strike),
		Right:                        c.Right,
		Multiplier:                   c.Multiplier,
		Exchange:                     c.Exchange,
		PrimaryExchange:              c.PrimaryExchange,
		Currency:                     c.Currency,
	}
}

// toContract 历史K线请求的合约, 缺省为 SMART 路由的美股
func toContract(req gateway.HistoricalBarsRequest) *ibapi.Contract {
	c := ibapi.NewContract()
	c.Symbol = req.Symbol
	c.SecType = orDefault(req.SecType, "STK")
	c.Currency = orDefault(req.Currency, "USD")
	c.Exchange = orDefault(req.Exchange, "SMART")
	c.PrimaryExchange = req.PrimaryExchange
	return c
}

func toExecutionFilter(req gateway.ExecutionsRequest) *ibapi.ExecutionFilter {
	f := ibapi.NewExecutionFilter()
	f.ClientID = req.ClientID
	f.AcctCode = req.Account
	f.Symbol = req.Symbol
	f.SecType = req.SecType
	f.Side = req.Side
	f.Time = req.Time
	return f
}

func toExecution(c *ibapi.Contract, e *ibapi.Execution) model.Execution {
	return model.Execution{
		Contract:      toModelContract(c),
		ExecID:        e.ExecID,
		Time:          e.Time,
		Account:       e.AcctNumber,
		Exchange:      e.Exchange,
		Side:          e.Side,
		Shares:        fromDecimal(e.Shares),
		Price:         fromFloat(e.Price),
		PermID:        e.PermID,
		ClientID:      e.ClientID,
		OrderID:       e.OrderID,
		Liquidation:   e.Liquidation,
		CumQty:        fromDecimal(e.CumQty),
		AvgPrice:      fromFloat(e.AvgPrice),
		OrderRef:      e.OrderRef,
		EvRule:        e.EVRule,
		EvMultiplier:  fromFloat(e.EVMultiplier),
		ModelCode:     e.ModelCode,
		LastLiquidity: e.LastLiquidity,
	}
}

func toOpenOrder(orderID int64, c *ibapi.Contract, o *ibapi.Order, st *ibapi.OrderState) model.OpenOrder {
	out := model.OpenOrder{
		OrderID:  orderID,
		Contract: toModelContract(c),
	}
	if o != nil {
		out.PermID = o.PermID
		out.ClientID = o.ClientID
		out.Account = o.Account
		out.Action = o.Action
		out.TotalQuantity = fromDecimal(o.TotalQuantity)
		out.OrderType = o.OrderType
		out.LmtPrice = fromFloat(o.LmtPrice)
		out.Tif = o.TIF
	}
	if st != nil {
		out.Status = st.Status
	}
	return out
}

func toBar(b *ibapi.Bar) model.Bar {
	return model.Bar{
		Date:     b.Date,
		Open:     fromFloat(b.Open),
		High:     fromFloat(b.High),
		Low:      fromFloat(b.Low),
		Close:    fromFloat(b.Close),
		Volume:   fromDecimal(b.Volume),
		WAP:      fromDecimal(b.Wap),
		BarCount: b.BarCount,
	}
}

func toCommissionReport(r ibapi.CommissionAndFeesReport) model.CommissionReport {
	return model.CommissionReport{
		ExecID:              r.ExecID,
		Commission:          fromFloat(r.CommissionAndFees),
		Currency:            r.Currency,
		RealizedPNL:         fromFloat(r.RealizedPNL),
		Yield:               fromFloat(r.Yield),
		YieldRedemptionDate: r.YieldRedemptionDate,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
