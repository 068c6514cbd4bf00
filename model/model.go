package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Contract 合约基础字段
type Contract struct {
	ConID                        int64           `json:"conId"`
	Symbol                       string          `json:"symbol"`
	SecType                      string          `json:"secType"`
	LastTradeDateOrContractMonth string          `json:"lastTradeDateOrContractMonth"`
	Strike                       decimal.Decimal `json:"strike"`
	Right                        string          `json:"right"`
	Multiplier                   string          `json:"multiplier"`
	Exchange                     string          `json:"exchange"`
	PrimaryExchange              string          `json:"primaryExchange"`
	Currency                     string          `json:"currency"`
}

// AccountSummary accountSummary 回调的一行
type AccountSummary struct {
	Account  string `json:"account"`
	Tag      string `json:"tag"`
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// AccountValue updateAccountValue 回调的一行
type AccountValue struct {
	Account  string `json:"account"`
	Key      string `json:"key"`
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// PortfolioItem updatePortfolio 回调的一行
type PortfolioItem struct {
	Contract      Contract        `json:"contract"`
	Account       string          `json:"account"`
	Position      decimal.Decimal `json:"position"`
	MarketPrice   decimal.Decimal `json:"marketPrice"`
	MarketValue   decimal.Decimal `json:"marketValue"`
	AverageCost   decimal.Decimal `json:"averageCost"`
	UnrealizedPNL decimal.Decimal `json:"unrealizedPNL"`
	RealizedPNL   decimal.Decimal `json:"realizedPNL"`
}

// OpenOrder openOrder 回调的一行
type OpenOrder struct {
	PermID        int64           `json:"permId"`
	ClientID      int64           `json:"clientId"`
	OrderID       int64           `json:"orderId"`
	Status        string          `json:"status"`
	Account       string          `json:"account"`
	Contract      Contract        `json:"contract"`
	Action        string          `json:"action"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	OrderType     string          `json:"orderType"`
	LmtPrice      decimal.Decimal `json:"lmtPrice"`
	Tif           string          `json:"tif"`
}

// OrderStatus orderStatus 回调的一行
type OrderStatus struct {
	PermID        int64           `json:"permId"`
	ClientID      int64           `json:"clientId"`
	OrderID       int64           `json:"orderId"`
	Status        string          `json:"status"`
	Filled        decimal.Decimal `json:"filled"`
	Remaining     decimal.Decimal `json:"remaining"`
	AvgFillPrice  decimal.Decimal `json:"avgFillPrice"`
	LastFillPrice decimal.Decimal `json:"lastFillPrice"`
}

// Execution execDetails 回调的一行
type Execution struct {
	Contract      Contract        `json:"contract"`
	ExecID        string          `json:"execId"`
	Time          string          `json:"time"`
	Account       string          `json:"acctNumber"`
	Exchange      string          `json:"exchange"`
	Side          string          `json:"side"`
	Shares        decimal.Decimal `json:"shares"`
	Price         decimal.Decimal `json:"price"`
	PermID        int64           `json:"permId"`
	ClientID      int64           `json:"clientId"`
	OrderID       int64           `json:"orderId"`
	Liquidation   int64           `json:"liquidation"`
	CumQty        decimal.Decimal `json:"cumQty"`
	AvgPrice      decimal.Decimal `json:"avgPrice"`
	OrderRef      string          `json:"orderRef"`
	EvRule        string          `json:"evRule"`
	EvMultiplier  decimal.Decimal `json:"evMultiplier"`
	ModelCode     string          `json:"modelCode"`
	LastLiquidity int64           `json:"lastLiquidity"`
}

// CommissionReport commissionReport 回调的一行, 不携带请求ID
type CommissionReport struct {
	ExecID              string          `json:"execId"`
	Commission          decimal.Decimal `json:"commission"`
	Currency            string          `json:"currency"`
	RealizedPNL         decimal.Decimal `json:"realizedPNL"`
	Yield               decimal.Decimal `json:"yield"`
	YieldRedemptionDate int64           `json:"yieldRedemptionDate"`
}

// Bar historicalData 回调的一根K线
type Bar struct {
	Date     string          `json:"date"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
	WAP      decimal.Decimal `json:"wap"`
	BarCount int64           `json:"barCount"`
}

// IsUp 收盘价高于开盘价
func (b Bar) IsUp() bool {
	return b.Close.GreaterThan(b.Open)
}

// barTimeLayouts formatDate=1 时的日期格式, 日线只有日期
var barTimeLayouts = []string{"20060102  15:04:05", "20060102 15:04:05", "20060102-15:04:05", "20060102"}

// Time 解析K线时间. formatDate=2 时为秒级时间戳, 带时区后缀的格式按 UTC 解析忽略时区.
func (b Bar) Time() (time.Time, error) {
	date := strings.TrimSpace(b.Date)
	if sec, err := strconv.ParseInt(date, 10, 64); err == nil && len(date) > len("20060102") {
		return time.Unix(sec, 0).UTC(), nil
	}
	if i := strings.LastIndexByte(date, ' '); i > len("20060102") && strings.Contains(date[i+1:], "/") {
		date = strings.TrimSpace(date[:i])
	}
	for _, layout := range barTimeLayouts {
		if t, err := time.Parse(layout, date); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid bar date %q", b.Date)
}
