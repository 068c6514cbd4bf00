package gateway

import (
	"context"
	"fmt"
)

// NoRequestID 表示回调没有携带请求ID, 例如系统通知和 openOrder/updateAccountValue 这类按类型推送的数据
const NoRequestID int64 = -1

// Kind 请求类型
type Kind string

const (
	KindAccountSummary Kind = "ACCOUNT_SUMMARY"
	KindAccountUpdates Kind = "ACCOUNT_UPDATES"
	KindOpenOrders     Kind = "OPEN_ORDERS"
	KindExecutions     Kind = "EXECUTIONS"
	KindHistoricalBars Kind = "HISTORICAL_BARS"
	KindGlobalCancel   Kind = "GLOBAL_CANCEL"
)

func (k Kind) String() string {
	return string(k)
}

// Identity 客户端身份, 同一个网关上 ClientID 必须唯一
type Identity struct {
	ClientID int64
	Account  string
}

// Client 是网关连接的命令端. Connect 成功后由实现方启动唯一的回调投递协程,
// 所有回调按顺序投递到 handler, 不会并发.
//
//go:generate mockgen -destination=mock/gateway.go -package=mock_gateway . Client,Handler
type Client interface {
	Connect(ctx context.Context, address string, identity Identity, handler Handler) error
	Close() error
	RequestIDs(count int) error
	Send(kind Kind, reqID int64, payload any) error
	Stop(kind Kind, reqID int64) error
}

// Handler 是网关连接的事件端, 只会在回调投递协程中被调用, 实现不能阻塞.
type Handler interface {
	OnNextValidID(id int64)
	OnManagedAccounts(accounts []string)
	OnRow(reqID int64, kind Kind, row any)
	OnStreamEnd(reqID int64, kind Kind)
	OnError(reqID int64, code int64, message string)
	OnDisconnected(err error)
}

// AccountSummaryRequest 账户摘要请求
type AccountSummaryRequest struct {
	Group string `json:"group"`
	Tags  string `json:"tags"`
}

// AccountUpdatesRequest 账户更新订阅请求, Subscribe=false 即为停止订阅
type AccountUpdatesRequest struct {
	Subscribe bool   `json:"subscribe"`
	Account   string `json:"account"`
}

// OpenOrdersRequest 请求所有客户端的挂单
type OpenOrdersRequest struct {
	All bool `json:"all"`
}

// ExecutionsRequest 成交明细请求, 过滤条件为空表示全部
type ExecutionsRequest struct {
	ClientID int64  `json:"clientId"`
	Account  string `json:"account"`
	Symbol   string `json:"symbol"`
	SecType  string `json:"secType"`
	Side     string `json:"side"`
	Time     string `json:"time"`
}

// HistoricalBarsRequest 历史K线请求
type HistoricalBarsRequest struct {
	Symbol          string `json:"symbol"`
	SecType         string `json:"secType"`
	Currency        string `json:"currency"`
	Exchange        string `json:"exchange"`
	PrimaryExchange string `json:"primaryExchange"`
	EndDateTime     string `json:"endDateTime"`
	Duration        string `json:"duration"`
	BarSize         string `json:"barSize"`
	WhatToShow      string `json:"whatToShow"`
	UseRTH          bool   `json:"useRTH"`
	FormatDate      int    `json:"formatDate"`
}

func (r HistoricalBarsRequest) String() string {
	return fmt.Sprintf("%s %s %s/%s end=%s", r.Symbol, r.SecType, r.Duration, r.BarSize, r.EndDateTime)
}
