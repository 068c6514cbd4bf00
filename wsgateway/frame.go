package wsgateway

import (
	"fmt"
	"strings"

	"github.com/bitly/go-simplejson"
	jsoniter "github.com/json-iterator/go"

	"github.com/go-gotop/ibkit/gateway"
	"github.com/go-gotop/ibkit/model"
)

// Redefining the standard package
var Json = jsoniter.ConfigCompatibleWithStandardLibrary

func NewJSON(data []byte) (j *simplejson.Json, err error) {
	j, err = simplejson.NewJson(data)
	if err != nil {
		return nil, err
	}
	return j, nil
}

// 出站帧的操作
const (
	OpReqIDs  = "reqIds"
	OpRequest = "request"
	OpCancel  = "cancel"
)

// 入站帧的类型
const (
	TypeNextValidID     = "nextValidId"
	TypeManagedAccounts = "managedAccounts"
	TypeRow             = "row"
	TypeEnd             = "end"
	TypeError           = "error"
)

// 行的类型, 决定 row 字段解码成哪个 model 结构
const (
	RowAccountSummary = "accountSummary"
	RowAccountValue   = "accountValue"
	RowPortfolio      = "portfolio"
	RowOpenOrder      = "openOrder"
	RowOrderStatus    = "orderStatus"
	RowExecution      = "execution"
	RowCommission     = "commissionReport"
	RowHistoricalBar  = "bar"
)

// OutboundFrame 客户端发往中继的帧
type OutboundFrame struct {
	Op      string       `json:"op"`
	Kind    gateway.Kind `json:"kind,omitempty"`
	ReqID   int64        `json:"reqId"`
	Count   int          `json:"count,omitempty"`
	Payload any          `json:"payload,omitempty"`
}

// InboundFrame 中继推送的帧, 读循环用 simplejson 嗅探, 这里只用于编码
type InboundFrame struct {
	Type     string       `json:"type"`
	ReqID    int64        `json:"reqId"`
	Kind     gateway.Kind `json:"kind,omitempty"`
	RowType  string       `json:"rowType,omitempty"`
	Row      any          `json:"row,omitempty"`
	Code     int64        `json:"code,omitempty"`
	Message  string       `json:"message,omitempty"`
	OrderID  int64        `json:"orderId,omitempty"`
	Accounts string       `json:"accounts,omitempty"`
}

var rowDecoders = map[string]func([]byte) (any, error){
	RowAccountSummary: decodeAs[model.AccountSummary],
	RowAccountValue:   decodeAs[model.AccountValue],
	RowPortfolio:      decodeAs[model.PortfolioItem],
	RowOpenOrder:      decodeAs[model.OpenOrder],
	RowOrderStatus:    decodeAs[model.OrderStatus],
	RowExecution:      decodeAs[model.Execution],
	RowCommission:     decodeAs[model.CommissionReport],
	RowHistoricalBar:  decodeAs[model.Bar],
}

func decodeAs[T any](raw []byte) (any, error) {
	var v T
	if err := Json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeRow 按 rowType 解码一行
func decodeRow(rowType string, raw []byte) (any, error) {
	dec, ok := rowDecoders[rowType]
	if !ok {
		return nil, fmt.Errorf("unknown row type %q", rowType)
	}
	row, err := dec(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s row: %w", rowType, err)
	}
	return row, nil
}

// parseAccounts 网关以逗号分隔的字符串推送账户列表, 也接受数组
func parseAccounts(j *simplejson.Json) []string {
	if list, err := j.StringArray(); err == nil {
		return list
	}
	var accounts []string
	for _, a := range strings.Split(j.MustString(), ",") {
		if a = strings.TrimSpace(a); a != "" {
			accounts = append(accounts, a)
		}
	}
	return accounts
}
