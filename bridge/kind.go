package bridge

import "github.com/go-gotop/ibkit/gateway"

type kindSpec struct {
	keyed         bool // 回调携带请求ID
	stopOnEnd     bool // 结束回调后需要发送停止请求
	stopOnAbandon bool // 超时放弃时需要发送停止请求
}

var kindSpecs = map[gateway.Kind]kindSpec{
	gateway.KindAccountSummary: {keyed: true, stopOnAbandon: true},
	gateway.KindAccountUpdates: {keyed: false, stopOnEnd: true, stopOnAbandon: true},
	gateway.KindOpenOrders:     {keyed: false, stopOnEnd: true},
	gateway.KindExecutions:     {keyed: true},
	gateway.KindHistoricalBars: {keyed: true, stopOnAbandon: true},
}

func lookupKind(kind gateway.Kind) (kindSpec, bool) {
	spec, ok := kindSpecs[kind]
	return spec, ok
}
