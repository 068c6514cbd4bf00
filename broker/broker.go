package broker

import (
	"context"
	"strings"

	"github.com/go-gotop/ibkit/gateway"
)

const topicPrefix = "IBKIT."

type Headers map[string]string

// Message 一条待发布的消息, Body 以 json 编码
type Message struct {
	Key     string
	Headers Headers
	Body    any
}

// Publisher 消息发布
type Publisher interface {
	Publish(ctx context.Context, topic string, msg *Message) error
	Close() error
}

// ResultEvent 一次请求收集到的结果
type ResultEvent struct {
	Session   string       `json:"session"`
	Kind      gateway.Kind `json:"kind"`
	Timestamp int64        `json:"timestamp"`
	Count     int          `json:"count"`
	Rows      any          `json:"rows"`
}

// TopicFor 请求类型对应的主题, 例如 IBKIT.HISTORICAL_BARS
func TopicFor(kind gateway.Kind) string {
	return topicPrefix + strings.ToUpper(kind.String())
}

// Header 常用的消息头
const (
	HeaderSession = "x-ibkit-session"
	HeaderKind    = "x-ibkit-kind"
	HeaderAccount = "x-ibkit-account"
)
