package kafka

import (
	"sort"

	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/go-gotop/ibkit/broker"
)

func kafkaHeaderToMap(h []kafkaGo.Header) broker.Headers {
	m := broker.Headers{}
	for _, v := range h {
		m[v.Key] = string(v.Value)
	}
	return m
}

// mapToKafkaHeader 按 key 排序, 保证同样的头编码结果一致
func mapToKafkaHeader(m broker.Headers) []kafkaGo.Header {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	h := make([]kafkaGo.Header, 0, len(keys))
	for _, k := range keys {
		h = append(h, kafkaGo.Header{Key: k, Value: []byte(m[k])})
	}
	return h
}
