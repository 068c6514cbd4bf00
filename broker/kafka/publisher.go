package kafka

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	kafkaGo "github.com/segmentio/kafka-go"

	"github.com/go-gotop/ibkit/broker"
)

var _ broker.Publisher = (*Publisher)(nil)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkaGo.Message) error
	Close() error
}

// Publisher 基于 kafka-go Writer 的发布者, 主题由每条消息指定
type Publisher struct {
	opts   *options
	writer messageWriter
}

func NewPublisher(opts ...Option) *Publisher {
	o := &options{
		addrs:        []string{defaultAddr},
		logger:       log.NewHelper(log.DefaultLogger),
		requiredAcks: int(kafkaGo.RequireOne),
		autoTopic:    true,
	}
	for _, opt := range opts {
		opt(o)
	}
	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(o.addrs...),
		Balancer:               &kafkaGo.Hash{},
		RequiredAcks:           kafkaGo.RequiredAcks(o.requiredAcks),
		AllowAutoTopicCreation: o.autoTopic,
		Logger:                 &Logger{logger: o.logger},
		ErrorLogger:            &ErrorLogger{logger: o.logger},
	}
	if o.batchTimeout > 0 {
		w.BatchTimeout = o.batchTimeout
	}
	return newPublisher(o, w)
}

func newPublisher(o *options, w messageWriter) *Publisher {
	return &Publisher{opts: o, writer: w}
}

func (p *Publisher) Publish(ctx context.Context, topic string, msg *broker.Message) error {
	body, err := json.Marshal(msg.Body)
	if err != nil {
		return errors.Wrapf(err, "encode message for %s", topic)
	}
	km := kafkaGo.Message{
		Topic:   topic,
		Value:   body,
		Headers: mapToKafkaHeader(msg.Headers),
	}
	if msg.Key != "" {
		km.Key = []byte(msg.Key)
	}
	if err := p.writer.WriteMessages(ctx, km); err != nil {
		return errors.Wrapf(err, "publish to %s", topic)
	}
	p.opts.logger.Debugf("published %d bytes to %s", len(body), topic)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
