package kafka

import (
	"net"
	"strconv"

	kafkaGo "github.com/segmentio/kafka-go"
)

// controller 连接集群的 controller 节点, 主题管理必须在 controller 上进行
func controller(addr string) (*kafkaGo.Conn, error) {
	conn, err := kafkaGo.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	c, err := conn.Controller()
	if err != nil {
		return nil, err
	}
	return kafkaGo.Dial("tcp", net.JoinHostPort(c.Host, strconv.Itoa(c.Port)))
}

// CreateTopic 创建主题, 已存在时不报错
func CreateTopic(addr, topic string, partitions, replication int) error {
	conn, err := controller(addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replication,
	})
}

func DeleteTopic(addr, topic string) error {
	conn, err := controller(addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	return conn.DeleteTopics(topic)
}
