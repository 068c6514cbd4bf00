package config

import (
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/env"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/pkg/errors"

	"github.com/go-gotop/ibkit/limiter"
	"github.com/go-gotop/ibkit/tracing"
)

// EnvPrefix 环境变量前缀, 例如 IBKIT_GATEWAY_ADDRESS
const EnvPrefix = "IBKIT_"

// 网关类型
const (
	GatewayRelay = "relay" // websocket 中继
	GatewayTWS   = "tws"   // 直连 TWS 或 IB Gateway 的 socket 协议
)

type Bootstrap struct {
	Gateway Gateway             `json:"gateway"`
	Timeout Timeout             `json:"timeout"`
	Grace   map[string]Duration `json:"grace"` // 按请求类型的宽限期, 例如 EXECUTIONS: 1s
	Pacing  Pacing              `json:"pacing"`
	Log     Log                 `json:"log"`
	Kafka   Kafka               `json:"kafka"`
	Tracing tracing.Config      `json:"tracing"`
}

type Gateway struct {
	Type     string `json:"type"`
	Address  string `json:"address"`
	ClientID int64  `json:"client_id"`
	Account  string `json:"account"`
	Path     string `json:"path"`      // 只用于 relay
	LogLevel string `json:"log_level"` // 只用于 tws, ibapi 自身日志的级别
}

type Timeout struct {
	Connect    Duration `json:"connect"`
	Request    Duration `json:"request"`
	Disconnect Duration `json:"disconnect"`
}

type Pacing struct {
	Windows []limiter.PeriodLimit `json:"windows"`
}

type Log struct {
	Env     string `json:"env"`
	Level   string `json:"level"`
	Service string `json:"service"`
	Redis   Redis  `json:"redis"`
}

type Redis struct {
	Addr     string   `json:"addr"`
	Password string   `json:"password"`
	DB       int      `json:"db"`
	ListKey  string   `json:"list_key"`
	TTL      Duration `json:"ttl"`
}

type Kafka struct {
	Enabled bool     `json:"enabled"`
	Addrs   []string `json:"addrs"`
}

// Default 没有配置文件时的默认值
func Default() *Bootstrap {
	return &Bootstrap{
		Gateway: Gateway{Type: GatewayRelay, Address: "127.0.0.1:4002", ClientID: 0, LogLevel: "warn"},
		Timeout: Timeout{
			Connect:    Duration{10 * time.Second},
			Request:    Duration{30 * time.Second},
			Disconnect: Duration{500 * time.Millisecond},
		},
		Grace: map[string]Duration{
			"EXECUTIONS":  {time.Second},
			"OPEN_ORDERS": {500 * time.Millisecond},
		},
		Pacing:  Pacing{Windows: []limiter.PeriodLimit{{Period: "1s", Times: 50}}},
		Log:     Log{Env: "DEV", Level: "info", Service: "ibscript"},
		Tracing: tracing.Config{Exporter: tracing.ExporterNone, Service: "ibscript"},
	}
}

// Load 读取 yaml 配置文件, 再用 IBKIT_ 前缀的环境变量覆盖常用项. path 为空时只读环境变量.
func Load(path string) (*Bootstrap, error) {
	sources := []config.Source{env.NewSource(EnvPrefix)}
	if path != "" {
		sources = append([]config.Source{file.NewSource(path)}, sources...)
	}
	c := config.New(config.WithSource(sources...))
	defer c.Close()

	if err := c.Load(); err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	bc := Default()
	if err := c.Scan(bc); err != nil {
		return nil, errors.Wrapf(err, "scan config %s", path)
	}
	applyEnv(c, bc)
	if err := bc.Validate(); err != nil {
		return nil, err
	}
	return bc, nil
}

func applyEnv(c config.Config, bc *Bootstrap) {
	str := func(key string, dst *string) {
		if v, err := c.Value(key).String(); err == nil && v != "" {
			*dst = v
		}
	}
	str("GATEWAY_TYPE", &bc.Gateway.Type)
	str("GATEWAY_ADDRESS", &bc.Gateway.Address)
	str("GATEWAY_ACCOUNT", &bc.Gateway.Account)
	str("LOG_ENV", &bc.Log.Env)
	str("LOG_LEVEL", &bc.Log.Level)
	str("REDIS_ADDR", &bc.Log.Redis.Addr)
	str("REDIS_PASSWORD", &bc.Log.Redis.Password)
	str("TRACING_EXPORTER", &bc.Tracing.Exporter)
	str("TRACING_ENDPOINT", &bc.Tracing.Endpoint)
	if v, err := c.Value("CLIENT_ID").Int(); err == nil {
		bc.Gateway.ClientID = v
	}
	if v, err := c.Value("KAFKA_ADDRS").String(); err == nil && v != "" {
		bc.Kafka.Addrs = strings.Split(v, ",")
		bc.Kafka.Enabled = true
	}
}

func (b *Bootstrap) Validate() error {
	switch b.Gateway.Type {
	case GatewayRelay, GatewayTWS:
	default:
		return errors.Errorf("gateway.type must be %s or %s, got %q", GatewayRelay, GatewayTWS, b.Gateway.Type)
	}
	if b.Gateway.Address == "" {
		return errors.New("gateway.address is required")
	}
	if b.Gateway.ClientID < 0 {
		return errors.Errorf("gateway.client_id must not be negative, got %d", b.Gateway.ClientID)
	}
	if b.Timeout.Request.Duration <= 0 {
		return errors.New("timeout.request must be positive")
	}
	if b.Kafka.Enabled && len(b.Kafka.Addrs) == 0 {
		return errors.New("kafka.addrs is required when kafka is enabled")
	}
	return nil
}
