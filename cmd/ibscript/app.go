package main

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/pkg/errors"

	"github.com/go-gotop/ibkit/bridge"
	"github.com/go-gotop/ibkit/broker"
	"github.com/go-gotop/ibkit/broker/kafka"
	"github.com/go-gotop/ibkit/config"
	center "github.com/go-gotop/ibkit/cust/log"
	"github.com/go-gotop/ibkit/gateway"
	"github.com/go-gotop/ibkit/ibgateway"
	"github.com/go-gotop/ibkit/limiter"
	"github.com/go-gotop/ibkit/tracing"
	"github.com/go-gotop/ibkit/wsgateway"
)

// app 一次脚本运行所需的全部组件, 每次运行独立构建
type app struct {
	cfg       *config.Bootstrap
	log       *log.Helper
	out       io.Writer
	tp        tracing.Provider
	session   *bridge.Session
	publisher broker.Publisher // 未启用 kafka 时为 nil
	flushLog  func()
}

func newApp(ctx context.Context, cfg *config.Bootstrap, out io.Writer) (*app, error) {
	logger, flushLog := center.NewLogger(center.Config{
		Env:     cfg.Log.Env,
		Service: cfg.Log.Service,
		Level:   cfg.Log.Level,
		Redis: center.RedisConfig{
			Addr:     cfg.Log.Redis.Addr,
			Password: cfg.Log.Redis.Password,
			DB:       cfg.Log.Redis.DB,
			ListKey:  cfg.Log.Redis.ListKey,
			TTL:      cfg.Log.Redis.TTL.Duration,
		},
	})

	tc := cfg.Tracing
	if tc.Service == "" {
		tc.Service = cfg.Log.Service
	}
	tp, err := tracing.NewProvider(ctx, tc)
	if err != nil {
		flushLog()
		return nil, errors.WithMessage(err, "tracing")
	}

	session := bridge.NewSession(newGatewayClient(cfg.Gateway, logger), sessionOptions(cfg, logger, tp)...)

	a := &app{
		cfg:      cfg,
		log:      log.NewHelper(log.With(logger, "session", session.ID())),
		out:      out,
		tp:       tp,
		session:  session,
		flushLog: flushLog,
	}
	if cfg.Kafka.Enabled {
		a.publisher = kafka.NewPublisher(kafka.WithAddrs(cfg.Kafka.Addrs...), kafka.WithLogger(logger))
	}
	return a, nil
}

// newGatewayClient relay 走 websocket 中继, tws 直连 TWS socket
func newGatewayClient(gc config.Gateway, logger log.Logger) gateway.Client {
	if gc.Type == config.GatewayTWS {
		return ibgateway.NewClient(ibgateway.WithLogger(logger), ibgateway.WithLibraryLogLevel(gc.LogLevel))
	}
	opts := []wsgateway.Option{wsgateway.WithLogger(logger)}
	if gc.Path != "" {
		opts = append(opts, wsgateway.WithPath(gc.Path))
	}
	return wsgateway.NewClient(opts...)
}

func sessionOptions(cfg *config.Bootstrap, logger log.Logger, tp tracing.Provider) []bridge.Option {
	opts := []bridge.Option{
		bridge.WithLogger(logger),
		bridge.WithTracerProvider(tp),
		bridge.WithLimiter(limiter.NewRateLimiter(limiter.WithPeriodLimitArray(cfg.Pacing.Windows))),
	}
	if cfg.Timeout.Disconnect.Duration > 0 {
		opts = append(opts, bridge.WithDisconnectGrace(cfg.Timeout.Disconnect.Duration))
	}
	for kind, d := range cfg.Grace {
		opts = append(opts, bridge.WithGracePeriod(gateway.Kind(strings.ToUpper(kind)), d.Duration))
	}
	return opts
}

// connect 连接网关并等待首个ID
func (a *app) connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout.Connect.Duration)
	defer cancel()
	identity := gateway.Identity{ClientID: a.cfg.Gateway.ClientID, Account: a.cfg.Gateway.Account}
	if err := a.session.Connect(ctx, a.cfg.Gateway.Address, identity); err != nil {
		return err
	}
	return a.session.AwaitReady(ctx)
}

// requestContext 单次请求的超时
func (a *app) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.Timeout.Request.Duration)
}

// publish 结果发布失败只记录日志, 不影响脚本输出
func (a *app) publish(ctx context.Context, kind gateway.Kind, count int, rows any) {
	if a.publisher == nil {
		return
	}
	msg := &broker.Message{
		Key: a.session.ID(),
		Headers: broker.Headers{
			broker.HeaderSession: a.session.ID(),
			broker.HeaderKind:    kind.String(),
			broker.HeaderAccount: a.cfg.Gateway.Account,
		},
		Body: broker.ResultEvent{
			Session:   a.session.ID(),
			Kind:      kind,
			Timestamp: time.Now().UnixMilli(),
			Count:     count,
			Rows:      rows,
		},
	}
	if err := a.publisher.Publish(ctx, broker.TopicFor(kind), msg); err != nil {
		a.log.Errorf("publish %s result error: %v", kind, err)
	}
}

func (a *app) close() {
	if err := a.session.Disconnect(); err != nil {
		a.log.Warnf("disconnect error: %v", err)
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warnf("close publisher error: %v", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tp.Shutdown(ctx); err != nil {
		a.log.Warnf("shutdown tracer provider error: %v", err)
	}
	a.flushLog()
}
