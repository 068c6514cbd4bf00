package center

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

const (
	EnvProduction = "PRD"

	defaultListKey = "ibkit:log"
	defaultMaxLen  = 100000
	defaultTTL     = 10 * 24 * time.Hour

	defaultBufferSize   = 4096
	defaultWriteTimeout = 2 * time.Second
	batchSize           = 128
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type LogEntry struct {
	Service   string            `json:"service"`
	Level     string            `json:"level"`
	Timestamp int64             `json:"timestamp"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Config 日志配置, Redis 只在生产环境使用
type Config struct {
	Env     string
	Service string
	Level   string
	Redis   RedisConfig
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	ListKey  string        // 日志列表的 key, 默认 ibkit:log:<service>
	MaxLen   int64         // 列表保留的最大条数
	TTL      time.Duration // 列表过期时间

	BufferSize   int           // 待写入的缓冲条数, 满了之后丢弃
	WriteTimeout time.Duration // 单次批量写入的超时
}

// RedisHandler 是一个log.Logger，将日志追加到Redis列表。
// Log 只把日志放入缓冲, 由单独的协程批量写入, 不会因为 Redis 变慢而阻塞调用方.
type RedisHandler struct {
	client      redis.Cmdable
	serviceName string // 日志json格式中的服务名 用做检索
	listKey     string
	maxLen      int64
	ttl         time.Duration
	timeout     time.Duration

	mu      sync.RWMutex
	closed  bool
	entries chan []byte
	done    chan struct{}
	dropped atomic.Int64
	failed  atomic.Int64
}

type MultiLogger struct {
	loggers []log.Logger
}

func newMultiLogger(loggers ...log.Logger) *MultiLogger {
	return &MultiLogger{
		loggers: loggers,
	}
}

// Log 写入所有的 logger, 单个失败不影响其他, 返回第一个错误
func (m *MultiLogger) Log(level log.Level, keyvals ...interface{}) error {
	var first error
	for _, logger := range m.loggers {
		if err := logger.Log(level, keyvals...); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Log 实现了log.Logger接口。
func (h *RedisHandler) Log(level log.Level, keyvals ...interface{}) error {
	entry := &LogEntry{
		Service:   h.serviceName,
		Level:     levelToString(level),
		Timestamp: time.Now().UnixNano(),
	}
	var msg strings.Builder
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		val := "MISSING_VALUE" // 处理键没有值的情况
		if i+1 < len(keyvals) {
			val = fmt.Sprint(keyvals[i+1])
		}
		if key == log.DefaultMessageKey {
			msg.WriteString(val)
			continue
		}
		if entry.Fields == nil {
			entry.Fields = make(map[string]string)
		}
		entry.Fields[key] = val
	}
	entry.Message = msg.String()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return nil
	}
	select {
	case h.entries <- data:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// run 批量写入缓冲中的日志, entries 关闭后写完剩余的再退出
func (h *RedisHandler) run() {
	defer close(h.done)
	for data := range h.entries {
		batch := [][]byte{data}
	drain:
		for len(batch) < batchSize {
			select {
			case d, ok := <-h.entries:
				if !ok {
					break drain
				}
				batch = append(batch, d)
			default:
				break drain
			}
		}
		if err := h.write(batch); err != nil {
			h.failed.Add(int64(len(batch)))
			fmt.Fprintf(os.Stderr, "redis log sink: write %d entries: %v\n", len(batch), err)
		}
	}
}

// write RPush, LTrim, Expire 在一个 pipeline 中发送
func (h *RedisHandler) write(batch [][]byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	values := make([]interface{}, len(batch))
	for i, b := range batch {
		values[i] = b
	}
	_, err := h.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, h.listKey, values...)
		if h.maxLen > 0 {
			p.LTrim(ctx, h.listKey, -h.maxLen, -1)
		}
		if h.ttl > 0 {
			p.Expire(ctx, h.listKey, h.ttl)
		}
		return nil
	})
	return err
}

// Close 停止接收日志, 在有限时间内等待缓冲写完
func (h *RedisHandler) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.entries)
	h.mu.Unlock()

	timer := time.NewTimer(2 * h.timeout)
	defer timer.Stop()
	select {
	case <-h.done:
	case <-timer.C:
	}
}

// Stats 丢弃和写入失败的条数
func (h *RedisHandler) Stats() (dropped, failed int64) {
	return h.dropped.Load(), h.failed.Load()
}

func newStdoutHandler() log.Logger {
	return log.NewStdLogger(os.Stdout)
}

// newRedisHandler 创建一个新的RedisHandler实例。
func newRedisHandler(client redis.Cmdable, name string, cfg RedisConfig) *RedisHandler {
	h := &RedisHandler{
		client:      client,
		serviceName: name,
		listKey:     cfg.ListKey,
		maxLen:      cfg.MaxLen,
		ttl:         cfg.TTL,
		timeout:     cfg.WriteTimeout,
		done:        make(chan struct{}),
	}
	if h.timeout <= 0 {
		h.timeout = defaultWriteTimeout
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	h.entries = make(chan []byte, size)
	if h.listKey == "" {
		h.listKey = defaultListKey + ":" + name
	}
	if h.maxLen == 0 {
		h.maxLen = defaultMaxLen
	}
	if h.ttl == 0 {
		h.ttl = defaultTTL
	}
	go h.run()
	return h
}

func newRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// NewLogger 标准输出总是开启, 生产环境额外写入 Redis.
// cleanup 写完缓冲中的日志并关闭 Redis 连接, 退出前调用.
func NewLogger(cfg Config) (log.Logger, func()) {
	if cfg.Env != EnvProduction {
		return newLogger(cfg, nil)
	}
	client := newRedisClient(cfg.Redis)
	logger, cleanup := newLogger(cfg, client)
	return logger, func() {
		cleanup()
		_ = client.Close()
	}
}

func newLogger(cfg Config, client redis.Cmdable) (log.Logger, func()) {
	loggers := []log.Logger{newStdoutHandler()}
	cleanup := func() {}
	if cfg.Env == EnvProduction && client != nil {
		h := newRedisHandler(client, cfg.Service, cfg.Redis)
		loggers = append(loggers, h)
		cleanup = h.Close
	}
	var logger log.Logger = newMultiLogger(loggers...)
	logger = log.With(logger, "ts", log.DefaultTimestamp, "service", cfg.Service)
	return log.NewFilter(logger, log.FilterLevel(log.ParseLevel(cfg.Level))), cleanup
}

// levelToString 将日志级别转换为字符串
func levelToString(level log.Level) string {
	switch level {
	case log.LevelDebug:
		return "DEBUG"
	case log.LevelInfo:
		return "INFO"
	case log.LevelWarn:
		return "WARN"
	case log.LevelError:
		return "ERROR"
	case log.LevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}
