package ibgateway

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
	"github.com/scmhub/ibapi"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// libWriter 把 ibapi 输出的 zerolog json 行转给 kratos logger
type libWriter struct {
	logger log.Logger
}

func (w libWriter) Write(p []byte) (int, error) {
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err != nil {
		_ = w.logger.Log(log.LevelInfo, log.DefaultMessageKey, strings.TrimSpace(string(p)))
		return len(p), nil
	}
	level := toKratosLevel(fields[zerolog.LevelFieldName])
	msg, _ := fields[zerolog.MessageFieldName].(string)
	delete(fields, zerolog.LevelFieldName)
	delete(fields, zerolog.MessageFieldName)
	delete(fields, zerolog.TimestampFieldName)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	keyvals := make([]any, 0, 2+2*len(keys))
	keyvals = append(keyvals, log.DefaultMessageKey, msg)
	for _, k := range keys {
		keyvals = append(keyvals, k, fmt.Sprint(fields[k]))
	}
	_ = w.logger.Log(level, keyvals...)
	return len(p), nil
}

func toKratosLevel(v any) log.Level {
	s, _ := v.(string)
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return log.LevelInfo
	}
	switch {
	case lvl <= zerolog.DebugLevel:
		return log.LevelDebug
	case lvl == zerolog.InfoLevel:
		return log.LevelInfo
	case lvl == zerolog.WarnLevel:
		return log.LevelWarn
	case lvl == zerolog.ErrorLevel:
		return log.LevelError
	default:
		return log.LevelFatal
	}
}

// setLibraryLogger ibapi 只有一个包级 logger, 后设置的生效
func setLibraryLogger(logger log.Logger, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.WarnLevel
	}
	ibapi.SetLogLevel(int(lvl))
	ibapi.SetLogger(zerolog.New(libWriter{logger: log.With(logger, "module", "ibapi")}).Level(lvl))
}
