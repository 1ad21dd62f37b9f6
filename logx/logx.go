// Package logx owns the process-wide structured logger.
package logx

import (
	"os"
	"strings"
	"sync"

	"github.com/amirphl/dokany-admin/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	mu sync.RWMutex
	lg *zap.SugaredLogger
)

// Init builds the logger from the logging section of the console config.
// Output "file" writes only to the rotated file, "both" tees stdout and the file.
func Init(cfg config.LoggingConfig) {
	level := parseLevel(cfg.Level)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "console") {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var sinks []zapcore.WriteSyncer
	output := strings.ToLower(cfg.Output)
	if output != "file" {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}
	if (output == "file" || output == "both") && cfg.FilePath != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}))
	}
	if len(sinks) == 0 {
		sinks = append(sinks, zapcore.Lock(os.Stdout))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), zap.NewAtomicLevelAt(level))
	opts := []zap.Option{zap.AddCaller()}
	if cfg.EnableStackTrace {
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	mu.Lock()
	lg = zap.New(core, opts...).Sugar()
	mu.Unlock()
}

// Set replaces the process logger; tests use it with zaptest or zap.NewNop.
func Set(l *zap.Logger) {
	mu.Lock()
	lg = l.Sugar()
	mu.Unlock()
}

func L() *zap.SugaredLogger {
	mu.RLock()
	l := lg
	mu.RUnlock()
	if l != nil {
		return l
	}

	Init(config.LoggingConfig{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: "json",
		Output: "stdout",
	})
	mu.RLock()
	defer mu.RUnlock()
	return lg
}

func Sync() { _ = L().Sync() }

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
