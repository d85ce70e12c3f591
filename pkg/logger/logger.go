// Package logger 进程级 zap 日志
// 每条日志带 service/env, 请求级字段 (trace_id 等) 经 context 传递
package logger

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config 日志配置
type Config struct {
	Level       string // debug, info, warn, error
	Format      string // json, console
	ServiceName string
	Environment string
}

type fieldsKey struct{}

// base 包级函数使用, 跳过一层调用栈
var base = zap.NewNop()

// Init 构建日志并写到 stdout
func Init(cfg *Config) error {
	l, err := New(cfg, zapcore.Lock(os.Stdout))
	if err != nil {
		return err
	}
	base = l.WithOptions(zap.AddCallerSkip(1))
	return nil
}

// New 按配置构建 logger, 级别为空时取 info
func New(cfg *Config, out zapcore.WriteSyncer) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		var err error
		if level, err = zapcore.ParseLevel(cfg.Level); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "time"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "console":
		encoder = zapcore.NewConsoleEncoder(enc)
	case "", "json":
		encoder = zapcore.NewJSONEncoder(enc)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	fields := []zap.Field{zap.String("service", cfg.ServiceName)}
	if cfg.Environment != "" {
		fields = append(fields, zap.String("env", cfg.Environment))
	}

	return zap.New(zapcore.NewCore(encoder, out, level),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.Fields(fields...),
	), nil
}

// NewContext 在 context 上追加请求级字段
func NewContext(ctx context.Context, fields ...zap.Field) context.Context {
	prev, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// WithContext 返回带 context 请求字段的 logger
func WithContext(ctx context.Context) *zap.Logger {
	l := base.WithOptions(zap.AddCallerSkip(-1))
	if ctx == nil {
		return l
	}
	if fields, ok := ctx.Value(fieldsKey{}).([]zap.Field); ok {
		return l.With(fields...)
	}
	return l
}

func Debug(msg string, fields ...zap.Field) { base.Debug(msg, fields...) }

func Info(msg string, fields ...zap.Field) { base.Info(msg, fields...) }

func Warn(msg string, fields ...zap.Field) { base.Warn(msg, fields...) }

func Error(msg string, fields ...zap.Field) { base.Error(msg, fields...) }

// Fatal 记录后退出进程
func Fatal(msg string, fields ...zap.Field) { base.Fatal(msg, fields...) }

// Sync 刷新缓冲
func Sync() error {
	return base.Sync()
}
