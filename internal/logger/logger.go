package logger

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	defaultLogDirName    = "logs"
	defaultLogFilename   = "app.log"
	defaultLogMaxSizeMB  = 100
	defaultLogMaxBackups = 7
	defaultLogMaxAgeDays = 30
)

// Options 日志输出配置
type Options struct {
	Level      string
	Dir        string
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// L 全局结构化日志实例
var L *zap.Logger

var (
	fallbackOnce sync.Once
	fallbackLog  *zap.Logger
)

type ctxFieldsKey struct{}

// Init 初始化全局日志
func Init(mode string, options Options) *zap.Logger {
	L = New(mode, options)
	zap.ReplaceGlobals(L)
	return L
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.MillisDurationEncoder
	cfg.EncodeLevel = zapcore.LowercaseLevelEncoder
	cfg.EncodeCaller = zapcore.ShortCallerEncoder
	return cfg
}

func build(encoder zapcore.Encoder, sink zapcore.WriteSyncer, level zapcore.LevelEnabler) *zap.Logger {
	return zap.New(zapcore.NewCore(encoder, sink, level), zap.AddCaller(), zap.AddCallerSkip(1))
}

// New debug 模式输出彩色控制台，其余模式写 JSON 到滚动文件，文件不可写时退回 stdout
func New(mode string, options Options) *zap.Logger {
	level := zap.NewAtomicLevelAt(resolveLevel(mode, options.Level))
	if isDebug(mode) {
		cfg := encoderConfig()
		cfg.EncodeLevel = zapcore.LowercaseColorLevelEncoder
		return build(zapcore.NewConsoleEncoder(cfg), zapcore.AddSync(os.Stdout), level)
	}

	sink, err := rotatingFile(options)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v, writing to stdout\n", err)
		sink = zapcore.AddSync(os.Stdout)
	}
	return build(zapcore.NewJSONEncoder(encoderConfig()), sink, level)
}

// StdLogger 兼容标准库 log 的输出，供命令行工具使用
func StdLogger() *log.Logger {
	return zap.NewStdLog(Z())
}

// Z 返回可用的结构化日志实例
func Z() *zap.Logger {
	if L != nil {
		return L
	}
	fallbackOnce.Do(func() {
		fallbackLog = build(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(os.Stdout), zap.InfoLevel)
	})
	return fallbackLog
}

// S 返回可用的 SugaredLogger
func S() *zap.SugaredLogger {
	return Z().Sugar()
}

// SW 返回带固定字段的 SugaredLogger
func SW(kv ...interface{}) *zap.SugaredLogger {
	if len(kv) == 0 {
		return S()
	}
	return S().With(kv...)
}

// IntoContext 把日志字段挂到 ctx 上，下游通过 FromContext 取出
func IntoContext(ctx context.Context, kv ...interface{}) context.Context {
	if len(kv) == 0 {
		return ctx
	}
	existing, _ := ctx.Value(ctxFieldsKey{}).([]interface{})
	merged := make([]interface{}, 0, len(existing)+len(kv))
	merged = append(merged, existing...)
	merged = append(merged, kv...)
	return context.WithValue(ctx, ctxFieldsKey{}, merged)
}

// FromContext 带上 ctx 中请求字段（如 request_id）的 SugaredLogger
func FromContext(ctx context.Context) *zap.SugaredLogger {
	if ctx == nil {
		return S()
	}
	fields, _ := ctx.Value(ctxFieldsKey{}).([]interface{})
	return SW(fields...)
}

// Debugw 输出 debug 级别日志
func Debugw(message string, kv ...interface{}) {
	S().Debugw(message, kv...)
}

// Infow 输出 info 级别日志
func Infow(message string, kv ...interface{}) {
	S().Infow(message, kv...)
}

// Warnw 输出 warn 级别日志
func Warnw(message string, kv ...interface{}) {
	S().Warnw(message, kv...)
}

// Errorw 输出 error 级别日志
func Errorw(message string, kv ...interface{}) {
	S().Errorw(message, kv...)
}

func isDebug(mode string) bool {
	return strings.EqualFold(strings.TrimSpace(mode), "debug")
}

func rotatingFile(options Options) (zapcore.WriteSyncer, error) {
	path, err := resolveLogFilePath(options)
	if err != nil {
		return nil, err
	}
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    positiveOr(options.MaxSizeMB, defaultLogMaxSizeMB),
		MaxBackups: positiveOr(options.MaxBackups, defaultLogMaxBackups),
		MaxAge:     positiveOr(options.MaxAgeDays, defaultLogMaxAgeDays),
		Compress:   options.Compress,
	}), nil
}

// resolveLogFilePath 目录默认为工作目录下的 logs，并确认文件可追加写入
func resolveLogFilePath(options Options) (string, error) {
	dir := strings.TrimSpace(options.Dir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolve workdir: %w", err)
		}
		dir = filepath.Join(wd, defaultLogDirName)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log dir: %w", err)
	}
	name := strings.TrimSpace(options.Filename)
	if name == "" {
		name = defaultLogFilename
	}
	path := filepath.Join(dir, name)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("open log file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close log file: %w", err)
	}
	return path, nil
}

// resolveLevel 显式配置优先，否则 debug 模式输出 debug 级别
func resolveLevel(mode, configured string) zapcore.Level {
	if text := strings.TrimSpace(configured); text != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(strings.ToLower(text))); err == nil {
			return level
		}
	}
	if isDebug(mode) {
		return zap.DebugLevel
	}
	return zap.InfoLevel
}

func positiveOr(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
