package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pet-story-server-go/src/configs"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel 日志级别
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

// Logger 日志记录器，文件写 JSON，控制台写可读格式
type Logger struct {
	zl      *zap.Logger
	logFile *os.File
}

// NewLogger 创建新的日志记录器
func NewLogger(config *configs.Config) (*Logger, error) {
	// 确保日志目录存在
	if err := os.MkdirAll(config.Log.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("创建日志目录失败: %v", err)
	}

	logPath := filepath.Join(config.Log.LogDir, config.Log.LogFile)
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("打开日志文件失败: %v", err)
	}

	level := parseLevel(config.Log.LogLevel)

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	var fileEncoder zapcore.Encoder
	if strings.EqualFold(config.Log.LogFormat, "text") {
		fileEncoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		fileEncoder = zapcore.NewJSONEncoder(encCfg)
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")

	core := zapcore.NewTee(
		zapcore.NewCore(fileEncoder, zapcore.AddSync(file), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stdout), level),
	)

	return &Logger{
		zl:      zap.New(core),
		logFile: file,
	}, nil
}

// NewLoggerFromZap 用现有的 zap.Logger 构造，测试中配合 zaptest 使用
func NewLoggerFromZap(zl *zap.Logger) *Logger {
	return &Logger{zl: zl}
}

// NewNopLogger 丢弃所有输出
func NewNopLogger() *Logger {
	return &Logger{zl: zap.NewNop()}
}

func parseLevel(level string) zapcore.Level {
	switch LogLevel(strings.ToLower(level)) {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Close 刷新缓冲并关闭日志文件
func (l *Logger) Close() error {
	_ = l.zl.Sync()
	if l.logFile != nil {
		return l.logFile.Close()
	}
	return nil
}

// toFields 把 map、error 等附加参数转换成 zap 字段
func toFields(fields []interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.(type) {
		case nil:
		case map[string]interface{}:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				out = append(out, zap.Any(k, v[k]))
			}
		case error:
			out = append(out, zap.Error(v))
		case zap.Field:
			out = append(out, v)
		default:
			out = append(out, zap.Any("detail", v))
		}
	}
	return out
}

// Debug 记录调试级别日志
func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.zl.Debug(msg, toFields(fields)...)
}

// Info 记录信息级别日志
func (l *Logger) Info(msg string, fields ...interface{}) {
	l.zl.Info(msg, toFields(fields)...)
}

// Warn 记录警告级别日志
func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.zl.Warn(msg, toFields(fields)...)
}

// Error 记录错误级别日志
func (l *Logger) Error(msg string, fields ...interface{}) {
	l.zl.Error(msg, toFields(fields)...)
}

// WithTag 创建带标签的日志记录器
func (l *Logger) WithTag(tag string) *Logger {
	return &Logger{zl: l.zl.With(zap.String("tag", tag))}
}
