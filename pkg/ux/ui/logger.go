// Package ui 提供基础 UI 组件库
package ui

import "github.com/rs/zerolog"

// Logger 日志接口（适配器，适用于各种日志实现）
//
// 目的：
//   - 解耦 SDK 组件与具体的日志实现
//   - 允许调用方传入自己的日志器
//   - 如果不需要日志，可以传入 nil
type Logger interface {
	// Debug 输出调试级别日志
	Debug(msg string)
	Debugf(format string, args ...interface{})

	// Info 输出信息级别日志
	Info(msg string)
	Infof(format string, args ...interface{})

	// Warn 输出警告级别日志
	Warn(msg string)
	Warnf(format string, args ...interface{})

	// Error 输出错误级别日志
	Error(msg string)
	Errorf(format string, args ...interface{})
}

// noopLogger 空日志实现（不输出任何日志）
type noopLogger struct{}

func (l *noopLogger) Debug(_ string)                       {}
func (l *noopLogger) Debugf(_ string, _ ...interface{})    {}
func (l *noopLogger) Info(_ string)                        {}
func (l *noopLogger) Infof(_ string, _ ...interface{})     {}
func (l *noopLogger) Warn(_ string)                        {}
func (l *noopLogger) Warnf(_ string, _ ...interface{})     {}
func (l *noopLogger) Error(_ string)                       {}
func (l *noopLogger) Errorf(_ string, _ ...interface{})    {}

// NoopLogger 返回一个空日志实例（不输出任何日志）
func NoopLogger() Logger {
	return &noopLogger{}
}

// zerologLogger zerolog适配
type zerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger 用zerolog实例包装出Logger
func NewZerologLogger(zl zerolog.Logger) Logger {
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string)                          { l.zl.Debug().Msg(msg) }
func (l *zerologLogger) Debugf(format string, args ...interface{}) { l.zl.Debug().Msgf(format, args...) }
func (l *zerologLogger) Info(msg string)                           { l.zl.Info().Msg(msg) }
func (l *zerologLogger) Infof(format string, args ...interface{})  { l.zl.Info().Msgf(format, args...) }
func (l *zerologLogger) Warn(msg string)                           { l.zl.Warn().Msg(msg) }
func (l *zerologLogger) Warnf(format string, args ...interface{})  { l.zl.Warn().Msgf(format, args...) }
func (l *zerologLogger) Error(msg string)                          { l.zl.Error().Msg(msg) }
func (l *zerologLogger) Errorf(format string, args ...interface{}) { l.zl.Error().Msgf(format, args...) }
