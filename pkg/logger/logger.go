// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

type ctxKey string

const (
	requestIDKey  ctxKey = "request_id"
	scheduleIDKey ctxKey = "schedule_id"
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		zerolog.SetGlobalLevel(parseLevel(cfg.Level))

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			output = os.Stdout
			if cfg.FilePath != "" {
				if f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
					output = f
				}
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			timeFormat := cfg.TimeFormat
			if timeFormat == "" {
				timeFormat = time.RFC3339
			}
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: timeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	Init(DefaultConfig())
	return &logger
}

// ContextWithRequestID 在上下文中记录请求ID
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithScheduleID 在上下文中记录排班ID
func ContextWithScheduleID(ctx context.Context, scheduleID string) context.Context {
	return context.WithValue(ctx, scheduleIDKey, scheduleID)
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	if reqID, ok := ctx.Value(requestIDKey).(string); ok {
		l = l.With().Str("request_id", reqID).Logger()
	}
	if scheduleID, ok := ctx.Value(scheduleIDKey).(string); ok {
		l = l.With().Str("schedule_id", scheduleID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// SchedulerLogger 排班引擎专用日志器
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger 创建排班引擎日志器
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// NewSchedulerLoggerWith 使用指定的 zerolog 日志器创建（测试时可传入 zerolog.Nop()）
func NewSchedulerLoggerWith(l zerolog.Logger) *SchedulerLogger {
	l = l.With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// JobSubmitted 记录求解任务提交
func (l *SchedulerLogger) JobSubmitted(jobID, scheduleID string, slots, employees int) {
	l.base.Info().
		Str("job_id", jobID).
		Str("schedule_id", scheduleID).
		Int("slots", slots).
		Int("employees", employees).
		Msg("求解任务已提交")
}

// JobFinished 记录求解任务结束
func (l *SchedulerLogger) JobFinished(jobID, scheduleID, status string, duration time.Duration, err error) {
	evt := l.base.Info()
	if err != nil {
		evt = l.base.Error().Err(err)
	}
	evt.Str("job_id", jobID).
		Str("schedule_id", scheduleID).
		Str("status", status).
		Dur("duration", duration).
		Msg("求解任务结束")
}

// SearchStarted 记录局部搜索开始
func (l *SchedulerLogger) SearchStarted(acceptor string, slots int, initial string, budget time.Duration) {
	l.base.Info().
		Str("acceptor", acceptor).
		Int("slots", slots).
		Str("initial_score", initial).
		Dur("time_budget", budget).
		Msg("开始局部搜索")
}

// NewBestScore 记录发现更优解
func (l *SchedulerLogger) NewBestScore(iteration int, score string) {
	l.base.Debug().
		Int("iteration", iteration).
		Str("score", score).
		Msg("发现更优解")
}

// SearchTerminated 记录局部搜索终止
func (l *SchedulerLogger) SearchTerminated(reason string, iterations int, best string, elapsed time.Duration) {
	l.base.Info().
		Str("reason", reason).
		Int("iterations", iterations).
		Str("best_score", best).
		Dur("elapsed", elapsed).
		Msg("局部搜索结束")
}

// ConstraintViolation 记录约束违反
func (l *SchedulerLogger) ConstraintViolation(constraint, details string) {
	l.base.Warn().
		Str("constraint", constraint).
		Str("details", details).
		Msg("约束违反")
}

// ReplaceRejected 记录分配替换被拒绝
func (l *SchedulerLogger) ReplaceRejected(scheduleID string, err error) {
	l.base.Warn().
		Str("schedule_id", scheduleID).
		Err(err).
		Msg("分配替换被拒绝")
}
