package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// ServerConfig configures the consuming side of the queue
type ServerConfig struct {
	QueueName   string
	Concurrency int
	LogLevel    slog.Level
}

// NewServer builds the asynq server that delivers model jobs
func NewServer(redisOpt asynq.RedisConnOpt, cfg ServerConfig, logger *slog.Logger) *asynq.Server {
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues: map[string]int{
			cfg.QueueName: 1,
		},
		Logger:   NewLogger(logger),
		LogLevel: asynqLevel(cfg.LogLevel),
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			taskID, _ := asynq.GetTaskID(ctx)
			logger.Error("model task dropped",
				slog.String("task_id", taskID),
				slog.String("type", task.Type()),
				slog.Any("error", err),
			)
		}),
	})
}

func asynqLevel(l slog.Level) asynq.LogLevel {
	switch {
	case l <= slog.LevelDebug:
		return asynq.DebugLevel
	case l <= slog.LevelInfo:
		return asynq.InfoLevel
	case l <= slog.LevelWarn:
		return asynq.WarnLevel
	default:
		return asynq.ErrorLevel
	}
}

// Logger adapts slog to asynq.Logger
type Logger struct {
	l *slog.Logger
}

var _ asynq.Logger = (*Logger)(nil)

func NewLogger(l *slog.Logger) *Logger {
	return &Logger{l: l.With(slog.String("component", "asynq"))}
}

func (a *Logger) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a *Logger) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a *Logger) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a *Logger) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }

// Fatal logs at error level; asynq exits the process after calling it.
func (a *Logger) Fatal(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
