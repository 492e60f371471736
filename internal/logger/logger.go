package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger so components depend on one concrete type.
type Logger struct {
	*slog.Logger
}

type Options struct {
	Level      string `mapstructure:"level"`
	Output     string `mapstructure:"output"`
	Format     string `mapstructure:"format"`
	TimeFormat string `mapstructure:"time_format"`
}

type options struct {
	level      slog.Level
	output     io.Writer
	format     string
	timeFormat string
}

type Option func(*options)

func WithLevel(level string) Option {
	return func(o *options) {
		o.level = parseLevel(level)
	}
}

func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

func NewDefault(opts ...Option) *Logger {
	return New(Options{
		Level:      "INFO",
		Output:     "STDERR",
		Format:     "json",
		TimeFormat: "RFC3339",
	}, opts...)
}

// Discard drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func New(cfg Options, opts ...Option) *Logger {
	o := &options{
		level:      parseLevel(cfg.Level),
		output:     parseOutput(cfg.Output),
		format:     strings.ToLower(cfg.Format),
		timeFormat: cfg.TimeFormat,
	}
	for _, opt := range opts {
		opt(o)
	}

	handlerOpts := &slog.HandlerOptions{
		Level: o.level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key != slog.TimeKey || len(groups) > 0 || o.timeFormat == "" {
				return a
			}
			switch o.timeFormat {
			case "Unix":
				return slog.Int64(slog.TimeKey, a.Value.Time().Unix())
			case "UnixMilli":
				return slog.Int64(slog.TimeKey, a.Value.Time().UnixMilli())
			case "RFC3339":
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			case "RFC3339Nano":
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339Nano))
			default:
				return slog.String(slog.TimeKey, a.Value.Time().Format(o.timeFormat))
			}
		},
	}

	var handler slog.Handler
	switch o.format {
	case "text":
		handler = slog.NewTextHandler(o.output, handlerOpts)
	default:
		handler = slog.NewJSONHandler(o.output, handlerOpts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// With returns a child logger carrying the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

func (l *Logger) InfoContextf(ctx context.Context, format string, args ...any) {
	l.InfoContext(ctx, fmt.Sprintf(format, args...))
}

func (l *Logger) WarnContextf(ctx context.Context, format string, args ...any) {
	l.WarnContext(ctx, fmt.Sprintf(format, args...))
}

func parseOutput(o string) io.Writer {
	switch strings.ToUpper(o) {
	case "STDERR":
		return os.Stderr
	default:
		return os.Stdout
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ValidLevel reports whether s names a known level.
func ValidLevel(s string) bool {
	switch strings.ToUpper(s) {
	case "DEBUG", "INFO", "WARN", "WARNING", "ERROR":
		return true
	}
	return false
}
