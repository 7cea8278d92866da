package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/coldbell/clone-actions/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

func New(serviceName string, cfg config.LogConfig) (*slog.Logger, func() error, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	writer, closeWriter, err := openWriter(serviceName, cfg, os.Stdout)
	if err != nil {
		return nil, nil, err
	}

	handler, err := newHandler(writer, cfg.Format, level)
	if err != nil {
		_ = closeWriter()
		return nil, nil, err
	}

	logger := slog.New(handler).With("service", serviceName)
	return logger, closeWriter, nil
}

func newHandler(writer io.Writer, rawFormat string, level slog.Level) (slog.Handler, error) {
	handlerOptions := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(rawFormat))
	if format == "" {
		format = "text"
	}

	switch format {
	case "text":
		return slog.NewTextHandler(writer, handlerOptions), nil
	case "json":
		return slog.NewJSONHandler(writer, handlerOptions), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (expected text|json)", rawFormat)
	}
}

func openWriter(serviceName string, cfg config.LogConfig, console io.Writer) (io.Writer, func() error, error) {
	output := strings.ToLower(strings.TrimSpace(cfg.Output))
	if output == "" {
		output = "console"
	}

	switch output {
	case "console":
		return console, func() error { return nil }, nil
	case "file":
		file, err := openLogFile(serviceName, cfg)
		if err != nil {
			return nil, nil, err
		}
		return file, file.Close, nil
	case "both":
		file, err := openLogFile(serviceName, cfg)
		if err != nil {
			return nil, nil, err
		}
		multi := io.MultiWriter(console, file)
		return multi, file.Close, nil
	default:
		return nil, nil, fmt.Errorf("invalid log output %q (expected console|file|both)", cfg.Output)
	}
}

// openLogFile returns a size-rotated writer; lumberjack opens the file lazily on first write.
func openLogFile(serviceName string, cfg config.LogConfig) (*lumberjack.Logger, error) {
	logPath := strings.TrimSpace(cfg.FilePath)
	if logPath == "" {
		logPath = filepath.Join(".docker", serviceName, serviceName+".log")
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory for %q: %w", logPath, err)
	}

	return &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}, nil
}

func parseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug|info|warn|error)", raw)
	}
}
