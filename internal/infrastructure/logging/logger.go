package logging

import (
	"fmt"

	"github.com/hilthontt/roomsync/internal/infrastructure/configs"
)

type Logger interface {
	Init()

	Debug(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Debugf(template string, args ...any)

	Info(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Infof(template string, args ...any)

	Warn(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Warnf(template string, args ...any)

	Error(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Errorf(template string, args ...any)

	Fatal(cat Category, sub SubCategory, msg string, extra map[ExtraKey]any)
	Fatalf(template string, args ...any)

	Sync() error
}

type LoggerConfig struct {
	FilePath string
	Encoding string
	Level    string
	Logger   string
}

func NewConfig(cfg configs.LoggerConfig) *LoggerConfig {
	return &LoggerConfig{
		FilePath: cfg.FilePath,
		Encoding: cfg.Encoding,
		Level:    cfg.Level,
		Logger:   cfg.Logger,
	}
}

func NewLogger(cfg *LoggerConfig) (Logger, error) {
	switch cfg.Logger {
	case "zap", "":
		return newZapLogger(cfg), nil
	case "zerolog":
		return newZeroLogger(cfg), nil
	}

	return nil, fmt.Errorf("logger %q not supported: supported loggers: [zap, zerolog]", cfg.Logger)
}

// NewNopLogger discards everything. Used by tests and tools.
func NewNopLogger() Logger {
	return &zapLogger{nop: true, cfg: &LoggerConfig{}}
}
