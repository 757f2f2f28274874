// Package logging builds the zap logger used across phonebook.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/smileynet/phonebook/internal/config"
)

// New builds a logger from cfg. The returned cleanup flushes the logger and
// closes the log file, if one was opened.
func New(cfg config.Log) (*zap.Logger, func(), error) {
	var (
		out    zapcore.WriteSyncer
		closer io.Closer
		color  bool
	)
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		out = zapcore.Lock(os.Stderr)
		color = isTerminal(os.Stderr)
	case "stdout":
		out = zapcore.Lock(os.Stdout)
		color = isTerminal(os.Stdout)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: opening %s: %w", cfg.Output, err)
		}
		out = zapcore.AddSync(f)
		closer = f
	}

	logger := build(cfg, out, color)
	cleanup := func() {
		_ = logger.Sync()
		if closer != nil {
			_ = closer.Close()
		}
	}
	return logger, cleanup, nil
}

// NewWriter builds a logger that writes to w without color.
func NewWriter(cfg config.Log, w io.Writer) *zap.Logger {
	return build(cfg, zapcore.AddSync(w), false)
}

func build(cfg config.Log, out zapcore.WriteSyncer, color bool) *zap.Logger {
	core := zapcore.NewCore(encoder(cfg.Format, color), out, ParseLevel(cfg.Level))
	return zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
}

func encoder(format string, color bool) zapcore.Encoder {
	ec := zap.NewProductionEncoderConfig()
	ec.EncodeTime = zapcore.ISO8601TimeEncoder
	ec.EncodeCaller = zapcore.ShortCallerEncoder

	if strings.EqualFold(format, "json") {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewJSONEncoder(ec)
	}
	ec.EncodeLevel = zapcore.CapitalLevelEncoder
	if color {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

// ParseLevel maps a level name onto a zap level. Unknown names yield info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "INFO":
		return zapcore.InfoLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
