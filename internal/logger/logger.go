// Package logger builds the zap logger shared by every component.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configure New. A zero Options logs JSON at info to stderr.
type Options struct {
	Development bool
	Level       string
	// File adds a size-rotated JSON sink next to the console one.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
	// Service and Version tag every entry when set.
	Service string
	Version string
	// Output replaces stderr for the console sink.
	Output io.Writer
}

func (o Options) level() (zapcore.Level, error) {
	if o.Level != "" {
		return zapcore.ParseLevel(o.Level)
	}
	if o.Development {
		return zapcore.DebugLevel, nil
	}
	return zapcore.InfoLevel, nil
}

func (o Options) consoleEncoder() zapcore.Encoder {
	if !o.Development {
		return zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	}
	ec := zap.NewDevelopmentEncoderConfig()
	if o.Output == nil {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}

// New builds a logger from opts.
func New(opts Options) (*zap.Logger, error) {
	level, err := opts.level()
	if err != nil {
		return nil, err
	}

	var out zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if opts.Output != nil {
		out = zapcore.AddSync(opts.Output)
	}
	cores := []zapcore.Core{zapcore.NewCore(opts.consoleEncoder(), out, level)}

	if opts.File != "" {
		sink := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(sink), level))
	}

	zopts := []zap.Option{zap.AddCaller()}
	if opts.Development {
		zopts = append(zopts, zap.Development(), zap.AddStacktrace(zap.WarnLevel))
	} else {
		zopts = append(zopts, zap.AddStacktrace(zap.ErrorLevel))
	}
	var fields []zap.Field
	if opts.Service != "" {
		fields = append(fields, zap.String("service", opts.Service))
	}
	if opts.Version != "" {
		fields = append(fields, zap.String("version", opts.Version))
	}
	if len(fields) > 0 {
		zopts = append(zopts, zap.Fields(fields...))
	}
	return zap.New(zapcore.NewTee(cores...), zopts...), nil
}
