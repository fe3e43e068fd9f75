// Package logging provides zap logger helpers.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger configured for development or production. Entries
// below error level go to stdout; errors and above go to stderr.
func New(development bool) (*zap.Logger, error) {
	return newLogger(development, zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr)), nil
}

func newLogger(development bool, out, errOut zapcore.WriteSyncer) *zap.Logger {
	var (
		encoder zapcore.Encoder
		level   zap.AtomicLevel
		opts    = []zap.Option{zap.AddCaller(), zap.ErrorOutput(errOut)}
	)
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(cfg.EncoderConfig)
		level = cfg.Level
		opts = append(opts, zap.Development(), zap.AddStacktrace(zapcore.WarnLevel))
	} else {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		encoder = zapcore.NewJSONEncoder(cfg.EncoderConfig)
		level = cfg.Level
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	stdoutLevels := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && l < zapcore.ErrorLevel
	})
	stderrLevels := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return level.Enabled(l) && l >= zapcore.ErrorLevel
	})
	core := zapcore.NewTee(
		zapcore.NewCore(encoder, out, stdoutLevels),
		zapcore.NewCore(encoder.Clone(), errOut, stderrLevels),
	)
	return zap.New(core, opts...)
}
