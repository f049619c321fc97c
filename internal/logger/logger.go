// Package logger holds the process-wide structured logger.
package logger

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Logger is the global logger. It discards everything until Initialize
	// is called.
	Logger *zap.SugaredLogger
	// JSONOutput reports whether Initialize selected JSON output.
	JSONOutput bool
)

func init() {
	Logger = zap.NewNop().Sugar()
}

// Initialize installs a logger writing to stderr, so generated file notices
// on stdout stay clean. level is a zap level name; empty means info.
func Initialize(jsonOutput bool, level string) error {
	lvl := zapcore.InfoLevel
	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return errors.WithHint(errors.Wrapf(err, "invalid log level %q", level),
				"use one of debug, info, warn, error")
		}
		lvl = parsed
	}

	JSONOutput = jsonOutput
	if jsonOutput {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(lvl)
		config.OutputPaths = []string{"stderr"}
		config.ErrorOutputPaths = []string{"stderr"}
		zl, err := config.Build()
		if err != nil {
			return errors.Wrap(err, "failed to build logger")
		}
		Logger = zl.Sugar()
		return nil
	}

	Logger = zap.New(zapcore.NewCore(consoleEncoder(), zapcore.Lock(os.Stderr), lvl)).Sugar()
	return nil
}

// consoleEncoder prints "LEVEL message key=value" lines without timestamps.
func consoleEncoder() zapcore.Encoder {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	cfg.CallerKey = ""
	cfg.NameKey = ""
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if fi, err := os.Stderr.Stat(); err != nil || fi.Mode()&os.ModeCharDevice == 0 {
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}
