// Package logging builds the zap loggers used by every pipeline command.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a logger named after the stage that writes human-readable records to stderr
// (INFO, or DEBUG when verbose) and, when debugFile is not empty, every record at DEBUG as JSON
// to that file.  The returned function flushes and closes the file.
func New(name, debugFile string, verbose bool) (*zap.Logger, func(), error) {
	level := zap.InfoLevel
	if verbose {
		level = zap.DebugLevel
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
	}

	closeFile := func() {}
	if debugFile != "" {
		f, err := os.OpenFile(debugFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("New: cannot open log file: %w", err)
		}
		closeFile = func() { f.Close() }
		cores = append(cores, zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(f),
			zap.DebugLevel,
		))
	}

	logger := zap.New(zapcore.NewTee(cores...)).Named(name)
	return logger, func() {
		_ = logger.Sync()
		closeFile()
	}, nil
}
