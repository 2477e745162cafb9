// Package logging provides categorized structured logging for gemai.
// A single zap logger is built at startup; packages obtain named
// sub-loggers per category so log output can be filtered by subsystem.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names used across the codebase.
const (
	CategoryAPI     = "api"     // provider requests and streaming
	CategoryConfig  = "config"  // preference loading and config building
	CategoryHistory = "history" // history store operations
	CategoryUI      = "ui"      // terminal rendering, chat TUI
)

var (
	mu   sync.RWMutex
	root = zap.NewNop()
)

// Init builds the process logger. With verbose=true a development
// config at debug level is used, otherwise a production config that
// only emits warnings and errors (normal CLI output stays clean).
func Init(verbose bool) error {
	var cfg zap.Config
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return err
	}

	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

// L returns a named sugared logger for the given category.
func L(category string) *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return root.Named(category).Sugar()
}

// Sync flushes buffered log entries. Safe to call on exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = root.Sync()
}
