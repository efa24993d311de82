package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Component names used in structured log entries.
const (
	CompAuth       = "auth"
	CompAuthServer = "authserver"
	CompLookup     = "lookup"
	CompHighlight  = "highlight"
	CompNavigator  = "navigator"
	CompDrive      = "drive"
	CompHTTP       = "http"
	CompSession    = "session"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn", "error"
	Level string `toml:"level"`

	// Format is "json" (default) or "console"
	Format string `toml:"format"`

	// File, when set, receives logs through a rotating writer instead of stdout.
	File string `toml:"file"`

	MaxSizeMB  int  `toml:"max_size_mb"`
	MaxBackups int  `toml:"max_backups"`
	MaxAgeDays int  `toml:"max_age_days"`
	Compress   bool `toml:"compress"`
}

var (
	globalMu     sync.RWMutex
	globalLogger = zap.NewNop()
)

// Init builds the global logger from cfg. It can be called again to reconfigure.
func Init(cfg Config) *zap.Logger {
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups <= 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MaxAgeDays <= 0 {
		cfg.MaxAgeDays = 10
	}

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer
	if cfg.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	} else {
		sink = zapcore.Lock(os.Stdout)
	}

	logger := zap.New(zapcore.NewCore(encoder, sink, parseLevel(cfg.Level)), zap.AddCaller())

	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
	return logger
}

// L returns the global logger. Safe to call before Init (returns a no-op logger).
func L() *zap.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// ForComponent returns the global logger tagged with a component field.
func ForComponent(name string) *zap.Logger {
	return L().With(zap.String("component", name))
}

// Sync flushes buffered entries of the global logger.
func Sync() {
	_ = L().Sync()
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
