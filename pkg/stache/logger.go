package stache

import (
	"os"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
)

var (
	globalLogger     *log.Logger
	globalLoggerMu   sync.RWMutex
	globalLoggerOnce sync.Once
)

func initGlobalLogger() {
	globalLoggerOnce.Do(func() {
		config := GetGlobalConfig()
		logger := &log.Logger{
			Handler: text.New(os.Stderr),
			Level:   parseLogLevel(config.LogLevel),
		}
		globalLoggerMu.Lock()
		if globalLogger == nil {
			globalLogger = logger
		}
		globalLoggerMu.Unlock()
	})
}

// parseLogLevel maps a config level name to an apex level. "off" keeps
// only fatal messages, which the library never emits.
func parseLogLevel(levelStr string) log.Level {
	levelStr = strings.ToLower(strings.TrimSpace(levelStr))
	if levelStr == "off" {
		return log.FatalLevel
	}
	level, err := log.ParseLevel(levelStr)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// SetLogger replaces the logger used by the package.
func SetLogger(logger *log.Logger) {
	initGlobalLogger()
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	globalLogger = logger
}

// GetLogger returns the logger used by the package.
func GetLogger() *log.Logger {
	initGlobalLogger()
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

func debugEnabled() bool {
	logger := GetLogger()
	return logger != nil && logger.Level <= log.DebugLevel
}

// UpdateLoggerFromConfig updates the global logger level from the current global configuration
func UpdateLoggerFromConfig() {
	config := GetGlobalConfig()
	initGlobalLogger()

	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if globalLogger == nil {
		return
	}
	// apex loggers are shared by their entries, so the level is changed on a copy
	updated := *globalLogger
	updated.Level = parseLogLevel(config.LogLevel)
	globalLogger = &updated
}
