// Package logging owns the process-wide arbor logger.
package logging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

var (
	globalLogger arbor.ILogger
	loggerMutex  sync.RWMutex
)

// Options mirrors the logging section of the config file.
type Options struct {
	Level  string
	Format string   // "text" or "json"
	Output []string // "console", "stdout", "file"
	Dir    string   // directory for the file writer
}

// Get returns the global logger, creating a console logger on first use.
func Get() arbor.ILogger {
	loggerMutex.RLock()
	if globalLogger != nil {
		loggerMutex.RUnlock()
		return globalLogger
	}
	loggerMutex.RUnlock()

	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	if globalLogger == nil {
		globalLogger = arbor.NewLogger().WithConsoleWriter(consoleWriter(models.OutputFormatLogfmt))
	}
	return globalLogger
}

// Init builds the global logger from opts and returns it.
func Init(opts Options) arbor.ILogger {
	loggerMutex.Lock()
	defer loggerMutex.Unlock()

	format := outputFormat(opts.Format)
	logger := arbor.NewLogger()

	hasConsole := len(opts.Output) == 0
	for _, out := range opts.Output {
		switch strings.ToLower(out) {
		case "console", "stdout":
			hasConsole = true
		case "file":
			dir := opts.Dir
			if dir == "" {
				dir = "logs"
			}
			if err := os.MkdirAll(dir, 0755); err != nil {
				hasConsole = true
				continue
			}
			logger = logger.WithFileWriter(models.WriterConfiguration{
				Type:       models.LogWriterTypeFile,
				FileName:   filepath.Join(dir, "fundash.log"),
				TimeFormat: "15:04:05",
				MaxSize:    50 * 1024 * 1024,
				MaxBackups: 3,
				OutputType: format,
			})
		}
	}
	if hasConsole {
		logger = logger.WithConsoleWriter(consoleWriter(format))
	}

	level := opts.Level
	if level == "" {
		level = "info"
	}
	logger = logger.WithLevelFromString(level)

	globalLogger = logger
	return logger
}

// OrDefault returns l, or the global logger when l is nil.
func OrDefault(l arbor.ILogger) arbor.ILogger {
	if l != nil {
		return l
	}
	return Get()
}

// outputFormat maps the configured format onto arbor's writer formats.
// Anything other than "json" is logfmt text.
func outputFormat(format string) models.OutputFormat {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return models.OutputFormatJSON
	}
	return models.OutputFormatLogfmt
}

func consoleWriter(format models.OutputFormat) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		OutputType:       format,
		DisableTimestamp: false,
	}
}
