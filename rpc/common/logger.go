package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/lni/dragonboat/v4/logger"
)

// LogOutput receives the lines of all loggers created by CreateLogger
var LogOutput io.Writer = os.Stdout

// LoggerNames lists all loggers used by the dMsg packages
var LoggerNames = []string{
	"registry",
	"pool",
	"buffer",
	"emitter",
	"transport",
	"server",
	"client",
	"game",
	"cli",
}

// levelTags are the column values written for each level
var levelTags = map[logger.LogLevel]string{
	logger.CRITICAL: "CRIT",
	logger.ERROR:    "ERROR",
	logger.WARNING:  "WARN",
	logger.INFO:     "INFO",
	logger.DEBUG:    "DEBUG",
}

// --------------------------------------------------------------------------
// Line Logger
// --------------------------------------------------------------------------

// lineLogger writes one "LEVEL | name | message" line per call. It is installed for every
// package logger with logger.SetLoggerFactory.
type lineLogger struct {
	name  string
	level logger.LogLevel
	out   *log.Logger
}

func (l *lineLogger) SetLevel(level logger.LogLevel) { l.level = level }

func (l *lineLogger) Debugf(format string, args ...interface{}) {
	l.logf(logger.DEBUG, format, args...)
}

func (l *lineLogger) Infof(format string, args ...interface{}) {
	l.logf(logger.INFO, format, args...)
}

func (l *lineLogger) Warningf(format string, args ...interface{}) {
	l.logf(logger.WARNING, format, args...)
}

func (l *lineLogger) Errorf(format string, args ...interface{}) {
	l.logf(logger.ERROR, format, args...)
}

// Panicf logs the message and panics with it regardless of the level
func (l *lineLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logf(logger.CRITICAL, "%s", msg)
	panic(msg)
}

func (l *lineLogger) logf(level logger.LogLevel, format string, args ...interface{}) {
	if level > l.level {
		return
	}
	l.out.Printf("%-5s | %-15s | %s", levelTags[level], l.name, fmt.Sprintf(format, args...))
}

// CreateLogger is the logger.Factory of dMsg
func CreateLogger(pkgName string) logger.ILogger {
	return &lineLogger{
		name:  pkgName,
		level: logger.INFO,
		out:   log.New(LogOutput, "", log.Ldate|log.Ltime),
	}
}

// --------------------------------------------------------------------------
// Levels
// --------------------------------------------------------------------------

// ParseLogLevel converts the name of a level (debug, info, warn, warning, error) to a
// logger.LogLevel, the case is ignored
func ParseLogLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(level) {
	case "debug":
		return logger.DEBUG, nil
	case "info":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	}
	return logger.INFO, fmt.Errorf("invalid log level: %s. must be one of debug, info, warn, error", level)
}

// InitLoggers installs CreateLogger as logger factory and sets the level of every logger
// in LoggerNames
func InitLoggers(level string) error {
	logLevel, err := ParseLogLevel(level)
	if err != nil {
		return err
	}

	logger.SetLoggerFactory(CreateLogger)
	for _, name := range LoggerNames {
		logger.GetLogger(name).SetLevel(logLevel)
	}
	return nil
}
