// Package log provides structured logging with filesystem-based persistence.
//
// Logging is off unless logs.write is set; a terminal player cannot share
// stderr with the TUI, so records always go to a dated file under where.Logs().
package log

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hlsplay/hlsplay/filesystem"
	"github.com/hlsplay/hlsplay/key"
	"github.com/hlsplay/hlsplay/where"
	logrus "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	enabled bool

	// discard backs With() while logging is disabled so callers never branch.
	discard = &logrus.Logger{Out: io.Discard, Formatter: new(logrus.TextFormatter), Hooks: make(logrus.LevelHooks), Level: logrus.PanicLevel}
)

// Setup initializes the log file, formatter and level from configuration.
// If logging is disabled all subsequent log emissions are silently discarded.
func Setup() error {
	enabled = viper.GetBool(key.LogsWrite)
	if !enabled {
		return nil
	}

	dir := where.Logs()
	if dir == "" {
		return errors.New("log directory path is empty")
	}

	path := filepath.Join(dir, fmt.Sprintf("%s.log", time.Now().Format("2006-01-02")))

	f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logrus.SetOutput(f)

	if viper.GetBool(key.LogsJson) {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	parsed, err := logrus.ParseLevel(viper.GetString(key.LogsLevel))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logrus.SetLevel(parsed)

	return nil
}

func entry() *logrus.Entry {
	if !enabled {
		return logrus.NewEntry(discard)
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// With returns an entry carrying the given fields, e.g. the session URL or engine name.
func With(fields logrus.Fields) *logrus.Entry {
	return entry().WithFields(fields)
}

func Error(args ...any)                 { entry().Error(args...) }
func Errorf(format string, args ...any) { entry().Errorf(format, args...) }
func Warn(args ...any)                  { entry().Warn(args...) }
func Warnf(format string, args ...any)  { entry().Warnf(format, args...) }
func Info(args ...any)                  { entry().Info(args...) }
func Infof(format string, args ...any)  { entry().Infof(format, args...) }
func Debug(args ...any)                 { entry().Debug(args...) }
func Debugf(format string, args ...any) { entry().Debugf(format, args...) }
func Tracef(format string, args ...any) { entry().Tracef(format, args...) }
