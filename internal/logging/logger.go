// Package logging configures the process-wide logrus logger.
//
// Console output is human-readable text; file output is JSON, written to a
// size-rotated combined.log with errors duplicated into error.log.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup configures the global logrus logger. dir may be empty to log to the
// console only.
func Setup(level, dir string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stdout)
	logrus.StandardLogger().ReplaceHooks(make(logrus.LevelHooks))
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}

	logrus.AddHook(newFileHook(filepath.Join(dir, "combined.log"), logrus.AllLevels))
	logrus.AddHook(newFileHook(filepath.Join(dir, "error.log"), []logrus.Level{
		logrus.PanicLevel, logrus.FatalLevel, logrus.ErrorLevel,
	}))
	return nil
}

// fileHook writes JSON entries to a rotated file.
type fileHook struct {
	out       io.Writer
	levels    []logrus.Level
	formatter logrus.Formatter
}

func newFileHook(path string, levels []logrus.Level) *fileHook {
	return &fileHook{
		out: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
		},
		levels:    levels,
		formatter: &logrus.JSONFormatter{},
	}
}

func (h *fileHook) Levels() []logrus.Level {
	return h.levels
}

func (h *fileHook) Fire(entry *logrus.Entry) error {
	data, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(data)
	return err
}
