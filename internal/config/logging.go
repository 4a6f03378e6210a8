package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// ParseLevel accepts logrus level names plus "off".
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return logrus.WarnLevel, nil
	case "off":
		return logrus.PanicLevel, nil
	}
	return logrus.ParseLevel(level)
}

// NewLogger builds the logger shared by a binary. Keep it quiet unless
// there are issues.
func NewLogger(level string, out io.Writer) (*logrus.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(lvl)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: out == os.Stderr,
	})
	return logger, nil
}

// OpenLogFile opens path for appending, creating its directory.
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// LoggerFor builds a logger from cfg. Without a log file it writes to
// fallback; the returned close func releases the file.
func LoggerFor(cfg *Config, fallback io.Writer) (*logrus.Logger, func() error, error) {
	out := fallback
	closer := func() error { return nil }
	if cfg.LogFile != "" {
		f, err := OpenLogFile(cfg.LogFile)
		if err != nil {
			return nil, nil, err
		}
		out, closer = f, f.Close
	}
	logger, err := NewLogger(cfg.LogLevel, out)
	if err != nil {
		closer()
		return nil, nil, err
	}
	return logger, closer, nil
}
