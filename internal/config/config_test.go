package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, key := range []string{"SOURCE", "ROOT", "DB", "REMOTE", "CATALOG", "PAGE_SIZE", "LOG_LEVEL"} {
		t.Setenv(EnvPrefix+"_"+key, "")
		os.Unsetenv(EnvPrefix + "_" + key)
	}
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, SourceFilesystem, cfg.Source)
	assert.Equal(t, DefaultRootPath, cfg.Root)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.File())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Precedence(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: sqlite\nroot: /from/file\npage_size: 20\n"), 0644))

	t.Setenv("CATALOGTREE_ROOT", "/from/env")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("page-size", 0, "")
	flags.String("source", "", "")
	require.NoError(t, flags.Parse([]string{"--page-size", "7"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.File())
	assert.Equal(t, "sqlite", cfg.Source, "unset flags do not override the file")
	assert.Equal(t, "/from/env", cfg.Root, "environment overrides the file")
	assert.Equal(t, 7, cfg.PageSize, "flags override everything")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "filesystem", cfg: Config{Source: "fs", Root: "/srv", PageSize: 10}},
		{name: "sqlite with db", cfg: Config{Source: "sqlite", DB: "/tmp/x.db", PageSize: 10}},
		{name: "http", cfg: Config{Source: "http", Remote: "http://localhost:8080", PageSize: 10}},
		{name: "yaml", cfg: Config{Source: "yaml", Catalog: "tree.yaml", PageSize: 10}},
		{name: "unknown source", cfg: Config{Source: "ftp", PageSize: 10}, wantErr: "expected fs, sqlite, http or yaml"},
		{name: "http without remote", cfg: Config{Source: "http", PageSize: 10}, wantErr: "remote is required"},
		{name: "page size", cfg: Config{Source: "fs", Root: "/srv", PageSize: 0}, wantErr: "page size must be between"},
		{name: "log level", cfg: Config{Source: "fs", Root: "/srv", PageSize: 5, LogLevel: "loud"}, wantErr: "log_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRootPath(t *testing.T) {
	t.Setenv("CATALOGTREE_ROOT", "")
	assert.Equal(t, DefaultRootPath, RootPath())
	t.Setenv("CATALOGTREE_ROOT", "/data")
	assert.Equal(t, "/data", RootPath())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger("info", &buf)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())

	logger.WithField("op", "test").Info("hello")
	assert.Contains(t, buf.String(), "op=test")

	_, err = NewLogger("chatty", &buf)
	assert.Error(t, err)
}

func TestLoggerFor_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "catalogtree.log")
	logger, closeLog, err := LoggerFor(&Config{LogLevel: "debug", LogFile: path}, nil)
	require.NoError(t, err)
	logger.Debug("written to file")
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}
