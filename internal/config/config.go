package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"catalogtree/internal/application"
)

const (
	DefaultRootPath = "."
	DefaultListen   = "127.0.0.1:8080"
	EnvPrefix       = "CATALOGTREE"
)

// Sources a tree can be served from
const (
	SourceFilesystem = "fs"
	SourceSQLite     = "sqlite"
	SourceHTTP       = "http"
	SourceYAML       = "yaml"
)

// Config holds every setting read from file, environment and flags.
type Config struct {
	Source     string `mapstructure:"source"`
	Root       string `mapstructure:"root"`
	DB         string `mapstructure:"db"`
	Remote     string `mapstructure:"remote"`
	Catalog    string `mapstructure:"catalog"`
	PageSize   int    `mapstructure:"page_size"`
	ShowHidden bool   `mapstructure:"show_hidden"`
	Editor     string `mapstructure:"editor"`
	LogLevel   string `mapstructure:"log_level"`
	LogFile    string `mapstructure:"log_file"`
	Listen     string `mapstructure:"listen"`

	file string
}

// RootPath returns the root directory from CATALOGTREE_ROOT env var,
// falling back to DefaultRootPath.
func RootPath() string {
	if env := os.Getenv(EnvPrefix + "_ROOT"); env != "" {
		return env
	}
	return DefaultRootPath
}

// DefaultConfigFile returns $XDG_CONFIG_HOME/catalogtree/config.yaml.
func DefaultConfigFile() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "catalogtree", "config.yaml")
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"source":      "source",
	"root":        "root",
	"db":          "db",
	"remote":      "remote",
	"catalog":     "catalog",
	"page-size":   "page_size",
	"show-hidden": "show_hidden",
	"log-level":   "log_level",
	"log-file":    "log_file",
	"listen":      "listen",
}

// Load reads the config file at path (or the default location when path
// is empty), then the CATALOGTREE_* environment, then any flags that were
// set. A missing default file is not an error.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(filepath.Dir(DefaultConfigFile()))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	// Set defaults
	v.SetDefault("source", SourceFilesystem)
	v.SetDefault("root", RootPath())
	v.SetDefault("db", "")
	v.SetDefault("remote", "")
	v.SetDefault("catalog", "")
	v.SetDefault("page_size", application.DefaultPageSize)
	v.SetDefault("show_hidden", false)
	v.SetDefault("editor", "")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_file", "")
	v.SetDefault("listen", DefaultListen)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.file = v.ConfigFileUsed()
	return cfg, nil
}

// File returns the config file that was read, if any.
func (c *Config) File() string {
	return c.file
}

// Validate checks that the selected source has what it needs.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Source) {
	case SourceFilesystem:
		if err := application.ValidateRequired("root", c.Root); err != nil {
			return err
		}
	case SourceSQLite:
		if c.DB == "" {
			if err := application.ValidateRequired("root", c.Root); err != nil {
				return &application.ValidationError{Field: "db", Message: "db or root is required for the sqlite source"}
			}
		}
	case SourceHTTP:
		if err := application.ValidateRequired("remote", c.Remote); err != nil {
			return err
		}
	case SourceYAML:
		if err := application.ValidateRequired("catalog", c.Catalog); err != nil {
			return err
		}
	default:
		return &application.ValidationError{
			Field:   "source",
			Message: fmt.Sprintf("expected fs, sqlite, http or yaml, got: %s", c.Source),
		}
	}

	if err := application.ValidatePageSize("pageSize", c.PageSize); err != nil {
		return err
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return &application.ValidationError{Field: "log_level", Message: err.Error()}
	}
	return nil
}
