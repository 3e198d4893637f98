// Package config handles run configuration for rubyagent and the agent
// profile written by setup.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"

	"github.com/imyousuf/rubyagent/internal/logging"
)

const (
	// DefaultConfigFile is the default configuration file name (without extension).
	DefaultConfigFile = ".rubyagent"
	// DefaultConfigType is the default configuration file type.
	DefaultConfigType = "yaml"
	// EnvPrefix prefixes environment overrides, e.g. RUBYAGENT_SERVER_PORT.
	EnvPrefix = "RUBYAGENT"
)

// Config holds all run configuration.
type Config struct {
	// Root is the directory analyzed when no argument is given.
	Root string `mapstructure:"root" yaml:"root"`
	// Output is the nodes document path; the classes dictionary is written
	// beside it.
	Output string `mapstructure:"output" yaml:"output"`
	// Exclude lists doublestar patterns matched against root-relative paths.
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
	// RespectGitIgnore skips files matched by the root .gitignore.
	RespectGitIgnore bool `mapstructure:"respect_gitignore" yaml:"respect_gitignore"`
	// Workers bounds the parallelism of the summary pass.
	Workers int `mapstructure:"workers" yaml:"workers"`
	// CacheSize is the number of sources kept between passes.
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size"`
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	// Store contains run history settings.
	Store StoreConfig `mapstructure:"store" yaml:"store"`
	// LogLevel is one of debug, info, warn or error.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	// LogFormat is text or json.
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// Addr joins host and port.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// StoreConfig holds run history settings.
type StoreConfig struct {
	// Path is the BadgerDB directory.
	Path string `mapstructure:"path" yaml:"path"`
	// Enabled turns persistence of runs on.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Load loads configuration using the file named by the global viper key
// "config_file" (set from --config), or .rubyagent.yaml in the working
// directory.
func Load() (*Config, error) {
	return LoadFile(viper.GetViper().GetString("config_file"))
}

// LoadFile loads configuration from file, environment variables and
// defaults. An empty path searches the working directory.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigFile)
		v.SetConfigType(DefaultConfigType)
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.CacheSize)
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid exclude pattern %q", pattern)
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return errors.New("store.path is required when the store is enabled")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("root", "")
	v.SetDefault("output", "nodes.json")
	v.SetDefault("exclude", []string{
		"**/.git/**",
		"**/node_modules/**",
	})
	v.SetDefault("respect_gitignore", false)
	v.SetDefault("workers", 1)
	v.SetDefault("cache_size", 512)

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8000)

	v.SetDefault("store.path", ".rubyagent/analysis.db")
	v.SetDefault("store.enabled", true)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}
