package dryml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigEnv names the environment variable holding the config file path.
const ConfigEnv = "DRYML_CONFIG"

// DefaultConfigFile is looked up in the working directory.
const DefaultConfigFile = "dryml.yaml"

// Config is the configuration of the drymlc tool and inspection server.
type Config struct {
	// Root is the directory templates are read from.
	Root string `yaml:"root"`
	// StaticTags replaces the built-in HTML tag list when set.
	StaticTags []string `yaml:"static_tags"`
	// ExtraStaticTags are added to the static tag list.
	ExtraStaticTags []string `yaml:"extra_static_tags"`
	// LocalNames and AutoTaglibs are forwarded to the builder.
	LocalNames  []string     `yaml:"local_names"`
	AutoTaglibs []string     `yaml:"auto_taglibs"`
	Watch       bool         `yaml:"watch"`
	Log         LogConfig    `yaml:"log"`
	Server      ServerConfig `yaml:"server"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Defaults returns a config with defaults applied.
func Defaults() *Config {
	return &Config{
		Root: ".",
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8089",
		},
	}
}

// LoadConfig reads configuration from path, or from DRYML_CONFIG or
// ./dryml.yaml when path is empty. ${VAR} and ${VAR:-default} are expanded
// using getenv. Without any config file the defaults are returned.
func LoadConfig(path string, getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if path == "" {
		path = getenv(ConfigEnv)
	}
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Defaults(), nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(interpolateEnv(data, getenv), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if !filepath.IsAbs(cfg.Root) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
		cfg.Root = filepath.Join(filepath.Dir(abs), cfg.Root)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		value := getenv(string(parts[1]))
		if value == "" && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

// Validate checks the config for errors, reporting all of them at once.
func (c *Config) Validate() error {
	var errs []string
	if strings.TrimSpace(c.Root) == "" {
		errs = append(errs, "root is required")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "silent": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, error or silent)", c.Log.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", c.Log.Format))
	}
	for _, t := range append(append([]string(nil), c.StaticTags...), c.ExtraStaticTags...) {
		if !nameRx.MatchString(strings.ReplaceAll(t, "-", "_")) {
			errs = append(errs, fmt.Sprintf("invalid static tag: %q", t))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// TagRegistry builds the static tag set described by the config.
func (c *Config) TagRegistry() StaticTagSet {
	tags := NewStaticTagSet(c.StaticTags...)
	if len(tags) == 0 {
		tags = DefaultStaticTags()
	}
	tags.Add(c.ExtraStaticTags...)
	return tags
}

// BuildOptions returns the builder options described by the config.
func (c *Config) BuildOptions() BuildOptions {
	return BuildOptions{LocalNames: c.LocalNames, AutoTaglibs: c.AutoTaglibs}
}
