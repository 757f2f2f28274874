// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// File encodings.
const (
	EncodingUTF8   = "utf-8"
	EncodingCP1251 = "cp1251"
)

// Empty-query search modes.
const (
	EmptyQueryNone = "none"
	EmptyQueryAll  = "all"
)

// Config holds all phonebook configuration.
type Config struct {
	Store  Store  `yaml:"store"`
	Log    Log    `yaml:"log"`
	Search Search `yaml:"search"`
}

// Store selects and configures the persistence backend.
type Store struct {
	Backend  string `yaml:"backend"`  // "file" | "postgres"
	Path     string `yaml:"path"`     // Contacts file for the file backend
	Encoding string `yaml:"encoding"` // "utf-8" | "cp1251"
	DSN      string `yaml:"dsn"`      // Connection string for the postgres backend
}

// Log holds logger settings.
type Log struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // "text" | "json"
	Output string `yaml:"output"` // "stderr", "stdout" or a file path
}

// Search holds search behavior settings.
type Search struct {
	EmptyQuery string `yaml:"empty_query"` // "none" | "all"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: Store{
			Backend:  BackendFile,
			Path:     "contacts.txt",
			Encoding: EncodingUTF8,
		},
		Log: Log{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
		},
		Search: Search{
			EmptyQuery: EmptyQueryNone,
		},
	}
}

// Load reads a single YAML config file at path and returns a Config.
// If the file does not exist, defaults are returned without error.
func Load(path string) (*Config, error) {
	return LoadLayered(path)
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendFile:
		if c.Store.Path == "" {
			return errors.New("config: store.path cannot be empty for the file backend")
		}
	case BackendPostgres:
		if c.Store.DSN == "" {
			return errors.New("config: store.dsn cannot be empty for the postgres backend")
		}
	default:
		return fmt.Errorf("config: store.backend must be %q or %q, got %q", BackendFile, BackendPostgres, c.Store.Backend)
	}
	switch c.Store.Encoding {
	case EncodingUTF8, EncodingCP1251:
	default:
		return fmt.Errorf("config: store.encoding must be %q or %q, got %q", EncodingUTF8, EncodingCP1251, c.Store.Encoding)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}
	if c.Log.Output == "" {
		return errors.New("config: log.output cannot be empty")
	}
	switch c.Search.EmptyQuery {
	case EmptyQueryNone, EmptyQueryAll:
	default:
		return fmt.Errorf("config: search.empty_query must be %q or %q, got %q", EmptyQueryNone, EmptyQueryAll, c.Search.EmptyQuery)
	}
	return nil
}

// envOverrides lists the variables ApplyEnv honors. Unset variables leave
// the corresponding field empty and the config untouched.
type envOverrides struct {
	Backend  string `env:"PHONEBOOK_STORE"`
	Path     string `env:"PHONEBOOK_PATH"`
	Encoding string `env:"PHONEBOOK_ENCODING"`
	DSN      string `env:"PHONEBOOK_DSN"`
	LogLevel string `env:"PHONEBOOK_LOG_LEVEL"`
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: PHONEBOOK_STORE, PHONEBOOK_PATH, PHONEBOOK_ENCODING,
// PHONEBOOK_DSN, PHONEBOOK_LOG_LEVEL.
func (c *Config) ApplyEnv() error {
	var o envOverrides
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("config: parsing environment: %w", err)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Store.Backend, o.Backend)
	set(&c.Store.Path, o.Path)
	set(&c.Store.Encoding, o.Encoding)
	set(&c.Store.DSN, o.DSN)
	set(&c.Log.Level, o.LogLevel)
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables that are already set. Missing
// files are ignored.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: loading %s: %w", p, err)
		}
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Store  *rawStore  `yaml:"store"`
	Log    *rawLog    `yaml:"log"`
	Search *rawSearch `yaml:"search"`
}

type rawStore struct {
	Backend  *string `yaml:"backend"`
	Path     *string `yaml:"path"`
	Encoding *string `yaml:"encoding"`
	DSN      *string `yaml:"dsn"`
}

type rawLog struct {
	Level  *string `yaml:"level"`
	Format *string `yaml:"format"`
	Output *string `yaml:"output"`
}

type rawSearch struct {
	EmptyQuery *string `yaml:"empty_query"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

func assign(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if s := layer.Store; s != nil {
		assign(&c.Store.Backend, s.Backend)
		assign(&c.Store.Path, s.Path)
		assign(&c.Store.Encoding, s.Encoding)
		assign(&c.Store.DSN, s.DSN)
	}
	if l := layer.Log; l != nil {
		assign(&c.Log.Level, l.Level)
		assign(&c.Log.Format, l.Format)
		assign(&c.Log.Output, l.Output)
	}
	if s := layer.Search; s != nil {
		assign(&c.Search.EmptyQuery, s.EmptyQuery)
	}
}
