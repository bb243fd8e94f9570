// Package config loads hubsync configuration.
//
// Sources, lowest precedence first:
//  1. built-in defaults
//  2. hubsync.yaml (or the file named by --config)
//  3. legacy environment: NOTION_TOKEN, DATABASE_HUB, DATABASES_SRC
//  4. HUBSYNC_* environment, e.g. HUBSYNC_STORE_NOTION_TOKEN
//  5. command-line flags that were explicitly set
//
// The merged result is validated against an embedded CUE schema and a few
// cross-field rules before it is returned.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Default values.
const (
	DefaultSourceField   = "Source"
	DefaultDeletedField  = "Deleted"
	DefaultDriver        = DriverNotion
	DefaultNotionBaseURL = "https://api.notion.com"
	DefaultNotionVersion = "2022-06-28"
	DefaultPageSize      = 100
	DefaultTimeout       = 30 * time.Second
	DefaultSQLitePath    = "hubsync.db"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
)

// Store drivers.
const (
	DriverNotion = "notion"
	DriverSQLite = "sqlite"
)

// EnvPrefix prefixes every hubsync environment variable.
const EnvPrefix = "HUBSYNC_"

// Config holds all hubsync configuration.
type Config struct {
	Hub     string   `koanf:"hub" json:"hub"`
	Sources []string `koanf:"sources" json:"sources"`
	Fields  Fields   `koanf:"fields" json:"fields"`
	Store   Store    `koanf:"store" json:"store"`
	Log     Log      `koanf:"log" json:"log"`
}

// Fields names the special properties the engine reads.
type Fields struct {
	Source  string `koanf:"source" json:"source"`
	Deleted string `koanf:"deleted" json:"deleted"`

	// Modified names a last_edited_time property used for conflict
	// resolution instead of the page timestamp. Empty means page timestamp.
	Modified string `koanf:"modified" json:"modified"`
}

// Store selects and configures the record store.
type Store struct {
	Driver string       `koanf:"driver" json:"driver"`
	Notion NotionConfig `koanf:"notion" json:"notion"`
	SQLite SQLiteConfig `koanf:"sqlite" json:"sqlite"`
}

// NotionConfig configures the Notion API client.
type NotionConfig struct {
	Token    string        `koanf:"token" json:"token"`
	BaseURL  string        `koanf:"base_url" json:"base_url"`
	Version  string        `koanf:"version" json:"version"`
	PageSize int           `koanf:"page_size" json:"page_size"`
	Timeout  time.Duration `koanf:"timeout" json:"timeout"`
}

// SQLiteConfig configures the local SQLite store.
type SQLiteConfig struct {
	Path string `koanf:"path" json:"path"`
}

// Log configures the process logger.
type Log struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}

// Redacted returns a copy safe to print: the API token is masked.
func (c Config) Redacted() Config {
	if c.Store.Notion.Token != "" {
		c.Store.Notion.Token = "********"
	}
	c.Sources = append([]string(nil), c.Sources...)
	return c
}

// defaults is the lowest configuration layer.
func defaults() map[string]any {
	return map[string]any{
		"fields.source":          DefaultSourceField,
		"fields.deleted":         DefaultDeletedField,
		"fields.modified":        "",
		"store.driver":           DefaultDriver,
		"store.notion.base_url":  DefaultNotionBaseURL,
		"store.notion.version":   DefaultNotionVersion,
		"store.notion.page_size": DefaultPageSize,
		"store.notion.timeout":   DefaultTimeout.String(),
		"store.sqlite.path":      DefaultSQLitePath,
		"log.level":              DefaultLogLevel,
		"log.format":             DefaultLogFormat,
	}
}

// envKeys maps HUBSYNC_* suffixes (lower-cased) to config keys. Underscores
// cannot be turned into dots blindly because some keys contain them.
var envKeys = map[string]string{
	"hub":                    "hub",
	"sources":                "sources",
	"fields_source":          "fields.source",
	"fields_deleted":         "fields.deleted",
	"fields_modified":        "fields.modified",
	"store_driver":           "store.driver",
	"store_notion_token":     "store.notion.token",
	"store_notion_base_url":  "store.notion.base_url",
	"store_notion_version":   "store.notion.version",
	"store_notion_page_size": "store.notion.page_size",
	"store_notion_timeout":   "store.notion.timeout",
	"store_sqlite_path":      "store.sqlite.path",
	"log_level":              "log.level",
	"log_format":             "log.format",
}

// legacyEnvKeys are the variables the original sync script read from .env.
var legacyEnvKeys = map[string]string{
	"NOTION_TOKEN":  "store.notion.token",
	"DATABASE_HUB":  "hub",
	"DATABASES_SRC": "sources",
}

// flagKeys maps CLI flag names to config keys. Flags not listed are not
// configuration.
var flagKeys = map[string]string{
	"hub":         "hub",
	"source":      "sources",
	"store":       "store.driver",
	"sqlite-path": "store.sqlite.path",
	"log-format":  "log.format",
	"log-level":   "log.level",
}

// FindConfigFile returns explicit if set, else hubsync.yaml or hubsync.yml
// in the working directory, else "".
func FindConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"hubsync.yaml", "hubsync.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads, merges and validates configuration.
// flags may be nil. Returns the config and the config file used, if any.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := FindConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Legacy environment
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		target, ok := legacyEnvKeys[key]
		if !ok || value == "" {
			return "", nil
		}
		if target == "sources" {
			return target, parseList(value)
		}
		return target, value
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load legacy env vars: %w", err)
	}

	// 4. HUBSYNC_ environment
	// Transform: HUBSYNC_STORE_NOTION_BASE_URL -> store.notion.base_url
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, any) {
		target, ok := envKeys[strings.ToLower(strings.TrimPrefix(key, EnvPrefix))]
		if !ok || value == "" {
			return "", nil
		}
		if target == "sources" {
			return target, parseList(value)
		}
		return target, value
	}), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags (only those explicitly set)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, used, err
	}
	return &cfg, used, nil
}

// parseList accepts a JSON array (the legacy DATABASES_SRC form) or a
// comma-separated list.
func parseList(value string) []string {
	value = strings.TrimSpace(value)
	if strings.HasPrefix(value, "[") {
		var out []string
		if err := json.Unmarshal([]byte(value), &out); err == nil {
			return out
		}
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
