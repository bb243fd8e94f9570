package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hubsync.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for key := range legacyEnvKeys {
		t.Setenv(key, "")
	}
	for suffix := range envKeys {
		t.Setenv(EnvPrefix+strings.ToUpper(suffix), "")
	}
}

const minimalYAML = `
hub: hub-db
sources: [src-a, src-b]
store:
  notion:
    token: secret
`

func TestLoad_DefaultsAndFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, minimalYAML)

	cfg, used, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, path, used)
	assert.Equal(t, "hub-db", cfg.Hub)
	assert.Equal(t, []string{"src-a", "src-b"}, cfg.Sources)
	assert.Equal(t, DefaultSourceField, cfg.Fields.Source)
	assert.Equal(t, DefaultDeletedField, cfg.Fields.Deleted)
	assert.Equal(t, DriverNotion, cfg.Store.Driver)
	assert.Equal(t, DefaultNotionBaseURL, cfg.Store.Notion.BaseURL)
	assert.Equal(t, DefaultNotionVersion, cfg.Store.Notion.Version)
	assert.Equal(t, DefaultPageSize, cfg.Store.Notion.PageSize)
	assert.Equal(t, DefaultTimeout, cfg.Store.Notion.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_LegacyEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTION_TOKEN", "legacy-token")
	t.Setenv("DATABASE_HUB", "legacy-hub")
	t.Setenv("DATABASES_SRC", `["s1","s2"]`)

	cfg, used, err := Load("", nil)
	require.NoError(t, err)

	assert.Empty(t, used)
	assert.Equal(t, "legacy-hub", cfg.Hub)
	assert.Equal(t, []string{"s1", "s2"}, cfg.Sources)
	assert.Equal(t, "legacy-token", cfg.Store.Notion.Token)
}

func TestLoad_PrefixedEnvOverridesLegacyAndFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, minimalYAML)
	t.Setenv("DATABASE_HUB", "legacy-hub")
	t.Setenv("HUBSYNC_HUB", "env-hub")
	t.Setenv("HUBSYNC_SOURCES", "x, y")
	t.Setenv("HUBSYNC_STORE_NOTION_BASE_URL", "http://localhost:9999")
	t.Setenv("HUBSYNC_STORE_NOTION_PAGE_SIZE", "25")
	t.Setenv("HUBSYNC_STORE_NOTION_TIMEOUT", "5s")

	cfg, _, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "env-hub", cfg.Hub)
	assert.Equal(t, []string{"x", "y"}, cfg.Sources)
	assert.Equal(t, "http://localhost:9999", cfg.Store.Notion.BaseURL)
	assert.Equal(t, 25, cfg.Store.Notion.PageSize)
	assert.Equal(t, 5*time.Second, cfg.Store.Notion.Timeout)
}

func TestLoad_ChangedFlagsWin(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, minimalYAML)
	t.Setenv("HUBSYNC_HUB", "env-hub")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("hub", "", "")
	flags.StringSlice("source", nil, "")
	flags.String("store", "", "")
	flags.String("sqlite-path", "", "")
	flags.Bool("dry-run", false, "")
	require.NoError(t, flags.Parse([]string{"--hub", "flag-hub", "--store", "sqlite", "--sqlite-path", "/tmp/x.db"}))

	cfg, _, err := Load(path, flags)
	require.NoError(t, err)

	assert.Equal(t, "flag-hub", cfg.Hub)
	assert.Equal(t, []string{"src-a", "src-b"}, cfg.Sources, "unset flags do not override")
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/tmp/x.db", cfg.Store.SQLite.Path)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_InvalidConfig(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
hub: ""
store:
  driver: postgres
log:
  level: loud
`)

	_, _, err := Load(path, nil)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	paths := make(map[string]bool)
	for _, p := range verr.Problems {
		paths[p.Path] = true
	}
	assert.True(t, paths["hub"], "problems: %v", verr.Problems)
	assert.True(t, paths["sources"], "problems: %v", verr.Problems)
	assert.True(t, paths["store.driver"], "problems: %v", verr.Problems)
	assert.True(t, paths["log.level"], "problems: %v", verr.Problems)
}

func TestValidate_CrossField(t *testing.T) {
	base := func() Config {
		return Config{
			Hub:     "hub",
			Sources: []string{"a"},
			Fields:  Fields{Source: "Source", Deleted: "Deleted"},
			Store: Store{
				Driver: DriverNotion,
				Notion: NotionConfig{Token: "t", BaseURL: DefaultNotionBaseURL, Version: DefaultNotionVersion, PageSize: 100, Timeout: time.Second},
				SQLite: SQLiteConfig{Path: "x.db"},
			},
			Log: Log{Level: "info", Format: "text"},
		}
	}

	ok := base()
	require.NoError(t, Validate(&ok))

	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"hub among sources", func(c *Config) { c.Sources = []string{"a", "hub"} }, "sources"},
		{"duplicate source", func(c *Config) { c.Sources = []string{"a", "a"} }, "sources"},
		{"missing token", func(c *Config) { c.Store.Notion.Token = "" }, "store.notion.token"},
		{"missing sqlite path", func(c *Config) { c.Store.Driver = DriverSQLite; c.Store.SQLite.Path = "" }, "store.sqlite.path"},
		{"same special fields", func(c *Config) { c.Fields.Deleted = "Source" }, "fields"},
		{"page size too large", func(c *Config) { c.Store.Notion.PageSize = 500 }, "store.notion.page_size"},
		{"bad base url", func(c *Config) { c.Store.Notion.BaseURL = "api.notion.com" }, "store.notion.base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)

			err := Validate(&cfg)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			var paths []string
			for _, p := range verr.Problems {
				paths = append(paths, p.Path)
			}
			assert.Contains(t, paths, tt.path)
		})
	}
}

func TestParseList(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, parseList(`["a","b"]`))
	assert.Equal(t, []string{"a", "b"}, parseList(" a , b ,"))
	assert.Equal(t, []string{"single"}, parseList("single"))
	assert.Nil(t, parseList(""))
}

func TestConfig_Redacted(t *testing.T) {
	cfg := Config{Sources: []string{"a"}, Store: Store{Notion: NotionConfig{Token: "secret"}}}

	red := cfg.Redacted()

	assert.Equal(t, "********", red.Store.Notion.Token)
	assert.Equal(t, "secret", cfg.Store.Notion.Token)
}
