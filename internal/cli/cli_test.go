package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate clears configuration from the environment and moves into an empty
// working directory so no hubsync.yaml is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"NOTION_TOKEN", "DATABASE_HUB", "DATABASES_SRC",
		"HUBSYNC_HUB", "HUBSYNC_SOURCES", "HUBSYNC_STORE_DRIVER",
		"HUBSYNC_STORE_NOTION_TOKEN", "HUBSYNC_STORE_SQLITE_PATH",
		"HUBSYNC_LOG_LEVEL", "HUBSYNC_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

// executeCommand runs the root command with args and captures both streams.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

// sqliteArgs returns the flags selecting a local SQLite store.
func sqliteArgs(dir string) []string {
	return []string{
		"--store", "sqlite",
		"--sqlite-path", filepath.Join(dir, "hubsync.db"),
		"--hub", "hub",
		"--source", "tasks",
	}
}

func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

const seedJSON = `[
  {
    "Name": {"type": "title", "title": [{"type": "text", "text": {"content": "Alpha"}, "plain_text": "Alpha"}]},
    "Points": {"type": "number", "number": 3}
  },
  {
    "Name": {"type": "title", "title": [{"type": "text", "text": {"content": "Beta"}, "plain_text": "Beta"}]},
    "Points": {"type": "number", "number": 5}
  }
]`

func writeSeed(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(seedJSON), 0o644))
	return path
}

func importSeed(t *testing.T, dir string) []string {
	t.Helper()
	args := append([]string{"import", "tasks", writeSeed(t, dir), "--format", "json"}, sqliteArgs(dir)...)
	out, _, err := executeCommand(t, args...)
	require.NoError(t, err)

	var result ImportResult
	resp := decodeResponse(t, out, &result)
	require.Equal(t, "ok", resp.Status)
	require.Len(t, result.Created, 2)
	return result.Created
}

func runSyncJSON(t *testing.T, dir string, extra ...string) (SyncResult, error) {
	t.Helper()
	args := append([]string{"sync", "--format", "json"}, sqliteArgs(dir)...)
	args = append(args, extra...)
	out, _, err := executeCommand(t, args...)

	var result SyncResult
	resp := decodeResponse(t, out, &result)
	require.Equal(t, "ok", resp.Status)
	return result, err
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	isolate(t)

	_, _, err := executeCommand(t, "version", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootCommand_UnknownCommand(t *testing.T) {
	isolate(t)

	_, _, err := executeCommand(t, "frobnicate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	names := make([]string, 0)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"sync", "inspect", "import", "validate", "version"})
}

func TestVersion(t *testing.T) {
	isolate(t)

	out, _, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "hubsync "+Version)

	out, _, err = executeCommand(t, "version", "--format", "json")
	require.NoError(t, err)
	var data map[string]string
	decodeResponse(t, out, &data)
	assert.Equal(t, Version, data["version"])
}

func TestValidate_SQLite(t *testing.T) {
	dir := isolate(t)

	args := append([]string{"validate"}, sqliteArgs(dir)...)
	out, _, err := executeCommand(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "hub:     hub")
	assert.Contains(t, out, "sources: tasks")
	assert.Contains(t, out, "store:   sqlite")
}

func TestValidate_ConfigFile(t *testing.T) {
	dir := isolate(t)
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
hub: hub-db
sources: [one, two]
store:
  driver: sqlite
  sqlite:
    path: local.db
`), 0o644))

	out, _, err := executeCommand(t, "validate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "sources: one, two")
	assert.Contains(t, out, "(local.db)")
}

func TestValidate_RedactsToken(t *testing.T) {
	isolate(t)
	t.Setenv("NOTION_TOKEN", "secret_abc")

	out, _, err := executeCommand(t, "validate", "--hub", "hub", "--source", "a", "--format", "json")
	require.NoError(t, err)
	assert.NotContains(t, out, "secret_abc")
	assert.Contains(t, out, `"token":"********"`)
}

func TestValidate_Invalid(t *testing.T) {
	isolate(t)

	out, _, err := executeCommand(t, "validate", "--hub", "hub", "--store", "sqlite", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out, nil)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeConfigInvalid, resp.Error.Code)
	assert.Contains(t, out, "sources")
}

func TestValidate_MissingToken(t *testing.T) {
	isolate(t)

	out, _, err := executeCommand(t, "validate", "--hub", "hub", "--source", "a")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E002]")
}

func TestImport_CreatesRecords(t *testing.T) {
	dir := isolate(t)

	ids := importSeed(t, dir)
	assert.NotEqual(t, ids[0], ids[1])
}

func TestImport_Text(t *testing.T) {
	dir := isolate(t)

	args := append([]string{"import", "tasks", writeSeed(t, dir), "--dry-run"}, sqliteArgs(dir)...)
	out, _, err := executeCommand(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Would create 2 record(s) in tasks")
}

func TestImport_BadFile(t *testing.T) {
	dir := isolate(t)
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"not": "an array"`), 0o644))

	args := append([]string{"import", "tasks", bad}, sqliteArgs(dir)...)
	out, _, err := executeCommand(t, args...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

func TestImport_MissingFile(t *testing.T) {
	dir := isolate(t)

	args := append([]string{"import", "tasks", filepath.Join(dir, "nope.json")}, sqliteArgs(dir)...)
	_, _, err := executeCommand(t, args...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestSync_MirrorsAndIsIdempotent(t *testing.T) {
	dir := isolate(t)
	importSeed(t, dir)

	first, err := runSyncJSON(t, dir)
	require.NoError(t, err)
	assert.False(t, first.DryRun)
	assert.Equal(t, 2, first.Forward.Scanned)
	assert.Equal(t, 2, first.Forward.Created)
	require.Len(t, first.Writes, 2)
	for _, w := range first.Writes {
		assert.True(t, strings.HasPrefix(w, "create hub "), w)
		assert.True(t, strings.HasSuffix(w, "[Name Points Source]"), w)
	}

	second, err := runSyncJSON(t, dir)
	require.NoError(t, err)
	assert.Empty(t, second.Writes)
	assert.Equal(t, 2, second.Reverse.Scanned)
	assert.Equal(t, 0, second.Forward.Created)
	assert.Equal(t, 0, second.Forward.Updated)
}

func TestSync_DryRunWritesNothing(t *testing.T) {
	dir := isolate(t)
	importSeed(t, dir)

	dry, err := runSyncJSON(t, dir, "--dry-run")
	require.NoError(t, err)
	assert.True(t, dry.DryRun)
	assert.Len(t, dry.Writes, 2)

	// The dry run left the hub empty, so a real pass still creates both.
	applied, err := runSyncJSON(t, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, applied.Forward.Created)
}

func TestSync_TextOutput(t *testing.T) {
	dir := isolate(t)
	importSeed(t, dir)

	args := append([]string{"sync", "--dry-run"}, sqliteArgs(dir)...)
	out, _, err := executeCommand(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run: no records were written.")
	assert.Contains(t, out, "reverse")
	assert.Contains(t, out, "forward")
	assert.Contains(t, out, "Writes:")
	assert.Contains(t, out, "create hub dry-run-1 [Name Points Source]")
}

func TestSync_StoreOpenFailure(t *testing.T) {
	dir := isolate(t)

	out, _, err := executeCommand(t, "sync",
		"--store", "sqlite",
		"--sqlite-path", filepath.Join(dir, "missing", "dir", "x.db"),
		"--hub", "hub", "--source", "tasks")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E003]")
}

func TestInspect_HubRecord(t *testing.T) {
	dir := isolate(t)
	ids := importSeed(t, dir)

	result, err := runSyncJSON(t, dir)
	require.NoError(t, err)
	require.NotEmpty(t, result.Writes)
	hubID := strings.Fields(result.Writes[0])[2]

	args := append([]string{"inspect", hubID, "--format", "json"}, sqliteArgs(dir)...)
	out, _, err := executeCommand(t, args...)
	require.NoError(t, err)

	var inspected InspectResult
	decodeResponse(t, out, &inspected)
	assert.Equal(t, hubID, inspected.ID)
	assert.Equal(t, "Alpha", inspected.Title)
	assert.Equal(t, ids[0], inspected.Source)
	assert.False(t, inspected.Deleted)

	byName := make(map[string]PropertySummary)
	for _, p := range inspected.Properties {
		byName[p.Name] = p
	}
	assert.Equal(t, "number", byName["Points"].Kind)
	assert.Equal(t, "3", byName["Points"].Value)
	assert.Equal(t, "rich_text", byName["Source"].Kind)
}

func TestInspect_Text(t *testing.T) {
	dir := isolate(t)
	ids := importSeed(t, dir)

	args := append([]string{"inspect", ids[1]}, sqliteArgs(dir)...)
	out, _, err := executeCommand(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "Title:         Beta")
	assert.Contains(t, out, "Deleted:       false")
	assert.Contains(t, out, "Points")
}

func TestInspect_NotFound(t *testing.T) {
	dir := isolate(t)

	args := append([]string{"inspect", "no-such-record"}, sqliteArgs(dir)...)
	out, _, err := executeCommand(t, args...)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E004]")
	assert.Contains(t, out, "archived or missing")
}
