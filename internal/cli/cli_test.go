package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/scheduler/internal/config"
	"github.com/matthewbaird/scheduler/internal/editor"
	"github.com/matthewbaird/scheduler/internal/log"
	"github.com/matthewbaird/scheduler/internal/render"
)

const testConfig = `
commission_rate: 0.9
default_unit_price: 5
currency: USD
locale: en-US
resource_field: resource_id
require_contact: %s
services:
  - id: 42
    text: Haircut
`

func runCLI(t *testing.T, args []string) (stdout []byte, stderr []byte, err error) {
	t.Helper()
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	cmd := NewRootCmd()

	var outBuf bytes.Buffer
	var errBuf bytes.Buffer
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)

	e := cmd.Execute()
	return outBuf.Bytes(), errBuf.Bytes(), e
}

func writeConfig(t *testing.T, requireContact bool) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	flag := "false"
	if requireContact {
		flag = "true"
	}
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(testConfig, flag)), 0o600))
	return path
}

func mustRun(t *testing.T, args ...string) []byte {
	t.Helper()
	stdout, stderr, err := runCLI(t, args)
	require.NoError(t, err, "scheduler %v\nstderr:\n%s", args, stderr)
	return stdout
}

func decodeEvent(t *testing.T, b []byte) map[string]any {
	t.Helper()
	var ev map[string]any
	require.NoError(t, json.Unmarshal(b, &ev), string(b))
	return ev
}

func bookRoom(t *testing.T, cfg string, extra ...string) map[string]any {
	t.Helper()
	args := append([]string{"--config", cfg, "book",
		"--start", "2026-03-02T09:00:00Z",
		"--end", "2026-03-02T10:00:00Z",
		"--resource", "room-1",
		"--set", "name=Ann Lee",
		"--line", "42:2",
	}, extra...)
	return decodeEvent(t, mustRun(t, args...))
}

func TestBook_CreatesEvent(t *testing.T) {
	cfg := writeConfig(t, false)
	ev := bookRoom(t, cfg)

	id, _ := ev["event_id"].(string)
	assert.NotEmpty(t, id)
	assert.Equal(t, "room-1", ev["resource_id"])
	assert.Equal(t, "Ann Lee", ev["name"])
	assert.Equal(t, "2026-03-02T09:00:00Z", ev["start"])
	assert.Equal(t, "2026-03-02T10:00:00Z", ev["end"])
	assert.Equal(t, 10.0, ev["totalPrice"])
	assert.Equal(t, 9.0, ev["totalIncome"])

	services, _ := ev["services"].([]any)
	require.Len(t, services, 1)
	line := services[0].(map[string]any)
	assert.Equal(t, "42", line["id_service"])
	assert.Equal(t, 10.0, line["priceTotal"])

	data, err := os.ReadFile(filepath.Join(filepath.Dir(cfg), "events.json"))
	require.NoError(t, err)
	var stored []map[string]any
	require.NoError(t, json.Unmarshal(data, &stored))
	require.Len(t, stored, 1)
	assert.Equal(t, id, stored[0]["event_id"])
}

func TestBook_EditKeepsIDAndLines(t *testing.T) {
	cfg := writeConfig(t, false)
	id := bookRoom(t, cfg)["event_id"].(string)

	ev := decodeEvent(t, mustRun(t, "--config", cfg, "book", "--event", id, "--set", "comment=window seat", "--line", "42:1:7.5"))
	assert.Equal(t, id, ev["event_id"])
	assert.Equal(t, "window seat", ev["comment"])
	assert.Len(t, ev["services"], 2)
	assert.Equal(t, 17.5, ev["totalPrice"])

	var list []map[string]any
	require.NoError(t, json.Unmarshal(mustRun(t, "--config", cfg, "list"), &list))
	assert.Len(t, list, 1)
}

func TestBook_RemoveLineRecomputes(t *testing.T) {
	cfg := writeConfig(t, false)
	id := bookRoom(t, cfg)["event_id"].(string)

	ev := decodeEvent(t, mustRun(t, "--config", cfg, "book", "--event", id, "--remove-line", "0"))
	assert.Empty(t, ev["services"])
	assert.Equal(t, 0.0, ev["totalPrice"])
}

func TestBook_ValidationBlocksSave(t *testing.T) {
	cfg := writeConfig(t, true)

	stdout, stderr, err := runCLI(t, []string{"--config", cfg, "book", "--start", "2026-03-02T09:00:00Z"})
	var verr *editor.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
	assert.Empty(t, stdout)
	assert.Contains(t, string(stderr), "(!)")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(cfg), "events.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBook_ConfirmedIsReadOnly(t *testing.T) {
	cfg := writeConfig(t, false)
	ev := bookRoom(t, cfg, "--confirm")
	assert.Equal(t, true, ev["confirmed"])
	id := ev["event_id"].(string)

	_, _, err := runCLI(t, []string{"--config", cfg, "book", "--event", id, "--set", "name=Bob Stone"})
	assert.ErrorIs(t, err, editor.ErrReadOnly)

	out := mustRun(t, "--config", cfg, "show", id)
	assert.Contains(t, string(out), "Ann Lee")
	assert.NotContains(t, string(out), "[Save]")
}

func TestBook_DryRunDoesNotSave(t *testing.T) {
	cfg := writeConfig(t, false)
	out := mustRun(t, "--config", cfg, "book", "--start", "2026-03-02T09:00:00Z", "--set", "name=Ann Lee", "--dry-run")
	assert.Contains(t, string(out), "Full name")
	assert.Contains(t, string(out), "Ann Lee")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(cfg), "events.json"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBook_BadInput(t *testing.T) {
	cfg := writeConfig(t, false)

	_, _, err := runCLI(t, []string{"--config", cfg, "book", "--set", "nobody"})
	assert.Error(t, err)

	_, _, err = runCLI(t, []string{"--config", cfg, "book", "--set", "nope=1"})
	assert.ErrorIs(t, err, editor.ErrUnknownField)

	_, _, err = runCLI(t, []string{"--config", cfg, "book", "--start", "tomorrow"})
	assert.Error(t, err)

	_, _, err = runCLI(t, []string{"--config", cfg, "book", "--line", "42:x"})
	assert.Error(t, err)
}

func TestList_FiltersByResource(t *testing.T) {
	cfg := writeConfig(t, false)
	bookRoom(t, cfg)
	mustRun(t, "--config", cfg, "book", "--start", "2026-03-03T09:00:00Z", "--resource", "room-2")

	var list []map[string]any
	require.NoError(t, json.Unmarshal(mustRun(t, "--config", cfg, "list", "--resource", "room-2"), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "room-2", list[0]["resource_id"])

	require.NoError(t, json.Unmarshal(mustRun(t, "--config", cfg, "list", "--since", "2026-03-02T12:00:00Z"), &list))
	assert.Len(t, list, 1)
}

func TestExportICS(t *testing.T) {
	cfg := writeConfig(t, false)
	bookRoom(t, cfg, "--confirm")

	out := string(mustRun(t, "--config", cfg, "export-ics"))
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "STATUS:CONFIRMED")

	file := filepath.Join(t.TempDir(), "feed.ics")
	mustRun(t, "--config", cfg, "export-ics", "-o", file)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VEVENT")
}

func TestHistory(t *testing.T) {
	cfg := writeConfig(t, false)
	id := bookRoom(t, cfg)["event_id"].(string)
	mustRun(t, "--config", cfg, "book", "--event", id, "--confirm")

	var page historyPage
	require.NoError(t, json.Unmarshal(mustRun(t, "--config", cfg, "history", "--event", id), &page))
	require.Len(t, page.Entries, 2)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, "booking_confirmed", page.Entries[0].EventType)
	assert.Equal(t, "booking_created", page.Entries[1].EventType)

	require.NoError(t, json.Unmarshal(mustRun(t, "--config", cfg, "history", "--resource", "room-1", "--type", "booking_created"), &page))
	require.Len(t, page.Entries, 1)
	assert.Equal(t, "context", page.Entries[0].EntityRole)

	require.NoError(t, json.Unmarshal(mustRun(t, "--config", cfg, "history", "--search", "CONFIRMED"), &page))
	assert.NotEmpty(t, page.Entries)

	_, _, err := runCLI(t, []string{"--config", cfg, "history"})
	assert.Error(t, err)
}

func TestConfigCreatedOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	out := mustRun(t, "--config", path, "list")
	assert.JSONEq(t, "[]", string(out))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestWorkspace_CustomEditorFollowsRenderer(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, false))
	require.NoError(t, err)
	ws, err := (&App{cfg: cfg}).workspace()
	require.NoError(t, err)

	opts, err := ws.options(nil)
	require.NoError(t, err)
	assert.False(t, opts.CustomEditor)

	var drawn bool
	ws.renderer.Custom = render.CustomEditorFunc(func(w io.Writer, c render.Capabilities) error {
		drawn = true
		return nil
	})
	opts, err = ws.options(nil)
	require.NoError(t, err)
	assert.True(t, opts.CustomEditor)

	sess, err := editor.Open(ws.schema, nil, opts)
	require.NoError(t, err)
	require.NoError(t, ws.renderer.Render(io.Discard, sess))
	assert.True(t, drawn)
}
