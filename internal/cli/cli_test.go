package cli

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWRT/tasksync/internal/api"
	"github.com/TWRT/tasksync/internal/logger"
	"github.com/TWRT/tasksync/internal/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func isolate(t *testing.T, driver string) string {
	t.Helper()
	dir := t.TempDir()
	path := dir
	if driver == "sqlite" {
		path = filepath.Join(dir, "tasks.db")
	}
	t.Setenv("TODO_STORAGE_DRIVER", driver)
	t.Setenv("TODO_STORAGE_PATH", path)
	t.Setenv("TODO_USER", "tester")
	t.Setenv("TODO_SYNC_URL", "")
	t.Setenv("TODO_LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd("test")
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, "tasksync %s", strings.Join(args, " "))
	return out
}

func TestCLI_TaskLifecycle(t *testing.T) {
	isolate(t, "file")

	assert.Contains(t, mustRun(t, "add", "buy", "milk"), "buy milk")
	mustRun(t, "add", "call", "mom", "--due", "+1h")

	out := mustRun(t, "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "call mom")
	assert.Contains(t, lines[0], "due soon")
	assert.Contains(t, lines[1], "buy milk")
	assert.Equal(t, "2 items left", lines[2])

	assert.Contains(t, mustRun(t, "toggle", "2"), "buy milk is done")
	assert.Contains(t, mustRun(t, "list", "--filter", "completed"), "buy milk")
	assert.Contains(t, mustRun(t, "list", "-f", "active"), "1 item left")

	assert.Contains(t, mustRun(t, "edit", "1", "call", "dad"), "call dad")
	mustRun(t, "move", "1", "2")
	out = mustRun(t, "list")
	assert.Less(t, strings.Index(out, "buy milk"), strings.Index(out, "call dad"))

	assert.Contains(t, mustRun(t, "clear-completed"), "Cleared 1 completed task")
	assert.Contains(t, mustRun(t, "due", "1", "none"), "call dad")

	_, err := run(t, "clear-all")
	assert.Error(t, err)
	assert.Contains(t, mustRun(t, "clear-all", "--yes"), "Cleared 1 task")
	assert.Contains(t, mustRun(t, "list"), "No tasks.")
}

func TestCLI_Errors(t *testing.T) {
	isolate(t, "memory")

	_, err := run(t, "add", "   ")
	assert.Error(t, err)

	_, err = run(t, "toggle", "missing")
	assert.Error(t, err)

	_, err = run(t, "list", "--filter", "someday")
	assert.Error(t, err)

	_, err = run(t, "sync")
	assert.ErrorContains(t, err, "sync is not configured")

	_, err = run(t, "history")
	assert.ErrorIs(t, err, errHistoryUnavailable)
}

func TestCLI_ExportImport(t *testing.T) {
	dir := isolate(t, "file")

	mustRun(t, "add", "water plants")
	mustRun(t, "add", "pay rent", "--due", "2026-11-01 09:00")

	yamlPath := filepath.Join(dir, "export.yaml")
	mustRun(t, "export", "-o", yamlPath)
	jsonOut := mustRun(t, "export")
	assert.Contains(t, jsonOut, `"text": "pay rent"`)

	mustRun(t, "clear-all", "--yes")
	assert.Contains(t, mustRun(t, "import", yamlPath), "2 new")
	out := mustRun(t, "list")
	assert.Contains(t, out, "pay rent")
	assert.Contains(t, out, "water plants")

	assert.Contains(t, mustRun(t, "import", yamlPath), "0 new, 2 updated")
	assert.Contains(t, mustRun(t, "import", "--replace", yamlPath), "Replaced list with 2 tasks")
}

func TestCLI_SyncAgainstServer(t *testing.T) {
	isolate(t, "sqlite")

	remoteBlobs := repository.NewMemoryBlobStore()
	srv := httptest.NewServer(api.SetupRouter(remoteBlobs, "todos_remote", logger.Discard()))
	defer srv.Close()
	t.Setenv("TODO_SYNC_URL", srv.URL)

	out := mustRun(t, "add", "shared task")
	assert.Contains(t, out, "Pushed 1 task.")

	out = mustRun(t, "sync")
	assert.Contains(t, out, "Pulled 1, merged to 1")
	assert.Contains(t, out, "Synced")

	out = mustRun(t, "history", "-n", "5")
	assert.Equal(t, 2, strings.Count(out, "synced"))
	assert.Contains(t, out, "manual")

	status := mustRun(t, "status")
	assert.Contains(t, status, "1 total, 1 left")
	assert.Contains(t, status, "Last sync: #2")

	srv.Close()
	out = mustRun(t, "add", "offline edit")
	assert.Contains(t, out, "Pull failed")
	assert.Contains(t, out, "Push failed")
	assert.Contains(t, mustRun(t, "list"), "offline edit")
}

func TestCLI_Version(t *testing.T) {
	out := mustRun(t, "--version")
	assert.Contains(t, out, "test")
}
