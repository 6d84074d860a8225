package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter/claudecode"
	_ "github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter/gemini"
	_ "github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter/opencode"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/audit"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
)

func writeHooksYAML(t *testing.T, dir, content string) string {
	t.Helper()
	claudeDir := filepath.Join(dir, ".claude")
	require.NoError(t, os.MkdirAll(claudeDir, 0o755))
	path := filepath.Join(claudeDir, "hooks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return dir
}

func TestRun_UnknownAdapterIsInputExitCode1(t *testing.T) {
	r := Run(context.Background(), Options{PlatformName: "nonexistent", Raw: []byte(`{}`)})
	assert.Equal(t, 1, r.ExitCode)
	assert.Error(t, r.Err)
}

func TestRun_MissingSessionIDIsExitCode1(t *testing.T) {
	r := Run(context.Background(), Options{
		PlatformName: "claudecode",
		Raw:          []byte(`{"hook_event_name": "PreToolUse", "tool_name": "Bash"}`),
	})
	assert.Equal(t, 1, r.ExitCode)
	assert.Error(t, r.Err)
}

func TestRun_NoPolicyFileAllowsEverything(t *testing.T) {
	dir := t.TempDir()
	raw, err := json.Marshal(map[string]any{
		"hook_event_name": "PreToolUse",
		"session_id":      "s1",
		"tool_name":       "Bash",
		"cwd":             dir,
		"tool_input":      map[string]any{"command": "ls"},
	})
	require.NoError(t, err)

	r := Run(context.Background(), Options{PlatformName: "claudecode", Raw: raw, Cwd: dir})
	require.NoError(t, r.Err)
	assert.Equal(t, 0, r.ExitCode)
	assert.Contains(t, string(r.Output), `"continue":true`)
}

func TestRun_BlockingRuleExitsCode2(t *testing.T) {
	dir := writeHooksYAML(t, t.TempDir(), `
rules:
  - name: block-force-push
    matchers:
      tools: ["Bash"]
      command_match: "git push .*--force"
    actions:
      block: "force-push is blocked"
`)
	raw, err := json.Marshal(map[string]any{
		"hook_event_name": "PreToolUse",
		"session_id":      "s1",
		"tool_name":       "Bash",
		"cwd":             dir,
		"tool_input":      map[string]any{"command": "git push --force origin main"},
	})
	require.NoError(t, err)

	r := Run(context.Background(), Options{PlatformName: "claudecode", Raw: raw, Cwd: dir})
	require.NoError(t, r.Err)
	assert.Equal(t, 2, r.ExitCode)
	assert.Contains(t, string(r.Output), `"continue":false`)
	assert.Contains(t, string(r.Output), "force-push is blocked")
}

func TestRun_NonMatchingCommandAllowed(t *testing.T) {
	dir := writeHooksYAML(t, t.TempDir(), `
rules:
  - name: block-force-push
    matchers:
      tools: ["Bash"]
      command_match: "git push .*--force"
    actions:
      block: "force-push is blocked"
`)
	raw, err := json.Marshal(map[string]any{
		"hook_event_name": "PreToolUse",
		"session_id":      "s1",
		"tool_name":       "Bash",
		"cwd":             dir,
		"tool_input":      map[string]any{"command": "git status"},
	})
	require.NoError(t, err)

	r := Run(context.Background(), Options{PlatformName: "claudecode", Raw: raw, Cwd: dir})
	require.NoError(t, r.Err)
	assert.Equal(t, 0, r.ExitCode)
}

func TestRun_MalformedPolicyFileDegradesToEmptyConfigAndAllows(t *testing.T) {
	dir := writeHooksYAML(t, t.TempDir(), `
rules:
  - name: bad
    matchers: {command_match: "("}
`)
	logPath := filepath.Join(dir, "audit.log")
	w, err := audit.Open(logPath)
	require.NoError(t, err)
	defer w.Close()

	raw, err := json.Marshal(map[string]any{
		"hook_event_name": "PreToolUse",
		"session_id":      "s1",
		"tool_name":       "Bash",
		"cwd":             dir,
		"tool_input":      map[string]any{"command": "ls"},
	})
	require.NoError(t, err)

	r := Run(context.Background(), Options{PlatformName: "claudecode", Raw: raw, Cwd: dir, Audit: w})
	require.NoError(t, r.Err)
	assert.Equal(t, 0, r.ExitCode)
	assert.Contains(t, string(r.Output), `"continue":true`)

	info, statErr := os.Stat(logPath)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(0))
	contents, readErr := os.ReadFile(logPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(contents), "degraded to empty config")
}

func TestRun_WarnModeNeverBlocks(t *testing.T) {
	dir := writeHooksYAML(t, t.TempDir(), `
rules:
  - name: warn-force-push
    mode: warn
    matchers:
      tools: ["Bash"]
      command_match: "git push .*--force"
    actions:
      block: "force-push discouraged"
`)
	raw, err := json.Marshal(map[string]any{
		"hook_event_name": "PreToolUse",
		"session_id":      "s1",
		"tool_name":       "Bash",
		"cwd":             dir,
		"tool_input":      map[string]any{"command": "git push --force origin main"},
	})
	require.NoError(t, err)

	r := Run(context.Background(), Options{PlatformName: "claudecode", Raw: raw, Cwd: dir})
	require.NoError(t, r.Err)
	assert.Equal(t, 0, r.ExitCode)
	assert.Contains(t, string(r.Output), "force-push discouraged")
}

func TestRun_GeminiDualFireAuditsBothEvents(t *testing.T) {
	dir := writeHooksYAML(t, t.TempDir(), `
rules:
  - name: note-every-event
    actions: {inject_inline: "seen"}
`)
	logPath := filepath.Join(dir, "audit.log")
	w, err := audit.Open(logPath)
	require.NoError(t, err)
	defer w.Close()

	raw, err := json.Marshal(map[string]any{
		"hook_event_name": "BeforeAgent",
		"session_id":      "s1",
		"cwd":             dir,
		"prompt":          "please refactor this module",
	})
	require.NoError(t, err)

	r := Run(context.Background(), Options{PlatformName: "gemini", Raw: raw, Cwd: dir, Audit: w})
	require.NoError(t, r.Err)
	assert.Equal(t, 0, r.ExitCode)

	// BeforeAgent with a non-empty prompt dual-fires UserPromptSubmit; the
	// catch-all rule is evaluated once per event, and both evaluations merge
	// into the one Decision record's audit trail.
	info, statErr := os.Stat(logPath)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(0))
	contents, readErr := os.ReadFile(logPath)
	require.NoError(t, readErr)
	var rec audit.Decision
	require.NoError(t, json.Unmarshal(contents, &rec))
	assert.Len(t, rec.Rules, 2)
}

func TestRun_OpenCodeAfterToolFailureDualFireTracksPlatformToolName(t *testing.T) {
	dir := writeHooksYAML(t, t.TempDir(), `
rules:
  - name: flag-tool-failures
    event: PostToolUseFailure
    matchers: {tools: ["Bash"]}
    actions: {inject_inline: "a tool call failed"}
`)
	logPath := filepath.Join(dir, "audit.log")
	w, err := audit.Open(logPath)
	require.NoError(t, err)
	defer w.Close()

	raw, err := json.Marshal(map[string]any{
		"hook_event_name": "tool.execute.after",
		"session_id":      "s1",
		"cwd":             dir,
		"tool_name":       "bash",
		"tool_input":      map[string]any{"success": false, "error": "exit 1"},
	})
	require.NoError(t, err)

	r := Run(context.Background(), Options{PlatformName: "opencode", Raw: raw, Cwd: dir, Audit: w})
	require.NoError(t, r.Err)
	assert.Equal(t, 0, r.ExitCode)
	assert.Contains(t, string(r.Output), "a tool call failed")

	contents, readErr := os.ReadFile(logPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(contents), `"tool_name":"Bash"`)
	assert.Contains(t, string(contents), `"platform_tool_name":"bash"`)
	_ = event.PostToolUseFailure
}
