package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func TestExecuteHook_AllowsWhenNoPolicyPresent(t *testing.T) {
	noAudit = true
	dir := t.TempDir()
	chdir(t, dir)

	raw, err := json.Marshal(map[string]any{
		"hook_event_name": "PreToolUse",
		"session_id":      "s1",
		"tool_name":       "Bash",
		"tool_input":      map[string]any{"command": "ls"},
	})
	require.NoError(t, err)

	result, err := executeHook(context.Background(), "claudecode", bytes.NewReader(raw))
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, string(result.Output), `"continue":true`)
}

func TestExecuteHook_BlockingRuleExitsCode2(t *testing.T) {
	noAudit = true
	dir := t.TempDir()
	claudeDir := filepath.Join(dir, ".claude")
	require.NoError(t, os.MkdirAll(claudeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(claudeDir, "hooks.yaml"), []byte(`
rules:
  - name: block-force-push
    matchers:
      tools: ["Bash"]
      command_match: "git push .*--force"
    actions:
      block: "force-push is blocked"
`), 0o644))
	chdir(t, dir)

	raw, err := json.Marshal(map[string]any{
		"hook_event_name": "PreToolUse",
		"session_id":      "s1",
		"tool_name":       "Bash",
		"tool_input":      map[string]any{"command": "git push --force origin main"},
	})
	require.NoError(t, err)

	result, err := executeHook(context.Background(), "claudecode", bytes.NewReader(raw))
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.ExitCode)
	assert.Contains(t, string(result.Output), "force-push is blocked")
}

func TestExecuteHook_UnknownPlatformIsExitCode1(t *testing.T) {
	noAudit = true
	result, err := executeHook(context.Background(), "not-a-real-platform", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.Error(t, result.Err)
}

func TestExplainCmd_DryRunReportsMatchesOnly(t *testing.T) {
	dir := t.TempDir()
	policyPath := filepath.Join(dir, "hooks.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte(`
rules:
  - name: block-force-push
    matchers:
      tools: ["Bash"]
      command_match: "git push .*--force"
    actions:
      block: "force-push is blocked"
`), 0o644))

	eventPath := filepath.Join(dir, "event.json")
	raw, err := json.Marshal(map[string]any{
		"event_type": "PreToolUse",
		"session_id": "s1",
		"tool_name":  "Bash",
		"tool_input": map[string]any{"command": "git push --force origin main"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(eventPath, raw, 0o644))

	explainDryRun = true
	defer func() { explainDryRun = false }()

	cmd := explainCmd
	cmd.SetArgs(nil)
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	err = cmd.RunE(cmd, []string{policyPath, eventPath})
	require.NoError(t, err)
}

func TestValidateCmd_RejectsDuplicateRuleNames(t *testing.T) {
	dir := t.TempDir()
	policyPath := filepath.Join(dir, "hooks.yaml")
	require.NoError(t, os.WriteFile(policyPath, []byte(`
rules:
  - name: dup
    matchers: {tools: ["Bash"]}
    actions: {block: true}
  - name: dup
    matchers: {tools: ["Write"]}
    actions: {block: true}
`), 0o644))

	cmd := validateCmd
	err := cmd.RunE(cmd, []string{policyPath})
	assert.Error(t, err)
}
