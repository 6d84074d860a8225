package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
)

func TestParseEnvelope_MissingSessionIDIsInputError(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"hook_event_name":"PreToolUse"}`))
	require.Error(t, err)
	_, ok := err.(*InputError)
	assert.True(t, ok)
}

func TestParseEnvelope_EmptyInputIsInputError(t *testing.T) {
	_, err := ParseEnvelope(nil)
	require.Error(t, err)
	_, ok := err.(*InputError)
	assert.True(t, ok)
}

func TestParseEnvelope_MalformedJSONIsInputError(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{not json`))
	require.Error(t, err)
	_, ok := err.(*InputError)
	assert.True(t, ok)
}

func TestParseEnvelope_TagFieldAliasFallback(t *testing.T) {
	env, err := ParseEnvelope([]byte(`{"session_id":"s1","event_type":"Stop"}`))
	require.NoError(t, err)
	tag, ok := env.TagField("hook_event_name", "event_type")
	require.True(t, ok)
	assert.Equal(t, "Stop", tag)
}

func TestIsToolFailure(t *testing.T) {
	assert.True(t, IsToolFailure(map[string]any{"success": false}, nil))
	assert.True(t, IsToolFailure(map[string]any{"error": "boom"}, nil))
	assert.True(t, IsToolFailure(nil, map[string]any{"success": false}))
	assert.True(t, IsToolFailure(nil, map[string]any{"error": "boom"}))
	assert.False(t, IsToolFailure(map[string]any{"success": true}, nil))
	assert.False(t, IsToolFailure(nil, nil))
}

func TestCanonicalizeToolName_MappedRecordsPlatformName(t *testing.T) {
	evt := &event.Event{}
	CanonicalizeToolName(evt, "run_shell_command", map[string]string{"run_shell_command": "Bash"})
	assert.Equal(t, "Bash", evt.ToolName)
	assert.Equal(t, "run_shell_command", evt.ToolInput[event.PlatformToolNameKey])
}

func TestCanonicalizeToolName_UnknownPassesThroughUnchanged(t *testing.T) {
	evt := &event.Event{}
	CanonicalizeToolName(evt, "custom_tool", map[string]string{"run_shell_command": "Bash"})
	assert.Equal(t, "custom_tool", evt.ToolName)
	assert.Nil(t, evt.ToolInput)
}

func TestCanonicalizeToolName_IdentityMappingRecordsNoHint(t *testing.T) {
	evt := &event.Event{}
	CanonicalizeToolName(evt, "Bash", map[string]string{"Bash": "Bash"})
	assert.Equal(t, "Bash", evt.ToolName)
	assert.Nil(t, evt.ToolInput)
}
