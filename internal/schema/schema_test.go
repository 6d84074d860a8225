package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_WellFormedEventHasNoViolations(t *testing.T) {
	raw := []byte(`{
		"event_type": "PreToolUse",
		"session_id": "abc123",
		"timestamp": "2026-07-31T00:00:00Z",
		"tool_name": "Bash",
		"tool_input": {"command": "ls -la"}
	}`)
	violations, err := Validate(raw)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestValidate_WrongTypeIsAViolationNotAnError(t *testing.T) {
	raw := []byte(`{
		"event_type": 12345,
		"session_id": "abc123",
		"timestamp": "2026-07-31T00:00:00Z"
	}`)
	violations, err := Validate(raw)
	require.NoError(t, err)
	assert.NotEmpty(t, violations, "a type mismatch must be reported as a warning, never as a fatal error")
}

func TestValidate_MalformedJSONIsAnError(t *testing.T) {
	_, err := Validate([]byte(`{not json`))
	assert.Error(t, err)
}

func TestValidate_IsIdempotentAcrossCalls(t *testing.T) {
	raw := []byte(`{"event_type": "Stop", "session_id": "x", "timestamp": "2026-07-31T00:00:00Z"}`)
	v1, err := Validate(raw)
	require.NoError(t, err)
	v2, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, v1, v2)
}
