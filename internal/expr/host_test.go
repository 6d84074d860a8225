package expr

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAndEval_Basic(t *testing.T) {
	p, err := Compile(`tool_name == "Bash"`)
	require.NoError(t, err)

	ok, err := p.Eval(Context{ToolName: "Bash"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Eval(Context{ToolName: "Write"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompile_ParseErrorIsHardFailure(t *testing.T) {
	_, err := Compile(`tool_name ==`)
	assert.Error(t, err)
}

func TestEval_GetFieldAndHasField(t *testing.T) {
	p, err := Compile(`has_field("command") && get_field("command") == "ls -la"`)
	require.NoError(t, err)

	ok, err := p.Eval(Context{ToolInput: map[string]any{"command": "ls -la"}})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.Eval(Context{ToolInput: map[string]any{}})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEval_GetFieldNestedPath(t *testing.T) {
	p, err := Compile(`get_field("nested.value") == 42.0`)
	require.NoError(t, err)

	ok, err := p.Eval(Context{ToolInput: map[string]any{
		"nested": map[string]any{"value": 42.0},
	}})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEval_EnvVariable(t *testing.T) {
	require.NoError(t, os.Setenv("RULEZ_TEST_VAR", "hello"))
	defer os.Unsetenv("RULEZ_TEST_VAR")

	p, err := Compile(`env_RULEZ_TEST_VAR == "hello"`)
	require.NoError(t, err)

	ok, err := p.Eval(Context{})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEval_NonBooleanResultIsError(t *testing.T) {
	p, err := Compile(`"not a bool"`)
	require.NoError(t, err)
	_, err = p.Eval(Context{})
	assert.Error(t, err)
}

func TestEval_UnknownIdentifierIsError(t *testing.T) {
	p, err := Compile(`some_undeclared_thing == "x"`)
	require.NoError(t, err)
	_, err = p.Eval(Context{})
	assert.Error(t, err)
}
