package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_MinimalValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(`
version: "1"
rules:
  - name: block-force-push
    mode: enforce
    matchers:
      tools: ["Bash"]
      command_match: "git push .*--force"
    actions:
      block: "force push is not allowed"
`))
	require.NoError(t, err)
	require.Len(t, cfg.Rules, 1)
	r := cfg.Rules[0]
	assert.Equal(t, "block-force-push", r.Name)
	assert.True(t, r.IsEnabled())
	assert.Equal(t, ModeEnforce, r.EffectiveMode())
	assert.True(t, r.Actions.Block.Enabled)
	assert.Equal(t, "force push is not allowed", r.Actions.Block.Reason)

	cr := cfg.Compiled("block-force-push")
	require.NotNil(t, cr)
	require.NotNil(t, cr.CommandMatch)
	assert.True(t, cr.CommandMatch.MatchString("git push origin main --force"))
}

func TestParse_UnknownFieldIsRejected(t *testing.T) {
	_, err := Parse([]byte(`
version: "1"
rules:
  - name: r1
    matchers:
      toolz: ["Bash"]
`))
	assert.Error(t, err)
}

func TestParse_MetadataIsFreeForm(t *testing.T) {
	cfg, err := Parse([]byte(`
rules:
  - name: r1
    metadata:
      owner: platform-team
      ticket: RULEZ-42
    matchers:
      tools: ["Bash"]
`))
	require.NoError(t, err)
	assert.Equal(t, "platform-team", cfg.Rules[0].Metadata["owner"])
	assert.Equal(t, "RULEZ-42", cfg.Rules[0].Metadata["ticket"])
}

func TestParse_BlockBooleanForm(t *testing.T) {
	cfg, err := Parse([]byte(`
rules:
  - name: r1
    matchers:
      tools: ["Bash"]
    actions:
      block: true
`))
	require.NoError(t, err)
	assert.True(t, cfg.Rules[0].Actions.Block.Enabled)
	assert.Empty(t, cfg.Rules[0].Actions.Block.Reason)
}

func TestParse_PromptMatchShorthandList(t *testing.T) {
	cfg, err := Parse([]byte(`
rules:
  - name: r1
    matchers:
      prompt_match: ["delete everything", "rm -rf"]
`))
	require.NoError(t, err)
	pm := cfg.Rules[0].Matchers.PromptMatch
	require.NotNil(t, pm)
	assert.Equal(t, PromptModeAny, pm.Mode)
	assert.Equal(t, AnchorContains, pm.Anchor)
	assert.Len(t, pm.Patterns, 2)
}

func TestParse_PromptMatchComplexForm(t *testing.T) {
	cfg, err := Parse([]byte(`
rules:
  - name: r1
    matchers:
      prompt_match:
        patterns: ["^please"]
        mode: all
        case_insensitive: true
        anchor: start
`))
	require.NoError(t, err)
	pm := cfg.Rules[0].Matchers.PromptMatch
	require.NotNil(t, pm)
	assert.Equal(t, PromptModeAll, pm.Mode)
	assert.True(t, pm.CaseInsensitive)
	assert.Equal(t, AnchorStart, pm.Anchor)
}

func TestParse_DuplicateRuleNameIsRejected(t *testing.T) {
	_, err := Parse([]byte(`
rules:
  - name: r1
    matchers: {tools: ["Bash"]}
  - name: r1
    matchers: {tools: ["Write"]}
`))
	assert.ErrorContains(t, err, "duplicate rule name")
}

func TestParse_ValidateExprAndInlineScriptAreMutuallyExclusive(t *testing.T) {
	_, err := Parse([]byte(`
rules:
  - name: r1
    matchers: {tools: ["Bash"]}
    actions:
      validate_expr: "true"
      inline_script: "echo hi"
`))
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestParse_BadRegexIsLoadError(t *testing.T) {
	_, err := Parse([]byte(`
rules:
  - name: r1
    matchers:
      command_match: "(unclosed"
`))
	assert.Error(t, err)
}

func TestParse_BadExprIsLoadError(t *testing.T) {
	_, err := Parse([]byte(`
rules:
  - name: r1
    matchers: {tools: ["Bash"]}
    actions:
      validate_expr: "=="
`))
	assert.Error(t, err)
}

func TestParse_InvalidFieldTypeKindIsRejected(t *testing.T) {
	_, err := Parse([]byte(`
rules:
  - name: r1
    matchers:
      field_types:
        content: symbol
`))
	assert.Error(t, err)
}

func TestLoad_EmptyPathYieldsEmptyConfig(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Rules)
}

func TestParse_ScriptTimeoutDefaultParsesDuration(t *testing.T) {
	cfg, err := Parse([]byte(`
settings:
  script_timeout_default: 2s
  fail_open: true
rules: []
`))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Settings.ScriptTimeoutDefault.Std())
	assert.True(t, cfg.Settings.FailOpen)
}

func TestExpandPromptPattern_ContainsWordEscapesRegexMetacharacters(t *testing.T) {
	assert.Equal(t, `\bfile\.txt\b`, expandPromptPattern("contains_word:file.txt", AnchorContains))
	assert.Equal(t, `\bc\+\+\b`, expandPromptPattern("contains_word:c++", AnchorContains))
}

func TestValidate_ContainsWordWithRegexMetacharactersCompiles(t *testing.T) {
	cfg, err := Parse([]byte(`
rules:
  - name: r1
    matchers:
      prompt_match: ["contains_word:c++"]
    actions: {block: true}
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}
