// Package policy defines RuleZ's policy document shape (spec §3, §6.3): the
// YAML-authored Config/Rule/matcher/action types, their load-time
// validation, and the loader that turns a project or user hooks.yaml into a
// validated in-memory Config.
package policy

import (
	"time"
)

// Mode is a rule's enforcement attitude (spec §4.6).
type Mode string

const (
	ModeEnforce Mode = "enforce"
	ModeWarn    Mode = "warn"
	ModeAudit   Mode = "audit"
)

// Config is the top-level policy document (spec §3, §6.3).
type Config struct {
	Version  string   `yaml:"version"`
	Rules    []*Rule  `yaml:"rules"`
	Settings Settings `yaml:"settings"`

	// compiled holds load-time-compiled artifacts (regexes, CEL programs)
	// keyed by rule name, populated by Validate. Not serialized.
	compiled map[string]*CompiledRule `yaml:"-"`
}

// Settings controls logging, fail-open behavior, and script defaults.
// fail_open/script_timeout_default are supplemented beyond spec.md's
// explicit field list (see SPEC_FULL.md §5). fail_open lets a block caused
// by an evaluation/action error on a warn/audit-mode rule be downgraded per
// that mode instead of staying a block; enforce-mode blocking is never
// affected. script_timeout_default is the fallback timeout for script and
// command actions whose rule sets no timeout of its own.
type Settings struct {
	LogLevel             string   `yaml:"log_level"`
	FailOpen             bool     `yaml:"fail_open"`
	Debug                bool     `yaml:"debug"`
	ScriptTimeoutDefault Duration `yaml:"script_timeout_default"`
}

// Duration is a time.Duration that unmarshals from YAML's natural
// human-readable form ("5s", "200ms") rather than a raw integer of
// nanoseconds, matching how every duration elsewhere in the ecosystem (e.g.
// Kubernetes, Prometheus configs) is authored. See UnmarshalYAML in yaml.go.
type Duration time.Duration

// Std returns the underlying time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// DefaultScriptTimeout is applied when Settings.ScriptTimeoutDefault and a
// rule's own Actions.Timeout are both zero (spec §4.6 step 3).
const DefaultScriptTimeout = Duration(5 * time.Second)

// Metadata is free-form and explicitly NOT validated against a fixed field
// set: it is preserved verbatim into decision records (spec §3).
type Metadata map[string]string

// Rule is a single named policy rule (spec §3).
type Rule struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description,omitempty"`
	Enabled     *bool    `yaml:"enabled,omitempty"`
	EnabledWhen string   `yaml:"enabled_when,omitempty"`
	Priority    int      `yaml:"priority,omitempty"`
	Mode        Mode     `yaml:"mode,omitempty"`
	Metadata    Metadata `yaml:"metadata,omitempty"`

	// Event is an optional explicit event-type filter. The spec leaves open
	// whether rules should carry one; this implementation accepts it but
	// never requires it — matcher-only rules remain fully supported (spec §9
	// Open Questions).
	Event string `yaml:"event,omitempty"`

	Matchers Matchers `yaml:"matchers,omitempty"`
	Actions  Actions  `yaml:"actions,omitempty"`
}

// IsEnabled reports the rule's static enabled flag, defaulting to true.
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// EffectiveMode defaults an unset Mode to ModeEnforce.
func (r *Rule) EffectiveMode() Mode {
	if r.Mode == "" {
		return ModeEnforce
	}
	return r.Mode
}

// Matchers holds every condition that gates whether a rule applies. A
// populated matcher participates in a logical AND with the others; within
// each list-valued matcher, membership is an OR (spec §3, §4.5).
type Matchers struct {
	Tools         []string          `yaml:"tools,omitempty"`
	Extensions    []string          `yaml:"extensions,omitempty"`
	Directories   []string          `yaml:"directories,omitempty"`
	Operations    []string          `yaml:"operations,omitempty"`
	CommandMatch  string            `yaml:"command_match,omitempty"`
	PromptMatch   *PromptMatch      `yaml:"prompt_match,omitempty"`
	RequireFields []string          `yaml:"require_fields,omitempty"`
	FieldTypes    map[string]string `yaml:"field_types,omitempty"`
}

// FieldKind enumerates the kinds accepted by field_types (spec §3).
type FieldKind string

const (
	KindString  FieldKind = "string"
	KindNumber  FieldKind = "number"
	KindBoolean FieldKind = "boolean"
	KindObject  FieldKind = "object"
	KindArray   FieldKind = "array"
)

// PromptAnchor controls how a prompt-match pattern is anchored (spec §4.2).
type PromptAnchor string

const (
	AnchorStart    PromptAnchor = "start"
	AnchorEnd      PromptAnchor = "end"
	AnchorContains PromptAnchor = "contains"
)

// PromptMatchMode combines multiple patterns (spec §3, §4.2).
type PromptMatchMode string

const (
	PromptModeAny PromptMatchMode = "any"
	PromptModeAll PromptMatchMode = "all"
)

// PromptMatch is either a bare list of patterns (OR, case-sensitive,
// unanchored) or the complex form with mode/case-sensitivity/anchor. Both
// shapes are supported via custom YAML unmarshaling (see yaml.go).
type PromptMatch struct {
	Patterns        []string
	Mode            PromptMatchMode
	CaseInsensitive  bool
	Anchor          PromptAnchor
}

// Actions is the subset of response-shaping directives a matched rule may
// carry (spec §3, §4.6).
type Actions struct {
	Block        *BlockAction `yaml:"block,omitempty"`
	Inject       string       `yaml:"inject,omitempty"`
	InjectInline string       `yaml:"inject_inline,omitempty"`
	InjectCommand string      `yaml:"inject_command,omitempty"`
	Run          string       `yaml:"run,omitempty"`
	ValidateExpr string       `yaml:"validate_expr,omitempty"`
	InlineScript string       `yaml:"inline_script,omitempty"`
	Timeout      Duration     `yaml:"timeout,omitempty"`
}

// HasAny reports whether the rule declares at least one action.
func (a *Actions) HasAny() bool {
	return a.Block != nil || a.Inject != "" || a.InjectInline != "" ||
		a.InjectCommand != "" || a.Run != "" || a.ValidateExpr != "" || a.InlineScript != ""
}

// BlockAction is `block: true` or `block: "reason string"`. A string reason
// is preferred over the boolean form when both could apply (spec §3).
type BlockAction struct {
	Enabled bool
	Reason  string
}
