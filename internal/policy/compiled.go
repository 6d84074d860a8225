package policy

import (
	"regexp"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/expr"
)

// CompiledRule holds the load-time-compiled artifacts for a single rule:
// CEL programs for enabled_when/validate_expr, and the command_match /
// prompt_match regexes. Compiling once at load time means per-event
// evaluation never pays parse cost and never fails on bad syntax (spec §4.1,
// §4.4): a syntax error is caught by Validate, long before any event
// arrives.
type CompiledRule struct {
	EnabledWhen  *expr.Program
	ValidateExpr *expr.Program
	CommandMatch *regexp.Regexp
	PromptMatch  []*regexp.Regexp // one per PromptMatch.Patterns entry, same order
	PromptNegate []bool          // true at index i iff pattern i was a `not:` shorthand
}

// Compiled returns the compiled artifacts for the named rule, or nil if the
// config has not been validated or has no rule of that name. Validate
// records an entry for every rule, with nil fields for whatever the rule
// does not declare. Callers in internal/match and internal/action rely on
// Validate having already run; Load and Parse always run it.
func (c *Config) Compiled(ruleName string) *CompiledRule {
	if c.compiled == nil {
		return nil
	}
	return c.compiled[ruleName]
}
