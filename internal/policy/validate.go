package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/expr"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/regexcache"
)

var validKinds = map[string]bool{
	string(KindString):  true,
	string(KindNumber):  true,
	string(KindBoolean): true,
	string(KindObject):  true,
	string(KindArray):   true,
}

// Validate compiles every rule's regexes and expressions and checks the
// structural invariants the YAML shape alone cannot enforce: unique rule
// names, valid modes, mutually exclusive validate_expr/inline_script, and
// well-formed field_types kinds (spec §3, §6.3). It is idempotent and safe
// to call multiple times; each call rebuilds the compiled-artifact cache
// from scratch.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Rules))
	compiled := make(map[string]*CompiledRule, len(c.Rules))

	for i, r := range c.Rules {
		if r.Name == "" {
			return fmt.Errorf("policy: rule[%d]: name is required", i)
		}
		if seen[r.Name] {
			return fmt.Errorf("policy: rule %q: duplicate rule name", r.Name)
		}
		seen[r.Name] = true

		switch r.Mode {
		case "", ModeEnforce, ModeWarn, ModeAudit:
		default:
			return fmt.Errorf("policy: rule %q: invalid mode %q", r.Name, r.Mode)
		}

		if r.Actions.ValidateExpr != "" && r.Actions.InlineScript != "" {
			return fmt.Errorf("policy: rule %q: validate_expr and inline_script are mutually exclusive", r.Name)
		}

		for field, kind := range r.Matchers.FieldTypes {
			if !validKinds[kind] {
				return fmt.Errorf("policy: rule %q: field_types[%q]: invalid kind %q", r.Name, field, kind)
			}
		}
		for _, f := range r.Matchers.RequireFields {
			if f == "" {
				return fmt.Errorf("policy: rule %q: require_fields: empty field path", r.Name)
			}
		}

		cr := &CompiledRule{}

		if r.EnabledWhen != "" {
			p, err := expr.Compile(r.EnabledWhen)
			if err != nil {
				return fmt.Errorf("policy: rule %q: enabled_when: %w", r.Name, err)
			}
			cr.EnabledWhen = p
		}
		if r.Actions.ValidateExpr != "" {
			p, err := expr.Compile(r.Actions.ValidateExpr)
			if err != nil {
				return fmt.Errorf("policy: rule %q: validate_expr: %w", r.Name, err)
			}
			cr.ValidateExpr = p
		}
		if r.Matchers.CommandMatch != "" {
			re, err := regexcache.Global().GetOrCompile(r.Matchers.CommandMatch, false)
			if err != nil {
				return fmt.Errorf("policy: rule %q: command_match: %w", r.Name, err)
			}
			cr.CommandMatch = re
		}
		if r.Matchers.PromptMatch != nil {
			pm := r.Matchers.PromptMatch
			switch pm.Mode {
			case PromptModeAny, PromptModeAll:
			default:
				return fmt.Errorf("policy: rule %q: prompt_match: invalid mode %q", r.Name, pm.Mode)
			}
			switch pm.Anchor {
			case AnchorStart, AnchorEnd, AnchorContains:
			default:
				return fmt.Errorf("policy: rule %q: prompt_match: invalid anchor %q", r.Name, pm.Anchor)
			}
			for _, pat := range pm.Patterns {
				negate := strings.HasPrefix(pat, "not:")
				source := expandPromptPattern(pat, pm.Anchor)
				re, err := regexcache.Global().GetOrCompile(source, pm.CaseInsensitive)
				if err != nil {
					return fmt.Errorf("policy: rule %q: prompt_match: pattern %q: %w", r.Name, pat, err)
				}
				cr.PromptMatch = append(cr.PromptMatch, re)
				cr.PromptNegate = append(cr.PromptNegate, negate)
			}
		}

		compiled[r.Name] = cr
	}

	c.compiled = compiled
	return nil
}

// expandPromptPattern applies the shorthand prefixes (`contains_word:`,
// `not:`) and the anchor, producing a final regex source (spec §4.2). `not:`
// negation itself is applied by internal/match at evaluation time (a
// compiled regex alone cannot represent "does not match"); this function
// only strips the prefix before compiling the underlying pattern.
func expandPromptPattern(pattern string, anchor PromptAnchor) string {
	body := pattern
	if rest, ok := strings.CutPrefix(body, "not:"); ok {
		body = rest
	}
	if rest, ok := strings.CutPrefix(body, "contains_word:"); ok {
		body = `\b` + regexp.QuoteMeta(rest) + `\b`
	}

	switch anchor {
	case AnchorStart:
		return "^" + body
	case AnchorEnd:
		return body + "$"
	default:
		return body
	}
}
