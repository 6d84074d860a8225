// Package match implements the rule matcher engine (spec §4.5): given an
// event and a rule, decides whether the rule applies, evaluating matchers
// top-to-bottom and short-circuiting on the first false.
package match

import (
	"path/filepath"
	"strings"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/expr"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/policy"
)

// Matches reports whether rule applies to evt, per the ten-step ordered
// evaluation in spec §4.5. cfg supplies the rule's compiled artifacts
// (regexes, enabled_when program).
func Matches(cfg *policy.Config, r *policy.Rule, evt *event.Event) bool {
	if !r.IsEnabled() {
		return false
	}

	cr := cfg.Compiled(r.Name)

	if r.EnabledWhen != "" {
		if cr == nil || cr.EnabledWhen == nil {
			return false
		}
		ok, err := cr.EnabledWhen.Eval(exprContext(evt))
		if err != nil || !ok {
			return false
		}
	}

	m := r.Matchers

	if len(m.Tools) > 0 && !contains(m.Tools, evt.ToolName) {
		return false
	}

	if len(m.Extensions) > 0 && !matchExtensions(m.Extensions, evt) {
		return false
	}

	if len(m.Directories) > 0 && !matchDirectories(m.Directories, evt) {
		return false
	}

	if len(m.Operations) > 0 && !matchOperations(m.Operations, evt) {
		return false
	}

	if m.CommandMatch != "" {
		if cr == nil || cr.CommandMatch == nil {
			return false
		}
		command, ok := commandString(evt)
		if !ok || !cr.CommandMatch.MatchString(command) {
			return false
		}
	}

	if m.PromptMatch != nil {
		if cr == nil || !matchPrompt(cr, m.PromptMatch, evt.Prompt) {
			return false
		}
	}

	if len(m.RequireFields) > 0 {
		for _, path := range m.RequireFields {
			if _, ok := evt.Field(path); !ok {
				return false
			}
		}
	}

	if len(m.FieldTypes) > 0 {
		for path, kind := range m.FieldTypes {
			v, ok := evt.Field(path)
			if !ok || !kindMatches(v, kind) {
				return false
			}
		}
	}

	return true
}

func exprContext(evt *event.Event) expr.Context {
	return expr.Context{
		ToolName:  evt.ToolName,
		EventType: string(evt.EventType),
		Prompt:    evt.Prompt,
		Cwd:       evt.Cwd,
		ToolInput: evt.ToolInput,
	}
}

// matchPrompt evaluates §4.2: a missing prompt always fails the match,
// regardless of mode; each compiled pattern (already anchor/shorthand
// expanded at load time) is matched against the raw prompt text, with
// `not:` patterns contributing their logical negation, then combined per
// PromptMatch.Mode.
func matchPrompt(cr *policy.CompiledRule, pm *policy.PromptMatch, prompt string) bool {
	if prompt == "" {
		return false
	}
	if len(cr.PromptMatch) == 0 {
		return false
	}

	results := make([]bool, len(cr.PromptMatch))
	for i, re := range cr.PromptMatch {
		hit := re.MatchString(prompt)
		if i < len(cr.PromptNegate) && cr.PromptNegate[i] {
			hit = !hit
		}
		results[i] = hit
	}

	if pm.Mode == policy.PromptModeAll {
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	}
	for _, r := range results {
		if r {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// pathField finds the effective file path for extension/directory matching:
// tool_input.file_path, falling back to tool_input.path.
func pathField(evt *event.Event) (string, bool) {
	if v, ok := evt.Field("file_path"); ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	if v, ok := evt.Field("path"); ok {
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}

func matchExtensions(exts []string, evt *event.Event) bool {
	p, ok := pathField(evt)
	if !ok {
		return false
	}
	// Suffix match on the base name, so multi-part extensions such as
	// ".cdk.ts" match too (filepath.Ext alone would yield ".ts").
	base := filepath.Base(p)
	for _, e := range exts {
		if e != "" && strings.HasSuffix(base, e) {
			return true
		}
	}
	return false
}

func matchDirectories(dirs []string, evt *event.Event) bool {
	p, ok := pathField(evt)
	if !ok {
		return false
	}
	for _, d := range dirs {
		rel, err := filepath.Rel(d, p)
		if err != nil {
			continue
		}
		if rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel)) {
			return true
		}
	}
	return false
}

func commandString(evt *event.Event) (string, bool) {
	v, ok := evt.Field("command")
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func matchOperations(ops []string, evt *event.Event) bool {
	command, ok := commandString(evt)
	if !ok {
		return false
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	return contains(ops, fields[0])
}

func kindMatches(v any, kind string) bool {
	switch kind {
	case "string":
		_, ok := v.(string)
		return ok
	case "number":
		switch v.(type) {
		case float64, float32, int, int64:
			return true
		}
		return false
	case "boolean":
		_, ok := v.(bool)
		return ok
	case "object":
		_, ok := v.(map[string]any)
		return ok
	case "array":
		_, ok := v.([]any)
		return ok
	}
	return false
}
