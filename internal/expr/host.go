// Package expr wraps github.com/google/cel-go as RuleZ's embedded
// expression host (spec §4.4, §9 "fail-closed expression evaluation").
// Every call site here returns typed, already-fail-closed results: callers
// never see a bare CEL error bubble up as an untyped failure.
package expr

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/interpreter"
	"github.com/google/cel-go/interpreter/functions"
)

// baseEnv is the shared, declaration-free CEL environment. RuleZ compiles
// (parses) expressions without type-checking them against a fixed variable
// set, because the variable surface is open-ended: one `env_<NAME>`
// identifier per process environment variable, which cannot be enumerated
// at environment-construction time. Functions and free variables are
// resolved dynamically at evaluation time instead (see Program.eval).
var baseEnv = mustNewEnv()

func mustNewEnv() *cel.Env {
	env, err := cel.NewEnv()
	if err != nil {
		panic(fmt.Sprintf("expr: cel.NewEnv: %v", err))
	}
	return env
}

// Program is a compiled (parsed) expression, ready to evaluate against many
// per-event contexts. Compile once at config-load time; Eval per event.
type Program struct {
	source string
	ast    *cel.Ast
}

// Compile parses source into a reusable Program. A parse failure here is
// the spec's "parse error at config-load time": callers MUST treat it as a
// hard load failure (surfaced to the operator via `rulez validate`), not a
// per-rule disablement.
func Compile(source string) (*Program, error) {
	ast, issues := baseEnv.Parse(source)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("expr: parse %q: %w", source, issues.Err())
	}
	return &Program{source: source, ast: ast}, nil
}

// Context carries the per-event variable surface available to expressions:
// env_<NAME> for every process environment variable, tool_name, event_type,
// prompt, cwd, and the get_field/has_field accessors over ToolInput.
type Context struct {
	ToolName  string
	EventType string
	Prompt    string
	Cwd       string
	ToolInput map[string]any
}

// Eval evaluates the program against ctx and coerces the result to a bool.
// Any error (including a non-boolean result) is returned as-is; callers
// apply the fail-closed policy appropriate to their call site (rule gating
// disables the rule, validate_expr blocks).
func (p *Program) Eval(ctx Context) (bool, error) {
	val, err := p.eval(ctx)
	if err != nil {
		return false, err
	}
	b, ok := val.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expr: %q did not evaluate to a boolean (got %T)", p.source, val.Value())
	}
	return b, nil
}

func (p *Program) eval(ctx Context) (ref.Val, error) {
	prg, err := baseEnv.Program(p.ast, cel.Functions(
		&functions.Overload{
			Operator: "get_field",
			Unary: func(arg ref.Val) ref.Val {
				return getField(ctx.ToolInput, arg)
			},
		},
		&functions.Overload{
			Operator: "has_field",
			Unary: func(arg ref.Val) ref.Val {
				return hasField(ctx.ToolInput, arg)
			},
		},
	))
	if err != nil {
		return nil, fmt.Errorf("expr: build program for %q: %w", p.source, err)
	}

	act := &activation{
		vars: map[string]any{
			"tool_name":  ctx.ToolName,
			"event_type": ctx.EventType,
			"prompt":     ctx.Prompt,
			"cwd":        ctx.Cwd,
		},
	}
	out, _, err := prg.Eval(act)
	if err != nil {
		return nil, fmt.Errorf("expr: eval %q: %w", p.source, err)
	}
	return out, nil
}

func getField(toolInput map[string]any, pathVal ref.Val) ref.Val {
	path, ok := pathVal.Value().(string)
	if !ok {
		return types.NewErr("get_field: path must be a string")
	}
	v, found := fieldLookup(toolInput, path)
	if !found {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(v)
}

func hasField(toolInput map[string]any, pathVal ref.Val) ref.Val {
	path, ok := pathVal.Value().(string)
	if !ok {
		return types.False
	}
	_, found := fieldLookup(toolInput, path)
	return types.Bool(found)
}

// fieldLookup resolves a dot-separated path against a nested map, returning
// found=false for any missing or explicitly-null segment.
func fieldLookup(m map[string]any, path string) (any, bool) {
	if m == nil || path == "" {
		return nil, false
	}
	segs := strings.Split(path, ".")
	var cur any = m
	for _, seg := range segs {
		cm, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := cm[seg]
		if !ok || v == nil {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// activation implements cel's Activation interface. Named variables resolve
// from vars; any other identifier matching env_<NAME> resolves against the
// process environment, defaulting to an empty string if unset (consistent
// with tool_name/prompt defaulting to "" when the event lacks them).
type activation struct {
	vars map[string]any
}

func (a *activation) ResolveName(name string) (any, bool) {
	if v, ok := a.vars[name]; ok {
		return v, true
	}
	if rest, ok := strings.CutPrefix(name, "env_"); ok {
		return os.Getenv(rest), true
	}
	return nil, false
}

func (a *activation) Parent() interpreter.Activation {
	return nil
}
