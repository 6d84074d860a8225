// Package action implements the per-rule action executor and precedence
// rules (spec §4.6): block, validate_expr, inline_script, the
// inject_inline/inject_command/inject context-provider chain, and run. Mode
// handling (enforce/warn/audit) is applied as a pure post-processing step
// over the raw contribution, matching the spec §9 design note to express
// precedence as data/a fold rather than an if-ladder.
package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/expr"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/policy"
)

// Contribution is one rule's partial Response, before mode handling and
// before folding across rules.
type Contribution struct {
	Block             bool
	Reason            string
	Context           string
	Warning           string
	ToolInputOverride map[string]any
	SystemMessage     string

	// ErrSourced marks a Block that came from an inability to evaluate the
	// rule at all (a validate_expr/run/inline_script error, timeout, or
	// unparseable output) rather than from a deliberate "no" (a `block:`
	// action, or a validator cleanly returning false/continue:false).
	// ApplyMode treats the two differently under Settings.FailOpen (spec
	// SPEC_FULL.md §5): a deliberate block from a warn/audit rule always
	// downgrades per its mode, but an ErrSourced one fails closed (stays a
	// real block) unless fail_open is set.
	ErrSourced bool
}

// shellRunner abstracts subprocess invocation for tests; production code
// always uses realShellRunner.
type shellRunner interface {
	run(ctx context.Context, script string, stdin []byte, discardOutput bool) (stdout []byte, exitErr error)
	runFile(ctx context.Context, path string, stdin []byte) (exitErr error)
}

type realShellRunner struct{}

func (realShellRunner) runFile(ctx context.Context, path string, stdin []byte) error {
	cmd := exec.CommandContext(ctx, path)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	setupProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	return cmd.Run()
}

func (realShellRunner) run(ctx context.Context, script string, stdin []byte, discardOutput bool) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", script)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var out bytes.Buffer
	if !discardOutput {
		cmd.Stdout = &out
	}
	setupProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	err := cmd.Run()
	return out.Bytes(), err
}

var runner shellRunner = realShellRunner{}

// Execute computes rule's raw contribution against evt, running any
// configured scripts/validators. cfg supplies the rule's compiled
// validate_expr program. Script and command actions use the rule's own
// Actions.Timeout when set, else defaultTimeout when non-zero, else
// policy.DefaultScriptTimeout (spec §4.6 step 3).
func Execute(ctx context.Context, cfg *policy.Config, r *policy.Rule, evt *event.Event, defaultTimeout time.Duration) Contribution {
	a := r.Actions

	if !a.HasAny() {
		return Contribution{}
	}

	// 1. block
	if a.Block != nil && a.Block.Enabled {
		reason := a.Block.Reason
		if reason == "" {
			reason = fmt.Sprintf("blocked by rule %q", r.Name)
		}
		return Contribution{Block: true, Reason: reason}
	}

	// 2. validate_expr
	if a.ValidateExpr != "" {
		cr := cfg.Compiled(r.Name)
		if cr == nil || cr.ValidateExpr == nil {
			return Contribution{Block: true, ErrSourced: true, Reason: "validate_expr: not compiled (internal error)"}
		}
		ok, err := cr.ValidateExpr.Eval(expr.Context{
			ToolName:  evt.ToolName,
			EventType: string(evt.EventType),
			Prompt:    evt.Prompt,
			Cwd:       evt.Cwd,
			ToolInput: evt.ToolInput,
		})
		if err != nil {
			return Contribution{Block: true, ErrSourced: true, Reason: fmt.Sprintf("validate_expr error: %v", err)}
		}
		if !ok {
			return Contribution{Block: true, Reason: "validator returned false"}
		}
		// true: no contribution from this step, fall through to context/run.
	}

	// 3. inline_script
	if a.InlineScript != "" {
		timeout := effectiveTimeout(a.Timeout, defaultTimeout)
		blocked, errSourced, reason := runInlineScript(ctx, a.InlineScript, evt, timeout)
		if blocked {
			return Contribution{Block: true, ErrSourced: errSourced, Reason: reason}
		}
	}

	contrib := Contribution{}

	// 4 & 5: context providers and run may both execute; run concurrently
	// since neither depends on the other's output (spec §5 "concurrent
	// external subprocess I/O").
	var (
		ctxText    string
		ctxWarning string
		runResp    *event.Response
		runErr     error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ctxText, ctxWarning = resolveContext(gctx, a, evt, effectiveTimeout(a.Timeout, defaultTimeout))
		return nil
	})
	if a.Run != "" {
		g.Go(func() error {
			runResp, runErr = runValidator(gctx, a.Run, evt, effectiveTimeout(a.Timeout, defaultTimeout))
			return nil
		})
	}
	_ = g.Wait() // both goroutines above always return nil; errors are carried in runErr.

	contrib.Context = ctxText
	contrib.Warning = ctxWarning

	if a.Run != "" {
		if runErr != nil {
			return Contribution{Block: true, ErrSourced: true, Reason: fmt.Sprintf("run: %v", runErr), Context: contrib.Context, Warning: contrib.Warning}
		}
		if runResp != nil {
			if runResp.Decision == event.Block {
				contrib.Block = true
				if runResp.Reason != "" {
					contrib.Reason = runResp.Reason
				} else {
					contrib.Reason = "run validator rejected"
				}
			}
			if runResp.Context != "" {
				contrib.Context = concatContext(contrib.Context, runResp.Context)
			}
		}
	}

	return contrib
}

func effectiveTimeout(ruleTimeout policy.Duration, defaultTimeout time.Duration) time.Duration {
	if ruleTimeout.Std() > 0 {
		return ruleTimeout.Std()
	}
	if defaultTimeout > 0 {
		return defaultTimeout
	}
	return policy.DefaultScriptTimeout.Std()
}

func concatContext(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return a + "\n\n" + b
}

// runInlineScript writes script to an owner-only-executable temp file,
// invokes it via shell with the event JSON on stdin, and applies timeout
// (spec §4.6 step 3). The temp file is removed on every exit path.
//
// A nonzero exit is the script's own deliberate rejection (errSourced
// false); a failure to even run the script to completion (temp-file I/O,
// marshal, timeout) is errSourced true — the rule couldn't be evaluated at
// all, which is a different failure mode for Settings.FailOpen purposes.
func runInlineScript(ctx context.Context, script string, evt *event.Event, timeout time.Duration) (blocked, errSourced bool, reason string) {
	f, err := os.CreateTemp("", "rulez-inline-*.sh")
	if err != nil {
		return true, true, fmt.Sprintf("inline_script: create temp file: %v", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.WriteString("#!/bin/sh\n" + script + "\n"); err != nil {
		f.Close()
		return true, true, fmt.Sprintf("inline_script: write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		return true, true, fmt.Sprintf("inline_script: close temp file: %v", err)
	}
	if err := os.Chmod(path, 0o700); err != nil {
		return true, true, fmt.Sprintf("inline_script: chmod temp file: %v", err)
	}

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdin, err := json.Marshal(evt)
	if err != nil {
		return true, true, fmt.Sprintf("inline_script: marshal event: %v", err)
	}

	runErr := runner.runFile(tctx, path, stdin)
	if tctx.Err() == context.DeadlineExceeded {
		return true, true, fmt.Sprintf("inline_script timeout after %s", timeout)
	}
	if runErr != nil {
		return true, false, "inline_script rejected"
	}
	return false, false, ""
}

// resolveContext implements the context-provider precedence chain
// (spec §4.6 step 4): inject_inline > inject_command > inject. Only the
// highest-precedence non-empty provider on the rule contributes; lower ones
// are never even attempted.
func resolveContext(ctx context.Context, a policy.Actions, evt *event.Event, timeout time.Duration) (text string, warning string) {
	if a.InjectInline != "" {
		return a.InjectInline, ""
	}
	if a.InjectCommand != "" {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		out, err := runner.run(tctx, a.InjectCommand, nil, false)
		if err != nil {
			return "", fmt.Sprintf("inject_command failed: %v", err)
		}
		return string(bytes.TrimRight(out, "\n")), ""
	}
	if a.Inject != "" {
		content, err := os.ReadFile(a.Inject)
		if err != nil {
			return "", fmt.Sprintf("inject: could not read %q: %v", a.Inject, err)
		}
		return string(content), ""
	}
	return "", ""
}

// runValidator executes the `run` external validator and parses its stdout
// as JSON matching the Response shape (spec §4.6 step 5).
func runValidator(ctx context.Context, command string, evt *event.Event, timeout time.Duration) (*event.Response, error) {
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdin, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	out, runErr := runner.run(tctx, command, stdin, false)
	if tctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("timeout after %s", timeout)
	}
	if runErr != nil {
		return nil, fmt.Errorf("spawn failed: %w", runErr)
	}

	var shape struct {
		Continue *bool  `json:"continue"`
		Reason   string `json:"reason"`
		Context  string `json:"context"`
	}
	if err := json.Unmarshal(out, &shape); err != nil {
		return nil, fmt.Errorf("non-JSON validator stdout: %w", err)
	}

	resp := &event.Response{Decision: event.Allow, Context: shape.Context, Reason: shape.Reason}
	if shape.Continue != nil && !*shape.Continue {
		resp.Decision = event.Block
	}
	return resp, nil
}

// ApplyMode transforms a raw contribution per the rule's mode (spec §4.6
// "Mode handling"): warn suppresses block in favor of a context warning;
// audit suppresses everything but the audit-trail entry the caller records
// separately. enforce-mode rules are returned unchanged regardless of
// failOpen (SPEC_FULL.md §5 "enforce-mode rules are never affected").
//
// An ErrSourced block is treated specially: by default (failOpen false)
// it still fails closed even under warn/audit, since the rule could not be
// evaluated at all rather than deliberately voting "allow" — the same
// fail-closed default spec §4.4 establishes for expression evaluation.
// Setting failOpen true relaxes that, folding ErrSourced blocks into the
// same warn/audit downgrade a deliberate block gets.
func ApplyMode(mode policy.Mode, failOpen bool, c Contribution) Contribution {
	if c.Block && c.ErrSourced && !failOpen {
		return c
	}
	switch mode {
	case policy.ModeWarn:
		if c.Block {
			c.Context = concatContext(c.Context, "[warning] "+c.Reason)
			c.Block = false
			c.Reason = ""
		}
		return c
	case policy.ModeAudit:
		return Contribution{}
	default:
		return c
	}
}
