// Package pipeline wires the per-invocation stages together end to end
// (spec §4.9): schema validation, adapter selection and parsing, policy
// loading, ordered rule evaluation with the match/action engines, response
// merging across dual-fired events, platform re-serialization, and the
// audit-log append. cmd/rulez is the only caller; everything here is plain,
// synchronous, and free of process-exit concerns so it can be exercised
// directly from tests.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/action"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/audit"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/match"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/policy"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/schema"
)

// Logger is the minimal diagnostic surface the pipeline needs; satisfied
// structurally by *zap.SugaredLogger (internal/logging's concrete type)
// without importing zap here.
type Logger interface {
	Warnw(msg string, keysAndValues ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
}

type noopLogger struct{}

func (noopLogger) Warnw(string, ...interface{})  {}
func (noopLogger) Debugw(string, ...interface{}) {}

// Options configures one Run call.
type Options struct {
	// PlatformName selects the adapter (spec §4.9 step 3), e.g. "claudecode",
	// "gemini", "copilot", "opencode".
	PlatformName string

	// Raw is the platform's hook payload, exactly as received on stdin.
	Raw []byte

	// Cwd is used to resolve the policy file when the parsed event itself
	// carries no cwd (most platforms always send one; this is the fallback).
	Cwd string

	// ScriptTimeout overrides the policy's own script_timeout_default /
	// policy.DefaultScriptTimeout when non-zero.
	ScriptTimeout time.Duration

	// Audit, if non-nil, receives one Decision record per Run call.
	Audit *audit.Writer

	// Logger, if non-nil, receives schema-violation warnings and debug
	// traces. Defaults to a no-op logger.
	Logger Logger
}

// Result is what cmd/rulez needs to finish the process: the serialized
// platform response (nil on an input failure, in which case Err explains
// why) and the exit code (spec §6.5: 0 allow, 1 input error, 2 block). A
// policy that fails to load does not fail Run: it degrades to an empty
// config and is noted in the audit record.
type Result struct {
	Output   []byte
	ExitCode int
	Err      error
}

// Run executes one full hook invocation.
func Run(ctx context.Context, opts Options) Result {
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	warnSchemaViolations(logger, opts.Raw)

	a := adapter.Lookup(opts.PlatformName)
	if a == nil {
		return Result{ExitCode: 1, Err: fmt.Errorf("pipeline: unknown platform adapter %q", opts.PlatformName)}
	}

	adapted, err := a.ParseEvent(opts.Raw)
	if err != nil {
		var ie *adapter.InputError
		if errors.As(err, &ie) {
			return Result{ExitCode: 1, Err: err}
		}
		return Result{ExitCode: 1, Err: fmt.Errorf("pipeline: parse event: %w", err)}
	}

	cwd := adapted.Primary.Cwd
	if cwd == "" {
		cwd = opts.Cwd
	}
	cfg, degraded := policy.Load(policy.Resolve(cwd))
	var configErr string
	if degraded != nil {
		logger.Warnw("pipeline: policy load failed, degrading to empty config", "error", degraded)
		configErr = degraded.Error()
		cfg = &policy.Config{Version: "1"}
	}

	scriptTimeout := opts.ScriptTimeout
	if scriptTimeout == 0 {
		scriptTimeout = cfg.Settings.ScriptTimeoutDefault.Std()
	}

	rules := orderedRules(cfg.Rules)

	final := event.Response{Decision: event.Allow}
	start := time.Now()

	for _, evt := range adapted.All() {
		perEvent := evaluateEvent(ctx, cfg, rules, evt, scriptTimeout)
		final.Merge(perEvent)
	}

	elapsed := time.Since(start)

	out, err := a.FormatResponse(&final, adapted.Primary.EventType)
	if err != nil {
		return Result{ExitCode: 1, Err: fmt.Errorf("pipeline: format response: %w", err)}
	}

	if opts.Audit != nil {
		reason := final.Reason
		if configErr != "" {
			reason = "policy load failed, degraded to empty config: " + configErr
		}
		rec := audit.Decision{
			Timestamp:        time.Now(),
			SessionID:        adapted.Primary.SessionID,
			EventType:        adapted.Primary.EventType,
			ToolName:         adapted.Primary.ToolName,
			PlatformToolName: platformToolName(adapted.Primary),
			Decision:         final.Decision,
			Reason:           reason,
			Rules:            final.Evaluations,
			ElapsedTotal:     elapsed,
		}
		if err := opts.Audit.Append(rec); err != nil {
			logger.Warnw("pipeline: audit append failed", "error", err)
		}
	}

	exitCode := 0
	if final.Decision == event.Block {
		exitCode = 2
	}
	return Result{Output: out, ExitCode: exitCode}
}

// evaluateEvent runs every enabled rule against evt in priority order,
// recording an EvaluatedRule for each one considered — matched or not (spec
// §6.6) — and folding matched rules' mode-adjusted contributions into a
// single per-event Response.
func evaluateEvent(ctx context.Context, cfg *policy.Config, rules []*policy.Rule, evt *event.Event, scriptTimeout time.Duration) event.Response {
	resp := event.Response{Decision: event.Allow}

	for _, r := range rules {
		if !r.IsEnabled() {
			continue
		}
		if r.Event != "" && r.Event != string(evt.EventType) {
			continue
		}

		ruleStart := time.Now()
		matched := match.Matches(cfg, r, evt)
		elapsed := time.Since(ruleStart)

		resp.Evaluations = append(resp.Evaluations, event.EvaluatedRule{
			Name:     r.Name,
			Matched:  matched,
			Mode:     string(r.EffectiveMode()),
			Priority: r.Priority,
			Metadata: r.Metadata,
			Elapsed:  elapsed,
		})

		if !matched {
			continue
		}

		contrib := action.Execute(ctx, cfg, r, evt, scriptTimeout)
		contrib = action.ApplyMode(r.EffectiveMode(), cfg.Settings.FailOpen, contrib)
		resp.Merge(contributionToResponse(contrib))
	}

	return resp
}

func contributionToResponse(c action.Contribution) event.Response {
	decision := event.Allow
	if c.Block {
		decision = event.Block
	}
	return event.Response{
		Decision:          decision,
		Reason:            c.Reason,
		Context:           c.Context,
		ToolInputOverride: c.ToolInputOverride,
		SystemMessage:     c.SystemMessage,
	}
}

// orderedRules sorts by descending priority, breaking ties by the rule's
// original position in the config file (spec §4.5 "Rule ordering"): higher
// priority runs first, and among equal priorities, declaration order is
// preserved.
func orderedRules(rules []*policy.Rule) []*policy.Rule {
	ordered := make([]*policy.Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})
	return ordered
}

func platformToolName(evt *event.Event) string {
	v, ok := evt.Field(event.PlatformToolNameKey)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// warnSchemaViolations validates the raw platform payload against the
// reflected Event schema and logs (never fails) any mismatch, before the
// adapter ever runs (spec §4.9 step order: read stdin, then schema-check,
// then adapt). Running it here, instead of against the already-adapted
// event, is what lets it actually catch the cases spec §8 calls out —
// unrecognized or wrong-typed platform fields discarded during adaptation
// never reach a post-adaptation check at all.
func warnSchemaViolations(logger Logger, raw []byte) {
	violations, err := schema.Validate(raw)
	if err != nil {
		logger.Warnw("pipeline: schema: validate", "error", err)
		return
	}
	for _, v := range violations {
		logger.Warnw("pipeline: schema violation", "field", v.Field, "message", v.Message)
	}
}
