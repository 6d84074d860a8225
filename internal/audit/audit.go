// Package audit implements RuleZ's append-only decision log (spec §6.6): one
// JSON-Lines record per hook invocation, written to
// ${HOME}/.claude/logs/rulez.log by default. Grounded on
// theRebelliousNerd-codenerd's internal/logging/audit.go mutex-guarded
// append-only writer, stripped of its Mangle-fact generation (no part of
// SPEC_FULL.md asks for a datalog-queryable audit trail; RuleZ's own
// decision shape already carries everything a downstream reader needs) and
// reshaped to RuleZ's own decision-record fields.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
)

// Decision is one append-only audit record: the final verdict for a single
// platform hook invocation plus the full per-rule evaluation trail (spec
// §6.6 "every considered rule, matched or not").
type Decision struct {
	ID               string                `json:"id"`
	Timestamp        time.Time             `json:"timestamp"`
	SessionID        string                `json:"session_id"`
	EventType        event.Type            `json:"event_type"`
	ToolName         string                `json:"tool_name,omitempty"`
	PlatformToolName string                `json:"platform_tool_name,omitempty"`
	Decision         event.Decision        `json:"decision"`
	Reason           string                `json:"reason,omitempty"`
	Rules            []event.EvaluatedRule `json:"rules,omitempty"`
	ElapsedTotal     time.Duration         `json:"elapsed_total"`
}

// DefaultPath returns ${HOME}/.claude/logs/rulez.log, or "" if the home
// directory cannot be resolved (callers treat that as "audit logging
// disabled" rather than a fatal error — spec §6.6 never makes the audit
// trail a precondition for serving a decision).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".claude", "logs", "rulez.log")
}

// Writer appends Decision records to a single log file, one JSON object per
// line, serialized against concurrent use by a single mutex (spec §6.6: the
// audit log is append-only and never rewritten in place).
type Writer struct {
	mu sync.Mutex
	f  *os.File
}

// Open creates (if needed) the parent directory and opens path for
// append-only writing. A Writer is safe for concurrent use.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("audit: mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return &Writer{f: f}, nil
}

// Append marshals d as one JSON line and writes it atomically with respect
// to other Append calls on the same Writer. A missing ID is assigned a
// fresh random one (google/uuid) so every decision record is independently
// addressable even when two records share the same session/timestamp.
func (w *Writer) Append(d Decision) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	line, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("audit: marshal: %w", err)
	}
	line = append(line, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.f.Write(line); err != nil {
		return fmt.Errorf("audit: write: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	return w.f.Close()
}
