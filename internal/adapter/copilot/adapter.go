// Package copilot implements the GitHub Copilot CLI platform adapter.
// Its tool-name mapping is documented by spec §9 as low confidence;
// accordingly ToolNameMap is exported so it can be revised without
// touching the translation logic, per that open question's resolution.
package copilot

import (
	"encoding/json"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
)

const Name = "copilot"

func init() {
	adapter.Register(&Adapter{})
}

// ToolNameMap is the best-effort Copilot→canonical tool mapping (spec
// §4.3). Exported (unlike the other adapters' unexported maps) because the
// spec explicitly calls out low confidence here and asks for revisability
// without a code change.
var ToolNameMap = map[string]string{
	"shell": "Bash",
	"write": "Write",
	"edit":  "Edit",
	"read":  "Read",
	"glob":  "Glob",
	"grep":  "Grep",
	"task":  "Task",
	"fetch": "WebFetch",
}

var eventTypeMap = map[string]event.Type{
	"preToolUse":   event.PreToolUse,
	"postToolUse":  event.PostToolUse,
	"errorOccurred": event.PostToolUseFailure,
	"promptSubmit": event.UserPromptSubmit,
	"sessionStart": event.SessionStart,
	"sessionEnd":   event.SessionEnd,
	"preCompact":   event.PreCompact,
}

// Adapter is the GitHub Copilot CLI hook adapter.
type Adapter struct{}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) ParseEvent(raw []byte) (*adapter.AdaptedEvent, error) {
	env, err := adapter.ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	tag, ok := env.TagField("hook_event_name")
	if !ok {
		return nil, &adapter.InputError{Msg: "missing required field: hook_event_name"}
	}

	canonical, known := eventTypeMap[tag]
	if !known {
		canonical = event.Notification
	}

	evt := &event.Event{
		EventType:      canonical,
		SessionID:      env.StringField("session_id"),
		TranscriptPath: env.StringField("transcript_path"),
		Cwd:            env.StringField("cwd"),
		PermissionMode: env.StringField("permission_mode"),
		ToolUseID:      env.StringField("tool_use_id"),
		UserID:         env.StringField("user_id"),
		ToolInput:      env.MapField("tool_input"),
		Prompt:         env.StringField("prompt"),
	}
	adapter.CanonicalizeToolName(evt, env.StringField("tool_name"), ToolNameMap)

	return &adapter.AdaptedEvent{Primary: evt}, nil
}

func (a *Adapter) FormatResponse(resp *event.Response, _ event.Type) ([]byte, error) {
	decision := "Allow"
	if resp.Decision == event.Block {
		decision = "Deny"
	}
	out := struct {
		PermissionDecision       string         `json:"permissionDecision"`
		PermissionDecisionReason string         `json:"permissionDecisionReason,omitempty"`
		ToolInput                map[string]any `json:"tool_input,omitempty"`
	}{
		PermissionDecision:       decision,
		PermissionDecisionReason: resp.Reason,
		ToolInput:                resp.ToolInputOverride,
	}
	return json.Marshal(out)
}
