// Package opencode implements the OpenCode platform adapter: its
// dot-separated `hook_event_name` tag vocabulary and lowercase tool names,
// translated to the canonical event/tool space, including its after-tool
// failure dual-fire (spec §4.3, §4.7).
package opencode

import (
	"encoding/json"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
)

const Name = "opencode"

func init() {
	adapter.Register(&Adapter{})
}

// toolNameMap is the authoritative OpenCode→canonical tool mapping (spec
// §4.3).
var toolNameMap = map[string]string{
	"bash":     "Bash",
	"write":    "Write",
	"edit":     "Edit",
	"read":     "Read",
	"glob":     "Glob",
	"grep":     "Grep",
	"task":     "Task",
	"webfetch": "WebFetch",
	"fetch":    "WebFetch",
}

// eventTypeMap is the OpenCode tag→canonical primary event type mapping
// (spec §6.2). `session.updated` has no matching entry in the canonical
// EventType enumeration (§6.1); it degrades to Notification like any other
// unrecognized tag, which is the documented fallback for exactly this
// situation.
var eventTypeMap = map[string]event.Type{
	"tool.execute.before": event.PreToolUse,
	"tool.execute.after":  event.PostToolUse,
	"session.created":     event.SessionStart,
	"session.deleted":     event.SessionEnd,
	"session.compacted":   event.PreCompact,
}

// Adapter is the OpenCode hook adapter.
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

	toolInput := env.MapField("tool_input")

	evt := &event.Event{
		EventType:      canonical,
		SessionID:      env.StringField("session_id"),
		TranscriptPath: env.StringField("transcript_path"),
		Cwd:            env.StringField("cwd"),
		PermissionMode: env.StringField("permission_mode"),
		ToolUseID:      env.StringField("tool_use_id"),
		UserID:         env.StringField("user_id"),
		ToolInput:      toolInput,
		Prompt:         env.StringField("prompt"),
	}
	adapter.CanonicalizeToolName(evt, env.StringField("tool_name"), toolNameMap)

	adapted := &adapter.AdaptedEvent{Primary: evt}

	if tag == "tool.execute.after" {
		extra := env.MapField("extra")
		if adapter.IsToolFailure(toolInput, extra) {
			dup := *evt
			dup.EventType = event.PostToolUseFailure
			adapted.Additional = append(adapted.Additional, &dup)
		}
	}

	return adapted, nil
}

func (a *Adapter) FormatResponse(resp *event.Response, _ event.Type) ([]byte, error) {
	out := struct {
		Continue bool           `json:"continue"`
		Reason   string         `json:"reason,omitempty"`
		Context  string         `json:"context,omitempty"`
		Tools    []any          `json:"tools,omitempty"`
	}{
		Continue: resp.Decision != event.Block,
		Reason:   resp.Reason,
		Context:  resp.Context,
	}
	return json.Marshal(out)
}
