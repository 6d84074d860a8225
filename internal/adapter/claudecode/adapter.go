// Package claudecode implements the identity platform adapter: Claude
// Code's own hook event names and tool names already are the canonical
// ones, so this adapter does no renaming at all (spec §4.3 "Claude Code:
// identity").
package claudecode

import (
	"encoding/json"
	"fmt"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
)

const Name = "claudecode"

func init() {
	adapter.Register(&Adapter{})
}

// Adapter is the Claude Code hook adapter.
type Adapter struct{}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) ParseEvent(raw []byte) (*adapter.AdaptedEvent, error) {
	env, err := adapter.ParseEnvelope(raw)
	if err != nil {
		return nil, err
	}
	tag, ok := env.TagField("hook_event_name", "event_type")
	if !ok {
		return nil, &adapter.InputError{Msg: "missing required field: hook_event_name"}
	}
	canonical, ok := event.CanonicalType(tag)
	if !ok {
		canonical = event.Notification
	}

	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &adapter.InputError{Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}

	evt := &event.Event{
		EventType:      canonical,
		SessionID:      env.StringField("session_id"),
		TranscriptPath: env.StringField("transcript_path"),
		Cwd:            env.StringField("cwd"),
		PermissionMode: env.StringField("permission_mode"),
		ToolUseID:      env.StringField("tool_use_id"),
		UserID:         env.StringField("user_id"),
		ToolName:       env.StringField("tool_name"),
		ToolInput:      env.MapField("tool_input"),
		Prompt:         env.StringField("prompt"),
	}

	return &adapter.AdaptedEvent{Primary: evt}, nil
}

func (a *Adapter) FormatResponse(resp *event.Response, _ event.Type) ([]byte, error) {
	out := struct {
		Continue bool   `json:"continue"`
		Reason   string `json:"reason,omitempty"`
		Context  string `json:"context,omitempty"`
	}{
		Continue: resp.Decision != event.Block,
		Reason:   resp.Reason,
		Context:  resp.Context,
	}
	return json.Marshal(out)
}
