// Package gemini implements the Gemini CLI platform adapter: its own
// `hook_event_name` tag vocabulary and tool names, translated to the
// canonical event/tool space, including its three dual-fire cases (spec
// §4.3, §4.7).
package gemini

import (
	"encoding/json"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/adapter"
	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
)

const Name = "gemini"

func init() {
	adapter.Register(&Adapter{})
}

// toolNameMap is the authoritative Gemini→canonical tool mapping (spec
// §4.3), exposed as data (not code) so it can be revised without touching
// the translation logic.
var toolNameMap = map[string]string{
	"run_shell_command":  "Bash",
	"write_file":         "Write",
	"replace":            "Edit",
	"read_file":          "Read",
	"glob":               "Glob",
	"search_file_content": "Grep",
	"grep_search":        "Grep",
	"web_fetch":          "WebFetch",
}

// eventTypeMap is the Gemini tag→canonical primary event type mapping
// (spec §6.2). Dual-fires are computed separately in ParseEvent since they
// depend on payload content, not just the tag.
var eventTypeMap = map[string]event.Type{
	"BeforeTool":          event.PreToolUse,
	"AfterTool":           event.PostToolUse,
	"BeforeAgent":         event.BeforeAgent,
	"AfterAgent":          event.AfterAgent,
	"BeforeModel":         event.BeforeModel,
	"AfterModel":          event.AfterModel,
	"BeforeToolSelection": event.BeforeToolSelection,
	"SessionStart":        event.SessionStart,
	"SessionEnd":          event.SessionEnd,
	"Notification":        event.Notification,
	"PreCompact":          event.PreCompact,
}

// Adapter is the Gemini CLI hook adapter.
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
	prompt := env.StringField("prompt")

	evt := &event.Event{
		EventType:      canonical,
		SessionID:      env.StringField("session_id"),
		TranscriptPath: env.StringField("transcript_path"),
		Cwd:            env.StringField("cwd"),
		PermissionMode: env.StringField("permission_mode"),
		ToolUseID:      env.StringField("tool_use_id"),
		UserID:         env.StringField("user_id"),
		ToolInput:      toolInput,
		Prompt:         prompt,
	}
	adapter.CanonicalizeToolName(evt, env.StringField("tool_name"), toolNameMap)

	adapted := &adapter.AdaptedEvent{Primary: evt}

	switch tag {
	case "BeforeAgent":
		if prompt != "" {
			dual := cloneWithType(evt, event.UserPromptSubmit)
			adapted.Additional = append(adapted.Additional, dual)
		}
	case "AfterTool":
		extra := env.MapField("extra")
		if adapter.IsToolFailure(toolInput, extra) {
			adapted.Additional = append(adapted.Additional, cloneWithType(evt, event.PostToolUseFailure))
		}
	case "Notification":
		if env.StringField("notification_type") == "ToolPermission" {
			adapted.Additional = append(adapted.Additional, cloneWithType(evt, event.PermissionRequest))
		}
	}

	return adapted, nil
}

func cloneWithType(evt *event.Event, t event.Type) *event.Event {
	dup := *evt
	dup.EventType = t
	return &dup
}

func (a *Adapter) FormatResponse(resp *event.Response, _ event.Type) ([]byte, error) {
	decision := "Allow"
	if resp.Decision == event.Block {
		decision = "Deny"
	}
	out := struct {
		Decision      string         `json:"decision"`
		Reason        string         `json:"reason,omitempty"`
		SystemMessage string         `json:"systemMessage,omitempty"`
		ToolInput     map[string]any `json:"tool_input,omitempty"`
	}{
		Decision:      decision,
		Reason:        resp.Reason,
		SystemMessage: resp.SystemMessage,
		ToolInput:     resp.ToolInputOverride,
	}
	return json.Marshal(out)
}
