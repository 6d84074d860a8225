// Package adapter defines the shared platform-adapter contract (spec §4.7)
// and the envelope-parsing helper every concrete adapter builds on: decode
// raw platform JSON into the two fields common to all four hook protocols
// (a tag field and a session id), fatal only on their absence, and hand
// back the rest of the payload for the adapter's own field-by-field
// translation.
package adapter

import (
	"encoding/json"
	"fmt"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
)

// AdaptedEvent is one platform invocation's expansion into the canonical
// event space: a primary event plus zero or more dual-fired additional
// events, all carrying the same underlying payload (spec §4.7, §9).
type AdaptedEvent struct {
	Primary    *event.Event
	Additional []*event.Event
}

// All returns Primary followed by Additional, the evaluation order the
// pipeline uses (spec §5 "Ordering guarantees").
func (a *AdaptedEvent) All() []*event.Event {
	out := make([]*event.Event, 0, 1+len(a.Additional))
	out = append(out, a.Primary)
	out = append(out, a.Additional...)
	return out
}

// Adapter is implemented once per platform (spec §4.7).
type Adapter interface {
	// Name identifies the adapter for CLI dispatch and decision records.
	Name() string

	// ParseEvent translates raw platform JSON into an AdaptedEvent. A
	// required-field failure (missing tag or session id) is returned as an
	// *InputError; the pipeline exits 1 on that specific error type.
	ParseEvent(raw []byte) (*AdaptedEvent, error)

	// FormatResponse serializes resp into this platform's native response
	// shape for the given primary event type (some platforms shape their
	// response differently depending on it).
	FormatResponse(resp *event.Response, primaryType event.Type) ([]byte, error)
}

// InputError marks a required-field failure: malformed envelope, missing
// tag, or missing session id (spec §4.9 step 4, §7 "Input errors"). The
// pipeline maps this to exit code 1 with no decision record.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// envelope is the minimal shape every platform's hook payload shares:
// some tag field naming the event, and a session id. Concrete adapters
// additionally round-trip the entire raw payload into map[string]any so
// unknown extra fields survive untouched (spec §6.2 "tolerate and preserve
// unknown extra JSON fields").
type envelope struct {
	Fields map[string]any
}

// ParseEnvelope decodes raw into a generic field map and extracts
// session_id, failing closed (an *InputError) if raw isn't valid JSON, is
// not a JSON object, or lacks a non-empty session_id. Individual adapters
// still validate their own tag field (whose key differs, hence not handled
// here) before constructing the canonical Event.
func ParseEnvelope(raw []byte) (*envelope, error) {
	if len(raw) == 0 {
		return nil, &InputError{Msg: "empty input"}
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &InputError{Msg: fmt.Sprintf("invalid JSON: %v", err)}
	}
	sid, _ := fields["session_id"].(string)
	if sid == "" {
		return nil, &InputError{Msg: "missing required field: session_id"}
	}
	return &envelope{Fields: fields}, nil
}

// TagField reads a string field by key, trying each alias in order and
// returning the first present, non-empty value.
func (e *envelope) TagField(aliases ...string) (string, bool) {
	for _, k := range aliases {
		if v, ok := e.Fields[k].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// StringField reads a plain string field, defaulting to "".
func (e *envelope) StringField(key string) string {
	v, _ := e.Fields[key].(string)
	return v
}

// MapField reads a nested object field as map[string]any, or nil.
func (e *envelope) MapField(key string) map[string]any {
	v, _ := e.Fields[key].(map[string]any)
	return v
}

// Registry maps CLI invocation name to Adapter, populated by each
// subpackage's init() via Register (spec §4.9 step 3 "select the adapter
// based on how the binary was invoked").
var registry = map[string]Adapter{}

// Register adds a (Name(), a) pair to the process-wide registry. Called
// from each concrete adapter package's init().
func Register(a Adapter) {
	registry[a.Name()] = a
}

// Lookup returns the registered adapter for name, or nil.
func Lookup(name string) Adapter {
	return registry[name]
}

// IsToolFailure implements the shared after-tool failure predicate used by
// both the Gemini and OpenCode adapters (spec §4.7 dual-fire rules): any of
// tool_input.success==false, tool_input.error present, extra.success==false,
// extra.error present. Treated as a minimum per spec §9's open question on
// this predicate; expansion room is intentional.
func IsToolFailure(toolInput map[string]any, extra map[string]any) bool {
	if fieldSaysFailure(toolInput) {
		return true
	}
	return fieldSaysFailure(extra)
}

func fieldSaysFailure(m map[string]any) bool {
	if m == nil {
		return false
	}
	if success, ok := m["success"].(bool); ok && !success {
		return true
	}
	if errVal, ok := m["error"]; ok && errVal != nil {
		return true
	}
	return false
}

// CanonicalizeToolName applies mapping (platform name → canonical name),
// recording tool_input.platform_tool_name on evt whenever the mapping
// changed the name (spec §4.3). Unknown names pass through unchanged and no
// hint is attached.
func CanonicalizeToolName(evt *event.Event, platformName string, mapping map[string]string) {
	canonical, mapped := mapping[platformName]
	if !mapped {
		evt.ToolName = platformName
		return
	}
	evt.ToolName = canonical
	if canonical != platformName {
		evt.WithPlatformToolName(platformName)
	}
}
