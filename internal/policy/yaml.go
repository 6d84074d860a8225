package policy

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML accepts both the shorthand list form:
//
//	prompt_match: ["delete", "rm -rf"]
//
// and the complex form:
//
//	prompt_match:
//	  patterns: ["delete", "rm -rf"]
//	  mode: all
//	  case_insensitive: true
//	  anchor: start
//
// (spec §3, §4.2).
func (p *PromptMatch) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var patterns []string
		if err := value.Decode(&patterns); err != nil {
			return fmt.Errorf("prompt_match: %w", err)
		}
		p.Patterns = patterns
		p.Mode = PromptModeAny
		p.Anchor = AnchorContains
		return nil
	}

	var shape struct {
		Patterns        []string        `yaml:"patterns"`
		Mode            PromptMatchMode `yaml:"mode"`
		CaseInsensitive bool            `yaml:"case_insensitive"`
		Anchor          PromptAnchor    `yaml:"anchor"`
	}
	if err := value.Decode(&shape); err != nil {
		return fmt.Errorf("prompt_match: %w", err)
	}

	p.Patterns = shape.Patterns
	p.CaseInsensitive = shape.CaseInsensitive
	p.Mode = shape.Mode
	if p.Mode == "" {
		p.Mode = PromptModeAny
	}
	p.Anchor = shape.Anchor
	if p.Anchor == "" {
		p.Anchor = AnchorContains
	}
	return nil
}

// UnmarshalYAML accepts `block: true`/`block: false` and `block: "reason"`
// (spec §3). A string always implies enabled=true.
func (b *BlockAction) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var asBool bool
		if err := value.Decode(&asBool); err == nil {
			b.Enabled = asBool
			return nil
		}
		var asString string
		if err := value.Decode(&asString); err != nil {
			return fmt.Errorf("block: expected bool or string, got %q", value.Value)
		}
		b.Enabled = true
		b.Reason = asString
		return nil
	default:
		return fmt.Errorf("block: expected a scalar bool or string")
	}
}

// UnmarshalYAML accepts a duration string ("5s", "200ms") or a bare integer,
// which is interpreted as whole seconds.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration: expected a scalar")
	}

	var asInt int64
	if err := value.Decode(&asInt); err == nil {
		*d = Duration(time.Duration(asInt) * time.Second)
		return nil
	}

	var asString string
	if err := value.Decode(&asString); err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	parsed, err := time.ParseDuration(asString)
	if err != nil {
		return fmt.Errorf("duration: %q: %w", asString, err)
	}
	*d = Duration(parsed)
	return nil
}
