// Package schema implements RuleZ's fail-open event-shape validator (spec
// §4.8): a JSON Schema derived from the canonical Event type, compiled once
// behind a lazily-initialised static cell. Schema violations are warnings
// only; the only fatal check in this package's neighbourhood is required-
// field presence, which deliberately lives in internal/adapter (the
// envelope parse every adapter runs) rather than here (spec §4.8 "schema vs
// required-field split").
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsonschemav5 "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/SpillwaveSolutions/agent-rulez-sub002/internal/event"
)

// Violation is one schema complaint, never fatal on its own.
type Violation struct {
	Field   string
	Message string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

var (
	once       sync.Once
	compiledSc *jsonschemav5.Schema
	buildErr   error
)

// schemaURL is the synthetic $id jsonschema/v5 needs to compile against; no
// network access ever occurs, the document is added to the compiler
// in-memory.
const schemaURL = "https://rulez.invalid/schema/event.json"

// compiled lazily reflects internal/event.Event into a JSON Schema and
// compiles it exactly once, mirroring the spec's "static lazy cell"
// language for this exact component.
func compiled() (*jsonschemav5.Schema, error) {
	once.Do(func() {
		reflector := &jsonschema.Reflector{
			ExpandedStruct: true,
			DoNotReference: true,
		}
		doc := reflector.Reflect(&event.Event{})
		raw, err := json.Marshal(doc)
		if err != nil {
			buildErr = fmt.Errorf("schema: marshal reflected schema: %w", err)
			return
		}

		compiler := jsonschemav5.NewCompiler()
		if err := compiler.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
			buildErr = fmt.Errorf("schema: add resource: %w", err)
			return
		}
		sc, err := compiler.Compile(schemaURL)
		if err != nil {
			buildErr = fmt.Errorf("schema: compile: %w", err)
			return
		}
		compiledSc = sc
	})
	return compiledSc, buildErr
}

// Validate checks raw event JSON against the reflected Event schema and
// returns any violations found. It NEVER returns an error for a structural
// mismatch — only for genuinely malformed JSON or for an internal
// schema-build failure, which indicates a programming bug rather than a bad
// event. The pipeline runs this before the adapter parses the payload, logs
// any such error as a warning, and leaves rejecting malformed JSON to the
// adapter.
func Validate(raw []byte) ([]Violation, error) {
	sc, err := compiled()
	if err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema: unmarshal: %w", err)
	}

	if err := sc.Validate(doc); err != nil {
		return toViolations(err), nil
	}
	return nil, nil
}

// toViolations flattens jsonschema/v5's (possibly nested) ValidationError
// tree into a flat warning list, one per leaf cause.
func toViolations(err error) []Violation {
	ve, ok := err.(*jsonschemav5.ValidationError)
	if !ok {
		return []Violation{{Field: "(root)", Message: err.Error()}}
	}
	var out []Violation
	flatten(ve, &out)
	if len(out) == 0 {
		out = append(out, Violation{Field: ve.InstanceLocation, Message: ve.Message})
	}
	return out
}

func flatten(ve *jsonschemav5.ValidationError, out *[]Violation) {
	if len(ve.Causes) == 0 {
		*out = append(*out, Violation{Field: ve.InstanceLocation, Message: ve.Message})
		return
	}
	for _, c := range ve.Causes {
		flatten(c, out)
	}
}
