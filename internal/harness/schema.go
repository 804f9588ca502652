package harness

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// SchemaError lists every schema violation found in a scenario document.
type SchemaError struct {
	Violations []Violation
}

// Violation is one schema failure at a field path.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "scenario does not match schema (%d violations)", len(e.Violations))
	for _, v := range e.Violations {
		if v.Path != "" {
			fmt.Fprintf(&buf, "\n  %s: %s", v.Path, v.Message)
		} else {
			fmt.Fprintf(&buf, "\n  %s", v.Message)
		}
	}
	return buf.String()
}

// ValidateScenario checks a YAML scenario document against the embedded CUE
// schema. All violations are reported, not just the first.
//
// Uses CUE SDK's Go API directly (not CLI subprocess).
func ValidateScenario(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc == nil {
		return &SchemaError{Violations: []Violation{{Message: "empty document"}}}
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile scenario schema: %w", err)
	}

	def := schema.LookupPath(cue.ParsePath("#Scenario"))
	value := ctx.Encode(doc)
	if err := value.Err(); err != nil {
		return toSchemaError(err)
	}

	if err := def.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return toSchemaError(err)
	}
	return nil
}

// toSchemaError flattens CUE's error list into violations.
func toSchemaError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Violations: []Violation{{Message: err.Error()}}}
	}

	out := &SchemaError{}
	seen := make(map[string]bool)
	for _, e := range errs {
		format, args := e.Msg()
		v := Violation{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		}
		key := v.Path + "\x00" + v.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		out.Violations = append(out.Violations, v)
	}
	return out
}
