package config

import (
	_ "embed"
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// Problem is one configuration error.
type Problem struct {
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a configuration.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		if p.Path == "" {
			parts[i] = p.Message
			continue
		}
		parts[i] = p.Path + ": " + p.Message
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Validate checks cfg against the CUE schema, then applies the rules the
// schema cannot express.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	encoded := *cfg
	if encoded.Sources == nil {
		encoded.Sources = []string{}
	}
	val := ctx.Encode(encoded)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	var problems []Problem
	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		problems = append(problems, cueProblems(err)...)
	}
	problems = append(problems, crossFieldProblems(cfg)...)

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// cueProblems flattens a CUE error into problems with dotted paths.
func cueProblems(err error) []Problem {
	var out []Problem
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		out = append(out, Problem{
			Path:    strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	return out
}

func crossFieldProblems(cfg *Config) []Problem {
	var out []Problem

	seen := make(map[string]bool, len(cfg.Sources))
	for _, src := range cfg.Sources {
		if src == cfg.Hub && src != "" {
			out = append(out, Problem{Path: "sources", Message: fmt.Sprintf("hub %q is also listed as a source", src)})
		}
		if seen[src] {
			out = append(out, Problem{Path: "sources", Message: fmt.Sprintf("source %q listed more than once", src)})
		}
		seen[src] = true
	}

	switch cfg.Store.Driver {
	case DriverNotion:
		if cfg.Store.Notion.Token == "" {
			out = append(out, Problem{Path: "store.notion.token", Message: "required when store.driver is notion (or set NOTION_TOKEN)"})
		}
	case DriverSQLite:
		if cfg.Store.SQLite.Path == "" {
			out = append(out, Problem{Path: "store.sqlite.path", Message: "required when store.driver is sqlite"})
		}
	}

	if cfg.Fields.Source == cfg.Fields.Deleted && cfg.Fields.Source != "" {
		out = append(out, Problem{Path: "fields", Message: "source and deleted fields must differ"})
	}
	return out
}
