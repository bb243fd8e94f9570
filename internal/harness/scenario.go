package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a sync scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Hub is the hub collection id.
	Hub string `yaml:"hub"`

	// Sources lists the source collection ids in pass order.
	Sources []string `yaml:"sources"`

	// Records are seeded before the first step, with the ids given.
	Records []SeedRecord `yaml:"records,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and the per-pass results.
	Assertions []Assertion `yaml:"assertions"`
}

// SeedRecord is a record present before the scenario starts.
type SeedRecord struct {
	Collection string                   `yaml:"collection"`
	ID         string                   `yaml:"id"`
	Properties map[string]PropertyValue `yaml:"properties"`
}

// Step is one scenario action. Exactly one field is set.
type Step struct {
	Pass    *PassStep `yaml:"pass,omitempty"`
	Edit    *EditStep `yaml:"edit,omitempty"`
	Archive string    `yaml:"archive,omitempty"`
	Fail    *FailStep `yaml:"fail,omitempty"`
	Heal    bool      `yaml:"heal,omitempty"`
}

// PassStep runs one sync pass.
type PassStep struct {
	DryRun bool `yaml:"dry_run,omitempty"`
}

// EditStep updates a record directly on the store.
type EditStep struct {
	// ID names the record to edit.
	ID string `yaml:"id,omitempty"`

	// HubOf names a source record; the hub record linked to it is edited.
	HubOf string `yaml:"hub_of,omitempty"`

	Properties map[string]PropertyValue `yaml:"properties"`
}

// FailStep injects a store failure.
type FailStep struct {
	// Op is one of query, filter, get, create, update or "*".
	Op string `yaml:"op"`

	// Target is a collection or record id; empty matches any.
	Target string `yaml:"target,omitempty"`

	// Schema makes the failure a schema mismatch instead of a generic
	// store error.
	Schema bool `yaml:"schema,omitempty"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Source names a source record (hub_record, no_hub_record).
	Source string `yaml:"source,omitempty"`

	// ID names a record (source_record).
	ID string `yaml:"id,omitempty"`

	// Expect maps field names to displayed values. Subset match; a null
	// value means the field is absent or empty.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Pass is the 1-based pass number (pass_writes, pass_errors).
	Pass int `yaml:"pass,omitempty"`

	// Count is the expected number (hub_count, pass_writes, pass_errors).
	Count int `yaml:"count"`
}

// Assertion type constants.
const (
	AssertHubCount     = "hub_count"
	AssertHubRecord    = "hub_record"
	AssertNoHubRecord  = "no_hub_record"
	AssertSourceRecord = "source_record"
	AssertPassWrites   = "pass_writes"
	AssertPassErrors   = "pass_errors"
)

var validOps = map[string]bool{
	"query": true, "filter": true, "get": true, "create": true, "update": true, "*": true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "assertion:" vs "assertions:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Hub == "" {
		return fmt.Errorf("hub is required")
	}
	if len(s.Sources) == 0 {
		return fmt.Errorf("sources list is required and must be non-empty")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	for i, r := range s.Records {
		if r.Collection == "" {
			return fmt.Errorf("records[%d]: collection is required", i)
		}
		if r.ID == "" {
			return fmt.Errorf("records[%d]: id is required", i)
		}
		if seen[r.ID] {
			return fmt.Errorf("records[%d]: duplicate id %q", i, r.ID)
		}
		seen[r.ID] = true
		if _, err := toProperties(r.Properties); err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
	}

	passes := 0
	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
		if step.Pass != nil {
			passes++
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, passes); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, step *Step) error {
	set := 0
	if step.Pass != nil {
		set++
	}
	if step.Edit != nil {
		set++
	}
	if step.Archive != "" {
		set++
	}
	if step.Fail != nil {
		set++
	}
	if step.Heal {
		set++
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of pass, edit, archive, fail, heal is required", index)
	}

	if e := step.Edit; e != nil {
		if (e.ID == "") == (e.HubOf == "") {
			return fmt.Errorf("steps[%d].edit: exactly one of id, hub_of is required", index)
		}
		if len(e.Properties) == 0 {
			return fmt.Errorf("steps[%d].edit: properties is required", index)
		}
		if _, err := toProperties(e.Properties); err != nil {
			return fmt.Errorf("steps[%d].edit: %w", index, err)
		}
	}
	if f := step.Fail; f != nil && !validOps[f.Op] {
		return fmt.Errorf("steps[%d].fail: unknown op %q", index, f.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, passes int) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertHubCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertHubRecord:
		if a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for hub_record", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for hub_record", index)
		}
	case AssertNoHubRecord:
		if a.Source == "" {
			return fmt.Errorf("assertions[%d]: source is required for no_hub_record", index)
		}
	case AssertSourceRecord:
		if a.ID == "" {
			return fmt.Errorf("assertions[%d]: id is required for source_record", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for source_record", index)
		}
	case AssertPassWrites, AssertPassErrors:
		if a.Pass < 1 || a.Pass > passes {
			return fmt.Errorf("assertions[%d]: pass must be between 1 and %d", index, passes)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
