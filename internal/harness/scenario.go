package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario.
// A scenario binds one form to one record, submits data, and asserts on the
// saved record, the attachment store, and the recorded attachment calls.
type Scenario struct {
	// Name uniquely identifies this scenario. Also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is the directory holding the CUE form declarations.
	// Relative paths are resolved against the scenario file location.
	Schema string `yaml:"schema"`

	// Form names the form to submit.
	Form string `yaml:"form"`

	// Record is the record the submission edits. An empty id creates a
	// new record.
	Record RecordSpec `yaml:"record,omitempty"`

	// ItemIDs are handed out, in order, to new group items.
	ItemIDs []string `yaml:"item_ids,omitempty"`

	// StoreIDs are handed out, in order, to pending uploads and new records.
	StoreIDs []string `yaml:"store_ids,omitempty"`

	// Uploads lists the names of pending uploads created before submitting.
	Uploads []string `yaml:"uploads,omitempty"`

	// Stored is the record's data before the submission. Requires record.id.
	Stored map[string]any `yaml:"stored,omitempty"`

	// Attachments places pending uploads into collections of the stored
	// record before the submission.
	Attachments []AttachmentStep `yaml:"attachments,omitempty"`

	// Submit is the submitted data as a nested document.
	Submit map[string]any `yaml:"submit,omitempty"`

	// Fields is the submitted data as flat bracketed or dotted keys,
	// as a browser posts it. Mutually exclusive with Submit.
	Fields map[string]any `yaml:"fields,omitempty"`

	// ExpectError is the error code the submission must fail with,
	// e.g. STRUCTURAL. Empty means the submission must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`

	// Assertions validate the outcome.
	// Supported types: record_data, collection, address, rule_key, calls
	Assertions []Assertion `yaml:"assertions"`
}

// RecordSpec identifies a record.
type RecordSpec struct {
	// Type defaults to the form's owner type.
	Type string `yaml:"type,omitempty"`
	ID   string `yaml:"id,omitempty"`
}

// AttachmentStep attaches existing uploads to a collection of the stored
// record.
type AttachmentStep struct {
	Collection string   `yaml:"collection"`
	IDs        []string `yaml:"ids"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type specifies the assertion type:
	// - "record_data": Check the value at path in the saved record
	// - "collection": Check the ordered attachment ids of a collection
	// - "address": Check a field of the form bound to the saved record
	// - "rule_key": Check the form declares a validation rule key
	// - "calls": Check the exact sequence of attachment store calls
	Type string `yaml:"type"`

	// Path is a dotted path into the saved record (used by record_data).
	// Array elements are addressed by position.
	Path string `yaml:"path,omitempty"`

	// Expect is the expected value (used by record_data).
	Expect any `yaml:"expect,omitempty"`

	// Absent requires path to be missing (used by record_data).
	Absent bool `yaml:"absent,omitempty"`

	// Collection is a collection name (used by collection and address).
	Collection string `yaml:"collection,omitempty"`

	// IDs are the expected attachment ids in order (used by collection).
	IDs []string `yaml:"ids,omitempty"`

	// Address is a bound field address (used by address).
	Address string `yaml:"address,omitempty"`

	// Template requires the bound field to be a template stencil
	// (used by address).
	Template bool `yaml:"template,omitempty"`

	// RuleKey is a wildcard rule key (used by rule_key).
	RuleKey string `yaml:"rule_key,omitempty"`

	// Ops are the expected attachment store operations (used by calls).
	Ops []string `yaml:"ops,omitempty"`
}

// Assertion type constants.
const (
	AssertRecordData = "record_data"
	AssertCollection = "collection"
	AssertAddress    = "address"
	AssertRuleKey    = "rule_key"
	AssertCalls      = "calls"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The schema path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}

	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return scenario, nil
}

// ParseScenario parses scenario YAML without validating paths.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
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

	if s.Schema == "" {
		return fmt.Errorf("schema is required")
	}
	if info, err := os.Stat(s.Schema); err != nil || !info.IsDir() {
		return fmt.Errorf("schema directory not found: %s", s.Schema)
	}

	if s.Form == "" {
		return fmt.Errorf("form is required")
	}

	if s.Submit != nil && s.Fields != nil {
		return fmt.Errorf("submit and fields are mutually exclusive")
	}

	if (s.Stored != nil || len(s.Attachments) > 0) && s.Record.ID == "" {
		return fmt.Errorf("stored data and attachments require record.id")
	}
	if s.Record.ID != "" && s.Stored == nil {
		return fmt.Errorf("record.id requires stored data")
	}

	for i, step := range s.Attachments {
		if step.Collection == "" {
			return fmt.Errorf("attachments[%d]: collection is required", i)
		}
		if len(step.IDs) == 0 {
			return fmt.Errorf("attachments[%d]: ids are required", i)
		}
	}

	if len(s.Assertions) == 0 && s.ExpectError == "" {
		return fmt.Errorf("assertions list is required unless expect_error is set")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertRecordData:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: record_data requires path", index)
		}
		if a.Expect == nil && !a.Absent {
			return fmt.Errorf("assertions[%d]: record_data requires expect or absent", index)
		}
	case AssertCollection:
		if a.Collection == "" {
			return fmt.Errorf("assertions[%d]: collection requires collection", index)
		}
	case AssertAddress:
		if a.Address == "" {
			return fmt.Errorf("assertions[%d]: address requires address", index)
		}
	case AssertRuleKey:
		if a.RuleKey == "" {
			return fmt.Errorf("assertions[%d]: rule_key requires rule_key", index)
		}
	case AssertCalls:
		// An empty ops list asserts that no calls were made.
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
