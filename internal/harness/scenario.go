package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/execdef/internal/deffile"
	"github.com/roach88/execdef/internal/execution"
)

// Scenario defines a conformance scenario: a dataset, a set of named
// executions against it and assertions over their fingerprints, views
// and errors.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Now is the wall clock used for relative date filters and load
	// timestamps. Defaults to DefaultNow.
	Now *time.Time `yaml:"now,omitempty"`

	// Dataset is loaded into a fresh store before any execution.
	Dataset deffile.DatasetDoc `yaml:"dataset"`

	// Executions are prepared, executed and read independently. Documents
	// without a workspace use the dataset's.
	Executions []ExecutionStep `yaml:"executions"`

	// Assertions validate the outcomes.
	// Supported types: same_fingerprint, different_fingerprint,
	// view_equals, empty_view, execution_error
	Assertions []Assertion `yaml:"assertions"`
}

// ExecutionStep is one named execution.
type ExecutionStep struct {
	// Name identifies the step in assertions.
	Name string `yaml:"name"`

	// Document is a definition or an insight reference.
	Document deffile.Document `yaml:"document"`

	// Offset and Limit select the window to read. Both absent reads the
	// whole result.
	Offset []int `yaml:"offset,omitempty"`
	Limit  []int `yaml:"limit,omitempty"`
}

// Assertion validates execution outcomes.
type Assertion struct {
	// Type specifies the assertion type:
	// - "same_fingerprint": all named executions share one fingerprint
	// - "different_fingerprint": the named executions have pairwise distinct fingerprints
	// - "view_equals": the view of an execution holds the expected data
	// - "empty_view": the view of an execution is empty
	// - "execution_error": an execution failed with the expected code
	Type string `yaml:"type"`

	// Executions names the steps compared by fingerprint assertions.
	Executions []string `yaml:"executions,omitempty"`

	// Execution names the step checked by view and error assertions.
	Execution string `yaml:"execution,omitempty"`

	// Data is the expected grid (used by view_equals). Cells are decimal
	// strings; null cells are YAML nulls.
	Data [][]*string `yaml:"data,omitempty"`

	// Headers are the expected header names per dimension, items
	// concatenated in order (used by view_equals).
	Headers [][]string `yaml:"headers,omitempty"`

	// TotalCount is the expected result size (used by view_equals and
	// empty_view).
	TotalCount []int `yaml:"total_count,omitempty"`

	// Code is the expected error code (used by execution_error).
	Code string `yaml:"code,omitempty"`

	// Contains is an optional substring of the error message (used by
	// execution_error).
	Contains string `yaml:"contains,omitempty"`
}

// Assertion type constants.
const (
	AssertSameFingerprint      = "same_fingerprint"
	AssertDifferentFingerprint = "different_fingerprint"
	AssertViewEquals           = "view_equals"
	AssertEmptyView            = "empty_view"
	AssertExecutionError       = "execution_error"
)

// CodeInvalidDefinition is the error code of executions whose document
// does not describe a valid definition. Other failures carry their
// execution.ErrorCode.
const CodeInvalidDefinition = "INVALID_DEFINITION"

var knownCodes = map[string]bool{
	CodeInvalidDefinition:                        true,
	string(execution.ErrCodeUnresolvedReference): true,
	string(execution.ErrCodeBackendExecution):    true,
	string(execution.ErrCodeResultExpired):       true,
}

// DefaultNow is the clock of scenarios that do not set one.
var DefaultNow = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

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

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches "assertion:" vs "assertions:"
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
	if s.Dataset.Workspace == "" {
		return fmt.Errorf("dataset.workspace is required")
	}
	if len(s.Executions) == 0 {
		return fmt.Errorf("executions list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Executions))
	for i, step := range s.Executions {
		if step.Name == "" {
			return fmt.Errorf("executions[%d]: name is required", i)
		}
		if names[step.Name] {
			return fmt.Errorf("executions[%d]: duplicate name %q", i, step.Name)
		}
		names[step.Name] = true
		if (step.Offset == nil) != (step.Limit == nil) {
			return fmt.Errorf("executions[%d]: offset and limit must be given together", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i], names); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, names map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	checkName := func(name string) error {
		if !names[name] {
			return fmt.Errorf("assertions[%d]: unknown execution %q", index, name)
		}
		return nil
	}

	switch a.Type {
	case AssertSameFingerprint, AssertDifferentFingerprint:
		if len(a.Executions) < 2 {
			return fmt.Errorf("assertions[%d]: at least two executions are required for %s", index, a.Type)
		}
		for _, name := range a.Executions {
			if err := checkName(name); err != nil {
				return err
			}
		}
		return nil
	case AssertViewEquals:
		if a.Data == nil && a.Headers == nil && a.TotalCount == nil {
			return fmt.Errorf("assertions[%d]: data, headers or total_count is required for view_equals", index)
		}
	case AssertEmptyView:
	case AssertExecutionError:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for execution_error", index)
		}
		if !knownCodes[a.Code] {
			return fmt.Errorf("assertions[%d]: unknown error code %q", index, a.Code)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	if a.Execution == "" {
		return fmt.Errorf("assertions[%d]: execution is required for %s", index, a.Type)
	}
	return checkName(a.Execution)
}
