package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/formtree/internal/ir"
)

// TraceSnapshot captures the observable outcome of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type TraceSnapshot struct {
	ScenarioName string
	Result       *Result
}

// toCanonicalMap converts a TraceSnapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	calls := make([]any, len(s.Result.Calls))
	for i, c := range s.Result.Calls {
		call := map[string]any{
			"seq": c.Seq,
			"op":  c.Op,
		}
		if c.Owner != "" {
			call["owner"] = c.Owner
		}
		if c.Collection != "" {
			call["collection"] = c.Collection
		}
		if c.IDs != nil {
			call["ids"] = c.IDs
		}
		if c.ID != "" {
			call["id"] = c.ID
		}
		if c.Properties != nil {
			call["properties"] = c.Properties
		}
		if c.Err != "" {
			call["error"] = c.Err
		}
		calls[i] = call
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"record":        s.Result.Record.String(),
		"calls":         calls,
	}
	if s.Result.Data != nil {
		result["data"] = s.Result.Data
	}
	if s.Result.Err != "" {
		result["error"] = s.Result.Err
	}
	return result
}

// Canonical returns the snapshot as canonical JSON, the golden file format.
func (s *TraceSnapshot) Canonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares its outcome against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the outcome doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := TraceSnapshot{ScenarioName: scenarioName, Result: result}
	traceJSON, err := snapshot.Canonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
