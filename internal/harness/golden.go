package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/execdef/internal/ir"
	"github.com/roach88/execdef/internal/model"
)

// Snapshot captures what a scenario run produced, in canonical JSON for
// deterministic comparison. Each execution contributes its canonical
// definition, which is the tree its fingerprint serializes.
type Snapshot struct {
	ScenarioName string
	Executions   []SnapshotExecution
}

// SnapshotExecution is one execution of a Snapshot.
type SnapshotExecution struct {
	Name       string
	Definition ir.IRObject
	Error      string
	TotalCount []int
	Data       [][]*string
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) *Snapshot {
	s := &Snapshot{ScenarioName: name}
	for _, o := range result.Outcomes {
		e := SnapshotExecution{Name: o.Name, Error: o.Code()}
		if o.View != nil {
			e.Definition = model.Canonical(o.View.Definition)
			e.TotalCount = o.View.TotalCount
			e.Data = Grid(o.View)
		}
		s.Executions = append(s.Executions, e)
	}
	return s
}

// toCanonical converts a Snapshot to an ir.IRObject for canonical JSON
// serialization. Null cells become the string "null" since canonical JSON
// has no null.
func (s *Snapshot) toCanonical() ir.IRObject {
	list := make(ir.IRArray, len(s.Executions))
	for i, e := range s.Executions {
		obj := ir.IRObject{"name": ir.IRString(e.Name)}
		obj.SetString("error", e.Error)
		if e.Definition != nil {
			obj["definition"] = e.Definition
		}
		if e.TotalCount != nil {
			counts := make(ir.IRArray, len(e.TotalCount))
			for j, c := range e.TotalCount {
				counts[j] = ir.IRInt(c)
			}
			obj["total_count"] = counts
		}
		rows := make(ir.IRArray, len(e.Data))
		for r, row := range e.Data {
			cells := make(ir.IRArray, len(row))
			for c, cell := range row {
				if cell == nil {
					cells[c] = ir.IRString("null")
				} else {
					cells[c] = ir.IRString(*cell)
				}
			}
			rows[r] = cells
		}
		obj.SetArray("data", rows)
		list[i] = obj
	}
	return ir.IRObject{
		"scenario_name": ir.IRString(s.ScenarioName),
		"executions":    list,
	}
}

// MarshalCanonical returns the canonical JSON of the snapshot.
func (s *Snapshot) MarshalCanonical() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonical())
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the snapshot of an existing result against a
// golden file without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).MarshalCanonical()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
