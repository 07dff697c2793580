package harness

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runFile(t *testing.T, path string) *Result {
	t.Helper()
	s, err := LoadScenario(path)
	require.NoError(t, err)
	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	return result
}

func TestRun_Fingerprints(t *testing.T) {
	result := runFile(t, "testdata/scenarios/fingerprints.yaml")

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Outcomes, 4)
	for _, o := range result.Outcomes {
		assert.NoError(t, o.Err, o.Name)
		assert.NotEmpty(t, o.Fingerprint, o.Name)
	}
}

func TestRun_EqualDefinitionsShareResult(t *testing.T) {
	result := runFile(t, "testdata/scenarios/fingerprints.yaml")

	a, ok := result.Outcome("measures_first")
	require.True(t, ok)
	b, ok := result.Outcome("attributes_first")
	require.True(t, ok)

	assert.Same(t, a.View.Result(), b.View.Result())
}

func TestRun_WindowsAndErrors(t *testing.T) {
	result := runFile(t, "testdata/scenarios/windows_and_errors.yaml")

	assert.True(t, result.Pass, "errors: %v", result.Errors)

	missing, ok := result.Outcome("missing_insight")
	require.True(t, ok)
	assert.Empty(t, missing.Fingerprint)
	assert.Equal(t, "UNRESOLVED_REFERENCE", missing.Code())

	sorted, ok := result.Outcome("dangling_sort")
	require.True(t, ok)
	assert.Equal(t, CodeInvalidDefinition, sorted.Code())

	second, ok := result.Outcome("second_row")
	require.True(t, ok)
	assert.Equal(t, "", second.Code())
}

func TestRun_DefaultWorkspace(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "ws1", result.Outcomes[0].View.Definition.Workspace())
}

func TestRun_ReportsFailedAssertions(t *testing.T) {
	data := minimalScenario + `  - type: view_equals
    execution: regions
    headers: [[West]]
  - type: execution_error
    execution: regions
    code: BACKEND_EXECUTION
`
	s, err := ParseScenario([]byte(data))
	require.NoError(t, err)

	result, err := Run(context.Background(), s)
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "assertion[1]")
	assert.Contains(t, result.Errors[0], "headers [[West]]")
	assert.Contains(t, result.Errors[1], "execution succeeded")
}

func TestRun_InvalidDataset(t *testing.T) {
	s, err := ParseScenario([]byte(minimalScenario))
	require.NoError(t, err)
	s.Dataset.Rows = [][]any{{"East", "extra"}}

	_, err = Run(context.Background(), s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load dataset")
}

func TestRun_Repeatable(t *testing.T) {
	first := runFile(t, "testdata/scenarios/fingerprints.yaml")
	second := runFile(t, "testdata/scenarios/fingerprints.yaml")

	for i := range first.Outcomes {
		assert.Equal(t, first.Outcomes[i].Fingerprint, second.Outcomes[i].Fingerprint)
		assert.Equal(t, Grid(first.Outcomes[i].View), Grid(second.Outcomes[i].View))
	}
}
