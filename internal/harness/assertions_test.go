package harness

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/execdef/internal/execution"
)

func str(s string) *string { return &s }

func cell(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func sampleView() *execution.DataView {
	return &execution.DataView{
		Offset:     []int{0, 0},
		Count:      []int{2, 1},
		TotalCount: []int{2, 1},
		Data:       [][]decimal.NullDecimal{{cell("150.0")}, {{}}},
		Headers: [][][]execution.ResultHeader{
			{{{Name: "East"}, {Name: "West"}}},
			{{{Name: "Amount"}}},
		},
	}
}

func TestAssertSameFingerprint(t *testing.T) {
	a := &Outcome{Name: "a", Fingerprint: "fp1"}
	b := &Outcome{Name: "b", Fingerprint: "fp1"}
	c := &Outcome{Name: "c", Fingerprint: "fp2"}

	assert.NoError(t, assertSameFingerprint([]*Outcome{a, b}))

	err := assertSameFingerprint([]*Outcome{a, b, c})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a and c share a fingerprint")
}

func TestAssertDifferentFingerprint(t *testing.T) {
	a := &Outcome{Name: "a", Fingerprint: "fp1"}
	b := &Outcome{Name: "b", Fingerprint: "fp2"}
	c := &Outcome{Name: "c", Fingerprint: "fp1"}

	assert.NoError(t, assertDifferentFingerprint([]*Outcome{a, b}))

	err := assertDifferentFingerprint([]*Outcome{a, b, c})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a and c have different fingerprints")
}

func TestFingerprintAssertions_RequirePreparation(t *testing.T) {
	a := &Outcome{Name: "a", Fingerprint: "fp1"}
	failed := &Outcome{Name: "b", Err: errors.New("bad document")}

	for _, fn := range []func([]*Outcome) error{assertSameFingerprint, assertDifferentFingerprint} {
		err := fn([]*Outcome{a, failed})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "preparation failed: bad document")
	}
}

func TestAssertViewEquals(t *testing.T) {
	o := &Outcome{Name: "a", Fingerprint: "fp", View: sampleView()}

	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{
			name:      "data compares numerically",
			assertion: Assertion{Data: [][]*string{{str("150")}, {nil}}},
		},
		{
			name:      "headers",
			assertion: Assertion{Headers: [][]string{{"East", "West"}, {"Amount"}}},
		},
		{
			name:      "total count",
			assertion: Assertion{TotalCount: []int{2, 1}},
		},
		{
			name:      "wrong value",
			assertion: Assertion{Data: [][]*string{{str("151")}, {nil}}},
			wantErr:   "data [[151] [null]]",
		},
		{
			name:      "null expected",
			assertion: Assertion{Data: [][]*string{{nil}, {nil}}},
			wantErr:   "Actual: data [[150] [null]]",
		},
		{
			name:      "value expected for null",
			assertion: Assertion{Data: [][]*string{{str("150")}, {str("0")}}},
			wantErr:   "data [[150] [0]]",
		},
		{
			name:      "wrong shape",
			assertion: Assertion{Data: [][]*string{{str("150")}}},
			wantErr:   "view_equals",
		},
		{
			name:      "wrong headers",
			assertion: Assertion{Headers: [][]string{{"West", "East"}, {"Amount"}}},
			wantErr:   "headers [[West East] [Amount]]",
		},
		{
			name:      "wrong total count",
			assertion: Assertion{TotalCount: []int{3, 1}},
			wantErr:   "total count [3 1]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := assertViewEquals(o, tt.assertion)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestAssertViewEquals_FailedExecution(t *testing.T) {
	o := &Outcome{Name: "a", Err: errors.New("boom")}

	err := assertViewEquals(o, Assertion{TotalCount: []int{1}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution a read")
	assert.Contains(t, err.Error(), "a: error boom")
}

func TestAssertEmptyView(t *testing.T) {
	empty := &execution.DataView{Offset: []int{5, 0}, Count: []int{0, 0}, TotalCount: []int{2, 1}}

	assert.NoError(t, assertEmptyView(&Outcome{Name: "e", View: empty}, Assertion{}))
	assert.NoError(t, assertEmptyView(&Outcome{Name: "e", View: empty}, Assertion{TotalCount: []int{2, 1}}))

	err := assertEmptyView(&Outcome{Name: "e", View: empty}, Assertion{TotalCount: []int{9, 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total count [9 1]")

	err = assertEmptyView(&Outcome{Name: "full", View: sampleView()}, Assertion{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "view with count [2 1]")
}

func TestAssertExecutionError(t *testing.T) {
	expired := &Outcome{Name: "a", Err: &execution.ExecutionError{
		Code:    execution.ErrCodeResultExpired,
		Message: "result r1 expired",
	}}
	invalid := &Outcome{Name: "b", Err: errors.New(`sortBy[0].attributeIdentifier: unknown local identifier "a9"`)}
	ok := &Outcome{Name: "c", Fingerprint: "fp", View: sampleView()}

	assert.NoError(t, assertExecutionError(expired, Assertion{Code: "RESULT_EXPIRED"}))
	assert.NoError(t, assertExecutionError(expired, Assertion{Code: "RESULT_EXPIRED", Contains: "r1"}))
	assert.NoError(t, assertExecutionError(invalid, Assertion{Code: CodeInvalidDefinition}))

	err := assertExecutionError(expired, Assertion{Code: "BACKEND_EXECUTION"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error RESULT_EXPIRED")

	err = assertExecutionError(expired, Assertion{Code: "RESULT_EXPIRED", Contains: "r2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `containing "r2"`)

	err = assertExecutionError(ok, Assertion{Code: "RESULT_EXPIRED"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution succeeded")
}

func TestOutcome_CodeUnwrapsExecutionErrors(t *testing.T) {
	wrapped := &Outcome{Err: errors.Join(errors.New("context"), &execution.ExecutionError{Code: execution.ErrCodeBackendExecution})}

	assert.Equal(t, "BACKEND_EXECUTION", wrapped.Code())
	assert.Equal(t, "", (&Outcome{}).Code())
}

func TestEvaluateAssertions(t *testing.T) {
	result := NewResult()
	result.Outcomes = []*Outcome{
		{Name: "a", Fingerprint: "fp1", View: sampleView()},
		{Name: "b", Fingerprint: "fp1", View: sampleView()},
	}

	errs := EvaluateAssertions(result, []Assertion{
		{Type: AssertSameFingerprint, Executions: []string{"a", "b"}},
		{Type: AssertDifferentFingerprint, Executions: []string{"a", "b"}},
		{Type: AssertViewEquals, Execution: "a", TotalCount: []int{2, 1}},
		{Type: AssertEmptyView, Execution: "missing"},
		{Type: "trace_count", Execution: "a"},
	})

	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "assertion[1]")
	assert.Contains(t, errs[1], `assertion[3]: unknown execution "missing"`)
	assert.Contains(t, errs[2], `assertion[4]: unknown assertion type "trace_count"`)
}

func TestGrid(t *testing.T) {
	grid := Grid(sampleView())

	require.Len(t, grid, 2)
	require.NotNil(t, grid[0][0])
	assert.Equal(t, "150", *grid[0][0])
	assert.Nil(t, grid[1][0])
	assert.Nil(t, Grid(&execution.DataView{}))
}

func TestHeaderNames(t *testing.T) {
	assert.Equal(t, [][]string{{"East", "West"}, {"Amount"}}, HeaderNames(sampleView()))
}
