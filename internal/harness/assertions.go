package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/execdef/internal/execution"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string     // Assertion type for categorization
	Expected string     // Human-readable expected outcome
	Actual   string     // Human-readable actual outcome
	Outcomes []*Outcome // Involved outcomes for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Outcomes) > 0 {
		fmt.Fprintf(&buf, "\nOutcomes:\n")
		for _, o := range e.Outcomes {
			switch {
			case o.Err != nil:
				fmt.Fprintf(&buf, "  %s: error %v\n", o.Name, o.Err)
			default:
				fmt.Fprintf(&buf, "  %s: %s\n", o.Name, o.Fingerprint)
			}
		}
	}
	return buf.String()
}

// lookup returns the outcomes of the named steps in the given order.
func lookup(result *Result, names []string) ([]*Outcome, error) {
	out := make([]*Outcome, 0, len(names))
	for _, name := range names {
		o, ok := result.Outcome(name)
		if !ok || o == nil {
			return nil, fmt.Errorf("unknown execution %q", name)
		}
		out = append(out, o)
	}
	return out, nil
}

// prepared fails for outcomes that never got a fingerprint.
func prepared(typ string, outcomes []*Outcome) error {
	for _, o := range outcomes {
		if o.Fingerprint == "" {
			return &AssertionError{
				Type:     typ,
				Expected: fmt.Sprintf("execution %s prepared", o.Name),
				Actual:   fmt.Sprintf("preparation failed: %v", o.Err),
				Outcomes: outcomes,
			}
		}
	}
	return nil
}

// assertSameFingerprint checks that all named executions share one
// fingerprint.
func assertSameFingerprint(outcomes []*Outcome) error {
	if err := prepared(AssertSameFingerprint, outcomes); err != nil {
		return err
	}
	first := outcomes[0]
	for _, o := range outcomes[1:] {
		if o.Fingerprint != first.Fingerprint {
			return &AssertionError{
				Type:     AssertSameFingerprint,
				Expected: fmt.Sprintf("%s and %s share a fingerprint", first.Name, o.Name),
				Actual:   "fingerprints differ",
				Outcomes: outcomes,
			}
		}
	}
	return nil
}

// assertDifferentFingerprint checks that the named executions have
// pairwise distinct fingerprints.
func assertDifferentFingerprint(outcomes []*Outcome) error {
	if err := prepared(AssertDifferentFingerprint, outcomes); err != nil {
		return err
	}
	seen := make(map[string]string, len(outcomes))
	for _, o := range outcomes {
		if prev, ok := seen[o.Fingerprint]; ok {
			return &AssertionError{
				Type:     AssertDifferentFingerprint,
				Expected: fmt.Sprintf("%s and %s have different fingerprints", prev, o.Name),
				Actual:   "fingerprints are equal",
				Outcomes: outcomes,
			}
		}
		seen[o.Fingerprint] = o.Name
	}
	return nil
}

// viewOf fails for outcomes without a view.
func viewOf(typ string, o *Outcome) (*execution.DataView, error) {
	if o.View == nil {
		return nil, &AssertionError{
			Type:     typ,
			Expected: fmt.Sprintf("execution %s read", o.Name),
			Actual:   fmt.Sprintf("error: %v", o.Err),
			Outcomes: []*Outcome{o},
		}
	}
	return o.View, nil
}

// assertViewEquals compares the view of an execution with the expected
// data, header names and total count. Only the given parts are compared.
func assertViewEquals(o *Outcome, a Assertion) error {
	v, err := viewOf(AssertViewEquals, o)
	if err != nil {
		return err
	}

	fail := func(expected, actual string) error {
		return &AssertionError{
			Type:     AssertViewEquals,
			Expected: expected,
			Actual:   actual,
			Outcomes: []*Outcome{o},
		}
	}

	if a.TotalCount != nil && !slices.Equal(a.TotalCount, v.TotalCount) {
		return fail(fmt.Sprintf("total count %v", a.TotalCount), fmt.Sprintf("total count %v", v.TotalCount))
	}
	if a.Headers != nil {
		got := HeaderNames(v)
		if !headersEqual(a.Headers, got) {
			return fail(fmt.Sprintf("headers %v", a.Headers), fmt.Sprintf("headers %v", got))
		}
	}
	if a.Data != nil {
		got := Grid(v)
		if !gridEqual(a.Data, v.Data) {
			return fail(fmt.Sprintf("data %s", formatGrid(a.Data)), fmt.Sprintf("data %s", formatGrid(got)))
		}
	}
	return nil
}

// assertEmptyView checks that the view of an execution is empty and,
// optionally, reports the expected total count.
func assertEmptyView(o *Outcome, a Assertion) error {
	v, err := viewOf(AssertEmptyView, o)
	if err != nil {
		return err
	}
	if !v.IsEmpty() {
		return &AssertionError{
			Type:     AssertEmptyView,
			Expected: "empty view",
			Actual:   fmt.Sprintf("view with count %v", v.Count),
			Outcomes: []*Outcome{o},
		}
	}
	if a.TotalCount != nil && !slices.Equal(a.TotalCount, v.TotalCount) {
		return &AssertionError{
			Type:     AssertEmptyView,
			Expected: fmt.Sprintf("total count %v", a.TotalCount),
			Actual:   fmt.Sprintf("total count %v", v.TotalCount),
			Outcomes: []*Outcome{o},
		}
	}
	return nil
}

// assertExecutionError checks the error code and message of a failed
// execution.
func assertExecutionError(o *Outcome, a Assertion) error {
	if o.Err == nil {
		return &AssertionError{
			Type:     AssertExecutionError,
			Expected: fmt.Sprintf("error %s", a.Code),
			Actual:   "execution succeeded",
			Outcomes: []*Outcome{o},
		}
	}
	if code := o.Code(); code != a.Code {
		return &AssertionError{
			Type:     AssertExecutionError,
			Expected: fmt.Sprintf("error %s", a.Code),
			Actual:   fmt.Sprintf("error %s: %v", code, o.Err),
			Outcomes: []*Outcome{o},
		}
	}
	if a.Contains != "" && !strings.Contains(o.Err.Error(), a.Contains) {
		return &AssertionError{
			Type:     AssertExecutionError,
			Expected: fmt.Sprintf("error message containing %q", a.Contains),
			Actual:   o.Err.Error(),
			Outcomes: []*Outcome{o},
		}
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertSameFingerprint, AssertDifferentFingerprint:
			var outcomes []*Outcome
			outcomes, err = lookup(result, assertion.Executions)
			if err != nil {
				break
			}
			if assertion.Type == AssertSameFingerprint {
				err = assertSameFingerprint(outcomes)
			} else {
				err = assertDifferentFingerprint(outcomes)
			}
		case AssertViewEquals, AssertEmptyView, AssertExecutionError:
			var outcomes []*Outcome
			outcomes, err = lookup(result, []string{assertion.Execution})
			if err != nil {
				break
			}
			switch assertion.Type {
			case AssertViewEquals:
				err = assertViewEquals(outcomes[0], assertion)
			case AssertEmptyView:
				err = assertEmptyView(outcomes[0], assertion)
			default:
				err = assertExecutionError(outcomes[0], assertion)
			}
		default:
			err = fmt.Errorf("unknown assertion type %q", assertion.Type)
		}

		if err != nil {
			errors = append(errors, fmt.Sprintf("assertion[%d]: %v", i, err))
		}
	}

	return errors
}

// Grid renders the data of v as decimal strings, nil for null cells.
func Grid(v *execution.DataView) [][]*string {
	if v.Data == nil {
		return nil
	}
	out := make([][]*string, len(v.Data))
	for i, row := range v.Data {
		out[i] = make([]*string, len(row))
		for j, cell := range row {
			if cell.Valid {
				s := cell.Decimal.String()
				out[i][j] = &s
			}
		}
	}
	return out
}

// HeaderNames returns the header names of v per dimension, header items
// concatenated in order.
func HeaderNames(v *execution.DataView) [][]string {
	out := make([][]string, len(v.Headers))
	for d, items := range v.Headers {
		out[d] = []string{}
		for _, headers := range items {
			for _, h := range headers {
				out[d] = append(out[d], h.Name)
			}
		}
	}
	return out
}

func headersEqual(want, got [][]string) bool {
	return slices.EqualFunc(want, got, func(a, b []string) bool {
		return len(a) == len(b) && (len(a) == 0 || slices.Equal(a, b))
	})
}

// gridEqual compares cells numerically so that "150" matches 150.0.
func gridEqual(want [][]*string, got [][]decimal.NullDecimal) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if len(want[i]) != len(got[i]) {
			return false
		}
		for j, cell := range want[i] {
			actual := got[i][j]
			if cell == nil || !actual.Valid {
				if (cell == nil) != !actual.Valid {
					return false
				}
				continue
			}
			d, err := decimal.NewFromString(*cell)
			if err != nil || !d.Equal(actual.Decimal) {
				return false
			}
		}
	}
	return true
}

func formatGrid(grid [][]*string) string {
	rows := make([]string, len(grid))
	for i, row := range grid {
		cells := make([]string, len(row))
		for j, cell := range row {
			if cell == nil {
				cells[j] = "null"
			} else {
				cells[j] = *cell
			}
		}
		rows[i] = "[" + strings.Join(cells, " ") + "]"
	}
	return "[" + strings.Join(rows, " ") + "]"
}
