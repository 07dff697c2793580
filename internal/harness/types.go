package harness

import (
	"errors"

	"github.com/roach88/execdef/internal/execution"
)

// Outcome is what one execution step produced.
type Outcome struct {
	Name string

	// Fingerprint is set once the document was prepared.
	Fingerprint string

	// View is set when execution and read succeeded.
	View *execution.DataView

	// Err is the first failure of preparation, execution or read.
	Err error
}

// Code returns the error code of a failed outcome, or "" when it
// succeeded.
func (o *Outcome) Code() string {
	if o.Err == nil {
		return ""
	}
	var ee *execution.ExecutionError
	if errors.As(o.Err, &ee) {
		return string(ee.Code)
	}
	return CodeInvalidDefinition
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass indicates overall success: every assertion held.
	Pass bool `json:"pass"`

	// Outcomes follows the order of Scenario.Executions.
	Outcomes []*Outcome `json:"-"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Outcome returns the outcome of the named step.
func (r *Result) Outcome(name string) (*Outcome, bool) {
	for _, o := range r.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}
