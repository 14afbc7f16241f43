package harness

import (
	"github.com/roach88/formtree/internal/engine"
	"github.com/roach88/formtree/internal/ir"
	"github.com/roach88/formtree/internal/testutil"
)

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Record is the saved record. Unset when the submission failed.
	Record ir.RecordRef `json:"record"`

	// Data is the saved record data.
	Data ir.Object `json:"data,omitempty"`

	// Calls are the mutating attachment store calls made by the submission,
	// in order. Setup calls are not included.
	Calls []testutil.Call `json:"calls"`

	// Err is the submission error, if any.
	Err string `json:"error,omitempty"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Bound is the form bound to the saved record after the submission.
	Bound *engine.BoundForm `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Calls:  []testutil.Call{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
