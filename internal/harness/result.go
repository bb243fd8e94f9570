package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/hubsync/internal/engine"
	"github.com/roach88/hubsync/internal/store"
)

// PassRun is the outcome of one pass step.
type PassRun struct {
	// Number is the 1-based pass number.
	Number int

	DryRun bool
	Report *engine.Report

	// Writes are the writes the pass made (or would have made), in order.
	Writes []store.Write
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success: every assertion held.
	Pass bool

	// Runs holds one entry per pass step.
	Runs []PassRun

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Run returns pass n (1-based), or nil.
func (r *Result) Run(n int) *PassRun {
	if n < 1 || n > len(r.Runs) {
		return nil
	}
	return &r.Runs[n-1]
}

// Trace renders every pass as text, one write or error per line:
//
//	pass 1
//	  create hub rec-1 [Name Source]
//	pass 2 (dry run)
//	  update t1 [Points]
//	  error WRITE_FAILED forward t2
func (r *Result) Trace() string {
	var b strings.Builder
	for _, run := range r.Runs {
		fmt.Fprintf(&b, "pass %d", run.Number)
		if run.DryRun {
			b.WriteString(" (dry run)")
		}
		b.WriteByte('\n')
		for _, w := range run.Writes {
			fmt.Fprintf(&b, "  %s\n", w)
		}
		if run.Report == nil {
			continue
		}
		for _, e := range run.Report.Errors {
			target := e.RecordID
			if target == "" {
				target = e.Collection
			}
			fmt.Fprintf(&b, "  error %s %s %s\n", e.Code, e.Phase, target)
		}
	}
	return b.String()
}
