package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/hubsync/internal/record"
	"github.com/roach88/hubsync/internal/store"
)

// AssertionError is returned when an assertion fails.
// It includes the expected and actual outcome plus the pass trace.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Trace    string // Rendered pass trace for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Trace != "" {
		fmt.Fprintf(&buf, "\nTrace:\n%s", e.Trace)
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, m *store.Memory, hub string) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluate(result, a, m, hub); err != nil {
			err.Trace = result.Trace()
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion, m *store.Memory, hub string) *AssertionError {
	switch a.Type {
	case AssertHubCount:
		return assertHubCount(a, m, hub)
	case AssertHubRecord:
		return assertHubRecord(a, m, hub)
	case AssertNoHubRecord:
		return assertNoHubRecord(a, m, hub)
	case AssertSourceRecord:
		return assertSourceRecord(a, m)
	case AssertPassWrites:
		return assertPassCount(result, a, "writes", func(run *PassRun) int { return len(run.Writes) })
	case AssertPassErrors:
		return assertPassCount(result, a, "errors", func(run *PassRun) int { return len(run.Report.Errors) })
	default:
		return &AssertionError{Type: a.Type, Expected: "a known assertion type", Actual: a.Type}
	}
}

func assertHubCount(a Assertion, m *store.Memory, hub string) *AssertionError {
	got := len(m.Collection(hub))
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertHubCount,
		Expected: fmt.Sprintf("%d hub record(s)", a.Count),
		Actual:   fmt.Sprintf("%d hub record(s)", got),
	}
}

func assertHubRecord(a Assertion, m *store.Memory, hub string) *AssertionError {
	rec, ok := linkedHubRecord(m, hub, a.Source)
	if !ok {
		return &AssertionError{
			Type:     AssertHubRecord,
			Expected: fmt.Sprintf("a hub record linked to %s", a.Source),
			Actual:   "none found",
		}
	}
	if diff := matchFields(rec.Properties, a.Expect); diff != "" {
		return &AssertionError{
			Type:     AssertHubRecord,
			Expected: fmt.Sprintf("hub record %s (source %s) with %v", rec.ID, a.Source, a.Expect),
			Actual:   diff,
		}
	}
	return nil
}

func assertNoHubRecord(a Assertion, m *store.Memory, hub string) *AssertionError {
	rec, ok := linkedHubRecord(m, hub, a.Source)
	if !ok {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoHubRecord,
		Expected: fmt.Sprintf("no hub record linked to %s", a.Source),
		Actual:   fmt.Sprintf("hub record %s", rec.ID),
	}
}

func assertSourceRecord(a Assertion, m *store.Memory) *AssertionError {
	rec, ok := findRecord(m, a.ID)
	if !ok {
		return &AssertionError{
			Type:     AssertSourceRecord,
			Expected: fmt.Sprintf("live record %s", a.ID),
			Actual:   "missing or archived",
		}
	}
	if diff := matchFields(rec.Properties, a.Expect); diff != "" {
		return &AssertionError{
			Type:     AssertSourceRecord,
			Expected: fmt.Sprintf("record %s with %v", a.ID, a.Expect),
			Actual:   diff,
		}
	}
	return nil
}

func assertPassCount(result *Result, a Assertion, what string, count func(*PassRun) int) *AssertionError {
	run := result.Run(a.Pass)
	if run == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("pass %d", a.Pass),
			Actual:   fmt.Sprintf("%d pass(es) ran", len(result.Runs)),
		}
	}
	if got := count(run); got != a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d %s in pass %d", a.Count, what, a.Pass),
			Actual:   fmt.Sprintf("%d %s", got, what),
		}
	}
	return nil
}

// matchFields compares displayed field values with the expected subset and
// describes every mismatch. Returns "" when all match.
func matchFields(props record.Properties, expect map[string]any) string {
	names := make([]string, 0, len(expect))
	for name := range expect {
		names = append(names, name)
	}
	slices.Sort(names)

	var diffs []string
	for _, name := range names {
		want := expect[name]
		v, present := props[name]
		got := ""
		if present {
			got = record.Display(v)
		}

		if want == nil {
			if got != "" {
				diffs = append(diffs, fmt.Sprintf("%s = %q, want empty", name, got))
			}
			continue
		}
		if !present {
			diffs = append(diffs, fmt.Sprintf("%s missing, want %v", name, want))
			continue
		}
		if wantStr := fmt.Sprint(want); got != wantStr {
			diffs = append(diffs, fmt.Sprintf("%s = %q, want %q", name, got, wantStr))
		}
	}
	return strings.Join(diffs, "; ")
}
