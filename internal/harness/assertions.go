package harness

import (
	"fmt"
	"strings"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %v\n", event.Seq, event.Kind, event.Payload)
	}

	return buf.String()
}

// countKind returns how many trace events have the given kind.
func countKind(trace []TraceEvent, kind string) int {
	n := 0
	for _, event := range trace {
		if event.Kind == kind {
			n++
		}
	}
	return n
}

// assertTraceContains checks that at least one event of the kind is logged.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	if countKind(trace, assertion.Kind) > 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("at least one %s", assertion.Kind),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceAbsent checks that no event of the kind is logged.
// Used to pin down that playback triggers never survive in the log.
func assertTraceAbsent(trace []TraceEvent, assertion Assertion) error {
	n := countKind(trace, assertion.Kind)
	if n == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceAbsent,
		Expected: fmt.Sprintf("no %s", assertion.Kind),
		Actual:   fmt.Sprintf("%d occurrences", n),
		Trace:    trace,
	}
}

// assertTraceCount checks that the kind appears exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	n := countKind(trace, assertion.Kind)
	if n == assertion.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Kind),
		Actual:   fmt.Sprintf("%d occurrences", n),
		Trace:    trace,
	}
}

// assertTraceOrder checks that kinds appear in the specified order.
// Kinds don't need to be consecutive (intervening events are allowed), and
// a kind may repeat in the expected list.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for i, want := range assertion.Kinds {
		found := false
		for pos < len(trace) {
			event := trace[pos]
			pos++
			if event.Kind == want {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("kinds in order: %v", assertion.Kinds),
				Actual:   fmt.Sprintf("no %s after position %d of the expected order", want, i),
				Trace:    trace,
			}
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
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceAbsent:
			err = assertTraceAbsent(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
