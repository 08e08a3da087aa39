package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes the trace and outcome as indented JSON.
func WriteJSON(w io.Writer, t Trace) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}

// WriteText writes a step-by-step view of the trace: one line per entry,
// a marker before each retry cycle, and the errors of failed entries.
func WriteText(w io.Writer, t Trace) error {
	bw := bufio.NewWriter(w)

	result := "FAILED"
	if t.Outcome.Passed {
		result = "PASSED"
	}
	fmt.Fprintf(bw, "Pipeline: %s (%s)\n\n", result, plural(t.Outcome.RetryCount, "retry", "retries"))

	boundaries := make(map[int]int)
	for _, b := range t.RetryBoundaries() {
		boundaries[b.Index] = b.Attempt
	}

	for i, e := range t.Entries {
		if attempt, ok := boundaries[i]; ok {
			fmt.Fprintf(bw, "   ↻ retry #%d\n", attempt)
		}
		tag := ""
		if e.CyclePass > 0 {
			tag = fmt.Sprintf(" [pass %d]", e.CyclePass)
		}
		fmt.Fprintf(bw, "%3d. %-9s %-8s%s %s\n", i+1, e.Step, e.Status, tag, e.Message)
		if t.vocab.IsFailure(e.Status) {
			for _, msg := range e.Errors {
				fmt.Fprintf(bw, "       ! %s\n", msg)
			}
		}
	}

	fmt.Fprintln(bw)
	fmt.Fprintln(bw, "Stages:")
	for _, st := range t.Stages() {
		if st.Runs == 0 {
			fmt.Fprintf(bw, "  %-9s not reached\n", st.Step)
			continue
		}
		fmt.Fprintf(bw, "  %-9s %s, last %s, %d failed\n", st.Step, plural(st.Runs, "run", "runs"), st.LastStatus, st.Failures)
	}

	return bw.Flush()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
