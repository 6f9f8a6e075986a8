package chain

import (
	"fmt"
	"strings"
)

// Summarize renders a Result as human-readable multi-line text: a header
// with chain name, status and step counts, then one line per attempted step
// with a success marker, status, elapsed time, and error details if any.
func Summarize(r *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Chain: %s\n", r.ChainName)
	fmt.Fprintf(&b, "Status: %s\n", r.Status)
	fmt.Fprintf(&b, "Steps: %d/%d completed\n", r.CompletedSteps, r.TotalSteps)
	if r.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
	}

	for i, res := range r.Results {
		marker := "✓"
		if res.Status != TaskCompleted {
			marker = "✗"
		}
		fmt.Fprintf(&b, "  [%d] %s %s %s (%dms)", i+1, marker, res.TaskName, res.Status, res.ExecutionTimeMs)
		if res.ErrorMessage != "" {
			if res.ErrorType != "" {
				fmt.Fprintf(&b, " %s: %s", res.ErrorType, res.ErrorMessage)
			} else {
				fmt.Fprintf(&b, " %s", res.ErrorMessage)
			}
		}
		b.WriteString("\n")
	}

	return b.String()
}
