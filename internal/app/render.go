package app

import (
	"fmt"
	"io"

	"github.com/vk/protocheck/internal/model"
)

// renderReport writes the stable text form of a report. Findings arrive
// already sorted, so identical analyses render identically.
func renderReport(w io.Writer, r *model.Report) {
	if len(r.Findings) == 0 {
		fmt.Fprintln(w, "No failures predicted.")
	} else {
		fmt.Fprintf(w, "%d finding(s):\n", len(r.Findings))
		for _, f := range r.Findings {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}

	for _, note := range r.Notes {
		fmt.Fprintf(w, "note: %s\n", note)
	}

	coverage := "complete"
	if !r.Complete {
		coverage = "partial; the absence of a finding is not a guarantee"
	}
	fmt.Fprintf(w, "Coverage: %s (%d nodes explored).\n", coverage, r.ExploredNodes)
}
