// Package report turns warm results into console output, a results file and
// the process exit status.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	werrors "github.com/williampepple1/isr-cache-warmer/internal/errors"
	"github.com/williampepple1/isr-cache-warmer/pkg/models"
)

// Summarize folds the ordered results into a summary.
func Summarize(results []models.WarmResult, elapsed time.Duration) models.RunSummary {
	summary := models.RunSummary{Total: len(results), Elapsed: elapsed}
	for _, r := range results {
		if r.Success {
			summary.Success++
		} else {
			summary.Failure++
		}
	}
	return summary
}

// ExitCode is non-zero when any item failed. An empty run succeeds.
func ExitCode(summary models.RunSummary) int {
	if summary.Failure > 0 {
		return werrors.ExitFailure
	}
	return werrors.ExitSuccess
}

// PrintSummary writes the final summary table.
func PrintSummary(w io.Writer, summary models.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle("Cache warming summary")

	t.AppendRow(table.Row{"Total", summary.Total})
	t.AppendRow(table.Row{"Success", summary.Success})
	t.AppendRow(table.Row{"Failed", summary.Failure})
	t.AppendRow(table.Row{"Duration", summary.Elapsed.Round(time.Millisecond)})
	t.AppendRow(table.Row{"Average per page", summary.Average().Round(time.Millisecond)})
	t.Render()

	if summary.Failure > 0 {
		_, _ = fmt.Fprintf(w, "%d of %d pages failed to warm\n", summary.Failure, summary.Total)
	} else {
		_, _ = fmt.Fprintln(w, "All pages warmed successfully")
	}
}
