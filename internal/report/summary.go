package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
)

// PrintSummary prints a human-readable summary of one comparison
func PrintSummary(w io.Writer, r *compare.Report) {
	fmt.Fprintln(w, "\n"+strings.Repeat("=", 70))
	fmt.Fprintln(w, "EXTRACTION COMPARISON SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 70))
	fmt.Fprintf(w, "Document: %s\n", r.DocumentID)
	fmt.Fprintf(w, "Report: %s\n", r.ReportID)
	fmt.Fprintf(w, "Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "RANKINGS")
	fmt.Fprintln(w, strings.Repeat("-", 70))
	fmt.Fprintf(w, "%-5s %-20s %-8s %7s %8s %7s %6s %9s\n",
		"RANK", "PRODUCER", "STATUS", "SCORE", "WORDS", "COMPL", "ERRS", "TIME(ms)")
	for _, rk := range r.Rankings {
		fmt.Fprintf(w, "%-5d %-20s %-8s %7.3f %8d %7.2f %6d %9d\n",
			rk.Rank, truncate(rk.ProducerID, 20), rk.Status, rk.Score,
			rk.Metrics.WordCount, rk.Metrics.CompletenessRatio,
			rk.Metrics.ErrorCount, rk.Metrics.ProcessingTimeMs)
		for _, msg := range rk.ErrorMessages {
			fmt.Fprintf(w, "      ! %s\n", msg)
		}
	}
	fmt.Fprintln(w)

	if id, ok := r.Winner(); ok {
		fmt.Fprintf(w, "Winner: %s\n", id)
	} else {
		fmt.Fprintln(w, "Winner: none (all producers failed)")
	}

	if res := r.EnsembleResult; res != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "ENSEMBLE")
		fmt.Fprintln(w, strings.Repeat("-", 70))
		fmt.Fprintf(w, "Strategy: %s", res.Strategy)
		if res.Degraded {
			fmt.Fprintf(w, " (requested %s, degraded)", res.RequestedStrategy)
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Contributors: %s\n", strings.Join(res.Contributors, ", "))
		fmt.Fprintf(w, "Status: %s, %d characters, %d provenance spans\n", res.Status, len(res.Text), len(res.Provenance))
		for _, msg := range res.ErrorMessages {
			fmt.Fprintf(w, "  ! %s\n", msg)
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "RECOMMENDATIONS")
		fmt.Fprintln(w, strings.Repeat("-", 70))
		for _, rec := range r.Recommendations {
			fmt.Fprintf(w, "- %s\n", rec)
		}
	}
	fmt.Fprintln(w, strings.Repeat("=", 70))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
