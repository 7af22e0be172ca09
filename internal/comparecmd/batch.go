package comparecmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
	"github.com/lehigh-university-libraries/extractcompare/internal/report"
)

func executeBatch(ctx context.Context, w io.Writer, input, output string, concurrency int, cfg compare.Config) error {
	slog.Info("Starting batch comparison", "input", input, "concurrency", concurrency)

	docs, err := record.LoadDocuments(input)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	if len(docs) == 0 {
		return fmt.Errorf("no records found in %s", input)
	}
	slog.Info("Records loaded", "documents", len(docs))

	reports, err := compareAll(ctx, docs, concurrency, cfg)
	if err != nil {
		return err
	}

	report.PrintBatchSummary(w, report.Aggregate(reports))

	if output != "" {
		slog.Info("Saving reports", "output", output)
		if err := report.Save(output, reports); err != nil {
			return fmt.Errorf("failed to save reports: %w", err)
		}
		fmt.Fprintf(w, "\nReports saved to: %s\n", output)
	}
	return nil
}

// compareAll compares documents in parallel, keeping input order. The first
// error stops documents that have not started yet.
func compareAll(ctx context.Context, docs []record.Document, concurrency int, cfg compare.Config) ([]*compare.Report, error) {
	reports := make([]*compare.Report, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slog.Debug("Comparing document", "document", doc.DocumentID, "progress", fmt.Sprintf("%d/%d", i+1, len(docs)))

			rep, err := compare.Compare(doc.DocumentID, doc.Records, cfg)
			if err != nil {
				return fmt.Errorf("document %s: %w", doc.DocumentID, err)
			}
			reports[i] = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}
