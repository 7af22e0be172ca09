package comparecmd

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
	"github.com/lehigh-university-libraries/extractcompare/internal/report"
)

func executeCompare(w io.Writer, input, documentID, output string, cfg compare.Config) error {
	slog.Info("Loading records", "input", input)
	docs, err := record.LoadDocuments(input)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	doc, err := pickDocument(docs, documentID)
	if err != nil {
		return err
	}

	rep, err := compare.Compare(doc.DocumentID, doc.Records, cfg)
	if err != nil {
		return err
	}

	report.PrintSummary(w, rep)

	if output != "" {
		slog.Info("Saving report", "output", output)
		if err := report.Save(output, []*compare.Report{rep}); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Fprintf(w, "\nReport saved to: %s\n", output)
	}
	return nil
}

// pickDocument selects the document to compare. Without an id the file
// must hold exactly one document.
func pickDocument(docs []record.Document, documentID string) (record.Document, error) {
	if len(docs) == 0 {
		return record.Document{}, fmt.Errorf("no records found")
	}
	if documentID == "" {
		if len(docs) > 1 {
			ids := make([]string, len(docs))
			for i, d := range docs {
				ids[i] = d.DocumentID
			}
			return record.Document{}, fmt.Errorf("input holds %d documents (%s); pass --document-id or use batch",
				len(docs), strings.Join(ids, ", "))
		}
		return docs[0], nil
	}
	for _, d := range docs {
		if d.DocumentID == documentID {
			return d, nil
		}
	}
	return record.Document{}, fmt.Errorf("document %q not found in input", documentID)
}
