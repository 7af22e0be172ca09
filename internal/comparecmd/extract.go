package comparecmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/lehigh-university-libraries/extractcompare/internal/compare"
	"github.com/lehigh-university-libraries/extractcompare/internal/config"
	"github.com/lehigh-university-libraries/extractcompare/internal/producers"
	"github.com/lehigh-university-libraries/extractcompare/internal/providers"
	"github.com/lehigh-university-libraries/extractcompare/internal/record"
	"github.com/lehigh-university-libraries/extractcompare/internal/report"
)

type extractOptions struct {
	document      string
	documentID    string
	pages         int
	pageImages    []string
	producers     []config.ProducerConfig
	runner        config.RunnerConfig
	output        string
	compare       bool
	report        string
	compareConfig compare.Config
}

// newProvider is swapped in tests
var newProvider = producers.NewProvider

func executeExtract(ctx context.Context, w io.Writer, opts extractOptions) error {
	doc, err := producers.LoadDocument(opts.document, opts.pages)
	if err != nil {
		return err
	}
	if opts.documentID != "" {
		doc.ID = opts.documentID
	}
	for _, page := range opts.pageImages {
		if err := doc.AddPage(page); err != nil {
			return err
		}
	}
	if len(opts.pageImages) > 0 && doc.PageCount == 0 {
		doc.PageCount = len(opts.pageImages)
	}

	prods, err := buildProducers(opts.producers)
	if err != nil {
		return err
	}

	runner := producers.Runner{
		Concurrency:    opts.runner.Concurrency,
		DefaultTimeout: opts.runner.Timeout,
	}
	records := runner.Run(ctx, doc, prods)

	if err := saveRecords(opts.output, record.Document{DocumentID: doc.ID, Records: records}); err != nil {
		return err
	}
	fmt.Fprintf(w, "Records saved to: %s\n", opts.output)

	if !opts.compare {
		return nil
	}

	rep, err := compare.Compare(doc.ID, records, opts.compareConfig)
	if err != nil {
		return err
	}
	report.PrintSummary(w, rep)

	if opts.report != "" {
		if err := report.Save(opts.report, []*compare.Report{rep}); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Fprintf(w, "\nReport saved to: %s\n", opts.report)
	}
	return nil
}

func buildProducers(cfgs []config.ProducerConfig) ([]producers.Producer, error) {
	seen := make(map[string]bool, len(cfgs))
	out := make([]producers.Producer, 0, len(cfgs))
	for _, c := range cfgs {
		if seen[c.ID] {
			return nil, fmt.Errorf("producer %q configured twice", c.ID)
		}
		seen[c.ID] = true

		provider, err := newProvider(c.Provider)
		if err != nil {
			return nil, fmt.Errorf("producer %s: %w", c.ID, err)
		}
		model := c.Model
		if model == "" {
			model = providers.DefaultModel(c.Provider)
		}

		slog.Debug("Configured producer", "producer", c.ID, "provider", c.Provider, "model", model)
		out = append(out, producers.Producer{
			ID:      c.ID,
			Timeout: c.Timeout,
			Run: producers.ModelProducer(provider, providers.Config{
				Model:       model,
				Temperature: c.Temperature,
			}),
		})
	}
	return out, nil
}

func saveRecords(path string, doc record.Document) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return record.SaveParquet(path, doc.Records)
	case ".json":
		return record.SaveJSON(path, doc)
	default:
		return fmt.Errorf("unsupported records format %q (expected .json or .parquet)", filepath.Ext(path))
	}
}
