// Package comparecmd implements the compare, batch and extract commands.
package comparecmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/extractcompare/internal/config"
)

// NewCompareCmd creates the compare command. cfg is filled in by the root
// command before RunE is called.
func NewCompareCmd(cfg *config.Config) *cobra.Command {
	var input string
	var documentID string
	var output string
	var flags compareFlags

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the extraction records of one document",
		Long: `Scores and ranks every producer's extraction record for a document, picks
a winner and fuses the successful records into an ensemble result.

Records are read from a JSON, JSONL, YAML or Parquet file. Failed producers
are listed in the ranking but never contribute to the ensemble.`,
		Example: `  # Compare records with the default weights and best_of
  extractcompare compare --input records.json

  # Fuse the two best records and save the report as a workbook
  extractcompare compare --input records.json --strategy weighted_concat --top-k 2 --output report.xlsx

  # Favour completeness
  extractcompare compare --input records.yaml --weights completeness=0.5,text=0.1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			compareCfg, err := flags.apply(cmd, cfg)
			if err != nil {
				return err
			}
			return executeCompare(cmd.OutOrStdout(), input, documentID, output, compareCfg)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Records file (.json, .jsonl, .yaml or .parquet)")
	cmd.Flags().StringVar(&documentID, "document-id", "", "Document to compare when the file holds several")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Save the report (.json, .yaml, .csv, .xlsx or .parquet)")
	flags.register(cmd)

	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// NewBatchCmd creates the batch command
func NewBatchCmd(cfg *config.Config) *cobra.Command {
	var input string
	var output string
	var concurrency int
	var flags compareFlags

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Compare every document in a records file",
		Long: `Groups the records of a file by document id, compares each document in
parallel and prints aggregate statistics for every producer.`,
		Example: `  # Compare a parquet export of many documents
  extractcompare batch --input records.parquet --output reports.parquet

  # Limit parallelism and use consensus merging
  extractcompare batch --input records.jsonl --concurrency 2 --strategy consensus`,
		RunE: func(cmd *cobra.Command, args []string) error {
			compareCfg, err := flags.apply(cmd, cfg)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = cfg.Runner.Concurrency
			}
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1 (got %d)", concurrency)
			}
			return executeBatch(cmd.Context(), cmd.OutOrStdout(), input, output, concurrency, compareCfg)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "Records file (.json, .jsonl, .yaml or .parquet)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Save all reports (.json, .yaml, .csv, .xlsx or .parquet)")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 4, "Documents compared in parallel")
	flags.register(cmd)

	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// NewExtractCmd creates the extract command
func NewExtractCmd(cfg *config.Config) *cobra.Command {
	var opts extractOptions
	var producerSpecs []string
	var timeout time.Duration
	var flags compareFlags

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run model producers against a document",
		Long: `Runs every configured producer against a document in parallel and writes
one extraction record per producer. A producer that errors, panics or runs
out of time yields a failed record; it never stops the others.

Producers call multimodal models (ollama, openai or gemini). Page images are
sent when the document is an image or pages are given with --page-image,
otherwise the document text is sent with the prompt.`,
		Example: `  # Two producers on a scanned page, then compare them
  extractcompare extract --document page.png \
    --producer llava=ollama:llava --producer gpt=openai:gpt-4o --compare

  # Multi-page document supplied as page images
  extractcompare extract --document scan.pdf --pages 3 \
    --page-image p1.png --page-image p2.png --page-image p3.png \
    --producer gemini --output records.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			producerCfgs := cfg.Producers
			if len(producerSpecs) > 0 {
				producerCfgs = nil
				for _, spec := range producerSpecs {
					p, err := config.ParseProducer(spec)
					if err != nil {
						return err
					}
					producerCfgs = append(producerCfgs, p)
				}
			}
			if len(producerCfgs) == 0 {
				return fmt.Errorf("no producers configured: pass --producer id=provider[:model] or set producers in the config file")
			}
			opts.producers = producerCfgs

			opts.runner = cfg.Runner
			if cmd.Flags().Changed("timeout") {
				opts.runner.Timeout = timeout
			}

			if opts.compare {
				compareCfg, err := flags.apply(cmd, cfg)
				if err != nil {
					return err
				}
				opts.compareConfig = compareCfg
			}
			return executeExtract(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.document, "document", "d", "", "Source document (image or text file)")
	cmd.Flags().StringVar(&opts.documentID, "document-id", "", "Document id (defaults to the file name)")
	cmd.Flags().IntVar(&opts.pages, "pages", 0, "Expected page count")
	cmd.Flags().StringSliceVar(&opts.pageImages, "page-image", nil, "Page image, repeat in page order")
	cmd.Flags().StringArrayVarP(&producerSpecs, "producer", "p", nil, "Producer as id=provider[:model], repeatable")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Time budget per producer (defaults to runner.timeout)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "records.json", "Records file to write (.json or .parquet)")
	cmd.Flags().BoolVar(&opts.compare, "compare", false, "Compare the records once every producer has finished")
	cmd.Flags().StringVar(&opts.report, "report", "", "Save the comparison report (with --compare)")
	flags.register(cmd)

	_ = cmd.MarkFlagRequired("document")
	return cmd
}
