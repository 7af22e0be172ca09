package cmd

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/extractcompare/internal/comparecmd"
	"github.com/lehigh-university-libraries/extractcompare/internal/config"
)

func NewRootCmd() *cobra.Command {
	var configPath string
	var verbose bool
	var logFormat string

	// filled in before any subcommand runs
	cfg := &config.Config{}

	cmd := &cobra.Command{
		Use:   "extractcompare",
		Short: "Compare document extraction results and fuse them into one",
		Long: `Extractcompare scores the results of several document extraction producers
(OCR engines, PDF parsers, multimodal models) for the same document, ranks
them, and fuses the best of them into an ensemble result with provenance.

Settings come from an optional YAML config file and EXTRACTCOMPARE_*
environment variables; a .env file in the working directory is loaded first.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if verbose {
				loaded.Log.Level = "debug"
			}
			if cmd.Flags().Changed("log-format") {
				loaded.Log.Format = logFormat
			}

			logger, err := loaded.Log.Logger(os.Stderr)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			*cfg = *loaded
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file")
	cmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text or json)")

	// Add subcommands
	cmd.AddCommand(comparecmd.NewCompareCmd(cfg))
	cmd.AddCommand(comparecmd.NewBatchCmd(cfg))
	cmd.AddCommand(comparecmd.NewExtractCmd(cfg))
	cmd.AddCommand(newServeCmd(cfg))

	return cmd
}
