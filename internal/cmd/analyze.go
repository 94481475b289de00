package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/config"
	"github.com/stocklens/stocklens/internal/imaging"
	"github.com/stocklens/stocklens/internal/observability"
	"github.com/stocklens/stocklens/internal/output"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Check an image against the stock policies",
	Long: `Send an image for policy review and print the four verdicts.

When copyright, platform, depicted-persons and minors checks all pass, a
title, description and eight tags are drafted for stock submission.

Examples:
  stocklens analyze harbor.jpg
  stocklens analyze harbor.jpg --json
  stocklens analyze harbor.jpg -o markdown --out review.md`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("output-format", "o", "table", "Output format: table, json, markdown")
	analyzeCmd.Flags().Bool("json", false, "Shorthand for --output-format=json")
	analyzeCmd.Flags().String("out", "", "Write the report to a file instead of stdout")
	analyzeCmd.Flags().String("model", "", "Override the review model")
	analyzeCmd.Flags().String("prompt", "", "Prompt slug to review with (see 'stocklens prompts')")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}
	outPath, _ := cmd.Flags().GetString("out")
	model, _ := cmd.Flags().GetString("model")
	promptSlug, _ := cmd.Flags().GetString("prompt")

	cfg, err := currentConfig()
	if err != nil {
		return err
	}

	sink, err := openSink(outPath)
	if err != nil {
		return err
	}
	defer sink.close() // nolint:errcheck // best-effort close of the report file

	return analyzeImage(cmd.Context(), cfg, args[0], analyzeOptions{
		format:     format,
		model:      model,
		promptSlug: promptSlug,
		logger:     observability.CLILogger,
	}, sink.writer)
}

type analyzeOptions struct {
	format     output.Format
	model      string
	promptSlug string
	logger     *logging.Logger
}

func analyzeImage(ctx context.Context, cfg *config.Config, path string, opts analyzeOptions, w io.Writer) error {
	asset, err := imaging.Open(path, imaging.Options{MaxBytes: cfg.Upload.MaxBytes})
	if err != nil {
		return err
	}
	if opts.logger != nil {
		opts.logger.Debug("Image loaded",
			zap.String("image", asset.Name),
			zap.String("mime_type", asset.MIMEType),
			zap.Int("width", asset.Width),
			zap.Int("height", asset.Height),
			zap.String("fingerprint", asset.Fingerprint))
	}

	svc, err := newServices(cfg)
	if err != nil {
		return err
	}
	result, err := svc.analyzer(opts.promptSlug, opts.model, opts.logger).Analyze(ctx, asset)
	if err != nil {
		return err
	}

	rendered, err := output.NewFormatter(opts.format).FormatReport(&output.Report{Image: asset, Result: result})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, rendered)
	return err
}
