package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Rana718/seriesgen/internal/config"
	"github.com/Rana718/seriesgen/internal/engine"
	"github.com/Rana718/seriesgen/internal/output"
	"github.com/Rana718/seriesgen/internal/pipeline"
	"github.com/Rana718/seriesgen/internal/population"
	"github.com/Rana718/seriesgen/internal/spec"
)

var (
	specFile      string
	userInputFile string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate the dataset series",
	Long: `Generate one dataset per period from a specification and a user input file.

Period 1 is produced from the specification as is. Every later period mixes
new entities with entities drawn from the reference population, and writes
dataset_<n>.csv together with the new and existing specifications used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadUserInput(userInputFile)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		base, err := spec.Load(specFile)
		if err != nil {
			return err
		}

		report, err := runSeries(cmd.Context(), cfg, base)
		if err != nil {
			color.Red("❌ Series generation failed")
			return err
		}

		printReport(cmd.OutOrStdout(), report, cfg)
		return nil
	},
}

func runSeries(ctx context.Context, cfg *config.Config, base *spec.Spec) (*pipeline.Report, error) {
	fraction, err := cfg.Fraction()
	if err != nil {
		return nil, err
	}
	cadence, err := cfg.Cadence()
	if err != nil {
		return nil, err
	}
	dbURL, err := cfg.GetDatabaseURL()
	if err != nil {
		return nil, err
	}

	store, err := population.Open(ctx, cfg.Database.Provider, dbURL, logger)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	eng, err := newEngine(cfg, store)
	if err != nil {
		return nil, err
	}
	sink, err := newSink(ctx, cfg)
	if err != nil {
		return nil, err
	}

	orchestrator, err := pipeline.New(pipeline.RunConfig{
		Base:          base,
		DateColumns:   cfg.DateColumns,
		StaticColumns: cfg.StaticColumns,
		Cadence:       cadence,
		Periods:       cfg.NumDatasets,
		NewFraction:   fraction,
		LinkedColumns: cfg.LinkedColumns,
		ShuffleSeed:   cfg.ShuffleSeed,
		KeepReference: cfg.KeepReference,
	}, eng, store, sink, logger)
	if err != nil {
		return nil, err
	}
	return orchestrator.Run(ctx)
}

func newEngine(cfg *config.Config, store *population.Store) (engine.Engine, error) {
	switch cfg.Engine.Kind {
	case config.EngineExec:
		return engine.NewExec(cfg.Engine.Command, logger)
	default:
		return engine.NewBuiltin(store, logger), nil
	}
}

func newSink(ctx context.Context, cfg *config.Config) (output.Sink, error) {
	dir, err := output.NewDir(cfg.OutputDir, logger)
	if err != nil {
		return nil, err
	}
	if cfg.S3.Bucket == "" {
		return dir, nil
	}
	logger.Info("uploading artifacts", zap.String("bucket", cfg.S3.Bucket), zap.String("prefix", cfg.S3.Prefix))
	return output.NewS3(ctx, dir, output.S3Config{
		Bucket:       cfg.S3.Bucket,
		Prefix:       cfg.S3.Prefix,
		Region:       cfg.S3.Region,
		Endpoint:     cfg.S3.Endpoint,
		UsePathStyle: cfg.S3.UsePathStyle,
	}, logger)
}

func printReport(w io.Writer, report *pipeline.Report, cfg *config.Config) {
	green := color.New(color.FgGreen, color.Bold)
	cyan := color.New(color.FgCyan)

	green.Fprintf(w, "✅ Generated %d datasets in %s\n", len(report.Periods), cfg.OutputDir)
	for _, p := range report.Periods {
		cyan.Fprintf(w, "   %s", output.DatasetName(p.Period))
		fmt.Fprintf(w, "  %d rows (%d new, %d existing)", p.Total, p.New, p.Existing)
		for _, win := range p.Windows {
			fmt.Fprintf(w, "  %s %s..%s", win.Column, win.From, win.To)
		}
		fmt.Fprintln(w)
	}
	if cfg.KeepReference {
		color.New(color.FgYellow).Fprintf(w, "💡 Reference population kept in %s\n", report.ReferenceTable)
	}
}

func init() {
	rootCmd.AddCommand(generateCmd)
	generateCmd.Flags().StringVarP(&specFile, "specification", "s", "", "Path to the base specification (YAML)")
	generateCmd.Flags().StringVarP(&userInputFile, "user-input", "u", "", "Path to the user input file (YAML)")
	generateCmd.MarkFlagRequired("specification")
}
