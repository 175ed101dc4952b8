package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andywolf/csv2issues/internal/cli/wizard"
	"github.com/andywolf/csv2issues/internal/events"
	"github.com/andywolf/csv2issues/internal/github"
	"github.com/andywolf/csv2issues/internal/pipeline"
	"github.com/andywolf/csv2issues/internal/report"
)

var createCmd = &cobra.Command{
	Use:   "create [owner/repo]",
	Short: "Create issues from a CSV file",
	Long: `Create one GitHub issue per CSV row.

The run checks repository access, creates any missing labels from the
built-in catalog, then creates the issues in file order. Rows without a
Title are skipped; a failed row is reported and the run continues.

Example:
  csv2issues create octo/hello --csv issues.csv
  csv2issues create octo/hello --csv issues.xlsx --dry-run
  GITHUB_TOKEN=... csv2issues create octo/hello --yes --report run.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringP("csv", "f", "", "CSV or XLSX file (default ./issues.csv, or $CSV_FILE)")
	createCmd.Flags().Bool("dry-run", false, "Show what would be created without creating anything")
	createCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	createCmd.Flags().String("report", "", "Write a YAML run report to this path")
	createCmd.Flags().String("events", "", "Append a JSONL journal of created labels and issues to this path")
	createCmd.Flags().String("label-delay", "", "Pause between label creations (default 100ms)")
	createCmd.Flags().String("issue-delay", "", "Pause after each created issue (default 1s)")
	createCmd.Flags().Int("batch-size", 0, "Pause for --batch-delay after this many issues (0 disables)")
	createCmd.Flags().String("batch-delay", "", "Pause between batches")

	_ = viper.BindPFlag("input.csv_file", createCmd.Flags().Lookup("csv"))
	_ = viper.BindPFlag("run.dry_run", createCmd.Flags().Lookup("dry-run"))
	_ = viper.BindPFlag("run.yes", createCmd.Flags().Lookup("yes"))
	_ = viper.BindPFlag("run.report", createCmd.Flags().Lookup("report"))
	_ = viper.BindPFlag("run.events", createCmd.Flags().Lookup("events"))
	_ = viper.BindPFlag("pacing.label_delay", createCmd.Flags().Lookup("label-delay"))
	_ = viper.BindPFlag("pacing.issue_delay", createCmd.Flags().Lookup("issue-delay"))
	_ = viper.BindPFlag("pacing.batch_size", createCmd.Flags().Lookup("batch-size"))
	_ = viper.BindPFlag("pacing.batch_delay", createCmd.Flags().Lookup("batch-delay"))
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	// Validate configuration after applying CLI flags
	if err = cfg.ValidateForRun(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	sess, err := newSession(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()

	opts := pipeline.Options{
		Owner:   cfg.Repository.Owner,
		Repo:    cfg.Repository.Name,
		CSVFile: cfg.Input.CSVFile,
		Tokens:  sess.tokens,
		DryRun:  cfg.Run.DryRun,
		Pacing:  policy,
		RunID:   sess.runID,
	}

	pipelineOpts := []pipeline.Option{
		pipeline.WithLogger(sess.logger),
		pipeline.WithConfirmer(&wizard.Confirmer{Yes: cfg.Run.Yes}),
	}
	if cfg.Run.Events != "" {
		sink, err := events.NewFileSink(cfg.Run.Events)
		if err != nil {
			return err
		}
		defer func() {
			if err := sink.Close(); err != nil {
				sess.logger.Warningf("Failed to close events file: %v", err)
			}
		}()
		pipelineOpts = append(pipelineOpts, pipeline.WithRecorder(sink))
		sess.logger.Debugf("Recording events to %s", sink.Path())
	}

	orchestrator := pipeline.New(opts, sess.client, pipelineOpts...)

	summary, err := orchestrator.Run(ctx)
	if errors.Is(err, pipeline.ErrAborted) {
		fmt.Fprintln(cmd.OutOrStdout(), "Aborted: no labels or issues were created")
		return nil
	}
	if err != nil {
		logHint(sess, err)
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(summary))

	if cfg.Run.Report != "" {
		if err := report.WriteYAML(cfg.Run.Report, summary); err != nil {
			return err
		}
		sess.logger.Infof("Report written to %s", cfg.Run.Report)
	}

	return nil
}

// logHint logs a remediation hint for API failures that have one.
func logHint(sess *session, err error) {
	var apiErr *github.APIError
	if errors.As(err, &apiErr) {
		if hint := apiErr.Hint(); hint != "" {
			sess.logger.Errorf("Hint: %s", hint)
		}
	}
}
