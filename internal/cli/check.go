package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andywolf/csv2issues/internal/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check [owner/repo]",
	Short: "Verify that the token can access a repository",
	Long: `Run only the repository access probe (GET /repos/{owner}/{repo}).

Example:
  GITHUB_TOKEN=... csv2issues check octo/hello`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	sess, err := newSession(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer sess.Close()

	sess.logger.Infof("Checking repository access...")
	repo, err := sess.client.GetRepository(ctx, cfg.Repository.Owner, cfg.Repository.Name)
	if err != nil {
		err = &pipeline.AccessError{Repository: cfg.FullName(), Err: err}
		logHint(sess, err)
		return err
	}

	visibility := "public"
	if repo.Private {
		visibility = "private"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s Repository access confirmed: %s (%s)\n", okStyle.Render("✓"), repo.FullName, visibility)
	return nil
}
