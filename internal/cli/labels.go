package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andywolf/csv2issues/internal/labels"
)

var labelsCmd = &cobra.Command{
	Use:   "labels [owner/repo]",
	Short: "Create the label catalog in a repository",
	Long: `Create every catalog label the repository does not have yet. Existing
labels are left untouched.

Example:
  csv2issues labels octo/hello
  csv2issues labels octo/hello --list`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLabels,
}

func init() {
	rootCmd.AddCommand(labelsCmd)

	labelsCmd.Flags().Bool("list", false, "Print the catalog and exit")
	labelsCmd.Flags().String("label-delay", "", "Pause between label creations (default 100ms)")
}

func runLabels(cmd *cobra.Command, args []string) error {
	if list, _ := cmd.Flags().GetBool("list"); list {
		for _, def := range labels.Catalog() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s #%s  %s\n", def.Name, def.Color, def.Description)
		}
		return nil
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}
	// create binds pacing.label_delay through viper; apply this command's flag directly
	if cmd.Flags().Changed("label-delay") {
		cfg.Pacing.LabelDelay, _ = cmd.Flags().GetString("label-delay")
	}
	if err = cfg.Validate(); err != nil {
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

	provisioner := labels.NewProvisioner(sess.client,
		labels.WithLogger(sess.logger),
		labels.WithDelay(policy.LabelDelay),
	)
	res := provisioner.Ensure(ctx, cfg.Repository.Owner, cfg.Repository.Name)

	fmt.Fprintln(cmd.OutOrStdout(), labelLine(res))
	if res.Interrupted {
		return ctx.Err()
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d labels could not be created", len(res.Failed))
	}
	return nil
}
