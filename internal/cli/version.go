package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andywolf/csv2issues/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print detailed version information including commit hash, build date and the User-Agent sent to GitHub.`,
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			fmt.Fprintln(cmd.OutOrStdout(), version.Full())
			fmt.Fprintf(cmd.OutOrStdout(), "  User-Agent: %s\n", version.UserAgent())
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		}
	},
}

func init() {
	versionCmd.Flags().BoolP("verbose", "v", false, "print verbose version information")
	rootCmd.AddCommand(versionCmd)
}
