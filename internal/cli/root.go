package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andywolf/csv2issues/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "csv2issues",
	Short: "csv2issues - Bulk-create GitHub issues from a CSV file",
	Long: `csv2issues reads a CSV (or XLSX) issue list and creates one GitHub issue per row.

Before creating issues it verifies repository access and provisions a fixed
label catalog (difficulty, priority, component and type labels). Labels for
each issue are derived from the row's Labels, Difficulty, Component, Priority
and Type columns.

Example:
  csv2issues create octo/hello --csv issues.csv`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Set version for --version flag
	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .csv2issues.yaml)")
	flags.Bool("verbose", false, "enable verbose output")
	flags.String("token", "", "GitHub token (default $GITHUB_TOKEN)")
	flags.String("base-url", "", "GitHub API base URL (for GitHub Enterprise)")
	flags.String("timeout", "", "per-request timeout (default 30s)")
	flags.String("log-format", "", "log format: text or json")
	flags.String("gcp-project", "", "also send logs to Cloud Logging in this project")

	_ = viper.BindPFlag("logging.verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("github.token", flags.Lookup("token"))
	_ = viper.BindPFlag("github.base_url", flags.Lookup("base-url"))
	_ = viper.BindPFlag("github.timeout", flags.Lookup("timeout"))
	_ = viper.BindPFlag("logging.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("logging.gcp_project", flags.Lookup("gcp-project"))
}

func initConfig() {
	// .env is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Warning: failed to load .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".csv2issues")
	}

	viper.SetEnvPrefix("CSV2ISSUES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Conventional variable names
	_ = viper.BindEnv("github.token", "CSV2ISSUES_GITHUB_TOKEN", "GITHUB_TOKEN")
	_ = viper.BindEnv("input.csv_file", "CSV2ISSUES_INPUT_CSV_FILE", "CSV_FILE")

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("logging.verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else if cfgFile != "" {
		fmt.Fprintln(os.Stderr, "Error reading config file:", err)
		os.Exit(1)
	}
}
