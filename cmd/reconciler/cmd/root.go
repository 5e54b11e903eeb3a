package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payroll-reconciliation-service/cmd/reconciler/config"
	"payroll-reconciliation-service/pkg/errors"
	"payroll-reconciliation-service/pkg/logger"
)

var (
	cfgFile   string
	verbose   bool
	logFormat string
	logFile   string
	version   = "dev"
	commit    = "unknown"
	date      = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Payroll document reconciliation tool",
	Long: `Reconciler reads the payroll reports in a folder, totals them per worker,
matches the workers against the name column of an xlsx ledger and writes the
totals back. Workers without a ledger row land on a review sheet, and the
updated workbook is saved as a dated copy next to the documents.

Examples:
  reconciler reconcile --documents-dir ./reports --ledger ledger.xlsx
  reconciler reconcile -d ./reports -l ledger.xlsx --output-format json --report-file run.json
  reconciler version`,
	Version:           getVersionString(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupLogging,
}

// versionCmd prints the build information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reconciler %s\n", getVersionString())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")

	// Bind flags to viper
	viper.BindPFlag(config.KeyVerbose, rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag(config.KeyLogFormat, rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag(config.KeyLogFile, rootCmd.PersistentFlags().Lookup("log-file"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	config.SetDefaults(viper.GetViper())
	config.ConfigureEnv(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// setupLogging reads the config file, if any, and installs the global logger
// before any command runs.
func setupLogging(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		if err := viper.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return errors.ConfigurationError(errors.CodeMissingConfig, "config", cfgFile, err).
					WithSuggestion(fmt.Sprintf("check the --config path: %s does not exist", cfgFile))
			}
			return errors.ConfigurationError(errors.CodeInvalidConfig, "config", cfgFile, err).
				WithSuggestion("check that the config file is valid YAML, JSON or TOML")
		}
	}

	logConfig := logger.ConfigFromOptions(
		viper.GetBool(config.KeyVerbose),
		viper.GetString(config.KeyLogFormat),
		viper.GetString(config.KeyLogFile),
	)
	if err := logConfig.Validate(); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyLogFormat, logConfig.Format, err)
	}

	log, err := logger.NewLogger(logConfig)
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyLogFile, logConfig.File, err)
	}
	logger.SetGlobalLogger(log)

	if cfgFile != "" {
		log.WithField("config_file", viper.ConfigFileUsed()).Debug("Using config file")
	}

	return nil
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
