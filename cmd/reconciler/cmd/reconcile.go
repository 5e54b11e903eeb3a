package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payroll-reconciliation-service/cmd/reconciler/config"
	"payroll-reconciliation-service/internal/reconciler"
	"payroll-reconciliation-service/internal/reporter"
	"payroll-reconciliation-service/pkg/errors"
	"payroll-reconciliation-service/pkg/logger"
)

// Flags for the reconcile command
var (
	documentsDir string
	ledgerFile   string
	outputDir    string
	outputFormat string
	reportFile   string
	showProgress bool
	showMatched  bool
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Reconcile payroll documents against the ledger workbook",
	Long: `Reconcile extracts the worker name, work period and total amount from every
PDF and text document in a folder, merges the records of each worker and
writes the totals to the matching ledger rows.

This command requires:
- A folder of payroll documents (.pdf or .txt)
- The ledger workbook (.xlsx) with a name column

The ledger file itself is never modified. The result is saved into the output
folder (the documents folder by default) as <ledger>_<YYYYMMDD>.xlsx.

Examples:
  # Basic reconciliation
  reconciler reconcile --documents-dir ./reports --ledger ledger.xlsx

  # Save the updated workbook somewhere else
  reconciler reconcile -d ./reports -l ledger.xlsx --output-dir ./out

  # Machine readable report
  reconciler reconcile -d ./reports -l ledger.xlsx --output-format json --report-file run.json

  # With a progress bar and the matched workers listed
  reconciler reconcile -d ./reports -l ledger.xlsx --progress --show-matched`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Input flags
	reconcileCmd.Flags().StringVarP(&documentsDir, "documents-dir", "d", "", "folder containing the payroll documents")
	reconcileCmd.Flags().StringVarP(&ledgerFile, "ledger", "l", "", "path to the ledger workbook (.xlsx)")
	reconcileCmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "folder for the updated workbook (default: documents folder)")

	// Report flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "report format: console, json, csv")
	reconcileCmd.Flags().StringVar(&reportFile, "report-file", "", "report file path (default: stdout)")
	reconcileCmd.Flags().BoolVar(&showMatched, "show-matched", false, "list matched workers in the console report")

	// UI flags
	reconcileCmd.Flags().BoolVar(&showProgress, "progress", false, "show a progress bar while reading documents")

	// Bind flags to viper
	viper.BindPFlag(config.KeyDocumentsDir, reconcileCmd.Flags().Lookup("documents-dir"))
	viper.BindPFlag(config.KeyLedgerFile, reconcileCmd.Flags().Lookup("ledger"))
	viper.BindPFlag(config.KeyOutputDir, reconcileCmd.Flags().Lookup("output-dir"))
	viper.BindPFlag(config.KeyOutputFormat, reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag(config.KeyReportFile, reconcileCmd.Flags().Lookup("report-file"))
	viper.BindPFlag(config.KeyShowMatched, reconcileCmd.Flags().Lookup("show-matched"))
	viper.BindPFlag(config.KeyProgress, reconcileCmd.Flags().Lookup("progress"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	documentsDir = viper.GetString(config.KeyDocumentsDir)
	ledgerFile = viper.GetString(config.KeyLedgerFile)
	outputDir = viper.GetString(config.KeyOutputDir)
	outputFormat = viper.GetString(config.KeyOutputFormat)
	reportFile = viper.GetString(config.KeyReportFile)
	showMatched = viper.GetBool(config.KeyShowMatched)
	showProgress = viper.GetBool(config.KeyProgress)

	if _, err := config.CreateReportConfig(outputFormat, showMatched); err != nil {
		return err
	}

	// Validate report file directory exists if specified
	if reportFile != "" {
		dir := filepath.Dir(reportFile)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return errors.FileError(errors.CodeDirectoryError, dir, err).
				WithSuggestion("create the report folder or choose another --report-file")
		}
	}

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	log := logger.WithComponent("cli")
	log.WithFields(logger.Fields{
		"documents_dir": documentsDir,
		"ledger":        ledgerFile,
		"output_dir":    outputDir,
		"output_format": outputFormat,
		"report_file":   reportFile,
	}).Debug("Starting reconciliation")

	// Create configurations
	serviceConfig, err := config.CreateReconcilerConfig(viper.GetViper())
	if err != nil {
		return err
	}

	reportConfig, err := config.CreateReportConfig(outputFormat, showMatched)
	if err != nil {
		return err
	}

	service, err := reconciler.NewReconciliationService(serviceConfig)
	if err != nil {
		return err
	}

	if showProgress {
		service.AddProgressCallback(newDocumentProgress(cmd.ErrOrStderr()))
	}

	result, err := service.Run(ctx, config.CreateRequest(viper.GetViper()))
	if err != nil {
		return err
	}

	// Generate report
	generator, err := reporter.NewSafeReportGenerator(reportConfig, log)
	if err != nil {
		return err
	}

	if reportFile != "" {
		if err := generator.WriteReportFile(result, reportFile); err != nil {
			return err
		}
	} else if err := generator.GenerateReportSafely(result, cmd.OutOrStdout()); err != nil {
		return err
	}

	log.WithFields(logger.Fields{
		"run_id":      result.RunID,
		"output_path": result.OutputPath,
		"matched":     result.Summary.Matching.Matched,
		"unmatched":   result.Summary.ReviewUnmatched,
		"duration":    result.Duration,
	}).Info("Reconciliation completed")

	return nil
}

// newDocumentProgress draws a bar over the extraction step. The bar is created
// once the number of documents is known.
func newDocumentProgress(w io.Writer) reconciler.ProgressCallback {
	var bar *progressbar.ProgressBar

	return func(progress *reconciler.RunProgress) {
		if progress.DocumentsTotal == 0 {
			return
		}

		if bar == nil {
			bar = progressbar.NewOptions(progress.DocumentsTotal,
				progressbar.OptionSetWriter(w),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Reading documents"),
				progressbar.OptionOnCompletion(func() {
					fmt.Fprintln(w)
				}),
			)
		}

		if err := bar.Set(progress.DocumentsRead); err != nil {
			logger.WithError(err).Debug("Failed to update progress bar")
		}
	}
}
