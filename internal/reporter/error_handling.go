package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"payroll-reconciliation-service/internal/reconciler"
	"payroll-reconciliation-service/pkg/errors"
	"payroll-reconciliation-service/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with logging and fallbacks. When the
// requested format fails the report is written as console text instead; when a
// report file cannot be written a backup file next to it is tried.
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"output-format",
			config,
			err,
		).WithSuggestion("use one of: console, json, csv")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely writes the report, falling back when the primary attempt fails
func (srg *SafeReportGenerator) GenerateReportSafely(result *reconciler.RunResult, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Starting report generation")

	if result == nil {
		return errors.InternalError(errors.CodeUnexpectedError, "report generation",
			fmt.Errorf("run result is nil"))
	}

	if writer == nil {
		return errors.InternalError(errors.CodeUnexpectedError, "report generation",
			fmt.Errorf("report writer is nil"))
	}

	err := srg.GenerateReport(result, writer)
	if err == nil {
		srg.logger.WithField("run_id", result.RunID).Debug("Report generation completed")
		return nil
	}

	srg.logger.WithError(err).Warn("Primary report generation failed, attempting fallback")

	if srg.shouldAttemptOutputFallback(err, writer) {
		return srg.generateWithOutputFallback(result, writer, err)
	}

	if srg.config.Format != FormatConsole {
		return srg.generateWithFormatFallback(result, writer, err)
	}

	return srg.wrapGenerationError(err)
}

// generateWithFormatFallback writes the report as console text
func (srg *SafeReportGenerator) generateWithFormatFallback(result *reconciler.RunResult, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: Report generated in fallback format due to error with requested format\n")
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fallbackGenerator.GenerateReport(result, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}

	return nil
}

// shouldAttemptOutputFallback reports whether writer is a named file that failed for a file system reason
func (srg *SafeReportGenerator) shouldAttemptOutputFallback(err error, writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok || file.Name() == "" || file == os.Stdout || file == os.Stderr {
		return false
	}
	return isFileError(err)
}

// generateWithOutputFallback writes the report to a backup file next to the original
func (srg *SafeReportGenerator) generateWithOutputFallback(result *reconciler.RunResult, writer io.Writer, originalErr error) error {
	file := writer.(*os.File)
	originalPath := file.Name()
	backupPath := generateBackupPath(originalPath)

	srg.logger.WithFields(logger.Fields{
		"original_file": originalPath,
		"backup_file":   backupPath,
	}).Info("Attempting output fallback")

	backupFile, err := os.Create(backupPath)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}
	defer backupFile.Close()

	if err := srg.GenerateReport(result, backupFile); err != nil {
		return errors.FileError(errors.CodeWriteFailed, backupPath,
			fmt.Errorf("both primary and backup output failed: primary=%v, backup=%v", originalErr, err))
	}

	srg.logger.WithField("backup_file", backupPath).Warn("Report saved to backup file")
	return nil
}

// wrapGenerationError wraps generation errors with context
func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return errors.InternalError(
		errors.CodeUnexpectedError,
		"report generation",
		err,
	).WithSuggestion("check the output destination and report format settings")
}

// WriteReportFile writes the report to path, creating or truncating it
func (srg *SafeReportGenerator) WriteReportFile(result *reconciler.RunResult, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.FileError(errors.CodeWriteFailed, path, err)
	}

	genErr := srg.GenerateReportSafely(result, file)
	closeErr := file.Close()

	if genErr != nil {
		return genErr
	}
	if closeErr != nil {
		return errors.FileError(errors.CodeWriteFailed, path, closeErr)
	}

	srg.logger.WithField("report_file", path).Info("Report written")
	return nil
}

func generateBackupPath(originalPath string) string {
	dir := filepath.Dir(originalPath)
	base := filepath.Base(originalPath)
	ext := filepath.Ext(base)
	name := strings.TrimSuffix(base, ext)

	return filepath.Join(dir, fmt.Sprintf("%s_backup%s", name, ext))
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}

func isFileError(err error) bool {
	if err == nil {
		return false
	}
	if os.IsPermission(err) || os.IsNotExist(err) || os.IsExist(err) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "no space left") ||
		strings.Contains(msg, "disk full") ||
		strings.Contains(msg, "device full")
}
