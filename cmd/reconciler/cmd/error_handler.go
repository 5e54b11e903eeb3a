package cmd

import (
	goerrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/viper"

	"payroll-reconciliation-service/cmd/reconciler/config"
	"payroll-reconciliation-service/pkg/errors"
	"payroll-reconciliation-service/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	logger  logger.Logger
	verbose bool
	out     io.Writer
}

// NewCLIErrorHandler creates a new CLI error handler
func NewCLIErrorHandler() *CLIErrorHandler {
	return &CLIErrorHandler{
		logger:  logger.WithComponent("cli"),
		verbose: viper.GetBool(config.KeyVerbose),
		out:     os.Stderr,
	}
}

// HandleError prints err for the user and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	// Handle ReconcilerError with detailed information
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		if reconcilerErr.Category == errors.CategoryInput {
			return h.handleNothingSelected(reconcilerErr)
		}
		h.logger.WithError(err).Error("Command failed")
		return h.handleReconcilerError(reconcilerErr)
	}

	h.logger.WithError(err).Error("Command failed")
	return h.handleGenericError(err)
}

// handleNothingSelected reports an aborted run. Nothing was read or written,
// so this is not a failure.
func (h *CLIErrorHandler) handleNothingSelected(err *errors.ReconcilerError) int {
	h.logger.WithField("reason", err.Message).Info("Nothing to reconcile")

	fmt.Fprintf(h.out, "Nothing to reconcile: %s\n", err.Message)
	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "Suggestion: %s\n", err.Suggestion)
	}

	return err.GetExitCode()
}

// handleReconcilerError handles ReconcilerError with detailed context
func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	// Print the main error message
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	// Add context information if available, in a stable order
	if len(err.Context) > 0 {
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		fmt.Fprintf(h.out, "\nContext:\n")
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	// Add suggestion if available
	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	// Add category-specific help
	fmt.Fprintf(h.out, "\n%s\n", getCategoryHelp(err.Category))

	// Show underlying error in verbose mode
	if h.verbose && err.Cause != nil {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// handleGenericError handles non-ReconcilerError types
func (h *CLIErrorHandler) handleGenericError(err error) int {
	var pathErr *fs.PathError
	if goerrors.As(err, &pathErr) {
		fmt.Fprint(h.out, FormatFileError(pathErr.Path, pathErr.Err))
		return 2
	}

	if isDiskFullError(err) {
		fmt.Fprintf(h.out, "Error: Insufficient disk space\n")
		fmt.Fprintf(h.out, "Suggestion: Free up disk space and try again\n")
		return 2
	}

	// Usage errors from cobra and anything unexpected
	fmt.Fprintf(h.out, "Error: %v\n", err)
	fmt.Fprintf(h.out, "Run 'reconciler --help' for usage.\n")

	return 1
}

// getCategoryHelp returns category-specific help text
func getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check that the documents folder and the ledger workbook exist
• Make sure the ledger is not open in a spreadsheet program
• Ensure you can write to the output folder
• Use absolute paths if the command runs from another folder`

	case errors.CategoryExtraction:
		return `Ledger layout help:
• The ledger must be an .xlsx workbook
• The first row of the ledger sheet holds the column headers
• The name, period and amount columns must all be present
• Header names can be changed under ledger.columns in the config file`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and arguments
• Verify configuration file syntax if using --config
• Use 'reconciler reconcile --help' to see all available options
• Try running with default settings first`

	case errors.CategoryReconciliation:
		return `Reconciliation error help:
• The run was stopped before the workbook was saved
• The original ledger was not modified
• Run again with --verbose to see the failing step`

	default:
		return `For more help:
• Use 'reconciler --help' for general help
• Use 'reconciler reconcile --help' for command-specific help
• Run with --verbose for the underlying error`
	}
}

func isDiskFullError(err error) bool {
	if goerrors.Is(err, syscall.ENOSPC) {
		return true
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "no space left") ||
		strings.Contains(errStr, "disk full") ||
		strings.Contains(errStr, "device full")
}

// FormatFileError formats file-related errors with helpful information
func FormatFileError(filePath string, err error) string {
	baseName := filepath.Base(filePath)
	dir := filepath.Dir(filePath)

	var message strings.Builder
	message.WriteString(fmt.Sprintf("Error with file '%s':\n", baseName))
	message.WriteString(fmt.Sprintf("  Path: %s\n", filePath))
	message.WriteString(fmt.Sprintf("  Error: %v\n", err))

	// Add specific suggestions based on error type
	if os.IsNotExist(err) {
		message.WriteString("  Suggestion: Check if the file exists in the specified location\n")

		// Try to suggest similar files in the directory
		if similar := similarFiles(dir, baseName); len(similar) > 0 {
			message.WriteString("  Similar files found:\n")
			for _, name := range similar {
				message.WriteString(fmt.Sprintf("    - %s\n", name))
			}
		}
	} else if os.IsPermission(err) {
		message.WriteString("  Suggestion: Check file permissions - you may need read access\n")
	}

	return message.String()
}

// similarFiles lists up to three entries of dir sharing the first letters of name
func similarFiles(dir, name string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil || name == "" {
		return nil
	}

	prefix := strings.ToLower(name[:min(len(name), 3)])
	var similar []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(strings.ToLower(entry.Name()), prefix) {
			continue
		}
		similar = append(similar, entry.Name())
		if len(similar) == 3 {
			break
		}
	}
	return similar
}
