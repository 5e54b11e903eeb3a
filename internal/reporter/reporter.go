// Package reporter renders the result of a reconciliation run.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: the complete run result for programmatic consumption
//   - CSV: one line per worker with its match status, for spreadsheet review
//
// Example usage:
//
//	generator, err := reporter.NewReportGenerator(&reporter.ReportConfig{Format: reporter.FormatCSV})
//	err = generator.GenerateReport(result, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"payroll-reconciliation-service/internal/matcher"
	"payroll-reconciliation-service/internal/models"
	"payroll-reconciliation-service/internal/reconciler"
	"payroll-reconciliation-service/pkg/errors"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Console sections
	IncludeMatched bool `json:"include_matched"`
	IncludeReview  bool `json:"include_review"`
	IncludeSkipped bool `json:"include_skipped"`

	// TableMaxWidth caps the width of name columns in console output.
	TableMaxWidth int `json:"table_max_width"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`

	// SortByAmount orders console worker lists by descending amount instead of name.
	SortByAmount bool `json:"sort_by_amount"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:         FormatConsole,
		IncludeMatched: false,
		IncludeReview:  true,
		IncludeSkipped: true,
		TableMaxWidth:  120,
		CSVDelimiter:   ',',
		CSVHeaders:     true,
		SortByAmount:   false,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.TableMaxWidth < 50 {
		return fmt.Errorf("table max width must be at least 50 characters, got %d", c.TableMaxWidth)
	}

	if c.CSVDelimiter == 0 || c.CSVDelimiter == '"' || c.CSVDelimiter == '\n' || c.CSVDelimiter == '\r' {
		return fmt.Errorf("invalid CSV delimiter %q", c.CSVDelimiter)
	}

	return nil
}

// ReportGenerator generates run reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport writes a report of the run result to writer
func (rg *ReportGenerator) GenerateReport(result *reconciler.RunResult, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("run result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

// generateConsoleReport generates a human-readable console report
func (rg *ReportGenerator) generateConsoleReport(result *reconciler.RunResult, writer io.Writer) error {
	ew := &errWriter{w: writer}

	ew.printf("PAYROLL RECONCILIATION REPORT\n")
	ew.printf("Run:       %s\n", result.RunID)
	ew.printf("Generated: %s\n", result.ProcessedAt.Format(time.RFC3339))
	ew.printf("Duration:  %v\n", result.Duration.Round(time.Millisecond))
	ew.printf("Documents: %s\n", result.DocumentsDir)
	ew.printf("Ledger:    %s\n", result.LedgerPath)
	ew.printf("Output:    %s\n\n", result.OutputPath)

	ew.printf("=== SUMMARY ===\n")
	rg.printSummary(result.Summary, ew)
	ew.printf("\n")

	ew.printf("=== MATCH BREAKDOWN ===\n")
	rg.printMatchBreakdown(result.Summary.Matching, ew)
	ew.printf("\n")

	if rg.config.IncludeMatched {
		matched := make([]*models.MatchAssignment, 0, len(result.Assignments))
		for _, assignment := range result.Assignments {
			if assignment.Matched() {
				matched = append(matched, assignment)
			}
		}
		if len(matched) > 0 {
			ew.printf("=== MATCHED WORKERS ===\n")
			rg.printMatched(matched, ew)
			ew.printf("\n")
		}
	}

	if rg.config.IncludeReview && result.Review != nil {
		if result.Review.IsEmpty() {
			ew.printf("=== REVIEW SHEET ===\n")
			ew.printf("  Nothing to review\n\n")
		}
		if len(result.Review.Unmatched) > 0 {
			ew.printf("=== UNMATCHED (review sheet) ===\n")
			rg.printReviewEntries(result.Review.Unmatched, ew)
			ew.printf("\n")
		}
		if len(result.Review.MultiPeriod) > 0 {
			ew.printf("=== MULTI-PERIOD (review sheet) ===\n")
			rg.printReviewEntries(result.Review.MultiPeriod, ew)
			ew.printf("\n")
		}
	}

	if rg.config.IncludeSkipped && len(result.Skipped) > 0 {
		ew.printf("=== SKIPPED DOCUMENTS ===\n")
		rg.printSkipBreakdown(result.SkipErrors, ew)
		for _, skipped := range result.Skipped {
			ew.printf("  %s: %s\n", skipped.File, skipped.Reason)
		}
		ew.printf("\n")
	}

	return ew.err
}

// generateJSONReport generates a structured JSON report of the full run result
func (rg *ReportGenerator) generateJSONReport(result *reconciler.RunResult, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")

	return encoder.Encode(result)
}

// csvHeaders are the columns of the CSV report
var csvHeaders = []string{
	"Name",
	"Normalized_Name",
	"Status",
	"Match_Type",
	"Score",
	"Ledger_Row",
	"Ledger_Name",
	"Period_Start",
	"Period_End",
	"Amount",
	"Documents",
	"Files",
}

// generateCSVReport writes one line per aggregated worker
func (rg *ReportGenerator) generateCSVReport(result *reconciler.RunResult, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write(csvHeaders); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, assignment := range result.Assignments {
		if err := csvWriter.Write(assignmentRecord(assignment)); err != nil {
			return fmt.Errorf("failed to write record for %s: %w", assignment.Record.DisplayName, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func assignmentRecord(assignment *models.MatchAssignment) []string {
	record := assignment.Record

	status := "Unmatched"
	ledgerRow, ledgerName := "", ""
	if assignment.Matched() {
		status = "Matched"
		ledgerRow = strconv.Itoa(assignment.Row.Row)
		ledgerName = assignment.Row.Name
	}

	return []string{
		record.DisplayName,
		record.NormalizedName,
		status,
		matcher.ClassifyAssignment(assignment).String(),
		strconv.Itoa(assignment.Score),
		ledgerRow,
		ledgerName,
		models.FormatDate(record.PeriodStart),
		models.FormatDate(record.PeriodEnd),
		record.Amount.String(),
		strconv.Itoa(record.RecordCount),
		strings.Join(record.SourceFiles, "; "),
	}
}

// Helper methods for console output formatting

// printSkipBreakdown counts the skipped documents by what went wrong
func (rg *ReportGenerator) printSkipBreakdown(summary *errors.ErrorSummary, ew *errWriter) {
	if summary == nil || summary.Total == 0 {
		return
	}

	if summary.HasCategory(errors.CategoryFile) {
		ew.printf("  Unreadable:      %d\n", summary.ByCategory[errors.CategoryFile])
	}
	if summary.HasCode(errors.CodeInvalidData) {
		ew.printf("  Invalid content: %d\n", summary.ByCode[errors.CodeInvalidData])
	}
	if other := summary.Total - summary.ByCategory[errors.CategoryFile] - summary.ByCode[errors.CodeInvalidData]; other > 0 {
		ew.printf("  Other:           %d\n", other)
	}
}

func (rg *ReportGenerator) printSummary(summary reconciler.RunSummary, ew *errWriter) {
	ew.printf("Documents:\n")
	ew.printf("  Total:     %d\n", summary.Documents)
	ew.printf("  Extracted: %d\n", summary.Extracted)
	ew.printf("  Skipped:   %d\n", summary.Skipped)
	ew.printf("  Unnamed:   %d\n", summary.Unnamed)

	ew.printf("\nWorkers:\n")
	ew.printf("  Total:     %d\n", summary.Workers)
	ew.printf("  Matched:   %d (%.1f%%)\n",
		summary.Matching.Matched, calculatePercentage(summary.Matching.Matched, summary.Workers))
	ew.printf("  Unmatched: %d (%.1f%%)\n",
		summary.Matching.Unmatched, calculatePercentage(summary.Matching.Unmatched, summary.Workers))
	ew.printf("  Ledger rows: %d\n", summary.LedgerRows)

	ew.printf("\nAmounts:\n")
	ew.printf("  Total:     %s\n", formatAmount(summary.TotalAmount))
	ew.printf("  Matched:   %s\n", formatAmount(summary.MatchedAmount))
	ew.printf("  Unmatched: %s\n", formatAmount(summary.UnmatchedAmount))

	ew.printf("\nReview sheet:\n")
	ew.printf("  Unmatched rows:    %d\n", summary.ReviewUnmatched)
	ew.printf("  Multi-period rows: %d\n", summary.ReviewMultiPeriod)
}

func (rg *ReportGenerator) printMatchBreakdown(summary matcher.MatchSummary, ew *errWriter) {
	ew.printf("Exact Matches:    %d (%.1f%%)\n",
		summary.Exact, calculatePercentage(summary.Exact, summary.Matched))
	ew.printf("Reversed Matches: %d (%.1f%%)\n",
		summary.Reversed, calculatePercentage(summary.Reversed, summary.Matched))
	ew.printf("Fuzzy Matches:    %d (%.1f%%)\n",
		summary.Fuzzy, calculatePercentage(summary.Fuzzy, summary.Matched))

	if summary.SharedRows > 0 {
		ew.printf("Shared ledger rows: %d (the last worker written wins)\n", summary.SharedRows)
	}
}

func (rg *ReportGenerator) printMatched(assignments []*models.MatchAssignment, ew *errWriter) {
	sorted := make([]*models.MatchAssignment, len(assignments))
	copy(sorted, assignments)
	if rg.config.SortByAmount {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Record.Amount.GreaterThan(sorted[j].Record.Amount)
		})
	}

	width := rg.nameWidth()
	for _, assignment := range sorted {
		ew.printf("  %-*s -> row %-5d %-*s %3d %-8s %s\n",
			width, truncate(assignment.Record.DisplayName, width),
			assignment.Row.Row,
			width, truncate(assignment.Row.Name, width),
			assignment.Score,
			matcher.ClassifyAssignment(assignment).String(),
			formatAmount(assignment.Record.Amount))
	}
}

func (rg *ReportGenerator) printReviewEntries(entries []models.ReviewEntry, ew *errWriter) {
	sorted := make([]models.ReviewEntry, len(entries))
	copy(sorted, entries)
	if rg.config.SortByAmount {
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Amount.GreaterThan(sorted[j].Amount)
		})
	}

	width := rg.nameWidth()
	for _, entry := range sorted {
		period := ""
		if entry.PeriodStart != "" || entry.PeriodEnd != "" {
			period = entry.PeriodStart + " - " + entry.PeriodEnd
		}
		ew.printf("  %-*s %-23s %12s  %s\n",
			width, truncate(entry.Name, width), period, formatAmount(entry.Amount), entry.SourceFiles)
	}
}

// nameWidth splits the configured table width across the name columns
func (rg *ReportGenerator) nameWidth() int {
	return rg.config.TableMaxWidth / 4
}

func calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

func formatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(0) + " Ft"
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}

// errWriter keeps the first write error so the console report can be written
// without checking every line.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}
