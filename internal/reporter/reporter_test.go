package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payroll-reconciliation-service/internal/matcher"
	"payroll-reconciliation-service/internal/models"
	"payroll-reconciliation-service/internal/reconciler"
	"payroll-reconciliation-service/pkg/errors"
)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

// createTestResult builds a run with an exact, a reversed, an unmatched and an unnamed worker
func createTestResult() *reconciler.RunResult {
	kovacs := &models.AggregatedRecord{
		NormalizedName: "kovacs janos",
		DisplayName:    "Kovács János",
		PeriodStart:    day(2024, 1, 1),
		PeriodEnd:      day(2024, 1, 19),
		Amount:         decimal.NewFromInt(450000),
		SourceFiles:    []string{"a.pdf", "b.pdf", "c.pdf"},
		RecordCount:    3,
	}
	nagy := &models.AggregatedRecord{
		NormalizedName: "akos nagy",
		DisplayName:    "Ákos Nagy",
		PeriodStart:    day(2024, 1, 9),
		PeriodEnd:      day(2024, 1, 9),
		Amount:         decimal.NewFromInt(80000),
		SourceFiles:    []string{"nagy.pdf"},
		RecordCount:    1,
	}
	teszt := &models.AggregatedRecord{
		NormalizedName: "teszt elek",
		DisplayName:    "Teszt Elek",
		PeriodStart:    day(2024, 1, 10),
		PeriodEnd:      day(2024, 1, 10),
		Amount:         decimal.NewFromInt(50000),
		SourceFiles:    []string{"teszt.pdf"},
		RecordCount:    1,
	}
	unnamed := &models.AggregatedRecord{
		DisplayName: models.NameNotFound,
		Amount:      decimal.Zero,
		SourceFiles: []string{"scan.pdf"},
		RecordCount: 1,
	}

	assignments := []*models.MatchAssignment{
		{Record: unnamed},
		{Record: nagy, Row: &models.LedgerRow{Row: 3, Name: "Nagy Ákos", NormalizedName: "nagy akos"}, Score: 100},
		{Record: kovacs, Row: &models.LedgerRow{Row: 2, Name: "Kovács János", NormalizedName: "kovacs janos"}, Score: 100},
		{Record: teszt, Score: 35},
	}

	result := &reconciler.RunResult{
		RunID:        "3f1c2b8e-0000-4000-8000-000000000001",
		DocumentsDir: "/payroll/2024-01",
		LedgerPath:   "/payroll/ledger.xlsx",
		OutputPath:   "/payroll/2024-01/ledger_20240201.xlsx",
		Documents:    7,
		Skipped:      []reconciler.SkippedDocument{{File: "broken.pdf", Reason: "malformed PDF"}},
		SkipErrors: errors.NewErrorSummary([]*errors.ReconcilerError{
			errors.FileError(errors.CodeDocumentUnreadable, "broken.pdf", fmt.Errorf("malformed PDF")),
		}),
		Aggregated:   []*models.AggregatedRecord{unnamed, nagy, kovacs, teszt},
		Assignments:  assignments,
		Review: &models.ReviewListing{
			Unmatched: []models.ReviewEntry{
				models.NewReviewEntry(models.ReviewUnmatched, unnamed),
				models.NewReviewEntry(models.ReviewUnmatched, teszt),
			},
			MultiPeriod: []models.ReviewEntry{
				models.NewReviewEntry(models.ReviewMultiPeriod, kovacs),
			},
		},
		ProcessedAt: time.Date(2024, time.February, 1, 9, 30, 0, 0, time.UTC),
		Duration:    1500 * time.Millisecond,
	}

	result.Summary = reconciler.RunSummary{
		Documents:         7,
		Extracted:         6,
		Skipped:           1,
		Unnamed:           1,
		Workers:           4,
		LedgerRows:        3,
		Matching:          matcher.Summarize(assignments),
		ReviewUnmatched:   2,
		ReviewMultiPeriod: 1,
		TotalAmount:       decimal.NewFromInt(580000),
		MatchedAmount:     decimal.NewFromInt(530000),
		UnmatchedAmount:   decimal.NewFromInt(50000),
	}

	return result
}

func TestReportConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *ReportConfig)
		expectErr bool
	}{
		{"defaults", func(c *ReportConfig) {}, false},
		{"json", func(c *ReportConfig) { c.Format = FormatJSON }, false},
		{"unknown format", func(c *ReportConfig) { c.Format = "xml" }, true},
		{"narrow table", func(c *ReportConfig) { c.TableMaxWidth = 10 }, true},
		{"quote delimiter", func(c *ReportConfig) { c.CSVDelimiter = '"' }, true},
		{"semicolon delimiter", func(c *ReportConfig) { c.CSVDelimiter = ';' }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultReportConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGenerateReport_Console(t *testing.T) {
	config := DefaultReportConfig()
	config.IncludeMatched = true
	generator, err := NewReportGenerator(config)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, generator.GenerateReport(createTestResult(), &buf))
	output := buf.String()

	for _, expected := range []string{
		"PAYROLL RECONCILIATION REPORT",
		"3f1c2b8e-0000-4000-8000-000000000001",
		"/payroll/2024-01/ledger_20240201.xlsx",
		"=== SUMMARY ===",
		"Matched:   2 (50.0%)",
		"Total:     580000 Ft",
		"Exact Matches:    1 (50.0%)",
		"Reversed Matches: 1 (50.0%)",
		"=== MATCHED WORKERS ===",
		"=== UNMATCHED (review sheet) ===",
		"Teszt Elek",
		models.NameNotFound,
		"=== MULTI-PERIOD (review sheet) ===",
		"2024/01/01 - 2024/01/19",
		"a.pdf, b.pdf, c.pdf",
		"=== SKIPPED DOCUMENTS ===",
		"Unreadable:      1",
		"broken.pdf: malformed PDF",
	} {
		assert.Contains(t, output, expected)
	}
}

func TestGenerateReport_ConsoleSections(t *testing.T) {
	config := DefaultReportConfig()
	config.IncludeReview = false
	config.IncludeSkipped = false
	generator, err := NewReportGenerator(config)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, generator.GenerateReport(createTestResult(), &buf))
	output := buf.String()

	assert.NotContains(t, output, "MATCHED WORKERS")
	assert.NotContains(t, output, "UNMATCHED (review sheet)")
	assert.NotContains(t, output, "SKIPPED DOCUMENTS")
	assert.Contains(t, output, "=== MATCH BREAKDOWN ===")
}

func TestGenerateReport_ConsoleEmptyReview(t *testing.T) {
	generator, err := NewReportGenerator(DefaultReportConfig())
	require.NoError(t, err)

	result := createTestResult()
	result.Review = &models.ReviewListing{}

	var buf bytes.Buffer
	require.NoError(t, generator.GenerateReport(result, &buf))
	output := buf.String()

	assert.Contains(t, output, "=== REVIEW SHEET ===\n  Nothing to review")
	assert.NotContains(t, output, "UNMATCHED (review sheet)")
}

func TestGenerateReport_ConsoleSkipBreakdown(t *testing.T) {
	generator, err := NewReportGenerator(DefaultReportConfig())
	require.NoError(t, err)

	result := createTestResult()
	result.Skipped = append(result.Skipped, reconciler.SkippedDocument{File: "blank.txt", Reason: "negative amount"})
	result.SkipErrors = errors.NewErrorSummary([]*errors.ReconcilerError{
		errors.FileError(errors.CodeDocumentUnreadable, "broken.pdf", fmt.Errorf("malformed PDF")),
		errors.ExtractionError(errors.CodeInvalidData, "blank.txt", 0, "", fmt.Errorf("negative amount")),
	})

	var buf bytes.Buffer
	require.NoError(t, generator.GenerateReport(result, &buf))
	output := buf.String()

	assert.Contains(t, output, "Unreadable:      1")
	assert.Contains(t, output, "Invalid content: 1")
	assert.NotContains(t, output, "Other:")
	assert.Contains(t, output, "blank.txt: negative amount")
}

func TestGenerateReport_JSON(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{Format: FormatJSON, TableMaxWidth: 120, CSVDelimiter: ','})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, generator.GenerateReport(createTestResult(), &buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "3f1c2b8e-0000-4000-8000-000000000001", decoded["run_id"])
	assert.Equal(t, float64(7), decoded["documents"])

	summary, ok := decoded["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "580000", summary["total_amount"])

	aggregated, ok := decoded["aggregated"].([]interface{})
	require.True(t, ok)
	require.Len(t, aggregated, 4)
	kovacs := aggregated[2].(map[string]interface{})
	assert.Equal(t, "2024/01/01", kovacs["periodStart"])
	assert.Equal(t, "450000", kovacs["amount"])
}

func TestGenerateReport_CSV(t *testing.T) {
	generator, err := NewReportGenerator(&ReportConfig{
		Format:        FormatCSV,
		TableMaxWidth: 120,
		CSVDelimiter:  ';',
		CSVHeaders:    true,
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, generator.GenerateReport(createTestResult(), &buf))

	reader := csv.NewReader(strings.NewReader(buf.String()))
	reader.Comma = ';'
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5)

	assert.Equal(t, csvHeaders, rows[0])
	assert.Equal(t, []string{models.NameNotFound, "", "Unmatched", "unmatched", "0", "", "", "", "", "0", "1", "scan.pdf"}, rows[1])
	assert.Equal(t, []string{"Ákos Nagy", "akos nagy", "Matched", "reversed", "100", "3", "Nagy Ákos", "2024/01/09", "2024/01/09", "80000", "1", "nagy.pdf"}, rows[2])
	assert.Equal(t, []string{"Kovács János", "kovacs janos", "Matched", "exact", "100", "2", "Kovács János", "2024/01/01", "2024/01/19", "450000", "3", "a.pdf; b.pdf; c.pdf"}, rows[3])
	assert.Equal(t, "Unmatched", rows[4][2])
	assert.Equal(t, "35", rows[4][4])
}

func TestGenerateReport_NilResult(t *testing.T) {
	generator, err := NewReportGenerator(nil)
	require.NoError(t, err)
	assert.Error(t, generator.GenerateReport(nil, &bytes.Buffer{}))
}

// flakyWriter fails its first failures writes
type flakyWriter struct {
	failures int
	buf      bytes.Buffer
}

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.failures > 0 {
		w.failures--
		return 0, fmt.Errorf("transient write failure")
	}
	return w.buf.Write(p)
}

func TestSafeReportGenerator_FormatFallback(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatJSON
	generator, err := NewSafeReportGenerator(config, nil)
	require.NoError(t, err)

	writer := &flakyWriter{failures: 1}
	require.NoError(t, generator.GenerateReportSafely(createTestResult(), writer))

	output := writer.buf.String()
	assert.Contains(t, output, "NOTE: Report generated in fallback format")
	assert.Contains(t, output, "PAYROLL RECONCILIATION REPORT")
}

func TestSafeReportGenerator_ConsoleFailure(t *testing.T) {
	generator, err := NewSafeReportGenerator(nil, nil)
	require.NoError(t, err)

	err = generator.GenerateReportSafely(createTestResult(), &flakyWriter{failures: 100})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeUnexpectedError))
}

func TestSafeReportGenerator_InvalidInputs(t *testing.T) {
	generator, err := NewSafeReportGenerator(nil, nil)
	require.NoError(t, err)

	assert.Error(t, generator.GenerateReportSafely(nil, &bytes.Buffer{}))
	assert.Error(t, generator.GenerateReportSafely(createTestResult(), nil))
}

func TestNewSafeReportGenerator_InvalidConfig(t *testing.T) {
	_, err := NewSafeReportGenerator(&ReportConfig{Format: "xml"}, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig))
}

func TestSafeReportGenerator_WriteReportFile(t *testing.T) {
	config := DefaultReportConfig()
	config.Format = FormatCSV
	generator, err := NewSafeReportGenerator(config, nil)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, generator.WriteReportFile(createTestResult(), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Name,Normalized_Name,Status"))

	err = generator.WriteReportFile(createTestResult(), filepath.Join(t.TempDir(), "missing", "report.csv"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeWriteFailed))
}

func TestGenerateBackupPath(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "report_backup.csv"), generateBackupPath(filepath.Join("out", "report.csv")))
	assert.Equal(t, filepath.Join("out", "report_backup"), generateBackupPath(filepath.Join("out", "report")))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Kovács János", truncate("Kovács János", 20))
	assert.Equal(t, "Kovác...", truncate("Kovács János", 8))
	assert.Equal(t, "Ko", truncate("Kovács János", 2))
}
