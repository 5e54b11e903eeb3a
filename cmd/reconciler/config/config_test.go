package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"payroll-reconciliation-service/internal/ledger"
	"payroll-reconciliation-service/internal/parsers"
	"payroll-reconciliation-service/internal/reporter"
	"payroll-reconciliation-service/pkg/errors"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	ConfigureEnv(v)
	return v
}

func TestCreateLedgerConfig_Defaults(t *testing.T) {
	config, err := CreateLedgerConfig(newViper())
	if err != nil {
		t.Fatalf("failed to create ledger config: %v", err)
	}

	defaults := ledger.DefaultConfig()
	if config.Sheet != defaults.Sheet {
		t.Errorf("expected Sheet '%s', got '%s'", defaults.Sheet, config.Sheet)
	}
	if config.ReviewSheet != "Not Matched" {
		t.Errorf("expected ReviewSheet 'Not Matched', got '%s'", config.ReviewSheet)
	}
	if config.Columns != defaults.Columns {
		t.Errorf("expected default columns %+v, got %+v", defaults.Columns, config.Columns)
	}
	if config.MultiPeriodFill != defaults.MultiPeriodFill {
		t.Errorf("expected fill '%s', got '%s'", defaults.MultiPeriodFill, config.MultiPeriodFill)
	}
}

func TestCreateExtractorConfig_Defaults(t *testing.T) {
	config, err := CreateExtractorConfig(newViper())
	if err != nil {
		t.Fatalf("failed to create extractor config: %v", err)
	}

	defaults := parsers.DefaultExtractorConfig()
	if config.NameLabel != defaults.NameLabel {
		t.Errorf("expected NameLabel '%s', got '%s'", defaults.NameLabel, config.NameLabel)
	}
	if len(config.TotalLabels) != len(defaults.TotalLabels) {
		t.Errorf("expected %d total labels, got %d", len(defaults.TotalLabels), len(config.TotalLabels))
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reconciler.yaml")
	content := `ledger:
  sheet: Payroll
  columns:
    name: Worker
extract:
  total-labels:
    - Total
    - Sum
progress-log-interval: 2s
matching:
  warn-on-shared-rows: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}

	config, err := CreateReconcilerConfig(v)
	if err != nil {
		t.Fatalf("failed to create reconciler config: %v", err)
	}

	if config.Ledger.Sheet != "Payroll" {
		t.Errorf("expected sheet 'Payroll', got '%s'", config.Ledger.Sheet)
	}
	if config.Ledger.Columns.Name != "Worker" {
		t.Errorf("expected name column 'Worker', got '%s'", config.Ledger.Columns.Name)
	}
	// Keys missing from the file keep their defaults
	if config.Ledger.Columns.Amount != ledger.DefaultConfig().Columns.Amount {
		t.Errorf("expected default amount column, got '%s'", config.Ledger.Columns.Amount)
	}
	if config.Ledger.ReviewSheet != "Not Matched" {
		t.Errorf("expected default review sheet, got '%s'", config.Ledger.ReviewSheet)
	}
	if len(config.Extractor.TotalLabels) != 2 || config.Extractor.TotalLabels[0] != "Total" {
		t.Errorf("expected total labels [Total Sum], got %v", config.Extractor.TotalLabels)
	}
	if config.ProgressLogInterval != 2*time.Second {
		t.Errorf("expected interval 2s, got %v", config.ProgressLogInterval)
	}
	if config.Matching.WarnOnSharedRows {
		t.Error("expected shared row warnings to be disabled")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("RECONCILER_LEDGER_SHEET", "FromEnv")
	t.Setenv("RECONCILER_LEDGER_COLUMNS_PERIOD_START", "Start")
	t.Setenv("RECONCILER_EXTRACT_NAME_LABEL", "Worker:")
	t.Setenv("RECONCILER_DOCUMENTS_DIR", "/data/reports")
	t.Setenv("RECONCILER_LEDGER_FILE", "/data/ledger.xlsx")

	v := newViper()

	ledgerConfig, err := CreateLedgerConfig(v)
	if err != nil {
		t.Fatalf("failed to create ledger config: %v", err)
	}
	if ledgerConfig.Sheet != "FromEnv" {
		t.Errorf("expected sheet 'FromEnv', got '%s'", ledgerConfig.Sheet)
	}
	if ledgerConfig.Columns.PeriodStart != "Start" {
		t.Errorf("expected period start column 'Start', got '%s'", ledgerConfig.Columns.PeriodStart)
	}

	extractorConfig, err := CreateExtractorConfig(v)
	if err != nil {
		t.Fatalf("failed to create extractor config: %v", err)
	}
	if extractorConfig.NameLabel != "Worker:" {
		t.Errorf("expected name label 'Worker:', got '%s'", extractorConfig.NameLabel)
	}

	request := CreateRequest(v)
	if request.DocumentsDir != "/data/reports" {
		t.Errorf("expected documents dir '/data/reports', got '%s'", request.DocumentsDir)
	}
	if request.LedgerPath != "/data/ledger.xlsx" {
		t.Errorf("expected ledger path '/data/ledger.xlsx', got '%s'", request.LedgerPath)
	}
	if request.OutputDir != "" {
		t.Errorf("expected empty output dir, got '%s'", request.OutputDir)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"empty review sheet", "ledger.review-sheet", ""},
		{"empty name column", "ledger.columns.name", " "},
		{"bad fill colour", "ledger.multi-period-fill", "green"},
		{"empty name label", "extract.name-label", ""},
		{"negative progress interval", KeyProgressLogInterval, "-1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newViper()
			v.Set(tt.key, tt.value)

			_, err := CreateReconcilerConfig(v)
			if err == nil {
				t.Fatal("expected an error but got none")
			}

			reconcilerErr, ok := errors.AsReconcilerError(err)
			if !ok {
				t.Fatalf("expected a ReconcilerError, got %T", err)
			}
			if reconcilerErr.Category != errors.CategoryConfiguration {
				t.Errorf("expected configuration category, got %s", reconcilerErr.Category)
			}
			if reconcilerErr.GetExitCode() != 4 {
				t.Errorf("expected exit code 4, got %d", reconcilerErr.GetExitCode())
			}
		})
	}
}

func TestCreateRequest_TrimsPaths(t *testing.T) {
	v := viper.New()
	v.Set(KeyDocumentsDir, "  /reports ")
	v.Set(KeyLedgerFile, "ledger.xlsx\n")
	v.Set(KeyOutputDir, " out")

	request := CreateRequest(v)
	if request.DocumentsDir != "/reports" || request.LedgerPath != "ledger.xlsx" || request.OutputDir != "out" {
		t.Errorf("expected trimmed paths, got %+v", request)
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		name           string
		format         string
		showMatched    bool
		expectedFormat reporter.OutputFormat
		expectError    bool
	}{
		{
			name:           "console format",
			format:         "console",
			expectedFormat: reporter.FormatConsole,
		},
		{
			name:           "console with matched workers",
			format:         "console",
			showMatched:    true,
			expectedFormat: reporter.FormatConsole,
		},
		{
			name:           "json format",
			format:         "json",
			expectedFormat: reporter.FormatJSON,
		},
		{
			name:           "csv format in capitals",
			format:         " CSV ",
			expectedFormat: reporter.FormatCSV,
		},
		{
			name:        "unknown format",
			format:      "xml",
			expectError: true,
		},
		{
			name:        "empty format",
			format:      "",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := CreateReportConfig(tt.format, tt.showMatched)

			if tt.expectError {
				if err == nil {
					t.Fatal("expected an error but got none")
				}
				if !errors.HasCode(err, errors.CodeInvalidConfig) {
					t.Errorf("expected invalid config code, got %v", err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Format != tt.expectedFormat {
				t.Errorf("expected format %s, got %s", tt.expectedFormat, config.Format)
			}
			if config.Format == reporter.FormatConsole && config.IncludeMatched != tt.showMatched {
				t.Errorf("expected IncludeMatched %v, got %v", tt.showMatched, config.IncludeMatched)
			}
			if config.Format == reporter.FormatCSV && (!config.CSVHeaders || config.CSVDelimiter != ',') {
				t.Error("expected CSV headers with a comma delimiter")
			}
		})
	}
}
