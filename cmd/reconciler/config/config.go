// Package config turns viper settings into the typed configurations of the
// reconciliation packages.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"payroll-reconciliation-service/internal/ledger"
	"payroll-reconciliation-service/internal/matcher"
	"payroll-reconciliation-service/internal/parsers"
	"payroll-reconciliation-service/internal/reconciler"
	"payroll-reconciliation-service/internal/reporter"
	"payroll-reconciliation-service/pkg/errors"
)

// Settings keys. Flags bind to the top-level keys; the nested ones are only set
// through a config file or the environment.
const (
	KeyVerbose      = "verbose"
	KeyLogFormat    = "log-format"
	KeyLogFile      = "log-file"
	KeyDocumentsDir = "documents-dir"
	KeyLedgerFile   = "ledger-file"
	KeyOutputDir    = "output-dir"
	KeyOutputFormat = "output-format"
	KeyReportFile   = "report-file"
	KeyProgress     = "progress"
	KeyShowMatched  = "show-matched"

	KeyLedger  = "ledger"
	KeyExtract = "extract"

	KeyProgressLogInterval = "progress-log-interval"
	KeyWarnOnSharedRows    = "matching.warn-on-shared-rows"
)

// EnvPrefix is prepended to every environment variable read by the CLI
const EnvPrefix = "RECONCILER"

// SetDefaults registers the default of every nested setting on v, so that
// environment variables can override keys that never appear in a config file.
func SetDefaults(v *viper.Viper) {
	ledgerDefaults := ledger.DefaultConfig()
	v.SetDefault("ledger.sheet", ledgerDefaults.Sheet)
	v.SetDefault("ledger.review-sheet", ledgerDefaults.ReviewSheet)
	v.SetDefault("ledger.multi-period-fill", ledgerDefaults.MultiPeriodFill)
	v.SetDefault("ledger.columns.name", ledgerDefaults.Columns.Name)
	v.SetDefault("ledger.columns.period-start", ledgerDefaults.Columns.PeriodStart)
	v.SetDefault("ledger.columns.period-end", ledgerDefaults.Columns.PeriodEnd)
	v.SetDefault("ledger.columns.amount", ledgerDefaults.Columns.Amount)
	v.SetDefault("ledger.columns.files", ledgerDefaults.Columns.Files)

	extractDefaults := parsers.DefaultExtractorConfig()
	v.SetDefault("extract.name-label", extractDefaults.NameLabel)
	v.SetDefault("extract.name-terminator", extractDefaults.NameTerminator)
	v.SetDefault("extract.total-labels", extractDefaults.TotalLabels)
	v.SetDefault("extract.currency-suffix", extractDefaults.CurrencySuffix)

	v.SetDefault(KeyProgressLogInterval, 5*time.Second)
	v.SetDefault(KeyWarnOnSharedRows, matcher.DefaultMatchingConfig().WarnOnSharedRows)
}

// ConfigureEnv makes v read RECONCILER_* variables, with dashes and dots in
// keys written as underscores (RECONCILER_LEDGER_COLUMNS_PERIOD_START).
func ConfigureEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
}

// Settings holds the nested sections of the configuration
type Settings struct {
	Ledger  ledger.Config           `mapstructure:"ledger"`
	Extract parsers.ExtractorConfig `mapstructure:"extract"`
}

// LoadSettings decodes the nested sections of v over their defaults. The whole
// tree is decoded rather than each section so that environment overrides of
// nested keys are seen.
func LoadSettings(v *viper.Viper) (*Settings, error) {
	settings := &Settings{
		Ledger:  *ledger.DefaultConfig(),
		Extract: *parsers.DefaultExtractorConfig(),
	}

	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "config", v.ConfigFileUsed(), err).
			WithSuggestion("check the config file syntax and value types")
	}

	return settings, nil
}

// CreateLedgerConfig reads the ledger layout
func CreateLedgerConfig(v *viper.Viper) (*ledger.Config, error) {
	settings, err := LoadSettings(v)
	if err != nil {
		return nil, err
	}

	config := &settings.Ledger
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyLedger, describe(config), err).
			WithSuggestion("check the ledger section of the config file")
	}

	return config, nil
}

// CreateExtractorConfig reads the document field labels
func CreateExtractorConfig(v *viper.Viper) (*parsers.ExtractorConfig, error) {
	settings, err := LoadSettings(v)
	if err != nil {
		return nil, err
	}

	config := &settings.Extract
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyExtract, describe(config), err).
			WithSuggestion("check the extract section of the config file")
	}

	return config, nil
}

// CreateMatchingConfig reads the optional matching behaviour
func CreateMatchingConfig(v *viper.Viper) *matcher.MatchingConfig {
	config := matcher.DefaultMatchingConfig()
	if v.IsSet(KeyWarnOnSharedRows) {
		config.WarnOnSharedRows = v.GetBool(KeyWarnOnSharedRows)
	}
	return config
}

// CreateReconcilerConfig assembles the reconciliation service configuration
func CreateReconcilerConfig(v *viper.Viper) (*reconciler.Config, error) {
	ledgerConfig, err := CreateLedgerConfig(v)
	if err != nil {
		return nil, err
	}

	extractorConfig, err := CreateExtractorConfig(v)
	if err != nil {
		return nil, err
	}

	config := reconciler.DefaultConfig()
	config.Ledger = ledgerConfig
	config.Extractor = extractorConfig
	config.Matching = CreateMatchingConfig(v)

	if v.IsSet(KeyProgressLogInterval) {
		config.ProgressLogInterval = v.GetDuration(KeyProgressLogInterval)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyProgressLogInterval,
			config.ProgressLogInterval, err)
	}

	return config, nil
}

// CreateRequest reads the run inputs
func CreateRequest(v *viper.Viper) *reconciler.ReconciliationRequest {
	return &reconciler.ReconciliationRequest{
		DocumentsDir: strings.TrimSpace(v.GetString(KeyDocumentsDir)),
		LedgerPath:   strings.TrimSpace(v.GetString(KeyLedgerFile)),
		OutputDir:    strings.TrimSpace(v.GetString(KeyOutputDir)),
	}
}

// CreateReportConfig creates a report configuration for the specified output format
func CreateReportConfig(format string, showMatched bool) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(strings.ToLower(strings.TrimSpace(format)))

	switch config.Format {
	case reporter.FormatConsole:
		config.IncludeMatched = showMatched
		config.IncludeReview = true
		config.IncludeSkipped = true
	case reporter.FormatCSV:
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyOutputFormat, format, err).
			WithSuggestion("use one of: console, json, csv")
	}

	return config, nil
}

func describe(v interface{}) string {
	return fmt.Sprintf("%+v", v)
}
