package reconciler

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"payroll-reconciliation-service/internal/ledger"
	"payroll-reconciliation-service/internal/matcher"
	"payroll-reconciliation-service/internal/models"
	"payroll-reconciliation-service/internal/parsers"
	"payroll-reconciliation-service/pkg/errors"
	"payroll-reconciliation-service/pkg/logger"
)

// Ledger is the part of the ledger workbook the reconciliation writer needs
type Ledger interface {
	// Entries returns the named ledger rows in sheet order.
	Entries() []*models.LedgerRow

	// UpdateEntry overwrites the period and amount fields of a row.
	UpdateEntry(row *models.LedgerRow, update models.LedgerUpdate) error

	// ReplaceReview deletes and rebuilds the review sheet.
	ReplaceReview(listing *models.ReviewListing) error
}

// VersionedLedger is a Ledger that can be saved as a new date-stamped copy
type VersionedLedger interface {
	Ledger
	SaveVersioned(dir string, now time.Time) (string, error)
	Close() error
}

// LedgerOpener opens the ledger at path
type LedgerOpener func(path string, config *ledger.Config) (VersionedLedger, error)

// OpenWorkbook opens an .xlsx ledger workbook
func OpenWorkbook(path string, config *ledger.Config) (VersionedLedger, error) {
	wb, err := ledger.Open(path, config)
	if err != nil {
		return nil, err
	}
	return wb, nil
}

// ReconciliationService runs the reconciliation of a documents folder against a ledger
type ReconciliationService struct {
	extractor *parsers.FieldExtractor
	engine    *matcher.MatchingEngine
	config    *Config
	logger    logger.Logger

	progressCallbacks []ProgressCallback
}

// Config holds configuration options for the reconciliation service
type Config struct {
	Extractor *parsers.ExtractorConfig `json:"extractor"`
	Ledger    *ledger.Config           `json:"ledger"`
	Matching  *matcher.MatchingConfig  `json:"matching"`

	// ProgressLogInterval is how often the document loop logs progress.
	ProgressLogInterval time.Duration `json:"progress_log_interval"`

	Source parsers.DocumentSource `json:"-"`
	Opener LedgerOpener           `json:"-"`
	Now    func() time.Time       `json:"-"`
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		Extractor:           parsers.DefaultExtractorConfig(),
		Ledger:              ledger.DefaultConfig(),
		Matching:            matcher.DefaultMatchingConfig(),
		ProgressLogInterval: 5 * time.Second,
		Source:              parsers.NewFileDocumentSource(),
		Opener:              OpenWorkbook,
		Now:                 time.Now,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Extractor == nil {
		return fmt.Errorf("extractor configuration is required")
	}
	if err := c.Extractor.Validate(); err != nil {
		return fmt.Errorf("invalid extractor configuration: %w", err)
	}

	if c.Ledger == nil {
		return fmt.Errorf("ledger configuration is required")
	}
	if err := c.Ledger.Validate(); err != nil {
		return fmt.Errorf("invalid ledger configuration: %w", err)
	}

	if c.ProgressLogInterval < 0 {
		return fmt.Errorf("progress log interval cannot be negative, got %v", c.ProgressLogInterval)
	}

	return nil
}

// withDefaults fills every unset field from DefaultConfig
func (c *Config) withDefaults() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}

	merged := *c
	if merged.Extractor == nil {
		merged.Extractor = defaults.Extractor
	}
	if merged.Ledger == nil {
		merged.Ledger = defaults.Ledger
	}
	if merged.Matching == nil {
		merged.Matching = defaults.Matching
	}
	if merged.ProgressLogInterval == 0 {
		merged.ProgressLogInterval = defaults.ProgressLogInterval
	}
	if merged.Source == nil {
		merged.Source = defaults.Source
	}
	if merged.Opener == nil {
		merged.Opener = defaults.Opener
	}
	if merged.Now == nil {
		merged.Now = defaults.Now
	}
	return &merged
}

// NewReconciliationService creates a new reconciliation service. Unset
// configuration fields take their defaults.
func NewReconciliationService(config *Config) (*ReconciliationService, error) {
	config = config.withDefaults()

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciliation", "", err)
	}

	extractor, err := parsers.NewFieldExtractor(config.Extractor)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "extract", "", err)
	}

	return &ReconciliationService{
		extractor: extractor,
		engine:    matcher.NewMatchingEngine(config.Matching),
		config:    config,
		logger:    logger.WithComponent("reconciliation_service"),
	}, nil
}

// ReconciliationRequest names the inputs of one run
type ReconciliationRequest struct {
	DocumentsDir string `json:"documents_dir"`
	LedgerPath   string `json:"ledger_path"`

	// OutputDir receives the updated ledger copy; empty means DocumentsDir.
	OutputDir string `json:"output_dir,omitempty"`
}

// Validate checks that both inputs were selected and exist. An unselected input
// is a normal early exit, reported as an input error.
func (r *ReconciliationRequest) Validate() error {
	if r.DocumentsDir == "" {
		return errors.InputError(errors.CodeNoInput, "documents folder", "")
	}

	if r.LedgerPath == "" {
		return errors.InputError(errors.CodeNoInput, "ledger file", "")
	}

	if err := requireDirectory(r.DocumentsDir); err != nil {
		return err
	}

	info, err := os.Stat(r.LedgerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileError(errors.CodeLedgerMissing, r.LedgerPath, err)
		}
		return errors.FileError(errors.CodeFilePermission, r.LedgerPath, err)
	}
	if info.IsDir() {
		return errors.InputError(errors.CodeInvalidInput, "ledger file", r.LedgerPath)
	}

	if r.OutputDir != "" {
		if err := requireDirectory(r.OutputDir); err != nil {
			return err
		}
	}

	return nil
}

// outputDir returns the directory the updated ledger is written to
func (r *ReconciliationRequest) outputDir() string {
	if r.OutputDir != "" {
		return r.OutputDir
	}
	return r.DocumentsDir
}

func requireDirectory(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.FileError(errors.CodeDirectoryError, path, err)
	}
	if !info.IsDir() {
		return errors.FileError(errors.CodeDirectoryError, path, fmt.Errorf("%s is not a directory", path))
	}
	return nil
}

// SkippedDocument is a document that produced no extraction record
type SkippedDocument struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// RunResult contains the complete results of a reconciliation run
type RunResult struct {
	RunID        string `json:"run_id"`
	DocumentsDir string `json:"documents_dir"`
	LedgerPath   string `json:"ledger_path"`
	OutputPath   string `json:"output_path"`

	Documents  int                  `json:"documents"`
	Skipped    []SkippedDocument    `json:"skipped"`
	SkipErrors *errors.ErrorSummary `json:"skip_errors"`

	Records     []*models.ExtractionRecord `json:"records"`
	Aggregated  []*models.AggregatedRecord `json:"aggregated"`
	Assignments []*models.MatchAssignment  `json:"assignments"`
	Review      *models.ReviewListing      `json:"review"`

	Summary RunSummary `json:"summary"`

	ProcessedAt time.Time     `json:"processed_at"`
	Duration    time.Duration `json:"duration"`
}

// RunSummary provides a high-level overview of a run
type RunSummary struct {
	Documents  int `json:"documents"`
	Extracted  int `json:"extracted"`
	Skipped    int `json:"skipped"`
	Unnamed    int `json:"unnamed"`
	Workers    int `json:"workers"`
	LedgerRows int `json:"ledger_rows"`

	Matching matcher.MatchSummary `json:"matching"`

	ReviewUnmatched   int `json:"review_unmatched"`
	ReviewMultiPeriod int `json:"review_multi_period"`

	TotalAmount     decimal.Decimal `json:"total_amount"`
	MatchedAmount   decimal.Decimal `json:"matched_amount"`
	UnmatchedAmount decimal.Decimal `json:"unmatched_amount"`
}
