package parsers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"payroll-reconciliation-service/internal/models"
	"payroll-reconciliation-service/pkg/logger"
)

// ExtractorConfig holds the labels used to locate fields in a payroll document
type ExtractorConfig struct {
	NameLabel      string   `json:"name_label" mapstructure:"name-label"`
	NameTerminator string   `json:"name_terminator" mapstructure:"name-terminator"`
	TotalLabels    []string `json:"total_labels" mapstructure:"total-labels"`
	CurrencySuffix string   `json:"currency_suffix" mapstructure:"currency-suffix"`
}

// DefaultExtractorConfig returns the labels used by the standard payroll report layout
func DefaultExtractorConfig() *ExtractorConfig {
	return &ExtractorConfig{
		NameLabel:      "Name:",
		NameTerminator: "Company",
		TotalLabels:    []string{"Összesen", "TOTAL"},
		CurrencySuffix: "Ft",
	}
}

// Validate checks if the extractor configuration is valid
func (c *ExtractorConfig) Validate() error {
	if strings.TrimSpace(c.NameLabel) == "" {
		return fmt.Errorf("name label cannot be empty")
	}

	if strings.TrimSpace(c.NameTerminator) == "" {
		return fmt.Errorf("name terminator cannot be empty")
	}

	if len(c.TotalLabels) == 0 {
		return fmt.Errorf("at least one total label is required")
	}

	for i, label := range c.TotalLabels {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("total label %d cannot be empty", i)
		}
	}

	if strings.TrimSpace(c.CurrencySuffix) == "" {
		return fmt.Errorf("currency suffix cannot be empty")
	}

	return nil
}

// FieldExtractor derives an ExtractionRecord from the flattened text of one document
type FieldExtractor struct {
	config        *ExtractorConfig
	namePattern   *regexp.Regexp
	amountPattern *regexp.Regexp
	logger        logger.Logger
}

// NewFieldExtractor compiles the field patterns for the given configuration
func NewFieldExtractor(config *ExtractorConfig) (*FieldExtractor, error) {
	if config == nil {
		config = DefaultExtractorConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extractor configuration: %w", err)
	}

	namePattern, err := regexp.Compile(
		`(?s)` + regexp.QuoteMeta(config.NameLabel) + `\s*(.+?)\s*` + regexp.QuoteMeta(config.NameTerminator))
	if err != nil {
		return nil, fmt.Errorf("failed to compile name pattern: %w", err)
	}

	labels := make([]string, len(config.TotalLabels))
	for i, label := range config.TotalLabels {
		labels[i] = regexp.QuoteMeta(label)
	}

	// \p{Zs} admits non-breaking and other space separators used as thousands
	// separators by PDF text layers.
	amountPattern, err := regexp.Compile(
		`(?:` + strings.Join(labels, "|") + `)[:\s\p{Zs}]*([\d\s\p{Zs},.]+)` + regexp.QuoteMeta(config.CurrencySuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to compile amount pattern: %w", err)
	}

	log := logger.WithComponent("field_extractor")
	log.WithFields(logger.Fields{
		"name_label":   config.NameLabel,
		"total_labels": strings.Join(config.TotalLabels, ","),
	}).Debug("Created field extractor")

	return &FieldExtractor{
		config:        config,
		namePattern:   namePattern,
		amountPattern: amountPattern,
		logger:        log,
	}, nil
}

// Extract builds a record from document text. Fields that cannot be found are left
// at their empty values: empty name, nil period bounds and a zero amount.
func (fe *FieldExtractor) Extract(text, filename string) *models.ExtractionRecord {
	name := fe.extractName(text)
	start, end := periodBounds(ExtractWorkedDates(text))
	amount := fe.extractAmount(text)

	record := models.NewExtractionRecord(name, start, end, amount, filename)

	fe.logger.WithFields(logger.Fields{
		"file":       filename,
		"name_found": record.HasName(),
		"has_period": record.HasPeriod(),
		"amount":     amount.String(),
	}).Debug("Extracted document fields")

	return record
}

func (fe *FieldExtractor) extractName(text string) string {
	match := fe.namePattern.FindStringSubmatch(text)
	if match == nil {
		return ""
	}
	return strings.Join(strings.Fields(match[1]), " ")
}

func (fe *FieldExtractor) extractAmount(text string) decimal.Decimal {
	match := fe.amountPattern.FindStringSubmatch(text)
	if match == nil {
		return decimal.Zero
	}
	return parseAmount(match[1])
}

// parseAmount strips grouping characters from an amount token. Anything left that
// is not a plain run of digits yields zero.
func parseAmount(raw string) decimal.Decimal {
	digits := strings.Map(func(r rune) rune {
		if r == ',' || r == '.' || unicode.IsSpace(r) || unicode.Is(unicode.Zs, r) {
			return -1
		}
		return r
	}, raw)

	if digits == "" {
		return decimal.Zero
	}

	for _, r := range digits {
		if r < '0' || r > '9' {
			return decimal.Zero
		}
	}

	amount, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
