// Package ledger reads and updates the master payroll ledger workbook.
//
// The ledger is an .xlsx workbook whose first row holds column headers. Rows are
// addressed by the header names configured in Config, never by position. Updates
// are applied to an in-memory copy and written to a new, date-stamped file; the
// source workbook is never modified.
package ledger

import (
	"fmt"
	"regexp"
	"strings"
)

// Config describes the ledger layout
type Config struct {
	// Sheet is the preferred ledger sheet; the active sheet is used when it is absent.
	Sheet string `json:"sheet" mapstructure:"sheet"`

	// ReviewSheet is deleted and rebuilt on every run.
	ReviewSheet string `json:"review_sheet" mapstructure:"review-sheet"`

	Columns ColumnConfig `json:"columns" mapstructure:"columns"`

	// MultiPeriodFill is the RGB hex fill of multi-period review rows.
	MultiPeriodFill string `json:"multi_period_fill" mapstructure:"multi-period-fill"`
}

// ColumnConfig holds the ledger header labels
type ColumnConfig struct {
	Name        string `json:"name" mapstructure:"name"`
	PeriodStart string `json:"period_start" mapstructure:"period-start"`
	PeriodEnd   string `json:"period_end" mapstructure:"period-end"`
	Amount      string `json:"amount" mapstructure:"amount"`
	Files       string `json:"files" mapstructure:"files"`
}

var hexColorPattern = regexp.MustCompile(`^[0-9A-Fa-f]{6}$`)

// DefaultConfig returns the layout of the standard ledger export
func DefaultConfig() *Config {
	return &Config{
		Sheet:       "Export",
		ReviewSheet: "Not Matched",
		Columns: ColumnConfig{
			Name:        "Név",
			PeriodStart: "Időszak kezdete",
			PeriodEnd:   "Időszak vége",
			Amount:      "Összeg",
			Files:       "Fájlok",
		},
		MultiPeriodFill: "C6EFCE",
	}
}

// Validate checks if the ledger configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ReviewSheet) == "" {
		return fmt.Errorf("review sheet name cannot be empty")
	}

	if len([]rune(c.ReviewSheet)) > 31 {
		return fmt.Errorf("review sheet name %q exceeds 31 characters", c.ReviewSheet)
	}

	if strings.ContainsAny(c.ReviewSheet, `:\/?*[]`) {
		return fmt.Errorf("review sheet name %q contains invalid characters", c.ReviewSheet)
	}

	if strings.EqualFold(c.ReviewSheet, c.Sheet) {
		return fmt.Errorf("review sheet cannot be the ledger sheet %q", c.Sheet)
	}

	required := map[string]string{
		"name":         c.Columns.Name,
		"period-start": c.Columns.PeriodStart,
		"period-end":   c.Columns.PeriodEnd,
		"amount":       c.Columns.Amount,
		"files":        c.Columns.Files,
	}
	for key, label := range required {
		if strings.TrimSpace(label) == "" {
			return fmt.Errorf("column label %s cannot be empty", key)
		}
	}

	if !hexColorPattern.MatchString(c.MultiPeriodFill) {
		return fmt.Errorf("multi-period fill must be a 6 digit hex color, got %q", c.MultiPeriodFill)
	}

	return nil
}

// RequiredColumns returns the ledger headers that must be present, in display order
func (c *Config) RequiredColumns() []string {
	return []string{c.Columns.Name, c.Columns.PeriodStart, c.Columns.PeriodEnd, c.Columns.Amount}
}

// ReviewHeader returns the header row of the review sheet
func (c *Config) ReviewHeader() []string {
	return append(c.RequiredColumns(), c.Columns.Files)
}
