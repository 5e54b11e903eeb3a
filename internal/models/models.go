package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical year/month/day format used for periods in
// the ledger, the review listing and reports.
const DateLayout = "2006/01/02"

// NameNotFound is the label shown for documents where no worker name could be extracted.
const NameNotFound = "Name not found"

// FormatDate formats an optional date with DateLayout, returning an empty string for nil.
func FormatDate(d *time.Time) string {
	if d == nil {
		return ""
	}
	return d.Format(DateLayout)
}

// ExtractionRecord represents the fields extracted from a single payroll document.
// An empty Name and nil period bounds mean the field was not found in the document.
type ExtractionRecord struct {
	Name        string          `json:"name"`
	PeriodStart *time.Time      `json:"periodStart,omitempty"`
	PeriodEnd   *time.Time      `json:"periodEnd,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	SourceFile  string          `json:"sourceFile"`
}

// NewExtractionRecord creates a new ExtractionRecord instance
func NewExtractionRecord(name string, start, end *time.Time, amount decimal.Decimal, sourceFile string) *ExtractionRecord {
	return &ExtractionRecord{
		Name:        name,
		PeriodStart: start,
		PeriodEnd:   end,
		Amount:      amount,
		SourceFile:  sourceFile,
	}
}

// HasName reports whether a worker name was found in the document
func (r *ExtractionRecord) HasName() bool {
	return strings.TrimSpace(r.Name) != ""
}

// HasPeriod reports whether at least one worked date was found in the document
func (r *ExtractionRecord) HasPeriod() bool {
	return r.PeriodStart != nil && r.PeriodEnd != nil
}

// DisplayName returns the extracted name or the NameNotFound label
func (r *ExtractionRecord) DisplayName() string {
	if !r.HasName() {
		return NameNotFound
	}
	return r.Name
}

// Validate performs basic validation on the ExtractionRecord
func (r *ExtractionRecord) Validate() error {
	if strings.TrimSpace(r.SourceFile) == "" {
		return fmt.Errorf("extraction record source file cannot be empty")
	}

	if r.Amount.IsNegative() {
		return fmt.Errorf("extraction record amount cannot be negative: %s", r.Amount.String())
	}

	if (r.PeriodStart == nil) != (r.PeriodEnd == nil) {
		return fmt.Errorf("extraction record period must have both bounds or neither")
	}

	if r.HasPeriod() && r.PeriodStart.After(*r.PeriodEnd) {
		return fmt.Errorf("extraction record period start %s is after end %s",
			FormatDate(r.PeriodStart), FormatDate(r.PeriodEnd))
	}

	return nil
}

// String returns a string representation of the ExtractionRecord
func (r *ExtractionRecord) String() string {
	return fmt.Sprintf("ExtractionRecord{Name: %s, Period: %s-%s, Amount: %s, File: %s}",
		r.DisplayName(), FormatDate(r.PeriodStart), FormatDate(r.PeriodEnd), r.Amount.String(), r.SourceFile)
}

// MarshalJSON implements custom JSON marshaling for ExtractionRecord
func (r *ExtractionRecord) MarshalJSON() ([]byte, error) {
	type Alias ExtractionRecord
	return json.Marshal(&struct {
		PeriodStart string `json:"periodStart,omitempty"`
		PeriodEnd   string `json:"periodEnd,omitempty"`
		Amount      string `json:"amount"`
		*Alias
	}{
		PeriodStart: FormatDate(r.PeriodStart),
		PeriodEnd:   FormatDate(r.PeriodEnd),
		Amount:      r.Amount.String(),
		Alias:       (*Alias)(r),
	})
}

// AggregatedRecord groups all extraction records sharing a normalized name
type AggregatedRecord struct {
	NormalizedName string          `json:"normalizedName"`
	DisplayName    string          `json:"displayName"`
	PeriodStart    *time.Time      `json:"periodStart,omitempty"`
	PeriodEnd      *time.Time      `json:"periodEnd,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	SourceFiles    []string        `json:"sourceFiles"`
	RecordCount    int             `json:"recordCount"`
}

// HasName reports whether the group was built from named documents
func (a *AggregatedRecord) HasName() bool {
	return a.NormalizedName != ""
}

// HasMultiplePeriods returns true if more than one document contributed to the group
func (a *AggregatedRecord) HasMultiplePeriods() bool {
	return a.RecordCount > 1
}

// JoinedSourceFiles returns the source filenames as a comma separated list
func (a *AggregatedRecord) JoinedSourceFiles() string {
	return strings.Join(a.SourceFiles, ", ")
}

// Validate checks the aggregated record invariants
func (a *AggregatedRecord) Validate() error {
	if a.RecordCount <= 0 {
		return fmt.Errorf("aggregated record %q has no contributing records", a.DisplayName)
	}

	if a.Amount.IsNegative() {
		return fmt.Errorf("aggregated record %q has negative amount %s", a.DisplayName, a.Amount.String())
	}

	if a.PeriodStart != nil && a.PeriodEnd != nil && a.PeriodStart.After(*a.PeriodEnd) {
		return fmt.Errorf("aggregated record %q period start is after period end", a.DisplayName)
	}

	return nil
}

// String returns a string representation of the AggregatedRecord
func (a *AggregatedRecord) String() string {
	return fmt.Sprintf("AggregatedRecord{Name: %s, Period: %s-%s, Amount: %s, Records: %d, Files: [%s]}",
		a.DisplayName, FormatDate(a.PeriodStart), FormatDate(a.PeriodEnd), a.Amount.String(),
		a.RecordCount, a.JoinedSourceFiles())
}

// MarshalJSON implements custom JSON marshaling for AggregatedRecord
func (a *AggregatedRecord) MarshalJSON() ([]byte, error) {
	type Alias AggregatedRecord
	return json.Marshal(&struct {
		PeriodStart string `json:"periodStart,omitempty"`
		PeriodEnd   string `json:"periodEnd,omitempty"`
		Amount      string `json:"amount"`
		*Alias
	}{
		PeriodStart: FormatDate(a.PeriodStart),
		PeriodEnd:   FormatDate(a.PeriodEnd),
		Amount:      a.Amount.String(),
		Alias:       (*Alias)(a),
	})
}

// LedgerRow is a read-only view of a named ledger row
type LedgerRow struct {
	Row            int    `json:"row"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalizedName"`
}

// String returns a string representation of the LedgerRow
func (l *LedgerRow) String() string {
	return fmt.Sprintf("LedgerRow{Row: %d, Name: %s}", l.Row, l.Name)
}

// LedgerUpdate carries the values written back to a matched ledger row
type LedgerUpdate struct {
	PeriodStart *time.Time
	PeriodEnd   *time.Time
	Amount      decimal.Decimal
}

// NewLedgerUpdate builds the ledger update for an aggregated record
func NewLedgerUpdate(record *AggregatedRecord) LedgerUpdate {
	return LedgerUpdate{
		PeriodStart: record.PeriodStart,
		PeriodEnd:   record.PeriodEnd,
		Amount:      record.Amount,
	}
}

// MatchAssignment links an aggregated record to its ledger row, if any
type MatchAssignment struct {
	Record *AggregatedRecord `json:"record"`
	Row    *LedgerRow        `json:"row,omitempty"`
	Score  int               `json:"score"`
}

// Matched returns true if a ledger row was accepted for the record
func (m *MatchAssignment) Matched() bool {
	return m.Row != nil
}

// ReviewGroup identifies the section of the review listing an entry belongs to
type ReviewGroup string

const (
	// ReviewUnmatched holds records with no acceptable ledger match
	ReviewUnmatched ReviewGroup = "unmatched"
	// ReviewMultiPeriod holds matched records built from more than one document
	ReviewMultiPeriod ReviewGroup = "multi_period"
)

// ReviewEntry is a single row of the review listing
type ReviewEntry struct {
	Group       ReviewGroup     `json:"group"`
	Name        string          `json:"name"`
	PeriodStart string          `json:"periodStart"`
	PeriodEnd   string          `json:"periodEnd"`
	Amount      decimal.Decimal `json:"amount"`
	SourceFiles string          `json:"sourceFiles"`
}

// NewReviewEntry creates a review entry from an aggregated record
func NewReviewEntry(group ReviewGroup, record *AggregatedRecord) ReviewEntry {
	return ReviewEntry{
		Group:       group,
		Name:        record.DisplayName,
		PeriodStart: FormatDate(record.PeriodStart),
		PeriodEnd:   FormatDate(record.PeriodEnd),
		Amount:      record.Amount,
		SourceFiles: record.JoinedSourceFiles(),
	}
}

// ReviewListing is the content of the rebuilt review sheet
type ReviewListing struct {
	Unmatched   []ReviewEntry `json:"unmatched"`
	MultiPeriod []ReviewEntry `json:"multiPeriod"`
}

// IsEmpty returns true if neither review group has entries
func (r *ReviewListing) IsEmpty() bool {
	return len(r.Unmatched) == 0 && len(r.MultiPeriod) == 0
}
