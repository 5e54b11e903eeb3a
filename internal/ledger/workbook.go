package ledger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"payroll-reconciliation-service/internal/matcher"
	"payroll-reconciliation-service/internal/models"
	"payroll-reconciliation-service/pkg/errors"
	"payroll-reconciliation-service/pkg/logger"
)

// VersionDateLayout is appended to the ledger file name of every saved copy
const VersionDateLayout = "20060102"

var supportedExtensions = map[string]bool{
	".xlsx": true,
	".xlsm": true,
	".xltx": true,
	".xltm": true,
}

// Workbook is an open ledger workbook
type Workbook struct {
	file    *excelize.File
	path    string
	config  *Config
	sheet   string
	columns map[string]int
	entries []*models.LedgerRow
	maxRow  int
	logger  logger.Logger
}

// Open loads the ledger at path, selects its ledger sheet and resolves the
// required header columns. A missing file, an unsupported format or a missing
// column fails before anything is read from the rows.
func Open(path string, config *Config) (*Workbook, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "ledger", config, err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supportedExtensions[ext] {
		return nil, errors.ExtractionError(errors.CodeInvalidFormat, path, 0, "",
			fmt.Errorf("unsupported ledger format %q, save the workbook as .xlsx", ext)).
			WithSuggestion("save the ledger as an Excel .xlsx workbook and try again")
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeLedgerMissing, path, err)
		}
		return nil, errors.FileError(errors.CodeFilePermission, path, err)
	}

	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileCorrupted, path, err)
	}

	wb := &Workbook{
		file:    file,
		path:    path,
		config:  config,
		columns: make(map[string]int),
		logger:  logger.WithComponent("ledger_workbook"),
	}

	if err := wb.load(); err != nil {
		_ = file.Close()
		return nil, err
	}

	wb.logger.WithFields(logger.Fields{
		"path":    path,
		"sheet":   wb.sheet,
		"entries": len(wb.entries),
	}).Info("Loaded ledger")

	return wb, nil
}

func (wb *Workbook) load() error {
	wb.sheet = wb.selectSheet()

	rows, err := wb.file.GetRows(wb.sheet)
	if err != nil {
		return errors.FileError(errors.CodeFileCorrupted, wb.path, err)
	}

	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	for i, label := range header {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		if _, exists := wb.columns[label]; !exists {
			wb.columns[label] = i + 1
		}
	}

	for _, column := range wb.config.RequiredColumns() {
		if _, exists := wb.columns[column]; !exists {
			return errors.ExtractionError(errors.CodeMissingColumn, wb.path, 1, column, nil).
				WithContext("sheet", wb.sheet)
		}
	}

	nameIdx := wb.columns[wb.config.Columns.Name] - 1
	wb.maxRow = len(rows)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if nameIdx >= len(row) {
			continue
		}

		name := row[nameIdx]
		if strings.TrimSpace(name) == "" {
			continue
		}

		wb.entries = append(wb.entries, &models.LedgerRow{
			Row:            i + 1,
			Name:           name,
			NormalizedName: matcher.NormalizeName(name),
		})
	}

	return nil
}

// selectSheet prefers the configured sheet and otherwise falls back to the active
// sheet, logging the fallback.
func (wb *Workbook) selectSheet() string {
	for _, name := range wb.file.GetSheetList() {
		if name == wb.config.Sheet {
			return name
		}
	}

	active := wb.file.GetSheetName(wb.file.GetActiveSheetIndex())
	wb.logger.WithFields(logger.Fields{
		"preferred": wb.config.Sheet,
		"using":     active,
	}).Warn("Ledger sheet not found, using the active sheet")
	return active
}

// Path returns the path the workbook was opened from
func (wb *Workbook) Path() string {
	return wb.path
}

// Sheet returns the name of the ledger sheet in use
func (wb *Workbook) Sheet() string {
	return wb.sheet
}

// Entries returns the named ledger rows in sheet order
func (wb *Workbook) Entries() []*models.LedgerRow {
	return wb.entries
}

// UpdateEntry overwrites the period and amount cells of a ledger row. Absent
// period bounds blank their cells. Cell styles are kept.
func (wb *Workbook) UpdateEntry(row *models.LedgerRow, update models.LedgerUpdate) error {
	if row == nil || row.Row < 2 || row.Row > wb.maxRow {
		return fmt.Errorf("ledger row %v is outside the data range of sheet %q", row, wb.sheet)
	}

	values := []struct {
		column string
		value  interface{}
	}{
		{wb.config.Columns.PeriodStart, models.FormatDate(update.PeriodStart)},
		{wb.config.Columns.PeriodEnd, models.FormatDate(update.PeriodEnd)},
		{wb.config.Columns.Amount, update.Amount.IntPart()},
	}

	for _, v := range values {
		cell, err := excelize.CoordinatesToCellName(wb.columns[v.column], row.Row)
		if err != nil {
			return fmt.Errorf("failed to address column %q row %d: %w", v.column, row.Row, err)
		}
		if err := wb.file.SetCellValue(wb.sheet, cell, v.value); err != nil {
			return fmt.Errorf("failed to set cell %s: %w", cell, err)
		}
	}

	return nil
}

// ReplaceReview deletes the review sheet if present and writes the listing to a
// fresh one: the header, the unmatched entries, then, when there are any, a blank
// row, the header again and the filled multi-period entries.
func (wb *Workbook) ReplaceReview(listing *models.ReviewListing) error {
	review := wb.config.ReviewSheet

	for _, name := range wb.file.GetSheetList() {
		if name == review {
			if err := wb.file.DeleteSheet(review); err != nil {
				return fmt.Errorf("failed to delete review sheet %q: %w", review, err)
			}
			break
		}
	}

	if _, err := wb.file.NewSheet(review); err != nil {
		return fmt.Errorf("failed to create review sheet %q: %w", review, err)
	}

	header := make([]interface{}, 0, len(wb.config.ReviewHeader()))
	for _, label := range wb.config.ReviewHeader() {
		header = append(header, label)
	}

	rowNum := 1
	if err := wb.writeRow(review, rowNum, header); err != nil {
		return err
	}

	if listing == nil || listing.IsEmpty() {
		wb.logger.WithField("sheet", review).Debug("Review sheet has nothing to list")
		return nil
	}

	for _, entry := range listing.Unmatched {
		rowNum++
		if err := wb.writeRow(review, rowNum, reviewRow(entry)); err != nil {
			return err
		}
	}

	if len(listing.MultiPeriod) == 0 {
		return nil
	}

	rowNum += 2
	if err := wb.writeRow(review, rowNum, header); err != nil {
		return err
	}

	style, err := wb.file.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{wb.config.MultiPeriodFill}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create multi-period style: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return fmt.Errorf("failed to resolve review columns: %w", err)
	}

	for _, entry := range listing.MultiPeriod {
		rowNum++
		if err := wb.writeRow(review, rowNum, reviewRow(entry)); err != nil {
			return err
		}
		if err := wb.file.SetCellStyle(review, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("%s%d", lastCol, rowNum), style); err != nil {
			return fmt.Errorf("failed to fill review row %d: %w", rowNum, err)
		}
	}

	return nil
}

func (wb *Workbook) writeRow(sheet string, rowNum int, values []interface{}) error {
	cell := fmt.Sprintf("A%d", rowNum)
	if err := wb.file.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of sheet %q: %w", rowNum, sheet, err)
	}
	return nil
}

func reviewRow(entry models.ReviewEntry) []interface{} {
	return []interface{}{
		entry.Name,
		blankToNil(entry.PeriodStart),
		blankToNil(entry.PeriodEnd),
		entry.Amount.IntPart(),
		entry.SourceFiles,
	}
}

func blankToNil(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// VersionedName returns the file name of the copy saved on the given day
func VersionedName(ledgerPath string, now time.Time) string {
	base := filepath.Base(ledgerPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s_%s%s", stem, now.Format(VersionDateLayout), ext)
}

// SaveVersioned writes the workbook to dir under its date-stamped name and returns
// the written path. The file is written to a temporary name first and renamed into
// place, so a failed save leaves no partial output behind.
func (wb *Workbook) SaveVersioned(dir string, now time.Time) (string, error) {
	if dir == "" {
		dir = filepath.Dir(wb.path)
	}

	target := filepath.Join(dir, VersionedName(wb.path, now))

	tmp, err := os.CreateTemp(dir, ".ledger-*.tmp")
	if err != nil {
		return "", errors.FileError(errors.CodeWriteFailed, target, err)
	}
	tmpName := tmp.Name()

	cleanup := func(cause error) (string, error) {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", errors.FileError(errors.CodeWriteFailed, target, cause)
	}

	if err := wb.file.Write(tmp); err != nil {
		return cleanup(err)
	}

	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}

	if err := os.Chmod(tmpName, 0644); err != nil {
		return cleanup(err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		return cleanup(err)
	}

	wb.logger.WithFields(logger.Fields{
		"source": wb.path,
		"output": target,
	}).Info("Saved updated ledger")

	return target, nil
}

// Close releases the workbook
func (wb *Workbook) Close() error {
	return wb.file.Close()
}
