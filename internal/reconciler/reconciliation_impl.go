package reconciler

import (
	"context"
	"path/filepath"

	"github.com/shopspring/decimal"

	"payroll-reconciliation-service/internal/matcher"
	"payroll-reconciliation-service/internal/models"
	"payroll-reconciliation-service/pkg/errors"
	"payroll-reconciliation-service/pkg/logger"
)

// extractDocuments reads and extracts every document in order. One document is
// open at a time. A document that cannot be read is logged and skipped; the
// reasons are collected into an error summary. The run only stops when ctx is
// cancelled.
func (rs *ReconciliationService) extractDocuments(
	ctx context.Context,
	paths []string,
	onDocument func(index int, file string),
) ([]*models.ExtractionRecord, []SkippedDocument, *errors.ErrorSummary, error) {

	tracker := logger.NewProgressTracker(logger.ProgressConfig{
		Operation:   "document extraction",
		Total:       int64(len(paths)),
		LogInterval: rs.config.ProgressLogInterval,
		Logger:      rs.logger,
	})

	records := make([]*models.ExtractionRecord, 0, len(paths))
	skipped := make([]SkippedDocument, 0)
	var skipErrs []*errors.ReconcilerError

	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, errors.ReconciliationError(errors.CodeProcessingError, "document extraction", err).
				WithContext("documents_read", i)
		}

		file := filepath.Base(path)

		record, err := rs.extractDocument(path, file)
		if err != nil {
			rs.logger.WithError(err).WithField("file", file).Warn("Skipping document")
			skipped = append(skipped, SkippedDocument{File: file, Reason: skipReason(err)})
			skipErrs = append(skipErrs, asSkipError(err, file))
		} else {
			records = append(records, record)
		}

		tracker.Increment()
		if onDocument != nil {
			onDocument(i+1, file)
		}
	}

	tracker.Complete()

	return records, skipped, errors.NewErrorSummary(skipErrs), nil
}

// asSkipError returns the application error behind a skipped document
func asSkipError(err error, file string) *errors.ReconcilerError {
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return reconcilerErr
	}
	return errors.InternalError(errors.CodeUnexpectedError, "document extraction", err).
		WithContext("file", file)
}

func (rs *ReconciliationService) extractDocument(path, file string) (*models.ExtractionRecord, error) {
	text, err := rs.config.Source.ReadText(path)
	if err != nil {
		return nil, errors.WrapIfNeeded(err, errors.CategoryFile, errors.CodeDocumentUnreadable, "document could not be read")
	}

	record := rs.extractor.Extract(text, file)
	if err := record.Validate(); err != nil {
		return nil, errors.ExtractionError(errors.CodeInvalidData, file, 0, "", err)
	}

	return record, nil
}

// skipReason returns the innermost message of err, which names what went wrong
// without repeating the file name.
func skipReason(err error) string {
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok && reconcilerErr.Cause != nil {
		return reconcilerErr.Cause.Error()
	}
	return err.Error()
}

// buildSummary computes the run summary from the collected results
func buildSummary(result *RunResult, ledgerRows int) RunSummary {
	summary := RunSummary{
		Documents:       result.Documents,
		Extracted:       len(result.Records),
		Skipped:         len(result.Skipped),
		Workers:         len(result.Aggregated),
		LedgerRows:      ledgerRows,
		TotalAmount:     decimal.Zero,
		MatchedAmount:   decimal.Zero,
		UnmatchedAmount: decimal.Zero,
	}

	for _, record := range result.Records {
		// Same key as Aggregate, so names without letters count as unnamed
		if matcher.NormalizeName(record.Name) == "" {
			summary.Unnamed++
		}
		summary.TotalAmount = summary.TotalAmount.Add(record.Amount)
	}

	summary.Matching = matcher.Summarize(result.Assignments)
	for _, assignment := range result.Assignments {
		if assignment.Matched() {
			summary.MatchedAmount = summary.MatchedAmount.Add(assignment.Record.Amount)
		} else {
			summary.UnmatchedAmount = summary.UnmatchedAmount.Add(assignment.Record.Amount)
		}
	}

	if result.Review != nil {
		summary.ReviewUnmatched = len(result.Review.Unmatched)
		summary.ReviewMultiPeriod = len(result.Review.MultiPeriod)
	}

	return summary
}
