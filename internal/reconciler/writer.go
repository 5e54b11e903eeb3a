package reconciler

import (
	"fmt"

	"payroll-reconciliation-service/internal/models"
	"payroll-reconciliation-service/pkg/errors"
	"payroll-reconciliation-service/pkg/logger"
)

// ApplyMatches writes every accepted assignment back to its ledger row and
// rebuilds the review listing. Only the period and amount fields of matched rows
// are changed. Assignments are applied in order, so when two records share a row
// the later one wins.
func ApplyMatches(ledger Ledger, assignments []*models.MatchAssignment) (*models.ReviewListing, error) {
	if ledger == nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "ledger update",
			fmt.Errorf("ledger is nil"))
	}

	log := logger.WithComponent("reconciliation_writer")

	updated := 0
	for _, assignment := range assignments {
		if !assignment.Matched() {
			continue
		}

		update := models.NewLedgerUpdate(assignment.Record)
		if err := ledger.UpdateEntry(assignment.Row, update); err != nil {
			return nil, errors.ReconciliationError(errors.CodeProcessingError, "ledger update", err).
				WithContext("ledger_row", assignment.Row.Row).
				WithContext("record", assignment.Record.DisplayName)
		}

		log.WithFields(logger.Fields{
			"ledger_row":   assignment.Row.Row,
			"ledger_name":  assignment.Row.Name,
			"period_start": models.FormatDate(update.PeriodStart),
			"period_end":   models.FormatDate(update.PeriodEnd),
			"amount":       update.Amount.String(),
		}).Debug("Updated ledger row")
		updated++
	}

	listing := BuildReviewListing(assignments)
	if err := ledger.ReplaceReview(listing); err != nil {
		return nil, errors.ReconciliationError(errors.CodeProcessingError, "review sheet rebuild", err)
	}

	log.WithFields(logger.Fields{
		"updated_rows": updated,
		"unmatched":    len(listing.Unmatched),
		"multi_period": len(listing.MultiPeriod),
	}).Info("Applied matches to ledger")

	return listing, nil
}

// BuildReviewListing collects the entries of the review sheet. Unmatched records
// come first, in assignment order; an unnamed group built from several documents
// is listed once per document so each file can be checked by hand. Matched
// records built from more than one document form the multi-period group.
func BuildReviewListing(assignments []*models.MatchAssignment) *models.ReviewListing {
	listing := &models.ReviewListing{
		Unmatched:   []models.ReviewEntry{},
		MultiPeriod: []models.ReviewEntry{},
	}

	for _, assignment := range assignments {
		record := assignment.Record

		if assignment.Matched() {
			if record.HasMultiplePeriods() {
				listing.MultiPeriod = append(listing.MultiPeriod, models.NewReviewEntry(models.ReviewMultiPeriod, record))
			}
			continue
		}

		if !record.HasName() && len(record.SourceFiles) > 1 {
			for _, file := range record.SourceFiles {
				entry := models.NewReviewEntry(models.ReviewUnmatched, record)
				entry.SourceFiles = file
				listing.Unmatched = append(listing.Unmatched, entry)
			}
			continue
		}

		listing.Unmatched = append(listing.Unmatched, models.NewReviewEntry(models.ReviewUnmatched, record))
	}

	return listing
}
