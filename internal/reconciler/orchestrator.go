// Package reconciler runs the reconciliation of payroll documents against the
// master ledger.
//
// A run validates its inputs, extracts one record per readable document,
// aggregates the records per worker, matches each worker against the ledger
// rows, writes the matched periods and amounts back, rebuilds the review sheet
// and saves the result as a new date-stamped copy of the ledger. The source
// ledger is never modified.
//
// Example usage:
//
//	service, err := reconciler.NewReconciliationService(nil)
//	service.AddProgressCallback(func(progress *reconciler.RunProgress) {
//		fmt.Printf("%s %d/%d\n", progress.CurrentStep, progress.DocumentsRead, progress.DocumentsTotal)
//	})
//
//	result, err := service.Run(ctx, &reconciler.ReconciliationRequest{
//		DocumentsDir: "/payroll/2024-01",
//		LedgerPath:   "/payroll/ledger.xlsx",
//	})
package reconciler

import (
	"context"
	"time"

	"github.com/google/uuid"

	"payroll-reconciliation-service/pkg/errors"
	"payroll-reconciliation-service/pkg/logger"
)

// Run steps, in order
const (
	StepValidate  = "Validating inputs"
	StepList      = "Listing documents"
	StepExtract   = "Extracting documents"
	StepAggregate = "Aggregating records"
	StepLoad      = "Loading ledger"
	StepMatch     = "Matching workers"
	StepWrite     = "Updating ledger"
	StepSave      = "Saving ledger"
	StepDone      = "Completed"
)

const totalSteps = 8

// RunProgress reports the progress of a run
type RunProgress struct {
	RunID           string        `json:"run_id"`
	CurrentStep     string        `json:"current_step"`
	CompletedSteps  int           `json:"completed_steps"`
	TotalSteps      int           `json:"total_steps"`
	PercentComplete float64       `json:"percent_complete"`
	ElapsedTime     time.Duration `json:"elapsed_time"`

	DocumentsTotal int    `json:"documents_total"`
	DocumentsRead  int    `json:"documents_read"`
	CurrentFile    string `json:"current_file,omitempty"`
}

// ProgressCallback is called to report run progress
type ProgressCallback func(*RunProgress)

// AddProgressCallback adds a progress callback function
func (rs *ReconciliationService) AddProgressCallback(callback ProgressCallback) {
	rs.progressCallbacks = append(rs.progressCallbacks, callback)
}

func (rs *ReconciliationService) notify(progress *RunProgress, step string, completed int, start time.Time) {
	progress.CurrentStep = step
	progress.CompletedSteps = completed
	progress.PercentComplete = float64(completed) / float64(progress.TotalSteps) * 100
	progress.ElapsedTime = time.Since(start)

	for _, callback := range rs.progressCallbacks {
		callback(progress)
	}
}

// Run performs one reconciliation. Nothing is written unless every step before
// the save succeeds; unreadable documents are skipped and listed in the result.
func (rs *ReconciliationService) Run(ctx context.Context, request *ReconciliationRequest) (*RunResult, error) {
	if request == nil {
		request = &ReconciliationRequest{}
	}

	startTime := time.Now()
	runID := uuid.NewString()
	progress := &RunProgress{RunID: runID, TotalSteps: totalSteps}

	op := logger.NewOperationLogger("reconciliation", rs.logger).
		WithField("run_id", runID).
		WithField("documents_dir", request.DocumentsDir).
		WithField("ledger", request.LedgerPath)

	fail := func(err error, message string) (*RunResult, error) {
		op.Error(err, message)
		return nil, err
	}

	// Step 1: Validate request
	rs.notify(progress, StepValidate, 0, startTime)
	if err := request.Validate(); err != nil {
		if errors.HasCode(err, errors.CodeNoInput) {
			op.Step("no input selected", logger.Fields{"reason": err.Error()})
			return nil, err
		}
		return fail(err, "Reconciliation request is not usable")
	}

	// Step 2: List documents
	rs.notify(progress, StepList, 1, startTime)
	paths, err := rs.config.Source.List(request.DocumentsDir)
	if err != nil {
		return fail(err, "Failed to list documents")
	}
	progress.DocumentsTotal = len(paths)
	op.Step("listed documents", logger.Fields{"documents": len(paths)})

	// Step 3: Extract documents
	rs.notify(progress, StepExtract, 2, startTime)
	records, skipped, skipErrs, err := rs.extractDocuments(ctx, paths, func(read int, file string) {
		progress.DocumentsRead = read
		progress.CurrentFile = file
		rs.notify(progress, StepExtract, 2, startTime)
	})
	if err != nil {
		return fail(err, "Document extraction interrupted")
	}
	progress.CurrentFile = ""
	extracted := logger.Fields{"records": len(records), "skipped": len(skipped)}
	if skipErrs.Total > 0 {
		extracted["skip_errors"] = skipErrs.Error()
	}
	op.Step("extracted documents", extracted)

	// Step 4: Aggregate
	rs.notify(progress, StepAggregate, 3, startTime)
	aggregated := Aggregate(records)

	// Step 5: Load ledger
	rs.notify(progress, StepLoad, 4, startTime)
	ledger, err := rs.config.Opener(request.LedgerPath, rs.config.Ledger)
	if err != nil {
		return fail(err, "Failed to open ledger")
	}
	defer func() {
		if closeErr := ledger.Close(); closeErr != nil {
			rs.logger.WithError(closeErr).Warn("Failed to close ledger")
		}
	}()
	entries := ledger.Entries()
	op.Step("loaded ledger", logger.Fields{"ledger_rows": len(entries)})

	// Step 6: Match
	rs.notify(progress, StepMatch, 5, startTime)
	assignments := rs.engine.Match(aggregated, entries)

	// Step 7: Write matches and review sheet
	rs.notify(progress, StepWrite, 6, startTime)
	review, err := ApplyMatches(ledger, assignments)
	if err != nil {
		return fail(err, "Failed to update ledger")
	}

	if err := ctx.Err(); err != nil {
		return fail(errors.ReconciliationError(errors.CodeProcessingError, "ledger save", err), "Reconciliation interrupted before save")
	}

	// Step 8: Save
	rs.notify(progress, StepSave, 7, startTime)
	processedAt := rs.config.Now()
	outputPath, err := ledger.SaveVersioned(request.outputDir(), processedAt)
	if err != nil {
		return fail(err, "Failed to save ledger")
	}

	result := &RunResult{
		RunID:        runID,
		DocumentsDir: request.DocumentsDir,
		LedgerPath:   request.LedgerPath,
		OutputPath:   outputPath,
		Documents:    len(paths),
		Skipped:      skipped,
		SkipErrors:   skipErrs,
		Records:      records,
		Aggregated:   aggregated,
		Assignments:  assignments,
		Review:       review,
		ProcessedAt:  processedAt,
	}
	result.Summary = buildSummary(result, len(entries))
	result.Duration = time.Since(startTime)

	rs.notify(progress, StepDone, totalSteps, startTime)

	op.WithField("output", outputPath).
		WithField("matched", result.Summary.Matching.Matched).
		WithField("unmatched", result.Summary.Matching.Unmatched).
		Success("Reconciliation completed")

	return result, nil
}
