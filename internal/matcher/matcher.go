package matcher

import (
	"payroll-reconciliation-service/internal/models"
	"payroll-reconciliation-service/pkg/logger"
)

// MatchingEngine assigns aggregated records to ledger rows by name similarity
type MatchingEngine struct {
	Config *MatchingConfig
	logger logger.Logger
}

// MatchSummary counts the outcome of one matching pass
type MatchSummary struct {
	TotalRecords int `json:"total_records"`
	Matched      int `json:"matched"`
	Unmatched    int `json:"unmatched"`
	Exact        int `json:"exact"`
	Reversed     int `json:"reversed"`
	Fuzzy        int `json:"fuzzy"`
	SharedRows   int `json:"shared_rows"`
}

// NewMatchingEngine creates a new matching engine with the specified configuration
func NewMatchingEngine(config *MatchingConfig) *MatchingEngine {
	if config == nil {
		config = DefaultMatchingConfig()
	}

	return &MatchingEngine{
		Config: config,
		logger: logger.WithComponent("identity_matcher"),
	}
}

// Match returns exactly one assignment per record, in record order. A record is
// assigned the best scoring ledger row when that score reaches MatchThreshold;
// otherwise, and always for the unnamed group, the assignment has no row.
func (me *MatchingEngine) Match(records []*models.AggregatedRecord, rows []*models.LedgerRow) []*models.MatchAssignment {
	index := NewLedgerIndex(rows)
	stats := index.GetIndexStats()
	me.logger.WithFields(logger.Fields{
		"records":        len(records),
		"ledger_rows":    stats.Rows,
		"distinct_names": stats.DistinctNames,
	}).Debug("Matching records against ledger")

	assignments := make([]*models.MatchAssignment, 0, len(records))
	claimed := make(map[int]*models.AggregatedRecord)

	for _, record := range records {
		assignment := me.matchRecord(index, record)
		assignments = append(assignments, assignment)

		if !assignment.Matched() {
			continue
		}

		if previous, exists := claimed[assignment.Row.Row]; exists && me.Config.WarnOnSharedRows {
			me.logger.WithFields(logger.Fields{
				"ledger_row":      assignment.Row.Row,
				"ledger_name":     assignment.Row.Name,
				"previous_record": previous.DisplayName,
				"record":          record.DisplayName,
			}).Warn("Ledger row matched by more than one record; the later record overwrites it")
		}
		claimed[assignment.Row.Row] = record
	}

	return assignments
}

func (me *MatchingEngine) matchRecord(index *LedgerIndex, record *models.AggregatedRecord) *models.MatchAssignment {
	assignment := &models.MatchAssignment{Record: record}
	if !record.HasName() {
		return assignment
	}

	row, score := index.Best(record.NormalizedName)
	assignment.Score = score

	fields := logger.Fields{
		"record": record.NormalizedName,
		"score":  score,
	}
	if row != nil {
		fields["candidate"] = row.NormalizedName
		fields["ledger_row"] = row.Row
	}

	if row == nil || score < MatchThreshold {
		me.logger.WithFields(fields).Debug("No ledger row reached the match threshold")
		return assignment
	}

	assignment.Row = row
	me.logger.WithFields(fields).Debug("Matched record to ledger row")
	return assignment
}

// Summarize counts matched and unmatched assignments by MatchType
func Summarize(assignments []*models.MatchAssignment) MatchSummary {
	summary := MatchSummary{TotalRecords: len(assignments)}
	rows := make(map[int]int)

	for _, assignment := range assignments {
		switch ClassifyAssignment(assignment) {
		case NoMatch:
			summary.Unmatched++
			continue
		case ExactMatch:
			summary.Exact++
		case ReversedMatch:
			summary.Reversed++
		case FuzzyMatch:
			summary.Fuzzy++
		}
		summary.Matched++
		rows[assignment.Row.Row]++
	}

	for _, count := range rows {
		if count > 1 {
			summary.SharedRows++
		}
	}

	return summary
}
