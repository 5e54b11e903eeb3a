// Package matcher links aggregated payroll records to ledger rows by worker name.
//
// Names are compared on their normalized form (see NormalizeName) with a
// token-set similarity score from 0 to 100. The score ignores token order and
// repeated tokens, so "Nagy Ákos" and "akos nagy" compare equal, and a name whose
// tokens are a subset of the other's scores 100.
//
// Matching rules:
//  1. Every named record is scored against every named ledger row.
//  2. The highest score wins; ties go to the earliest ledger row.
//  3. A record is matched only when its best score reaches MatchThreshold.
//  4. The unnamed group is never matched.
//
// Example usage:
//
//	engine := matcher.NewMatchingEngine(nil)
//	assignments := engine.Match(aggregated, ledger.Entries())
package matcher

import (
	"payroll-reconciliation-service/internal/models"
)

// MatchThreshold is the minimum token-set score at which a ledger row is accepted
const MatchThreshold = 70

// MatchType describes how an accepted match relates to the ledger name
type MatchType int

const (
	// NoMatch means no ledger row reached the threshold
	NoMatch MatchType = iota

	// ExactMatch means the normalized names are identical
	ExactMatch

	// ReversedMatch means the normalized names are identical once token order is reversed,
	// typically a family-name-first versus given-name-first spelling
	ReversedMatch

	// FuzzyMatch means the names differ but scored at or above the threshold
	FuzzyMatch
)

// String returns the string representation of MatchType
func (mt MatchType) String() string {
	switch mt {
	case NoMatch:
		return "unmatched"
	case ExactMatch:
		return "exact"
	case ReversedMatch:
		return "reversed"
	case FuzzyMatch:
		return "fuzzy"
	default:
		return "unknown"
	}
}

// ClassifyAssignment returns the MatchType of an assignment produced by the engine
func ClassifyAssignment(assignment *models.MatchAssignment) MatchType {
	if assignment == nil || !assignment.Matched() {
		return NoMatch
	}

	recordName := assignment.Record.NormalizedName
	rowName := assignment.Row.NormalizedName

	switch {
	case recordName == rowName:
		return ExactMatch
	case ReverseName(recordName) == rowName:
		return ReversedMatch
	default:
		return FuzzyMatch
	}
}

// MatchingConfig holds optional matching behaviour
type MatchingConfig struct {
	// WarnOnSharedRows logs a warning when two records resolve to the same ledger row.
	WarnOnSharedRows bool `json:"warn_on_shared_rows"`
}

// DefaultMatchingConfig returns the default matching configuration
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		WarnOnSharedRows: true,
	}
}
