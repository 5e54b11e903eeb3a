package matcher

import (
	"payroll-reconciliation-service/internal/models"
)

// LedgerIndex holds the named ledger rows in sheet order together with their
// precomputed token sets, so each record is scored without re-tokenizing the ledger.
type LedgerIndex struct {
	// Entries holds the indexed rows in sheet order
	Entries []*LedgerIndexEntry

	// ByName maps a normalized name to the first row carrying it
	ByName map[string]*models.LedgerRow
}

// LedgerIndexEntry is one indexed ledger row
type LedgerIndexEntry struct {
	Row    *models.LedgerRow
	Tokens tokenSet
}

// NewLedgerIndex indexes the ledger rows that carry a usable name
func NewLedgerIndex(rows []*models.LedgerRow) *LedgerIndex {
	index := &LedgerIndex{
		Entries: make([]*LedgerIndexEntry, 0, len(rows)),
		ByName:  make(map[string]*models.LedgerRow),
	}

	for _, row := range rows {
		index.Add(row)
	}

	return index
}

// Add appends a row to the index. Rows whose name normalizes to nothing are ignored.
func (li *LedgerIndex) Add(row *models.LedgerRow) {
	if row == nil {
		return
	}

	key := row.NormalizedName
	if key == "" {
		key = NormalizeName(row.Name)
	}

	tokens := newTokenSet(key)
	if len(tokens) == 0 {
		return
	}

	li.Entries = append(li.Entries, &LedgerIndexEntry{Row: row, Tokens: tokens})
	if _, exists := li.ByName[key]; !exists {
		li.ByName[key] = row
	}
}

// Best returns the highest scoring row for a normalized name. Ties keep the
// earliest row. It returns a nil row and zero score for an empty index or name.
func (li *LedgerIndex) Best(normalizedName string) (*models.LedgerRow, int) {
	tokens := newTokenSet(normalizedName)
	if len(tokens) == 0 {
		return nil, 0
	}

	var best *models.LedgerRow
	bestScore := -1
	for _, entry := range li.Entries {
		score := tokenSetRatio(tokens, entry.Tokens)
		if score > bestScore {
			best = entry.Row
			bestScore = score
		}
		if bestScore == 100 {
			break
		}
	}

	if best == nil {
		return nil, 0
	}
	return best, bestScore
}

// Size returns the number of indexed rows
func (li *LedgerIndex) Size() int {
	return len(li.Entries)
}

// IndexStats summarizes the index contents
type IndexStats struct {
	Rows          int `json:"rows"`
	DistinctNames int `json:"distinct_names"`
}

// GetIndexStats returns statistics about the index
func (li *LedgerIndex) GetIndexStats() IndexStats {
	return IndexStats{
		Rows:          len(li.Entries),
		DistinctNames: len(li.ByName),
	}
}
