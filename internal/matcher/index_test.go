package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payroll-reconciliation-service/internal/models"
)

func TestNewLedgerIndex(t *testing.T) {
	rows := ledgerRows("Kovács János", "Nagy Ákos", "Kovács János")
	rows = append(rows,
		&models.LedgerRow{Row: 9, Name: "---"},
		nil,
		&models.LedgerRow{Row: 10, Name: "Szabó Péter"},
	)

	index := NewLedgerIndex(rows)

	assert.Equal(t, 4, index.Size())
	assert.Equal(t, IndexStats{Rows: 4, DistinctNames: 3}, index.GetIndexStats())
	assert.Same(t, rows[0], index.ByName["kovacs janos"])
	assert.Same(t, rows[5], index.ByName["szabo peter"], "missing normalized names are derived from the raw name")
}

func TestLedgerIndex_Best(t *testing.T) {
	rows := ledgerRows("Teszt Elek", "Kovács János", "Kovach János")
	index := NewLedgerIndex(rows)

	row, score := index.Best("kovacs janos")
	require.NotNil(t, row)
	assert.Same(t, rows[1], row)
	assert.Equal(t, 100, score)

	row, score = index.Best("kovach janos")
	assert.Same(t, rows[2], row)
	assert.Equal(t, 100, score)

	row, score = index.Best("")
	assert.Nil(t, row)
	assert.Equal(t, 0, score)
}

func TestLedgerIndex_Best_LowScoreStillReported(t *testing.T) {
	index := NewLedgerIndex(ledgerRows("Kovács János"))

	row, score := index.Best("teszt elek")
	require.NotNil(t, row)
	assert.Equal(t, 18, score)
}

func TestLedgerIndex_Best_Empty(t *testing.T) {
	row, score := NewLedgerIndex(nil).Best("kovacs janos")
	assert.Nil(t, row)
	assert.Equal(t, 0, score)
}
