package reconciler

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"payroll-reconciliation-service/internal/matcher"
	"payroll-reconciliation-service/internal/models"
)

// Aggregate groups extraction records by normalized worker name. Each group keeps
// the earliest start and latest end seen, the summed amount, the first name seen,
// and the distinct source files in sorted order. Groups are returned sorted by
// normalized name, so the result does not depend on input order except for the
// display name. Records without a name form a single group under the empty key.
func Aggregate(records []*models.ExtractionRecord) []*models.AggregatedRecord {
	groups := make(map[string]*models.AggregatedRecord)
	files := make(map[string]map[string]struct{})

	for _, record := range records {
		if record == nil {
			continue
		}

		key := matcher.NormalizeName(record.Name)
		group, exists := groups[key]
		if !exists {
			display := record.DisplayName()
			if key == "" {
				display = models.NameNotFound
			}
			group = &models.AggregatedRecord{
				NormalizedName: key,
				DisplayName:    display,
				Amount:         decimal.Zero,
			}
			groups[key] = group
			files[key] = make(map[string]struct{})
		}

		group.RecordCount++
		group.Amount = group.Amount.Add(record.Amount)
		group.PeriodStart = earliest(group.PeriodStart, record.PeriodStart)
		group.PeriodEnd = latest(group.PeriodEnd, record.PeriodEnd)

		if record.SourceFile != "" {
			files[key][record.SourceFile] = struct{}{}
		}
	}

	result := make([]*models.AggregatedRecord, 0, len(groups))
	for key, group := range groups {
		group.SourceFiles = make([]string, 0, len(files[key]))
		for file := range files[key] {
			group.SourceFiles = append(group.SourceFiles, file)
		}
		sort.Strings(group.SourceFiles)
		result = append(result, group)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].NormalizedName < result[j].NormalizedName
	})

	return result
}

func earliest(current, candidate *time.Time) *time.Time {
	if candidate == nil {
		return current
	}
	if current == nil || candidate.Before(*current) {
		d := *candidate
		return &d
	}
	return current
}

func latest(current, candidate *time.Time) *time.Time {
	if candidate == nil {
		return current
	}
	if current == nil || candidate.After(*current) {
		d := *candidate
		return &d
	}
	return current
}
