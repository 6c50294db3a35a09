// Package trend replays the risk scoring engine over historical metric
// records to build chart-friendly series.
package trend

import (
	"context"
	"sort"
	"time"

	"github.com/openhealth-tools/cardea/internal/domain"
)

// Scorer is the slice of the risk engine the aggregator needs.
type Scorer interface {
	ComputeSnapshot(ctx context.Context, metrics domain.Context) (map[string]domain.RiskResult, error)
}

// Compute replays scoring over records, which must already be in
// chronological order; the aggregator does not sort them. Each record
// contributes one entry to the timestamp and raw metric series and one
// 0-1 score per category present in its snapshot. Categories absent
// from a record's snapshot simply skip that index, so per-category
// series may be shorter than Timestamps. The output map carries the
// union of all categories seen, keyed in sorted order for stable
// serialization.
func Compute(ctx context.Context, records []*domain.MetricRecord, scorer Scorer) (*domain.TrendSeries, error) {
	series := &domain.TrendSeries{
		Timestamps:    []string{},
		RiskEvolution: map[string][]float64{},
		Metrics: domain.MetricSeries{
			Sugar:       []float64{},
			BPSystolic:  []float64{},
			BPDiastolic: []float64{},
			HbA1c:       []float64{},
			Cholesterol: []float64{},
			BMI:         []float64{},
		},
	}

	evolution := make(map[string][]float64)

	for _, rec := range records {
		series.Timestamps = append(series.Timestamps, rec.Timestamp.UTC().Format(time.RFC3339))
		series.Metrics.Sugar = append(series.Metrics.Sugar, rec.SugarMgdl)
		series.Metrics.BPSystolic = append(series.Metrics.BPSystolic, rec.BPSystolic)
		series.Metrics.BPDiastolic = append(series.Metrics.BPDiastolic, rec.BPDiastolic)
		series.Metrics.HbA1c = append(series.Metrics.HbA1c, rec.HbA1cPct)
		series.Metrics.Cholesterol = append(series.Metrics.Cholesterol, rec.CholesterolMgdl)
		series.Metrics.BMI = append(series.Metrics.BMI, domain.ComputeBMI(rec.HeightCm, rec.WeightKg))

		snapshot, err := scorer.ComputeSnapshot(ctx, rec.Context())
		if err != nil {
			return nil, err
		}
		for category, result := range snapshot {
			evolution[category] = append(evolution[category], result.Score)
		}
	}

	// Rebuild with sorted keys so encoding order is deterministic.
	keys := make([]string, 0, len(evolution))
	for k := range evolution {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		series.RiskEvolution[k] = evolution[k]
	}

	return series, nil
}
