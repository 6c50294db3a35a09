package trend

import (
	"context"
	"testing"
	"time"

	"github.com/openhealth-tools/cardea/internal/domain"
	"github.com/openhealth-tools/cardea/internal/risk"
	"github.com/openhealth-tools/cardea/internal/rulestore"
)

type staticSource struct {
	rules []domain.Rule
}

func (s *staticSource) LoadRules(ctx context.Context) ([]domain.Rule, error) {
	return s.rules, nil
}

func (s *staticSource) LoadAdviceRules(ctx context.Context) ([]domain.AdviceRule, error) {
	return nil, nil
}

func testEngine() *risk.Engine {
	return risk.NewEngine(rulestore.New(&staticSource{rules: []domain.Rule{
		{Category: "diabetes", Signal: "Sugar", Condition: "sugar_mgdl >= 126", Weight: 100},
		{Category: "heart", Signal: "BP", Condition: "bp_systolic >= 140", Weight: 100},
	}}))
}

func record(ts time.Time, sugar, bpSys float64) *domain.MetricRecord {
	return &domain.MetricRecord{
		PatientID:   "p-1",
		Timestamp:   ts,
		HeightCm:    170,
		WeightKg:    80,
		SugarMgdl:   sugar,
		BPSystolic:  bpSys,
		BPDiastolic: 85,
		HbA1cPct:    5.8,
	}
}

func TestComputeTrend(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.MetricRecord{
		record(t0, 110, 120),
		record(t0.AddDate(0, 1, 0), 130, 145),
		record(t0.AddDate(0, 2, 0), 140, 150),
	}

	series, err := Compute(context.Background(), records, testEngine())
	if err != nil {
		t.Fatalf("trend failed: %v", err)
	}

	if len(series.Timestamps) != 3 {
		t.Fatalf("expected 3 timestamps, got %d", len(series.Timestamps))
	}
	if series.Timestamps[0] != "2025-01-01T00:00:00Z" {
		t.Errorf("unexpected timestamp format: %s", series.Timestamps[0])
	}

	if len(series.Metrics.Sugar) != 3 || series.Metrics.Sugar[2] != 140 {
		t.Errorf("unexpected sugar series: %v", series.Metrics.Sugar)
	}
	wantBMI := 80.0 / (1.7 * 1.7)
	if got := series.Metrics.BMI[0]; got < wantBMI-1e-9 || got > wantBMI+1e-9 {
		t.Errorf("unexpected derived BMI: %v", got)
	}

	diabetes := series.RiskEvolution["diabetes"]
	want := []float64{0, 1, 1}
	if len(diabetes) != 3 {
		t.Fatalf("expected 3 diabetes scores, got %v", diabetes)
	}
	for i := range want {
		if diabetes[i] != want[i] {
			t.Errorf("diabetes[%d]: got %v, want %v", i, diabetes[i], want[i])
		}
	}

	heart := series.RiskEvolution["heart"]
	if heart[0] != 0 || heart[1] != 1 || heart[2] != 1 {
		t.Errorf("unexpected heart series: %v", heart)
	}
}

func TestEmptyRecordSequence(t *testing.T) {
	series, err := Compute(context.Background(), nil, testEngine())
	if err != nil {
		t.Fatalf("trend failed: %v", err)
	}

	if len(series.Timestamps) != 0 {
		t.Errorf("expected empty timestamps, got %v", series.Timestamps)
	}
	if len(series.Metrics.Sugar) != 0 || len(series.Metrics.BMI) != 0 {
		t.Errorf("expected empty metric series")
	}
	if len(series.RiskEvolution) != 0 {
		t.Errorf("expected empty category map, got %v", series.RiskEvolution)
	}
	// Empty, not nil: the series must serialize as [] and {}.
	if series.Timestamps == nil || series.RiskEvolution == nil {
		t.Error("series must be initialized for serialization")
	}
}

func TestRecordsNotReordered(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// Deliberately out of order: the aggregator must not sort.
	records := []*domain.MetricRecord{
		record(t0.AddDate(0, 1, 0), 130, 120),
		record(t0, 110, 120),
	}

	series, err := Compute(context.Background(), records, testEngine())
	if err != nil {
		t.Fatalf("trend failed: %v", err)
	}
	if series.Metrics.Sugar[0] != 130 || series.Metrics.Sugar[1] != 110 {
		t.Errorf("caller order not preserved: %v", series.Metrics.Sugar)
	}
}
