package assess

import (
	"context"
	"testing"
	"time"

	"github.com/openhealth-tools/cardea/internal/advice"
	"github.com/openhealth-tools/cardea/internal/domain"
	"github.com/openhealth-tools/cardea/internal/risk"
	"github.com/openhealth-tools/cardea/internal/rulestore"
)

type staticSource struct {
	rules  []domain.Rule
	advice []domain.AdviceRule
}

func (s *staticSource) LoadRules(ctx context.Context) ([]domain.Rule, error) {
	return s.rules, nil
}

func (s *staticSource) LoadAdviceRules(ctx context.Context) ([]domain.AdviceRule, error) {
	return s.advice, nil
}

func testProcessor() *Processor {
	store := rulestore.New(&staticSource{
		rules: []domain.Rule{
			{Category: "diabetes", Signal: "Sugar and BMI", Condition: "sugar_mgdl >= 126 and bmi >= 30", Weight: 60},
			{Category: "diabetes", Signal: "HbA1c", Condition: "hba1c_pct >= 6.5", Weight: 40},
			{Category: "heart", Signal: "BP", Condition: "bp_systolic >= 140", Weight: 100},
		},
		advice: []domain.AdviceRule{
			{Category: "diabetes", Condition: "sugar_mgdl >= 126", Advice: "Cut refined sugar"},
			{Category: "diabetes", Condition: "bmi >= 30", Advice: "Increase weekly exercise"},
			{Category: "heart", Condition: "bp_systolic >= 140", Advice: "Check BP daily"},
		},
	})
	engine := risk.NewEngine(store)
	return NewProcessor(engine, advice.New(store, engine.Evaluator()))
}

func testRecord() *domain.MetricRecord {
	return &domain.MetricRecord{
		PatientID:   "p-1",
		Timestamp:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		HeightCm:    170,
		WeightKg:    89.7,
		SugarMgdl:   130,
		HbA1cPct:    5.5,
		BPSystolic:  120,
		BPDiastolic: 80,
	}
}

func TestProcess(t *testing.T) {
	p := testProcessor()

	a, err := p.Process(context.Background(), testRecord())
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}

	if a.ID == "" {
		t.Error("expected generated assessment ID")
	}
	if a.PatientID != "p-1" {
		t.Errorf("unexpected patient: %s", a.PatientID)
	}
	if !a.Timestamp.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("record timestamp not preserved: %v", a.Timestamp)
	}

	diabetes := a.Risks["diabetes"]
	if diabetes.ScorePct != 60 || diabetes.Level != domain.LevelMedium {
		t.Errorf("unexpected diabetes risk: %+v", diabetes)
	}
	heart := a.Risks["heart"]
	if heart.ScorePct != 0 || heart.Level != domain.LevelLow {
		t.Errorf("unexpected heart risk: %+v", heart)
	}

	// Advice only for the medium diabetes category; heart is low.
	if len(a.Advice) != 2 {
		t.Fatalf("expected 2 advice items, got %v", a.Advice)
	}
	for _, item := range a.Advice {
		if item.Category != "diabetes" {
			t.Errorf("unexpected advice category: %+v", item)
		}
	}
}

func TestProcessStampsTimeWhenMissing(t *testing.T) {
	p := testProcessor()
	rec := testRecord()
	rec.Timestamp = time.Time{}

	before := time.Now().UTC()
	a, err := p.Process(context.Background(), rec)
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if a.Timestamp.Before(before) {
		t.Errorf("expected fresh timestamp, got %v", a.Timestamp)
	}
}
