package advice

import (
	"context"
	"testing"

	"github.com/openhealth-tools/cardea/internal/domain"
	"github.com/openhealth-tools/cardea/internal/rulestore"
)

type staticSource struct {
	advice []domain.AdviceRule
}

func (s *staticSource) LoadRules(ctx context.Context) ([]domain.Rule, error) {
	return nil, nil
}

func (s *staticSource) LoadAdviceRules(ctx context.Context) ([]domain.AdviceRule, error) {
	return s.advice, nil
}

func newAdvisor(rules ...domain.AdviceRule) *Advisor {
	return New(rulestore.New(&staticSource{advice: rules}), nil)
}

func snapshot(levels map[string]string) map[string]domain.RiskResult {
	out := make(map[string]domain.RiskResult, len(levels))
	for cat, level := range levels {
		out[cat] = domain.RiskResult{Category: cat, Level: level}
	}
	return out
}

func TestAdviceForMediumAndHigh(t *testing.T) {
	advisor := newAdvisor(
		domain.AdviceRule{Category: "diabetes", Condition: "sugar_mgdl >= 126", Advice: "Cut refined sugar"},
		domain.AdviceRule{Category: "heart", Condition: "bp_systolic >= 140", Advice: "Check BP daily"},
		domain.AdviceRule{Category: "liver", Condition: "sugar_mgdl > 0", Advice: "Hydrate"},
	)

	metrics := domain.Context{"sugar_mgdl": 130.0, "bp_systolic": 150.0}
	snap := snapshot(map[string]string{
		"diabetes": domain.LevelHigh,
		"heart":    domain.LevelMedium,
		"liver":    domain.LevelLow,
	})

	items, err := advisor.GetAdvice(context.Background(), snap, metrics)
	if err != nil {
		t.Fatalf("advice failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %v", len(items), items)
	}
	// Sorted category order: diabetes before heart.
	if items[0].Category != "diabetes" || items[1].Category != "heart" {
		t.Errorf("unexpected order: %v", items)
	}
}

// Low-risk categories get no advice even when every condition is true.
func TestLowLevelSuppressed(t *testing.T) {
	advisor := newAdvisor(
		domain.AdviceRule{Category: "liver", Condition: "sugar_mgdl > 0", Advice: "Hydrate"},
		domain.AdviceRule{Category: "liver", Condition: "sugar_mgdl > 1", Advice: "Sleep more"},
	)

	items, err := advisor.GetAdvice(context.Background(),
		snapshot(map[string]string{"liver": domain.LevelLow}),
		domain.Context{"sugar_mgdl": 130.0})
	if err != nil {
		t.Fatalf("advice failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no advice at low level, got %v", items)
	}
}

func TestAdviceDeduplication(t *testing.T) {
	advisor := newAdvisor(
		domain.AdviceRule{Category: "diabetes", Condition: "sugar_mgdl >= 126", Advice: "Cut refined sugar"},
		domain.AdviceRule{Category: "diabetes", Condition: "hba1c_pct >= 6.0", Advice: "Cut refined sugar"},
		domain.AdviceRule{Category: "diabetes", Condition: "sugar_mgdl >= 200", Advice: "See a doctor"},
	)

	metrics := domain.Context{"sugar_mgdl": 210.0, "hba1c_pct": 6.5}
	items, err := advisor.GetAdvice(context.Background(),
		snapshot(map[string]string{"diabetes": domain.LevelHigh}), metrics)
	if err != nil {
		t.Fatalf("advice failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected dedupe to 2 items, got %d: %v", len(items), items)
	}
	if items[0].Advice != "Cut refined sugar" || items[1].Advice != "See a doctor" {
		t.Errorf("first-seen order not preserved: %v", items)
	}
}

func TestAdviceFailClosed(t *testing.T) {
	advisor := newAdvisor(
		domain.AdviceRule{Category: "diabetes", Condition: "unknown_field > 0", Advice: "Never shown"},
		domain.AdviceRule{Category: "diabetes", Condition: "sugar_mgdl >=", Advice: "Never shown either"},
		domain.AdviceRule{Category: "diabetes", Condition: "sugar_mgdl >= 126", Advice: "Cut refined sugar"},
	)

	items, err := advisor.GetAdvice(context.Background(),
		snapshot(map[string]string{"diabetes": domain.LevelHigh}),
		domain.Context{"sugar_mgdl": 130.0})
	if err != nil {
		t.Fatalf("one bad row must not abort the pass: %v", err)
	}
	if len(items) != 1 || items[0].Advice != "Cut refined sugar" {
		t.Errorf("expected only the valid rule to match, got %v", items)
	}
}
