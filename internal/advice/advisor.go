// Package advice derives personalized advice from a risk snapshot.
package advice

import (
	"context"
	"sort"

	"github.com/openhealth-tools/cardea/internal/condition"
	"github.com/openhealth-tools/cardea/internal/domain"
	"github.com/openhealth-tools/cardea/internal/rulestore"
)

// Advisor evaluates the advice rule table against a metrics context for
// every category the risk snapshot flags medium or high.
type Advisor struct {
	store *rulestore.Store
	eval  *condition.Evaluator
}

// New creates an advisor. Pass the scoring engine's evaluator to share
// its parse cache; a nil evaluator gets a fresh one.
func New(store *rulestore.Store, eval *condition.Evaluator) *Advisor {
	if eval == nil {
		eval = condition.NewEvaluator()
	}
	return &Advisor{store: store, eval: eval}
}

// GetAdvice returns deduplicated advice for the medium/high categories
// in the snapshot. Conditions evaluate fail-closed, same as scoring: a
// malformed advice row contributes nothing and aborts nothing. Snapshot
// categories are visited in sorted order so output is deterministic;
// within a category, advice keeps table order, and duplicate
// (category, advice) pairs collapse to their first occurrence.
func (a *Advisor) GetAdvice(ctx context.Context, snapshot map[string]domain.RiskResult, metrics domain.Context) ([]domain.AdviceItem, error) {
	rules, err := a.store.AdviceRules(ctx)
	if err != nil {
		return nil, err
	}

	categories := make([]string, 0, len(snapshot))
	for cat := range snapshot {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	type key struct{ category, advice string }
	seen := make(map[key]bool)
	var out []domain.AdviceItem

	for _, cat := range categories {
		level := snapshot[cat].Level
		if level != domain.LevelMedium && level != domain.LevelHigh {
			continue
		}
		for _, rule := range rules.Group(cat) {
			if !a.eval.Matches(rule.Condition, metrics) {
				continue
			}
			k := key{category: cat, advice: rule.Advice}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, domain.AdviceItem{Category: cat, Advice: rule.Advice})
		}
	}

	return out, nil
}
