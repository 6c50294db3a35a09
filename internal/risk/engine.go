// Package risk implements the weighted rule-scoring engine.
package risk

import (
	"context"

	"github.com/openhealth-tools/cardea/internal/condition"
	"github.com/openhealth-tools/cardea/internal/domain"
	"github.com/openhealth-tools/cardea/internal/rulestore"
)

// Engine scores a metrics context against the cached rule tables. All
// evaluation is pure computation; the only shared state is the store's
// snapshot and the evaluator's parse cache, both safe for concurrent
// use.
type Engine struct {
	store *rulestore.Store
	eval  *condition.Evaluator
}

// NewEngine creates a scoring engine over a rule store.
func NewEngine(store *rulestore.Store) *Engine {
	return &Engine{
		store: store,
		eval:  condition.NewEvaluator(),
	}
}

// Evaluator exposes the shared condition evaluator so the advisor can
// reuse its parse cache.
func (e *Engine) Evaluator() *condition.Evaluator {
	return e.eval
}

// ComputeSnapshot scores every rule group against the metrics context
// and returns one RiskResult per category.
//
// Per group: totalWeight sums all rule weights (zero degenerates to 1
// so an all-zero group scores 0 instead of dividing by zero); each rule
// evaluates fail-closed against the BMI-augmented context; the earned
// weight normalizes to a clamped 0-100 score, bucketed into a level.
// matchedSignals preserves the table order of rules within the group.
//
// A table load failure (schema error) surfaces; per-rule evaluation
// errors never do.
func (e *Engine) ComputeSnapshot(ctx context.Context, metrics domain.Context) (map[string]domain.RiskResult, error) {
	rules, err := e.store.Rules(ctx)
	if err != nil {
		return nil, err
	}

	augmented := metrics.WithBMI()

	results := make(map[string]domain.RiskResult, len(rules.Categories()))
	for _, category := range rules.Categories() {
		group := rules.Group(category)

		totalWeight := 0.0
		for _, r := range group {
			totalWeight += r.Weight
		}
		if totalWeight == 0 {
			totalWeight = 1.0
		}

		earned := 0.0
		var matched []string
		for _, r := range group {
			if e.eval.Matches(r.Condition, augmented) {
				earned += r.Weight
				matched = append(matched, r.Signal)
			}
		}

		scorePct := clamp(earned/totalWeight*100.0, 0, 100)
		results[category] = domain.RiskResult{
			Category:       category,
			ScorePct:       scorePct,
			Score:          scorePct / 100.0,
			Level:          domain.BucketRisk(scorePct),
			MatchedSignals: matched,
		}
	}

	return results, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
