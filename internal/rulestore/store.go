// Package rulestore loads and caches the externally editable rule
// tables that drive risk scoring and advice.
package rulestore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openhealth-tools/cardea/internal/domain"
)

// ErrSchema reports a rule table missing required columns. Schema
// failures are fatal to the store: a malformed table must surface to
// the caller rather than silently degrade scoring.
var ErrSchema = errors.New("rule table schema error")

// Source yields the raw rows of both rule tables.
type Source interface {
	LoadRules(ctx context.Context) ([]domain.Rule, error)
	LoadAdviceRules(ctx context.Context) ([]domain.AdviceRule, error)
}

// Store holds the cached, lazily loaded rule-table snapshots. Reads far
// outnumber reloads; a reload builds complete new snapshots and swaps
// them under the write lock so no reader ever sees a half-updated
// group.
type Store struct {
	mu     sync.RWMutex
	source Source
	rules  *domain.RuleSet
	advice *domain.AdviceSet
}

// New creates a store over the given source. Nothing is loaded until
// first use.
func New(source Source) *Store {
	return &Store{source: source}
}

// Rules returns the cached scoring rule set, loading it on first use.
func (s *Store) Rules(ctx context.Context) (*domain.RuleSet, error) {
	s.mu.RLock()
	rs := s.rules
	s.mu.RUnlock()
	if rs != nil {
		return rs, nil
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rules, nil
}

// AdviceRules returns the cached advice rule set, loading on first use.
func (s *Store) AdviceRules(ctx context.Context) (*domain.AdviceSet, error) {
	s.mu.RLock()
	as := s.advice
	s.mu.RUnlock()
	if as != nil {
		return as, nil
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.advice, nil
}

// Reload re-reads both tables from the source and atomically replaces
// the cached snapshots. Concurrent cold-start loads may race here and
// redundantly re-read the source; the load is a pure function of the
// source, so the last write wins with no correctness impact.
func (s *Store) Reload(ctx context.Context) error {
	rules, err := s.source.LoadRules(ctx)
	if err != nil {
		return fmt.Errorf("loading rule table: %w", err)
	}
	adviceRules, err := s.source.LoadAdviceRules(ctx)
	if err != nil {
		return fmt.Errorf("loading advice table: %w", err)
	}

	ruleSet := domain.NewRuleSet(rules)
	adviceSet := domain.NewAdviceSet(adviceRules)

	s.mu.Lock()
	s.rules = ruleSet
	s.advice = adviceSet
	s.mu.Unlock()
	return nil
}
