package rulestore

import (
	"context"

	"github.com/openhealth-tools/cardea/internal/domain"
)

// RepositorySource reads the rule tables from the database. Rows come
// back in table order, so group ordering matches what was seeded.
type RepositorySource struct {
	Repo domain.Repository
}

func (s *RepositorySource) LoadRules(ctx context.Context) ([]domain.Rule, error) {
	return s.Repo.ListRules(ctx)
}

func (s *RepositorySource) LoadAdviceRules(ctx context.Context) ([]domain.AdviceRule, error) {
	return s.Repo.ListAdviceRules(ctx)
}

// SeedFromCSV copies CSV rule tables into the repository, preserving
// row order. Used once when a Pro deployment migrates off file-based
// tables.
func SeedFromCSV(ctx context.Context, csvSource *CSVSource, repo domain.Repository) error {
	rules, err := csvSource.LoadRules(ctx)
	if err != nil {
		return err
	}
	for i, r := range rules {
		rule := r
		if err := repo.SaveRule(ctx, i, &rule); err != nil {
			return err
		}
	}

	adviceRules, err := csvSource.LoadAdviceRules(ctx)
	if err != nil {
		return err
	}
	for i, r := range adviceRules {
		rule := r
		if err := repo.SaveAdviceRule(ctx, i, &rule); err != nil {
			return err
		}
	}
	return nil
}
