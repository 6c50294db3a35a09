// Package history provides patient metric-record retrieval for trend
// replay.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/openhealth-tools/cardea/internal/domain"
)

// DefaultTTL bounds how stale a cached history may get. Writes
// invalidate eagerly, so the TTL only matters for out-of-band edits.
const DefaultTTL = 5 * time.Minute

// Service reads a patient's metric history, cache-aside over the
// repository.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewService creates a history service. cache may be nil, which
// degrades to repository-only reads.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   DefaultTTL,
	}
}

// Records returns the patient's metric records in chronological order,
// oldest first. Cache errors fall through to the repository; the cache
// is an optimization, never a source of truth.
func (s *Service) Records(ctx context.Context, patientID string) ([]*domain.MetricRecord, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patientID is required")
	}

	if s.cache != nil {
		if records, err := s.cache.GetRecords(ctx, patientID); err == nil && records != nil {
			return records, nil
		}
	}

	if s.repo == nil {
		return nil, fmt.Errorf("no data source available")
	}

	records, err := s.repo.ListMetricRecords(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list metric records: %w", err)
	}

	if s.cache != nil && len(records) > 0 {
		_ = s.cache.SetRecords(ctx, patientID, records, s.ttl)
	}

	return records, nil
}

// Append persists a new record and invalidates the patient's cached
// history so the next trend replay sees it.
func (s *Service) Append(ctx context.Context, rec *domain.MetricRecord) error {
	if rec.PatientID == "" {
		return fmt.Errorf("patientID is required")
	}
	if s.repo == nil {
		return fmt.Errorf("no data source available")
	}

	if err := s.repo.SaveMetricRecord(ctx, rec); err != nil {
		return fmt.Errorf("failed to save metric record: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.InvalidateRecords(ctx, rec.PatientID)
	}
	return nil
}

// Latest returns the patient's most recent metric record.
func (s *Service) Latest(ctx context.Context, patientID string) (*domain.MetricRecord, error) {
	if patientID == "" {
		return nil, fmt.Errorf("patientID is required")
	}
	if s.repo == nil {
		return nil, fmt.Errorf("no data source available")
	}
	return s.repo.GetLatestMetricRecord(ctx, patientID)
}
