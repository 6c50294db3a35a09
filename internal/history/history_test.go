package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/openhealth-tools/cardea/internal/domain"
)

type fakeRepo struct {
	records   map[string][]*domain.MetricRecord
	listCalls int
}

func (f *fakeRepo) SavePatient(ctx context.Context, p *domain.Patient) error { return nil }
func (f *fakeRepo) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	return nil, fmt.Errorf("not found")
}

func (f *fakeRepo) SaveMetricRecord(ctx context.Context, rec *domain.MetricRecord) error {
	if f.records == nil {
		f.records = make(map[string][]*domain.MetricRecord)
	}
	f.records[rec.PatientID] = append(f.records[rec.PatientID], rec)
	return nil
}

func (f *fakeRepo) ListMetricRecords(ctx context.Context, patientID string) ([]*domain.MetricRecord, error) {
	f.listCalls++
	return f.records[patientID], nil
}

func (f *fakeRepo) GetLatestMetricRecord(ctx context.Context, patientID string) (*domain.MetricRecord, error) {
	recs := f.records[patientID]
	if len(recs) == 0 {
		return nil, fmt.Errorf("no records")
	}
	return recs[len(recs)-1], nil
}

func (f *fakeRepo) SaveAssessment(ctx context.Context, a *domain.Assessment) error { return nil }
func (f *fakeRepo) GetAssessment(ctx context.Context, id string) (*domain.Assessment, error) {
	return nil, fmt.Errorf("not found")
}
func (f *fakeRepo) SaveRule(ctx context.Context, position int, r *domain.Rule) error { return nil }
func (f *fakeRepo) ListRules(ctx context.Context) ([]domain.Rule, error)             { return nil, nil }
func (f *fakeRepo) SaveAdviceRule(ctx context.Context, position int, r *domain.AdviceRule) error {
	return nil
}
func (f *fakeRepo) ListAdviceRules(ctx context.Context) ([]domain.AdviceRule, error) {
	return nil, nil
}
func (f *fakeRepo) Ping(ctx context.Context) error { return nil }
func (f *fakeRepo) Close() error                   { return nil }

type fakeCache struct {
	records     map[string][]*domain.MetricRecord
	invalidated []string
}

func (f *fakeCache) Get(ctx context.Context, key string) ([]byte, error) { return nil, nil }
func (f *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (f *fakeCache) Delete(ctx context.Context, key string) error { return nil }

func (f *fakeCache) GetRecords(ctx context.Context, patientID string) ([]*domain.MetricRecord, error) {
	return f.records[patientID], nil
}

func (f *fakeCache) SetRecords(ctx context.Context, patientID string, records []*domain.MetricRecord, ttl time.Duration) error {
	if f.records == nil {
		f.records = make(map[string][]*domain.MetricRecord)
	}
	f.records[patientID] = records
	return nil
}

func (f *fakeCache) InvalidateRecords(ctx context.Context, patientID string) error {
	delete(f.records, patientID)
	f.invalidated = append(f.invalidated, patientID)
	return nil
}

func (f *fakeCache) Ping(ctx context.Context) error { return nil }
func (f *fakeCache) Close() error                   { return nil }

func sampleRecord(patientID string, sugar float64) *domain.MetricRecord {
	return &domain.MetricRecord{
		PatientID: patientID,
		Timestamp: time.Now().UTC(),
		SugarMgdl: sugar,
	}
}

func TestRecordsCacheAside(t *testing.T) {
	repo := &fakeRepo{}
	cache := &fakeCache{}
	svc := NewService(repo, cache)
	ctx := context.Background()

	if err := svc.Append(ctx, sampleRecord("p-1", 110)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := svc.Append(ctx, sampleRecord("p-1", 130)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	records, err := svc.Records(ctx, "p-1")
	if err != nil {
		t.Fatalf("records failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if repo.listCalls != 1 {
		t.Errorf("expected 1 repository read, got %d", repo.listCalls)
	}

	// Second read must be served from cache.
	if _, err := svc.Records(ctx, "p-1"); err != nil {
		t.Fatalf("records failed: %v", err)
	}
	if repo.listCalls != 1 {
		t.Errorf("cache not used: %d repository reads", repo.listCalls)
	}
}

func TestAppendInvalidatesCache(t *testing.T) {
	repo := &fakeRepo{}
	cache := &fakeCache{}
	svc := NewService(repo, cache)
	ctx := context.Background()

	if err := svc.Append(ctx, sampleRecord("p-1", 110)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if _, err := svc.Records(ctx, "p-1"); err != nil {
		t.Fatalf("records failed: %v", err)
	}

	if err := svc.Append(ctx, sampleRecord("p-1", 140)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if len(cache.invalidated) != 2 {
		t.Errorf("expected invalidation per append, got %v", cache.invalidated)
	}

	records, err := svc.Records(ctx, "p-1")
	if err != nil {
		t.Fatalf("records failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("stale read after append: %d records", len(records))
	}
}

func TestRecordsWithoutCache(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	if err := svc.Append(ctx, sampleRecord("p-2", 95)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	records, err := svc.Records(ctx, "p-2")
	if err != nil {
		t.Fatalf("records failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected 1 record, got %d", len(records))
	}
}

func TestLatest(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil)
	ctx := context.Background()

	if err := svc.Append(ctx, sampleRecord("p-3", 100)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := svc.Append(ctx, sampleRecord("p-3", 125)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	latest, err := svc.Latest(ctx, "p-3")
	if err != nil {
		t.Fatalf("latest failed: %v", err)
	}
	if latest.SugarMgdl != 125 {
		t.Errorf("expected most recent record, got sugar %.0f", latest.SugarMgdl)
	}
}

func TestEmptyPatientID(t *testing.T) {
	svc := NewService(&fakeRepo{}, nil)
	if _, err := svc.Records(context.Background(), ""); err == nil {
		t.Error("expected error for empty patient id")
	}
	if err := svc.Append(context.Background(), &domain.MetricRecord{}); err == nil {
		t.Error("expected error for record without patient id")
	}
}
