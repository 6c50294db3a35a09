package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/openhealth-tools/cardea/internal/domain"
)

func testRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "cardea-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := testRepo(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetPatient", func(t *testing.T) {
		now := time.Now().UTC().Truncate(time.Second)
		p := &domain.Patient{
			ID:        "p-001",
			Age:       52,
			Gender:    "female",
			HeightCm:  168,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := repo.SavePatient(ctx, p); err != nil {
			t.Fatalf("SavePatient failed: %v", err)
		}

		got, err := repo.GetPatient(ctx, "p-001")
		if err != nil {
			t.Fatalf("GetPatient failed: %v", err)
		}
		if got.Age != 52 || got.Gender != "female" {
			t.Errorf("unexpected patient: %+v", got)
		}

		// Upsert must overwrite, not duplicate.
		p.Age = 53
		if err := repo.SavePatient(ctx, p); err != nil {
			t.Fatalf("SavePatient upsert failed: %v", err)
		}
		got, err = repo.GetPatient(ctx, "p-001")
		if err != nil {
			t.Fatalf("GetPatient failed: %v", err)
		}
		if got.Age != 53 {
			t.Errorf("upsert did not apply: %+v", got)
		}
	})

	t.Run("GetPatientNotFound", func(t *testing.T) {
		_, err := repo.GetPatient(ctx, "no-such-patient")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("MetricRecordsChronological", func(t *testing.T) {
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		// Insert out of order; reads must come back oldest first.
		for _, months := range []int{2, 0, 1} {
			rec := &domain.MetricRecord{
				PatientID:   "p-002",
				Timestamp:   base.AddDate(0, months, 0),
				HeightCm:    170,
				WeightKg:    80,
				SugarMgdl:   100 + float64(months)*10,
				BPSystolic:  120,
				BPDiastolic: 80,
			}
			if err := repo.SaveMetricRecord(ctx, rec); err != nil {
				t.Fatalf("SaveMetricRecord failed: %v", err)
			}
			if rec.ID == "" {
				t.Error("expected generated record ID")
			}
		}

		records, err := repo.ListMetricRecords(ctx, "p-002")
		if err != nil {
			t.Fatalf("ListMetricRecords failed: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected 3 records, got %d", len(records))
		}
		for i := 1; i < len(records); i++ {
			if records[i].Timestamp.Before(records[i-1].Timestamp) {
				t.Errorf("records not chronological at %d", i)
			}
		}

		latest, err := repo.GetLatestMetricRecord(ctx, "p-002")
		if err != nil {
			t.Fatalf("GetLatestMetricRecord failed: %v", err)
		}
		if latest.SugarMgdl != 120 {
			t.Errorf("expected most recent record, got sugar %.0f", latest.SugarMgdl)
		}
	})

	t.Run("LatestNotFound", func(t *testing.T) {
		_, err := repo.GetLatestMetricRecord(ctx, "no-such-patient")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("SaveAndGetAssessment", func(t *testing.T) {
		a := &domain.Assessment{
			ID:        "a-001",
			PatientID: "p-002",
			Timestamp: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			Risks: map[string]domain.RiskResult{
				"diabetes": {
					Category:       "diabetes",
					ScorePct:       60,
					Score:          0.6,
					Level:          domain.LevelMedium,
					MatchedSignals: []string{"High sugar"},
				},
			},
			Advice: []domain.AdviceItem{
				{Category: "diabetes", Advice: "Cut refined sugar"},
			},
		}

		if err := repo.SaveAssessment(ctx, a); err != nil {
			t.Fatalf("SaveAssessment failed: %v", err)
		}

		got, err := repo.GetAssessment(ctx, "a-001")
		if err != nil {
			t.Fatalf("GetAssessment failed: %v", err)
		}
		risk := got.Risks["diabetes"]
		if risk.ScorePct != 60 || risk.Level != domain.LevelMedium {
			t.Errorf("risks not round-tripped: %+v", risk)
		}
		if len(got.Advice) != 1 || got.Advice[0].Advice != "Cut refined sugar" {
			t.Errorf("advice not round-tripped: %+v", got.Advice)
		}
	})

	t.Run("RuleTableOrder", func(t *testing.T) {
		rules := []domain.Rule{
			{Category: "diabetes", Signal: "Sugar", Condition: "sugar_mgdl >= 126", Weight: 60},
			{Category: "heart", Signal: "BP", Condition: "bp_systolic >= 140", Weight: 100},
			{Category: "diabetes", Signal: "HbA1c", Condition: "hba1c_pct >= 6.5", Weight: 40},
		}
		for i := range rules {
			if err := repo.SaveRule(ctx, i, &rules[i]); err != nil {
				t.Fatalf("SaveRule failed: %v", err)
			}
		}

		got, err := repo.ListRules(ctx)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 rules, got %d", len(got))
		}
		for i := range rules {
			if got[i].Signal != rules[i].Signal {
				t.Errorf("rule %d out of order: %+v", i, got[i])
			}
		}

		// Re-seeding a position overwrites in place.
		updated := domain.Rule{Category: "diabetes", Signal: "Sugar v2", Condition: "sugar_mgdl >= 130", Weight: 50}
		if err := repo.SaveRule(ctx, 0, &updated); err != nil {
			t.Fatalf("SaveRule upsert failed: %v", err)
		}
		got, err = repo.ListRules(ctx)
		if err != nil {
			t.Fatalf("ListRules failed: %v", err)
		}
		if len(got) != 3 || got[0].Signal != "Sugar v2" {
			t.Errorf("position upsert did not apply: %+v", got)
		}
	})

	t.Run("AdviceRuleTableOrder", func(t *testing.T) {
		rules := []domain.AdviceRule{
			{Category: "diabetes", Condition: "sugar_mgdl >= 126", Advice: "Cut refined sugar"},
			{Category: "heart", Condition: "bp_systolic >= 140", Advice: "Check BP daily"},
		}
		for i := range rules {
			if err := repo.SaveAdviceRule(ctx, i, &rules[i]); err != nil {
				t.Fatalf("SaveAdviceRule failed: %v", err)
			}
		}

		got, err := repo.ListAdviceRules(ctx)
		if err != nil {
			t.Fatalf("ListAdviceRules failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 advice rules, got %d", len(got))
		}
		if got[0].Advice != "Cut refined sugar" || got[1].Advice != "Check BP daily" {
			t.Errorf("advice rules out of order: %+v", got)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}
