// Package repository persists patients, metric records, assessments and
// the rule tables over database/sql.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/openhealth-tools/cardea/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository backs domain.Repository with either the SQLite or the
// PostgreSQL driver; queries are written once and rebound per driver.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New opens the configured driver, applies pool settings and runs
// migrations.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SavePatient inserts or updates a patient row.
func (r *SQLRepository) SavePatient(ctx context.Context, p *domain.Patient) error {
	if p.ID == "" {
		return fmt.Errorf("%w: patient ID is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO patients (id, age, gender, height_cm, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			age = excluded.age,
			gender = excluded.gender,
			height_cm = excluded.height_cm,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		p.ID, p.Age, p.Gender, p.HeightCm, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetPatient retrieves a patient by ID.
func (r *SQLRepository) GetPatient(ctx context.Context, patientID string) (*domain.Patient, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patientID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, age, gender, height_cm, created_at, updated_at
		FROM patients
		WHERE id = ?
	`

	var p domain.Patient
	err := r.db.QueryRowContext(ctx, r.rebind(query), patientID).Scan(
		&p.ID, &p.Age, &p.Gender, &p.HeightCm, &p.CreatedAt, &p.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SaveMetricRecord stores one metrics snapshot. A missing record ID is
// generated so callers may pass raw input.
func (r *SQLRepository) SaveMetricRecord(ctx context.Context, rec *domain.MetricRecord) error {
	if rec.PatientID == "" {
		return fmt.Errorf("%w: patientID is required", ErrInvalidInput)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	query := `
		INSERT INTO metric_records (
			id, patient_id, timestamp, age, gender,
			height_cm, weight_kg, bp_systolic, bp_diastolic,
			sugar_mgdl, hba1c_pct, cholesterol_mgdl,
			sleep_hours, exercise_mins_per_week, stress_level, family_history
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, rec.PatientID, rec.Timestamp,
		rec.Age, rec.Gender,
		rec.HeightCm, rec.WeightKg,
		rec.BPSystolic, rec.BPDiastolic,
		rec.SugarMgdl, rec.HbA1cPct, rec.CholesterolMgdl,
		rec.SleepHours, rec.ExerciseMinsPerWeek, rec.StressLevel,
		rec.FamilyHistory,
	)
	return err
}

const metricColumns = `
	id, patient_id, timestamp, age, gender,
	height_cm, weight_kg, bp_systolic, bp_diastolic,
	sugar_mgdl, hba1c_pct, cholesterol_mgdl,
	sleep_hours, exercise_mins_per_week, stress_level, family_history
`

func scanMetricRecord(row interface{ Scan(...any) error }) (*domain.MetricRecord, error) {
	var rec domain.MetricRecord
	err := row.Scan(
		&rec.ID, &rec.PatientID, &rec.Timestamp,
		&rec.Age, &rec.Gender,
		&rec.HeightCm, &rec.WeightKg,
		&rec.BPSystolic, &rec.BPDiastolic,
		&rec.SugarMgdl, &rec.HbA1cPct, &rec.CholesterolMgdl,
		&rec.SleepHours, &rec.ExerciseMinsPerWeek, &rec.StressLevel,
		&rec.FamilyHistory,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListMetricRecords returns a patient's metric history in chronological
// order, oldest first.
func (r *SQLRepository) ListMetricRecords(ctx context.Context, patientID string) ([]*domain.MetricRecord, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patientID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + metricColumns + `
		FROM metric_records
		WHERE patient_id = ?
		ORDER BY timestamp ASC
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.MetricRecord
	for rows.Next() {
		rec, err := scanMetricRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// GetLatestMetricRecord returns the patient's most recent snapshot.
func (r *SQLRepository) GetLatestMetricRecord(ctx context.Context, patientID string) (*domain.MetricRecord, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patientID is required", ErrInvalidInput)
	}

	query := `
		SELECT ` + metricColumns + `
		FROM metric_records
		WHERE patient_id = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	rec, err := scanMetricRecord(r.db.QueryRowContext(ctx, r.rebind(query), patientID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// SaveAssessment stores a completed assessment. Risks and advice are
// serialized as JSON documents.
func (r *SQLRepository) SaveAssessment(ctx context.Context, a *domain.Assessment) error {
	if a.ID == "" {
		return fmt.Errorf("%w: assessment ID is required", ErrInvalidInput)
	}

	risks, err := json.Marshal(a.Risks)
	if err != nil {
		return fmt.Errorf("failed to marshal risks: %w", err)
	}
	advice, err := json.Marshal(a.Advice)
	if err != nil {
		return fmt.Errorf("failed to marshal advice: %w", err)
	}

	query := `
		INSERT INTO assessments (id, patient_id, timestamp, risks, advice)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		a.ID, a.PatientID, a.Timestamp, string(risks), string(advice),
	)
	return err
}

// GetAssessment retrieves an assessment by ID.
func (r *SQLRepository) GetAssessment(ctx context.Context, assessmentID string) (*domain.Assessment, error) {
	if assessmentID == "" {
		return nil, fmt.Errorf("%w: assessmentID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, patient_id, timestamp, risks, advice
		FROM assessments
		WHERE id = ?
	`

	var a domain.Assessment
	var risks, advice string

	err := r.db.QueryRowContext(ctx, r.rebind(query), assessmentID).Scan(
		&a.ID, &a.PatientID, &a.Timestamp, &risks, &advice,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(risks), &a.Risks); err != nil {
		return nil, fmt.Errorf("failed to unmarshal risks: %w", err)
	}
	if err := json.Unmarshal([]byte(advice), &a.Advice); err != nil {
		return nil, fmt.Errorf("failed to unmarshal advice: %w", err)
	}
	return &a, nil
}

// SaveRule upserts a health rule at the given table position. Position
// keys the row so a re-seed overwrites in place and table order is
// preserved on read.
func (r *SQLRepository) SaveRule(ctx context.Context, position int, rule *domain.Rule) error {
	if rule.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO health_rules (position, category, signal, condition, weight)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (position) DO UPDATE SET
			category = excluded.category,
			signal = excluded.signal,
			condition = excluded.condition,
			weight = excluded.weight
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		position, rule.Category, rule.Signal, rule.Condition, rule.Weight,
	)
	return err
}

// ListRules returns all health rules in table order.
func (r *SQLRepository) ListRules(ctx context.Context) ([]domain.Rule, error) {
	query := `
		SELECT category, signal, condition, weight
		FROM health_rules
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.Rule
	for rows.Next() {
		var rule domain.Rule
		if err := rows.Scan(&rule.Category, &rule.Signal, &rule.Condition, &rule.Weight); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// SaveAdviceRule upserts an advice rule at the given table position.
func (r *SQLRepository) SaveAdviceRule(ctx context.Context, position int, rule *domain.AdviceRule) error {
	if rule.Category == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO advice_rules (position, category, condition, advice)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (position) DO UPDATE SET
			category = excluded.category,
			condition = excluded.condition,
			advice = excluded.advice
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		position, rule.Category, rule.Condition, rule.Advice,
	)
	return err
}

// ListAdviceRules returns all advice rules in table order.
func (r *SQLRepository) ListAdviceRules(ctx context.Context) ([]domain.AdviceRule, error) {
	query := `
		SELECT category, condition, advice
		FROM advice_rules
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.AdviceRule
	for rows.Next() {
		var rule domain.AdviceRule
		if err := rows.Scan(&rule.Category, &rule.Condition, &rule.Advice); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, ... for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
