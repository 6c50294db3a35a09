package repository

// Table definitions, written to run unchanged under both SQLite and
// PostgreSQL.

const schemaPatients = `
CREATE TABLE IF NOT EXISTS patients (
    id TEXT PRIMARY KEY,
    age INTEGER NOT NULL DEFAULT 0,
    gender TEXT NOT NULL DEFAULT '',
    height_cm REAL NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

const schemaMetricRecords = `
CREATE TABLE IF NOT EXISTS metric_records (
    id TEXT PRIMARY KEY,
    patient_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    age INTEGER NOT NULL DEFAULT 0,
    gender TEXT NOT NULL DEFAULT '',
    height_cm REAL NOT NULL DEFAULT 0,
    weight_kg REAL NOT NULL DEFAULT 0,
    bp_systolic REAL NOT NULL DEFAULT 0,
    bp_diastolic REAL NOT NULL DEFAULT 0,
    sugar_mgdl REAL NOT NULL DEFAULT 0,
    hba1c_pct REAL NOT NULL DEFAULT 0,
    cholesterol_mgdl REAL NOT NULL DEFAULT 0,
    sleep_hours REAL NOT NULL DEFAULT 0,
    exercise_mins_per_week REAL NOT NULL DEFAULT 0,
    stress_level REAL NOT NULL DEFAULT 0,
    family_history INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_metric_records_patient ON metric_records(patient_id);
CREATE INDEX IF NOT EXISTS idx_metric_records_timestamp ON metric_records(patient_id, timestamp);
`

const schemaAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id TEXT PRIMARY KEY,
    patient_id TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    risks TEXT NOT NULL,
    advice TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_assessments_patient ON assessments(patient_id);
CREATE INDEX IF NOT EXISTS idx_assessments_timestamp ON assessments(patient_id, timestamp);
`

const schemaHealthRules = `
CREATE TABLE IF NOT EXISTS health_rules (
    position INTEGER PRIMARY KEY,
    category TEXT NOT NULL,
    signal TEXT NOT NULL,
    condition TEXT NOT NULL,
    weight REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_health_rules_category ON health_rules(category);
`

const schemaAdviceRules = `
CREATE TABLE IF NOT EXISTS advice_rules (
    position INTEGER PRIMARY KEY,
    category TEXT NOT NULL,
    condition TEXT NOT NULL,
    advice TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_advice_rules_category ON advice_rules(category);
`

// AllSchemas lists every table statement in creation order.
func AllSchemas() []string {
	return []string{
		schemaPatients,
		schemaMetricRecords,
		schemaAssessments,
		schemaHealthRules,
		schemaAdviceRules,
	}
}
