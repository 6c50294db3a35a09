package domain

import "time"

// Risk levels for a normalized category score.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// Bucketing thresholds on the 0-100 score scale. Fixed constants of the
// design, not configurable per category.
const (
	MediumThreshold = 35.0
	HighThreshold   = 70.0
)

// BucketRisk maps a 0-100 score to a risk level.
func BucketRisk(scorePct float64) string {
	if scorePct < MediumThreshold {
		return LevelLow
	}
	if scorePct < HighThreshold {
		return LevelMedium
	}
	return LevelHigh
}

// RiskResult is the scoring outcome for one category. Derived, never
// persisted as-is; recomputed on every call.
type RiskResult struct {
	Category       string   `json:"category"`
	ScorePct       float64  `json:"scorePct"`
	Score          float64  `json:"score"` // ScorePct / 100
	Level          string   `json:"level"`
	MatchedSignals []string `json:"matchedSignals"`
}

// AdviceItem pairs a category with one advice text.
type AdviceItem struct {
	Category string `json:"category"`
	Advice   string `json:"advice"`
}

// Assessment is the complete evaluation of one metrics snapshot:
// per-category risks plus the advice derived from them.
type Assessment struct {
	ID        string                `json:"id"`
	PatientID string                `json:"patientId"`
	Timestamp time.Time             `json:"timestamp"`
	Risks     map[string]RiskResult `json:"risks"`
	Advice    []AdviceItem          `json:"advice"`
}

// Patient holds the slow-changing attributes of a patient row.
type Patient struct {
	ID        string    `json:"patientId"`
	Age       int       `json:"age"`
	Gender    string    `json:"gender"`
	HeightCm  float64   `json:"heightCm"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MetricRecord is one historical snapshot of patient metrics.
type MetricRecord struct {
	ID        string    `json:"recordId"`
	PatientID string    `json:"patientId"`
	Timestamp time.Time `json:"timestamp"`

	Age    int    `json:"age"`
	Gender string `json:"gender"`

	HeightCm float64 `json:"heightCm"`
	WeightKg float64 `json:"weightKg"`

	BPSystolic  float64 `json:"bpSystolic"`
	BPDiastolic float64 `json:"bpDiastolic"`

	SugarMgdl       float64 `json:"sugarMgdl"`
	HbA1cPct        float64 `json:"hba1cPct"`
	CholesterolMgdl float64 `json:"cholesterolMgdl"`

	SleepHours          float64 `json:"sleepHours"`
	ExerciseMinsPerWeek float64 `json:"exerciseMinsPerWeek"`
	StressLevel         float64 `json:"stressLevel"`
	FamilyHistory       int     `json:"familyHistory"` // 0/1
}

// Context flattens the record into the field names rule conditions use.
// The derived "bmi" field is added by the scoring engine, not here.
func (m *MetricRecord) Context() Context {
	return Context{
		"age":                    float64(m.Age),
		"gender":                 m.Gender,
		"height_cm":              m.HeightCm,
		"weight_kg":              m.WeightKg,
		"bp_systolic":            m.BPSystolic,
		"bp_diastolic":           m.BPDiastolic,
		"sugar_mgdl":             m.SugarMgdl,
		"hba1c_pct":              m.HbA1cPct,
		"cholesterol_mgdl":       m.CholesterolMgdl,
		"sleep_hours":            m.SleepHours,
		"exercise_mins_per_week": m.ExerciseMinsPerWeek,
		"stress_level":           m.StressLevel,
		"family_history":         float64(m.FamilyHistory),
	}
}
