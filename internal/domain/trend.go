package domain

// MetricSeries holds the raw metric values replayed over a patient's
// history, one entry per record in chronological order.
type MetricSeries struct {
	Sugar       []float64 `json:"sugar"`
	BPSystolic  []float64 `json:"bpSystolic"`
	BPDiastolic []float64 `json:"bpDiastolic"`
	HbA1c       []float64 `json:"hba1c"`
	Cholesterol []float64 `json:"cholesterol"`
	BMI         []float64 `json:"bmi"`
}

// TrendSeries is the chart-friendly result of replaying the scoring
// engine over historical records. RiskEvolution values are 0-1 scores;
// category keys are sorted lexicographically for stable serialization.
// Series for a category may be shorter than Timestamps when that
// category was absent from some records' snapshots.
type TrendSeries struct {
	Timestamps    []string             `json:"timestamps"`
	Metrics       MetricSeries         `json:"metrics"`
	RiskEvolution map[string][]float64 `json:"riskEvolution"`
}
