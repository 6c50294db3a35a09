package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/openhealth-tools/cardea/internal/assess"
	"github.com/openhealth-tools/cardea/internal/condition"
	"github.com/openhealth-tools/cardea/internal/domain"
	"github.com/openhealth-tools/cardea/internal/history"
	"github.com/openhealth-tools/cardea/internal/risk"
	"github.com/openhealth-tools/cardea/internal/rulestore"
	"github.com/openhealth-tools/cardea/internal/trend"
)

// Handler carries the assessment pipeline and infrastructure the
// endpoints need.
type Handler struct {
	repo      domain.Repository
	cache     domain.Cache
	bus       domain.EventBus
	store     *rulestore.Store
	engine    *risk.Engine
	processor *assess.Processor
	history   *history.Service
	version   string
}

// NewHandler wires endpoints to their dependencies.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, store *rulestore.Store, engine *risk.Engine, processor *assess.Processor, hist *history.Service, version string) *Handler {
	return &Handler{
		repo:      repo,
		cache:     cache,
		bus:       bus,
		store:     store,
		engine:    engine,
		processor: processor,
		history:   hist,
		version:   version,
	}
}

// Analyze handles POST /analyze requests. The body is one metrics
// snapshot; the response is the full assessment. With ?persist=true the
// record and assessment are stored and the completion event published.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rec domain.MetricRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	persist := r.URL.Query().Get("persist") == "true"
	if persist && rec.PatientID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "patientId is required when persist=true",
		})
		return
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	assessment, err := h.processor.Process(ctx, &rec)
	if err != nil {
		slog.Error("assessment failed", "patient_id", rec.PatientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "assessment failed",
		})
		return
	}

	if persist {
		if h.history != nil {
			if err := h.history.Append(ctx, &rec); err != nil {
				slog.Error("failed to persist metric record",
					"patient_id", rec.PatientID,
					"error", err,
				)
			}
		}
		if h.repo != nil {
			if err := h.repo.SaveAssessment(ctx, assessment); err != nil {
				slog.Error("failed to persist assessment",
					"assessment_id", assessment.ID,
					"error", err,
				)
			}
		}
		if h.bus != nil {
			payload, _ := json.Marshal(assessment)
			if err := h.bus.Publish(ctx, domain.TopicAssessmentCompleted, payload); err != nil {
				slog.Error("failed to publish assessment",
					"assessment_id", assessment.ID,
					"error", err,
				)
			}
		}
	}

	writeJSON(w, http.StatusOK, assessment)
}

// GetHistory handles GET /patients/{id}/history. It replays scoring
// over the patient's stored records and returns chart-friendly series.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID := chi.URLParam(r, "id")

	if h.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "history not available",
		})
		return
	}

	records, err := h.history.Records(ctx, patientID)
	if err != nil {
		slog.Error("failed to load history", "patient_id", patientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load history",
		})
		return
	}

	series, err := trend.Compute(ctx, records, h.engine)
	if err != nil {
		slog.Error("trend replay failed", "patient_id", patientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "trend computation failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, series)
}

// GetLatest handles GET /patients/{id}/latest. It returns the most
// recent metric record together with a freshly computed assessment.
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID := chi.URLParam(r, "id")

	if h.history == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "history not available",
		})
		return
	}

	rec, err := h.history.Latest(ctx, patientID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no records for patient",
		})
		return
	}

	assessment, err := h.processor.Process(ctx, rec)
	if err != nil {
		slog.Error("assessment failed", "patient_id", patientID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "assessment failed",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"record":     rec,
		"assessment": assessment,
	})
}

// RuleInfo is one scoring rule as reported by GET /rules, with the
// fields its condition references and whether it parses.
type RuleInfo struct {
	Category  string   `json:"category"`
	Signal    string   `json:"signal"`
	Condition string   `json:"condition"`
	Weight    float64  `json:"weight"`
	Fields    []string `json:"fields,omitempty"`
	Valid     bool     `json:"valid"`
	Error     string   `json:"error,omitempty"`
}

// ListRules returns the loaded scoring rule table.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	ruleSet, err := h.store.Rules(r.Context())
	if err != nil {
		slog.Error("failed to load rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load rules",
		})
		return
	}

	var rules []RuleInfo
	for _, category := range ruleSet.Categories() {
		for _, rule := range ruleSet.Group(category) {
			info := RuleInfo{
				Category:  rule.Category,
				Signal:    rule.Signal,
				Condition: rule.Condition,
				Weight:    rule.Weight,
			}
			if node, err := condition.Parse(rule.Condition); err != nil {
				info.Error = err.Error()
			} else {
				info.Valid = true
				info.Fields = condition.Fields(node)
			}
			rules = append(rules, info)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// AdviceRuleInfo is one advice rule as reported by GET /advice-rules.
type AdviceRuleInfo struct {
	Category  string   `json:"category"`
	Condition string   `json:"condition"`
	Advice    string   `json:"advice"`
	Fields    []string `json:"fields,omitempty"`
	Valid     bool     `json:"valid"`
	Error     string   `json:"error,omitempty"`
}

// ListAdviceRules returns the loaded advice rule table.
func (h *Handler) ListAdviceRules(w http.ResponseWriter, r *http.Request) {
	adviceSet, err := h.store.AdviceRules(r.Context())
	if err != nil {
		slog.Error("failed to load advice rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load advice rules",
		})
		return
	}

	var rules []AdviceRuleInfo
	for _, category := range adviceSet.Categories() {
		for _, rule := range adviceSet.Group(category) {
			info := AdviceRuleInfo{
				Category:  rule.Category,
				Condition: rule.Condition,
				Advice:    rule.Advice,
			}
			if node, err := condition.Parse(rule.Condition); err != nil {
				info.Error = err.Error()
			} else {
				info.Valid = true
				info.Fields = condition.Fields(node)
			}
			rules = append(rules, info)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rules": rules,
		"count": len(rules),
	})
}

// ReloadRules handles POST /rules/reload. Both tables are re-read from
// the configured source and swapped in atomically.
func (h *Handler) ReloadRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.store.Reload(ctx); err != nil {
		slog.Error("failed to reload rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload rules: " + err.Error(),
		})
		return
	}

	ruleSet, _ := h.store.Rules(ctx)
	adviceSet, _ := h.store.AdviceRules(ctx)

	if h.bus != nil {
		if err := h.bus.Publish(ctx, domain.TopicRulesReloaded, nil); err != nil {
			slog.Error("failed to publish rules reload", "error", err)
		}
	}

	slog.Info("rules reloaded",
		"rule_count", ruleSet.Len(),
		"advice_count", adviceSet.Len(),
	)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "rules reloaded successfully",
		"ruleCount":   ruleSet.Len(),
		"adviceCount": adviceSet.Len(),
	})
}

// Health reports healthy, or degraded when any backend ping fails.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic. The rule
// tables must be loadable before scoring requests are accepted.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.Rules(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"ready": "false",
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
