// Package worker provides async assessment processing off the event bus.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/openhealth-tools/cardea/internal/assess"
	"github.com/openhealth-tools/cardea/internal/domain"
	"github.com/openhealth-tools/cardea/internal/history"
)

// Worker consumes recorded metrics from the EventBus, runs them through
// the assessment pipeline and persists the result.
type Worker struct {
	bus       domain.EventBus
	repo      domain.Repository
	processor *assess.Processor
	history   *history.Service

	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker. history may be nil when record
// persistence is handled elsewhere.
func NewWorker(bus domain.EventBus, repo domain.Repository, processor *assess.Processor, hist *history.Service) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       bus,
		repo:      repo,
		processor: processor,
		history:   hist,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to the metrics topic.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.TopicMetricsRecorded, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("assessment worker started",
		"topic", domain.TopicMetricsRecorded,
	)
	return nil
}

func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processMetrics(ctx, msg)
}

// processMetrics runs one recorded metrics snapshot through the pipeline.
func (w *Worker) processMetrics(ctx context.Context, msg *domain.Message) error {
	start := time.Now()

	var rec domain.MetricRecord
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		slog.Error("failed to parse metric record message",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	slog.Debug("processing metric record",
		"patient_id", rec.PatientID,
		"message_id", msg.ID,
	)

	// 1. Persist the record so trend replay sees it
	if w.history != nil {
		if err := w.history.Append(ctx, &rec); err != nil {
			slog.Error("failed to append metric record",
				"patient_id", rec.PatientID,
				"error", err,
			)
		}
	}

	// 2. Score and derive advice
	assessment, err := w.processor.Process(ctx, &rec)
	if err != nil {
		slog.Error("assessment failed",
			"patient_id", rec.PatientID,
			"error", err,
		)
		return err
	}

	// 3. Save assessment
	if w.repo != nil {
		if err := w.repo.SaveAssessment(ctx, assessment); err != nil {
			slog.Error("failed to save assessment",
				"assessment_id", assessment.ID,
				"error", err,
			)
		}
	}

	// 4. Publish completion
	payload, _ := json.Marshal(assessment)
	if err := w.bus.Publish(ctx, domain.TopicAssessmentCompleted, payload); err != nil {
		slog.Error("failed to publish assessment",
			"assessment_id", assessment.ID,
			"error", err,
		)
	}

	slog.Info("metric record processed",
		"patient_id", rec.PatientID,
		"assessment_id", assessment.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("assessment worker stopped")
	return nil
}
