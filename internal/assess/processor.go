// Package assess composes scoring and advice into a single patient
// assessment.
package assess

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/openhealth-tools/cardea/internal/advice"
	"github.com/openhealth-tools/cardea/internal/domain"
	"github.com/openhealth-tools/cardea/internal/risk"
)

// Processor runs one metric record through the risk engine and the
// advisor and stamps the result with an identifier.
type Processor struct {
	engine  *risk.Engine
	advisor *advice.Advisor
}

// NewProcessor creates a processor over the given engine and advisor.
func NewProcessor(engine *risk.Engine, advisor *advice.Advisor) *Processor {
	return &Processor{engine: engine, advisor: advisor}
}

// Process scores the record and derives advice for its medium/high
// categories. The only failure mode is a rule-table load error; the
// per-rule fail-closed policy lives below in the engine and advisor.
func (p *Processor) Process(ctx context.Context, rec *domain.MetricRecord) (*domain.Assessment, error) {
	metrics := rec.Context()

	risks, err := p.engine.ComputeSnapshot(ctx, metrics)
	if err != nil {
		return nil, err
	}

	// Advice conditions may reference the derived bmi field too.
	items, err := p.advisor.GetAdvice(ctx, risks, metrics.WithBMI())
	if err != nil {
		return nil, err
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	return &domain.Assessment{
		ID:        uuid.New().String(),
		PatientID: rec.PatientID,
		Timestamp: ts,
		Risks:     risks,
		Advice:    items,
	}, nil
}
