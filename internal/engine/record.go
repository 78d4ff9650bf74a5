package engine

import (
	"math"
	"time"

	"github.com/google/uuid"

	"safewave/internal/types"
)

// NewDecisionRecord packages one invocation's inputs and outputs into the
// immutable record appended to the readings log and returned to the caller.
// Pure assembly: it never fails given valid inputs from the evaluator and
// state machine.
func NewDecisionRecord(
	siteID string,
	reading types.SensorReading,
	advisory types.AdvisoryLabel,
	ev Evaluation,
	highCount int,
	status types.Status,
	maxScore float64,
	now time.Time,
) *types.DecisionRecord {
	return &types.DecisionRecord{
		ID:          uuid.NewString(),
		SiteID:      siteID,
		PH:          reading.PH,
		Temp:        reading.Temp,
		TDS:         reading.TDS,
		Turb:        reading.Turb,
		Flow:        reading.Flow,
		Advisory:    advisory,
		BioScore:    math.Round(ev.BioScore*100) / 100,
		RiskPercent: riskPercent(ev.BioScore, maxScore),
		HighCount:   highCount,
		Status:      status,
		CreatedAt:   now,
	}
}

// riskPercent normalizes a bio score into the 0-100 dashboard scale:
// clamp(round(score/max*100), 0, 100). A non-positive max (degenerate
// weight configuration) yields 0 rather than dividing by zero.
func riskPercent(score, max float64) int {
	if max <= 0 {
		return 0
	}
	pct := int(math.Round(score / max * 100))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}
