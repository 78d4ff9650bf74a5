package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"safewave/internal/types"
)

func TestRiskPercent(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		max   float64
		want  int
	}{
		{"zero score", 0, 7, 0},
		{"full score", 7, 7, 100},
		{"half score rounds", 3.5, 7, 50},
		{"seasonal bonus can exceed max, clamps", 7.5, 7, 100},
		{"negative clamps to zero", -1, 7, 0},
		{"degenerate max yields zero", 5, 0, 0},
		{"rounding", 4.0, 7, 57},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, riskPercent(tc.score, tc.max))
		})
	}
}

func TestNewDecisionRecord(t *testing.T) {
	tt := defaultThresholds()
	r := types.SensorReading{PH: 7.8, Temp: 36, TDS: 300, Turb: 80, Flow: 0}
	ev := Evaluate(r, tt, july)

	rec := NewDecisionRecord("site-1", r, types.LabelHighRisk, ev, 3, types.StatusWarning, tt.MaxScore(), july)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "site-1", rec.SiteID)
	assert.Equal(t, r.PH, rec.PH)
	assert.Equal(t, r.Temp, rec.Temp)
	assert.Equal(t, r.Flow, rec.Flow)
	assert.Equal(t, types.LabelHighRisk, rec.Advisory)
	assert.Equal(t, 3, rec.HighCount)
	assert.Equal(t, types.StatusWarning, rec.Status)
	assert.Equal(t, july, rec.CreatedAt)

	// bio = 3 (high temp) + 1.5 + 1 + 1 + 0.5 + 0.5 seasonal = 7.5;
	// normalized against MaxScore()=7 and clamped.
	assert.InDelta(t, 7.5, rec.BioScore, 1e-9)
	assert.Equal(t, 100, rec.RiskPercent)
}

// Each record gets a fresh identifier.
func TestNewDecisionRecord_UniqueIDs(t *testing.T) {
	tt := defaultThresholds()
	r := cleanReading()
	ev := Evaluate(r, tt, january)

	a := NewDecisionRecord("s", r, types.LabelUnknown, ev, 0, types.StatusSafe, tt.MaxScore(), january)
	b := NewDecisionRecord("s", r, types.LabelUnknown, ev, 0, types.StatusSafe, tt.MaxScore(), january)
	assert.NotEqual(t, a.ID, b.ID)
}
