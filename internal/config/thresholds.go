package config

// RiskThresholds is the injected rule configuration for the risk escalation
// engine: per-signal trigger thresholds, score weights, temperature-zone
// boundaries, hysteresis bands, and step sizes. Different deployments use
// different numeric values; the engine never hardcodes them.
//
// The defaults reproduce the reference deployment: cool water below 25 C,
// strong-growth zone from 34 C, temperature-dominant weights (3 / 1.5 / 1 /
// 1 / 0.5), warm season April through September, counter that increments by
// 1 on a bad reading and decays by 2 on a good one, and a HIGH_RISK
// confirmation threshold of 6 sustained bad readings.
type RiskThresholds struct {
	// Temperature zone boundaries (degrees C). Below TempCoolBelow the
	// organism is assumed dormant; at or above TempHighMin it is in the
	// strong growth zone. In between is the moderate zone.
	TempCoolBelow float64 `envconfig:"RISK_TEMP_COOL_BELOW" default:"25"`
	TempHighMin   float64 `envconfig:"RISK_TEMP_HIGH_MIN" default:"34" validate:"gtefield=TempCoolBelow"`

	// Per-signal trigger thresholds (>= for upper-bound risks).
	TurbMin           float64 `envconfig:"RISK_TURB_MIN" default:"50"`
	TDSMin            float64 `envconfig:"RISK_TDS_MIN" default:"250"`
	PHMin             float64 `envconfig:"RISK_PH_MIN" default:"7.5"`
	FlowStagnantBelow int     `envconfig:"RISK_FLOW_STAGNANT_BELOW" default:"1" validate:"gte=0"`

	// Score weights.
	WeightTempHigh     float64 `envconfig:"RISK_WEIGHT_TEMP_HIGH" default:"3"`
	WeightTempModerate float64 `envconfig:"RISK_WEIGHT_TEMP_MODERATE" default:"1"`
	WeightTurb         float64 `envconfig:"RISK_WEIGHT_TURB" default:"1.5"`
	WeightTDS          float64 `envconfig:"RISK_WEIGHT_TDS" default:"1"`
	WeightFlow         float64 `envconfig:"RISK_WEIGHT_FLOW" default:"1"`
	WeightPH           float64 `envconfig:"RISK_WEIGHT_PH" default:"0.5"`

	// Secondary-evidence weights. The status ladder scores the
	// non-temperature flags with its own weights, independent of the bio
	// score's: under the defaults turbidity contributes 1.5 to the bio
	// score but only 1 as confirming evidence for escalation.
	SecondaryWeightTurb float64 `envconfig:"RISK_SECONDARY_WEIGHT_TURB" default:"1"`
	SecondaryWeightTDS  float64 `envconfig:"RISK_SECONDARY_WEIGHT_TDS" default:"1"`
	SecondaryWeightFlow float64 `envconfig:"RISK_SECONDARY_WEIGHT_FLOW" default:"1"`
	SecondaryWeightPH   float64 `envconfig:"RISK_SECONDARY_WEIGHT_PH" default:"0.5"`

	// Warm-season adjustment: if the calendar month is within
	// [SeasonStartMonth, SeasonEndMonth] and the temperature is at least
	// SeasonTempMin, SeasonBonus is added to the bio score.
	SeasonStartMonth int     `envconfig:"RISK_SEASON_START_MONTH" default:"4" validate:"gte=1,lte=12"`
	SeasonEndMonth   int     `envconfig:"RISK_SEASON_END_MONTH" default:"9" validate:"gte=1,lte=12"`
	SeasonTempMin    float64 `envconfig:"RISK_SEASON_TEMP_MIN" default:"30"`
	SeasonBonus      float64 `envconfig:"RISK_SEASON_BONUS" default:"0.5"`

	// Hysteresis bands. The counter increments by IncrementStep when the
	// bio score reaches IncrementThreshold, otherwise decays by DecayStep
	// (clamped at zero). The default decay is twice the increment: recovery
	// is quick, escalation slow and confirmed.
	IncrementThreshold float64 `envconfig:"RISK_INCREMENT_THRESHOLD" default:"4"`
	IncrementStep      int     `envconfig:"RISK_INCREMENT_STEP" default:"1" validate:"gte=1"`
	DecayStep          int     `envconfig:"RISK_DECAY_STEP" default:"2" validate:"gte=1"`

	// ConfirmThreshold is the counter value (not a score) the site must
	// sustain before HIGH_RISK becomes reachable.
	ConfirmThreshold int `envconfig:"RISK_CONFIRM_THRESHOLD" default:"6" validate:"gte=1"`

	// SecondaryThreshold gates escalation on the non-temperature signals:
	// below it, warm water alone caps the status one tier down.
	SecondaryThreshold float64 `envconfig:"RISK_SECONDARY_THRESHOLD" default:"1.5"`

	// HardSafeOverride selects the short-circuit strategy: when enabled and
	// both dominant flags (high-temperature zone, turbidity) are absent, the
	// engine jumps straight to SAFE with a zeroed counter, bypassing the
	// decay rule. Disabled by default (gradual decay).
	HardSafeOverride bool `envconfig:"RISK_HARD_SAFE_OVERRIDE" default:"false"`
}

// MaxScore returns the maximum achievable bio score under these weights,
// excluding the seasonal bonus. Used to normalize scores into risk_percent.
func (t RiskThresholds) MaxScore() float64 {
	return t.WeightTempHigh + t.WeightTurb + t.WeightTDS + t.WeightFlow + t.WeightPH
}
