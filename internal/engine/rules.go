// Package engine implements the risk escalation engine: rule-based scoring
// of a single reading, the persisted hysteresis counter smoothing repeated
// readings over time, and the state machine deriving the published status
// from (score, counter, previous status).
package engine

import (
	"time"

	"safewave/internal/config"
	"safewave/internal/types"
)

// RiskFlag identifies one boolean risk condition derived from a reading.
type RiskFlag string

const (
	FlagTempRisk RiskFlag = "temp_risk" // strong-growth temperature zone
	FlagTurbRisk RiskFlag = "turb_risk" // sediment / biofilm
	FlagTDSRisk  RiskFlag = "tds_risk"  // nutrients
	FlagFlowRisk RiskFlag = "flow_risk" // stagnant water
	FlagPHRisk   RiskFlag = "ph_risk"   // slightly alkaline
)

// TempZone is the temperature band a reading falls into. Temperature is the
// dominant factor: the zone gates the ceiling of the reachable status.
type TempZone int

const (
	ZoneCool TempZone = iota
	ZoneModerate
	ZoneHigh
)

// String returns the zone name for logging.
func (z TempZone) String() string {
	switch z {
	case ZoneCool:
		return "cool"
	case ZoneModerate:
		return "moderate"
	default:
		return "high"
	}
}

// Evaluation is the result of scoring a single reading. BioScore is the full
// weighted sum including the temperature contribution and seasonal bonus;
// OtherScore is the non-temperature flags summed under the secondary
// weights, used by the status ladder as confirming evidence.
type Evaluation struct {
	Zone        TempZone
	Flags       map[RiskFlag]bool
	BioScore    float64
	OtherScore  float64
	SeasonBoost bool
}

// Evaluate converts a raw reading into risk flags and a scalar bio score
// using the injected thresholds. It is pure and total: no I/O, no side
// effects, and any numeric input -- including negative or out-of-physical-
// range values -- yields a result rather than an error.
//
// The now parameter drives the warm-season adjustment and must come from the
// engine's injected clock, never the global one.
func Evaluate(r types.SensorReading, t config.RiskThresholds, now time.Time) Evaluation {
	zone := zoneFor(r.Temp, t)

	flags := map[RiskFlag]bool{
		FlagTempRisk: zone == ZoneHigh,
		FlagTurbRisk: r.Turb >= t.TurbMin,
		FlagTDSRisk:  r.TDS >= t.TDSMin,
		FlagFlowRisk: r.Flow < t.FlowStagnantBelow,
		FlagPHRisk:   r.PH >= t.PHMin,
	}

	// The two scores weight the same flags differently: the bio score uses
	// the scoring weights, the ladder's confirming evidence the secondary
	// weights (turbidity is 1.5 vs 1 under the defaults).
	var bio, other float64
	if flags[FlagTurbRisk] {
		bio += t.WeightTurb
		other += t.SecondaryWeightTurb
	}
	if flags[FlagTDSRisk] {
		bio += t.WeightTDS
		other += t.SecondaryWeightTDS
	}
	if flags[FlagFlowRisk] {
		bio += t.WeightFlow
		other += t.SecondaryWeightFlow
	}
	if flags[FlagPHRisk] {
		bio += t.WeightPH
		other += t.SecondaryWeightPH
	}

	switch zone {
	case ZoneHigh:
		bio += t.WeightTempHigh
	case ZoneModerate:
		bio += t.WeightTempModerate
	}

	boost := monthInSeason(now.Month(), t) && r.Temp >= t.SeasonTempMin
	if boost {
		bio += t.SeasonBonus
	}

	return Evaluation{
		Zone:        zone,
		Flags:       flags,
		BioScore:    bio,
		OtherScore:  other,
		SeasonBoost: boost,
	}
}

// zoneFor buckets a temperature into its zone.
func zoneFor(temp float64, t config.RiskThresholds) TempZone {
	switch {
	case temp < t.TempCoolBelow:
		return ZoneCool
	case temp < t.TempHighMin:
		return ZoneModerate
	default:
		return ZoneHigh
	}
}

// monthInSeason reports whether m falls in the configured warm-season
// window. A window whose start month exceeds its end month wraps the year
// boundary (southern-hemisphere deployments).
func monthInSeason(m time.Month, t config.RiskThresholds) bool {
	start, end := time.Month(t.SeasonStartMonth), time.Month(t.SeasonEndMonth)
	if start <= end {
		return m >= start && m <= end
	}
	return m >= start || m <= end
}
