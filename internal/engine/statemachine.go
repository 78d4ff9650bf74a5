package engine

import (
	"safewave/internal/config"
	"safewave/internal/types"
)

// NextCount applies the hysteresis accumulation rule to the persisted
// counter: a reading scoring at or above the increment threshold adds
// IncrementStep; anything else decays by DecayStep, clamped at zero. The two
// step sizes are independent so escalation and recovery can run at different
// speeds (the default decays twice as fast as it increments).
func NextCount(prior int, bioScore float64, t config.RiskThresholds) int {
	if bioScore >= t.IncrementThreshold {
		return prior + t.IncrementStep
	}
	next := prior - t.DecayStep
	if next < 0 {
		return 0
	}
	return next
}

// DeriveStatus maps the evaluation and the already-updated counter to the
// published status by temperature-dominance precedence:
//
//   - cool zone: SAFE unconditionally -- cool water overrides every other
//     signal, the organism is assumed dormant;
//   - moderate zone: SAFE unless the non-temperature evidence reaches the
//     secondary threshold, then WARNING;
//   - high zone: WARNING at minimum; HIGH_RISK only when the secondary
//     evidence is present AND the counter has crossed the confirmation
//     threshold. Temperature alone is never sufficient for the top tier,
//     and neither is a single extreme reading.
//
// Every branch is total; there is no default fallthrough.
func DeriveStatus(ev Evaluation, highCount int, t config.RiskThresholds) types.Status {
	switch ev.Zone {
	case ZoneCool:
		return types.StatusSafe
	case ZoneModerate:
		if ev.OtherScore < t.SecondaryThreshold {
			return types.StatusSafe
		}
		return types.StatusWarning
	default: // ZoneHigh
		if ev.OtherScore < t.SecondaryThreshold {
			return types.StatusWarning
		}
		if highCount >= t.ConfirmThreshold {
			return types.StatusHighRisk
		}
		return types.StatusWarning
	}
}

// Advance runs one full counter-and-status step against the prior persisted
// count and returns the pair to persist.
//
// When the HardSafeOverride strategy is enabled and both dominant flags
// (high-temperature zone, turbidity) are absent, it short-circuits to
// (0, SAFE) without consulting the score, fully resetting hysteresis in a
// single step. Otherwise the counter decays or accumulates gradually and the
// status ladder reads the updated counter, so the confirmation threshold is
// crossed on the reading that pushes the counter over it, not one later.
func Advance(ev Evaluation, priorCount int, t config.RiskThresholds) (int, types.Status) {
	if t.HardSafeOverride && !ev.Flags[FlagTempRisk] && !ev.Flags[FlagTurbRisk] {
		return 0, types.StatusSafe
	}
	count := NextCount(priorCount, ev.BioScore, t)
	return count, DeriveStatus(ev, count, t)
}
