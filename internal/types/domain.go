// Package types defines the shared domain model for the SafeWave platform:
// sensor readings, decision records, the persisted risk state, and the
// application error model. It carries no third-party dependencies so that
// every other package can import it freely.
package types

import "time"

// SensorReading is one tuple of water-quality measurements from a monitored
// site. It is a value type with no identity; the engine consumes it once.
//
// Flow is a non-negative flow rate. A reading counts as stagnant when the
// rate falls below the configured stagnation threshold (default 1, so
// deployments that report a bare 0/1 flag work unchanged).
type SensorReading struct {
	PH   float64 `json:"ph"`
	Temp float64 `json:"temp"`
	TDS  float64 `json:"tds"`
	Turb float64 `json:"turb"`
	Flow int     `json:"flow"`
}

// RiskState is the only mutable, persisted entity: the hysteresis counter and
// last published status for one monitored site. It is owned exclusively by
// the engine and mutated exactly once per invocation.
//
// Version guards conditional writes: an update only succeeds when the stored
// version matches the one the state was loaded with, so concurrent
// read-decide-write sequences against the same site cannot lose increments.
type RiskState struct {
	SiteID    string    `json:"site_id"`
	HighCount int       `json:"high_count"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"-"`
}

// NewRiskState returns the initial state for a site that has never been
// scored: zero counter, SAFE status, version zero (never persisted).
func NewRiskState(siteID string) *RiskState {
	return &RiskState{
		SiteID:    siteID,
		HighCount: 0,
		Status:    StatusSafe,
	}
}

// DecisionRecord is the immutable output of one engine invocation. It is
// appended to the readings log and returned to the caller; it is never
// mutated or deleted by the engine (retention pruning is a maintenance
// concern, not an engine one).
type DecisionRecord struct {
	ID     string `json:"id"`
	SiteID string `json:"site_id"`

	// Echo of the evaluated reading.
	PH   float64 `json:"ph"`
	Temp float64 `json:"temp"`
	TDS  float64 `json:"tds"`
	Turb float64 `json:"turb"`
	Flow int     `json:"flow"`

	// Advisory is the external classifier's label. Informational only; it is
	// never an input to the status transition.
	Advisory AdvisoryLabel `json:"advisory"`

	BioScore    float64 `json:"bio_score"`
	RiskPercent int     `json:"risk_percent"`
	HighCount   int     `json:"high_count"`
	Status      Status  `json:"status"`

	CreatedAt time.Time `json:"timestamp"`
}
