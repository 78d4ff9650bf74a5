package types

import "fmt"

// Status is the published three-level contamination-risk severity.
// It is totally ordered: SAFE < WARNING < HIGH_RISK (see Severity).
type Status string

const (
	StatusSafe     Status = "SAFE"
	StatusWarning  Status = "WARNING"
	StatusHighRisk Status = "HIGH_RISK"
)

// Severity returns the rank of the status for ordering comparisons.
// Higher is more severe. Unknown values rank below SAFE so that a corrupted
// stored status can never masquerade as an escalation.
func (s Status) Severity() int {
	switch s {
	case StatusSafe:
		return 1
	case StatusWarning:
		return 2
	case StatusHighRisk:
		return 3
	default:
		return 0
	}
}

// IsValid reports whether s is one of the three defined statuses.
func (s Status) IsValid() bool {
	return s == StatusSafe || s == StatusWarning || s == StatusHighRisk
}

// ParseStatus converts a stored string into a Status, rejecting anything
// outside the enum. Used when hydrating persisted state.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return s, nil
}

// AdvisoryLabel is the informational classification produced by the external
// model. LabelUnknown is the sentinel substituted when the classifier is
// unavailable or errors; the engine still produces a full decision.
type AdvisoryLabel string

const (
	LabelSafe     AdvisoryLabel = "SAFE"
	LabelHighRisk AdvisoryLabel = "HIGH_RISK"
	LabelUnknown  AdvisoryLabel = "UNKNOWN"
)

// IsValid reports whether l is a defined advisory label.
func (l AdvisoryLabel) IsValid() bool {
	return l == LabelSafe || l == LabelHighRisk || l == LabelUnknown
}
