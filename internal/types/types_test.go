package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_SeverityOrdering(t *testing.T) {
	assert.Less(t, StatusSafe.Severity(), StatusWarning.Severity())
	assert.Less(t, StatusWarning.Severity(), StatusHighRisk.Severity())

	// A corrupted value ranks below SAFE so it can never read as an
	// escalation.
	assert.Less(t, Status("GARBAGE").Severity(), StatusSafe.Severity())
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusSafe, StatusWarning, StatusHighRisk} {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	_, err := ParseStatus("safe") // case-sensitive
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestAdvisoryLabel_IsValid(t *testing.T) {
	assert.True(t, LabelSafe.IsValid())
	assert.True(t, LabelHighRisk.IsValid())
	assert.True(t, LabelUnknown.IsValid())
	assert.False(t, AdvisoryLabel("WARNING").IsValid())
}

func TestNewRiskState(t *testing.T) {
	st := NewRiskState("site-1")
	assert.Equal(t, "site-1", st.SiteID)
	assert.Zero(t, st.HighCount)
	assert.Equal(t, StatusSafe, st.Status)
	assert.Zero(t, st.Version)
}

func TestAppError_HTTPStatusByPrefix(t *testing.T) {
	tests := []struct {
		code   ErrorCode
		status int
	}{
		{ErrCodeValidationFailed, http.StatusUnprocessableEntity},
		{ErrCodeNotFoundReading, http.StatusNotFound},
		{ErrCodeConflictConcurrent, http.StatusConflict},
		{ErrCodeStateStoreUnavailable, http.StatusServiceUnavailable},
		{ErrCodeStateStoreWrite, http.StatusServiceUnavailable},
		{ErrCodeUpstreamClassifier, http.StatusBadGateway},
		{ErrCodeInternalDB, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.status, tc.code.HTTPStatus(), string(tc.code))
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	err := NewAppError(ErrCodeInternalDB, "wrapper", inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "internal_database_error: wrapper", err.Error())
}

func TestAppError_WithDetailsLeavesOriginal(t *testing.T) {
	base := NewAppErrorWithDetails(ErrCodeValidationFailed, "bad", nil, map[string]any{"a": 1})
	derived := base.WithDetails(map[string]any{"b": 2})

	assert.Len(t, base.Details, 1)
	assert.Len(t, derived.Details, 2)
	assert.Equal(t, 1, derived.Details["a"])
}

func TestDecisionRecord_JSONShape(t *testing.T) {
	rec := DecisionRecord{ID: "rec-1", Status: StatusHighRisk}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	// The creation time serializes under the wire name "timestamp".
	assert.Contains(t, m, "timestamp")
	assert.Equal(t, "HIGH_RISK", m["status"])
}

func TestRiskState_VersionNotSerialized(t *testing.T) {
	raw, err := json.Marshal(RiskState{SiteID: "s", Version: 9})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "9")
}

func TestSecretString_Redaction(t *testing.T) {
	s := SecretString("postgres://user:hunter2@db/safewave")

	assert.NotContains(t, fmt.Sprintf("%v", s), "hunter2")
	assert.NotContains(t, fmt.Sprintf("%s", s), "hunter2")

	raw, err := json.Marshal(struct {
		URL SecretString `json:"url"`
	}{URL: s})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "hunter2")

	assert.Contains(t, s.Unmask(), "hunter2")
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(t.Context(), "req-1")
	assert.Equal(t, "req-1", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(t.Context()))
}
