package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safewave/internal/config"
	"safewave/internal/types"
)

func newTestClient(url string) *Client {
	return New(config.ClassifierConfig{URL: url, Timeout: 2 * time.Second}, nil)
}

func sampleReading() types.SensorReading {
	return types.SensorReading{PH: 7.8, Temp: 36, TDS: 300, Turb: 80, Flow: 0}
}

func TestClassify_Success(t *testing.T) {
	var gotPath string
	var gotBody classifyRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(classifyResponse{Label: "HIGH_RISK"})
	}))
	defer ts.Close()

	label, err := newTestClient(ts.URL).Classify(context.Background(), sampleReading())
	require.NoError(t, err)
	assert.Equal(t, types.LabelHighRisk, label)
	assert.Equal(t, "/classify", gotPath)
	assert.Equal(t, 36.0, gotBody.Temp)
}

func TestClassify_PropagatesRequestID(t *testing.T) {
	var gotHeader string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Request-Id")
		json.NewEncoder(w).Encode(classifyResponse{Label: "SAFE"})
	}))
	defer ts.Close()

	ctx := types.WithRequestID(context.Background(), "req-42")
	_, err := newTestClient(ts.URL).Classify(ctx, sampleReading())
	require.NoError(t, err)
	assert.Equal(t, "req-42", gotHeader)
}

func TestClassify_NotConfigured(t *testing.T) {
	_, err := newTestClient("").Classify(context.Background(), sampleReading())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClassify_Non200(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Classify(context.Background(), sampleReading())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamClassifier, appErr.Code)
}

func TestClassify_UnrecognizedLabel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(classifyResponse{Label: "PROBABLY_FINE"})
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Classify(context.Background(), sampleReading())
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamClassifier, appErr.Code)
}

func TestClassify_MalformedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer ts.Close()

	_, err := newTestClient(ts.URL).Classify(context.Background(), sampleReading())
	require.Error(t, err)
}

// After enough consecutive failures the breaker opens and calls fail fast
// without hitting the upstream.
func TestClassify_BreakerOpens(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	c := newTestClient(ts.URL)
	for i := 0; i < 10; i++ {
		_, err := c.Classify(context.Background(), sampleReading())
		require.Error(t, err)
	}

	// The breaker trips after 5 consecutive failures; one more request is
	// allowed through at most before fast-failing.
	assert.LessOrEqual(t, hits, 7)

	_, err := c.Classify(context.Background(), sampleReading())
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeUpstreamClassifier, appErr.Code)
	assert.Contains(t, appErr.Message, "circuit breaker")
}
