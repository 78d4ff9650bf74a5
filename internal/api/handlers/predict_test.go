package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safewave/internal/cache"
	"safewave/internal/core"
	"safewave/internal/types"
)

// --- Fakes ---

type fakeEngine struct {
	decideRec  *types.DecisionRecord
	decideErr  error
	decideSite string
	latestRec  *types.DecisionRecord
	latestErr  error
	latestSite string
}

func (f *fakeEngine) Decide(_ context.Context, siteID string, _ types.SensorReading) (*types.DecisionRecord, error) {
	f.decideSite = siteID
	return f.decideRec, f.decideErr
}

func (f *fakeEngine) Latest(_ context.Context, siteID string) (*types.DecisionRecord, error) {
	f.latestSite = siteID
	return f.latestRec, f.latestErr
}

type fakeLatestReader struct {
	rec  *types.DecisionRecord
	err  error
	site string
}

func (f *fakeLatestReader) GetLatest(_ context.Context, siteID string) (*types.DecisionRecord, error) {
	f.site = siteID
	return f.rec, f.err
}

func testRecord() *types.DecisionRecord {
	return &types.DecisionRecord{
		ID:          "rec-1",
		SiteID:      "default",
		PH:          7.8,
		Temp:        36,
		TDS:         300,
		Turb:        80,
		Flow:        0,
		Advisory:    types.LabelUnknown,
		BioScore:    7,
		RiskPercent: 100,
		HighCount:   2,
		Status:      types.StatusWarning,
		CreatedAt:   time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC),
	}
}

func newTestRouter(eng *fakeEngine, latest LatestReader) http.Handler {
	h := NewPredictHandler(eng, latest, core.NewValidator(nil), "default", nil)
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

const validBody = `{"ph":7.8,"temp":36,"tds":300,"turb":80,"flow":0}`

// --- POST /predict ---

func TestHandlePredict_Success(t *testing.T) {
	eng := &fakeEngine{decideRec: testRecord()}
	router := newTestRouter(eng, nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(validBody))
	router.ServeHTTP(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", eng.decideSite)

	var resp struct {
		Data types.DecisionRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rec-1", resp.Data.ID)
	assert.Equal(t, types.StatusWarning, resp.Data.Status)
	assert.Equal(t, 100, resp.Data.RiskPercent)
}

func TestHandlePredict_ExplicitSite(t *testing.T) {
	eng := &fakeEngine{decideRec: testRecord()}
	router := newTestRouter(eng, nil)

	body := `{"site_id":"intake-7","ph":7.8,"temp":36,"tds":300,"turb":80,"flow":0}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "intake-7", eng.decideSite)
}

func TestHandlePredict_MissingField(t *testing.T) {
	eng := &fakeEngine{decideRec: testRecord()}
	router := newTestRouter(eng, nil)

	// temp absent: 422 with the missing-field code, and the engine is
	// never invoked.
	body := `{"ph":7.8,"tds":300,"turb":80,"flow":0}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body)))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, eng.decideSite)

	var resp struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeValidationMissingField), resp.Error.Code)
	assert.Contains(t, resp.Error.Details, "temp")
}

func TestHandlePredict_OutOfRange(t *testing.T) {
	router := newTestRouter(&fakeEngine{decideRec: testRecord()}, nil)

	body := `{"ph":15,"temp":36,"tds":300,"turb":80,"flow":0}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body)))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), string(types.ErrCodeValidationOutOfRange))
}

func TestHandlePredict_MalformedJSON(t *testing.T) {
	router := newTestRouter(&fakeEngine{decideRec: testRecord()}, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(`{"ph":`)))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), string(types.ErrCodeValidationInvalidJSON))
}

func TestHandlePredict_UnknownField(t *testing.T) {
	router := newTestRouter(&fakeEngine{decideRec: testRecord()}, nil)

	body := `{"ph":7.8,"temp":36,"tds":300,"turb":80,"flow":0,"salinity":5}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(body)))

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestHandlePredict_EngineError(t *testing.T) {
	eng := &fakeEngine{
		decideErr: types.NewAppError(types.ErrCodeStateStoreUnavailable, "store down", nil),
	}
	router := newTestRouter(eng, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(validBody)))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), string(types.ErrCodeStateStoreUnavailable))
}

// --- GET /latest ---

func TestHandleLatest_CacheHit(t *testing.T) {
	eng := &fakeEngine{}
	latest := &fakeLatestReader{rec: testRecord()}
	router := newTestRouter(eng, latest)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/latest", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", latest.site)
	// The log-backed read is skipped entirely.
	assert.Empty(t, eng.latestSite)
}

func TestHandleLatest_CacheMissFallsThrough(t *testing.T) {
	eng := &fakeEngine{latestRec: testRecord()}
	latest := &fakeLatestReader{err: cache.ErrMiss}
	router := newTestRouter(eng, latest)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/latest", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "default", eng.latestSite)
}

func TestHandleLatest_SiteQueryParam(t *testing.T) {
	eng := &fakeEngine{latestRec: testRecord()}
	router := newTestRouter(eng, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/latest?site_id=intake-7", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "intake-7", eng.latestSite)
}

func TestHandleLatest_EmptyStore(t *testing.T) {
	eng := &fakeEngine{
		latestErr: types.NewAppError(types.ErrCodeNotFoundReading, "No data available", nil),
	}
	router := newTestRouter(eng, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/latest", nil))

	require.Equal(t, http.StatusNotFound, w.Code)

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(types.ErrCodeNotFoundReading), resp.Error.Code)
	assert.Equal(t, "No data available", resp.Error.Message)
}
