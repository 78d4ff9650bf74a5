// Package handlers contains the HTTP handler implementations for the
// SafeWave API: reading submission (POST /predict) and the latest-decision
// read path (GET /latest).
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"safewave/internal/cache"
	"safewave/internal/core"
	"safewave/internal/types"
)

// DecisionEngine is the contract the handler needs from the risk engine.
type DecisionEngine interface {
	Decide(ctx context.Context, siteID string, reading types.SensorReading) (*types.DecisionRecord, error)
	Latest(ctx context.Context, siteID string) (*types.DecisionRecord, error)
}

// LatestReader serves the cached freshest decision; a miss or failure falls
// through to the engine's log-backed read.
type LatestReader interface {
	GetLatest(ctx context.Context, siteID string) (*types.DecisionRecord, error)
}

// PredictRequest is the request body for POST /v1/predict. The sensor fields
// are pointers so that an absent field is distinguishable from a zero value
// and reported as validation_missing_required_field.
type PredictRequest struct {
	SiteID *string  `json:"site_id,omitempty" validate:"omitempty,min=1,max=100"`
	PH     *float64 `json:"ph" validate:"required,gte=0,lte=14"`
	Temp   *float64 `json:"temp" validate:"required,gte=-10,lte=100"`
	TDS    *float64 `json:"tds" validate:"required,gte=0"`
	Turb   *float64 `json:"turb" validate:"required,gte=0"`
	Flow   *int     `json:"flow" validate:"required,gte=0"`
}

// PredictHandler exposes the decision pipeline over HTTP.
type PredictHandler struct {
	engine      DecisionEngine
	latestCache LatestReader // may be nil
	validator   *core.Validator
	defaultSite string
	logger      *slog.Logger
}

// NewPredictHandler creates a PredictHandler. The cache is optional; nil
// sends every GET /latest straight to the readings log.
func NewPredictHandler(
	engine DecisionEngine,
	latestCache LatestReader,
	validator *core.Validator,
	defaultSite string,
	logger *slog.Logger,
) *PredictHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PredictHandler{
		engine:      engine,
		latestCache: latestCache,
		validator:   validator,
		defaultSite: defaultSite,
		logger:      logger,
	}
}

// RegisterRoutes mounts the handler's endpoints on the given router.
func (h *PredictHandler) RegisterRoutes(r chi.Router) {
	r.Post("/predict", h.HandlePredict)
	r.Get("/latest", h.HandleLatest)
}

// HandlePredict processes one sensor reading: decode, validate, run the
// decision pipeline, and return the persisted decision record.
//
// POST /v1/predict
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	siteID := h.defaultSite
	if req.SiteID != nil {
		siteID = *req.SiteID
	}

	reading := types.SensorReading{
		PH:   *req.PH,
		Temp: *req.Temp,
		TDS:  *req.TDS,
		Turb: *req.Turb,
		Flow: *req.Flow,
	}

	rec, err := h.engine.Decide(r.Context(), siteID, reading)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rec})
}

// HandleLatest returns the most recent decision for the site: cache first,
// then the readings log. An empty log yields 404 not_found_reading.
//
// GET /v1/latest?site_id=...
func (h *PredictHandler) HandleLatest(w http.ResponseWriter, r *http.Request) {
	siteID := r.URL.Query().Get("site_id")
	if siteID == "" {
		siteID = h.defaultSite
	}

	if h.latestCache != nil {
		rec, err := h.latestCache.GetLatest(r.Context(), siteID)
		if err == nil {
			core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rec})
			return
		}
		if !errors.Is(err, cache.ErrMiss) {
			h.logger.Warn("latest-decision cache read failed, falling back to store",
				"site_id", siteID, "error", err)
		}
	}

	rec, err := h.engine.Latest(r.Context(), siteID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: rec})
}
