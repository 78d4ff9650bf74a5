// Package classifier is the anti-corruption layer between the risk engine
// and the external ML model service. The model's label is advisory only: it
// is recorded on every decision but never drives the status transition, so
// every failure mode here degrades to the UNKNOWN sentinel instead of
// failing the invocation.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"safewave/internal/config"
	"safewave/internal/types"
)

// ErrNotConfigured is returned when no classifier URL is configured.
// The engine maps it to the UNKNOWN label like any other failure.
var ErrNotConfigured = errors.New("classifier: no endpoint configured")

// maxResponseBytes caps the classifier response size; the expected body is
// a one-field JSON object.
const maxResponseBytes = 4 << 10

// classifyRequest mirrors the reading shape the model was trained on.
type classifyRequest struct {
	PH   float64 `json:"ph"`
	Temp float64 `json:"temp"`
	TDS  float64 `json:"tds"`
	Turb float64 `json:"turb"`
	Flow int     `json:"flow"`
}

// classifyResponse is the model service's reply envelope.
type classifyResponse struct {
	Label string `json:"label"`
}

// Client calls the external model service over HTTP behind a circuit
// breaker, so a down model fails fast instead of burning the request budget
// of every decision.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[types.AdvisoryLabel]
	baseURL    string
	logger     *slog.Logger
}

// New creates a classifier Client from configuration. An empty URL yields a
// client whose Classify always returns ErrNotConfigured.
func New(cfg config.ClassifierConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker[types.AdvisoryLabel](gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    cb,
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		logger:     logger,
	}
}

// Classify submits the reading to the model service and returns its label.
// Exactly one upstream call is made per invocation; an open breaker or any
// transport, status, or decoding failure surfaces as an error for the
// engine to substitute UNKNOWN.
func (c *Client) Classify(ctx context.Context, reading types.SensorReading) (types.AdvisoryLabel, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}

	label, err := c.breaker.Execute(func() (types.AdvisoryLabel, error) {
		return c.doClassify(ctx, reading)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", types.NewAppError(
				types.ErrCodeUpstreamClassifier,
				"classifier circuit breaker open",
				err,
			)
		}
		return "", err
	}
	return label, nil
}

// doClassify performs the actual HTTP round trip.
func (c *Client) doClassify(ctx context.Context, reading types.SensorReading) (types.AdvisoryLabel, error) {
	payload := classifyRequest{
		PH:   reading.PH,
		Temp: reading.Temp,
		TDS:  reading.TDS,
		Turb: reading.Turb,
		Flow: reading.Flow,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding classify request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if reqID := types.GetRequestID(ctx); reqID != "" {
		req.Header.Set("X-Request-Id", reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", types.NewAppError(
			types.ErrCodeUpstreamClassifier,
			"classifier request failed",
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return "", types.NewAppError(
			types.ErrCodeUpstreamClassifier,
			fmt.Sprintf("classifier returned status %d", resp.StatusCode),
			nil,
		)
	}

	var decoded classifyResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return "", types.NewAppError(
			types.ErrCodeUpstreamClassifier,
			"classifier returned malformed response",
			err,
		)
	}

	label := types.AdvisoryLabel(decoded.Label)
	if !label.IsValid() {
		return "", types.NewAppError(
			types.ErrCodeUpstreamClassifier,
			fmt.Sprintf("classifier returned unrecognized label %q", decoded.Label),
			nil,
		)
	}
	return label, nil
}
