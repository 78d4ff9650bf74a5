// Package ingest consumes sensor readings from the MQTT broker and feeds
// them through the decision engine. It is the telemetry twin of the HTTP
// /predict endpoint: same payload shape, same validation, same pipeline.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"safewave/internal/config"
	"safewave/internal/core"
	"safewave/internal/types"
)

// connectTimeout bounds the initial broker handshake.
const connectTimeout = 10 * time.Second

// decideTimeout bounds one decision pipeline run per message.
const decideTimeout = 15 * time.Second

// ReadingSink is the contract the consumer needs from the risk engine.
type ReadingSink interface {
	Decide(ctx context.Context, siteID string, reading types.SensorReading) (*types.DecisionRecord, error)
}

// readingMessage is the MQTT payload shape. Identical to the HTTP predict
// request: pointer fields so absent keys fail validation rather than
// defaulting to zero.
type readingMessage struct {
	SiteID *string  `json:"site_id,omitempty" validate:"omitempty,min=1,max=100"`
	PH     *float64 `json:"ph" validate:"required,gte=0,lte=14"`
	Temp   *float64 `json:"temp" validate:"required,gte=-10,lte=100"`
	TDS    *float64 `json:"tds" validate:"required,gte=0"`
	Turb   *float64 `json:"turb" validate:"required,gte=0"`
	Flow   *int     `json:"flow" validate:"required,gte=0"`
}

// Consumer subscribes to the readings topic and runs every valid message
// through the decision engine. Malformed or invalid messages are logged and
// dropped; a sensor cannot retry meaningfully, so there is no dead-letter
// path.
type Consumer struct {
	client      mqtt.Client
	sink        ReadingSink
	validator   *core.Validator
	cfg         config.MQTTConfig
	defaultSite string
	logger      *slog.Logger
}

// NewConsumer builds the MQTT client and consumer. The connection is not
// established until Start.
func NewConsumer(
	cfg config.MQTTConfig,
	sink ReadingSink,
	validator *core.Validator,
	defaultSite string,
	logger *slog.Logger,
) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Consumer{
		sink:        sink,
		validator:   validator,
		cfg:         cfg,
		defaultSite: defaultSite,
		logger:      logger,
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetOrderMatters(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password.Unmask())
	}
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.BrokerURL)
		// Resubscribe on every (re)connect; subscriptions do not survive a
		// new session.
		token := client.Subscribe(cfg.ReadingsTopic, byte(cfg.QoS), c.handleMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			logger.Error("mqtt subscribe failed", "topic", cfg.ReadingsTopic, "error", err)
		}
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Start connects to the broker. Subscription happens in the on-connect
// handler so it also covers reconnects.
func (c *Consumer) Start() error {
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("mqtt connect timed out after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Stop disconnects from the broker, allowing in-flight handlers to finish.
func (c *Consumer) Stop() {
	c.client.Disconnect(uint(decideTimeout.Milliseconds()))
	c.logger.Info("mqtt consumer stopped")
}

// handleMessage parses, validates, and scores one reading.
func (c *Consumer) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var payload readingMessage
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		c.logger.Warn("dropping malformed reading message",
			"topic", msg.Topic(), "error", err)
		return
	}
	if err := c.validator.ValidateStruct(payload); err != nil {
		c.logger.Warn("dropping invalid reading message",
			"topic", msg.Topic(), "error", err)
		return
	}

	siteID := c.defaultSite
	if payload.SiteID != nil {
		siteID = *payload.SiteID
	}
	reading := types.SensorReading{
		PH:   *payload.PH,
		Temp: *payload.Temp,
		TDS:  *payload.TDS,
		Turb: *payload.Turb,
		Flow: *payload.Flow,
	}

	ctx, cancel := context.WithTimeout(context.Background(), decideTimeout)
	defer cancel()

	rec, err := c.sink.Decide(ctx, siteID, reading)
	if err != nil {
		c.logger.Error("decision failed for ingested reading",
			"site_id", siteID, "error", err)
		return
	}
	c.logger.Debug("ingested reading scored",
		"site_id", siteID, "status", rec.Status, "bio_score", rec.BioScore)
}
