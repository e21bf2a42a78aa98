package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/fgeck/powerman-homelab/internal/models"
	"github.com/rs/zerolog"
)

const mqttConnectTimeout = 10 * time.Second

// MQTTTransport publishes notifications as JSON messages to a single
// topic. The process is one-shot per tick, so the connection is opened
// per send and closed afterwards.
type MQTTTransport struct {
	cfg    models.MQTTConfig
	logger zerolog.Logger
	// newClient is swappable for tests.
	newClient func(opts *mqtt.ClientOptions) mqtt.Client
}

// NewMQTTTransport creates an MQTT transport.
func NewMQTTTransport(logger zerolog.Logger, cfg models.MQTTConfig) *MQTTTransport {
	return &MQTTTransport{cfg: cfg, logger: logger, newClient: mqtt.NewClient}
}

// NewMQTTTransportWithClient creates an MQTT transport with a custom
// client factory (for testing).
func NewMQTTTransportWithClient(logger zerolog.Logger, cfg models.MQTTConfig, newClient func(opts *mqtt.ClientOptions) mqtt.Client) *MQTTTransport {
	return &MQTTTransport{cfg: cfg, logger: logger, newClient: newClient}
}

// mqttMessage is the published payload.
type mqttMessage struct {
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Send publishes one notification and waits for the broker to acknowledge.
func (t *MQTTTransport) Send(ctx context.Context, subject, body string) error {
	payload, err := json.Marshal(mqttMessage{Subject: subject, Body: body, Timestamp: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(t.cfg.Broker)
	opts.SetClientID(t.cfg.ClientID)
	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
		opts.SetPassword(t.cfg.Password)
	}
	opts.SetConnectTimeout(mqttConnectTimeout)
	opts.SetCleanSession(true)

	client := t.newClient(opts)
	if token := client.Connect(); !token.WaitTimeout(mqttConnectTimeout) || token.Error() != nil {
		return fmt.Errorf("connecting to MQTT broker %q: %w", t.cfg.Broker, tokenErr(token))
	}
	defer client.Disconnect(250)

	t.logger.Debug().Str("broker", t.cfg.Broker).Str("topic", t.cfg.Topic).Msg("publishing notification")

	token := client.Publish(t.cfg.Topic, t.cfg.QOS, false, payload)
	if !token.WaitTimeout(mqttConnectTimeout) || token.Error() != nil {
		return fmt.Errorf("publishing to %q: %w", t.cfg.Topic, tokenErr(token))
	}
	return nil
}

func tokenErr(token mqtt.Token) error {
	if err := token.Error(); err != nil {
		return err
	}
	return fmt.Errorf("timed out after %s", mqttConnectTimeout)
}
