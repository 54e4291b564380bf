package power

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"solar_mining/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	mqttName        = "mqtt"
	mqttWaitTimeout = 10 * time.Second
)

var errNoReading = errors.New("no reading received yet")

// MQTTSource keeps the latest power value published on a topic, for meters
// that are already bridged to a broker.
type MQTTSource struct {
	client mqtt.Client
	topic  string
	maxAge time.Duration
	log    *logger.Logger
	now    func() time.Time

	mu         sync.Mutex
	watts      float64
	receivedAt time.Time
}

// NewMQTTSource subscribes to topic on client once Authenticate is called.
// Readings older than maxAge are treated as failed reads.
func NewMQTTSource(client mqtt.Client, topic string, maxAge time.Duration, log *logger.Logger) (*MQTTSource, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, errors.New("mqtt power topic is not configured")
	}
	return &MQTTSource{client: client, topic: topic, maxAge: maxAge, log: log, now: time.Now}, nil
}

// Authenticate connects to the broker if needed and subscribes to the power topic.
func (s *MQTTSource) Authenticate(ctx context.Context) error {
	if !s.client.IsConnected() {
		if err := waitToken(ctx, s.client.Connect()); err != nil {
			return &AuthenticationError{Source: mqttName, Err: fmt.Errorf("connect: %w", err)}
		}
	}
	if err := waitToken(ctx, s.client.Subscribe(s.topic, 1, s.onMessage)); err != nil {
		return &AuthenticationError{Source: mqttName, Err: fmt.Errorf("subscribe %q: %w", s.topic, err)}
	}
	s.log.Infow("subscribed to power topic", "topic", s.topic)
	return nil
}

// InstantPower returns the most recent reading if it is fresh enough.
func (s *MQTTSource) InstantPower(_ context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.receivedAt.IsZero() {
		return 0, &ReadError{Source: mqttName, Err: errNoReading}
	}
	if age := s.now().Sub(s.receivedAt); s.maxAge > 0 && age > s.maxAge {
		return 0, &ReadError{Source: mqttName, Err: fmt.Errorf("last reading is stale (%s old)", age.Round(time.Second))}
	}
	return s.watts, nil
}

func (s *MQTTSource) onMessage(_ mqtt.Client, msg mqtt.Message) {
	watts, err := parsePowerPayload(msg.Payload())
	if err != nil {
		s.log.Warnw("ignoring power message", "topic", msg.Topic(), "err", err)
		return
	}
	s.mu.Lock()
	s.watts = watts
	s.receivedAt = s.now()
	s.mu.Unlock()
}

// parsePowerPayload accepts a bare number or a JSON object with an
// "instant_power" or "power" field.
func parsePowerPayload(payload []byte) (float64, error) {
	text := strings.TrimSpace(string(payload))
	if text == "" {
		return 0, errors.New("empty payload")
	}
	if v, err := strconv.ParseFloat(text, 64); err == nil {
		return v, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return 0, fmt.Errorf("payload is neither a number nor a JSON object: %q", text)
	}
	for _, key := range []string{"instant_power", "power"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return 0, fmt.Errorf("field %q: %w", key, err)
		}
		return v, nil
	}
	return 0, errors.New(`payload has no "instant_power" or "power" field`)
}

// waitToken waits for an MQTT operation, giving up when ctx ends.
func waitToken(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(mqttWaitTimeout):
		return errors.New("timed out waiting for broker")
	}
}
