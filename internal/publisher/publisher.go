// Package publisher mirrors the controller's status and events to an MQTT
// broker, with Home Assistant discovery.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"solar_mining/internal/logger"
	"solar_mining/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	payloadOn  = "ON"
	payloadOff = "OFF"
)

type topics struct {
	availability   string
	running        string
	totalSeconds   string
	sessionSeconds string
	sitePower      string
	status         string
	events         string
}

func newTopics(prefix string) topics {
	prefix = strings.TrimRight(prefix, "/")
	return topics{
		availability:   prefix + "/status",
		running:        prefix + "/running",
		totalSeconds:   prefix + "/total_running_seconds",
		sessionSeconds: prefix + "/session_seconds",
		sitePower:      prefix + "/site_power",
		status:         prefix + "/state",
		events:         prefix + "/events",
	}
}

type message struct {
	topic   string
	payload any
}

// Publisher implements the controller's status and event sinks. State
// topics are retained; events are not.
type Publisher struct {
	client mqtt.Client
	topics topics
	log    *logger.Logger
}

func New(client mqtt.Client, prefix string, log *logger.Logger) *Publisher {
	return &Publisher{client: client, topics: newTopics(prefix), log: log}
}

// Save publishes the per-value state topics and the full JSON snapshot.
// While the broker is unreachable the snapshot is dropped; the next cycle
// publishes a fresh one.
func (p *Publisher) Save(ctx context.Context, s models.MinerStatus) error {
	if !p.client.IsConnected() {
		p.log.Debugw("mqtt not connected; status not published")
		return nil
	}

	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	running := payloadOff
	if s.Running {
		running = payloadOn
	}
	values := []message{
		{p.topics.running, running},
		{p.topics.totalSeconds, formatFloat(s.TotalRunningSeconds)},
		{p.topics.sessionSeconds, formatFloat(s.SessionSeconds)},
		{p.topics.status, body},
	}
	if s.LastPowerW != nil {
		values = append(values, message{p.topics.sitePower, formatFloat(*s.LastPowerW)})
	}

	for _, v := range values {
		if err := wait(ctx, p.client.Publish(v.topic, 1, true, v.payload)); err != nil {
			return fmt.Errorf("publish %s: %w", v.topic, err)
		}
	}
	return nil
}

// Append publishes an event as JSON on the events topic.
func (p *Publisher) Append(ctx context.Context, e models.MinerEvent) error {
	if !p.client.IsConnected() {
		return nil
	}
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := wait(ctx, p.client.Publish(p.topics.events, 1, false, body)); err != nil {
		return fmt.Errorf("publish %s: %w", p.topics.events, err)
	}
	return nil
}

// Close marks the controller offline and disconnects.
func (p *Publisher) Close() {
	if !p.client.IsConnected() {
		return
	}
	p.client.Publish(p.topics.availability, 1, true, payloadOffline).WaitTimeout(waitTimeout)
	p.client.Disconnect(250)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}
