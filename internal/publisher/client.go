package publisher

import (
	"context"
	"errors"
	"os"
	"time"

	"solar_mining/internal/config"
	"solar_mining/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	keepAlive   = 30 * time.Second
	pingTimeout = 10 * time.Second
	waitTimeout = 10 * time.Second

	payloadOnline  = "online"
	payloadOffline = "offline"
)

// ClientOptions configures a broker connection whose last will marks the
// controller offline. On every (re)connect it announces itself online and
// refreshes the Home Assistant discovery records.
func ClientOptions(cfg config.MQTTSettings, log *logger.Logger) *mqtt.ClientOptions {
	t := newTopics(cfg.TopicPrefix)
	device := deviceID(cfg.ClientID)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetKeepAlive(keepAlive).
		SetPingTimeout(pingTimeout).
		SetAutoReconnect(true).
		// The broker keeps the power topic subscription across reconnects.
		SetCleanSession(false).
		SetWill(t.availability, payloadOffline, 1, true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnect = func(c mqtt.Client) {
		log.Infow("mqtt connected", "broker", cfg.Broker)
		if err := announce(c, t, device); err != nil {
			log.Warnw("mqtt announce failed", "err", err)
		}
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warnw("mqtt connection lost", "err", err)
	}
	return opts
}

// Connect connects client, giving up when ctx ends.
func Connect(ctx context.Context, client mqtt.Client) error {
	return wait(ctx, client.Connect())
}

func wait(ctx context.Context, token mqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(waitTimeout):
		return errors.New("timed out waiting for broker")
	}
}

// deviceID prefers the client id and falls back to the host name.
func deviceID(clientID string) string {
	if clientID != "" {
		return clientID
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return config.DefaultMQTTClientID
	}
	return host
}
