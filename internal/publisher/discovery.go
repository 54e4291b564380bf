package publisher

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const discoveryPrefix = "homeassistant"

// hassConfig is a Home Assistant MQTT discovery record in abbreviated form.
type hassConfig struct {
	Name              string     `json:"name"`
	DeviceClass       string     `json:"dev_cla,omitempty"`
	UnitOfMeasurement string     `json:"unit_of_meas,omitempty"`
	StateClass        string     `json:"stat_cla,omitempty"`
	StateTopic        string     `json:"stat_t"`
	AvailabilityTopic string     `json:"avty_t"`
	PayloadOn         string     `json:"pl_on,omitempty"`
	PayloadOff        string     `json:"pl_off,omitempty"`
	UniqueID          string     `json:"uniq_id"`
	Device            hassDevice `json:"dev"`
}

type hassDevice struct {
	IDs          string `json:"ids"`
	Name         string `json:"name"`
	Model        string `json:"mdl,omitempty"`
	Manufacturer string `json:"mf,omitempty"`
}

type entity struct {
	component string // sensor | binary_sensor
	key       string
	cfg       hassConfig
}

func entities(t topics, device string) []entity {
	dev := hassDevice{IDs: device, Name: "Solar miner " + device, Model: "solar_mining controller"}
	base := func(name, key, state string) hassConfig {
		return hassConfig{
			Name:              name,
			StateTopic:        state,
			AvailabilityTopic: t.availability,
			UniqueID:          fmt.Sprint(device, ".", key),
			Device:            dev,
		}
	}

	running := base("Miner running", "running", t.running)
	running.DeviceClass = "running"
	running.PayloadOn = payloadOn
	running.PayloadOff = payloadOff

	total := base("Miner total running time", "total_running_seconds", t.totalSeconds)
	total.DeviceClass = "duration"
	total.UnitOfMeasurement = "s"
	total.StateClass = "total_increasing"

	session := base("Miner session time", "session_seconds", t.sessionSeconds)
	session.DeviceClass = "duration"
	session.UnitOfMeasurement = "s"
	session.StateClass = "measurement"

	power := base("Site export power", "site_power", t.sitePower)
	power.DeviceClass = "power"
	power.UnitOfMeasurement = "W"
	power.StateClass = "measurement"

	return []entity{
		{component: "binary_sensor", key: "running", cfg: running},
		{component: "sensor", key: "total_running_seconds", cfg: total},
		{component: "sensor", key: "session_seconds", cfg: session},
		{component: "sensor", key: "site_power", cfg: power},
	}
}

func discoveryTopic(component, device, key string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", discoveryPrefix, component, device, key)
}

// announce marks the controller online and publishes retained discovery records.
func announce(c mqtt.Client, t topics, device string) error {
	if token := c.Publish(t.availability, 1, true, payloadOnline); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish availability: %w", token.Error())
	}
	for _, e := range entities(t, device) {
		body, err := json.Marshal(e.cfg)
		if err != nil {
			return fmt.Errorf("encode discovery %s: %w", e.key, err)
		}
		if token := c.Publish(discoveryTopic(e.component, device, e.key), 1, true, body); token.Wait() && token.Error() != nil {
			return fmt.Errorf("publish discovery %s: %w", e.key, token.Error())
		}
	}
	return nil
}
