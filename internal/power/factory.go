package power

import (
	"fmt"

	"solar_mining/internal/config"
	"solar_mining/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// New builds the source selected by settings. client is only used by the
// MQTT source and may be nil otherwise.
func New(settings config.Settings, client mqtt.Client, log *logger.Logger) (Source, error) {
	var (
		src Source
		err error
	)
	switch settings.PowerSource {
	case config.SourcePowerwall, "":
		src, err = NewPowerwall(settings.Powerwall, log)
	case config.SourceMQTT:
		if client == nil {
			return nil, fmt.Errorf("power source %q requires MQTT_BROKER", settings.PowerSource)
		}
		src, err = NewMQTTSource(client, settings.MQTT.PowerTopic, settings.MQTT.PowerMaxAge, log)
	case config.SourceModbus:
		src = NewModbusSource(settings.Modbus)
	default:
		return nil, fmt.Errorf("unknown power source %q", settings.PowerSource)
	}
	if err != nil {
		return nil, err
	}
	if settings.InvertPowerSign {
		src = InvertSign(src)
	}
	return src, nil
}
