package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"solar_mining/internal/logger"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Viper keys. Viper lowercases everything, so the mixed-case variable names
// used by existing .env files map onto these as well.
const (
	keyStartThreshold = "export_start_threshold"
	keyStopThreshold  = "export_stop_threshold"
	keyOverride       = "overwrite_miner"
	keyOverrideState  = "overwrite_miner_state"
	keyPollInterval   = "poll_interval"
	keyStopGrace      = "miner_stop_grace_seconds"
	keyMinerLocation  = "miner_location"
	keyCoinType       = "coin_type"
	keyMiningPool     = "mining_pool"
	keyCryptoWallet   = "crypto_wallet"
	keyMinerDevices   = "miner_devices"

	keyHTTPPort   = "http_port"
	keyDBPath     = "db_path"
	keyLogLevel   = "log_level"
	keyLogFile    = "log_file"
	keySigningKey = "jwt_signing_key"

	keyPowerSource = "power_source"
	keyInvertSign  = "power_invert_sign"

	keyPowerwallIP       = "powerwall_ip"
	keyPowerwallEmail    = "powerwall_email"
	keyPowerwallPassword = "powerwall_password"
	keyPowerwallTimeout  = "powerwall_timeout_seconds"

	keyMQTTBroker      = "mqtt_broker"
	keyMQTTClientID    = "mqtt_client_id"
	keyMQTTUsername    = "mqtt_username"
	keyMQTTPassword    = "mqtt_password"
	keyMQTTPowerTopic  = "mqtt_power_topic"
	keyMQTTTopicPrefix = "mqtt_topic_prefix"
	keyMQTTPowerMaxAge = "mqtt_power_max_age_seconds"

	keyModbusPort     = "modbus_port"
	keyModbusAddress  = "modbus_address"
	keyModbusBaudRate = "modbus_baud_rate"
	keyModbusSlaveID  = "modbus_slave_id"
	keyModbusRegister = "modbus_register"
	keyModbusScale    = "modbus_scale"
	keyModbusTimeout  = "modbus_timeout_seconds"
)

// mixedCaseEnv lists variables historically spelled in mixed case.
var mixedCaseEnv = map[string]string{
	keyOverride:      "Overwrite_Miner",
	keyOverrideState: "Overwrite_Miner_State",
	keyMinerLocation: "Miner_Location",
	keyCoinType:      "Coin_Type",
	keyMiningPool:    "Mining_Pool",
	keyCryptoWallet:  "Crypto_Wallet",
	keyMinerDevices:  "Miner_Devices",
}

// Loader reads settings through two private viper instances: one for the
// .env file and one for the process environment. Values in the file take
// precedence, so editing it changes a running controller even when the same
// variable was exported at startup. It is not safe for concurrent use; the
// control loop is its only caller after startup.
type Loader struct {
	file *viper.Viper
	env  *viper.Viper
	path string
	log  *logger.Logger

	warned map[string]string
}

// NewLoader builds a loader for the given .env file. The file is optional.
func NewLoader(path string, log *logger.Logger) *Loader {
	env := viper.New()
	env.AutomaticEnv()
	for key, name := range mixedCaseEnv {
		_ = env.BindEnv(key, name, strings.ToUpper(name))
	}
	return &Loader{file: newFileViper(path), env: env, path: path, log: log, warned: make(map[string]string)}
}

func newFileViper(path string) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	return v
}

// Reload re-reads the .env file. A missing file is not an error; values then
// come from the environment and defaults only. A file that fails to parse
// keeps the previously read values.
func (l *Loader) Reload() error {
	err := l.file.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if errors.Is(err, fs.ErrNotExist) || errors.As(err, &notFound) {
		l.file = newFileViper(l.path)
		return nil
	}
	return fmt.Errorf("read config %q: %w", l.path, err)
}

// Snapshot reloads the file and returns the miner settings for one cycle.
// Reload failures keep the previously read values.
func (l *Loader) Snapshot() Snapshot {
	if err := l.Reload(); err != nil {
		l.log.Warnw("config reload failed; using previous values", "err", err)
	}

	start, startOK := l.float(keyStartThreshold, DefaultStartThreshold)
	stop, stopOK := l.float(keyStopThreshold, DefaultStopThreshold)
	if !startOK || !stopOK {
		// Thresholds are a pair; a bad value in either resets both.
		start, stop = DefaultStartThreshold, DefaultStopThreshold
	}

	poll := l.seconds(keyPollInterval, DefaultPollInterval, false)
	grace := l.seconds(keyStopGrace, DefaultStopGracePeriod, true)

	return Snapshot{
		ExportStartThreshold: start,
		ExportStopThreshold:  stop,
		OverrideEnabled:      l.flag(keyOverride),
		OverrideState:        l.overrideState(),
		PollInterval:         poll,
		WorkerCommand: BuildWorkerCommand(
			l.str(keyMinerLocation, ""),
			l.str(keyCoinType, DefaultCoinType),
			l.str(keyMiningPool, DefaultMiningPool),
			l.str(keyCryptoWallet, DefaultCryptoWallet),
			l.str(keyMinerDevices, DefaultMinerDevices),
		),
		StopGracePeriod: grace,
	}
}

// Settings reloads the file and returns the startup settings.
func (l *Loader) Settings() Settings {
	if err := l.Reload(); err != nil {
		l.log.Warnw("config read failed; using environment and defaults", "err", err)
	}

	scale, _ := l.float(keyModbusScale, 1)
	register, _ := l.integer(keyModbusRegister, DefaultModbusRegister)
	baud, _ := l.integer(keyModbusBaudRate, DefaultModbusBaudRate)
	slave, _ := l.integer(keyModbusSlaveID, DefaultModbusSlaveID)

	return Settings{
		HTTPPort:        l.str(keyHTTPPort, DefaultHTTPPort),
		DBPath:          l.str(keyDBPath, DefaultDBPath),
		LogLevel:        strings.ToLower(l.str(keyLogLevel, DefaultLogLevel)),
		LogFile:         l.str(keyLogFile, DefaultLogFile),
		SigningKey:      l.str(keySigningKey, ""),
		PowerSource:     strings.ToLower(l.str(keyPowerSource, SourcePowerwall)),
		InvertPowerSign: l.flag(keyInvertSign),
		Powerwall: PowerwallSettings{
			Host:     l.str(keyPowerwallIP, ""),
			Email:    l.str(keyPowerwallEmail, ""),
			Password: l.str(keyPowerwallPassword, ""),
			Timeout:  l.seconds(keyPowerwallTimeout, DefaultPowerwallTimeout, false),
		},
		MQTT: MQTTSettings{
			Broker:      l.str(keyMQTTBroker, ""),
			ClientID:    l.str(keyMQTTClientID, DefaultMQTTClientID),
			Username:    l.str(keyMQTTUsername, ""),
			Password:    l.str(keyMQTTPassword, ""),
			PowerTopic:  l.str(keyMQTTPowerTopic, ""),
			TopicPrefix: l.str(keyMQTTTopicPrefix, DefaultMQTTTopicPrefix),
			PowerMaxAge: l.seconds(keyMQTTPowerMaxAge, DefaultMQTTPowerMaxAge, false),
		},
		Modbus: ModbusSettings{
			Port:     l.str(keyModbusPort, DefaultModbusPort),
			Address:  l.str(keyModbusAddress, ""),
			BaudRate: baud,
			SlaveID:  slave,
			Register: uint16(register),
			Scale:    scale,
			Timeout:  l.seconds(keyModbusTimeout, DefaultModbusTimeout, false),
		},
	}
}

// raw returns the trimmed textual value and whether one was set. The file
// is consulted before the environment.
func (l *Loader) raw(key string) (string, bool) {
	val := l.env.Get(key)
	if l.file.InConfig(key) {
		val = l.file.Get(key)
	}
	if val == nil {
		return "", false
	}
	s := strings.TrimSpace(cast.ToString(val))
	return s, s != ""
}

func (l *Loader) str(key, def string) string {
	if s, ok := l.raw(key); ok {
		return s
	}
	return def
}

// flag follows the historical rule: only "true" (any case) enables a flag.
func (l *Loader) flag(key string) bool {
	s, _ := l.raw(key)
	return strings.EqualFold(s, "true")
}

func (l *Loader) overrideState() OverrideState {
	if s, _ := l.raw(keyOverrideState); strings.EqualFold(s, "on") {
		return OverrideOn
	}
	return OverrideOff
}

// float returns def and false when the value is set but not numeric.
func (l *Loader) float(key string, def float64) (float64, bool) {
	s, ok := l.raw(key)
	if !ok {
		return def, true
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		l.warnInvalid(key, s, def)
		return def, false
	}
	return f, true
}

func (l *Loader) integer(key string, def int) (int, bool) {
	s, ok := l.raw(key)
	if !ok {
		return def, true
	}
	n, err := cast.ToIntE(s)
	if err != nil {
		l.warnInvalid(key, s, def)
		return def, false
	}
	return n, true
}

// seconds reads a whole number of seconds. Negative values, and zero unless
// allowZero is set, fall back to def.
func (l *Loader) seconds(key string, def time.Duration, allowZero bool) time.Duration {
	s, ok := l.raw(key)
	if !ok {
		return def
	}
	n, err := cast.ToIntE(s)
	if err != nil || n < 0 || (n == 0 && !allowZero) {
		l.warnInvalid(key, s, def)
		return def
	}
	return time.Duration(n) * time.Second
}

// warnInvalid logs a fallback once per distinct bad value.
func (l *Loader) warnInvalid(key string, val, def any) {
	s := cast.ToString(val)
	if l.warned[key] == s {
		return
	}
	l.warned[key] = s
	l.log.Warnw("invalid config value; using default", "key", strings.ToUpper(key), "value", s, "default", def)
}
