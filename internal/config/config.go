// Package config reads operator settings from a .env file and the process
// environment. Miner settings are re-read every control cycle; connection
// settings are read once at startup.
package config

import "time"

// OverrideState is the desired miner state while the manual override is enabled.
type OverrideState string

const (
	OverrideOn  OverrideState = "ON"
	OverrideOff OverrideState = "OFF"
)

// Power source kinds.
const (
	SourcePowerwall = "powerwall"
	SourceMQTT      = "mqtt"
	SourceModbus    = "modbus"
)

// Defaults applied when a value is missing or cannot be parsed.
const (
	DefaultStartThreshold  = 1500.0
	DefaultStopThreshold   = 500.0
	DefaultPollInterval    = 60 * time.Second
	DefaultStopGracePeriod = 60 * time.Second

	DefaultCoinType     = "etchash"
	DefaultMiningPool   = "stratum+tcp://asia-etc.2miners.com:1010"
	DefaultCryptoWallet = "0xYourWalletAddress.RigName"
	DefaultMinerDevices = "0,1"

	DefaultHTTPPort = "8080"
	DefaultDBPath   = "solar_mining.db"
	DefaultLogLevel = "info"
	DefaultLogFile  = "solar_mining.log"

	DefaultPowerwallTimeout = 10 * time.Second
	DefaultMQTTClientID     = "solar_mining"
	DefaultMQTTTopicPrefix  = "solar_mining"
	DefaultMQTTPowerMaxAge  = 5 * time.Minute
	DefaultModbusPort       = "/dev/ttyUSB0"
	DefaultModbusBaudRate   = 9600
	DefaultModbusSlaveID    = 1
	DefaultModbusRegister   = 625 // Deye: total grid power, positive on import; needs POWER_INVERT_SIGN=true
	DefaultModbusTimeout    = 1 * time.Second
)

// Snapshot is a point-in-time read of the settings that drive the control loop.
type Snapshot struct {
	ExportStartThreshold float64 // watts
	ExportStopThreshold  float64 // watts
	OverrideEnabled      bool
	OverrideState        OverrideState
	PollInterval         time.Duration
	WorkerCommand        []string
	// StopGracePeriod bounds the wait for the miner to exit after SIGTERM.
	// Zero waits indefinitely.
	StopGracePeriod time.Duration
}

// Settings are read once at startup.
type Settings struct {
	HTTPPort   string
	DBPath     string
	LogLevel   string
	LogFile    string
	SigningKey string

	PowerSource     string
	InvertPowerSign bool

	Powerwall PowerwallSettings
	MQTT      MQTTSettings
	Modbus    ModbusSettings
}

type PowerwallSettings struct {
	Host     string
	Email    string
	Password string
	Timeout  time.Duration
}

// MQTTSettings configure the broker connection shared by the MQTT power source
// and the status publisher. An empty Broker disables both.
type MQTTSettings struct {
	Broker      string
	ClientID    string
	Username    string
	Password    string
	PowerTopic  string
	TopicPrefix string
	PowerMaxAge time.Duration
}

// ModbusSettings select either a serial RTU port or, when Address is set, Modbus TCP.
type ModbusSettings struct {
	Port     string
	Address  string
	BaudRate int
	SlaveID  int
	Register uint16
	Scale    float64
	Timeout  time.Duration
}
