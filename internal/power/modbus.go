package power

import (
	"context"
	"encoding/binary"
	"fmt"

	"solar_mining/internal/config"

	"github.com/goburrow/modbus"
)

const modbusName = "modbus"

type registerReader interface {
	ReadHoldingRegisters(address, quantity uint16) (results []byte, err error)
}

type connector interface {
	Connect() error
	Close() error
}

// ModbusSource reads grid power from a single signed holding register of an
// inverter, over RTU serial or Modbus TCP.
type ModbusSource struct {
	conn     connector
	client   registerReader
	register uint16
	scale    float64
	endpoint string
}

// NewModbusSource uses Modbus TCP when cfg.Address is set and RTU on cfg.Port otherwise.
func NewModbusSource(cfg config.ModbusSettings) *ModbusSource {
	scale := cfg.Scale
	if scale == 0 {
		scale = 1
	}

	if cfg.Address != "" {
		handler := modbus.NewTCPClientHandler(cfg.Address)
		handler.SlaveId = byte(cfg.SlaveID)
		handler.Timeout = cfg.Timeout
		return &ModbusSource{
			conn:     handler,
			client:   modbus.NewClient(handler),
			register: cfg.Register,
			scale:    scale,
			endpoint: cfg.Address,
		}
	}

	handler := modbus.NewRTUClientHandler(cfg.Port)
	handler.BaudRate = cfg.BaudRate
	handler.DataBits = 8
	handler.Parity = "N"
	handler.StopBits = 1
	handler.SlaveId = byte(cfg.SlaveID)
	handler.Timeout = cfg.Timeout
	return &ModbusSource{
		conn:     handler,
		client:   modbus.NewClient(handler),
		register: cfg.Register,
		scale:    scale,
		endpoint: cfg.Port,
	}
}

// Authenticate opens the serial port or TCP connection.
func (s *ModbusSource) Authenticate(_ context.Context) error {
	if err := s.conn.Connect(); err != nil {
		return &AuthenticationError{Source: modbusName, Err: fmt.Errorf("connect %s: %w", s.endpoint, err)}
	}
	return nil
}

// InstantPower reads the configured register as a signed 16-bit value times the scale.
func (s *ModbusSource) InstantPower(_ context.Context) (float64, error) {
	results, err := s.client.ReadHoldingRegisters(s.register, 1)
	if err != nil {
		return 0, &ReadError{Source: modbusName, Err: fmt.Errorf("register %d: %w", s.register, err)}
	}
	if len(results) < 2 {
		return 0, &ReadError{Source: modbusName, Err: fmt.Errorf("register %d: short response (%d bytes)", s.register, len(results))}
	}
	word := int16(binary.BigEndian.Uint16(results[:2]))
	return float64(word) * s.scale, nil
}

// Close releases the connection.
func (s *ModbusSource) Close() error {
	return s.conn.Close()
}
