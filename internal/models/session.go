package models

import "time"

// Session is one contiguous interval during which the miner process was alive.
type Session struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"started_at"`
	StoppedAt time.Time `json:"stopped_at"`
	Seconds   float64   `json:"seconds"`
	Policy    string    `json:"policy"` // policy that stopped the miner, or "shutdown"/"exited"
	Reason    string    `json:"reason"`
}
