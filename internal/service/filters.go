package service

import "time"

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "START", "STOP", "EXITED", "OVERRIDE_CHANGE", "ERROR"
}

// SessionFilter selects sessions by the time they stopped.
type SessionFilter struct {
	From  time.Time
	To    time.Time
	Limit int // <= 0 means no limit
}
