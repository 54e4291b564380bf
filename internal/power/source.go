// Package power reads the site's instantaneous grid power from a battery,
// inverter or meter. Positive readings mean the site is exporting.
package power

import (
	"context"
	"fmt"
	"io"
)

// Source is a power meter the controller can poll.
type Source interface {
	// Authenticate connects and logs in once at startup. Failures are
	// reported as *AuthenticationError.
	Authenticate(ctx context.Context) error
	// InstantPower returns the latest site power in watts. Failures are
	// reported as *ReadError.
	InstantPower(ctx context.Context) (float64, error)
}

// AuthenticationError means the source cannot be used at all.
type AuthenticationError struct {
	Source string
	Err    error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %v", e.Source, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ReadError is a transient failure of a single reading.
type ReadError struct {
	Source string
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("%s: read power: %v", e.Source, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// inverted negates readings of meters that report export as negative power.
type inverted struct {
	Source
}

// InvertSign wraps s so that every reading is negated.
func InvertSign(s Source) Source {
	return inverted{Source: s}
}

func (s inverted) InstantPower(ctx context.Context) (float64, error) {
	p, err := s.Source.InstantPower(ctx)
	if err != nil {
		return 0, err
	}
	return -p, nil
}

// Close releases the wrapped source's connection, if it holds one.
func (s inverted) Close() error {
	if c, ok := s.Source.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
