package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"solar_mining/internal/models"
	"solar_mining/internal/worker"
)

type fakeHandle struct {
	mu       sync.Mutex
	pid      int
	alive    bool
	stubborn bool // survives Stop
	stopErr  error
	stops    int
}

func (h *fakeHandle) PID() int { return h.pid }

func (h *fakeHandle) Alive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.alive
}

func (h *fakeHandle) Stop(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
	if !h.stubborn {
		h.alive = false
	}
	return h.stopErr
}

func (h *fakeHandle) exit() {
	h.mu.Lock()
	h.alive = false
	h.mu.Unlock()
}

type fakeLauncher struct {
	mu       sync.Mutex
	err      error
	started  []*fakeHandle
	commands [][]string
}

func (l *fakeLauncher) Start(command []string) (worker.Handle, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.commands = append(l.commands, command)
	if l.err != nil {
		return nil, l.err
	}
	h := &fakeHandle{pid: 1000 + len(l.started), alive: true}
	l.started = append(l.started, h)
	return h, nil
}

func (l *fakeLauncher) last() *fakeHandle {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.started) == 0 {
		return nil
	}
	return l.started[len(l.started)-1]
}

type reading struct {
	watts float64
	err   error
}

// fakePower replays readings in order and repeats the last one.
type fakePower struct {
	mu       sync.Mutex
	readings []reading
	calls    int
	onRead   func(call int)
}

func (p *fakePower) InstantPower(context.Context) (float64, error) {
	p.mu.Lock()
	p.calls++
	call := p.calls
	var r reading
	switch {
	case len(p.readings) == 0:
		r = reading{err: errors.New("no readings scripted")}
	case call <= len(p.readings):
		r = p.readings[call-1]
	default:
		r = p.readings[len(p.readings)-1]
	}
	hook := p.onRead
	p.mu.Unlock()

	if hook != nil {
		hook(call)
	}
	return r.watts, r.err
}

func (p *fakePower) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type panicPower struct{}

func (panicPower) InstantPower(context.Context) (float64, error) { panic("meter exploded") }

type recordedEvents struct {
	mu     sync.Mutex
	events []models.MinerEvent
	err    error
}

func (r *recordedEvents) Append(_ context.Context, e models.MinerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordedEvents) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type recordedSessions struct {
	mu       sync.Mutex
	sessions []models.Session
}

func (r *recordedSessions) Append(_ context.Context, s models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, s)
	return nil
}

type recordedStatus struct {
	mu       sync.Mutex
	statuses []models.MinerStatus
}

func (r *recordedStatus) Save(_ context.Context, s models.MinerStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, s)
	return nil
}

func (r *recordedStatus) last() models.MinerStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[len(r.statuses)-1]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
