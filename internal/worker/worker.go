// Package worker starts and stops the miner as a separate OS process.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
)

// ErrKilled is returned by Stop when the process ignored SIGTERM until the
// context ended and had to be killed.
var ErrKilled = errors.New("worker killed after grace period")

// Handle is a running worker process.
type Handle interface {
	PID() int
	// Alive reports whether the process has not exited yet.
	Alive() bool
	// Stop sends SIGTERM and blocks until the process exits. When ctx ends
	// first the process is killed; Stop still waits for it to be reaped.
	Stop(ctx context.Context) error
}

// Launcher starts worker processes.
type Launcher interface {
	Start(command []string) (Handle, error)
}

// ExecLauncher runs commands with os/exec. The child inherits Stdout and
// Stderr, which default to the parent's.
type ExecLauncher struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecLauncher returns a launcher that forwards the miner's output to ours.
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Start launches command. The process is not bound to any context; only Stop ends it.
func (l *ExecLauncher) Start(command []string) (Handle, error) {
	if len(command) == 0 || command[0] == "" {
		return nil, errors.New("worker command is empty")
	}
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command[0], err)
	}

	p := &Process{cmd: cmd, done: make(chan struct{})}
	go p.wait()
	return p, nil
}

// Process is a Handle backed by an exec.Cmd.
type Process struct {
	cmd     *exec.Cmd
	done    chan struct{}
	waitErr error
}

func (p *Process) wait() {
	p.waitErr = p.cmd.Wait()
	close(p.done)
}

func (p *Process) PID() int { return p.cmd.Process.Pid }

func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// ExitErr returns the result of Wait once the process has exited.
func (p *Process) ExitErr() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

func (p *Process) Stop(ctx context.Context) error {
	if !p.Alive() {
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("signal pid %d: %w", p.PID(), err)
	}

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
	}

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill pid %d: %w", p.PID(), err)
	}
	<-p.done
	return ErrKilled
}
