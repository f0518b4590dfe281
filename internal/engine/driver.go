package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"market_sim/internal/domain"
)

// Handlers are invoked on the driver goroutine. They receive the engine so
// they can inject forces or read state directly; they must not call the
// Driver's command methods, which would wait on the same goroutine.
type Handlers struct {
	OnTick       func(e *MarketEngine, t domain.Tick)
	OnLunchStart func(e *MarketEngine, t domain.Tick)
	OnSessionEnd func(e *MarketEngine, t domain.Tick)
}

type cmdKind uint8

const (
	cmdStart cmdKind = iota
	cmdPause
	cmdResume
	cmdResumeLunch
	cmdStop
	cmdSpeed
	cmdDo
)

type command struct {
	kind  cmdKind
	speed float64
	fn    func(*MarketEngine)
	reply chan error
}

// Driver owns a MarketEngine and runs it on real timers. It is the only
// goroutine that touches the engine; other goroutines send commands to
// its inbox and block until they are applied.
type Driver struct {
	engine   *MarketEngine
	handlers Handlers
	inbox    chan command
	clock    func() time.Time

	timer    *time.Timer
	timerC   <-chan time.Time
	deadline time.Time

	// Boundary: copy of the engine status for external reads (e.g. UI)
	mu     sync.RWMutex
	status Status

	dumpPath string
}

// NewDriver creates a driver for e.
func NewDriver(e *MarketEngine, h Handlers, inboxSize int) *Driver {
	return &Driver{
		engine:   e,
		handlers: h,
		inbox:    make(chan command, inboxSize),
		clock:    e.clock,
		status:   e.Status(),
		dumpPath: "panic_dump.json",
	}
}

// SetDumpPath sets where the engine state is written on panic.
func (d *Driver) SetDumpPath(path string) {
	d.dumpPath = path
}

// Run starts the timer loop. This MUST be run in a single goroutine.
func (d *Driver) Run(ctx context.Context) {
	slog.Info("Market driver started")

	defer func() {
		d.disarm()
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			d.DumpState(d.dumpPath)
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Market driver stopping...")
			return
		case cmd := <-d.inbox:
			err := d.apply(cmd)
			d.publish()
			cmd.reply <- err
		case <-d.timerC:
			d.fire()
		}
	}
}

func (d *Driver) apply(cmd command) error {
	e := d.engine
	switch cmd.kind {
	case cmdStart:
		if err := e.Start(); err != nil {
			return err
		}
		d.arm(e.NextInterval())
	case cmdPause:
		if err := e.Pause(); err != nil {
			return err
		}
		d.disarm()
	case cmdResume:
		if err := e.Resume(); err != nil {
			return err
		}
		d.arm(e.NextInterval())
	case cmdResumeLunch:
		if err := e.ResumeFromLunch(); err != nil {
			return err
		}
		d.arm(e.NextInterval())
	case cmdStop:
		d.disarm()
		e.Stop()
	case cmdSpeed:
		old := e.Speed()
		if err := e.SetSpeed(cmd.speed); err != nil {
			return err
		}
		if d.timer != nil {
			remaining := d.deadline.Sub(d.clock())
			if remaining < 0 {
				remaining = 0
			}
			d.arm(time.Duration(float64(remaining) * old / cmd.speed))
		}
	case cmdDo:
		cmd.fn(e)
	}
	return nil
}

func (d *Driver) fire() {
	d.timer, d.timerC = nil, nil
	e := d.engine

	res := e.Tick()
	if res.Tick != nil && d.handlers.OnTick != nil {
		d.handlers.OnTick(e, *res.Tick)
	}
	if res.LunchStarted && d.handlers.OnLunchStart != nil {
		d.handlers.OnLunchStart(e, *res.Tick)
	}
	if res.SessionEnded && d.handlers.OnSessionEnd != nil {
		d.handlers.OnSessionEnd(e, *res.Tick)
	}

	// Handlers may have paused or stopped the engine.
	if e.State() == StateRunning {
		d.arm(e.NextInterval())
	}
	d.publish()
}

func (d *Driver) arm(after time.Duration) {
	d.disarm()
	d.timer = time.NewTimer(after)
	d.timerC = d.timer.C
	d.deadline = d.clock().Add(after)
}

func (d *Driver) disarm() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer, d.timerC = nil, nil
}

func (d *Driver) publish() {
	s := d.engine.Status()
	d.mu.Lock()
	d.status = s
	d.mu.Unlock()
}

func (d *Driver) send(ctx context.Context, cmd command) error {
	cmd.reply = make(chan error, 1)
	select {
	case d.inbox <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start begins the session.
func (d *Driver) Start(ctx context.Context) error {
	return d.send(ctx, command{kind: cmdStart})
}

// Pause clears the pending timer before returning.
func (d *Driver) Pause(ctx context.Context) error {
	return d.send(ctx, command{kind: cmdPause})
}

// Resume continues after Pause without catching up on paused time.
func (d *Driver) Resume(ctx context.Context) error {
	return d.send(ctx, command{kind: cmdResume})
}

// ResumeFromLunch continues after the lunch callback.
func (d *Driver) ResumeFromLunch(ctx context.Context) error {
	return d.send(ctx, command{kind: cmdResumeLunch})
}

// Stop clears the pending timer and halts the session.
func (d *Driver) Stop(ctx context.Context) error {
	return d.send(ctx, command{kind: cmdStop})
}

// SetSpeed rescales the pending timer to the new speed.
func (d *Driver) SetSpeed(ctx context.Context, speed float64) error {
	return d.send(ctx, command{kind: cmdSpeed, speed: speed})
}

// Do runs fn on the driver goroutine.
func (d *Driver) Do(ctx context.Context, fn func(*MarketEngine)) error {
	return d.send(ctx, command{kind: cmdDo, fn: fn})
}

// Status returns a snapshot of the engine state (external read).
func (d *Driver) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.status
}

// DumpState writes the engine status to a file (for post-mortem).
func (d *Driver) DumpState(filename string) {
	slog.Info("Dumping engine state...", slog.String("file", filename))

	b, err := json.MarshalIndent(d.engine.Status(), "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
