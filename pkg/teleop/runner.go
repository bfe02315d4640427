// Package teleop hosts a robot program: it runs the init callback once and
// then calls the periodic callback of the current mode at a fixed rate.
package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Mode is the robot's operating mode.
type Mode int

const (
	Disabled Mode = iota
	Teleop
	Autonomous
	Test
)

func (m Mode) String() string {
	switch m {
	case Disabled:
		return "disabled"
	case Teleop:
		return "teleop"
	case Autonomous:
		return "autonomous"
	case Test:
		return "test"
	default:
		return "unknown"
	}
}

// ParseMode parses a mode name as printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	for _, m := range []Mode{Disabled, Teleop, Autonomous, Test} {
		if m.String() == s {
			return m, nil
		}
	}
	return Disabled, fmt.Errorf("unknown mode %q", s)
}

// Robot is a program driven by the Runner. All callbacks run on the
// Runner's goroutine.
type Robot interface {
	RobotInit(ctx context.Context) error
	// DisabledInit is called when leaving an enabled mode and on shutdown.
	DisabledInit()
	TeleopPeriodic()
	AutonomousPeriodic()
	TestPeriodic()
}

// State describes one completed tick.
type State struct {
	Mode      Mode
	Tick      uint64
	Timestamp time.Time
	Elapsed   time.Duration
	Overrun   bool
}

// Config holds configuration for the runner.
type Config struct {
	Hz     int  // ticks per second, default 50
	Mode   Mode // mode entered after init
	Logger *zap.SugaredLogger
}

// Runner manages the fixed-rate loop.
type Runner struct {
	robot  Robot
	hz     int
	period time.Duration
	log    *zap.SugaredLogger

	mu      sync.RWMutex
	mode    Mode
	running bool

	active  Mode
	ticks   uint64
	overrun bool
	stateCh chan State
	logCh   chan string
}

// NewRunner creates a Runner for robot.
func NewRunner(robot Robot, cfg Config) *Runner {
	if cfg.Hz <= 0 {
		cfg.Hz = 50
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	return &Runner{
		robot:   robot,
		hz:      cfg.Hz,
		period:  time.Second / time.Duration(cfg.Hz),
		log:     cfg.Logger,
		mode:    cfg.Mode,
		active:  Disabled,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 10),
	}
}

// States returns a channel that receives the latest tick state.
func (r *Runner) States() <-chan State {
	return r.stateCh
}

// Logs returns a channel that receives log messages.
func (r *Runner) Logs() <-chan string {
	return r.logCh
}

// Hz returns the tick rate.
func (r *Runner) Hz() int {
	return r.hz
}

// Mode returns the requested mode.
func (r *Runner) Mode() Mode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mode
}

// SetMode requests a mode change. It takes effect at the next tick.
func (r *Runner) SetMode(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mode = m
}

func (r *Runner) logf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	r.log.Info(msg)
	select {
	case r.logCh <- fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg):
	default:
		// Drop if channel full
	}
}

// Init runs the robot's init callback. The loop must not start if it fails.
func (r *Runner) Init(ctx context.Context) error {
	if err := r.robot.RobotInit(ctx); err != nil {
		r.logf("Robot init failed: %v", err)
		return fmt.Errorf("robot init: %w", err)
	}
	r.logf("Robot initialized")
	return nil
}

// Start runs Init and then ticks until ctx is done.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("already running")
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	if err := r.Init(ctx); err != nil {
		return err
	}

	r.logf("Loop started at %d Hz in %s", r.hz, r.Mode())

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()
		case <-ticker.C:
			r.Step()
		}
	}
}

// Step runs one tick: it applies a pending mode change, then calls the
// periodic callback of the active mode.
func (r *Runner) Step() State {
	start := time.Now()
	if next := r.Mode(); next != r.active {
		r.transition(next)
	}

	r.periodic()

	r.ticks++
	elapsed := time.Since(start)
	s := State{
		Mode:      r.active,
		Tick:      r.ticks,
		Timestamp: start,
		Elapsed:   elapsed,
		Overrun:   elapsed > r.period,
	}
	if s.Overrun && !r.overrun {
		r.logf("Loop overrun: tick took %s, period %s", elapsed, r.period)
	}
	r.overrun = s.Overrun
	r.sendState(s)
	return s
}

// periodic calls the active mode's callback. A panic in it is logged and
// the loop carries on with the next tick.
func (r *Runner) periodic() {
	defer func() {
		if p := recover(); p != nil {
			r.logf("Panic in %s periodic: %v", r.active, p)
		}
	}()

	switch r.active {
	case Teleop:
		r.robot.TeleopPeriodic()
	case Autonomous:
		r.robot.AutonomousPeriodic()
	case Test:
		r.robot.TestPeriodic()
	}
}

func (r *Runner) transition(next Mode) {
	prev := r.active
	r.active = next
	if prev != Disabled {
		r.robot.DisabledInit()
	}
	r.logf("Mode %s -> %s", prev, next)
}

func (r *Runner) sendState(s State) {
	select {
	case r.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-r.stateCh:
		default:
		}
		r.stateCh <- s
	}
}

func (r *Runner) shutdown() {
	r.robot.DisabledInit()
	r.active = Disabled
	r.logf("Loop stopped")
}
