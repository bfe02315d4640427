// Package sim provides in-memory motor controllers so the drive program can
// run without a CAN bus.
package sim

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/team3238/testdrive/pkg/robot"
)

// Motor behaves like a smart controller: it clips setpoints, honours
// inversion, and mirrors its leader when following.
type Motor struct {
	id int

	mu       sync.Mutex
	setpoint float64
	inverted bool
	limit    int
	leader   *Motor
	resets   int
	failSet  error
}

// NewMotor returns a motor in factory state.
func NewMotor(id int) *Motor {
	return &Motor{id: id}
}

// Fleet keeps every motor opened through it, by CAN id.
type Fleet struct {
	mu     sync.Mutex
	motors map[int]*Motor
}

// NewFleet returns an empty Fleet.
func NewFleet() *Fleet {
	return &Fleet{motors: make(map[int]*Motor)}
}

// Open implements robot.Opener.
func (f *Fleet) Open(_ robot.Role, id int) (robot.Motor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.motors[id]; ok {
		return nil, fmt.Errorf("can id %d already open", id)
	}
	m := NewMotor(id)
	f.motors[id] = m
	return m, nil
}

// Motor returns the motor with the given id, or nil.
func (f *Fleet) Motor(id int) *Motor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.motors[id]
}

func (m *Motor) ID() int { return m.id }

func (m *Motor) RestoreFactoryDefaults(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setpoint = 0
	m.inverted = false
	m.limit = 0
	m.leader = nil
	m.resets++
	return nil
}

func (m *Motor) Set(output float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSet != nil {
		return m.failSet
	}
	m.setpoint = output
	return nil
}

func (m *Motor) SetSmartCurrentLimit(_ context.Context, amps int) error {
	if amps <= 0 {
		return fmt.Errorf("current limit %d A out of range", amps)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = amps
	return nil
}

func (m *Motor) SetInverted(_ context.Context, inverted bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inverted = inverted
	return nil
}

func (m *Motor) Follow(_ context.Context, leader robot.Motor) error {
	l, ok := leader.(*Motor)
	if !ok {
		return fmt.Errorf("leader %d is not a simulated motor", leader.ID())
	}
	if l == m {
		return fmt.Errorf("motor %d cannot follow itself", m.id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leader = l
	return nil
}

// FailSet makes Set return err until called again with nil.
func (m *Motor) FailSet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSet = err
}

// Output returns the commanded output after clipping. A follower reports
// its leader's output.
func (m *Motor) Output() float64 {
	m.mu.Lock()
	leader, sp := m.leader, m.setpoint
	m.mu.Unlock()
	if leader != nil {
		return leader.Output()
	}
	return clip(sp)
}

// Applied returns the output in the motor's physical direction. A follower
// turns the same way as its leader.
func (m *Motor) Applied() float64 {
	m.mu.Lock()
	leader, inverted, sp := m.leader, m.inverted, m.setpoint
	m.mu.Unlock()
	if leader != nil {
		return leader.Applied()
	}
	if inverted {
		return -clip(sp)
	}
	return clip(sp)
}

// State reports configuration for inspection.
func (m *Motor) State() (inverted bool, currentLimit int, leaderID int, resets int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	leaderID = -1
	if m.leader != nil {
		leaderID = m.leader.id
	}
	return m.inverted, m.limit, leaderID, m.resets
}

func clip(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
