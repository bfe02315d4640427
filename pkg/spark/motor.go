package spark

import (
	"context"
	"fmt"
	"sync"

	"github.com/team3238/testdrive/pkg/robot"
)

// Motor is one SPARK MAX on a Bus.
type Motor struct {
	bus *Bus
	id  uint8

	mu  sync.Mutex
	buf [8]byte
}

func (m *Motor) ID() int { return int(m.id) }

// RestoreFactoryDefaults fails with ErrDeviceAbsent if the controller is not
// sending status frames.
func (m *Motor) RestoreFactoryDefaults(ctx context.Context) error {
	if err := m.bus.WaitPresent(ctx, int(m.id)); err != nil {
		return err
	}
	return m.bus.send(apiFactoryDefaults, m.id, []byte{1})
}

// Set sends a duty cycle setpoint, clipped to [-1, 1].
func (m *Motor) Set(output float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	putSetpoint(m.buf[:], output)
	return m.bus.send(apiDutyCycleSet, m.id, m.buf[:])
}

// SetSmartCurrentLimit sets both the stall and free running limits.
func (m *Motor) SetSmartCurrentLimit(ctx context.Context, amps int) error {
	if amps <= 0 || amps > MaxCurrentLimit {
		return fmt.Errorf("current limit %d A out of range 1..%d", amps, MaxCurrentLimit)
	}
	if err := m.setParameter(ctx, paramSmartCurrentStall, uint32(amps), paramTypeUint); err != nil {
		return err
	}
	return m.setParameter(ctx, paramSmartCurrentFree, uint32(amps), paramTypeUint)
}

func (m *Motor) SetInverted(ctx context.Context, inverted bool) error {
	var v uint32
	if inverted {
		v = 1
	}
	return m.setParameter(ctx, paramInverted, v, paramTypeBool)
}

// Follow makes this controller mirror leader, which must be on the same bus.
func (m *Motor) Follow(ctx context.Context, leader robot.Motor) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l, ok := leader.(*Motor)
	if !ok || l.bus != m.bus {
		return fmt.Errorf("leader %d is not on this bus", leader.ID())
	}
	if l.id == m.id {
		return fmt.Errorf("can id %d cannot follow itself", m.id)
	}
	return m.bus.send(apiFollowerSet, m.id, followerBody(l.id))
}

func (m *Motor) setParameter(ctx context.Context, param uint16, value uint32, typ uint8) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := m.bus.send(apiParameterBase+param, m.id, parameterBody(value, typ)); err != nil {
		return fmt.Errorf("write parameter %d: %w", param, err)
	}
	return nil
}
