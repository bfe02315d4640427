package robot

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrConfigure marks a drivetrain configuration failure. The drivetrain must
// not be driven after one.
var ErrConfigure = errors.New("drivetrain configuration failed")

// Drivetrain holds the four motor controllers for the life of the process.
type Drivetrain struct {
	layout Layout
	motors [numRoles]Motor
}

// NewDrivetrain acquires one controller per role from open.
func NewDrivetrain(layout Layout, open Opener) (*Drivetrain, error) {
	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}

	d := &Drivetrain{layout: layout}
	for _, role := range AllRoles() {
		m, err := open(role, layout[role])
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("open %s (can id %d): %w", role, layout[role], err)
		}
		d.motors[role] = m
	}
	return d, nil
}

// Layout returns the CAN ids the drivetrain was opened with.
func (d *Drivetrain) Layout() Layout {
	return d.layout
}

// Motor returns the controller for role.
func (d *Drivetrain) Motor(role Role) Motor {
	if !role.valid() {
		return nil
	}
	return d.motors[role]
}

// Configure puts every controller into a known state. Factory defaults are
// restored first since they would wipe anything set before them; outputs are
// zeroed before the first tick; followers are bound last, after their
// primary's inversion is set.
func (d *Drivetrain) Configure(ctx context.Context, currentLimit int) error {
	roles := AllRoles()

	steps := []struct {
		name string
		run  func(role Role, m Motor) error
	}{
		{"restore factory defaults", func(_ Role, m Motor) error {
			return m.RestoreFactoryDefaults(ctx)
		}},
		{"zero output", func(_ Role, m Motor) error {
			return m.Set(0)
		}},
		{"set current limit", func(_ Role, m Motor) error {
			return m.SetSmartCurrentLimit(ctx, currentLimit)
		}},
		{"set inverted", func(role Role, m Motor) error {
			return m.SetInverted(ctx, role.Inverted())
		}},
		{"follow", func(role Role, m Motor) error {
			leader, ok := role.Leader()
			if !ok {
				return nil
			}
			return m.Follow(ctx, d.motors[leader])
		}},
	}

	for _, step := range steps {
		for _, role := range roles {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrConfigure, step.name, err)
			}
			if err := step.run(role, d.motors[role]); err != nil {
				return fmt.Errorf("%w: %s (can id %d): %s: %w",
					ErrConfigure, role, d.layout[role], step.name, err)
			}
		}
	}
	return nil
}

// SetLeft commands the left primary.
func (d *Drivetrain) SetLeft(output float64) error {
	return d.motors[LeftPrimary].Set(output)
}

// SetRight commands the right primary.
func (d *Drivetrain) SetRight(output float64) error {
	return d.motors[RightPrimary].Set(output)
}

// Stop zeroes both primaries.
func (d *Drivetrain) Stop() error {
	return errors.Join(d.SetRight(0), d.SetLeft(0))
}

// Close releases controllers that hold resources.
func (d *Drivetrain) Close() error {
	var errs []error
	for _, role := range AllRoles() {
		if c, ok := d.motors[role].(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", role, err))
			}
		}
	}
	return errors.Join(errs...)
}
