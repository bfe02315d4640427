package robot

import "context"

// Motor is the set of motor controller capabilities the drivetrain needs.
// Configuration calls happen once at startup; Set is called every tick and
// must not block.
type Motor interface {
	// ID returns the controller's CAN device id.
	ID() int
	RestoreFactoryDefaults(ctx context.Context) error
	// Set commands a fractional output in [-1, 1]. Values outside the range
	// are clipped by the controller.
	Set(output float64) error
	SetSmartCurrentLimit(ctx context.Context, amps int) error
	SetInverted(ctx context.Context, inverted bool) error
	// Follow makes the controller mirror leader's output on the device.
	Follow(ctx context.Context, leader Motor) error
}

// Opener acquires the motor controller with the given CAN id.
type Opener func(role Role, id int) (Motor, error)
