// Package drive turns operator stick deflection into left/right drivetrain
// power commands.
//
// The per-tick pipeline is: raw axis samples, axis conditioning (expo curve,
// scale, deadband), arcade mix, dashboard telemetry, then the two primary
// motor writes. Secondaries are never written; they follow their primary on
// the device.
package drive

import "github.com/team3238/testdrive/pkg/robot"

// Profile selects the response curve applied to a raw axis sample.
type Profile int

const (
	// Expo squares the sample while keeping its sign. This is the default.
	Expo Profile = iota
	// Linear only scales the sample. The deadband values in DefaultTuning
	// were chosen for Expo and may be too small for Linear.
	Linear
)

func (p Profile) String() string {
	switch p {
	case Expo:
		return "expo"
	case Linear:
		return "linear"
	default:
		return "unknown"
	}
}

// AxisTuning describes how one operator axis is read and conditioned.
type AxisTuning struct {
	Index    int     // axis index on the operator device
	Scale    float64 // output multiplier, between 0 and 1
	Deadband float64 // in output units, applied after shaping and scaling
}

// Tuning groups every drive constant. It is a value type; copies cannot
// affect DefaultTuning.
type Tuning struct {
	Profile      Profile
	Throttle     AxisTuning
	Twist        AxisTuning
	CurrentLimit int // amps, per motor controller
	Layout       robot.Layout
}

// DefaultTuning is the tuning for the four-motor test drivetrain.
var DefaultTuning = Tuning{
	Profile: Expo,
	Throttle: AxisTuning{
		Index:    1, // y axis, stick forward is negative
		Scale:    0.9,
		Deadband: 0.02,
	},
	Twist: AxisTuning{
		Index:    2, // z axis, clockwise is positive
		Scale:    0.5,
		Deadband: 0.02,
	},
	CurrentLimit: 60,
	Layout:       robot.DefaultLayout,
}
