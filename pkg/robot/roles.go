// Package robot describes the four-motor differential drivetrain: motor
// roles, their CAN ids, the capabilities a motor controller must offer, and
// the one-shot configuration that makes the secondaries follow.
package robot

// Role identifies a motor in the drivetrain.
type Role int

// Each side has a primary that is commanded and a secondary that follows it.
const (
	LeftPrimary Role = iota
	LeftSecondary
	RightPrimary
	RightSecondary

	numRoles
)

// AllRoles returns all roles in configuration order.
func AllRoles() []Role {
	return []Role{
		LeftPrimary,
		LeftSecondary,
		RightPrimary,
		RightSecondary,
	}
}

func (r Role) String() string {
	switch r {
	case LeftPrimary:
		return "left_primary"
	case LeftSecondary:
		return "left_secondary"
	case RightPrimary:
		return "right_primary"
	case RightSecondary:
		return "right_secondary"
	default:
		return "unknown"
	}
}

// Side is a side of the drivetrain.
type Side int

const (
	Left Side = iota
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Side returns the side the motor drives.
func (r Role) Side() Side {
	if r == LeftPrimary || r == LeftSecondary {
		return Left
	}
	return Right
}

// IsPrimary reports whether the motor receives setpoints directly.
func (r Role) IsPrimary() bool {
	return r == LeftPrimary || r == RightPrimary
}

// Leader returns the primary a secondary follows. ok is false for primaries.
func (r Role) Leader() (leader Role, ok bool) {
	switch r {
	case LeftSecondary:
		return LeftPrimary, true
	case RightSecondary:
		return RightPrimary, true
	default:
		return r, false
	}
}

// Inverted reports the inversion setting for the motor. The left side is
// inverted so a negative command drives both sides forward.
func (r Role) Inverted() bool {
	return r.Side() == Left
}

func (r Role) valid() bool {
	return r >= 0 && r < numRoles
}
