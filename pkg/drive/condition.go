package drive

import "math"

// Condition shapes a raw axis sample with the expo curve, scales it, and
// zeroes the result when its magnitude falls below deadband.
func Condition(raw, scale, deadband float64) float64 {
	return applyDeadband(raw*math.Abs(raw)*scale, deadband)
}

// ConditionLinear scales a raw axis sample and applies the deadband.
func ConditionLinear(raw, scale, deadband float64) float64 {
	return applyDeadband(raw*scale, deadband)
}

func applyDeadband(v, deadband float64) float64 {
	if math.Abs(v) < deadband {
		return 0
	}
	return v
}

// Condition conditions raw with the axis scale and deadband using profile p.
func (a AxisTuning) Condition(p Profile, raw float64) float64 {
	if p == Linear {
		return ConditionLinear(raw, a.Scale, a.Deadband)
	}
	return Condition(raw, a.Scale, a.Deadband)
}

// Mix combines conditioned throttle and twist into arcade left/right
// commands. Outputs are not clamped; the motor controllers clip.
//
// Forward stick is negative throttle and negative command drives either side
// forward, so positive (clockwise) twist is subtracted on the left and added
// on the right to turn right.
func Mix(throttle, twist float64) (left, right float64) {
	return throttle - twist, throttle + twist
}
