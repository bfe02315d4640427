package drive

import (
	"math"

	"go.uber.org/zap"
)

// Device is the operator hand controller.
type Device interface {
	RawAxis(index int) (float64, error)
}

// Actuators accepts setpoints for the two primary motors.
type Actuators interface {
	SetLeft(output float64) error
	SetRight(output float64) error
}

// Controller runs the drive pipeline once per tick. It keeps no drive state
// between ticks; identical samples always produce identical writes.
type Controller struct {
	device    Device
	out       Actuators
	tuning    Tuning
	telemetry *Publisher

	left  failureRun
	right failureRun
}

// NewController creates a Controller. table may be nil.
func NewController(device Device, out Actuators, table Table, tuning Tuning, log *zap.SugaredLogger) *Controller {
	log = orNop(log)
	return &Controller{
		device:    device,
		out:       out,
		tuning:    tuning,
		telemetry: NewPublisher(table, log),
		left:      failureRun{what: "left primary write", log: log},
		right:     failureRun{what: "right primary write", log: log},
	}
}

// Tick reads the operator device, publishes telemetry, then writes the left
// and right primaries. Telemetry always goes out before the motor writes.
func (c *Controller) Tick() Telemetry {
	t := c.Compute(c.sample(c.tuning.Throttle.Index), c.sample(c.tuning.Twist.Index))

	c.telemetry.Publish(t)

	// Followers pick up the setpoint on the device.
	c.right.observe(c.out.SetRight(t.Right))
	c.left.observe(c.out.SetLeft(t.Left))

	return t
}

// Compute is the pure part of Tick: condition both axes and mix them.
func (c *Controller) Compute(rawThrottle, rawTwist float64) Telemetry {
	throttle := c.tuning.Throttle.Condition(c.tuning.Profile, rawThrottle)
	twist := c.tuning.Twist.Condition(c.tuning.Profile, rawTwist)
	left, right := Mix(throttle, twist)
	return Telemetry{Throttle: throttle, Twist: twist, Left: left, Right: right}
}

// sample reads one axis. Read errors and samples that are not finite or lie
// outside [-1, 1] count as centered.
func (c *Controller) sample(index int) float64 {
	v, err := c.device.RawAxis(index)
	if err != nil || math.IsNaN(v) || math.Abs(v) > 1 {
		return 0
	}
	return v
}
