package drive

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/team3238/testdrive/pkg/robot"
)

// Camera starts the operator video feed.
type Camera interface {
	StartAutomaticCapture(ctx context.Context) error
}

// Robot wires the drive pipeline into the host lifecycle callbacks.
type Robot struct {
	camera     Camera
	drivetrain *robot.Drivetrain
	controller *Controller
	tuning     Tuning
	log        *zap.SugaredLogger
}

// NewRobot builds the drive program. camera may be nil.
func NewRobot(camera Camera, dt *robot.Drivetrain, device Device, table Table, tuning Tuning, log *zap.SugaredLogger) *Robot {
	log = orNop(log)
	return &Robot{
		camera:     camera,
		drivetrain: dt,
		controller: NewController(device, dt, table, tuning, log),
		tuning:     tuning,
		log:        log,
	}
}

// RobotInit starts the camera and configures the drivetrain. A configuration
// error is returned as is and must keep the host out of the tick loop.
func (r *Robot) RobotInit(ctx context.Context) error {
	if r.camera != nil {
		// The feed is a convenience for the driver, not part of driving.
		if err := r.camera.StartAutomaticCapture(ctx); err != nil {
			r.log.Warnw("camera capture not started", "error", err)
		}
	}

	if err := r.drivetrain.Configure(ctx, r.tuning.CurrentLimit); err != nil {
		return fmt.Errorf("configure drivetrain: %w", err)
	}
	r.log.Infow("drivetrain configured",
		"current_limit", r.tuning.CurrentLimit,
		"profile", r.tuning.Profile.String(),
	)
	return nil
}

// DisabledInit zeroes both primaries.
func (r *Robot) DisabledInit() {
	if err := r.drivetrain.Stop(); err != nil {
		r.log.Warnw("stop drivetrain", "error", err)
	}
}

// TeleopPeriodic runs one drive tick.
func (r *Robot) TeleopPeriodic() {
	r.controller.Tick()
}

// AutonomousPeriodic does nothing; there are no autonomous routines.
func (r *Robot) AutonomousPeriodic() {}

// TestPeriodic does nothing.
func (r *Robot) TestPeriodic() {}

