// Package testdrive is the teleoperated drive program for a four-motor
// differential-drive test robot.
//
// A joystick is sampled at a fixed rate; throttle and twist are shaped with
// a sign-preserving square, scaled, deadbanded and arcade-mixed into left
// and right power for two SPARK MAX primaries on the CAN bus. Each primary's
// secondary follows it on the device.
//
// # Installation
//
//	go install github.com/team3238/testdrive/cmd/testdrive@latest
//
// # Usage
//
// First, run setup to pick the CAN interface and joystick and check that
// all four controllers answer:
//
//	testdrive setup
//
// Then start driving (press t in the TUI to enable teleop):
//
//	testdrive drive
//
// Without hardware, simulated motors and the arrow keys stand in:
//
//	testdrive drive --sim
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/testdrive: CLI with setup, drive and info commands
//   - pkg/drive: axis conditioning, arcade mix, telemetry, per-tick controller
//   - pkg/robot: motor roles, CAN layout, drivetrain configuration, config file
//   - pkg/spark: SPARK MAX driver over SocketCAN
//   - pkg/sim: simulated motor controllers
//   - pkg/joystick: operator joystick
//   - pkg/dashboard: MQTT, WebSocket and in-memory telemetry sinks
//   - pkg/camera: camera streamer start
//   - pkg/teleop: fixed-rate host loop and robot modes
//   - pkg/logging: logger setup
package testdrive
