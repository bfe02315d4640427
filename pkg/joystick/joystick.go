// Package joystick reads the operator's hand controller.
package joystick

import (
	"fmt"
	"sync"

	"github.com/0xcafed00d/joystick"
)

// axisMax is the magnitude the OS reports for full deflection.
const axisMax = 32767

// Device is a joystick on a logical port.
type Device struct {
	mu    sync.Mutex
	stick joystick.Joystick
	port  int
}

// Open opens the joystick on the given logical port.
func Open(port int) (*Device, error) {
	stick, err := joystick.Open(port)
	if err != nil {
		return nil, fmt.Errorf("open joystick %d: %w", port, err)
	}
	return New(stick, port), nil
}

// New wraps an already open joystick.
func New(stick joystick.Joystick, port int) *Device {
	return &Device{stick: stick, port: port}
}

// Name returns the device name reported by the OS.
func (d *Device) Name() string {
	return d.stick.Name()
}

// Port returns the logical port.
func (d *Device) Port() int {
	return d.port
}

// RawAxis polls the device and returns axis index in [-1, 1].
func (d *Device) RawAxis(index int) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	state, err := d.stick.Read()
	if err != nil {
		return 0, fmt.Errorf("read joystick %d: %w", d.port, err)
	}
	if index < 0 || index >= len(state.AxisData) {
		return 0, fmt.Errorf("joystick %d has no axis %d (%d axes)", d.port, index, len(state.AxisData))
	}
	return Normalize(state.AxisData[index]), nil
}

// Close closes the device.
func (d *Device) Close() error {
	d.stick.Close()
	return nil
}

// Normalize converts a raw OS axis value to [-1, 1]. The OS range is one
// count wider on the negative side, so -32768 maps to -1 as well.
func Normalize(raw int) float64 {
	v := float64(raw) / axisMax
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
