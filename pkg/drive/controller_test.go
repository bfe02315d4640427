package drive

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stick struct {
	axes map[int]float64
	err  error
}

func (s *stick) RawAxis(index int) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return s.axes[index], nil
}

// trace records dashboard puts and motor writes in one ordered list.
type trace struct {
	events   []string
	values   map[string]float64
	leftErr  error
	rightErr error
	tableErr error
}

func newTrace() *trace {
	return &trace{values: map[string]float64{}}
}

func (tr *trace) PutNumber(key string, v float64) error {
	tr.events = append(tr.events, "put "+key)
	tr.values[key] = v
	return tr.tableErr
}

func (tr *trace) SetLeft(v float64) error {
	tr.events = append(tr.events, fmt.Sprintf("left %.5f", v))
	tr.values["left"] = v
	return tr.leftErr
}

func (tr *trace) SetRight(v float64) error {
	tr.events = append(tr.events, fmt.Sprintf("right %.5f", v))
	tr.values["right"] = v
	return tr.rightErr
}

func TestController_Scenarios(t *testing.T) {
	tests := []struct {
		name         string
		axis1, axis2 float64
		throttle     float64
		twist        float64
		left, right  float64
	}{
		{"A centered", 0, 0, 0, 0, 0, 0},
		{"B full forward", -1, 0, -0.9, 0, -0.9, -0.9},
		{"C half forward", -0.5, 0, -0.225, 0, -0.225, -0.225},
		{"D full clockwise", 0, 1, 0, 0.5, -0.5, 0.5},
		{"E forward right", -0.5, 0.25, -0.225, 0.03125, -0.25625, -0.19375},
		{"F inside deadband", 0.1, -0.1, 0, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTrace()
			dev := &stick{axes: map[int]float64{1: tt.axis1, 2: tt.axis2}}
			c := NewController(dev, tr, tr, DefaultTuning, nil)

			got := c.Tick()

			assert.InDelta(t, tt.throttle, got.Throttle, 1e-9)
			assert.InDelta(t, tt.twist, got.Twist, 1e-9)
			assert.InDelta(t, tt.left, tr.values["left"], 1e-9)
			assert.InDelta(t, tt.right, tr.values["right"], 1e-9)
			assert.InDelta(t, tt.throttle, tr.values[KeyThrottle], 1e-9)
			assert.InDelta(t, tt.twist, tr.values[KeyTwist], 1e-9)
			assert.InDelta(t, tt.left, tr.values[KeyLeftPower], 1e-9)
			assert.InDelta(t, tt.right, tr.values[KeyRightPower], 1e-9)
		})
	}
}

func TestController_TelemetryBeforeWrites(t *testing.T) {
	tr := newTrace()
	dev := &stick{axes: map[int]float64{1: 0, 2: 1}}
	NewController(dev, tr, tr, DefaultTuning, nil).Tick()

	assert.Equal(t, []string{
		"put Throttle",
		"put Twist",
		"put Right Power",
		"put Left Power",
		"right 0.50000",
		"left -0.50000",
	}, tr.events)
	assert.Equal(t, 0.0, tr.values[KeyThrottle])
	assert.Equal(t, 0.5, tr.values[KeyTwist])
	assert.Equal(t, -0.5, tr.values[KeyLeftPower])
	assert.Equal(t, 0.5, tr.values[KeyRightPower])
}

func TestController_Stateless(t *testing.T) {
	dev := &stick{axes: map[int]float64{1: -0.5, 2: 0.25}}

	first := newTrace()
	c := NewController(dev, first, first, DefaultTuning, nil)
	c.Tick()

	// A different input in between must not leak into the next tick.
	dev.axes = map[int]float64{1: 1, 2: -1}
	c.Tick()
	dev.axes = map[int]float64{1: -0.5, 2: 0.25}

	second := newTrace()
	c2 := NewController(dev, second, second, DefaultTuning, nil)
	c2.Tick()
	c2.Tick()

	require.Len(t, second.events, 12)
	assert.Equal(t, first.events[:6], second.events[:6])
	assert.Equal(t, second.events[:6], second.events[6:])
}

func TestController_AxisAnomaliesReadAsZero(t *testing.T) {
	tests := []struct {
		name string
		dev  *stick
	}{
		{"read error", &stick{err: errors.New("unplugged")}},
		{"above range", &stick{axes: map[int]float64{1: 1.5, 2: -3}}},
		{"not a number", &stick{axes: map[int]float64{1: math.NaN(), 2: math.Inf(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newTrace()
			got := NewController(tt.dev, tr, tr, DefaultTuning, nil).Tick()
			assert.Equal(t, Telemetry{}, got)
			assert.Equal(t, 0.0, tr.values["left"])
			assert.Equal(t, 0.0, tr.values["right"])
		})
	}
}

func TestController_WriteFailureLoggedOncePerRun(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core).Sugar()

	tr := newTrace()
	dev := &stick{axes: map[int]float64{1: -1}}
	c := NewController(dev, tr, tr, DefaultTuning, log)

	tr.leftErr = errors.New("can tx buffer full")
	for range 50 {
		c.Tick()
	}
	assert.Equal(t, 1, logs.FilterMessage("left primary write failing").Len())
	assert.Equal(t, 0, logs.FilterMessage("right primary write failing").Len())

	// Every tick still wrote both sides.
	writes := 0
	for _, e := range tr.events {
		if e == "left -0.90000" {
			writes++
		}
	}
	assert.Equal(t, 50, writes)

	tr.leftErr = nil
	c.Tick()
	assert.Equal(t, 1, logs.FilterMessage("left primary write recovered").Len())

	tr.leftErr = errors.New("again")
	c.Tick()
	c.Tick()
	assert.Equal(t, 2, logs.FilterMessage("left primary write failing").Len())
}

func TestController_TableFailureSwallowed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	tr := newTrace()
	tr.tableErr = errors.New("broker gone")
	dev := &stick{axes: map[int]float64{1: -1, 2: 0}}
	c := NewController(dev, tr, tr, DefaultTuning, zap.New(core).Sugar())

	c.Tick()
	c.Tick()

	assert.InDelta(t, -0.9, tr.values["left"], 1e-9)
	assert.InDelta(t, -0.9, tr.values["right"], 1e-9)
	assert.Equal(t, 1, logs.FilterMessage("dashboard publish failing").Len())
}

func TestController_LinearProfile(t *testing.T) {
	tuning := DefaultTuning
	tuning.Profile = Linear
	tr := newTrace()
	dev := &stick{axes: map[int]float64{1: -0.5, 2: 0.5}}

	got := NewController(dev, tr, tr, tuning, nil).Tick()
	assert.InDelta(t, -0.45, got.Throttle, 1e-9)
	assert.InDelta(t, 0.25, got.Twist, 1e-9)
	assert.InDelta(t, -0.7, tr.values["left"], 1e-9)
	assert.InDelta(t, -0.2, tr.values["right"], 1e-9)
}

func TestPublisher_NilTable(t *testing.T) {
	p := NewPublisher(nil, nil)
	p.Publish(Telemetry{Throttle: 1})
}
