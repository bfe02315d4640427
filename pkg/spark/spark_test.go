package spark

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-daq/canbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team3238/testdrive/pkg/robot"
)

// fakeConn is a loopback CAN socket: tests inject received frames and read
// back what was sent.
type fakeConn struct {
	mu     sync.Mutex
	sent   []canbus.Frame
	rx     chan canbus.Frame
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{rx: make(chan canbus.Frame, 16), closed: make(chan struct{})}
}

func (f *fakeConn) Send(frame canbus.Frame) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	frame.Data = append([]byte(nil), frame.Data...)
	f.sent = append(f.sent, frame)
	return len(frame.Data), nil
}

func (f *fakeConn) Recv() (canbus.Frame, error) {
	select {
	case frame := <-f.rx:
		return frame, nil
	case <-f.closed:
		return canbus.Frame{}, io.EOF
	}
}

func (f *fakeConn) Close() error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) Sent() []canbus.Frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]canbus.Frame(nil), f.sent...)
}

func status(device uint8) canbus.Frame {
	return canbus.Frame{ID: arbitrationID(apiStatus0, device), Data: make([]byte, 8), Kind: canbus.EFF}
}

func TestArbitrationID(t *testing.T) {
	// Duty cycle setpoint for device 1.
	assert.Equal(t, uint32(0x02050081), arbitrationID(apiDutyCycleSet, 1))

	api, device, ok := parseID(arbitrationID(apiStatus0, 3))
	assert.True(t, ok)
	assert.Equal(t, apiStatus0, api)
	assert.Equal(t, uint8(3), device)

	// Extended frame flag bit is ignored.
	_, _, ok = parseID(arbitrationID(apiStatus0, 3) | 0x80000000)
	assert.True(t, ok)

	// Another manufacturer's frame.
	_, _, ok = parseID(0x02040081)
	assert.False(t, ok)
}

func TestMotor_SetClipsAndEncodes(t *testing.T) {
	conn := newFakeConn()
	bus := NewBus(conn, nil)
	defer bus.Close()

	m, err := bus.Motor(3)
	require.NoError(t, err)
	require.NoError(t, m.Set(-0.25625))
	require.NoError(t, m.Set(1.4))

	sent := conn.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, arbitrationID(apiDutyCycleSet, 3), sent[0].ID)
	assert.Equal(t, canbus.EFF, sent[0].Kind)
	assert.InDelta(t, -0.25625, math.Float32frombits(binary.LittleEndian.Uint32(sent[0].Data)), 1e-6)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(sent[1].Data)))
}

func TestMotor_Configuration(t *testing.T) {
	conn := newFakeConn()
	bus := NewBus(conn, nil)
	defer bus.Close()
	ctx := context.Background()

	leader, _ := bus.Motor(1)
	follower, _ := bus.Motor(2)

	require.NoError(t, follower.SetSmartCurrentLimit(ctx, 60))
	require.NoError(t, follower.SetInverted(ctx, true))
	require.NoError(t, follower.Follow(ctx, leader))

	sent := conn.Sent()
	require.Len(t, sent, 4)
	assert.Equal(t, arbitrationID(apiParameterBase+paramSmartCurrentStall, 2), sent[0].ID)
	assert.Equal(t, []byte{60, 0, 0, 0, paramTypeUint}, sent[0].Data)
	assert.Equal(t, arbitrationID(apiParameterBase+paramSmartCurrentFree, 2), sent[1].ID)
	assert.Equal(t, arbitrationID(apiParameterBase+paramInverted, 2), sent[2].ID)
	assert.Equal(t, []byte{1, 0, 0, 0, paramTypeBool}, sent[2].Data)
	assert.Equal(t, arbitrationID(apiFollowerSet, 2), sent[3].ID)
	assert.Equal(t, arbitrationID(apiStatus0, 1), binary.LittleEndian.Uint32(sent[3].Data))

	assert.Error(t, follower.SetSmartCurrentLimit(ctx, 0))
	assert.Error(t, follower.SetSmartCurrentLimit(ctx, 81))
	assert.Error(t, leader.Follow(ctx, leader))
}

func TestMotor_ResetRequiresPresence(t *testing.T) {
	conn := newFakeConn()
	bus := NewBus(conn, nil)
	defer bus.Close()

	m, _ := bus.Motor(4)
	err := m.RestoreFactoryDefaults(context.Background())
	assert.ErrorIs(t, err, ErrDeviceAbsent)
	assert.Empty(t, conn.Sent())

	conn.rx <- status(4)
	require.Eventually(t, func() bool { return bus.Present(4, time.Second) }, time.Second, time.Millisecond)
	require.NoError(t, m.RestoreFactoryDefaults(context.Background()))
	sent := conn.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, arbitrationID(apiFactoryDefaults, 4), sent[0].ID)
}

func TestBus_Discover(t *testing.T) {
	conn := newFakeConn()
	bus := NewBus(conn, nil)
	defer bus.Close()

	go func() {
		for _, id := range []uint8{3, 1, 4, 2} {
			conn.rx <- status(id)
		}
		conn.rx <- canbus.Frame{ID: arbitrationID(apiDutyCycleSet, 9), Kind: canbus.EFF}
	}()

	ids, err := bus.Discover(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, ids)
}

func TestBus_DrivetrainConfigure(t *testing.T) {
	conn := newFakeConn()
	bus := NewBus(conn, nil)
	defer bus.Close()
	for _, id := range robot.DefaultLayout.IDs() {
		conn.rx <- status(uint8(id))
	}
	require.Eventually(t, func() bool {
		for _, id := range robot.DefaultLayout.IDs() {
			if !bus.Present(id, time.Second) {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond)

	dt, err := robot.NewDrivetrain(robot.DefaultLayout, bus.Open)
	require.NoError(t, err)
	require.NoError(t, dt.Configure(context.Background(), 60))

	var follows int
	for _, f := range conn.Sent() {
		if api, _, _ := parseID(f.ID); api == apiFollowerSet {
			follows++
		}
	}
	assert.Equal(t, 2, follows)
}

func TestBus_EnableHeartbeat(t *testing.T) {
	conn := newFakeConn()
	bus := NewBus(conn, nil)

	heartbeats := func() []canbus.Frame {
		var out []canbus.Frame
		for _, f := range conn.Sent() {
			if api, device, _ := parseID(f.ID); api == apiHeartbeat && device == 0 {
				out = append(out, f)
			}
		}
		return out
	}

	bus.Enable(robot.DefaultLayout.IDs())
	require.Eventually(t, func() bool { return len(heartbeats()) >= 2 }, time.Second, time.Millisecond)
	first := heartbeats()[0]
	assert.Equal(t, uint32(0x02052C80), first.ID)
	assert.Equal(t, uint64(1<<1|1<<2|1<<3|1<<4), binary.LittleEndian.Uint64(first.Data))

	require.NoError(t, bus.Close())
	n := len(heartbeats())
	time.Sleep(3 * heartbeatPeriod)
	assert.Len(t, heartbeats(), n, "heartbeat must stop on close")

	bus.Enable([]int{5})
	assert.Len(t, heartbeats(), n)
}

func TestHeartbeatBody(t *testing.T) {
	assert.Equal(t, make([]byte, 8), heartbeatBody(nil))
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0x80}, heartbeatBody([]int{63}))
	assert.Equal(t, []byte{0x01, 0, 0, 0, 0, 0, 0, 0}, heartbeatBody([]int{0, 64, -1}))
}

func TestBus_Close(t *testing.T) {
	bus := NewBus(newFakeConn(), nil)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())
}
