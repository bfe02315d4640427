package spark

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-daq/canbus"
	"go.uber.org/zap"

	"github.com/team3238/testdrive/pkg/robot"
)

// ErrDeviceAbsent is returned when a controller sends no status frames.
var ErrDeviceAbsent = errors.New("device absent from CAN bus")

const (
	// Controllers send status 0 every 10ms by default.
	statusFresh     = 100 * time.Millisecond
	presenceTimeout = 500 * time.Millisecond
	presencePoll    = 5 * time.Millisecond

	heartbeatPeriod = 20 * time.Millisecond
)

// Conn is a raw CAN socket. *canbus.Socket satisfies it.
type Conn interface {
	Send(frame canbus.Frame) (int, error)
	Recv() (canbus.Frame, error)
	Close() error
}

// Bus owns a CAN socket shared by every controller on it, and tracks which
// controllers are alive from their periodic status frames.
type Bus struct {
	conn Conn
	log  *zap.SugaredLogger
	now  func() time.Time

	mu        sync.Mutex
	seen      map[uint8]time.Time
	closed    bool
	done      chan struct{}
	enabled   []byte
	heartbeat chan struct{} // closed when the heartbeat loop exits
	stop      chan struct{}
}

// Open binds a socket to the named interface, e.g. "can0".
func Open(iface string, log *zap.SugaredLogger) (*Bus, error) {
	sck, err := canbus.New()
	if err != nil {
		return nil, fmt.Errorf("create can socket: %w", err)
	}
	if err := sck.Bind(iface); err != nil {
		sck.Close()
		return nil, fmt.Errorf("bind %s: %w", iface, err)
	}
	return NewBus(sck, log), nil
}

// NewBus starts tracking status frames on conn.
func NewBus(conn Conn, log *zap.SugaredLogger) *Bus {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	b := &Bus{
		conn: conn,
		log:  log,
		now:  time.Now,
		seen: make(map[uint8]time.Time),
		done: make(chan struct{}),
		stop: make(chan struct{}),
	}
	go b.receive()
	return b
}

func (b *Bus) receive() {
	defer close(b.done)
	failing := false
	for {
		frame, err := b.conn.Recv()
		if err != nil {
			if b.isClosed() {
				return
			}
			if !failing {
				b.log.Warnw("can receive failing", "error", err)
				failing = true
			}
			time.Sleep(presencePoll)
			continue
		}
		failing = false

		api, device, ok := parseID(frame.ID)
		if !ok || api != apiStatus0 {
			continue
		}
		b.mu.Lock()
		b.seen[device] = b.now()
		b.mu.Unlock()
	}
}

func (b *Bus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Bus) send(api uint16, device uint8, body []byte) error {
	_, err := b.conn.Send(canbus.Frame{
		ID:   arbitrationID(api, device),
		Data: body,
		Kind: canbus.EFF,
	})
	return err
}

// Enable broadcasts the enable heartbeat for ids until Close. Calling it
// again replaces the set; an empty set disables every controller.
func (b *Bus) Enable(ids []int) {
	body := heartbeatBody(ids)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.enabled = body
	if b.heartbeat == nil {
		b.heartbeat = make(chan struct{})
		go b.sendHeartbeat()
	}
}

func (b *Bus) sendHeartbeat() {
	defer close(b.heartbeat)
	ticker := time.NewTicker(heartbeatPeriod)
	defer ticker.Stop()

	failing := false
	for {
		b.mu.Lock()
		body := b.enabled
		b.mu.Unlock()

		if err := b.send(apiHeartbeat, 0, body); err != nil {
			if !failing {
				b.log.Warnw("can heartbeat failing", "error", err)
				failing = true
			}
		} else {
			failing = false
		}

		select {
		case <-b.stop:
			return
		case <-ticker.C:
		}
	}
}

// Present reports whether the controller sent a status frame within the
// last within.
func (b *Bus) Present(id int, within time.Duration) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.seen[uint8(id)]
	return ok && b.now().Sub(t) <= within
}

// WaitPresent waits briefly for a status frame from the controller.
func (b *Bus) WaitPresent(ctx context.Context, id int) error {
	ctx, cancel := context.WithTimeout(ctx, presenceTimeout)
	defer cancel()

	ticker := time.NewTicker(presencePoll)
	defer ticker.Stop()
	for {
		if b.Present(id, statusFresh) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: can id %d", ErrDeviceAbsent, id)
		case <-ticker.C:
		}
	}
}

// Discover listens for window and returns the ids of controllers that sent
// status frames during it.
func (b *Bus) Discover(ctx context.Context, window time.Duration) ([]int, error) {
	start := b.now()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(window):
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []int
	for device, t := range b.seen {
		if !t.Before(start) {
			ids = append(ids, int(device))
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// Open implements robot.Opener.
func (b *Bus) Open(_ robot.Role, id int) (robot.Motor, error) {
	return b.Motor(id)
}

// Motor returns a handle for the controller with the given CAN id.
func (b *Bus) Motor(id int) (*Motor, error) {
	if id < 0 || id > robot.MaxDeviceID {
		return nil, fmt.Errorf("can id %d out of range 0..%d", id, robot.MaxDeviceID)
	}
	return &Motor{bus: b, id: uint8(id)}, nil
}

// Close stops the heartbeat, closes the socket and waits for the receive
// loop to exit.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	heartbeat := b.heartbeat
	b.mu.Unlock()

	close(b.stop)
	if heartbeat != nil {
		<-heartbeat
	}
	err := b.conn.Close()
	<-b.done
	return err
}
