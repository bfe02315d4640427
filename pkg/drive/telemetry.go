package drive

import "go.uber.org/zap"

// Dashboard keys, stable across releases.
const (
	KeyThrottle   = "Throttle"
	KeyTwist      = "Twist"
	KeyRightPower = "Right Power"
	KeyLeftPower  = "Left Power"
)

// Telemetry is what one tick computed.
type Telemetry struct {
	Throttle float64
	Twist    float64
	Left     float64
	Right    float64
}

// Table is a publish-only key/scalar dashboard sink.
type Table interface {
	PutNumber(key string, value float64) error
}

// Publisher writes Telemetry to a Table. Sink errors never reach the caller.
type Publisher struct {
	table  Table
	health failureRun
}

// NewPublisher returns a Publisher for table. A nil table discards values.
func NewPublisher(table Table, log *zap.SugaredLogger) *Publisher {
	return &Publisher{
		table:  table,
		health: failureRun{what: "dashboard publish", log: orNop(log)},
	}
}

// Publish puts the four values in key order Throttle, Twist, Right Power,
// Left Power.
func (p *Publisher) Publish(t Telemetry) {
	if p == nil || p.table == nil {
		return
	}
	var firstErr error
	put := func(key string, v float64) {
		if err := p.table.PutNumber(key, v); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	put(KeyThrottle, t.Throttle)
	put(KeyTwist, t.Twist)
	put(KeyRightPower, t.Right)
	put(KeyLeftPower, t.Left)
	p.health.observe(firstErr)
}

func orNop(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return zap.NewNop().Sugar()
	}
	return log
}
