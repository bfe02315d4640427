// Package robottest provides a recording motor for drivetrain tests.
package robottest

import (
	"context"
	"fmt"
	"sync"

	"github.com/team3238/testdrive/pkg/robot"
)

// Op names a motor capability call.
type Op string

const (
	OpReset        Op = "reset"
	OpSet          Op = "set"
	OpCurrentLimit Op = "current_limit"
	OpInverted     Op = "inverted"
	OpFollow       Op = "follow"
)

// Call is one recorded capability call.
type Call struct {
	ID  int
	Op  Op
	Arg any // float64 for set, int for limit and follow target, bool for inverted
}

func (c Call) String() string {
	return fmt.Sprintf("%d:%s(%v)", c.ID, c.Op, c.Arg)
}

// Journal records calls from every motor that shares it, in call order.
type Journal struct {
	mu    sync.Mutex
	calls []Call
	fail  map[Op]map[int]error
}

// NewJournal returns an empty Journal.
func NewJournal() *Journal {
	return &Journal{fail: make(map[Op]map[int]error)}
}

// FailOn makes op on the motor with the given id return err. A nil err
// clears the failure.
func (j *Journal) FailOn(op Op, id int, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail[op] == nil {
		j.fail[op] = make(map[int]error)
	}
	if err == nil {
		delete(j.fail[op], id)
		return
	}
	j.fail[op][id] = err
}

// Calls returns a copy of the recorded calls.
func (j *Journal) Calls() []Call {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]Call(nil), j.calls...)
}

// CallsTo returns the recorded calls for one motor.
func (j *Journal) CallsTo(id int) []Call {
	var out []Call
	for _, c := range j.Calls() {
		if c.ID == id {
			out = append(out, c)
		}
	}
	return out
}

func (j *Journal) record(id int, op Op, arg any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.calls = append(j.calls, Call{ID: id, Op: op, Arg: arg})
	return j.fail[op][id]
}

// Opener returns a robot.Opener producing recording motors.
func (j *Journal) Opener() robot.Opener {
	return func(_ robot.Role, id int) (robot.Motor, error) {
		return &Motor{id: id, journal: j}, nil
	}
}

// Motor records every call into its Journal.
type Motor struct {
	id      int
	journal *Journal
}

func (m *Motor) ID() int { return m.id }

func (m *Motor) RestoreFactoryDefaults(context.Context) error {
	return m.journal.record(m.id, OpReset, nil)
}

func (m *Motor) Set(output float64) error {
	return m.journal.record(m.id, OpSet, output)
}

func (m *Motor) SetSmartCurrentLimit(_ context.Context, amps int) error {
	return m.journal.record(m.id, OpCurrentLimit, amps)
}

func (m *Motor) SetInverted(_ context.Context, inverted bool) error {
	return m.journal.record(m.id, OpInverted, inverted)
}

func (m *Motor) Follow(_ context.Context, leader robot.Motor) error {
	return m.journal.record(m.id, OpFollow, leader.ID())
}
