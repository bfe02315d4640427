package robot_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/team3238/testdrive/pkg/robot"
	"github.com/team3238/testdrive/pkg/robot/robottest"
)

func newRecorded(t *testing.T) (*robot.Drivetrain, *robottest.Journal) {
	t.Helper()
	j := robottest.NewJournal()
	dt, err := robot.NewDrivetrain(robot.DefaultLayout, j.Opener())
	require.NoError(t, err)
	return dt, j
}

func indexOf(calls []robottest.Call, op robottest.Op) int {
	for i, c := range calls {
		if c.Op == op {
			return i
		}
	}
	return -1
}

func TestConfigure_Settings(t *testing.T) {
	dt, j := newRecorded(t)
	require.NoError(t, dt.Configure(context.Background(), 60))

	for _, role := range robot.AllRoles() {
		id := robot.DefaultLayout.ID(role)
		calls := j.CallsTo(id)

		assert.Contains(t, calls, robottest.Call{ID: id, Op: robottest.OpReset}, role.String())
		assert.Contains(t, calls, robottest.Call{ID: id, Op: robottest.OpSet, Arg: 0.0}, role.String())
		assert.Contains(t, calls, robottest.Call{ID: id, Op: robottest.OpCurrentLimit, Arg: 60}, role.String())
		assert.Contains(t, calls, robottest.Call{ID: id, Op: robottest.OpInverted, Arg: role.Side() == robot.Left}, role.String())

		leader, follows := role.Leader()
		if follows {
			assert.Contains(t, calls, robottest.Call{ID: id, Op: robottest.OpFollow, Arg: robot.DefaultLayout.ID(leader)}, role.String())
		} else {
			assert.Equal(t, -1, indexOf(calls, robottest.OpFollow), "%s must not follow", role)
		}
	}
}

func TestConfigure_Order(t *testing.T) {
	dt, j := newRecorded(t)
	require.NoError(t, dt.Configure(context.Background(), 60))

	all := j.Calls()
	position := func(id int, op robottest.Op) int {
		for i, c := range all {
			if c.ID == id && c.Op == op {
				return i
			}
		}
		t.Fatalf("no %s call for %d", op, id)
		return -1
	}

	for _, role := range robot.AllRoles() {
		id := robot.DefaultLayout.ID(role)
		reset := position(id, robottest.OpReset)
		assert.Less(t, reset, position(id, robottest.OpSet), role.String())
		assert.Less(t, reset, position(id, robottest.OpCurrentLimit), role.String())
		assert.Less(t, reset, position(id, robottest.OpInverted), role.String())

		if leader, ok := role.Leader(); ok {
			follow := position(id, robottest.OpFollow)
			assert.Less(t, reset, follow, role.String())
			assert.Less(t, position(robot.DefaultLayout.ID(leader), robottest.OpInverted), follow,
				"%s bound before its leader's inversion", role)
		}
	}
}

func TestConfigure_FailsFast(t *testing.T) {
	dt, j := newRecorded(t)
	absent := errors.New("no status frames")
	j.FailOn(robottest.OpCurrentLimit, 1, absent)

	err := dt.Configure(context.Background(), 60)
	require.Error(t, err)
	assert.ErrorIs(t, err, robot.ErrConfigure)
	assert.ErrorIs(t, err, absent)
	assert.Contains(t, err.Error(), "right_primary")

	// Nothing after the failing step may run.
	assert.Equal(t, -1, indexOf(j.Calls(), robottest.OpInverted))
	assert.Equal(t, -1, indexOf(j.Calls(), robottest.OpFollow))
}

func TestConfigure_Canceled(t *testing.T) {
	dt, j := newRecorded(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := dt.Configure(ctx, 60)
	assert.ErrorIs(t, err, robot.ErrConfigure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, j.Calls())
}

func TestDrivetrain_SetWritesPrimariesOnly(t *testing.T) {
	dt, j := newRecorded(t)

	require.NoError(t, dt.SetLeft(-0.5))
	require.NoError(t, dt.SetRight(0.25))
	require.NoError(t, dt.Stop())

	assert.Equal(t, []robottest.Call{
		{ID: 3, Op: robottest.OpSet, Arg: -0.5},
		{ID: 1, Op: robottest.OpSet, Arg: 0.25},
		{ID: 1, Op: robottest.OpSet, Arg: 0.0},
		{ID: 3, Op: robottest.OpSet, Arg: 0.0},
	}, j.Calls())
}

func TestDrivetrain_MotorLookup(t *testing.T) {
	dt, j := newRecorded(t)
	assert.Equal(t, robot.DefaultLayout, dt.Layout())

	for _, role := range robot.AllRoles() {
		m := dt.Motor(role)
		require.NotNil(t, m, role.String())
		assert.Equal(t, robot.DefaultLayout.ID(role), m.ID(), role.String())
	}
	assert.Nil(t, dt.Motor(robot.Role(9)))

	require.NoError(t, dt.Motor(robot.LeftSecondary).Set(0.1))
	assert.Equal(t, []robottest.Call{{ID: 4, Op: robottest.OpSet, Arg: 0.1}}, j.Calls())
}

func TestNewDrivetrain_OpenError(t *testing.T) {
	boom := errors.New("bus down")
	_, err := robot.NewDrivetrain(robot.DefaultLayout, func(role robot.Role, id int) (robot.Motor, error) {
		if role == robot.RightPrimary {
			return nil, boom
		}
		return robottest.NewJournal().Opener()(role, id)
	})
	assert.ErrorIs(t, err, boom)

	_, err = robot.NewDrivetrain(robot.Layout{1, 1, 2, 3}, robottest.NewJournal().Opener())
	assert.Error(t, err)
}
