package robot

import "fmt"

// MaxDeviceID is the largest CAN device number a motor controller accepts.
const MaxDeviceID = 62

// Layout holds the CAN device id of each motor, indexed by Role.
type Layout [numRoles]int

// DefaultLayout matches the ids assigned to the test robot's controllers.
var DefaultLayout = Layout{
	LeftPrimary:    3,
	LeftSecondary:  4,
	RightPrimary:   1,
	RightSecondary: 2,
}

// ID returns the CAN id assigned to role, or 0 for an unknown role.
func (l Layout) ID(role Role) int {
	if !role.valid() {
		return 0
	}
	return l[role]
}

// IDs returns the CAN ids for all motors in AllRoles order.
func (l Layout) IDs() []int {
	ids := make([]int, 0, numRoles)
	for _, role := range AllRoles() {
		ids = append(ids, l[role])
	}
	return ids
}

// ByID returns the role for a given CAN id.
func (l Layout) ByID(id int) (Role, bool) {
	for _, role := range AllRoles() {
		if l[role] == id {
			return role, true
		}
	}
	return 0, false
}

// Validate checks that every id is in range and unique.
func (l Layout) Validate() error {
	seen := make(map[int]Role, numRoles)
	for _, role := range AllRoles() {
		id := l[role]
		if id < 1 || id > MaxDeviceID {
			return fmt.Errorf("%s: can id %d out of range 1..%d", role, id, MaxDeviceID)
		}
		if other, dup := seen[id]; dup {
			return fmt.Errorf("%s: can id %d already used by %s", role, id, other)
		}
		seen[id] = role
	}
	return nil
}
