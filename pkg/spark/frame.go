// Package spark drives REV SPARK MAX motor controllers over SocketCAN.
//
// Frames use 29-bit extended identifiers laid out as
//
//	device type (5) | manufacturer (8) | API (10) | device number (6)
//
// with device type 2 (motor controller) and manufacturer 5 (REV). The API
// field is a 6-bit class followed by a 4-bit index.
//
// Without a roboRIO on the bus a controller ignores setpoints unless it sees
// the enable heartbeat, a bitmask of enabled device numbers broadcast every
// few tens of milliseconds. Bus.Enable starts sending it.
package spark

import (
	"encoding/binary"
	"math"
)

const (
	deviceTypeMotorController = 2
	manufacturerREV           = 5

	idMask  = 0x1FFFFFFF
	apiMask = 0x3FF
	devMask = 0x3F
)

// API identifiers (class << 4 | index).
const (
	apiDutyCycleSet    uint16 = 0x002
	apiStatus0         uint16 = 0x060
	apiFollowerSet     uint16 = 0x073
	apiFactoryDefaults uint16 = 0x074
	apiHeartbeat       uint16 = 0x0B2 // broadcast, device number 0
	apiParameterBase   uint16 = 0x300 // parameter id is added to this
)

// Parameter ids and value types for parameter writes.
const (
	paramInverted          uint16 = 12
	paramSmartCurrentStall uint16 = 59
	paramSmartCurrentFree  uint16 = 60

	paramTypeUint uint8 = 1
	paramTypeBool uint8 = 3
)

// MaxCurrentLimit is the largest smart current limit the controller takes.
const MaxCurrentLimit = 80

func arbitrationID(api uint16, device uint8) uint32 {
	return deviceTypeMotorController<<24 |
		manufacturerREV<<16 |
		uint32(api&apiMask)<<6 |
		uint32(device&devMask)
}

// parseID splits a frame id. ok is false for frames from other devices.
func parseID(id uint32) (api uint16, device uint8, ok bool) {
	id &= idMask
	if id>>24 != deviceTypeMotorController || (id>>16)&0xFF != manufacturerREV {
		return 0, 0, false
	}
	return uint16(id>>6) & apiMask, uint8(id & devMask), true
}

func clip(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

// putSetpoint writes a duty cycle setpoint frame body into buf.
func putSetpoint(buf []byte, output float64) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(float32(clip(output))))
	clear(buf[4:8])
}

func parameterBody(value uint32, typ uint8) []byte {
	body := make([]byte, 5)
	binary.LittleEndian.PutUint32(body[0:4], value)
	body[4] = typ
	return body
}

func followerBody(leader uint8) []byte {
	body := make([]byte, 5)
	binary.LittleEndian.PutUint32(body[0:4], arbitrationID(apiStatus0, leader))
	body[4] = 0 // mirror the leader without inverting
	return body
}

// heartbeatBody sets bit n for every enabled device number n.
func heartbeatBody(ids []int) []byte {
	var mask uint64
	for _, id := range ids {
		if id >= 0 && id <= devMask {
			mask |= 1 << uint(id)
		}
	}
	body := make([]byte, 8)
	binary.LittleEndian.PutUint64(body, mask)
	return body
}
