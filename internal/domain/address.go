package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultDeviceID is used when a user runs a single device.
const DefaultDeviceID uint32 = 1

// Username represents a relay-registered identity.
type Username string

func (u Username) String() string { return string(u) }

// Address identifies one device of a remote party. Sessions are keyed by it.
type Address struct {
	Name     Username `json:"name"`
	DeviceID uint32   `json:"device_id"`
}

// NewAddress returns the address of the given device.
func NewAddress(name Username, deviceID uint32) Address {
	return Address{Name: name, DeviceID: deviceID}
}

// String renders "name.device".
func (a Address) String() string {
	return fmt.Sprintf("%s.%d", a.Name, a.DeviceID)
}

// ParseAddress parses the String form. A missing device suffix means the
// default device.
func ParseAddress(s string) (Address, error) {
	i := strings.LastIndexByte(s, '.')
	if i < 0 {
		if s == "" {
			return Address{}, fmt.Errorf("empty address")
		}
		return NewAddress(Username(s), DefaultDeviceID), nil
	}
	id, err := strconv.ParseUint(s[i+1:], 10, 32)
	if err != nil || i == 0 {
		return Address{}, fmt.Errorf("malformed address %q", s)
	}
	return NewAddress(Username(s[:i]), uint32(id)), nil
}
