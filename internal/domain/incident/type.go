package incident

import (
	"errors"
	"strings"
)

// Type classifies a reported road incident.
type Type string

const (
	TypeAccident      Type = "accident"
	TypeTrafficJam    Type = "traffic_jam"
	TypeRoadClosed    Type = "road_closed"
	TypePoliceControl Type = "police_control"
	TypeRoadblock     Type = "roadblock"
)

var ErrInvalidType = errors.New("invalid incident type")

// ParseType normalizes (lowercases+trims) and validates a type string.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t, nil
	}
	return "", ErrInvalidType
}

// Valid reports whether t is one of the known incident types.
func (t Type) Valid() bool {
	switch t {
	case TypeAccident, TypeTrafficJam, TypeRoadClosed, TypePoliceControl, TypeRoadblock:
		return true
	default:
		return false
	}
}

// String returns the string representation of the Type.
func (t Type) String() string {
	return string(t)
}
