package ntp

import "errors"

type TimestampEncoded = uint64

type ShortEncoded = uint32

type Mode byte

const (
	RESERVED Mode = iota
	SYMMETRIC_ACTIVE
	SYMMETRIC_PASSIVE
	CLIENT
	SERVER
	BROADCAST_SERVER
	NTP_CONTROL_MESSAGE
	RESERVED_PRIVATE_USE
)

func (m Mode) String() string {
	switch m {
	case SYMMETRIC_ACTIVE:
		return "symmetric active"
	case SYMMETRIC_PASSIVE:
		return "symmetric passive"
	case CLIENT:
		return "client"
	case SERVER:
		return "server"
	case BROADCAST_SERVER:
		return "broadcast"
	case NTP_CONTROL_MESSAGE:
		return "control"
	case RESERVED_PRIVATE_USE:
		return "private"
	default:
		return "reserved"
	}
}

type Leap byte

const (
	LEAP_NONE  Leap = iota /* no warning */
	LEAP_ADD               /* last minute has 61 seconds */
	LEAP_DEL               /* last minute has 59 seconds */
	NOSYNC                 /* clock not synchronized */
)

func (l Leap) String() string {
	switch l {
	case LEAP_NONE:
		return "none"
	case LEAP_ADD:
		return "+1s"
	case LEAP_DEL:
		return "-1s"
	default:
		return "unsynchronized"
	}
}

// Version is an NTP protocol version this client can speak.
type Version byte

const (
	Version3 Version = 3
	Version4 Version = 4
)

func (v Version) Valid() bool {
	return v == Version3 || v == Version4
}

const (
	Port         = "123" // NTP port number
	DefaultPort  = 123
	PacketLength = 48 // base header, no extensions or MAC
	MTU          = 1300
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrMalformedPacket = errors.New("malformed packet")
)
