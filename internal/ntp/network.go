package ntp

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Header is the on-wire layout of the 48 byte NTP header. Field order and
// widths are the offsets: binary.Read/Write walk it big endian.
type Header struct {
	Settings       byte             /* leap (2) | version (3) | mode (3) */
	Stratum        uint8            /* stratum */
	Poll           uint8            /* poll interval (log2 s) */
	Precision      int8             /* precision (log2 s) */
	RootDelay      ShortEncoded     /* root delay */
	RootDispersion ShortEncoded     /* root dispersion */
	ReferenceID    ReferenceID      /* reference ID */
	ReferenceTime  TimestampEncoded /* reference time */
	OriginTime     TimestampEncoded /* origin timestamp */
	ReceiveTime    TimestampEncoded /* receive timestamp */
	TransmitTime   TimestampEncoded /* transmit timestamp */
}

// Opaque trailers that may follow the header. Never interpreted.
const (
	extensionField1Offset = 48
	extensionField2Offset = 52
	keyIdentifierOffset   = 56
	digestOffset          = 60
	digestEnd             = 76
)

func settings(leap Leap, version Version, mode Mode) byte {
	return (byte(leap) << 6) | (byte(version) << 3) | byte(mode)
}

func (h Header) Leap() Leap {
	return Leap(h.Settings >> 6)
}

func (h Header) Version() Version {
	return Version((h.Settings >> 3) & 0b111)
}

func (h Header) Mode() Mode {
	return Mode(h.Settings & 0b111)
}

// minimalRequest is the header a minimal client sends: no leap warning,
// client mode, every other field zero.
func minimalRequest(version Version) Header {
	return Header{Settings: settings(LEAP_NONE, version, CLIENT)}
}

func EncodeHeader(header Header) []byte {
	var buffer bytes.Buffer
	buffer.Grow(PacketLength)
	binary.Write(&buffer, binary.BigEndian, &header)
	return buffer.Bytes()
}

// EncodeRequest builds a 48 byte client request for the given version.
func EncodeRequest(version Version) ([]byte, error) {
	return EncodeRequestAt(version, 0)
}

// EncodeRequestAt is EncodeRequest with the transmit timestamp set to xmt.
// The server echoes it back as the origin timestamp.
func EncodeRequestAt(version Version, xmt TimestampEncoded) ([]byte, error) {
	if !version.Valid() {
		return nil, fmt.Errorf("%w: unsupported NTP version %d", ErrInvalidArgument, version)
	}

	header := minimalRequest(version)
	header.TransmitTime = xmt
	return EncodeHeader(header), nil
}

// DecodeResponse decodes a reply that must be exactly the 48 byte header.
func DecodeResponse(encoded []byte) (*Packet, error) {
	if len(encoded) != PacketLength {
		return nil, fmt.Errorf("%w: invalid length %d, expected %d", ErrMalformedPacket, len(encoded), PacketLength)
	}
	return decodeHeader(encoded)
}

// DecodeResponseExtended decodes a reply of at least 48 bytes and keeps the
// extension, key identifier and digest ranges that follow as raw bytes.
func DecodeResponseExtended(encoded []byte) (*Packet, error) {
	if len(encoded) < PacketLength {
		return nil, fmt.Errorf("%w: invalid length %d, expected at least %d", ErrMalformedPacket, len(encoded), PacketLength)
	}

	packet, err := decodeHeader(encoded[:PacketLength])
	if err != nil {
		return nil, err
	}

	packet.ExtensionField1 = span(encoded, extensionField1Offset, extensionField2Offset)
	packet.ExtensionField2 = span(encoded, extensionField2Offset, keyIdentifierOffset)
	packet.KeyIdentifier = span(encoded, keyIdentifierOffset, digestOffset)
	packet.Digest = span(encoded, digestOffset, digestEnd)
	return packet, nil
}

func decodeHeader(encoded []byte) (*Packet, error) {
	header := Header{}
	if err := binary.Read(bytes.NewReader(encoded), binary.BigEndian, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPacket, err)
	}
	return newPacket(header), nil
}

// span copies encoded[from:to], clamped to what was actually received.
func span(encoded []byte, from, to int) []byte {
	if from >= len(encoded) {
		return nil
	}
	if to > len(encoded) {
		to = len(encoded)
	}
	return bytes.Clone(encoded[from:to])
}
