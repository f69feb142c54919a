package ntp

import (
	"time"
)

// Packet is a decoded server reply. Timestamps are converted to calendar
// time with millisecond resolution; Header keeps the raw fixed-point values.
type Packet struct {
	Leap           Leap
	Version        Version // as read from the wire, not the requested one
	Mode           Mode
	Stratum        uint8
	Poll           uint8
	Precision      int8
	RootDelay      ShortEncoded
	RootDispersion ShortEncoded
	ReferenceID    ReferenceID

	ReferenceTime time.Time
	OriginTime    time.Time
	ReceiveTime   time.Time
	TransmitTime  time.Time

	// Only set by DecodeResponseExtended, and only as far as the datagram went.
	ExtensionField1 []byte
	ExtensionField2 []byte
	KeyIdentifier   []byte
	Digest          []byte

	Header Header
}

func newPacket(header Header) *Packet {
	return &Packet{
		Leap:           header.Leap(),
		Version:        header.Version(),
		Mode:           header.Mode(),
		Stratum:        header.Stratum,
		Poll:           header.Poll,
		Precision:      header.Precision,
		RootDelay:      header.RootDelay,
		RootDispersion: header.RootDispersion,
		ReferenceID:    header.ReferenceID,
		ReferenceTime:  NTPTimestampToTime(header.ReferenceTime),
		OriginTime:     NTPTimestampToTime(header.OriginTime),
		ReceiveTime:    NTPTimestampToTime(header.ReceiveTime),
		TransmitTime:   NTPTimestampToTime(header.TransmitTime),
		Header:         header,
	}
}

func (p *Packet) RootDelayDuration() time.Duration {
	return ShortToDuration(p.RootDelay)
}

func (p *Packet) RootDispersionDuration() time.Duration {
	return ShortToDuration(p.RootDispersion)
}

func (p *Packet) PrecisionDuration() time.Duration {
	return Log2ToDuration(int(p.Precision))
}

func (p *Packet) PollInterval() time.Duration {
	return Log2ToDuration(int(p.Poll))
}

// IsKissOfDeath reports a stratum 0 reply, whose reference ID carries a kiss code.
func (p *Packet) IsKissOfDeath() bool {
	return p.Stratum == 0
}

func (p *Packet) KissCode() string {
	if !p.IsKissOfDeath() {
		return ""
	}
	return p.ReferenceID.String()
}

func (p *Packet) Reference() string {
	return p.ReferenceID.Describe(p.Stratum)
}
