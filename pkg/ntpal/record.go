package ntpal

import (
	"encoding/hex"
	"time"
)

// Record is the JSON shape of a Result, shared by the CLI and the report server.
type Record struct {
	Time time.Time `json:"time"`

	LeapIndicator uint8  `json:"leapIndicator"`
	Leap          string `json:"leap"`
	Version       uint8  `json:"version"`
	Mode          uint8  `json:"mode"`
	ModeName      string `json:"modeName"`
	Stratum       uint8  `json:"stratum"`
	PollInterval  uint8  `json:"pollInterval"`
	Precision     int8   `json:"precision"`

	RootDelay             uint32  `json:"rootDelay"`
	RootDelaySeconds      float64 `json:"rootDelaySeconds"`
	RootDispersion        uint32  `json:"rootDispersion"`
	RootDispersionSeconds float64 `json:"rootDispersionSeconds"`
	ReferenceIdentifier   uint32  `json:"referenceIdentifier"`
	Reference             string  `json:"reference"`
	KissCode              string  `json:"kissCode,omitempty"`

	ReferenceTimestamp time.Time `json:"referenceTimestamp"`
	OriginTimestamp    time.Time `json:"originTimestamp"`
	ReceiveTimestamp   time.Time `json:"receiveTimestamp"`
	TransmitTimestamp  time.Time `json:"transmitTimestamp"`

	OffsetSeconds *float64 `json:"offsetSeconds,omitempty"`
	DelaySeconds  *float64 `json:"delaySeconds,omitempty"`

	ExtensionField1 string `json:"extensionField1,omitempty"`
	ExtensionField2 string `json:"extensionField2,omitempty"`
	KeyIdentifier   string `json:"keyIdentifier,omitempty"`
	Digest          string `json:"digest,omitempty"`
}

func (r *Result) Record() Record {
	packet := r.Packet
	record := Record{
		Time:                  r.Time,
		LeapIndicator:         uint8(packet.Leap),
		Leap:                  packet.Leap.String(),
		Version:               uint8(packet.Version),
		Mode:                  uint8(packet.Mode),
		ModeName:              packet.Mode.String(),
		Stratum:               packet.Stratum,
		PollInterval:          packet.Poll,
		Precision:             packet.Precision,
		RootDelay:             packet.RootDelay,
		RootDelaySeconds:      packet.RootDelayDuration().Seconds(),
		RootDispersion:        packet.RootDispersion,
		RootDispersionSeconds: packet.RootDispersionDuration().Seconds(),
		ReferenceIdentifier:   uint32(packet.ReferenceID),
		Reference:             packet.Reference(),
		KissCode:              packet.KissCode(),
		ReferenceTimestamp:    packet.ReferenceTime,
		OriginTimestamp:       packet.OriginTime,
		ReceiveTimestamp:      packet.ReceiveTime,
		TransmitTimestamp:     packet.TransmitTime,
		ExtensionField1:       hex.EncodeToString(packet.ExtensionField1),
		ExtensionField2:       hex.EncodeToString(packet.ExtensionField2),
		KeyIdentifier:         hex.EncodeToString(packet.KeyIdentifier),
		Digest:                hex.EncodeToString(packet.Digest),
	}
	if r.Stamped {
		offset, delay := r.Offset.Seconds(), r.Delay.Seconds()
		record.OffsetSeconds = &offset
		record.DelaySeconds = &delay
	}
	return record
}
