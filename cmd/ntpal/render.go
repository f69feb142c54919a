package main

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/AndrewLester/ntpal-client/internal/ui"
	"github.com/AndrewLester/ntpal-client/pkg/ntpal"
)

func renderResult(host string, result *ntpal.Result) string {
	packet := result.Packet

	var s strings.Builder
	s.WriteString(ui.Title("NTPal - "+host) + "\n\n")
	s.WriteString(ui.Field("Server time", result.Time))
	if result.Stamped {
		s.WriteString(ui.Field("Offset", signed(result.Offset)))
		s.WriteString(ui.Field("Delay", result.Delay))
	}
	s.WriteString(ui.Field("Leap", packet.Leap))
	s.WriteString(ui.Field("Version", packet.Version))
	s.WriteString(ui.Field("Mode", fmt.Sprintf("%d (%s)", packet.Mode, packet.Mode)))
	s.WriteString(ui.Field("Stratum", packet.Stratum))
	s.WriteString(ui.Field("Poll", fmt.Sprintf("%d (%s)", packet.Poll, packet.PollInterval())))
	s.WriteString(ui.Field("Precision", fmt.Sprintf("%d (%s)", packet.Precision, packet.PrecisionDuration())))
	s.WriteString(ui.Field("Root delay", packet.RootDelayDuration()))
	s.WriteString(ui.Field("Root dispersion", packet.RootDispersionDuration()))
	s.WriteString(ui.Field("Reference", packet.Reference()))
	if packet.IsKissOfDeath() {
		s.WriteString(ui.Error("kiss of death: "+packet.KissCode()) + "\n")
	}
	s.WriteString(ui.Field("Reference time", packet.ReferenceTime))
	s.WriteString(ui.Field("Origin time", packet.OriginTime))
	s.WriteString(ui.Field("Receive time", packet.ReceiveTime))
	s.WriteString(ui.Field("Transmit time", packet.TransmitTime))

	for _, trailer := range []struct {
		label string
		value []byte
	}{
		{"Extension 1", packet.ExtensionField1},
		{"Extension 2", packet.ExtensionField2},
		{"Key ID", packet.KeyIdentifier},
		{"Digest", packet.Digest},
	} {
		if len(trailer.value) > 0 {
			s.WriteString(ui.Field(trailer.label, hex.EncodeToString(trailer.value)))
		}
	}
	return s.String()
}

func signed(d time.Duration) string {
	if d > 0 {
		return "+" + d.String()
	}
	return d.String()
}
