package system

import (
	"time"

	"github.com/AndrewLester/ntpal-client/internal/ntp"
	"golang.org/x/sys/unix"
)

// GetSystemTime reads CLOCK_REALTIME as an NTP timestamp.
func GetSystemTime() ntp.TimestampEncoded {
	var unixTime unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_REALTIME, &unixTime); err != nil {
		return ntp.TimeToNTPTimestamp(time.Now())
	}
	return UnixToNTPTimestampEncoded(unixTime)
}

func UnixToNTPTimestampEncoded(t unix.Timespec) ntp.TimestampEncoded {
	return ntp.TimestampEncoded((int64(t.Sec)+ntp.UnixEraOffset)<<32) +
		ntp.TimestampEncoded(float64(t.Nsec)/1e9*float64(ntp.EraLength))
}
