package ntp

import (
	"math"
	"time"
)

const (
	EraLength     int64   = 4_294_967_296 // 2^32
	UnixEraOffset int64   = 2_208_988_800 // 1970 - 1900 in seconds
	ShortLength   float64 = 65536         // 2^16
)

// NTPTimestampToTime converts a 64-bit NTP timestamp (32.32 fixed point,
// seconds since 1900) to UTC calendar time, truncated to the millisecond.
//
// Zero means "unset" and maps straight to the Unix epoch. Seconds are taken
// from era 0, so 0xFFFFFFFF lands in February 2036 and anything below
// UnixEraOffset lands before 1970.
func NTPTimestampToTime(ntpTimestamp TimestampEncoded) time.Time {
	if ntpTimestamp == 0 {
		return time.UnixMilli(0).UTC()
	}

	seconds := int64(ntpTimestamp >> 32)
	fraction := ntpTimestamp & 0xFFFFFFFF

	unixSeconds := seconds - UnixEraOffset
	milliseconds := int64((fraction * 1000) >> 32)

	return time.UnixMilli(unixSeconds*1000 + milliseconds).UTC()
}

// TimeToNTPTimestamp is the inverse of NTPTimestampToTime at millisecond
// resolution. The fraction is rounded, so a round trip may come back 1ms early.
func TimeToNTPTimestamp(t time.Time) TimestampEncoded {
	unixMilli := t.UnixMilli()
	unixSeconds := unixMilli / 1000
	milliseconds := unixMilli % 1000
	if milliseconds < 0 {
		unixSeconds--
		milliseconds += 1000
	}

	seconds := uint32(unixSeconds + UnixEraOffset)
	fraction := uint64(math.Round(float64(milliseconds) / 1000 * float64(EraLength)))
	return TimestampEncoded(seconds)<<32 | TimestampEncoded(fraction)
}

func ShortToDuration(short ShortEncoded) time.Duration {
	return time.Duration(float64(short) / ShortLength * float64(time.Second))
}

func NTPTimestampEncodedToDouble(ntpTimestamp TimestampEncoded) float64 {
	return float64(ntpTimestamp) / float64(EraLength)
}

func NTPTimestampDifferenceToDouble(difference int64) float64 {
	return float64(difference) / float64(EraLength)
}

func Log2ToDouble(a int8) float64 {
	if a < 0 {
		return 1.0 / float64(int64(1)<<-int(a))
	}
	return float64(int64(1) << a)
}

func Log2ToDuration(a int) time.Duration {
	switch {
	case a >= 34:
		return time.Duration(math.MaxInt64)
	case a >= 0:
		return time.Second << a
	default:
		return time.Second >> -a
	}
}

func doubleToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// Offset is the single-sample clock offset of the on-wire protocol:
// ((rec - org) + (xmt - dst)) / 2.
func Offset(org, rec, xmt, dst TimestampEncoded) time.Duration {
	return doubleToDuration((NTPTimestampDifferenceToDouble(int64(rec-org)) +
		NTPTimestampDifferenceToDouble(int64(xmt-dst))) / 2)
}

// Delay is the single-sample round trip delay: (dst - org) - (xmt - rec).
func Delay(org, rec, xmt, dst TimestampEncoded) time.Duration {
	return doubleToDuration(NTPTimestampDifferenceToDouble(int64(dst-org)) -
		NTPTimestampDifferenceToDouble(int64(xmt-rec)))
}
